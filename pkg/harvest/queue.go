package harvest

import (
	"sync"

	"github.com/statforge/statcast-harvester/pkg/batch"
)

// workQueue distributes requests to workers and accepts re-queued
// bisection halves while other requests are still in flight. pop
// blocks until work is available or the queue drains: empty with
// nothing in flight means no more work can appear.
type workQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []batch.Request
	inflight int
	closed   bool
}

func newWorkQueue(reqs []batch.Request) *workQueue {
	q := &workQueue{items: append([]batch.Request(nil), reqs...)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *workQueue) pop() (batch.Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && q.inflight > 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed || len(q.items) == 0 {
		return batch.Request{}, false
	}
	req := q.items[0]
	q.items = q.items[1:]
	q.inflight++
	return req, true
}

func (q *workQueue) push(req batch.Request) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.items = append(q.items, req)
	}
	q.cond.Broadcast()
}

// done marks one popped request finished. Must be called exactly once
// per successful pop, after any push of replacement halves.
func (q *workQueue) done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inflight--
	q.cond.Broadcast()
}

func (q *workQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
