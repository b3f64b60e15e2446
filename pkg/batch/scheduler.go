// Package batch packs a download plan into the smallest set of
// provider requests that each stay under the provider's row cap, and
// bisects requests the provider truncated anyway.
package batch

import (
	"fmt"

	"github.com/statforge/statcast-harvester/pkg/planner"
	"github.com/statforge/statcast-harvester/pkg/statcast"
)

// Request is one provider search the harvester will issue. Requests
// produced from a single plan cover pairwise-disjoint date ranges per
// category, so their results never overlap.
type Request struct {
	Range         statcast.DateRange
	Category      statcast.EventCategory
	GameType      statcast.GameType
	RowCap        int
	EstimatedRows int
}

// Scheduler turns plans into request batches.
type Scheduler struct {
	rowCap int
}

// NewScheduler creates a scheduler for the given row cap.
func NewScheduler(rowCap int) (*Scheduler, error) {
	if rowCap < 1 || rowCap > statcast.MaxSearchRows {
		return nil, fmt.Errorf("row cap %d outside 1..%d", rowCap, statcast.MaxSearchRows)
	}
	return &Scheduler{rowCap: rowCap}, nil
}

// Requests packs the plan's tasks into requests. Consecutive NonBBE
// dates merge into one request while their combined estimate stays
// under the cap; a range never spans a skipped date, since re-fetching
// a settled date would rewrite its immutable artifact. The BBE task is
// cut into sub-ranges at per-date count boundaries.
func (s *Scheduler) Requests(plan *planner.Plan) []Request {
	var reqs []Request
	var cur *Request

	flush := func() {
		if cur != nil {
			reqs = append(reqs, *cur)
			cur = nil
		}
	}

	// NonBBE tasks pack in a single pass; the plan keeps them in
	// ascending date order. The BBE task splits separately so it never
	// interrupts a packing run.
	for _, task := range plan.Tasks {
		if task.Category != statcast.CategoryNonBBE {
			continue
		}

		extends := cur != nil &&
			cur.Range.End.AddDays(1) == task.Range.Start &&
			cur.EstimatedRows+task.EstimatedRows < s.rowCap
		if extends {
			cur.Range.End = task.Range.End
			cur.EstimatedRows += task.EstimatedRows
			continue
		}

		flush()
		cur = &Request{
			Range:         task.Range,
			Category:      task.Category,
			GameType:      task.GameType,
			RowCap:        s.rowCap,
			EstimatedRows: task.EstimatedRows,
		}
	}
	flush()

	for _, task := range plan.Tasks {
		if task.Category == statcast.CategoryBBE {
			reqs = append(reqs, s.splitBBE(task, plan.DayCounts)...)
		}
	}

	return reqs
}

// splitBBE cuts the batted-ball task into consecutive sub-ranges whose
// per-date estimates sum below the cap. Without count data the task
// stays whole; truncation bisection corrects any misestimate at run
// time.
func (s *Scheduler) splitBBE(task planner.FetchTask, counts map[statcast.Date]statcast.DayCounts) []Request {
	if len(counts) == 0 {
		return []Request{{
			Range:         task.Range,
			Category:      task.Category,
			GameType:      task.GameType,
			RowCap:        s.rowCap,
			EstimatedRows: task.EstimatedRows,
		}}
	}

	var reqs []Request
	var cur *Request

	for _, date := range task.Range.Dates() {
		estimate := counts[date].BBE
		if cur != nil && cur.EstimatedRows+estimate < s.rowCap {
			cur.Range.End = date
			cur.EstimatedRows += estimate
			continue
		}
		if cur != nil {
			reqs = append(reqs, *cur)
		}
		cur = &Request{
			Range:         statcast.DateRange{Start: date, End: date},
			Category:      task.Category,
			GameType:      task.GameType,
			RowCap:        s.rowCap,
			EstimatedRows: estimate,
		}
	}
	if cur != nil {
		reqs = append(reqs, *cur)
	}

	return reqs
}

// Bisect splits a truncated request into two half-range requests.
// A single-date request cannot be split further; its data genuinely
// exceeds the cap and the caller must report it as a failure.
func Bisect(req Request) (Request, Request, error) {
	left, right, ok := req.Range.Halves()
	if !ok {
		return Request{}, Request{}, fmt.Errorf(
			"request %s..%s covers a single date and cannot be bisected",
			req.Range.Start, req.Range.End)
	}

	half := req.EstimatedRows / 2
	a := req
	a.Range = left
	a.EstimatedRows = half
	b := req
	b.Range = right
	b.EstimatedRows = req.EstimatedRows - half
	return a, b, nil
}
