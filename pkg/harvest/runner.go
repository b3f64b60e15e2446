// Package harvest orchestrates one download run: it turns a plan into
// provider requests, executes them with bounded concurrency, bisects
// truncated ranges, and hands results to the merger.
package harvest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/statforge/statcast-harvester/pkg/batch"
	"github.com/statforge/statcast-harvester/pkg/merge"
	"github.com/statforge/statcast-harvester/pkg/planner"
	"github.com/statforge/statcast-harvester/pkg/schedule"
	"github.com/statforge/statcast-harvester/pkg/statcast"
)

var (
	bisectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_bisections_total",
		Help: "Truncated requests split into half-range retries",
	})

	requestFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_request_failures_total",
		Help: "Provider requests that ultimately failed",
	}, []string{"category"})
)

// SearchProvider executes one capped pitch-data search. Implementations
// must return a truncation failure, not silently capped rows, when the
// result hits rowCap.
type SearchProvider interface {
	Search(ctx context.Context, r statcast.DateRange, category statcast.EventCategory,
		gt statcast.GameType, rowCap int) (*statcast.Dataset, error)
}

// Config holds runner settings.
type Config struct {
	// MaxConcurrent bounds in-flight provider requests. Values below 1
	// mean sequential.
	MaxConcurrent int

	// GraceDays must match the planner's setting; it gates when the
	// cumulative artifact is frozen.
	GraceDays int
}

// RequestFailure pairs a failed request with its error.
type RequestFailure struct {
	Request batch.Request
	Err     error
}

// Report summarizes one run.
type Report struct {
	RequestsIssued     int
	Bisections         int
	DailyArtifacts     int
	CumulativeReplaced bool
	CumulativeError    error
	Pending            []statcast.Date
	Failures           []RequestFailure
}

// Failed reports whether any part of the run failed.
func (r *Report) Failed() bool {
	return len(r.Failures) > 0 || r.CumulativeError != nil
}

// Runner executes download plans.
type Runner struct {
	provider  SearchProvider
	scheduler *batch.Scheduler
	merger    *merge.Merger
	config    Config
	logger    zerolog.Logger
}

// NewRunner creates a runner.
func NewRunner(provider SearchProvider, scheduler *batch.Scheduler, merger *merge.Merger, cfg Config) *Runner {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	return &Runner{
		provider:  provider,
		scheduler: scheduler,
		merger:    merger,
		config:    cfg,
		logger:    log.With().Str("component", "harvest").Logger(),
	}
}

// runState is the shared mutable state of one run. Its mutex also
// serializes merges; requests cover disjoint ranges, so ordering
// between merges does not matter, only exclusivity.
type runState struct {
	mu        sync.Mutex
	report    Report
	bbe       statcast.Dataset
	bbeFailed bool
}

// Run executes the plan and returns the run report. The returned
// error covers infrastructure-level aborts (context cancellation);
// per-request failures land in the report instead so one bad range
// does not discard the rest of the run's work.
func (r *Runner) Run(ctx context.Context, plan *planner.Plan, season *schedule.Season, today statcast.Date) (*Report, error) {
	state := &runState{report: Report{Pending: plan.Pending}}

	reqs := r.scheduler.Requests(plan)
	if len(reqs) == 0 {
		r.logger.Info().Msg("Nothing to fetch")
		return &state.report, nil
	}

	bbeTask, bbePlanned := plan.BBETask()
	dailyScope := merge.DailyScope{
		Season:    plan.Season,
		GameType:  plan.GameType,
		Expected:  plan.DayCounts,
		FinalOn:   season.FinalOn,
		FetchedAt: time.Now().UTC(),
	}

	q := newWorkQueue(reqs)
	workers := min(r.config.MaxConcurrent, len(reqs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if ctx.Err() != nil {
					q.close()
					return
				}
				req, ok := q.pop()
				if !ok {
					return
				}
				r.process(ctx, q, req, dailyScope, state)
				q.done()
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return &state.report, err
	}

	if bbePlanned && !state.bbeFailed {
		scope := merge.CumulativeScope{
			Season:        plan.Season,
			GameType:      plan.GameType,
			Replaced:      bbeTask.Range,
			MarkImmutable: season.Closed(today, r.config.GraceDays),
			FetchedAt:     time.Now().UTC(),
		}
		if err := r.merger.ReplaceCumulative(scope, &state.bbe); err != nil {
			state.report.CumulativeError = err
		} else {
			state.report.CumulativeReplaced = true
		}
	} else if bbePlanned {
		r.logger.Warn().Msg("Batted-ball fetch incomplete, keeping existing cumulative artifact")
	}

	r.logger.Info().
		Int("requests", state.report.RequestsIssued).
		Int("bisections", state.report.Bisections).
		Int("daily_artifacts", state.report.DailyArtifacts).
		Int("failures", len(state.report.Failures)).
		Bool("cumulative_replaced", state.report.CumulativeReplaced).
		Msg("Harvest run finished")

	return &state.report, nil
}

// process executes one request: fetch, bisect on truncation, merge.
func (r *Runner) process(ctx context.Context, q *workQueue, req batch.Request, scope merge.DailyScope, state *runState) {
	state.mu.Lock()
	state.report.RequestsIssued++
	state.mu.Unlock()

	ds, err := r.provider.Search(ctx, req.Range, req.Category, req.GameType, req.RowCap)
	if err != nil {
		if statcast.IsTruncated(err) {
			left, right, berr := batch.Bisect(req)
			if berr == nil {
				r.logger.Info().
					Str("start", req.Range.Start.String()).
					Str("end", req.Range.End.String()).
					Str("category", string(req.Category)).
					Msg("Result truncated, bisecting range")
				bisectionsTotal.Inc()
				q.push(left)
				q.push(right)
				state.mu.Lock()
				state.report.Bisections++
				state.mu.Unlock()
				return
			}
			err = fmt.Errorf("%w: %v", err, berr)
		}
		r.fail(state, req, err)
		return
	}

	switch req.Category {
	case statcast.CategoryNonBBE:
		state.mu.Lock()
		n, merr := r.merger.MergeDaily(scope, ds)
		state.report.DailyArtifacts += n
		state.mu.Unlock()
		if merr != nil {
			r.fail(state, req, merr)
		}
	case statcast.CategoryBBE:
		state.mu.Lock()
		aerr := state.bbe.Append(ds)
		state.mu.Unlock()
		if aerr != nil {
			r.fail(state, req, aerr)
		}
	}
}

// fail records a request failure. Any batted-ball failure poisons the
// cumulative replace: a partial season file would silently lose rows.
func (r *Runner) fail(state *runState, req batch.Request, err error) {
	r.logger.Error().Err(err).
		Str("start", req.Range.Start.String()).
		Str("end", req.Range.End.String()).
		Str("category", string(req.Category)).
		Msg("Request failed")
	requestFailuresTotal.WithLabelValues(string(req.Category)).Inc()

	state.mu.Lock()
	defer state.mu.Unlock()
	state.report.Failures = append(state.report.Failures, RequestFailure{Request: req, Err: err})
	if req.Category == statcast.CategoryBBE {
		state.bbeFailed = true
	}
}
