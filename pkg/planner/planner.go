// Package planner decides which fetches a harvest run needs. It
// compares the requested date range against the artifact catalog and
// the season schedule so that settled data is never re-requested and
// unfinished dates are deferred instead of fetched half-complete.
package planner

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/statforge/statcast-harvester/pkg/artifact"
	"github.com/statforge/statcast-harvester/pkg/schedule"
	"github.com/statforge/statcast-harvester/pkg/statcast"
)

// ArtifactIndex is the catalog view the planner needs: the metadata of
// previously published artifacts, decoupled from the filesystem.
type ArtifactIndex interface {
	Daily(date statcast.Date) (*artifact.Record, error)
	Cumulative(season int, gt statcast.GameType) (*artifact.Record, error)
}

// FetchTask is one planned unit of download work. EstimatedRows is an
// upper-bound sizing estimate of rows on the wire, not an exact count;
// for NonBBE tasks it covers all pitches of the date because the
// provider has no non-batted-ball-only filter.
type FetchTask struct {
	Range         statcast.DateRange
	Category      statcast.EventCategory
	GameType      statcast.GameType
	EstimatedRows int
}

// Plan is the ordered download plan for one run: ascending by date,
// NonBBE before BBE for a given date. Pending lists dates inside the
// requested range whose games have not finished and which a future run
// must revisit.
type Plan struct {
	Season    int
	GameType  statcast.GameType
	Range     statcast.DateRange
	Tasks     []FetchTask
	Pending   []statcast.Date
	DayCounts map[statcast.Date]statcast.DayCounts
}

// BBETask returns the plan's batted-ball task, if any.
func (p *Plan) BBETask() (FetchTask, bool) {
	for _, t := range p.Tasks {
		if t.Category == statcast.CategoryBBE {
			return t, true
		}
	}
	return FetchTask{}, false
}

// IsEmpty reports whether the plan requires no fetches.
func (p *Plan) IsEmpty() bool {
	return len(p.Tasks) == 0
}

// Inputs are the facts a plan is built from. The same inputs always
// yield the same plan.
type Inputs struct {
	Season *schedule.Season

	// Range is the requested date window. A zero range yields an
	// empty plan.
	Range statcast.DateRange

	// Today gates which dates can be considered settled.
	Today statcast.Date

	// Counts are the provider-reported per-date pitch counts.
	Counts map[statcast.Date]statcast.DayCounts

	// FallbackEstimate sizes a date when Counts has no entry for it.
	FallbackEstimate int

	// GraceDays extends the season past its last game date before the
	// cumulative artifact may be considered settled.
	GraceDays int
}

// Planner builds download plans.
type Planner struct {
	index  ArtifactIndex
	logger zerolog.Logger
}

// New creates a planner over an artifact index.
func New(index ArtifactIndex) *Planner {
	return &Planner{
		index:  index,
		logger: log.With().Str("component", "planner").Logger(),
	}
}

// BuildPlan produces the download plan for the given inputs.
func (p *Planner) BuildPlan(in Inputs) (*Plan, error) {
	plan := &Plan{
		Season:    in.Season.Year,
		GameType:  in.Season.GameType,
		Range:     in.Range,
		DayCounts: in.Counts,
	}

	if in.Range.IsZero() {
		return plan, nil
	}
	if err := in.Range.Validate(); err != nil {
		return nil, err
	}

	for _, date := range in.Range.Dates() {
		if !in.Season.HasGames(date) {
			continue
		}

		if !date.Before(in.Today) || !in.Season.FinalOn(date) {
			plan.Pending = append(plan.Pending, date)
			continue
		}

		rec, err := p.index.Daily(date)
		if err != nil {
			return nil, err
		}
		if rec != nil && rec.Complete && rec.Immutable {
			p.logger.Debug().
				Str("date", date.String()).
				Msg("Daily artifact settled, skipping")
			continue
		}

		estimate := in.FallbackEstimate
		if counts, ok := in.Counts[date]; ok {
			estimate = counts.Pitches
		}

		plan.Tasks = append(plan.Tasks, FetchTask{
			Range:         statcast.DateRange{Start: date, End: date},
			Category:      statcast.CategoryNonBBE,
			GameType:      in.Season.GameType,
			EstimatedRows: estimate,
		})
	}

	if task, ok := p.bbeTask(in); ok {
		plan.Tasks = append(plan.Tasks, task)
	}

	// Fixed ordering for determinism: ascending start date, NonBBE
	// before BBE on ties.
	sort.SliceStable(plan.Tasks, func(i, j int) bool {
		a, b := plan.Tasks[i], plan.Tasks[j]
		if a.Range.Start != b.Range.Start {
			return a.Range.Start.Before(b.Range.Start)
		}
		return a.Category == statcast.CategoryNonBBE && b.Category == statcast.CategoryBBE
	})

	p.logger.Info().
		Int("tasks", len(plan.Tasks)).
		Int("pending_dates", len(plan.Pending)).
		Str("start", in.Range.Start.String()).
		Str("end", in.Range.End.String()).
		Msg("Download plan built")

	return plan, nil
}

// bbeTask plans the single logical batted-ball fetch for the run. The
// cumulative artifact must be refreshed wholesale while the season is
// active because derived statistics on historical rows keep changing;
// once the catalog marks it immutable nothing is fetched at all.
func (p *Planner) bbeTask(in Inputs) (FetchTask, bool) {
	rec, err := p.index.Cumulative(in.Season.Year, in.Season.GameType)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Cumulative catalog lookup failed, scheduling fetch")
	}
	if rec != nil && rec.Immutable {
		return FetchTask{}, false
	}

	// Trim to the settled part of the range; unfinished dates are
	// covered by the next run.
	end := in.Range.End
	if last, ok := in.Season.MostRecentFinal(); ok && last.Before(end) {
		end = last
	}
	if yesterday := in.Today.AddDays(-1); yesterday.Before(end) {
		end = yesterday
	}
	if end.Before(in.Range.Start) {
		return FetchTask{}, false
	}

	r := statcast.DateRange{Start: in.Range.Start, End: end}
	estimate := 0
	for _, date := range r.Dates() {
		estimate += in.Counts[date].BBE
	}
	if estimate == 0 && len(in.Counts) > 0 {
		return FetchTask{}, false
	}

	return FetchTask{
		Range:         r,
		Category:      statcast.CategoryBBE,
		GameType:      in.Season.GameType,
		EstimatedRows: estimate,
	}, true
}
