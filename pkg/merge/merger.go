// Package merge folds fetched pitch rows into the durable artifacts:
// per-date non-batted-ball files and the season cumulative batted-ball
// file. All writes go through the artifact store's atomic publish and
// are recorded in the catalog.
package merge

import (
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/statforge/statcast-harvester/pkg/artifact"
	"github.com/statforge/statcast-harvester/pkg/statcast"
)

var (
	rowsMergedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_rows_merged_total",
		Help: "Pitch rows written into published artifacts",
	}, []string{"category"})

	artifactsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_artifacts_published_total",
		Help: "Artifact files atomically published",
	}, []string{"category"})
)

// Merger publishes datasets as artifacts and keeps the catalog current.
type Merger struct {
	store   *artifact.Store
	catalog *artifact.Catalog
	logger  zerolog.Logger
}

// New creates a merger over a store and catalog.
func New(store *artifact.Store, catalog *artifact.Catalog) *Merger {
	return &Merger{
		store:   store,
		catalog: catalog,
		logger:  log.With().Str("component", "merger").Logger(),
	}
}

// DailyScope carries the run context for daily merges.
type DailyScope struct {
	Season   int
	GameType statcast.GameType

	// Expected holds provider-reported per-date counts; a daily
	// artifact is complete when its row count matches the reported
	// non-batted-ball count.
	Expected map[statcast.Date]statcast.DayCounts

	// FinalOn reports whether the date's games are all final. A daily
	// artifact becomes immutable only when complete and final.
	FinalOn func(statcast.Date) bool

	FetchedAt time.Time
}

// MergeDaily splits a fetched non-batted-ball dataset by game date and
// publishes one artifact per date, deduplicated and in chronological
// order. It returns the number of artifacts published. A failure on
// one date does not undo dates already published; each date's own
// write is still all-or-nothing.
func (m *Merger) MergeDaily(scope DailyScope, ds *statcast.Dataset) (int, error) {
	byDate := ds.SplitByDate()
	dates := make([]statcast.Date, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	published := 0
	for _, date := range dates {
		part := byDate[date]
		part.DedupKeepLast()
		part.SortChronological()

		name := artifact.DailyFileName(date)
		if err := m.store.WriteDataset(name, part); err != nil {
			return published, err
		}
		published++
		rowsMergedTotal.WithLabelValues(string(statcast.CategoryNonBBE)).Add(float64(part.Len()))
		artifactsPublishedTotal.WithLabelValues(string(statcast.CategoryNonBBE)).Inc()

		counts, counted := scope.Expected[date]
		complete := counted && part.Len() == counts.NonBBE()
		immutable := complete && scope.FinalOn != nil && scope.FinalOn(date)

		rec := &artifact.Record{
			Season:       scope.Season,
			GameType:     string(scope.GameType),
			Category:     string(statcast.CategoryNonBBE),
			Date:         date.String(),
			FileName:     name,
			RowCount:     part.Len(),
			ExpectedRows: counts.NonBBE(),
			Complete:     complete,
			Immutable:    immutable,
			FetchedAt:    scope.FetchedAt,
		}
		if err := m.catalog.Upsert(rec); err != nil {
			return published, fmt.Errorf("record daily artifact %s: %w", name, err)
		}

		m.logger.Info().
			Str("date", date.String()).
			Int("rows", part.Len()).
			Bool("complete", complete).
			Bool("immutable", immutable).
			Msg("Daily artifact merged")
	}
	return published, nil
}

// CumulativeScope carries the run context for a cumulative replace.
type CumulativeScope struct {
	Season   int
	GameType statcast.GameType

	// Replaced is the date window whose rows the fetched dataset
	// refreshes. Existing rows outside it are preserved.
	Replaced statcast.DateRange

	// MarkImmutable freezes the artifact; set only once the season is
	// closed and its grace window has elapsed.
	MarkImmutable bool

	FetchedAt time.Time
}

// ReplaceCumulative rebuilds the season's batted-ball artifact from
// the fetched rows. Rows inside the replaced window are taken from the
// fetch (the provider recalculates derived statistics on historical
// rows, so fresher always wins); rows outside it carry over from the
// existing artifact. The result is deduplicated, sorted, and published
// atomically.
func (m *Merger) ReplaceCumulative(scope CumulativeScope, fetched *statcast.Dataset) error {
	name := artifact.CumulativeFileName(scope.Season, scope.GameType)

	merged := &statcast.Dataset{}
	if m.store.Exists(name) {
		existing, err := m.store.ReadDataset(name)
		if err != nil {
			return err
		}
		merged = existing.Filter(func(r statcast.PitchRecord) bool {
			return !scope.Replaced.Contains(r.GameDate)
		})
	}

	if err := merged.Append(fetched); err != nil {
		return fmt.Errorf("merge cumulative %s: %w", name, err)
	}
	if merged.Len() == 0 {
		m.logger.Debug().Str("artifact", name).Msg("No batted-ball rows to publish")
		return nil
	}
	merged.DedupKeepLast()
	merged.SortChronological()

	if err := m.store.WriteDataset(name, merged); err != nil {
		return err
	}
	rowsMergedTotal.WithLabelValues(string(statcast.CategoryBBE)).Add(float64(merged.Len()))
	artifactsPublishedTotal.WithLabelValues(string(statcast.CategoryBBE)).Inc()

	rec := &artifact.Record{
		Season:       scope.Season,
		GameType:     string(scope.GameType),
		Category:     string(statcast.CategoryBBE),
		FileName:     name,
		RowCount:     merged.Len(),
		ExpectedRows: merged.Len(),
		Complete:     true,
		Immutable:    scope.MarkImmutable,
		FetchedAt:    scope.FetchedAt,
	}
	if err := m.catalog.Upsert(rec); err != nil {
		return fmt.Errorf("record cumulative artifact %s: %w", name, err)
	}

	m.logger.Info().
		Str("artifact", name).
		Int("rows", merged.Len()).
		Bool("immutable", scope.MarkImmutable).
		Msg("Cumulative artifact replaced")

	return nil
}
