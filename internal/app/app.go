// Package app wires the harvester's components together from
// configuration and exposes the top-level operations the CLI commands
// run.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/statforge/statcast-harvester/internal/config"
	"github.com/statforge/statcast-harvester/pkg/artifact"
	"github.com/statforge/statcast-harvester/pkg/batch"
	"github.com/statforge/statcast-harvester/pkg/cache"
	"github.com/statforge/statcast-harvester/pkg/consolidate"
	"github.com/statforge/statcast-harvester/pkg/harvest"
	"github.com/statforge/statcast-harvester/pkg/logging"
	"github.com/statforge/statcast-harvester/pkg/merge"
	"github.com/statforge/statcast-harvester/pkg/planner"
	"github.com/statforge/statcast-harvester/pkg/refdata"
	"github.com/statforge/statcast-harvester/pkg/schedule"
	"github.com/statforge/statcast-harvester/pkg/statcast"
)

// App holds the assembled harvester.
type App struct {
	Config    *config.Config
	Store     *artifact.Store
	Catalog   *artifact.Catalog
	Cache     *cache.Manager
	Schedule  *schedule.Client
	Statcast  *statcast.Client
	Planner   *planner.Planner
	Scheduler *batch.Scheduler
	Merger    *merge.Merger
	Runner    *harvest.Runner
	Builder   *consolidate.Builder
	WOBA      refdata.ConstantHistory
	Fangraphs refdata.ConstantHistory

	redisClient *redis.Client
	logger      zerolog.Logger
}

// New assembles the harvester from configuration. The reference
// constant tables load here so a bad deployment fails at startup, not
// mid-run.
func New(cfg *config.Config) (*App, error) {
	woba, err := refdata.LoadFile(cfg.Refdata.WOBAConstants)
	if err != nil {
		return nil, err
	}
	fangraphs, err := refdata.LoadFile(cfg.Refdata.FangraphsConstants)
	if err != nil {
		return nil, err
	}

	store, err := artifact.NewStore(cfg.Storage.BaseDir)
	if err != nil {
		return nil, err
	}
	catalog, err := artifact.OpenCatalog(cfg.Storage.Catalog())
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	var cacheManager *cache.Manager
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cacheManager = cache.NewManager(redisClient)
	}

	scheduleClient := schedule.NewClient(schedule.Config{
		BaseURL:  cfg.Schedule.BaseURL,
		Timeout:  cfg.Schedule.Timeout,
		Cache:    cacheManager,
		CacheTTL: cfg.Schedule.CacheTTL,
	})

	statcastClient, err := statcast.New(statcast.Config{
		BaseURL:   cfg.Statcast.BaseURL,
		UserAgent: cfg.Statcast.UserAgent,
		RowCap:    cfg.Statcast.RowCap,
		Timeout:   cfg.Statcast.Timeout,
		Retry: statcast.RetryPolicy{
			MaxAttempts:       cfg.Retry.MaxAttempts,
			InitialBackoff:    cfg.Retry.InitialBackoff,
			MaxBackoff:        cfg.Retry.MaxBackoff,
			BackoffMultiplier: cfg.Retry.BackoffMultiplier,
		},
	})
	if err != nil {
		catalog.Close()
		return nil, err
	}

	scheduler, err := batch.NewScheduler(cfg.Statcast.RowCap)
	if err != nil {
		catalog.Close()
		return nil, err
	}

	merger := merge.New(store, catalog)

	return &App{
		Config:    cfg,
		Store:     store,
		Catalog:   catalog,
		Cache:     cacheManager,
		Schedule:  scheduleClient,
		Statcast:  statcastClient,
		Planner:   planner.New(catalog),
		Scheduler: scheduler,
		Merger:    merger,
		Runner: harvest.NewRunner(statcastClient, scheduler, merger, harvest.Config{
			MaxConcurrent: cfg.Harvest.MaxConcurrent,
			GraceDays:     cfg.Harvest.CumulativeGraceDays,
		}),
		Builder:     consolidate.New(store),
		WOBA:        woba,
		Fangraphs:   fangraphs,
		redisClient: redisClient,
		logger:      logging.NewLogger("app"),
	}, nil
}

// Close releases held resources.
func (a *App) Close() {
	if a.redisClient != nil {
		a.redisClient.Close()
	}
	if a.Catalog != nil {
		a.Catalog.Close()
	}
}

// Harvest runs one download pass for a season. A nil requested range
// means the whole season through yesterday.
func (a *App) Harvest(ctx context.Context, year int, gt statcast.GameType, requested *statcast.DateRange) (*harvest.Report, error) {
	season, err := a.Schedule.SeasonSchedule(ctx, year, gt)
	if err != nil {
		return nil, err
	}
	if len(season.Days) == 0 {
		return nil, fmt.Errorf("no %s games scheduled for %d", gt.Word(), year)
	}

	today := statcast.Today()
	rng, ok := a.harvestRange(season, requested, today)
	if !ok {
		a.logger.Info().Int("season", year).Msg("Season has not started, nothing to harvest")
		return &harvest.Report{}, nil
	}

	counts, err := a.Statcast.CountsByDate(ctx, rng, gt)
	if err != nil {
		// Counts only size requests and gate completeness marking;
		// the run can proceed on the fallback estimate.
		a.logger.Warn().Err(err).Msg("Count pre-search failed, using fallback estimates")
		counts = nil
	}

	plan, err := a.Planner.BuildPlan(planner.Inputs{
		Season:           season,
		Range:            rng,
		Today:            today,
		Counts:           counts,
		FallbackEstimate: a.Config.Harvest.EstimatedPitchesPerDay,
		GraceDays:        a.Config.Harvest.CumulativeGraceDays,
	})
	if err != nil {
		return nil, err
	}

	return a.Runner.Run(ctx, plan, season, today)
}

// harvestRange resolves the effective date window for a run.
func (a *App) harvestRange(season *schedule.Season, requested *statcast.DateRange, today statcast.Date) (statcast.DateRange, bool) {
	if requested != nil {
		return *requested, true
	}

	open, ok := season.OpeningDay()
	if !ok {
		return statcast.DateRange{}, false
	}
	last, _ := season.LastScheduledDay()

	end := last
	if yesterday := today.AddDays(-1); yesterday.Before(end) {
		end = yesterday
	}
	if end.Before(open) {
		return statcast.DateRange{}, false
	}
	return statcast.DateRange{Start: open, End: end}, true
}

// Consolidate builds the season master artifact from the published
// daily and cumulative files.
func (a *App) Consolidate(ctx context.Context, year int, gt statcast.GameType) (string, int, error) {
	season, err := a.Schedule.SeasonSchedule(ctx, year, gt)
	if err != nil {
		return "", 0, err
	}

	rng := season.CompletedRange()
	if rng.IsZero() {
		return "", 0, fmt.Errorf("no completed %s games for %d", gt.Word(), year)
	}

	var expected []statcast.Date
	for _, day := range season.Days {
		if rng.Contains(day.Date) && day.Final() {
			expected = append(expected, day.Date)
		}
	}

	return a.Builder.Build(consolidate.Input{
		Season:        year,
		GameType:      gt,
		Range:         rng,
		ExpectedDates: expected,
	})
}
