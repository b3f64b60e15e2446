package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/statforge/statcast-harvester/internal/app"
	"github.com/statforge/statcast-harvester/pkg/logging"
	"github.com/statforge/statcast-harvester/pkg/metrics"
	"github.com/statforge/statcast-harvester/pkg/statcast"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run harvests on a schedule until interrupted",
	Long: `Run a harvest for the configured season on the watch.cron schedule
(6-field cron expression, seconds first). When watch.metrics_addr is
set, Prometheus metrics are served at /metrics on that address.

A failing run logs its failures and waits for the next tick; settled
dates stay settled, so each run only fetches what the previous one
missed or what has newly completed.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Int("season", time.Now().Year(), "season to keep harvested")
	watchCmd.Flags().String("game-type", string(statcast.GameTypeRegular),
		"statsapi game type code (S, R, F, D, L, W)")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	year, _ := cmd.Flags().GetInt("season")
	gtFlag, _ := cmd.Flags().GetString("game-type")
	gt, err := statcast.ParseGameType(gtFlag)
	if err != nil {
		return err
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := logging.NewLogger("watch")
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Watch.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{Addr: cfg.Watch.MetricsAddr, Handler: mux}
		go func() {
			logger.Info().Str("addr", cfg.Watch.MetricsAddr).Msg("Serving metrics")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	runOnce := func() {
		report, err := a.Harvest(ctx, year, gt, nil)
		if err != nil {
			logger.Error().Err(err).Msg("Scheduled harvest aborted")
			return
		}
		if report.Failed() {
			logger.Error().
				Int("failures", len(report.Failures)).
				Msg("Scheduled harvest finished with failures")
		}
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(cfg.Watch.Cron, runOnce); err != nil {
		return fmt.Errorf("watch.cron %q: %w", cfg.Watch.Cron, err)
	}

	logger.Info().
		Str("cron", cfg.Watch.Cron).
		Int("season", year).
		Str("game_type", gt.Word()).
		Msg("Watch started")

	// First run immediately; the cron handles the rest.
	runOnce()
	c.Start()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	cronCtx := c.Stop()
	<-cronCtx.Done()

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		metricsServer.Shutdown(shutdownCtx)
	}
	return nil
}
