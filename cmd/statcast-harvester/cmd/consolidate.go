package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/statforge/statcast-harvester/internal/app"
	"github.com/statforge/statcast-harvester/pkg/logging"
	"github.com/statforge/statcast-harvester/pkg/statcast"
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Build the season master file from published artifacts",
	Long: `Union the per-date files and the cumulative batted ball file into a
single chronologically ordered season master file. Fails without
writing anything when a completed game date has no published daily
artifact; run harvest first.`,
	RunE: runConsolidate,
}

func init() {
	rootCmd.AddCommand(consolidateCmd)

	consolidateCmd.Flags().Int("season", time.Now().Year(), "season to consolidate")
	consolidateCmd.Flags().String("game-type", string(statcast.GameTypeRegular),
		"statsapi game type code (S, R, F, D, L, W)")
}

func runConsolidate(cmd *cobra.Command, _ []string) error {
	year, _ := cmd.Flags().GetInt("season")
	gtFlag, _ := cmd.Flags().GetString("game-type")
	gt, err := statcast.ParseGameType(gtFlag)
	if err != nil {
		return err
	}
	if !statcast.IsValidSeason(year) {
		return fmt.Errorf("%d is not a valid MLB season", year)
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	name, rows, err := a.Consolidate(cmd.Context(), year, gt)
	if err != nil {
		return err
	}

	logger := logging.NewLogger("consolidate-cmd")
	logger.Info().
		Str("artifact", name).
		Int("rows", rows).
		Msg("Season master built")
	return nil
}
