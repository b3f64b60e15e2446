// Package cmd implements the CLI commands for the harvester.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/statforge/statcast-harvester/internal/config"
	"github.com/statforge/statcast-harvester/pkg/logging"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd represents the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "statcast-harvester",
	Short: "MLB pitch data download and consolidation tool",
	Long: `statcast-harvester downloads MLB pitch-level data from the public
baseballsavant search endpoint and maintains local CSV artifacts:
per-date files for non-batted-ball pitches, a season cumulative file
for batted ball events, and a consolidated season master file.

The provider caps every search at 25,000 rows, so the harvester plans
requests from per-date pitch counts, bisects ranges the provider
truncates anyway, and never re-downloads data that can no longer
change.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default searches ., /etc/statcast-harvester, $HOME/.statcast-harvester)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	// Flag > env > config file > default. Load happens here rather
	// than in init so the --config flag has been parsed.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		_, err = logging.Setup(logging.Config{
			Level:  logging.LogLevel(cfg.Logging.Level),
			Pretty: cfg.Logging.Format == "text",
			File:   cfg.Logging.File,
		})
		if err != nil {
			return fmt.Errorf("configure logging: %w", err)
		}
		return nil
	}
}
