// Package commands wires the pacer CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pacerhq/pacer/config"
	"github.com/pacerhq/pacer/logger"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "pacer",
	Short: "Pacer - recurrence scheduling and task orchestration",
	Long: `Pacer schedules recurring jobs across three families (workflows,
notebooks, data syncs) and drives polling passes that execute everything
currently due.

Available commands:
  serve    - Start the HTTP server and trigger surface
  run      - Execute a single orchestration pass and print the summary
  migrate  - Apply pending database migrations

Examples:
  pacer serve                  # Start the server on the configured port
  pacer run                    # One-shot pass against the configured database
  pacer migrate                # Bring the schema up to date`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := logger.Initialize(cfg.Log.JSON); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default: ./pacer.toml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(migrateCmd)
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFromFile(configFile)
	}
	return config.Load()
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
