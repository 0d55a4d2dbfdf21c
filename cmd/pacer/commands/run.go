package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pacerhq/pacer/db"
	"github.com/pacerhq/pacer/logger"
	"github.com/pacerhq/pacer/scheduler"
)

var runTimeout time.Duration

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a single orchestration pass",
	Long: `Execute one polling pass against the configured database: fetch due
schedules across all families, run them, and print the pass summary as JSON.

The command exits zero even when individual jobs failed; their outcomes are
part of the summary.`,
	RunE: runPass,
}

func init() {
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 15*time.Minute, "Overall pass deadline")
}

func runPass(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.Named("run")

	conn, err := db.Open(cfg.Database.Path, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Migrate(conn, log); err != nil {
		return err
	}

	orchestrator := scheduler.New(conn, executors(cfg), schedulerConfig(cfg), logger.Logger)

	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	summary, err := orchestrator.RunPass(ctx)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
