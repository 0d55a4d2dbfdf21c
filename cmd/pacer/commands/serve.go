package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pacerhq/pacer/config"
	"github.com/pacerhq/pacer/db"
	"github.com/pacerhq/pacer/exec"
	"github.com/pacerhq/pacer/logger"
	"github.com/pacerhq/pacer/scheduler"
	"github.com/pacerhq/pacer/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Pacer HTTP server",
	Long: `Start the HTTP server exposing the pass trigger, schedule management,
and pass history endpoints. If a config file is in use, it is watched and
scheduler limits are applied live on change.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.Named("serve")

	conn, err := db.Open(cfg.Database.Path, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Migrate(conn, log); err != nil {
		return err
	}

	orchestrator := scheduler.New(conn, executors(cfg), schedulerConfig(cfg), logger.Logger)

	port := cfg.Server.Port
	if port == 0 {
		port = config.DefaultServerPort
	}
	srv := server.New(orchestrator, port, logger.Logger)
	orchestrator.SetBroadcaster(srv)

	// Hot-reload scheduler limits when the config file changes
	var watcher *config.Watcher
	if configFile != "" {
		watcher, err = config.NewWatcher(configFile)
		if err != nil {
			log.Warnw("Config watching unavailable", "error", err)
		} else {
			watcher.OnReload(func(newCfg *config.Config) error {
				orchestrator.UpdateConfig(schedulerConfig(newCfg))
				return nil
			})
			watcher.Start()
			defer watcher.Stop()
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Infow("Shutdown signal received", "signal", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func executors(cfg *config.Config) scheduler.Executors {
	client := exec.NewClient(cfg.Executors)
	return scheduler.Executors{
		Workflow: client,
		Notebook: client,
		Sync:     client,
	}
}

func schedulerConfig(cfg *config.Config) scheduler.Config {
	return scheduler.Config{
		BatchLimit:    cfg.Scheduler.BatchLimit,
		Workers:       cfg.Scheduler.Workers,
		JobTimeout:    time.Duration(cfg.Scheduler.JobTimeoutSeconds) * time.Second,
		RatePerSecond: cfg.Scheduler.RatePerSecond,
	}
}
