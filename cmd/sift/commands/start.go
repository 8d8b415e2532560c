package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/siftlabs/sift/internal/ops"
	"github.com/siftlabs/sift/internal/scheduler/jobs"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the pipeline daemon with scheduler and ops server",
	Long: `Runs the full pipeline as a daemon.

This command:
- Schedules the pipeline cycle on PIPELINE_CRON
- Schedules the corroboration sweep every 15 minutes
- Serves the operational HTTP endpoints

Endpoints:
  GET /health  - Postgres and Redis health
  GET /status  - Last cycle outcome, metrics, job stats

Example:
  go run ./cmd/sift start
  go run ./cmd/sift start --port 8090`,
	RunE: runStart,
}

var startPort string

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().StringVar(&startPort, "port", "", "ops server port (default from PORT)")
}

func runStart(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Sift Pipeline Daemon ===")

	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	if startPort != "" {
		rt.cfg.Port = startPort
	}

	rt.log.WithFields(map[string]interface{}{
		"port": rt.cfg.Port,
		"env":  rt.cfg.Env,
		"cron": rt.cfg.Pipeline.CronSpec,
	}).Info("Initializing pipeline daemon")

	// Register jobs
	if err := rt.sched.AddJob(jobs.NewCycleJob(rt.pipeline, rt.log, rt.cfg.Pipeline.CronSpec)); err != nil {
		return fmt.Errorf("register cycle job: %w", err)
	}
	if err := rt.sched.AddJob(jobs.NewCorroborationJob(rt.worker, rt.log)); err != nil {
		return fmt.Errorf("register corroboration job: %w", err)
	}
	rt.sched.Start()
	defer rt.sched.Stop()

	// Ops server
	router := ops.NewRouter(rt.db, rt.cache, rt.pipeline, rt.metrics, rt.sched, rt.log)
	server := ops.New(rt.cfg, rt.log, router)

	go func() {
		if err := server.Start(); err != nil {
			rt.log.WithError(err).Fatal("Failed to start ops server")
		}
	}()

	fmt.Printf("\n✅ Daemon running, ops on http://localhost:%s\n", rt.cfg.Port)
	fmt.Println("\nRegistered jobs:")
	for _, name := range rt.sched.GetAllJobs() {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	rt.log.Info("Shutting down daemon...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("ops server shutdown failed: %w", err)
	}

	rt.log.Info("Daemon stopped")
	return nil
}
