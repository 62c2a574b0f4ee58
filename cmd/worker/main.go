package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/headlines-etl/internal/config"
	"github.com/dvloznov/headlines-etl/internal/jobs/inmemory"
	"github.com/dvloznov/headlines-etl/internal/logger"
	"github.com/dvloznov/headlines-etl/internal/worker"
)

func main() {
	var (
		cfgFile  = flag.String("config", "", "config file (YAML)")
		interval = flag.Duration("interval", 24*time.Hour, "how often both pipelines are scheduled; 0 runs them once")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger
	log := logger.NewFromConfig(cfg.Logging.Level, cfg.Logging.Format, os.Stdout)

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	services, err := worker.NewServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Close()

	// Initialize job store and queue
	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Worker.QueueSize, jobStore,
		inmemory.WithWorkers(cfg.Worker.Concurrency),
		inmemory.WithMaxRetries(cfg.Worker.MaxRetries),
	)

	log.Info().
		Str("storage_root", services.Layout.Root).
		Bool("upload", cfg.Upload.Enabled).
		Bool("bigquery", cfg.BigQuery.Enabled).
		Dur("interval", *interval).
		Msg("Starting worker service")

	handler := worker.NewHandler(services.Deps, services.Layout, worker.TriggerScheduler)
	if err := jobQueue.Start(ctx, handler.Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	pipelines := worker.Pipelines(cfg)
	scheduler := worker.NewScheduler(jobQueue, *interval, pipelines.SingleMerge, pipelines.Keyword)
	go scheduler.Run(ctx)

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	// Cancel context to stop the scheduler
	cancel()

	log.Info().Msg("Worker service exited")
}
