package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dvloznov/headlines-etl/internal/api"
	"github.com/dvloznov/headlines-etl/internal/api/handlers"
	bq "github.com/dvloznov/headlines-etl/internal/bigquery"
	"github.com/dvloznov/headlines-etl/internal/config"
	"github.com/dvloznov/headlines-etl/internal/jobs/inmemory"
	"github.com/dvloznov/headlines-etl/internal/logger"
	"github.com/dvloznov/headlines-etl/internal/worker"
)

func main() {
	// Parse command-line flags
	var (
		cfgFile = flag.String("config", "", "config file (YAML)")
		port    = flag.Int("port", 0, "HTTP server port (overrides api.port)")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}
	if *port != 0 {
		cfg.API.Port = *port
	}

	// Initialize logger
	log := logger.NewFromConfig(cfg.Logging.Level, cfg.Logging.Format, os.Stdout)
	ctx := logger.WithContext(context.Background(), log)

	services, err := worker.NewServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Close()

	if !cfg.Upload.Enabled {
		log.Warn().Msg("No GCS bucket configured - CSVs stay on local disk")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Worker.QueueSize, jobStore,
		inmemory.WithWorkers(cfg.Worker.Concurrency),
		inmemory.WithMaxRetries(cfg.Worker.MaxRetries),
	)

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	handler := worker.NewHandler(services.Deps, services.Layout, worker.TriggerAPI)
	log.Info().Msg("Starting job worker")
	if err := jobQueue.Start(workerCtx, handler.Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job worker")
	}

	// A nil *Repository must not become a non-nil interface.
	var runs bq.RunRepository
	if services.Repo != nil {
		runs = services.Repo
	}

	router := api.NewRouter(
		handlers.NewTransformsHandler(jobQueue, jobStore, worker.Pipelines(cfg), log),
		handlers.NewRunsHandler(runs, log),
		log,
	)

	// Create HTTP server
	addr := ":" + strconv.Itoa(cfg.API.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
