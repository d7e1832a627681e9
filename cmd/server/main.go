// Package main is the entry point for the portfolio tracker service.
// The service keeps a local universe of tickers backfilled from a market-data
// provider and serves named portfolios of positions with valuation, dividend
// and performance metrics over a JSON HTTP API.
//
// The application follows clean architecture principles:
// - Domain layer is pure (no infrastructure dependencies)
// - Dependency injection via DI container
// - Repository pattern for data access
// - Service layer for business logic
// - HTTP handlers for API endpoints
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/portfolio-tracker/internal/config"
	"github.com/aristath/portfolio-tracker/internal/di"
	"github.com/aristath/portfolio-tracker/internal/server"
	"github.com/aristath/portfolio-tracker/pkg/logger"
)

// main initializes and runs the portfolio tracker.
//
// Startup sequence:
// 1. Loads configuration from environment variables (.env file)
// 2. Initializes structured logging
// 3. Wires dependencies (tracker.db, repositories, clients, services, jobs)
// 4. Starts the HTTP server
// 5. Starts a background ticker ingestion run (INGEST_ON_STARTUP)
// 6. Starts the scheduler (periodic ingestion, WAL checkpoint)
// 7. Waits for shutdown signal and performs graceful shutdown
func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("db_driver", cfg.DBDriver).
		Msg("Starting portfolio tracker")

	// Root context for background work; cancelled on shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, _, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Container: container,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Backfill the ticker universe without delaying readiness
	if cfg.IngestOnStartup {
		runID, err := container.IngestionService.StartAsync(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Startup ticker ingestion not started")
		} else {
			log.Info().Str("run_id", runID).Msg("Startup ticker ingestion started")
		}
	}

	container.Scheduler.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Stops an in-flight ingestion run between symbols
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	container.Scheduler.Stop()

	log.Info().Msg("Server stopped")
}
