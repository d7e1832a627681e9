/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the HTTP server for access to services.
 */
package di

import (
	"github.com/aristath/portfolio-tracker/internal/clients/alphavantage"
	"github.com/aristath/portfolio-tracker/internal/clients/finnhub"
	"github.com/aristath/portfolio-tracker/internal/database"
	"github.com/aristath/portfolio-tracker/internal/domain"
	"github.com/aristath/portfolio-tracker/internal/modules/portfolio"
	"github.com/aristath/portfolio-tracker/internal/modules/universe"
	"github.com/aristath/portfolio-tracker/internal/reliability"
	"github.com/aristath/portfolio-tracker/internal/scheduler"
	"github.com/aristath/portfolio-tracker/internal/services"
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Database: tracker.db (tickers, portfolios, portfolio_tickers)
 * - Clients: AlphaVantage listing feed, Finnhub metrics and quotes
 * - Repositories: ticker and portfolio stores
 * - Services: market data gateway, ticker ingestion, portfolio service, backups
 * - Scheduler: cron jobs (periodic ingestion, WAL checkpoint, maintenance, backups)
 */
type Container struct {
	// Database
	TrackerDB *database.DB

	// Clients
	AlphaVantageClient *alphavantage.Client
	FinnhubClient      *finnhub.Client

	// Repositories
	TickerRepo    *universe.TickerRepository
	PortfolioRepo *portfolio.PortfolioRepository

	// Services
	MarketData       *services.MarketDataGateway
	MarketThrottle   domain.Throttle // Paces ticker ingestion
	RefreshThrottle  domain.Throttle // Paces portfolio price refresh
	IngestionService *universe.IngestionService
	PortfolioService *portfolio.Service

	// Reliability
	BackupService       *reliability.BackupService
	RemoteBackupService *reliability.RemoteBackupService // nil unless BACKUP_S3_BUCKET is set

	// Scheduler
	Scheduler *scheduler.Scheduler
}

// JobInstances holds the job instances created during wiring
type JobInstances struct {
	TickerIngestion *scheduler.TickerIngestionJob
	WALCheckpoint   *scheduler.CheckWALCheckpointJob
	Maintenance     *reliability.DatabaseMaintenanceJob
	Backup          *reliability.BackupJob // nil unless remote backups are enabled
}

// Close releases the resources held by the container
func (c *Container) Close() error {
	if c == nil || c.TrackerDB == nil {
		return nil
	}
	return c.TrackerDB.Close()
}
