package di

import (
	"context"
	"fmt"

	"github.com/aristath/portfolio-tracker/internal/clients/alphavantage"
	"github.com/aristath/portfolio-tracker/internal/clients/finnhub"
	"github.com/aristath/portfolio-tracker/internal/config"
	"github.com/aristath/portfolio-tracker/internal/modules/portfolio"
	"github.com/aristath/portfolio-tracker/internal/modules/universe"
	"github.com/aristath/portfolio-tracker/internal/reliability"
	"github.com/aristath/portfolio-tracker/internal/services"
	"github.com/rs/zerolog"
)

// InitializeServices creates the clients and services and stores them in the container.
// Repositories must already be initialized.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.TickerRepo == nil || container.PortfolioRepo == nil {
		return fmt.Errorf("repositories must be initialized before services")
	}

	// External clients
	container.AlphaVantageClient = alphavantage.NewClient(
		cfg.AlphaVantage.BaseURL,
		cfg.AlphaVantage.APIKey,
		cfg.HTTPTimeout,
		log,
	)
	container.FinnhubClient = finnhub.NewClient(
		cfg.Finnhub.BaseURL,
		cfg.Finnhub.APIKey,
		cfg.HTTPTimeout,
		log,
	)
	if cfg.AlphaVantage.APIKey == "" || cfg.Finnhub.APIKey == "" {
		log.Warn().Msg("Market data API keys not configured, provider calls will fail")
	}

	container.MarketData = services.NewMarketDataGateway(
		container.AlphaVantageClient,
		container.FinnhubClient,
		log,
	)

	// Ingestion and price refresh get separate throttles so an ingestion run
	// never takes slots from an interactive refresh
	container.MarketThrottle = reliability.NewIntervalThrottle(cfg.MarketDataDelay)
	container.RefreshThrottle = reliability.NewIntervalThrottle(cfg.MarketDataDelay)

	container.IngestionService = universe.NewIngestionService(
		container.TickerRepo,
		container.MarketData,
		container.MarketThrottle,
		log,
	)

	container.PortfolioService = portfolio.NewService(
		container.PortfolioRepo,
		container.TickerRepo,
		container.MarketData,
		container.RefreshThrottle,
		portfolio.ServiceConfig{
			StalenessThreshold: cfg.StalenessThreshold,
			PriceRefreshDelay:  cfg.MarketDataDelay,
		},
		log,
	)

	container.BackupService = reliability.NewBackupService(container.TrackerDB, log)

	if cfg.Backup.Enabled() {
		s3Client, err := reliability.NewS3Client(context.Background(), reliability.S3Config{
			Endpoint:        cfg.Backup.Endpoint,
			Region:          cfg.Backup.Region,
			Bucket:          cfg.Backup.Bucket,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create backup storage client: %w", err)
		}
		container.RemoteBackupService = reliability.NewRemoteBackupService(
			s3Client,
			container.BackupService,
			cfg.DataDir,
			log,
		)
	}

	log.Info().
		Dur("market_data_delay", cfg.MarketDataDelay).
		Dur("staleness_threshold", cfg.StalenessThreshold).
		Bool("remote_backup", container.RemoteBackupService != nil).
		Msg("Services initialized")

	return nil
}
