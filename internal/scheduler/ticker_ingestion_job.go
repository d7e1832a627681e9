package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/portfolio-tracker/internal/modules/universe"
	"github.com/aristath/portfolio-tracker/internal/utils"
	"github.com/rs/zerolog"
)

// TickerIngestionJob backfills the ticker store from the listing feed
type TickerIngestionJob struct {
	log       zerolog.Logger
	ingestion TickerIngester
}

// TickerIngestionJobConfig holds configuration for the ticker ingestion job
type TickerIngestionJobConfig struct {
	Log       zerolog.Logger
	Ingestion TickerIngester
}

// NewTickerIngestionJob creates a new ticker ingestion job
func NewTickerIngestionJob(cfg TickerIngestionJobConfig) *TickerIngestionJob {
	return &TickerIngestionJob{
		log:       cfg.Log.With().Str("job", "ticker_ingestion").Logger(),
		ingestion: cfg.Ingestion,
	}
}

// Name returns the job name
func (j *TickerIngestionJob) Name() string {
	return "ticker_ingestion"
}

// Run executes one ingestion pass. A pass already in progress (for example
// one started through the API) is not an error.
func (j *TickerIngestionJob) Run(ctx context.Context) error {
	if j.ingestion == nil {
		return fmt.Errorf("ticker ingestion service not available")
	}

	defer utils.OperationTimer(j.Name(), 6*time.Hour, j.log)()

	report, err := j.ingestion.IngestAllAvailableTickers(ctx)
	if errors.Is(err, universe.ErrIngestionInProgress) {
		j.log.Info().Msg("Ticker ingestion already running, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("ticker ingestion failed: %w", err)
	}

	if len(report.Failed) > 0 {
		j.log.Warn().
			Str("run_id", report.RunID).
			Int("failed", len(report.Failed)).
			Msg("Ticker ingestion finished with failures")
	}

	return nil
}
