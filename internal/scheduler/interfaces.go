package scheduler

import (
	"context"

	"github.com/aristath/portfolio-tracker/internal/modules/universe"
)

// TickerIngester defines the contract for ticker ingestion.
// Used by scheduler to enable testing with mocks.
type TickerIngester interface {
	IngestAllAvailableTickers(ctx context.Context) (*universe.IngestionReport, error)
}
