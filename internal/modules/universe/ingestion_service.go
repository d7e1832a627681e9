package universe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristath/portfolio-tracker/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrIngestionInProgress is returned when a run is requested while another is active
var ErrIngestionInProgress = errors.New("ticker ingestion already in progress")

// TickerStore is the subset of TickerRepository used by ingestion
type TickerStore interface {
	GetBySymbol(ctx context.Context, symbol string) (*Ticker, error)
	Create(ctx context.Context, ticker Ticker) (int64, error)
}

// IngestionService backfills the ticker store from the market-data listing feed.
// Symbols are processed strictly one at a time; the throttle paces the
// aggregate request rate to the provider.
type IngestionService struct {
	store    TickerStore
	provider domain.MarketDataProvider
	throttle domain.Throttle
	log      zerolog.Logger

	running atomic.Bool

	mu         sync.RWMutex
	lastReport *IngestionReport
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(
	store TickerStore,
	provider domain.MarketDataProvider,
	throttle domain.Throttle,
	log zerolog.Logger,
) *IngestionService {
	return &IngestionService{
		store:    store,
		provider: provider,
		throttle: throttle,
		log:      log.With().Str("service", "ticker_ingestion").Logger(),
	}
}

// IngestAllAvailableTickers runs one ingestion pass and returns its report.
//
// A failed listing fetch aborts the run. Per-symbol failures are logged,
// collected in the report and the run continues. Context cancellation aborts
// the run; the partial report is still returned.
func (s *IngestionService) IngestAllAvailableTickers(ctx context.Context) (*IngestionReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrIngestionInProgress
	}
	defer s.running.Store(false)

	return s.run(ctx)
}

// StartAsync starts a run in the background. It fails immediately with
// ErrIngestionInProgress if a run is active. The returned id identifies the
// run in logs and in LastReport.
func (s *IngestionService) StartAsync(ctx context.Context) (string, error) {
	if !s.running.CompareAndSwap(false, true) {
		return "", ErrIngestionInProgress
	}

	runID := uuid.NewString()
	go func() {
		defer s.running.Store(false)
		if _, err := s.runWithID(ctx, runID); err != nil {
			s.log.Error().Err(err).Str("run_id", runID).Msg("Background ticker ingestion failed")
		}
	}()

	return runID, nil
}

// IsRunning reports whether an ingestion run is active
func (s *IngestionService) IsRunning() bool {
	return s.running.Load()
}

// LastReport returns the report of the most recent finished run, or nil
func (s *IngestionService) LastReport() *IngestionReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastReport == nil {
		return nil
	}
	report := *s.lastReport
	return &report
}

func (s *IngestionService) run(ctx context.Context) (*IngestionReport, error) {
	return s.runWithID(ctx, uuid.NewString())
}

func (s *IngestionService) runWithID(ctx context.Context, runID string) (*IngestionReport, error) {
	report := &IngestionReport{
		RunID:     runID,
		StartedAt: time.Now(),
		Failed:    make([]FailedSymbol, 0),
	}
	log := s.log.With().Str("run_id", runID).Logger()
	defer s.finish(report)

	log.Info().Msg("Starting ticker ingestion")

	listings, err := s.provider.ListActiveListings(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch listing status")
		return report, fmt.Errorf("failed to fetch listing status: %w", err)
	}

	for _, listing := range listings {
		if !listing.IsActive() {
			continue
		}
		report.Listed++

		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Int("inserted", report.Inserted).Msg("Ticker ingestion cancelled")
			return report, fmt.Errorf("ticker ingestion cancelled: %w", err)
		}

		existing, err := s.store.GetBySymbol(ctx, listing.Symbol)
		if err != nil {
			s.recordFailure(log, report, listing.Symbol, err)
			continue
		}
		if existing != nil {
			report.Skipped++
			log.Debug().Str("symbol", listing.Symbol).Msg("Ticker already exists, skipping")
			continue
		}

		if err := s.throttle.Wait(ctx); err != nil {
			log.Warn().Err(err).Int("inserted", report.Inserted).Msg("Ticker ingestion cancelled")
			return report, fmt.Errorf("ticker ingestion cancelled: %w", err)
		}

		ticker, err := s.fetchTicker(ctx, listing)
		if err != nil {
			if ctx.Err() != nil {
				return report, fmt.Errorf("ticker ingestion cancelled: %w", ctx.Err())
			}
			s.recordFailure(log, report, listing.Symbol, err)
			continue
		}

		if _, err := s.store.Create(ctx, ticker); err != nil {
			s.recordFailure(log, report, listing.Symbol, err)
			continue
		}

		report.Inserted++
		log.Info().
			Str("symbol", ticker.Symbol).
			Str("price", ticker.SharePrice.String()).
			Str("dividend_yield", ticker.DividendYield.String()).
			Msg("Ticker added")
	}

	return report, nil
}

// fetchTicker performs the three provider calls for one new symbol
func (s *IngestionService) fetchTicker(ctx context.Context, listing domain.Listing) (Ticker, error) {
	dividendPerShare, err := s.provider.GetDividendPerShare(ctx, listing.Symbol)
	if err != nil {
		return Ticker{}, fmt.Errorf("dividend per share: %w", err)
	}

	dividendYield, err := s.provider.GetDividendYield(ctx, listing.Symbol)
	if err != nil {
		return Ticker{}, fmt.Errorf("dividend yield: %w", err)
	}

	price, err := s.provider.GetCurrentPrice(ctx, listing.Symbol)
	if err != nil {
		return Ticker{}, fmt.Errorf("current price: %w", err)
	}

	return Ticker{
		Symbol:           listing.Symbol,
		CompanyName:      listing.CompanyName,
		SharePrice:       price,
		DividendYield:    dividendYield,
		DividendPerShare: dividendPerShare,
		LastUpdated:      time.Now(),
	}, nil
}

func (s *IngestionService) recordFailure(log zerolog.Logger, report *IngestionReport, symbol string, err error) {
	var statusErr *domain.HTTPStatusError
	rateLimited := errors.As(err, &statusErr) && statusErr.IsRateLimited()

	log.Warn().Err(err).Str("symbol", symbol).Bool("rate_limited", rateLimited).Msg("Failed to ingest ticker, continuing")
	report.Failed = append(report.Failed, FailedSymbol{Symbol: symbol, Error: err.Error(), RateLimited: rateLimited})
}

func (s *IngestionService) finish(report *IngestionReport) {
	report.FinishedAt = time.Now()

	s.log.Info().
		Str("run_id", report.RunID).
		Int("listed", report.Listed).
		Int("inserted", report.Inserted).
		Int("skipped", report.Skipped).
		Int("failed", len(report.Failed)).
		Int("rate_limited", report.RateLimitedCount()).
		Dur("duration", report.Duration()).
		Msg("Ticker ingestion finished")

	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()
}
