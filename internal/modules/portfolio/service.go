package portfolio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/portfolio-tracker/internal/domain"
	"github.com/aristath/portfolio-tracker/internal/modules/universe"
	"github.com/aristath/portfolio-tracker/internal/utils"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TickerStore is the ticker-store surface the service needs
type TickerStore interface {
	TickerLookup
	GetByID(ctx context.Context, id int64) (*universe.Ticker, error)
	UpdatePrice(ctx context.Context, id int64, price decimal.Decimal, at time.Time) error
}

// defaultRefreshSlack is added to the per-ticker refresh budget when
// ServiceConfig.RefreshSlack is unset
const defaultRefreshSlack = 30 * time.Second

// ServiceConfig holds the tunables of the portfolio service
type ServiceConfig struct {
	// StalenessThreshold is the maximum metrics age before a read refreshes prices
	StalenessThreshold time.Duration
	// PriceRefreshDelay is the pacing interval of the refresh throttle.
	// A refresh gets one interval per distinct ticker plus RefreshSlack.
	PriceRefreshDelay time.Duration
	RefreshSlack      time.Duration
}

// Service creates, reads, mutates and refreshes portfolios.
// Every change to a position list recomputes the four metrics before the
// single Save, so stored metrics always match stored positions.
type Service struct {
	repo       *PortfolioRepository
	tickers    TickerStore
	calculator *Calculator
	prices     domain.PriceFetcher
	throttle   domain.Throttle
	cfg        ServiceConfig
	now        func() time.Time
	log        zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(
	repo *PortfolioRepository,
	tickers TickerStore,
	prices domain.PriceFetcher,
	throttle domain.Throttle,
	cfg ServiceConfig,
	log zerolog.Logger,
) *Service {
	if cfg.RefreshSlack <= 0 {
		cfg.RefreshSlack = defaultRefreshSlack
	}
	return &Service{
		repo:       repo,
		tickers:    tickers,
		calculator: NewCalculator(tickers, log),
		prices:     prices,
		throttle:   throttle,
		cfg:        cfg,
		now:        time.Now,
		log:        log.With().Str("service", "portfolio").Logger(),
	}
}

// CreatePortfolio validates in, resolves every symbol, computes the metrics
// and stores the portfolio with its positions.
func (s *Service) CreatePortfolio(ctx context.Context, in PortfolioInput) (*Portfolio, error) {
	if err := ValidatePortfolioInput(in); err != nil {
		return nil, err
	}

	positions := normalizePositions(in.Tickers)
	metrics, snapshot, err := s.calculator.Compute(ctx, positions)
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := &Portfolio{
		Name:    strings.TrimSpace(in.Name),
		Tickers: make([]PortfolioTicker, 0, len(positions)),
	}
	for _, pos := range positions {
		p.Tickers = append(p.Tickers, newPosition(pos, snapshot[pos.Symbol], now))
	}
	p.ApplyMetrics(metrics, now)

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}
	return p, nil
}

// GetPortfolio returns a portfolio. When its metrics are older than the
// staleness threshold the share prices are refreshed first; a failed
// refresh is logged and the stored portfolio returned.
func (s *Service) GetPortfolio(ctx context.Context, id int64) (*Portfolio, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if !p.IsStale(s.now(), s.cfg.StalenessThreshold) {
		return p, nil
	}

	s.log.Debug().Int64("portfolio_id", id).Time("last_update", p.LastUpdate).Msg("Portfolio is stale, refreshing prices")

	refreshed, err := s.refresh(ctx, p)
	if err != nil {
		s.log.Warn().Err(err).Int64("portfolio_id", id).Msg("Read-time price refresh failed, returning stored portfolio")
		// p may hold partially applied state
		return s.load(ctx, id)
	}
	return refreshed, nil
}

// ListPortfolios returns every portfolio without refreshing
func (s *Service) ListPortfolios(ctx context.Context) ([]Portfolio, error) {
	return s.repo.GetAll(ctx)
}

// DeletePortfolio removes a portfolio and its positions
func (s *Service) DeletePortfolio(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: %d", domain.ErrPortfolioNotFound, id)
	}
	return nil
}

// UpdatePositions overwrites shares and average price of positions whose
// symbol matches a patch exactly. Patches for symbols the
// portfolio does not hold are ignored. One invalid patch rejects the batch
// before anything is written.
func (s *Service) UpdatePositions(ctx context.Context, id int64, patches []PositionInput) (*Portfolio, error) {
	if err := ValidatePositionInputs(patches); err != nil {
		return nil, err
	}

	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	changed := false
	for _, patch := range normalizePositions(patches) {
		for i := range p.Tickers {
			if p.Tickers[i].TickerSymbol != patch.Symbol {
				continue
			}
			p.Tickers[i].NumberOfShares = patch.NumberOfShares
			p.Tickers[i].AverageSharePrice = patch.AverageSharePrice
			p.Tickers[i].LastUpdate = now
			changed = true
		}
	}

	if !changed {
		return p, nil
	}
	if err := s.recomputeAndSave(ctx, p, now); err != nil {
		return nil, err
	}
	return p, nil
}

// AddPositions appends new positions. Every position is validated and every
// symbol resolved before anything is written.
func (s *Service) AddPositions(ctx context.Context, id int64, positions []PositionInput) (*Portfolio, error) {
	if err := ValidatePositionInputs(positions); err != nil {
		return nil, err
	}

	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	positions = normalizePositions(positions)
	snapshot, err := s.calculator.Snapshot(ctx, positions)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for _, pos := range positions {
		p.Tickers = append(p.Tickers, newPosition(pos, snapshot[pos.Symbol], now))
	}

	if err := s.recomputeAndSave(ctx, p, now); err != nil {
		return nil, err
	}
	return p, nil
}

// RemovePositions drops positions whose symbol matches any of symbols after
// upper-casing both sides. Unknown symbols are ignored.
func (s *Service) RemovePositions(ctx context.Context, id int64, symbols []string) (*Portfolio, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	remove := make(map[string]bool)
	for _, sym := range utils.NormalizeSymbols(symbols) {
		remove[sym] = true
	}

	kept := make([]PortfolioTicker, 0, len(p.Tickers))
	for _, pos := range p.Tickers {
		if remove[strings.ToUpper(pos.TickerSymbol)] {
			continue
		}
		kept = append(kept, pos)
	}

	if len(kept) == len(p.Tickers) {
		return p, nil
	}

	p.Tickers = kept
	if err := s.recomputeAndSave(ctx, p, s.now()); err != nil {
		return nil, err
	}
	return p, nil
}

// RefreshSharePrices re-fetches the current price of every distinct ticker
// the portfolio references and recomputes its metrics. A failed fetch
// aborts with domain.ErrPriceRefreshFailed; prices already written stay.
// The refresh runs to completion even if the caller goes away.
func (s *Service) RefreshSharePrices(ctx context.Context, id int64) (*Portfolio, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, p)
}

func (s *Service) refresh(ctx context.Context, p *Portfolio) (*Portfolio, error) {
	defer utils.OperationTimer("portfolio_price_refresh", 2*time.Minute, s.log)()

	distinct := make([]PortfolioTicker, 0, len(p.Tickers))
	seen := make(map[int64]bool, len(p.Tickers))
	for _, pos := range p.Tickers {
		if !seen[pos.TickerID] {
			seen[pos.TickerID] = true
			distinct = append(distinct, pos)
		}
	}

	ctx, cancel := s.refreshContext(ctx, len(distinct))
	defer cancel()

	symbols := make(map[int64]string, len(distinct))
	for _, pos := range distinct {
		ticker, err := s.tickers.GetByID(ctx, pos.TickerID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrPriceRefreshFailed, err)
		}
		if ticker == nil {
			return nil, fmt.Errorf("%w: %w: %s", domain.ErrPriceRefreshFailed, domain.ErrTickerNotFound, pos.TickerSymbol)
		}

		if err := s.throttle.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrPriceRefreshFailed, err)
		}

		price, err := s.prices.GetCurrentPrice(ctx, ticker.Symbol)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrPriceRefreshFailed, ticker.Symbol, err)
		}

		if err := s.tickers.UpdatePrice(ctx, ticker.ID, price, s.now()); err != nil {
			return nil, fmt.Errorf("failed to store price for %s: %w", ticker.Symbol, err)
		}
		symbols[ticker.ID] = ticker.Symbol

		s.log.Debug().Str("symbol", ticker.Symbol).Str("price", price.String()).Msg("Share price refreshed")
	}

	// The ticker's symbol is authoritative; keep the position copies in sync
	for i := range p.Tickers {
		if sym, ok := symbols[p.Tickers[i].TickerID]; ok {
			p.Tickers[i].TickerSymbol = sym
		}
	}

	if err := s.recomputeAndSave(ctx, p, s.now()); err != nil {
		return nil, err
	}

	s.log.Info().Int64("portfolio_id", p.ID).Int("tickers", len(distinct)).Msg("Portfolio prices refreshed")
	return p, nil
}

// refreshContext detaches a refresh from the caller's deadline and bounds it
// by the throttle pacing instead, so the budget grows with the ticker count.
// Request values such as the request id are kept.
func (s *Service) refreshContext(ctx context.Context, tickers int) (context.Context, context.CancelFunc) {
	budget := time.Duration(tickers)*s.cfg.PriceRefreshDelay + s.cfg.RefreshSlack
	return context.WithTimeout(context.WithoutCancel(ctx), budget)
}

func (s *Service) load(ctx context.Context, id int64) (*Portfolio, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrPortfolioNotFound, id)
	}
	return p, nil
}

func (s *Service) recomputeAndSave(ctx context.Context, p *Portfolio, now time.Time) error {
	metrics, _, err := s.calculator.Compute(ctx, p.Positions())
	if err != nil {
		return err
	}
	p.ApplyMetrics(metrics, now)

	if err := s.repo.Save(ctx, p); err != nil {
		return fmt.Errorf("failed to save portfolio %d: %w", p.ID, err)
	}
	return nil
}

func newPosition(in PositionInput, ticker universe.Ticker, now time.Time) PortfolioTicker {
	return PortfolioTicker{
		TickerID:          ticker.ID,
		TickerSymbol:      ticker.Symbol,
		NumberOfShares:    in.NumberOfShares,
		AverageSharePrice: in.AverageSharePrice,
		LastUpdate:        now,
	}
}
