package portfolio

import (
	"context"
	"fmt"

	"github.com/aristath/portfolio-tracker/internal/domain"
	"github.com/aristath/portfolio-tracker/internal/modules/universe"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TickerSnapshot maps symbol -> ticker as read from the store
type TickerSnapshot map[string]universe.Ticker

// TickerLookup resolves symbols against the ticker store
type TickerLookup interface {
	GetBySymbols(ctx context.Context, symbols []string) (map[string]universe.Ticker, error)
}

// Calculator computes portfolio metrics against the current ticker store
type Calculator struct {
	tickers TickerLookup
	log     zerolog.Logger
}

// NewCalculator creates a new portfolio calculator
func NewCalculator(tickers TickerLookup, log zerolog.Logger) *Calculator {
	return &Calculator{
		tickers: tickers,
		log:     log.With().Str("service", "portfolio_calculator").Logger(),
	}
}

// Snapshot loads the tickers referenced by positions. Every symbol must
// resolve, otherwise ErrTickerNotFound is returned.
func (c *Calculator) Snapshot(ctx context.Context, positions []PositionInput) (TickerSnapshot, error) {
	symbols := make([]string, 0, len(positions))
	seen := make(map[string]bool, len(positions))
	for _, p := range positions {
		if !seen[p.Symbol] {
			seen[p.Symbol] = true
			symbols = append(symbols, p.Symbol)
		}
	}

	found, err := c.tickers.GetBySymbols(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to load tickers: %w", err)
	}

	for _, s := range symbols {
		if _, ok := found[s]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrTickerNotFound, s)
		}
	}

	return TickerSnapshot(found), nil
}

// Compute loads the ticker snapshot for positions and computes all metrics
func (c *Calculator) Compute(ctx context.Context, positions []PositionInput) (Metrics, TickerSnapshot, error) {
	if len(positions) == 0 {
		return ZeroMetrics(), TickerSnapshot{}, nil
	}

	snapshot, err := c.Snapshot(ctx, positions)
	if err != nil {
		return Metrics{}, nil, err
	}

	metrics, err := ComputeMetrics(positions, snapshot)
	if err != nil {
		return Metrics{}, nil, err
	}

	c.log.Debug().
		Int("positions", len(positions)).
		Str("total_value", metrics.TotalValue.String()).
		Str("result", metrics.Result.String()).
		Msg("Computed portfolio metrics")

	return metrics, snapshot, nil
}

// ZeroMetrics returns all-zero metrics (a portfolio with no positions)
func ZeroMetrics() Metrics {
	return Metrics{
		TotalValue:             decimal.Zero,
		ExpectedDividendAmount: decimal.Zero,
		DividendYield:          decimal.Zero,
		Result:                 decimal.Zero,
	}
}

// ComputeMetrics computes the four aggregates in one pass. The result is
// identical to calling each aggregate function separately. An empty position
// list yields ZeroMetrics.
func ComputeMetrics(positions []PositionInput, tickers TickerSnapshot) (Metrics, error) {
	if len(positions) == 0 {
		return ZeroMetrics(), nil
	}

	total := decimal.Zero
	dividends := decimal.Zero
	yieldSum := decimal.Zero
	result := decimal.Zero

	for _, p := range positions {
		ticker, err := tickers.lookup(p.Symbol)
		if err != nil {
			return Metrics{}, err
		}
		shares := decimal.NewFromInt(p.NumberOfShares)

		total = total.Add(p.AverageSharePrice.Mul(shares))
		dividends = dividends.Add(ticker.DividendPerShare.Mul(shares))
		yieldSum = yieldSum.Add(ticker.DividendYield)
		result = result.Add(ticker.SharePrice.Sub(p.AverageSharePrice).Mul(shares))
	}

	return Metrics{
		TotalValue:             total,
		ExpectedDividendAmount: dividends,
		DividendYield:          yieldSum.Div(decimal.NewFromInt(int64(len(positions)))),
		Result:                 result,
	}, nil
}

// TotalValue is the cost-basis value: sum of average paid price x shares
func TotalValue(positions []PositionInput) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(p.AverageSharePrice.Mul(decimal.NewFromInt(p.NumberOfShares)))
	}
	return total
}

// ExpectedDividendAmount is the sum of dividend per share x shares
func ExpectedDividendAmount(positions []PositionInput, tickers TickerSnapshot) (decimal.Decimal, error) {
	amount := decimal.Zero
	for _, p := range positions {
		ticker, err := tickers.lookup(p.Symbol)
		if err != nil {
			return decimal.Zero, err
		}
		amount = amount.Add(ticker.DividendPerShare.Mul(decimal.NewFromInt(p.NumberOfShares)))
	}
	return amount, nil
}

// DividendYield is the unweighted mean of the positions' ticker yields.
// An empty list is a validation error.
func DividendYield(positions []PositionInput, tickers TickerSnapshot) (decimal.Decimal, error) {
	if len(positions) == 0 {
		return decimal.Zero, domain.NewValidationError("tickers", "must contain at least one position")
	}

	sum := decimal.Zero
	for _, p := range positions {
		ticker, err := tickers.lookup(p.Symbol)
		if err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(ticker.DividendYield)
	}
	return sum.Div(decimal.NewFromInt(int64(len(positions)))), nil
}

// Result is the unrealized profit/loss: sum of (current price - paid) x shares
func Result(positions []PositionInput, tickers TickerSnapshot) (decimal.Decimal, error) {
	result := decimal.Zero
	for _, p := range positions {
		ticker, err := tickers.lookup(p.Symbol)
		if err != nil {
			return decimal.Zero, err
		}
		result = result.Add(ticker.SharePrice.Sub(p.AverageSharePrice).Mul(decimal.NewFromInt(p.NumberOfShares)))
	}
	return result, nil
}

func (s TickerSnapshot) lookup(symbol string) (universe.Ticker, error) {
	ticker, ok := s[symbol]
	if !ok {
		return universe.Ticker{}, fmt.Errorf("%w: %s", domain.ErrTickerNotFound, symbol)
	}
	return ticker, nil
}
