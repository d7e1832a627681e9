package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// MarketDataProvider defines the market-data operations the tracker consumes.
// It hides which external provider serves which call: listings come from the
// listing-status CSV feed, dividend metrics and prices from the metrics/quote feeds.
type MarketDataProvider interface {
	// ListActiveListings returns every active tradable symbol, in feed order
	ListActiveListings(ctx context.Context) ([]Listing, error)

	// GetDividendPerShare returns the annual dividend per share (0 when unknown)
	GetDividendPerShare(ctx context.Context, symbol string) (decimal.Decimal, error)

	// GetDividendYield returns the indicated annual dividend yield (0 when unknown)
	GetDividendYield(ctx context.Context, symbol string) (decimal.Decimal, error)

	// GetCurrentPrice returns the latest traded price
	GetCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// PriceFetcher is the subset of MarketDataProvider needed to refresh prices
type PriceFetcher interface {
	GetCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Throttle gates calls to an external provider.
// Wait blocks until the next call may proceed or ctx is done.
type Throttle interface {
	Wait(ctx context.Context) error
}
