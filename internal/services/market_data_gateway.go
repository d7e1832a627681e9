/**
 * Package services provides MarketDataGateway, the single entry point for market data.
 *
 * MarketDataGateway hides which external provider answers which question:
 * - Active listings from the Alpha Vantage listing-status CSV feed
 * - Dividend per share and dividend yield from Finnhub basic financials
 * - Current price from the Finnhub quote endpoint
 *
 * Callers depend on domain.MarketDataProvider, never on the clients directly.
 */
package services

import (
	"context"
	"strings"

	"github.com/aristath/portfolio-tracker/internal/clients/finnhub"
	"github.com/aristath/portfolio-tracker/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ListingSource provides the listing-status feed
type ListingSource interface {
	GetListingStatus(ctx context.Context) ([]domain.Listing, error)
}

// MetricsSource provides per-symbol metrics and quotes
type MetricsSource interface {
	GetMetric(ctx context.Context, symbol, name string) (decimal.Decimal, error)
	GetQuote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

/**
 * MarketDataGateway composes the listing and metrics providers into one
 * domain.MarketDataProvider.
 */
type MarketDataGateway struct {
	listings ListingSource
	metrics  MetricsSource
	log      zerolog.Logger
}

/**
 * NewMarketDataGateway creates a new MarketDataGateway.
 *
 * Parameters:
 *   - listings: Listing-status feed (Alpha Vantage client)
 *   - metrics: Metrics and quote feed (Finnhub client)
 *   - log: Structured logger
 */
func NewMarketDataGateway(listings ListingSource, metrics MetricsSource, log zerolog.Logger) *MarketDataGateway {
	return &MarketDataGateway{
		listings: listings,
		metrics:  metrics,
		log:      log.With().Str("service", "market_data_gateway").Logger(),
	}
}

// ListActiveListings returns every active listing in feed order
func (g *MarketDataGateway) ListActiveListings(ctx context.Context) ([]domain.Listing, error) {
	return g.listings.GetListingStatus(ctx)
}

// GetDividendPerShare returns the annual dividend per share for symbol
func (g *MarketDataGateway) GetDividendPerShare(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return g.metrics.GetMetric(ctx, normalizeSymbol(symbol), finnhub.MetricDividendPerShareAnnual)
}

// GetDividendYield returns the indicated annual dividend yield for symbol
func (g *MarketDataGateway) GetDividendYield(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return g.metrics.GetMetric(ctx, normalizeSymbol(symbol), finnhub.MetricDividendYieldIndicatedAnnual)
}

// GetCurrentPrice returns the latest price for symbol
func (g *MarketDataGateway) GetCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	price, err := g.metrics.GetQuote(ctx, normalizeSymbol(symbol))
	if err != nil {
		return decimal.Zero, err
	}
	g.log.Debug().Str("symbol", symbol).Str("price", price.String()).Msg("Fetched current price")
	return price, nil
}

func normalizeSymbol(symbol string) string {
	return strings.TrimSpace(symbol)
}
