// Package portfolio provides portfolio storage, aggregation and mutation.
package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio is a named collection of positions with derived aggregate metrics.
// The four metrics always reflect the stored position list.
type Portfolio struct {
	ID                     int64             `json:"id"`
	Name                   string            `json:"name"`
	TotalValue             decimal.Decimal   `json:"totalValue"`             // Cost basis
	ExpectedDividendAmount decimal.Decimal   `json:"expectedDividendAmount"` // Annual
	DividendYield          decimal.Decimal   `json:"dividendYield"`          // Unweighted mean of ticker yields
	Result                 decimal.Decimal   `json:"result"`                 // Unrealized profit/loss
	LastUpdate             time.Time         `json:"lastUpdate"`
	Tickers                []PortfolioTicker `json:"tickers"`
}

// PortfolioTicker is one position line of a portfolio
type PortfolioTicker struct {
	ID                int64           `json:"id"`
	PortfolioID       int64           `json:"portfolioId"`
	TickerID          int64           `json:"tickerId"`
	TickerSymbol      string          `json:"tickerSymbol"` // Copy of the ticker's symbol
	NumberOfShares    int64           `json:"numberOfShares"`
	AverageSharePrice decimal.Decimal `json:"averageSharePrice"`
	LastUpdate        time.Time       `json:"lastUpdate"`
}

// PositionInput is a position as supplied by a caller (create, add, update)
type PositionInput struct {
	Symbol            string          `json:"symbol"`
	NumberOfShares    int64           `json:"numberOfShares"`
	AverageSharePrice decimal.Decimal `json:"averageSharePrice"`
}

// PortfolioInput is the create-portfolio payload
type PortfolioInput struct {
	Name    string          `json:"name"`
	Tickers []PositionInput `json:"tickers"`
}

// Metrics holds the four derived portfolio figures
type Metrics struct {
	TotalValue             decimal.Decimal `json:"totalValue"`
	ExpectedDividendAmount decimal.Decimal `json:"expectedDividendAmount"`
	DividendYield          decimal.Decimal `json:"dividendYield"`
	Result                 decimal.Decimal `json:"result"`
}

// Positions returns the portfolio's positions as calculator inputs
func (p *Portfolio) Positions() []PositionInput {
	positions := make([]PositionInput, len(p.Tickers))
	for i, t := range p.Tickers {
		positions[i] = PositionInput{
			Symbol:            t.TickerSymbol,
			NumberOfShares:    t.NumberOfShares,
			AverageSharePrice: t.AverageSharePrice,
		}
	}
	return positions
}

// ApplyMetrics copies m onto the portfolio and stamps LastUpdate
func (p *Portfolio) ApplyMetrics(m Metrics, at time.Time) {
	p.TotalValue = m.TotalValue
	p.ExpectedDividendAmount = m.ExpectedDividendAmount
	p.DividendYield = m.DividendYield
	p.Result = m.Result
	p.LastUpdate = at
}

// IsStale reports whether the metrics are older than threshold at now
func (p *Portfolio) IsStale(now time.Time, threshold time.Duration) bool {
	return now.Sub(p.LastUpdate) > threshold
}
