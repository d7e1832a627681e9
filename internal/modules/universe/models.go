// Package universe provides the ticker universe: storage, listing and ingestion
// of tradable securities from the market-data provider.
package universe

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticker is a tradable security with its latest market data.
// Symbol is unique within the store.
type Ticker struct {
	ID               int64           `json:"id"`
	Symbol           string          `json:"symbol"`
	CompanyName      string          `json:"companyName"`
	SharePrice       decimal.Decimal `json:"sharePrice"`
	DividendYield    decimal.Decimal `json:"dividendYield"`    // Fraction as reported by the provider
	DividendPerShare decimal.Decimal `json:"dividendPerShare"` // Annual, currency amount
	LastUpdated      time.Time       `json:"lastUpdated"`
}

// TickerSummary is the public listing projection of a Ticker
type TickerSummary struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"companyName"`
}

// FailedSymbol records one symbol the ingestion run could not store
type FailedSymbol struct {
	Symbol      string `json:"symbol"`
	Error       string `json:"error"`
	RateLimited bool   `json:"rateLimited,omitempty"` // Provider answered 429
}

// IngestionReport summarises one ingestion run
type IngestionReport struct {
	RunID      string         `json:"runId"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Listed     int            `json:"listed"`   // Active rows in the listing feed
	Inserted   int            `json:"inserted"` // New tickers stored
	Skipped    int            `json:"skipped"`  // Symbols already present
	Failed     []FailedSymbol `json:"failed"`
}

// Duration returns how long the run took
func (r IngestionReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RateLimitedCount returns how many failures were provider rate limits
func (r IngestionReport) RateLimitedCount() int {
	n := 0
	for _, f := range r.Failed {
		if f.RateLimited {
			n++
		}
	}
	return n
}
