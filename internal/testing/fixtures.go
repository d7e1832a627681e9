package testing

import (
	"database/sql"
	"testing"
	"time"
)

// TickerRow is a raw tickers row used to seed test databases.
// Amounts are decimal strings, as stored.
type TickerRow struct {
	Symbol           string
	CompanyName      string
	SharePrice       string
	DividendYield    string
	DividendPerShare string
	LastUpdated      time.Time
}

// NewTickerFixtures returns tickers matching the worked examples used across
// the aggregation tests:
//   - A: yield 0.05, dividend/share 15.21, price 110
//   - B: yield 0.10, dividend/share 6.69, price 210
//   - KO: a third ticker for add/remove scenarios
func NewTickerFixtures() []TickerRow {
	now := time.Now().UTC().Truncate(time.Second)
	return []TickerRow{
		{
			Symbol:           "A",
			CompanyName:      "Alpha Holdings",
			SharePrice:       "110",
			DividendYield:    "0.05",
			DividendPerShare: "15.21",
			LastUpdated:      now,
		},
		{
			Symbol:           "B",
			CompanyName:      "Beta Industries",
			SharePrice:       "210",
			DividendYield:    "0.10",
			DividendPerShare: "6.69",
			LastUpdated:      now,
		},
		{
			Symbol:           "KO",
			CompanyName:      "Coca-Cola Co",
			SharePrice:       "61.20",
			DividendYield:    "0.031",
			DividendPerShare: "1.94",
			LastUpdated:      now,
		},
	}
}

// SeedTickers inserts the given rows into the tickers table and returns the
// generated ids keyed by symbol.
func SeedTickers(t *testing.T, db *sql.DB, rows ...TickerRow) map[string]int64 {
	t.Helper()

	ids := make(map[string]int64, len(rows))
	for _, row := range rows {
		lastUpdated := row.LastUpdated
		if lastUpdated.IsZero() {
			lastUpdated = time.Now()
		}
		res, err := db.Exec(`
			INSERT INTO tickers (symbol, company_name, share_price, dividend_yield, dividend_per_share, last_updated)
			VALUES (?, ?, ?, ?, ?, ?)
		`, row.Symbol, row.CompanyName, orZero(row.SharePrice), orZero(row.DividendYield), orZero(row.DividendPerShare), lastUpdated.Unix())
		if err != nil {
			t.Fatalf("Failed to seed ticker %s: %v", row.Symbol, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			t.Fatalf("Failed to read id of ticker %s: %v", row.Symbol, err)
		}
		ids[row.Symbol] = id
	}
	return ids
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
