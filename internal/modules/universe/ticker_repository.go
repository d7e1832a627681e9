package universe

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// tickerColumns is the column list for the tickers table.
// Column order must match scanTicker.
const tickerColumns = `id, symbol, company_name, share_price, dividend_yield, dividend_per_share, last_updated`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// TickerRepository handles ticker database operations
type TickerRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTickerRepository creates a new ticker repository
func NewTickerRepository(db *sql.DB, log zerolog.Logger) *TickerRepository {
	return &TickerRepository{
		db:  db,
		log: log.With().Str("repo", "ticker").Logger(),
	}
}

// Create inserts a new ticker and returns its generated id.
// A duplicate symbol fails with the store's uniqueness error.
func (r *TickerRepository) Create(ctx context.Context, ticker Ticker) (int64, error) {
	ticker.Symbol = strings.TrimSpace(ticker.Symbol)
	if ticker.Symbol == "" {
		return 0, fmt.Errorf("symbol is required for ticker creation")
	}
	if ticker.LastUpdated.IsZero() {
		ticker.LastUpdated = time.Now()
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO tickers (symbol, company_name, share_price, dividend_yield, dividend_per_share, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		ticker.Symbol,
		ticker.CompanyName,
		ticker.SharePrice.String(),
		ticker.DividendYield.String(),
		ticker.DividendPerShare.String(),
		ticker.LastUpdated.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert ticker %s: %w", ticker.Symbol, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get ticker id: %w", err)
	}

	r.log.Debug().Str("symbol", ticker.Symbol).Int64("id", id).Msg("Ticker created")
	return id, nil
}

// GetBySymbol returns a ticker by exact symbol match, or nil if absent
func (r *TickerRepository) GetBySymbol(ctx context.Context, symbol string) (*Ticker, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+tickerColumns+" FROM tickers WHERE symbol = ?", symbol)

	ticker, err := scanTicker(row)
	if err == sql.ErrNoRows {
		return nil, nil // Ticker not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticker by symbol: %w", err)
	}
	return &ticker, nil
}

// GetByID returns a ticker by id, or nil if absent
func (r *TickerRepository) GetByID(ctx context.Context, id int64) (*Ticker, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+tickerColumns+" FROM tickers WHERE id = ?", id)

	ticker, err := scanTicker(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticker by id: %w", err)
	}
	return &ticker, nil
}

// GetBySymbols returns the tickers matching any of symbols, keyed by symbol.
// Symbols with no ticker are absent from the map.
func (r *TickerRepository) GetBySymbols(ctx context.Context, symbols []string) (map[string]Ticker, error) {
	result := make(map[string]Ticker, len(symbols))
	if len(symbols) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(symbols))
	args := make([]interface{}, len(symbols))
	for i, s := range symbols {
		placeholders[i] = "?"
		args[i] = s
	}

	query := "SELECT " + tickerColumns + " FROM tickers WHERE symbol IN (" + strings.Join(placeholders, ",") + ")"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickers by symbols: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		ticker, err := scanTicker(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		result[ticker.Symbol] = ticker
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickers: %w", err)
	}

	return result, nil
}

// List returns symbol and company name of every ticker, ordered by symbol
func (r *TickerRepository) List(ctx context.Context) ([]TickerSummary, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT symbol, company_name FROM tickers ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to list tickers: %w", err)
	}
	defer rows.Close()

	summaries := make([]TickerSummary, 0)
	for rows.Next() {
		var s TickerSummary
		if err := rows.Scan(&s.Symbol, &s.CompanyName); err != nil {
			return nil, fmt.Errorf("failed to scan ticker summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ticker summaries: %w", err)
	}

	return summaries, nil
}

// UpdatePrice overwrites the stored share price of one ticker
func (r *TickerRepository) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE tickers SET share_price = ?, last_updated = ? WHERE id = ?",
		price.String(), at.Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update ticker price: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("ticker %d not found", id)
	}

	return nil
}

// Count returns the number of stored tickers
func (r *TickerRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tickers").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tickers: %w", err)
	}
	return count, nil
}

func scanTicker(row rowScanner) (Ticker, error) {
	var ticker Ticker
	var lastUpdated int64

	err := row.Scan(
		&ticker.ID,
		&ticker.Symbol,
		&ticker.CompanyName,
		&ticker.SharePrice, // decimal.Decimal implements sql.Scanner
		&ticker.DividendYield,
		&ticker.DividendPerShare,
		&lastUpdated,
	)
	if err != nil {
		return ticker, err
	}

	ticker.LastUpdated = time.Unix(lastUpdated, 0).UTC()
	return ticker, nil
}
