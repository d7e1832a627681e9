package portfolio

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/portfolio-tracker/internal/database"
	"github.com/aristath/portfolio-tracker/internal/domain"
	"github.com/rs/zerolog"
)

const portfolioColumns = `id, name, total_value, expected_dividend_amount, dividend_yield, result, last_updated`

const positionColumns = `id, portfolio_id, ticker_id, ticker_symbol, number_of_shares, average_share_price, last_updated`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// PortfolioRepository handles portfolio and position database operations.
// A portfolio and its positions are always written in one transaction.
type PortfolioRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *sql.DB, log zerolog.Logger) *PortfolioRepository {
	return &PortfolioRepository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// Create inserts the portfolio and its positions, assigning generated ids
// to p and every position.
func (r *PortfolioRepository) Create(ctx context.Context, p *Portfolio) error {
	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO portfolios (name, total_value, expected_dividend_amount, dividend_yield, result, last_updated)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			p.Name,
			p.TotalValue.String(),
			p.ExpectedDividendAmount.String(),
			p.DividendYield.String(),
			p.Result.String(),
			p.LastUpdate.Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert portfolio: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get portfolio id: %w", err)
		}
		p.ID = id

		for i := range p.Tickers {
			p.Tickers[i].PortfolioID = id
			p.Tickers[i].ID = 0
			if err := insertPosition(ctx, tx, &p.Tickers[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info().Int64("portfolio_id", p.ID).Str("name", p.Name).Int("positions", len(p.Tickers)).Msg("Portfolio created")
	return nil
}

// GetByID returns a portfolio with its positions ordered by id, or nil if absent
func (r *PortfolioRepository) GetByID(ctx context.Context, id int64) (*Portfolio, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+portfolioColumns+" FROM portfolios WHERE id = ?", id)

	p, err := scanPortfolio(row)
	if err == sql.ErrNoRows {
		return nil, nil // Portfolio not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	positions, err := r.positionsFor(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	p.Tickers = positions[id]
	if p.Tickers == nil {
		p.Tickers = make([]PortfolioTicker, 0)
	}

	return &p, nil
}

// GetAll returns every portfolio with its positions, ordered by id
func (r *PortfolioRepository) GetAll(ctx context.Context) ([]Portfolio, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+portfolioColumns+" FROM portfolios ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	portfolios := make([]Portfolio, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return portfolios, nil
	}

	positions, err := r.positionsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range portfolios {
		portfolios[i].Tickers = positions[portfolios[i].ID]
		if portfolios[i].Tickers == nil {
			portfolios[i].Tickers = make([]PortfolioTicker, 0)
		}
	}

	return portfolios, nil
}

// Save updates the portfolio row and replaces its position set in one
// transaction. Positions with an id keep it; positions without one are
// inserted and receive one; stored positions missing from p are deleted.
// Returns domain.ErrPortfolioNotFound if the portfolio row does not exist.
func (r *PortfolioRepository) Save(ctx context.Context, p *Portfolio) error {
	return database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE portfolios
			SET name = ?, total_value = ?, expected_dividend_amount = ?, dividend_yield = ?, result = ?, last_updated = ?
			WHERE id = ?
		`,
			p.Name,
			p.TotalValue.String(),
			p.ExpectedDividendAmount.String(),
			p.DividendYield.String(),
			p.Result.String(),
			p.LastUpdate.Unix(),
			p.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update portfolio: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			return domain.ErrPortfolioNotFound
		}

		kept := make([]interface{}, 0, len(p.Tickers)+1)
		kept = append(kept, p.ID)
		for _, t := range p.Tickers {
			if t.ID > 0 {
				kept = append(kept, t.ID)
			}
		}

		deleteQuery := "DELETE FROM portfolio_tickers WHERE portfolio_id = ?"
		if len(kept) > 1 {
			deleteQuery += " AND id NOT IN (" + strings.TrimSuffix(strings.Repeat("?,", len(kept)-1), ",") + ")"
		}
		if _, err := tx.ExecContext(ctx, deleteQuery, kept...); err != nil {
			return fmt.Errorf("failed to delete removed positions: %w", err)
		}

		for i := range p.Tickers {
			pos := &p.Tickers[i]
			pos.PortfolioID = p.ID
			if pos.ID > 0 {
				if err := updatePosition(ctx, tx, pos); err != nil {
					return err
				}
				continue
			}
			if err := insertPosition(ctx, tx, pos); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a portfolio and its positions. Returns false if the
// portfolio did not exist.
func (r *PortfolioRepository) Delete(ctx context.Context, id int64) (bool, error) {
	deleted := false
	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		// Positions first; the FK cascade covers the same ground
		if _, err := tx.ExecContext(ctx, "DELETE FROM portfolio_tickers WHERE portfolio_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete positions: %w", err)
		}

		result, err := tx.ExecContext(ctx, "DELETE FROM portfolios WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete portfolio: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		deleted = affected > 0
		return nil
	})
	if err != nil {
		return false, err
	}

	if deleted {
		r.log.Info().Int64("portfolio_id", id).Msg("Portfolio deleted")
	}
	return deleted, nil
}

// Count returns the number of stored portfolios
func (r *PortfolioRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM portfolios").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count portfolios: %w", err)
	}
	return count, nil
}

// positionsFor loads the positions of the given portfolios keyed by portfolio id
func (r *PortfolioRepository) positionsFor(ctx context.Context, portfolioIDs []int64) (map[int64][]PortfolioTicker, error) {
	args := make([]interface{}, len(portfolioIDs))
	for i, id := range portfolioIDs {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(portfolioIDs)), ",")

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+positionColumns+" FROM portfolio_tickers WHERE portfolio_id IN ("+placeholders+") ORDER BY id",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	result := make(map[int64][]PortfolioTicker, len(portfolioIDs))
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		result[pos.PortfolioID] = append(result[pos.PortfolioID], pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return result, nil
}

func insertPosition(ctx context.Context, tx *sql.Tx, pos *PortfolioTicker) error {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO portfolio_tickers (portfolio_id, ticker_id, ticker_symbol, number_of_shares, average_share_price, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		pos.PortfolioID,
		pos.TickerID,
		pos.TickerSymbol,
		pos.NumberOfShares,
		pos.AverageSharePrice.String(),
		pos.LastUpdate.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert position %s: %w", pos.TickerSymbol, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get position id: %w", err)
	}
	pos.ID = id
	return nil
}

func updatePosition(ctx context.Context, tx *sql.Tx, pos *PortfolioTicker) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE portfolio_tickers
		SET ticker_id = ?, ticker_symbol = ?, number_of_shares = ?, average_share_price = ?, last_updated = ?
		WHERE id = ? AND portfolio_id = ?
	`,
		pos.TickerID,
		pos.TickerSymbol,
		pos.NumberOfShares,
		pos.AverageSharePrice.String(),
		pos.LastUpdate.Unix(),
		pos.ID,
		pos.PortfolioID,
	)
	if err != nil {
		return fmt.Errorf("failed to update position %s: %w", pos.TickerSymbol, err)
	}
	return nil
}

func scanPortfolio(row rowScanner) (Portfolio, error) {
	var p Portfolio
	var lastUpdated int64

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.TotalValue,
		&p.ExpectedDividendAmount,
		&p.DividendYield,
		&p.Result,
		&lastUpdated,
	)
	if err != nil {
		return p, err
	}

	p.LastUpdate = time.Unix(lastUpdated, 0).UTC()
	return p, nil
}

func scanPosition(row rowScanner) (PortfolioTicker, error) {
	var pos PortfolioTicker
	var lastUpdated int64

	err := row.Scan(
		&pos.ID,
		&pos.PortfolioID,
		&pos.TickerID,
		&pos.TickerSymbol,
		&pos.NumberOfShares,
		&pos.AverageSharePrice,
		&lastUpdated,
	)
	if err != nil {
		return pos, err
	}

	pos.LastUpdate = time.Unix(lastUpdated, 0).UTC()
	return pos, nil
}
