package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{
		Path: filepath.Join(t.TempDir(), "tracker.db"),
		Name: "tracker",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew_DefaultsToModerncDriver(t *testing.T) {
	db := newTestDB(t)
	assert.Equal(t, DriverModernc, db.Driver())
	assert.Equal(t, "tracker", db.Name())
	assert.True(t, filepath.IsAbs(db.Path()))
}

func TestNew_RejectsUnknownDriver(t *testing.T) {
	_, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db"), Name: "tracker", Driver: "postgres"})
	assert.Error(t, err)
}

func TestBuildConnectionString(t *testing.T) {
	modernc := buildConnectionString(DriverModernc, "/data/tracker.db")
	assert.Equal(t, "/data/tracker.db?", modernc[:len("/data/tracker.db?")])
	assert.Contains(t, modernc, "_pragma=foreign_keys(1)")
	assert.Contains(t, modernc, "_pragma=journal_mode(WAL)")

	mattn := buildConnectionString(DriverMattn, "/data/tracker.db")
	assert.Contains(t, mattn, "file:/data/tracker.db?")
	assert.Contains(t, mattn, "_foreign_keys=on")
	assert.NotContains(t, mattn, "_pragma")

	withQuery := buildConnectionString(DriverModernc, "file:memdb?mode=memory")
	assert.Contains(t, withQuery, "file:memdb?mode=memory&_pragma")
}

func TestMigrate_CreatesTables(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate())

	for _, table := range []string{"tickers", "portfolios", "portfolio_tickers"} {
		var name string
		err := db.Conn().QueryRow(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}

	// Re-running is a no-op
	require.NoError(t, db.Migrate())
}

func TestMigrate_UnknownSchema(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "other.db"), Name: "other"})
	require.NoError(t, err)
	defer db.Close()

	assert.Error(t, db.Migrate())
}

func TestMigrate_ForeignKeyCascade(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate())

	_, err := db.Conn().Exec(`INSERT INTO portfolios (id, name, last_updated) VALUES (1, 'p', 0)`)
	require.NoError(t, err)
	_, err = db.Conn().Exec(`INSERT INTO portfolio_tickers
		(portfolio_id, ticker_id, ticker_symbol, number_of_shares, average_share_price, last_updated)
		VALUES (1, 1, 'AAPL', 1, '10', 0)`)
	require.NoError(t, err)

	_, err = db.Conn().Exec(`DELETE FROM portfolios WHERE id = 1`)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM portfolio_tickers`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestWithTransaction(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate())
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		err := WithTransaction(ctx, db.Conn(), func(tx *sql.Tx) error {
			_, err := tx.Exec(`INSERT INTO portfolios (name, last_updated) VALUES ('committed', 0)`)
			return err
		})
		require.NoError(t, err)

		var count int
		require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM portfolios WHERE name = 'committed'`).Scan(&count))
		assert.Equal(t, 1, count)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := WithTransaction(ctx, db.Conn(), func(tx *sql.Tx) error {
			if _, err := tx.Exec(`INSERT INTO portfolios (name, last_updated) VALUES ('rolled back', 0)`); err != nil {
				return err
			}
			return boom
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)

		var count int
		require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM portfolios WHERE name = 'rolled back'`).Scan(&count))
		assert.Equal(t, 0, count)
	})

	t.Run("recovers from panic", func(t *testing.T) {
		err := WithTransaction(ctx, db.Conn(), func(tx *sql.Tx) error {
			panic("unexpected")
		})
		assert.Error(t, err)
	})

	t.Run("nil connection", func(t *testing.T) {
		assert.Error(t, WithTransaction(ctx, nil, func(tx *sql.Tx) error { return nil }))
	})
}
