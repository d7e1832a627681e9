// Package testing provides testing utilities and helpers for the tracker.
package testing

import (
	"os"
	"testing"

	"github.com/aristath/portfolio-tracker/internal/database"
)

// NewTestDB creates a temp-file SQLite database for testing with the tracker
// schema applied. Returns the database instance and a cleanup function that
// closes the connection and removes the file. Cleanup is idempotent.
func NewTestDB(t *testing.T) (*database.DB, func()) {
	t.Helper()
	return NewTestDBWithDriver(t, database.DriverModernc)
}

// NewTestDBWithDriver is NewTestDB for an explicit database/sql driver
func NewTestDBWithDriver(t *testing.T, driver string) (*database.DB, func()) {
	t.Helper()

	// Temporary files keep tests isolated; in-memory DBs are per-connection
	tmpFile, err := os.CreateTemp("", "test_tracker_*.db")
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{
		Path:   tmpPath,
		Name:   "tracker",
		Driver: driver,
	})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	closed := false
	return db, func() {
		if closed {
			return
		}
		closed = true
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database: %v", err)
		}
		// WAL side files go with the main file
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if err := os.Remove(tmpPath + suffix); err != nil && !os.IsNotExist(err) {
				t.Logf("Warning: Failed to remove temporary database file %s: %v", tmpPath+suffix, err)
			}
		}
	}
}
