// Package di provides dependency injection for database connections.
package di

import (
	"fmt"

	"github.com/aristath/portfolio-tracker/internal/config"
	"github.com/aristath/portfolio-tracker/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens tracker.db and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	trackerDB, err := database.New(database.Config{
		Path:   cfg.DatabasePath(),
		Name:   "tracker",
		Driver: cfg.DBDriver,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracker database: %w", err)
	}

	if err := trackerDB.Migrate(); err != nil {
		trackerDB.Close()
		return nil, fmt.Errorf("failed to apply tracker schema: %w", err)
	}
	container.TrackerDB = trackerDB

	log.Info().
		Str("path", trackerDB.Path()).
		Str("driver", trackerDB.Driver()).
		Msg("Database initialized")

	return container, nil
}
