package di

import (
	"fmt"

	"github.com/aristath/portfolio-tracker/internal/modules/portfolio"
	"github.com/aristath/portfolio-tracker/internal/modules/universe"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates all repositories and stores them in the container
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.TrackerDB == nil {
		return fmt.Errorf("container database cannot be nil")
	}

	conn := container.TrackerDB.Conn()

	// Ticker repository (tickers table)
	container.TickerRepo = universe.NewTickerRepository(conn, log)

	// Portfolio repository (portfolios + portfolio_tickers)
	container.PortfolioRepo = portfolio.NewPortfolioRepository(conn, log)

	log.Info().Msg("Repositories initialized")

	return nil
}
