package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolios", func(r chi.Router) {
		r.Post("/", h.HandleCreatePortfolio) // Create from {name, tickers}
		r.Get("/", h.HandleListPortfolios)   // List all

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGetPortfolio)       // Get (refreshes when stale)
			r.Delete("/", h.HandleDeletePortfolio) // Delete with positions

			r.Route("/tickers", func(r chi.Router) {
				r.Patch("/", h.HandleUpdatePositions)  // Update existing positions
				r.Put("/", h.HandleAddPositions)       // Add new positions
				r.Delete("/", h.HandleRemovePositions) // Remove by symbol
			})

			r.Get("/refresh-prices", h.HandleRefreshPrices)
		})
	})
}
