package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ticker routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tickers", func(r chi.Router) {
		r.Get("/", h.HandleListTickers) // List {symbol, companyName}

		r.Post("/sync", h.HandleStartSync)    // Start ingestion in background
		r.Get("/sync", h.HandleGetSyncStatus) // Running flag + last report
	})
}
