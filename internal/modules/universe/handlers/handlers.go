// Package handlers provides HTTP handlers for the ticker universe.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/portfolio-tracker/internal/modules/universe"
	"github.com/rs/zerolog"
)

// TickerLister lists stored tickers
type TickerLister interface {
	List(ctx context.Context) ([]universe.TickerSummary, error)
}

// IngestionRunner starts and reports on ticker ingestion runs
type IngestionRunner interface {
	StartAsync(ctx context.Context) (string, error)
	IsRunning() bool
	LastReport() *universe.IngestionReport
}

// Handler handles ticker universe HTTP requests
type Handler struct {
	tickers   TickerLister
	ingestion IngestionRunner
	log       zerolog.Logger
}

// NewHandler creates a new universe handler
func NewHandler(tickers TickerLister, ingestion IngestionRunner, log zerolog.Logger) *Handler {
	return &Handler{
		tickers:   tickers,
		ingestion: ingestion,
		log:       log.With().Str("handler", "universe").Logger(),
	}
}

// HandleListTickers returns every stored ticker as {symbol, companyName}
func (h *Handler) HandleListTickers(w http.ResponseWriter, r *http.Request) {
	tickers, err := h.tickers.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list tickers")
		h.writeError(w, http.StatusInternalServerError, "failed to list tickers")
		return
	}

	h.writeJSON(w, http.StatusOK, tickers)
}

// HandleStartSync starts a background ingestion run.
// Returns 202 with the run id, or 409 when a run is already active.
func (h *Handler) HandleStartSync(w http.ResponseWriter, r *http.Request) {
	// The run outlives the request
	runID, err := h.ingestion.StartAsync(context.WithoutCancel(r.Context()))
	if errors.Is(err, universe.ErrIngestionInProgress) {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to start ticker ingestion")
		h.writeError(w, http.StatusInternalServerError, "failed to start ticker ingestion")
		return
	}

	h.log.Info().Str("run_id", runID).Msg("Ticker ingestion started")
	h.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"runId":  runID,
		"status": "started",
	})
}

// HandleGetSyncStatus reports whether a run is active and the last finished run
func (h *Handler) HandleGetSyncStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"running":    h.ingestion.IsRunning(),
		"lastReport": h.ingestion.LastReport(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
