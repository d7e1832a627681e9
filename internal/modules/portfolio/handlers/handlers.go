// Package handlers provides HTTP handlers for portfolio management.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aristath/portfolio-tracker/internal/domain"
	"github.com/aristath/portfolio-tracker/internal/modules/portfolio"
	"github.com/aristath/portfolio-tracker/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// Handler handles portfolio HTTP requests
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleCreatePortfolio creates a portfolio from {name, tickers}
func (h *Handler) HandleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var input portfolio.PortfolioInput
	if err := h.decode(w, r, &input); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.service.CreatePortfolio(r.Context(), input)
	if err != nil {
		h.writeServiceError(w, err, mutationStatus)
		return
	}

	h.writeJSON(w, http.StatusOK, p)
}

// HandleListPortfolios returns every portfolio
func (h *Handler) HandleListPortfolios(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.service.ListPortfolios(r.Context())
	if err != nil {
		h.writeServiceError(w, err, readStatus)
		return
	}

	h.writeJSON(w, http.StatusOK, portfolios)
}

// HandleGetPortfolio returns one portfolio, refreshing prices when stale
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetPortfolio(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, readStatus)
		return
	}

	h.writeJSON(w, http.StatusOK, p)
}

// HandleDeletePortfolio deletes a portfolio and its positions
func (h *Handler) HandleDeletePortfolio(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeletePortfolio(r.Context(), id); err != nil {
		h.writeServiceError(w, err, readStatus)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":      id,
		"deleted": true,
	})
}

// HandleUpdatePositions applies position patches (PATCH)
func (h *Handler) HandleUpdatePositions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	var patches []portfolio.PositionInput
	if err := h.decode(w, r, &patches); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.service.UpdatePositions(r.Context(), id, patches)
	if err != nil {
		h.writeServiceError(w, err, mutationStatus)
		return
	}

	h.writeJSON(w, http.StatusOK, p)
}

// HandleAddPositions appends new positions (PUT)
func (h *Handler) HandleAddPositions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	var positions []portfolio.PositionInput
	if err := h.decode(w, r, &positions); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.service.AddPositions(r.Context(), id, positions)
	if err != nil {
		h.writeServiceError(w, err, mutationStatus)
		return
	}

	h.writeJSON(w, http.StatusOK, p)
}

// HandleRemovePositions removes positions by symbol. Symbols come from a JSON
// array body or, when the body is empty, from ?symbols=A,B.
func (h *Handler) HandleRemovePositions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	symbols := utils.ParseSymbols(r.URL.Query().Get("symbols"))
	if r.ContentLength != 0 && r.Body != nil && r.Body != http.NoBody {
		var fromBody []string
		if err := h.decode(w, r, &fromBody); err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		symbols = append(symbols, fromBody...)
	}

	p, err := h.service.RemovePositions(r.Context(), id, symbols)
	if err != nil {
		h.writeServiceError(w, err, mutationStatus)
		return
	}

	h.writeJSON(w, http.StatusOK, p)
}

// HandleRefreshPrices re-fetches current prices for the portfolio's tickers
func (h *Handler) HandleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	p, err := h.service.RefreshSharePrices(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, mutationStatus)
		return
	}

	h.writeJSON(w, http.StatusOK, p)
}

// statusMapper maps a service error to an HTTP status (0 = internal error)
type statusMapper func(err error) int

// readStatus: get/delete by id, where an absent portfolio is a 404
func readStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrPortfolioNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	}
	return 0
}

// mutationStatus: create and position changes, where every caller mistake
// is a 400 and an aborted price refresh is a 422
func mutationStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrPriceRefreshFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrPortfolioNotFound),
		errors.Is(err, domain.ErrTickerNotFound):
		return http.StatusBadRequest
	}
	return 0
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, mapStatus statusMapper) {
	if status := mapStatus(err); status != 0 {
		h.writeError(w, status, err.Error())
		return
	}

	h.log.Error().Err(err).Msg("Portfolio operation failed")
	h.writeError(w, http.StatusInternalServerError, "internal server error")
}

func (h *Handler) portfolioID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid portfolio id %q", raw))
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
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
