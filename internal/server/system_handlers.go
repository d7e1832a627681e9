package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HealthChecker pings the backing store
type HealthChecker interface {
	QuickCheck(ctx context.Context) error
}

// Counter counts stored rows
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// IngestionStatus reports whether a ticker ingestion run is active
type IngestionStatus interface {
	IsRunning() bool
}

// SystemHandlers handles system-wide monitoring endpoints
type SystemHandlers struct {
	log        zerolog.Logger
	db         HealthChecker
	tickers    Counter
	portfolios Counter
	ingestion  IngestionStatus
	startedAt  time.Time
	cpuSample  time.Duration
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	db HealthChecker,
	tickers Counter,
	portfolios Counter,
	ingestion IngestionStatus,
) *SystemHandlers {
	return &SystemHandlers{
		log:        log.With().Str("service", "system").Logger(),
		db:         db,
		tickers:    tickers,
		portfolios: portfolios,
		ingestion:  ingestion,
		startedAt:  time.Now(),
		cpuSample:  100 * time.Millisecond,
	}
}

// SystemStatusResponse represents system status
type SystemStatusResponse struct {
	Status           string  `json:"status"` // "healthy" or "unhealthy"
	UptimeSeconds    int64   `json:"uptimeSeconds"`
	TickerCount      int     `json:"tickerCount"`
	PortfolioCount   int     `json:"portfolioCount"`
	IngestionRunning bool    `json:"ingestionRunning"`
	CPUPercent       float64 `json:"cpuPercent"`
	MemoryPercent    float64 `json:"memoryPercent"`
}

// GetSystemStatusSnapshot collects the system status. The snapshot is always
// filled as far as possible; the returned error joins every check that failed.
func (h *SystemHandlers) GetSystemStatusSnapshot(ctx context.Context) (SystemStatusResponse, error) {
	var errs []error

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}

	if h.db != nil {
		if err := h.db.QuickCheck(ctx); err != nil {
			response.Status = "unhealthy"
			errs = append(errs, fmt.Errorf("database check: %w", err))
		}
	}

	if h.tickers != nil {
		count, err := h.tickers.Count(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("ticker count: %w", err))
		}
		response.TickerCount = count
	}

	if h.portfolios != nil {
		count, err := h.portfolios.Count(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("portfolio count: %w", err))
		}
		response.PortfolioCount = count
	}

	if h.ingestion != nil {
		response.IngestionRunning = h.ingestion.IsRunning()
	}

	response.CPUPercent, response.MemoryPercent = h.getSystemStats()

	return response, errors.Join(errs...)
}

// HealthResponse is the liveness payload of /health
type HealthResponse struct {
	Status   string `json:"status"` // "healthy" or "unhealthy"
	Service  string `json:"service"`
	Database string `json:"database"` // "ok" or the check error
}

// HandleHealth reports whether the tracker database answers a quick check.
// It skips the counts and host stats of HandleSystemStatus.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{Status: "healthy", Service: "portfolio-tracker", Database: "ok"}
	status := http.StatusOK

	if h.db != nil {
		if err := h.db.QuickCheck(r.Context()); err != nil {
			h.log.Warn().Err(err).Msg("Health check failed")
			response.Status = "unhealthy"
			response.Database = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	h.writeJSON(w, status, response)
}

// HandleSystemStatus returns system status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	response, err := h.GetSystemStatusSnapshot(r.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("System status collected with warnings")
	}

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	h.writeJSON(w, status, response)
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// getSystemStats returns CPU and RAM usage percentages.
// CPU is sampled over a short window so the endpoint stays responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(h.cpuSample, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
