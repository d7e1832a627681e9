package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct{ err error }

func (s stubChecker) QuickCheck(context.Context) error { return s.err }

type stubCounter struct {
	n   int
	err error
}

func (s stubCounter) Count(context.Context) (int, error) { return s.n, s.err }

type stubIngestion bool

func (s stubIngestion) IsRunning() bool { return bool(s) }

func TestSystemHandlers_HandleSystemStatus(t *testing.T) {
	h := NewSystemHandlers(zerolog.Nop(), stubChecker{}, stubCounter{n: 12}, stubCounter{n: 3}, stubIngestion(true))
	h.cpuSample = 0

	rec := httptest.NewRecorder()
	h.HandleSystemStatus(rec, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var response SystemStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, 12, response.TickerCount)
	assert.Equal(t, 3, response.PortfolioCount)
	assert.True(t, response.IngestionRunning)
	assert.GreaterOrEqual(t, response.UptimeSeconds, int64(0))
	assert.GreaterOrEqual(t, response.MemoryPercent, 0.0)
}

func TestSystemHandlers_DatabaseDown(t *testing.T) {
	h := NewSystemHandlers(zerolog.Nop(), stubChecker{err: errors.New("closed")}, nil, nil, nil)
	h.cpuSample = 0

	rec := httptest.NewRecorder()
	h.HandleSystemStatus(rec, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var response SystemStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "unhealthy", response.Status)
}

func TestSystemHandlers_Snapshot_CountFailureIsReported(t *testing.T) {
	countErr := errors.New("no such table")
	h := NewSystemHandlers(zerolog.Nop(), nil, stubCounter{err: countErr}, stubCounter{n: 1}, nil)
	h.cpuSample = 0

	response, err := h.GetSystemStatusSnapshot(context.Background())
	assert.ErrorIs(t, err, countErr)
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, 1, response.PortfolioCount)
}
