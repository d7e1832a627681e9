package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aristath/portfolio-tracker/internal/domain"
	"github.com/aristath/portfolio-tracker/internal/modules/portfolio"
	"github.com/aristath/portfolio-tracker/internal/modules/universe"
	testingpkg "github.com/aristath/portfolio-tracker/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type routesFixture struct {
	router chi.Router
	market *testingpkg.MockMarketData
}

func newRoutesFixture(t *testing.T) *routesFixture {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t)
	t.Cleanup(cleanup)
	testingpkg.SeedTickers(t, db.Conn(), testingpkg.NewTickerFixtures()...)

	market := testingpkg.NewMockMarketData()
	service := portfolio.NewService(
		portfolio.NewPortfolioRepository(db.Conn(), zerolog.Nop()),
		universe.NewTickerRepository(db.Conn(), zerolog.Nop()),
		market,
		&testingpkg.CountingThrottle{},
		portfolio.ServiceConfig{StalenessThreshold: time.Hour},
		zerolog.Nop(),
	)

	router := chi.NewRouter()
	NewHandler(service, zerolog.Nop()).RegisterRoutes(router)
	return &routesFixture{router: router, market: market}
}

func (f *routesFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodePortfolio(t *testing.T, rec *httptest.ResponseRecorder) portfolio.Portfolio {
	t.Helper()
	var p portfolio.Portfolio
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func (f *routesFixture) create(t *testing.T) portfolio.Portfolio {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/portfolios/", `{
		"name": "Income",
		"tickers": [
			{"symbol": "A", "numberOfShares": 4, "averageSharePrice": 100},
			{"symbol": "B", "numberOfShares": 3, "averageSharePrice": "200"}
		]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodePortfolio(t, rec)
}

func TestCreatePortfolioRoute(t *testing.T) {
	f := newRoutesFixture(t)

	p := f.create(t)
	assert.Greater(t, p.ID, int64(0))
	assert.Equal(t, "80.91", p.ExpectedDividendAmount.String())
	assert.Len(t, p.Tickers, 2)
}

func TestCreatePortfolioRoute_BadRequests(t *testing.T) {
	f := newRoutesFixture(t)

	testCases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"name":`},
		{"empty name", `{"name":"","tickers":[{"symbol":"A","numberOfShares":1,"averageSharePrice":1}]}`},
		{"no positions", `{"name":"X","tickers":[]}`},
		{"zero shares", `{"name":"X","tickers":[{"symbol":"A","numberOfShares":0,"averageSharePrice":1}]}`},
		{"unknown ticker", `{"name":"X","tickers":[{"symbol":"NOPE","numberOfShares":1,"averageSharePrice":1}]}`},
		{"unknown field", `{"name":"X","colour":"red","tickers":[{"symbol":"A","numberOfShares":1,"averageSharePrice":1}]}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/portfolios/", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestGetPortfolioRoute(t *testing.T) {
	f := newRoutesFixture(t)
	created := f.create(t)

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/portfolios/%d", created.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decodePortfolio(t, rec).ID)

	rec = f.do(t, http.MethodGet, "/portfolios/9999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/portfolios/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListPortfoliosRoute(t *testing.T) {
	f := newRoutesFixture(t)
	f.create(t)

	rec := f.do(t, http.MethodGet, "/portfolios/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var all []portfolio.Portfolio
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 1)
}

func TestDeletePortfolioRoute(t *testing.T) {
	f := newRoutesFixture(t)
	created := f.create(t)
	path := fmt.Sprintf("/portfolios/%d", created.ID)

	rec := f.do(t, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdatePositionsRoute(t *testing.T) {
	f := newRoutesFixture(t)
	created := f.create(t)
	path := fmt.Sprintf("/portfolios/%d/tickers", created.ID)

	rec := f.do(t, http.MethodPatch, path, `[{"symbol":"a","numberOfShares":10,"averageSharePrice":100}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "1600", decodePortfolio(t, rec).TotalValue.String())

	rec = f.do(t, http.MethodPatch, path, `[{"symbol":"A","numberOfShares":-1,"averageSharePrice":100}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPatch, "/portfolios/9999/tickers", `[{"symbol":"A","numberOfShares":1,"averageSharePrice":1}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddPositionsRoute(t *testing.T) {
	f := newRoutesFixture(t)
	created := f.create(t)
	path := fmt.Sprintf("/portfolios/%d/tickers", created.ID)

	rec := f.do(t, http.MethodPut, path, `[{"symbol":"KO","numberOfShares":10,"averageSharePrice":50}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decodePortfolio(t, rec).Tickers, 3)

	rec = f.do(t, http.MethodPut, path, `[{"symbol":"NOPE","numberOfShares":1,"averageSharePrice":1}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemovePositionsRoute(t *testing.T) {
	f := newRoutesFixture(t)
	created := f.create(t)
	path := fmt.Sprintf("/portfolios/%d/tickers", created.ID)

	rec := f.do(t, http.MethodDelete, path, `["b"]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decodePortfolio(t, rec).Tickers, 1)

	rec = f.do(t, http.MethodDelete, path+"?symbols=zzz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodePortfolio(t, rec).Tickers, 1)

	rec = f.do(t, http.MethodDelete, path+"?symbols=a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	p := decodePortfolio(t, rec)
	assert.Empty(t, p.Tickers)
	assert.True(t, p.TotalValue.IsZero())

	rec = f.do(t, http.MethodDelete, "/portfolios/9999/tickers?symbols=A", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshPricesRoute(t *testing.T) {
	f := newRoutesFixture(t)
	created := f.create(t)
	path := fmt.Sprintf("/portfolios/%d/refresh-prices", created.ID)

	f.market.On("GetCurrentPrice", mock.Anything, "A").Return(decimal.RequireFromString("120"), nil).Once()
	f.market.On("GetCurrentPrice", mock.Anything, "B").Return(decimal.RequireFromString("210"), nil).Once()

	rec := f.do(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "110", decodePortfolio(t, rec).Result.String())

	rec = f.do(t, http.MethodGet, "/portfolios/9999/refresh-prices", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshPricesRoute_ProviderFailureIsUnprocessable(t *testing.T) {
	f := newRoutesFixture(t)
	created := f.create(t)

	f.market.On("GetCurrentPrice", mock.Anything, "A").
		Return(decimal.Zero, &domain.HTTPStatusError{Provider: "finnhub", StatusCode: 429})

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/portfolios/%d/refresh-prices", created.ID), "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
