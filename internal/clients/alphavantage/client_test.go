package alphavantage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aristath/portfolio-tracker/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `symbol,name,exchange,assetType,ipoDate,delistingDate,status
A,Agilent Technologies Inc,NYSE,Stock,1999-11-18,null,Active
AA,Alcoa Corp,NYSE,Stock,2016-10-18,null,active
OLD,Old Corp,NYSE,Stock,2001-01-01,2020-01-01,Delisted
SHORT,Short Row
"BRK,B","Berkshire, Hathaway",NYSE,Stock,1996-05-09,null,ACTIVE
`

// TestNewClient tests client creation.
func TestNewClient(t *testing.T) {
	client := NewClient("", "test-key", 0, zerolog.Nop())

	assert.NotNil(t, client)
	assert.Equal(t, "test-key", client.apiKey)
	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)

	client = NewClient("http://localhost:9999/", "k", time.Second, zerolog.Nop())
	assert.Equal(t, "http://localhost:9999", client.baseURL)
}

func TestParseListingCSV(t *testing.T) {
	listings, err := ParseListingCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	require.Len(t, listings, 3)
	assert.Equal(t, "A", listings[0].Symbol)
	assert.Equal(t, "Agilent Technologies Inc", listings[0].CompanyName)
	assert.Equal(t, "AA", listings[1].Symbol)
	assert.Equal(t, "BRK,B", listings[2].Symbol)
	assert.Equal(t, "Berkshire, Hathaway", listings[2].CompanyName)
}

func TestParseListingCSV_Empty(t *testing.T) {
	listings, err := ParseListingCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, listings)

	listings, err = ParseListingCSV(strings.NewReader("symbol,name,exchange,assetType,ipoDate,delistingDate,status\n"))
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestGetListingStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "LISTING_STATUS", r.URL.Query().Get("function"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))

		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", time.Second, zerolog.Nop())
	listings, err := client.GetListingStatus(context.Background())

	require.NoError(t, err)
	assert.Len(t, listings, 3)
}

func TestGetListingStatus_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", time.Second, zerolog.Nop())
	listings, err := client.GetListingStatus(context.Background())

	assert.Nil(t, listings)
	var statusErr *domain.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, "slow down", statusErr.Body)
	assert.True(t, statusErr.IsRateLimited())
}

func TestGetListingStatus_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(server.URL, "test-key", time.Second, zerolog.Nop())
	_, err := client.GetListingStatus(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
