// Package alphavantage provides a client for the Alpha Vantage listing-status feed.
package alphavantage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aristath/portfolio-tracker/internal/domain"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the production Alpha Vantage endpoint
	DefaultBaseURL = "https://www.alphavantage.co"

	providerName = "alphavantage"

	// Listing-status CSV columns:
	// symbol,name,exchange,assetType,ipoDate,delistingDate,status
	listingColumns   = 7
	colSymbol        = 0
	colName          = 1
	colStatus        = 6
	maxErrorBodySize = 512
)

// Client is the Alpha Vantage API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new Alpha Vantage client.
// An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log.With().Str("client", providerName).Logger(),
	}
}

// GetListingStatus downloads the listing-status CSV and returns the active rows
// in feed order.
func (c *Client) GetListingStatus(ctx context.Context) ([]domain.Listing, error) {
	params := url.Values{}
	params.Set("function", "LISTING_STATUS")
	params.Set("apikey", c.apiKey)
	reqURL := c.baseURL + "/query?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.log.Debug().Msg("Fetching listing status")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &domain.HTTPStatusError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	listings, err := ParseListingCSV(resp.Body)
	if err != nil {
		return nil, err
	}

	c.log.Info().Int("active", len(listings)).Msg("Fetched listing status")
	return listings, nil
}

// ParseListingCSV reads a listing-status CSV and returns the rows whose status
// column is "active" (case-insensitive). Rows with fewer than seven fields are
// skipped. The header row is never active so it drops out naturally.
func ParseListingCSV(r io.Reader) ([]domain.Listing, error) {
	reader := csv.NewReader(r)
	// Rows may be short or ragged; length is checked per row
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	listings := make([]domain.Listing, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse listing csv: %w", err)
		}
		if len(record) < listingColumns {
			continue
		}

		listing := domain.Listing{
			Symbol:      strings.TrimSpace(record[colSymbol]),
			CompanyName: strings.TrimSpace(record[colName]),
			Status:      strings.TrimSpace(record[colStatus]),
		}
		if !listing.IsActive() || listing.Symbol == "" {
			continue
		}
		listings = append(listings, listing)
	}

	return listings, nil
}
