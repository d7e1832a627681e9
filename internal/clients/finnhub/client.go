// Package finnhub provides a client for the Finnhub metric and quote endpoints.
package finnhub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aristath/portfolio-tracker/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	// DefaultBaseURL is the production Finnhub endpoint
	DefaultBaseURL = "https://finnhub.io"

	providerName     = "finnhub"
	maxErrorBodySize = 512
)

// Metric names read from the basic-financials response
const (
	MetricDividendPerShareAnnual       = "dividendPerShareAnnual"
	MetricDividendYieldIndicatedAnnual = "dividendYieldIndicatedAnnual"
)

// ErrMissingQuote is returned when the quote response has no current price
var ErrMissingQuote = errors.New("quote response has no current price")

// metricResponse is the subset of /stock/metric we decode.
// Values are kept raw so absent and null can both map to zero.
type metricResponse struct {
	Symbol string                     `json:"symbol"`
	Metric map[string]json.RawMessage `json:"metric"`
}

// quoteResponse is the /quote payload; only c (current price) is used
type quoteResponse struct {
	Current       *json.Number `json:"c"`
	High          *json.Number `json:"h"`
	Low           *json.Number `json:"l"`
	Open          *json.Number `json:"o"`
	PreviousClose *json.Number `json:"pc"`
	Timestamp     int64        `json:"t"`
}

// Client is the Finnhub API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new Finnhub client.
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

// GetMetric returns one named metric for symbol. An absent or null metric
// yields zero.
func (c *Client) GetMetric(ctx context.Context, symbol, name string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("metric", "all")
	params.Set("token", c.apiKey)

	var resp metricResponse
	if err := c.getJSON(ctx, "/api/v1/stock/metric", params, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("metric %s for %s: %w", name, symbol, err)
	}

	raw, ok := resp.Metric[name]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		c.log.Debug().Str("symbol", symbol).Str("metric", name).Msg("Metric not reported, using zero")
		return decimal.Zero, nil
	}

	value, err := parseNumber(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("metric %s for %s: %w", name, symbol, err)
	}
	return value, nil
}

// GetQuote returns the current price (field c) for symbol
func (c *Client) GetQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("token", c.apiKey)

	var resp quoteResponse
	if err := c.getJSON(ctx, "/api/v1/quote", params, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("quote for %s: %w", symbol, err)
	}

	if resp.Current == nil {
		return decimal.Zero, fmt.Errorf("quote for %s: %w", symbol, ErrMissingQuote)
	}

	price, err := decimal.NewFromString(resp.Current.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("quote for %s: invalid price %q: %w", symbol, resp.Current.String(), err)
	}
	return price, nil
}

// getJSON performs a GET and decodes the JSON body into out, keeping numbers
// as json.Number so decimals are never routed through float64.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Str("path", path).Str("symbol", params.Get("symbol")).Msg("Making Finnhub request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return &domain.HTTPStatusError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseNumber converts a raw JSON number (or numeric string) into a decimal
func parseNumber(raw json.RawMessage) (decimal.Decimal, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var v interface{}
	if err := decoder.Decode(&v); err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %s: %w", string(raw), err)
	}

	switch n := v.(type) {
	case json.Number:
		return decimal.NewFromString(n.String())
	case string:
		if strings.TrimSpace(n) == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(strings.TrimSpace(n))
	default:
		return decimal.Zero, fmt.Errorf("unexpected metric value %s", string(raw))
	}
}
