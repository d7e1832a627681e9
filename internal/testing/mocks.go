package testing

import (
	"context"
	"sync"

	"github.com/aristath/portfolio-tracker/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockMarketData is a testify mock implementing domain.MarketDataProvider
type MockMarketData struct {
	mock.Mock
}

// NewMockMarketData creates a new mock market data provider
func NewMockMarketData() *MockMarketData {
	return &MockMarketData{}
}

// ListActiveListings mocks the listing feed
func (m *MockMarketData) ListActiveListings(ctx context.Context) ([]domain.Listing, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Listing), args.Error(1)
}

// GetDividendPerShare mocks the dividend-per-share metric
func (m *MockMarketData) GetDividendPerShare(ctx context.Context, symbol string) (decimal.Decimal, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// GetDividendYield mocks the dividend-yield metric
func (m *MockMarketData) GetDividendYield(ctx context.Context, symbol string) (decimal.Decimal, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// GetCurrentPrice mocks the quote feed
func (m *MockMarketData) GetCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// CountingThrottle is a non-blocking domain.Throttle that records how many
// times it was waited on.
type CountingThrottle struct {
	mu    sync.Mutex
	calls int
	Err   error // returned from every Wait when set
}

// Wait records the call and returns Err (or ctx.Err())
func (c *CountingThrottle) Wait(ctx context.Context) error {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	return ctx.Err()
}

// Calls returns the number of Wait calls so far
func (c *CountingThrottle) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
