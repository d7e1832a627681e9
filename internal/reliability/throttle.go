// Package reliability provides call pacing for external providers.
package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/portfolio-tracker/internal/domain"
	"golang.org/x/time/rate"
)

// IntervalThrottle spaces calls at least interval apart.
// The first call passes immediately.
type IntervalThrottle struct {
	limiter *rate.Limiter
}

// NewIntervalThrottle creates a throttle for the given minimum interval.
// A zero or negative interval returns a NoopThrottle.
func NewIntervalThrottle(interval time.Duration) domain.Throttle {
	if interval <= 0 {
		return NoopThrottle{}
	}
	return &IntervalThrottle{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Wait blocks until the next call may proceed or ctx is done
func (t *IntervalThrottle) Wait(ctx context.Context) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("throttle wait: %w", err)
	}
	return nil
}

// NoopThrottle never blocks
type NoopThrottle struct{}

// Wait returns ctx.Err() if ctx is already done, nil otherwise
func (NoopThrottle) Wait(ctx context.Context) error {
	return ctx.Err()
}
