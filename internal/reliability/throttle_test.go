package reliability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIntervalThrottle_ZeroIntervalIsNoop(t *testing.T) {
	th := NewIntervalThrottle(0)
	_, ok := th.(NoopThrottle)
	assert.True(t, ok)

	th = NewIntervalThrottle(-time.Second)
	_, ok = th.(NoopThrottle)
	assert.True(t, ok)
}

func TestIntervalThrottle_SpacesCalls(t *testing.T) {
	interval := 50 * time.Millisecond
	th := NewIntervalThrottle(interval)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, th.Wait(ctx))
	first := time.Since(start)

	require.NoError(t, th.Wait(ctx))
	require.NoError(t, th.Wait(ctx))
	total := time.Since(start)

	assert.Less(t, first, interval, "first call should pass immediately")
	// Two further calls need two full intervals; allow scheduler slack
	assert.GreaterOrEqual(t, total, 2*interval-10*time.Millisecond)
}

func TestIntervalThrottle_HonoursCancellation(t *testing.T) {
	th := NewIntervalThrottle(time.Hour)
	require.NoError(t, th.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := th.Wait(ctx)
	assert.Error(t, err)
}

func TestNoopThrottle(t *testing.T) {
	th := NoopThrottle{}
	assert.NoError(t, th.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, th.Wait(ctx), context.Canceled)
}
