package network

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitWithNoLimitReturnsImmediately(t *testing.T) {
	l := NewLimiter()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.NoError(t, l.Wait(ctx, 10_000_000))
}

func TestSetLimitThenWaitPaces(t *testing.T) {
	l := NewLimiter()
	l.SetLimit(1000)

	ctx := context.Background()
	start := time.Now()
	require.NoError(t, l.Wait(ctx, 1000))
	require.NoError(t, l.Wait(ctx, 1000))
	elapsed := time.Since(start)

	// The bucket holds at most 1000 tokens, so the second 1000-byte wait
	// needs about a second of refill at 1000 bytes/s.
	assert.GreaterOrEqual(t, elapsed, 900*time.Millisecond)
}

func TestSetLimitZeroDisables(t *testing.T) {
	l := NewLimiter()
	l.SetLimit(1000)
	l.SetLimit(0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.NoError(t, l.Wait(ctx, 10_000_000))
}
