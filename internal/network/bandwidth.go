// Package network paces the authenticated PDF-byte HTTP client against
// the configured DownloadBytesPerSecond, playing the same role the
// original download manager's BandwidthManager played for raw chunked
// downloads: a single global limiter with zero overhead when disabled.
package network

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// Limiter wraps a token-bucket rate limiter sized in bytes per second.
type Limiter struct {
	globalLimiter *rate.Limiter
	limitEnabled  atomic.Bool
}

// NewLimiter returns a Limiter with no limit; call SetLimit to enable
// one.
func NewLimiter() *Limiter {
	return &Limiter{globalLimiter: rate.NewLimiter(rate.Inf, 0)}
}

// SetLimit updates the limit in bytes per second; 0 disables it.
func (l *Limiter) SetLimit(bytesPerSec int) {
	if bytesPerSec <= 0 {
		l.limitEnabled.Store(false)
		l.globalLimiter.SetLimit(rate.Inf)
		return
	}
	l.limitEnabled.Store(true)
	l.globalLimiter.SetLimit(rate.Limit(bytesPerSec))
	l.globalLimiter.SetBurst(bytesPerSec)
}

// Wait blocks until n bytes may be consumed under the configured
// limit. It returns immediately if no limit is set.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	if !l.limitEnabled.Load() {
		return nil
	}
	// WaitN rejects requests larger than the burst, so wait in
	// burst-sized chunks.
	burst := l.globalLimiter.Burst()
	for n > 0 {
		chunk := min(n, burst)
		if err := l.globalLimiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}
