// Package watchdog implements the stuck-task recovery loop: a periodic
// ticker that recovers queue entries stuck past a threshold, the
// backstop for worker hangs that never hit the per-task timeout.
package watchdog

import (
	"context"
	"log/slog"
	"time"

	"github.com/cordero-labs/refharvest/internal/taskqueue"
)

// Watchdog runs as a cooperative task alongside the worker pool.
type Watchdog struct {
	queue          *taskqueue.Queue
	interval       time.Duration
	stuckThreshold time.Duration
	logger         *slog.Logger
}

// New returns a Watchdog polling queue at interval for entries stuck
// longer than stuckThreshold.
func New(queue *taskqueue.Queue, interval, stuckThreshold time.Duration, logger *slog.Logger) *Watchdog {
	return &Watchdog{queue: queue, interval: interval, stuckThreshold: stuckThreshold, logger: logger}
}

// Run ticks until the queue drains or ctx is cancelled, recovering
// stuck entries on every tick.
func (wd *Watchdog) Run(ctx context.Context) error {
	ticker := time.NewTicker(wd.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			wd.tick()
			if wd.queue.Stats().Drained() {
				return nil
			}
		}
	}
}

func (wd *Watchdog) tick() {
	now := time.Now()
	stuck := wd.queue.Stuck(wd.stuckThreshold, now)
	for _, ref := range stuck {
		wd.logger.Warn("recovering stuck reference", "reference", ref, "threshold", wd.stuckThreshold)
		wd.queue.Recover(ref)
	}

	stats := wd.queue.Stats()
	wd.logger.Info("progress",
		"pending", stats.Pending,
		"inProgress", stats.InProgress,
		"completed", stats.Completed,
		"terminalFailed", stats.TerminalFailed,
	)
}
