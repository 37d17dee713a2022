package watchdog

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cordero-labs/refharvest/internal/reference"
	"github.com/cordero-labs/refharvest/internal/taskqueue"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTickRecoversStuckEntries(t *testing.T) {
	q := taskqueue.New([]reference.Reference{"A"})
	base := time.Now()

	ref, ok := q.Get("w1", base.Add(-time.Hour))
	require.True(t, ok)
	require.Equal(t, reference.Reference("A"), ref)

	wd := New(q, time.Millisecond, time.Minute, discardLogger())
	wd.tick()

	stats := q.Stats()
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 0, stats.InProgress)
}

func TestTickLeavesFreshEntriesAlone(t *testing.T) {
	q := taskqueue.New([]reference.Reference{"A"})
	_, ok := q.Get("w1", time.Now())
	require.True(t, ok)

	wd := New(q, time.Millisecond, time.Hour, discardLogger())
	wd.tick()

	stats := q.Stats()
	assert.Equal(t, 0, stats.Pending)
	assert.Equal(t, 1, stats.InProgress)
}

func TestRunReturnsOnDrain(t *testing.T) {
	q := taskqueue.New([]reference.Reference{"A"})
	ref, ok := q.Get("w1", time.Now())
	require.True(t, ok)
	q.Complete(ref)

	wd := New(q, time.Millisecond, time.Minute, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := wd.Run(ctx)
	assert.NoError(t, err)
}

func TestRunReturnsOnContextCancel(t *testing.T) {
	q := taskqueue.New([]reference.Reference{"A", "B"})
	_, _ = q.Get("w1", time.Now())

	wd := New(q, time.Millisecond, time.Minute, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := wd.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
