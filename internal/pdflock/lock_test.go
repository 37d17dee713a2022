package pdflock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestNoOverlap checks that across many concurrent callers, there is
// never a point in time at which two are simultaneously between
// acquire and release of the lock.
func TestNoOverlap(t *testing.T) {
	old := QuiescenceDelay
	QuiescenceDelay = time.Millisecond
	defer func() { QuiescenceDelay = old }()

	l := New()
	var inside atomic.Int32
	var maxObserved atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Critical(context.Background(), func(ctx context.Context) error {
				n := inside.Add(1)
				defer inside.Add(-1)
				for {
					old := maxObserved.Load()
					if n <= old || maxObserved.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				return nil
			}, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxObserved.Load())
}

func TestCriticalPropagatesFnError(t *testing.T) {
	l := New()
	boom := assertErr{}
	err := l.Critical(context.Background(), func(ctx context.Context) error {
		return boom
	}, nil)
	assert.Equal(t, boom, err)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
