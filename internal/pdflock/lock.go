// Package pdflock implements the process-wide PDF critical-section
// mutex: the sub-sequence "arm popup listener -> click -> receive
// popup -> download -> close popup -> quiescence delay -> verify no
// stray popups" must never run on two workers at once, because the
// browser's "new page in this context" event cannot be attributed to
// the worker that triggered it. Without this lock, downloaded PDFs
// swap references at a high rate; with only a naive lock (one missing
// the quiescence delay and post-delay verification below) a small
// fraction still swap.
package pdflock

import (
	"context"
	"sync"
	"time"
)

// QuiescenceDelay is the minimum pause between closing the popup and
// releasing the lock, empirically required because the browser's
// internal "new page" event for the tab just closed can still be in
// flight. It is a var, not a const, so tests can shrink it instead of
// paying the real delay on every Critical call.
var QuiescenceDelay = 1200 * time.Millisecond

// Lock is the process-wide mutex Lp. There is exactly one instance per
// browser session, shared by every worker.
type Lock struct {
	mu sync.Mutex
}

// New returns an unlocked Lock.
func New() *Lock {
	return &Lock{}
}

// PopupVerifier is called once the quiescence delay has elapsed, to
// close any popup tab still open in the shared context before the lock
// is released. It is supplied by the browser package, which knows how
// to enumerate pages in the context; pdflock stays browser-agnostic.
type PopupVerifier func(ctx context.Context) error

// Critical runs fn while holding the lock, then sleeps QuiescenceDelay
// and runs verify before releasing it. fn and verify together are the
// "arm popup listener" through "verify no stray popups" span; Critical
// returns fn's error directly, but still runs the quiescence delay and
// verification in that case so a half-finished critical section never
// leaks a popup to the next holder.
func (l *Lock) Critical(ctx context.Context, fn func(ctx context.Context) error, verify PopupVerifier) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	fnErr := fn(ctx)

	select {
	case <-time.After(QuiescenceDelay):
	case <-ctx.Done():
		return firstErr(fnErr, ctx.Err())
	}

	var verifyErr error
	if verify != nil {
		verifyErr = verify(ctx)
	}

	return firstErr(fnErr, verifyErr)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
