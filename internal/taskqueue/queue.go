// Package taskqueue implements the in-memory task queue: a FIFO of
// pending references, an in-progress index keyed by reference, a
// completed set, and a per-reference retry counter, all guarded by a
// single mutex so every operation is atomic with respect to every
// other. Generalized from a plain ordered download queue to retryable
// reference dispatch with an explicit in-progress index and terminal-
// failure bookkeeping.
package taskqueue

import (
	"sync"
	"time"

	"github.com/cordero-labs/refharvest/internal/reference"
)

// InProgressEntry records who is working a reference and since when.
type InProgressEntry struct {
	WorkerID      string
	StartedAt     time.Time
	AttemptNumber int
}

// Stats is a point-in-time snapshot of queue cardinalities.
type Stats struct {
	Pending        int
	InProgress     int
	Completed      int
	TerminalFailed int
}

// Drained reports whether both pending and in-progress are empty — the
// condition under which no worker can ever find more work.
func (s Stats) Drained() bool {
	return s.Pending == 0 && s.InProgress == 0
}

// TerminalFailure is one reference that exhausted its retries, along
// with the error message from its last attempt.
type TerminalFailure struct {
	Reference reference.Reference `json:"reference"`
	Reason    string              `json:"reason"`
}

// Queue is the single arbiter of which worker processes which
// reference. The zero value is not usable; use New.
type Queue struct {
	mu             sync.Mutex
	pending        []reference.Reference
	inProgress     map[reference.Reference]InProgressEntry
	completed      map[reference.Reference]bool
	retries        map[reference.Reference]int
	terminalFailed map[reference.Reference]string
}

// New creates a queue pre-loaded with the given pending references.
func New(pending []reference.Reference) *Queue {
	q := &Queue{
		pending:        append([]reference.Reference(nil), pending...),
		inProgress:     make(map[reference.Reference]InProgressEntry),
		completed:      make(map[reference.Reference]bool),
		retries:        make(map[reference.Reference]int),
		terminalFailed: make(map[reference.Reference]string),
	}
	return q
}

// Get pops the head of pending, records it in-progress for workerID,
// and returns it. Returns ok=false if pending is currently empty — the
// caller must consult Stats to distinguish "empty but outstanding work"
// from "drained".
func (q *Queue) Get(workerID string, now time.Time) (reference.Reference, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return "", false
	}
	ref := q.pending[0]
	q.pending = q.pending[1:]
	q.inProgress[ref] = InProgressEntry{
		WorkerID:      workerID,
		StartedAt:     now,
		AttemptNumber: q.retries[ref] + 1,
	}
	return ref, true
}

// Complete removes ref from in-progress and records it as a terminal
// success. Calling Complete twice for the same reference within a run
// must not occur; callers only reach Complete once per successful
// processing procedure.
func (q *Queue) Complete(ref reference.Reference) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inProgress, ref)
	q.completed[ref] = true
	delete(q.retries, ref)
}

// Fail removes ref from in-progress, increments its retry counter, and
// either re-enqueues it (attempts remain) or records it as a terminal
// failure (retries exhausted), keeping cause as its last-error
// classification. Returns true if the reference was requeued, false if
// it is now terminally failed.
func (q *Queue) Fail(ref reference.Reference, maxRetries int, cause error) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inProgress, ref)
	q.retries[ref]++
	if q.retries[ref] <= maxRetries {
		q.pending = append(q.pending, ref)
		return true
	}
	delete(q.retries, ref)
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	q.terminalFailed[ref] = reason
	return false
}

// Stuck returns every in-progress reference whose StartedAt predates
// now.Add(-threshold).
func (q *Queue) Stuck(threshold time.Duration, now time.Time) []reference.Reference {
	q.mu.Lock()
	defer q.mu.Unlock()
	cutoff := now.Add(-threshold)
	var out []reference.Reference
	for ref, entry := range q.inProgress {
		if entry.StartedAt.Before(cutoff) {
			out = append(out, ref)
		}
	}
	return out
}

// Recover removes ref from in-progress and re-appends it to the tail of
// pending, making it available to any worker. It is a no-op if ref is
// not currently in-progress (it may have completed or been recovered
// already by a concurrent watchdog tick).
func (q *Queue) Recover(ref reference.Reference) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.inProgress[ref]; !ok {
		return
	}
	delete(q.inProgress, ref)
	q.pending = append(q.pending, ref)
}

// Stats returns a point-in-time snapshot.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Pending:        len(q.pending),
		InProgress:     len(q.inProgress),
		Completed:      len(q.completed),
		TerminalFailed: len(q.terminalFailed),
	}
}

// TerminalFailures returns the references that exhausted retries, with
// each one's last-error classification.
func (q *Queue) TerminalFailures() []TerminalFailure {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]TerminalFailure, 0, len(q.terminalFailed))
	for ref, reason := range q.terminalFailed {
		out = append(out, TerminalFailure{Reference: ref, Reason: reason})
	}
	return out
}
