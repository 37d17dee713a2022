// Package checkpoint persists run-level counters as a single JSON
// document, rewritten atomically after every terminal per-reference
// outcome.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cordero-labs/refharvest/internal/atomicfile"
)

// Record is the run-level checkpoint document. Counters are monotonic
// except ConsecutiveFailures, which resets to zero on success.
type Record struct {
	RunStartedAt        time.Time `json:"run_started_at"`
	Attempted           int       `json:"attempted"`
	Succeeded           int       `json:"succeeded"`
	Failed              int       `json:"failed"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastReference       string    `json:"last_reference"`
	LastUpdatedAt       time.Time `json:"last_updated_at"`
}

// Store guards a Record behind a mutex and persists it to path on every
// update.
type Store struct {
	mu     sync.Mutex
	path   string
	record Record
}

// Open loads an existing checkpoint or starts a fresh one stamped with
// the current time as RunStartedAt.
func Open(path string, now time.Time) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.record = Record{RunStartedAt: now}
			return s, nil
		}
		return nil, fmt.Errorf("checkpoint: read %q: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.record); err != nil {
		return nil, fmt.Errorf("checkpoint: parse %q: %w", path, err)
	}
	return s, nil
}

// Get returns a copy of the current record.
func (s *Store) Get() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

// RecordAttempt increments Attempted and sets LastReference, persisting
// the result. Called once per dispatched attempt (including retries).
func (s *Store) RecordAttempt(ref string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.Attempted++
	s.record.LastReference = ref
	s.record.LastUpdatedAt = now
	return s.persistLocked()
}

// RecordSuccess increments Succeeded and resets ConsecutiveFailures.
func (s *Store) RecordSuccess(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.Succeeded++
	s.record.ConsecutiveFailures = 0
	s.record.LastUpdatedAt = now
	return s.persistLocked()
}

// RecordFailure increments Failed and ConsecutiveFailures.
func (s *Store) RecordFailure(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.Failed++
	s.record.ConsecutiveFailures++
	s.record.LastUpdatedAt = now
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.record, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshal: %w", err)
	}
	if err := atomicfile.Write(s.path, data, 0644); err != nil {
		return fmt.Errorf("checkpoint: write %q: %w", s.path, err)
	}
	return nil
}
