// Package tracking persists the per-reference download status as a
// single JSON document: a durable reference -> {pending | downloaded |
// failed} mapping, rewritten atomically on every update, never
// demoting a reference out of "downloaded".
package tracking

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/cordero-labs/refharvest/internal/atomicfile"
	"github.com/cordero-labs/refharvest/internal/reference"
)

// Status is the terminal or pending state of one reference.
type Status string

const (
	Pending    Status = ""
	Downloaded Status = "downloaded"
	Failed     Status = "failed"
)

// Store is a single-writer-discipline JSON document mapping reference
// -> status, guarded by an internal mutex so concurrent workers can
// call Mark* directly without an external lock.
type Store struct {
	mu     sync.Mutex
	path   string
	status map[reference.Reference]Status
}

// Open loads path if it exists, or starts an empty store otherwise.
func Open(path string) (*Store, error) {
	s := &Store{path: path, status: make(map[reference.Reference]Status)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("tracking: read %q: %w", path, err)
	}

	var raw map[reference.Reference]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("tracking: parse %q: %w", path, err)
	}
	for ref, v := range raw {
		if v == nil {
			s.status[ref] = Pending
		} else {
			s.status[ref] = Status(*v)
		}
	}
	return s, nil
}

// Get returns the current status for ref (Pending if never recorded).
func (s *Store) Get(ref reference.Reference) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status[ref]
}

// MarkDownloaded records a terminal success. A reference that has
// already reached Downloaded is never demoted — calling this again, or
// calling MarkFailed after it, is a no-op for that reference.
func (s *Store) MarkDownloaded(ref reference.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status[ref] == Downloaded {
		return nil
	}
	s.status[ref] = Downloaded
	return s.persistLocked()
}

// MarkFailed records a terminal failure, unless the reference already
// reached Downloaded.
func (s *Store) MarkFailed(ref reference.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status[ref] == Downloaded {
		return nil
	}
	s.status[ref] = Failed
	return s.persistLocked()
}

// EnsurePending registers ref with Pending status if it has no entry
// yet, without touching an existing entry. Used at startup to seed the
// tracking document with every reference in the current inventory, so
// every reference has exactly one entry.
func (s *Store) EnsurePending(ref reference.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.status[ref]; ok {
		return nil
	}
	s.status[ref] = Pending
	return s.persistLocked()
}

// Snapshot returns a copy of the whole status map.
func (s *Store) Snapshot() map[reference.Reference]Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[reference.Reference]Status, len(s.status))
	for k, v := range s.status {
		out[k] = v
	}
	return out
}

func (s *Store) persistLocked() error {
	raw := make(map[reference.Reference]*string, len(s.status))
	for ref, st := range s.status {
		if st == Pending {
			raw[ref] = nil
			continue
		}
		v := string(st)
		raw[ref] = &v
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("tracking: marshal: %w", err)
	}
	if err := atomicfile.Write(s.path, data, 0644); err != nil {
		return fmt.Errorf("tracking: write %q: %w", s.path, err)
	}
	return nil
}
