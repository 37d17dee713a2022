// Package runlog accumulates the per-step and per-reference timings
// into run_data/metrics.json: an in-memory, mutex-guarded accumulator
// flushed to a flat JSON document rather than a SQL store.
package runlog

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cordero-labs/refharvest/internal/atomicfile"
	"github.com/cordero-labs/refharvest/internal/reference"
)

// ReferenceOutcome records one reference's processing time and result.
type ReferenceOutcome struct {
	Reference reference.Reference `json:"reference"`
	Seconds   float64             `json:"seconds"`
	Succeeded bool                `json:"succeeded"`
}

// StepTiming records a named bring-up step's duration (login, export,
// page creation, ...).
type StepTiming struct {
	Step    string  `json:"step"`
	Seconds float64 `json:"seconds"`
}

// Summary is the closing block of metrics.json.
type Summary struct {
	TotalReferences      int     `json:"totalReferences"`
	Succeeded            int     `json:"succeeded"`
	Failed               int     `json:"failed"`
	AverageSecondsPerDoc float64 `json:"averageSecondsPerSuccessfulDownload"`
	EstimatedFullRunSecs float64 `json:"estimatedFullInventoryDurationSeconds"`
}

// document is the on-disk shape of metrics.json.
type document struct {
	Steps      []StepTiming       `json:"steps"`
	References []ReferenceOutcome `json:"references"`
	Summary    Summary            `json:"summary"`
}

// Metrics accumulates timings across a run and persists them on
// demand; safe for concurrent use by every worker.
type Metrics struct {
	mu         sync.Mutex
	path       string
	steps      []StepTiming
	references []ReferenceOutcome
	totalRefs  int
}

// New returns a Metrics that persists to path on each Flush call.
func New(path string, totalRefs int) *Metrics {
	return &Metrics{path: path, totalRefs: totalRefs}
}

// RecordStep appends a bring-up step timing.
func (m *Metrics) RecordStep(step string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, StepTiming{Step: step, Seconds: d.Seconds()})
}

// RecordReference appends one reference's outcome.
func (m *Metrics) RecordReference(ref reference.Reference, d time.Duration, succeeded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.references = append(m.references, ReferenceOutcome{Reference: ref, Seconds: d.Seconds(), Succeeded: succeeded})
}

// Summary computes the current summary block without writing anything
// to disk, so callers can fold it into a report after the run ends.
func (m *Metrics) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summaryLocked()
}

func (m *Metrics) summaryLocked() Summary {
	var succeeded, failed int
	var totalSeconds float64
	for _, r := range m.references {
		if r.Succeeded {
			succeeded++
			totalSeconds += r.Seconds
		} else {
			failed++
		}
	}

	avg := 0.0
	if succeeded > 0 {
		avg = totalSeconds / float64(succeeded)
	}

	return Summary{
		TotalReferences:      m.totalRefs,
		Succeeded:            succeeded,
		Failed:               failed,
		AverageSecondsPerDoc: avg,
		EstimatedFullRunSecs: avg * float64(m.totalRefs),
	}
}

// Flush computes the summary block and writes metrics.json atomically.
func (m *Metrics) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc := document{
		Steps:      m.steps,
		References: m.references,
		Summary:    m.summaryLocked(),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("runlog: marshal metrics: %w", err)
	}
	return atomicfile.Write(m.path, data, 0o644)
}
