package runlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cordero-labs/refharvest/internal/reference"
)

func TestFlushComputesSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.json")
	m := New(path, 4)

	m.RecordStep("login", 2*time.Second)
	m.RecordReference(reference.Reference("A"), 10*time.Second, true)
	m.RecordReference(reference.Reference("B"), 30*time.Second, true)
	m.RecordReference(reference.Reference("C"), time.Second, false)

	require.NoError(t, m.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc document
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Len(t, doc.Steps, 1)
	assert.Len(t, doc.References, 3)
	assert.Equal(t, 4, doc.Summary.TotalReferences)
	assert.Equal(t, 2, doc.Summary.Succeeded)
	assert.Equal(t, 1, doc.Summary.Failed)
	assert.InDelta(t, 20.0, doc.Summary.AverageSecondsPerDoc, 0.001)
	assert.InDelta(t, 80.0, doc.Summary.EstimatedFullRunSecs, 0.001)
}

func TestFlushWithNoSuccessesHasZeroAverage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.json")
	m := New(path, 1)
	m.RecordReference(reference.Reference("A"), time.Second, false)

	require.NoError(t, m.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc document
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Zero(t, doc.Summary.AverageSecondsPerDoc)
	assert.Zero(t, doc.Summary.EstimatedFullRunSecs)
}
