package tracking

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cordero-labs/refharvest/internal/reference"
)

func TestMarkDownloadedThenReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking.json")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.EnsurePending(reference.Reference("A")))
	require.NoError(t, s.MarkDownloaded(reference.Reference("A")))

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, Downloaded, reopened.Get(reference.Reference("A")))
}

func TestDownloadedNeverDemoted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking.json")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.MarkDownloaded(reference.Reference("A")))
	require.NoError(t, s.MarkFailed(reference.Reference("A")))

	assert.Equal(t, Downloaded, s.Get(reference.Reference("A")))
}

func TestEnsurePendingDoesNotOverwriteExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking.json")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.MarkFailed(reference.Reference("A")))
	require.NoError(t, s.EnsurePending(reference.Reference("A")))

	assert.Equal(t, Failed, s.Get(reference.Reference("A")))
}

func TestGetUnknownReferenceIsPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking.json")
	s, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, Pending, s.Get(reference.Reference("unknown")))
}

func TestSnapshotIsACopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking.json")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.MarkDownloaded(reference.Reference("A")))

	snap := s.Snapshot()
	snap[reference.Reference("A")] = Failed

	assert.Equal(t, Downloaded, s.Get(reference.Reference("A")))
}
