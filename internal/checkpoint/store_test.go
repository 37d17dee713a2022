package checkpoint

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAttemptSuccessFailureSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	now := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)

	s, err := Open(path, now)
	require.NoError(t, err)

	require.NoError(t, s.RecordAttempt("A", now))
	require.NoError(t, s.RecordSuccess(now.Add(time.Second)))
	require.NoError(t, s.RecordAttempt("B", now.Add(2*time.Second)))
	require.NoError(t, s.RecordFailure(now.Add(3*time.Second)))
	require.NoError(t, s.RecordAttempt("C", now.Add(4*time.Second)))
	require.NoError(t, s.RecordFailure(now.Add(5*time.Second)))

	rec := s.Get()
	assert.Equal(t, 3, rec.Attempted)
	assert.Equal(t, 1, rec.Succeeded)
	assert.Equal(t, 2, rec.Failed)
	assert.Equal(t, 2, rec.ConsecutiveFailures)
	assert.Equal(t, "C", rec.LastReference)
}

func TestSuccessResetsConsecutiveFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	now := time.Now()

	s, err := Open(path, now)
	require.NoError(t, err)

	require.NoError(t, s.RecordFailure(now))
	require.NoError(t, s.RecordFailure(now))
	require.NoError(t, s.RecordSuccess(now))

	assert.Zero(t, s.Get().ConsecutiveFailures)
}

func TestReopenRestoresRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	now := time.Now()

	s, err := Open(path, now)
	require.NoError(t, err)
	require.NoError(t, s.RecordAttempt("A", now))
	require.NoError(t, s.RecordSuccess(now))

	reopened, err := Open(path, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Get().Attempted)
	assert.Equal(t, 1, reopened.Get().Succeeded)
}

func TestOpenFreshStampsRunStartedAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	now := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)

	s, err := Open(path, now)
	require.NoError(t, err)
	assert.True(t, s.Get().RunStartedAt.Equal(now))
}
