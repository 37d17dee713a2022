package rundir

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLayout(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)

	d, err := Create(root, now)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "2026-03-05"), d.Root)
	assert.DirExists(t, d.DataDir)
	assert.DirExists(t, d.PDFDir)
	assert.Equal(t, filepath.Join(d.DataDir, "tracking.json"), d.TrackingPath())
	assert.Equal(t, filepath.Join(d.DataDir, "checkpoint.json"), d.CheckpointPath())
	assert.Equal(t, filepath.Join(d.DataDir, "metrics.json"), d.MetricsPath())
	assert.Equal(t, filepath.Join(d.DataDir, "report.json"), d.ReportPath())
}

func TestCreateDisambiguatesNonEmptyDir(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)

	first, err := Create(root, now)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(first.DataDir, "tracking.json"), []byte("{}"), 0o644))

	second, err := Create(root, now)
	require.NoError(t, err)

	assert.NotEqual(t, first.Root, second.Root)
	assert.Equal(t, filepath.Join(root, "2026-03-05-1"), second.Root)
}

func TestCreateReusesEmptyDir(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "2026-03-05"), 0o755))

	d, err := Create(root, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "2026-03-05"), d.Root)
}

func TestOpenBindsExistingDir(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "2026-03-05")
	require.NoError(t, os.MkdirAll(path, 0o755))

	d, err := Open(path)
	require.NoError(t, err)
	assert.DirExists(t, d.DataDir)
	assert.DirExists(t, d.PDFDir)
}
