package validator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumDirSkipsNonPDFFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))

	sums, err := ChecksumDir(dir)
	require.NoError(t, err)
	assert.Empty(t, sums)
}

func TestChecksumDirMissingDir(t *testing.T) {
	_, err := ChecksumDir(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestValidateDirReportsCorruptPDFAsMismatch(t *testing.T) {
	dir := t.TempDir()
	// Not a real PDF: pdfcpu's ValidateFile must reject it, which
	// containsReference surfaces as a Mismatch rather than a fatal error.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "REF-001.pdf"), []byte("not a pdf"), 0o644))

	mismatches, err := ValidateDir(dir)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "REF-001", mismatches[0].Reference)
}

func TestValidateDirMissingDir(t *testing.T) {
	_, err := ValidateDir(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
