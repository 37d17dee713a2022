package reference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDeduplicatesAndSkipsEmpty(t *testing.T) {
	path := writeCSV(t, "reference,description\nA,first\nA,duplicate\n,blank\nB,second\n")

	inv, err := Load(path, "reference")
	require.NoError(t, err)

	assert.Equal(t, []Reference{"A", "B"}, inv.References())
	assert.Equal(t, "first", inv.Records[0].Raw["description"])
}

func TestLoadMissingColumnErrors(t *testing.T) {
	path := writeCSV(t, "id,description\n1,first\n")

	_, err := Load(path, "reference")
	assert.Error(t, err)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"), "reference")
	assert.Error(t, err)
}

func TestLoadToleratesRaggedRows(t *testing.T) {
	path := writeCSV(t, "reference,description\nA,first,extra\nB\n")

	inv, err := Load(path, "reference")
	require.NoError(t, err)
	assert.Equal(t, []Reference{"A", "B"}, inv.References())
}
