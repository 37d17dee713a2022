package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"testing"
)

func TestSHA256File(t *testing.T) {
	content := []byte("hello world")
	tmpFile, err := os.CreateTemp("", "hash_test")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())
	if _, err := tmpFile.Write(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	tmpFile.Close()

	expected := sha256.Sum256(content)
	expectedStr := hex.EncodeToString(expected[:])

	actual, err := SHA256File(tmpFile.Name())
	if err != nil {
		t.Fatalf("SHA256File failed: %v", err)
	}
	if actual != expectedStr {
		t.Errorf("expected %s, got %s", expectedStr, actual)
	}
}

func TestSHA256FileMissing(t *testing.T) {
	if _, err := SHA256File("/nonexistent/path/refharvest.pdf"); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}
