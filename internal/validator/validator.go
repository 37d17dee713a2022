// Package validator implements the post-run PDF attribution check:
// since a reference swap is never detected online, every downloaded
// PDF is re-opened after the run and its content is checked for the
// reference string its filename claims, using
// github.com/pdfcpu/pdfcpu/pkg/api for PDF introspection and content
// extraction.
package validator

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/cordero-labs/refharvest/internal/integrity"
)

// Mismatch is one reference whose PDF file does not contain its own
// reference string, i.e. a suspected cross-worker popup swap.
type Mismatch struct {
	Reference string
	Path      string
	Reason    string
}

// Checksum pairs a reference with its PDF's sha256 digest, recorded
// alongside validation so a later run can detect silent corruption of
// an already-downloaded file without re-fetching it.
type Checksum struct {
	Reference string
	SHA256    string
}

// ChecksumDir computes a sha256 digest for every <reference>.pdf under
// pdfDir.
func ChecksumDir(pdfDir string) ([]Checksum, error) {
	entries, err := os.ReadDir(pdfDir)
	if err != nil {
		return nil, fmt.Errorf("validator: read %s: %w", pdfDir, err)
	}

	var sums []Checksum
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pdf") {
			continue
		}
		path := filepath.Join(pdfDir, entry.Name())
		sum, err := integrity.SHA256File(path)
		if err != nil {
			return nil, err
		}
		sums = append(sums, Checksum{
			Reference: strings.TrimSuffix(entry.Name(), ".pdf"),
			SHA256:    sum,
		})
	}
	return sums, nil
}

// ValidateDir re-opens every <reference>.pdf under pdfDir and verifies
// the reference string appears somewhere in the document's extracted
// content streams. It returns one Mismatch per file that fails the
// check; a nil, empty slice means every file validated.
func ValidateDir(pdfDir string) ([]Mismatch, error) {
	entries, err := os.ReadDir(pdfDir)
	if err != nil {
		return nil, fmt.Errorf("validator: read %s: %w", pdfDir, err)
	}

	var mismatches []Mismatch
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pdf") {
			continue
		}
		ref := strings.TrimSuffix(entry.Name(), ".pdf")
		path := filepath.Join(pdfDir, entry.Name())

		ok, err := containsReference(path, ref)
		if err != nil {
			mismatches = append(mismatches, Mismatch{Reference: ref, Path: path, Reason: err.Error()})
			continue
		}
		if !ok {
			mismatches = append(mismatches, Mismatch{Reference: ref, Path: path, Reason: "reference not found in document content"})
		}
	}
	return mismatches, nil
}

// containsReference extracts the raw content streams of the PDF at
// path into a scratch directory and scans them for ref as a literal
// ASCII substring. This is a best-effort check: it catches the common
// case where the target site renders the reference number as plain
// text on the document.
func containsReference(path, ref string) (bool, error) {
	if err := api.ValidateFile(path, nil); err != nil {
		return false, fmt.Errorf("validate %s: %w", path, err)
	}

	scratch, err := os.MkdirTemp("", "refharvest-validate-*")
	if err != nil {
		return false, fmt.Errorf("scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	if err := api.ExtractContentFile(path, scratch, nil, nil); err != nil {
		return false, fmt.Errorf("extract content %s: %w", path, err)
	}

	files, err := os.ReadDir(scratch)
	if err != nil {
		return false, fmt.Errorf("read scratch dir: %w", err)
	}

	needle := []byte(ref)
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(scratch, f.Name()))
		if err != nil {
			continue
		}
		if bytes.Contains(data, needle) {
			return true, nil
		}
	}
	return false, nil
}
