// Package rundir creates the per-run output directory structure: a
// directory named by date, disambiguated with a numeric discriminator
// if one already exists non-empty, with run_data/ and pdfs/
// subfolders.
package rundir

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Dir is a created run directory and its well-known subpaths.
type Dir struct {
	Root       string
	DataDir    string
	PDFDir     string
	ExportFile string
}

// Create makes a new run directory under root, named by date and
// disambiguated with a numeric suffix if a non-empty directory of
// that name already exists.
func Create(root string, now time.Time) (Dir, error) {
	base := now.Format("2006-01-02")
	name := base
	for suffix := 1; ; suffix++ {
		candidate := filepath.Join(root, name)
		empty, err := isEmptyOrAbsent(candidate)
		if err != nil {
			return Dir{}, fmt.Errorf("rundir: stat %s: %w", candidate, err)
		}
		if empty {
			if err := os.MkdirAll(candidate, 0o755); err != nil {
				return Dir{}, fmt.Errorf("rundir: create %s: %w", candidate, err)
			}
			return newDir(candidate)
		}
		name = fmt.Sprintf("%s-%d", base, suffix)
	}
}

// Open binds Dir to an existing run directory without creating
// anything, for the resume path.
func Open(path string) (Dir, error) {
	return newDir(path)
}

func newDir(root string) (Dir, error) {
	d := Dir{
		Root:       root,
		DataDir:    filepath.Join(root, "run_data"),
		PDFDir:     filepath.Join(root, "pdfs"),
		ExportFile: filepath.Join(root, "run_data", "inventory.csv"),
	}
	if err := os.MkdirAll(d.DataDir, 0o755); err != nil {
		return Dir{}, fmt.Errorf("rundir: create run_data: %w", err)
	}
	if err := os.MkdirAll(d.PDFDir, 0o755); err != nil {
		return Dir{}, fmt.Errorf("rundir: create pdfs: %w", err)
	}
	return d, nil
}

// TrackingPath is run_data/tracking.json.
func (d Dir) TrackingPath() string { return filepath.Join(d.DataDir, "tracking.json") }

// CheckpointPath is run_data/checkpoint.json.
func (d Dir) CheckpointPath() string { return filepath.Join(d.DataDir, "checkpoint.json") }

// MetricsPath is run_data/metrics.json.
func (d Dir) MetricsPath() string { return filepath.Join(d.DataDir, "metrics.json") }

// ReportPath is run_data/report.json.
func (d Dir) ReportPath() string { return filepath.Join(d.DataDir, "report.json") }

// LogPath is run_data/log.jsonl, the JSON-lines sink for the fanout
// logger.
func (d Dir) LogPath() string { return filepath.Join(d.DataDir, "log.jsonl") }

func isEmptyOrAbsent(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}
