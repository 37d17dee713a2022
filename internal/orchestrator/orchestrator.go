// Package orchestrator composes the page pool, task queue, worker
// pool, and watchdog into one complete run: bring up the session,
// spawn N workers and the watchdog under one supervised errgroup, wait
// for drain, and emit a final report.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cordero-labs/refharvest/internal/atomicfile"
	"github.com/cordero-labs/refharvest/internal/browser"
	"github.com/cordero-labs/refharvest/internal/checkpoint"
	"github.com/cordero-labs/refharvest/internal/config"
	"github.com/cordero-labs/refharvest/internal/logger"
	"github.com/cordero-labs/refharvest/internal/network"
	"github.com/cordero-labs/refharvest/internal/pdflock"
	"github.com/cordero-labs/refharvest/internal/reference"
	"github.com/cordero-labs/refharvest/internal/rundir"
	"github.com/cordero-labs/refharvest/internal/runlog"
	"github.com/cordero-labs/refharvest/internal/taskqueue"
	"github.com/cordero-labs/refharvest/internal/tracking"
	"github.com/cordero-labs/refharvest/internal/watchdog"
	"github.com/cordero-labs/refharvest/internal/worker"
)

// Report is the run summary: totals, per-outcome counts, throughput
// projections, and terminal failures with their last-error
// classification.
type Report struct {
	Attempted                              int                         `json:"attempted"`
	Succeeded                               int                         `json:"succeeded"`
	Failed                                  int                         `json:"failed"`
	AverageSecondsPerSuccessfulDownload     float64                     `json:"averageSecondsPerSuccessfulDownload"`
	EstimatedFullInventoryDurationSeconds   float64                     `json:"estimatedFullInventoryDurationSeconds"`
	TerminalFailed                          []taskqueue.TerminalFailure `json:"terminalFailed"`
	RunDir                                  string                      `json:"runDir"`
}

// Run executes one complete engine run in a freshly created run
// directory under downloadRoot. now is injected so callers control
// timestamps used for the run directory name and checkpoint records.
// console receives the colorized interactive log stream; the JSON
// stream is written to the run directory's log.jsonl regardless.
func Run(ctx context.Context, cfg config.Config, downloadRoot string, console io.Writer, now time.Time) (Report, error) {
	dir, err := rundir.Create(downloadRoot, now)
	if err != nil {
		return Report{}, fmt.Errorf("orchestrator: create run directory: %w", err)
	}
	return run(ctx, cfg, dir, console, now)
}

// Resume re-enters an existing run directory, loading its tracking and
// checkpoint stores so already-downloaded references are skipped and a
// restart with the same configuration deterministically continues
// where it left off.
func Resume(ctx context.Context, cfg config.Config, runDirPath string, console io.Writer, now time.Time) (Report, error) {
	dir, err := rundir.Open(runDirPath)
	if err != nil {
		return Report{}, fmt.Errorf("orchestrator: open run directory: %w", err)
	}
	return run(ctx, cfg, dir, console, now)
}

// run executes one complete engine run: session bring-up, inventory
// diff against tracking, N workers plus the watchdog, drain, and
// report emission.
func run(ctx context.Context, cfg config.Config, dir rundir.Dir, console io.Writer, now time.Time) (Report, error) {
	logFile, err := os.OpenFile(dir.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return Report{}, fmt.Errorf("orchestrator: open log file: %w", err)
	}
	defer logFile.Close()
	log := logger.New(console, logFile)

	pool, err := browser.New(log, browser.Options{
		Headless:       cfg.Headless,
		BlockResources: cfg.BlockResources,
		Selectors:      browser.DefaultSelectors(),
		LoginURL:       cfg.LoginURL,
		InventoryURL:   cfg.InventoryURL,
		Username:       cfg.Username,
		Password:       cfg.Password,
		Workers:        cfg.ConcurrentContexts,
	})
	if err != nil {
		return Report{}, fmt.Errorf("orchestrator: launch browser: %w", err)
	}
	defer pool.Close()

	bringUpStart := time.Now()
	csvPath, err := pool.BringUp(ctx, dir.ExportFile)
	if err != nil {
		return Report{}, fmt.Errorf("orchestrator: session bring-up: %w", err)
	}

	inventory, err := reference.Load(csvPath, cfg.RefColumn)
	if err != nil {
		return Report{}, fmt.Errorf("orchestrator: load exported inventory: %w", err)
	}

	trackStore, err := tracking.Open(dir.TrackingPath())
	if err != nil {
		return Report{}, fmt.Errorf("orchestrator: open tracking store: %w", err)
	}
	checkStore, err := checkpoint.Open(dir.CheckpointPath(), now)
	if err != nil {
		return Report{}, fmt.Errorf("orchestrator: open checkpoint store: %w", err)
	}

	pending := pendingReferences(inventory.References(), trackStore, cfg.MaxDownloads, dir.PDFDir)
	for _, ref := range pending {
		_ = trackStore.EnsurePending(ref)
	}

	metrics := runlog.New(dir.MetricsPath(), len(pending))
	metrics.RecordStep("bring-up", time.Since(bringUpStart))

	queue := taskqueue.New(pending)
	lock := pdflock.New()
	limiter := network.NewLimiter()
	limiter.SetLimit(cfg.DownloadBytesPerSecond)

	deps := worker.Deps{
		Queue:        queue,
		Tracking:     trackStore,
		Checkpoint:   checkStore,
		Metrics:      metrics,
		Lock:         lock,
		Pool:         pool,
		Selectors:    browser.DefaultSelectors(),
		Limiter:      limiter,
		PDFDir:       dir.PDFDir,
		LoginURL:     cfg.LoginURL,
		Username:     cfg.Username,
		Password:     cfg.Password,
		TaskTimeout:  cfg.TaskTimeout(),
		MaxRetries:   cfg.MaxRetries,
		Logger:       log,
	}

	eg, runCtx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.ConcurrentContexts; i++ {
		i := i
		eg.Go(func() error {
			w := worker.New(fmt.Sprintf("worker-%d", i), pool.Page(i), deps)
			return w.Run(runCtx)
		})
	}

	wd := watchdog.New(queue, cfg.WatchdogInterval(), cfg.StuckThreshold(), log)
	eg.Go(func() error {
		return wd.Run(runCtx)
	})

	groupErr := eg.Wait()
	fatal := errors.Is(groupErr, browser.ErrSessionLost)
	if groupErr != nil && !fatal && ctx.Err() == nil {
		log.Warn("worker pool exited with error", "error", groupErr)
	}

	_ = metrics.Flush()
	summary := metrics.Summary()

	stats := queue.Stats()
	report := Report{
		Attempted:                            checkStore.Get().Attempted,
		Succeeded:                             stats.Completed,
		Failed:                                stats.TerminalFailed,
		AverageSecondsPerSuccessfulDownload:   summary.AverageSecondsPerDoc,
		EstimatedFullInventoryDurationSeconds: summary.EstimatedFullRunSecs,
		TerminalFailed:                        queue.TerminalFailures(),
		RunDir:                                dir.Root,
	}
	log.Info("run complete", "attempted", report.Attempted, "succeeded", report.Succeeded, "failed", report.Failed)
	if err := writeReport(dir.ReportPath(), report); err != nil {
		log.Warn("failed to write report.json", "error", err)
	}

	if fatal {
		log.Error("run terminated fatally: reauthentication failed", "error", groupErr)
		return report, fmt.Errorf("orchestrator: fatal: %w", groupErr)
	}
	return report, nil
}

func writeReport(path string, report Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("orchestrator: marshal report: %w", err)
	}
	return atomicfile.Write(path, data, 0o644)
}

// pendingReferences computes the set of references to enqueue this
// run: every inventory reference not already marked downloaded,
// capped at maxDownloads if positive. A reference marked Failed is
// requeued only if its PDF is not already sitting in pdfDir — if the
// file exists, a previous attempt must have written it before the
// terminal failure was recorded, and leaving it alone avoids
// clobbering a usable download with a fresh, possibly worse, attempt.
func pendingReferences(all []reference.Reference, store *tracking.Store, maxDownloads int, pdfDir string) []reference.Reference {
	var pending []reference.Reference
	for _, ref := range all {
		switch store.Get(ref) {
		case tracking.Downloaded:
			continue
		case tracking.Failed:
			if pdfFileExists(pdfDir, ref) {
				continue
			}
		}
		pending = append(pending, ref)
		if maxDownloads > 0 && len(pending) >= maxDownloads {
			break
		}
	}
	return pending
}

func pdfFileExists(pdfDir string, ref reference.Reference) bool {
	_, err := os.Stat(filepath.Join(pdfDir, string(ref)+".pdf"))
	return err == nil
}
