// Package worker implements the per-task processing procedure and
// worker loop: a task-consuming goroutine that gets a reference from
// the queue, drives the browser through the detail-view and
// create-PDF steps, downloads the resulting PDF under the
// process-wide critical section, and reports the outcome.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"

	"github.com/cordero-labs/refharvest/internal/atomicfile"
	"github.com/cordero-labs/refharvest/internal/browser"
	"github.com/cordero-labs/refharvest/internal/checkpoint"
	"github.com/cordero-labs/refharvest/internal/network"
	"github.com/cordero-labs/refharvest/internal/pdflock"
	"github.com/cordero-labs/refharvest/internal/reference"
	"github.com/cordero-labs/refharvest/internal/runlog"
	"github.com/cordero-labs/refharvest/internal/taskqueue"
	"github.com/cordero-labs/refharvest/internal/tracking"
)

// inProcedureRetries bounds the small in-worker recovery loop that
// retries the current reference's processing steps on a transient page
// error, distinct from the queue-level maxRetries.
const inProcedureRetries = 2

// ErrTaskDeadline is returned when a reference's processing procedure
// exceeds its per-task timeout.
var ErrTaskDeadline = errors.New("worker: task exceeded its timeout")

// Deps bundles the collaborators a Worker needs, all shared across the
// whole pool of workers.
type Deps struct {
	Queue        *taskqueue.Queue
	Tracking     *tracking.Store
	Checkpoint   *checkpoint.Store
	Metrics      *runlog.Metrics
	Lock         *pdflock.Lock
	Pool         *browser.Pool
	Selectors    browser.Selectors
	Limiter      *network.Limiter
	PDFDir       string
	LoginURL     string
	Username     string
	Password     string
	TaskTimeout  time.Duration
	PopupTimeout time.Duration
	MaxRetries   int
	Logger       *slog.Logger
}

// Worker drives one page Pi through the task queue until drain.
type Worker struct {
	id   string
	page *rod.Page
	deps Deps
}

// New returns a Worker bound to page, one of the pool's tabs.
func New(id string, page *rod.Page, deps Deps) *Worker {
	if deps.PopupTimeout == 0 {
		deps.PopupTimeout = 20 * time.Second
	}
	return &Worker{id: id, page: page, deps: deps}
}

// Run executes the worker loop until the queue drains, ctx is
// cancelled, or a reference hits a fatal error (session loss that
// re-authentication could not repair), in which case Run returns that
// error so the caller can abort the whole run.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		ref, ok := w.deps.Queue.Get(w.id, time.Now())
		if !ok {
			if w.deps.Queue.Stats().Drained() {
				return nil
			}
			select {
			case <-time.After(200 * time.Millisecond):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := w.runOne(ctx, ref); err != nil {
			return err
		}
	}
}

// runOne returns nil for every outcome that the queue's own retry and
// terminal-failure bookkeeping can absorb. It returns a non-nil error
// only for a fatal condition — reauthentication failure — that must
// end the run rather than be counted as one more retryable failure.
func (w *Worker) runOne(ctx context.Context, ref reference.Reference) error {
	attemptID := uuid.New().String()
	_ = w.deps.Checkpoint.RecordAttempt(string(ref), time.Now())
	start := time.Now()

	taskCtx, cancel := context.WithTimeout(ctx, w.deps.TaskTimeout)
	defer cancel()

	err := w.process(taskCtx, ref)
	if err != nil && taskCtx.Err() == context.DeadlineExceeded {
		err = fmt.Errorf("%w: %w", ErrTaskDeadline, err)
	}

	if err == nil {
		w.deps.Queue.Complete(ref)
		_ = w.deps.Tracking.MarkDownloaded(ref)
		_ = w.deps.Checkpoint.RecordSuccess(time.Now())
		if w.deps.Metrics != nil {
			w.deps.Metrics.RecordReference(ref, time.Since(start), true)
		}
		w.deps.Logger.Info("reference downloaded", "worker", w.id, "reference", ref, "attempt_id", attemptID)
		return nil
	}

	if errors.Is(err, browser.ErrSessionLost) {
		w.deps.Logger.Error("reauthentication failed, aborting run", "worker", w.id, "reference", ref, "attempt_id", attemptID, "error", err)
		return err
	}

	if w.deps.Metrics != nil {
		w.deps.Metrics.RecordReference(ref, time.Since(start), false)
	}

	terminal := !w.deps.Queue.Fail(ref, w.deps.MaxRetries, err)
	if terminal {
		_ = w.deps.Tracking.MarkFailed(ref)
		_ = w.deps.Checkpoint.RecordFailure(time.Now())
		w.deps.Logger.Error("reference failed terminally", "worker", w.id, "reference", ref, "attempt_id", attemptID, "error", err)
	} else {
		w.deps.Logger.Warn("reference requeued after failure", "worker", w.id, "reference", ref, "attempt_id", attemptID, "error", err)
	}
	return nil
}

// process checks the session is still alive, fatally if not, then runs
// the detail-view-through-download procedure wrapped in retry.Do for
// bounded in-worker recovery on transient page errors.
func (w *Worker) process(ctx context.Context, ref reference.Reference) error {
	if browser.IsLoggedOut(w.page, w.deps.Selectors) {
		if err := w.reauthenticate(ctx); err != nil {
			return fmt.Errorf("%w: %w", browser.ErrSessionLost, err)
		}
	}

	return retry.Do(
		func() error { return w.attempt(ctx, ref) },
		retry.Context(ctx),
		retry.Attempts(inProcedureRetries+1),
		retry.DelayType(retry.FixedDelay),
		retry.Delay(500*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			w.deps.Logger.Warn("recovering page after transient error", "worker", w.id, "reference", ref, "attempt", n, "error", err)
			w.recoverPage()
		}),
	)
}

func (w *Worker) attempt(ctx context.Context, ref reference.Reference) error {
	if err := browser.OpenReferenceDetail(w.page, w.deps.Selectors, string(ref)); err != nil {
		return fmt.Errorf("open detail view: %w", err)
	}

	var pdfBytes []byte
	critErr := w.deps.Lock.Critical(ctx, func(ctx context.Context) error {
		popup, err := browser.AwaitPopup(ctx, w.deps.Pool.Browser(), w.deps.PopupTimeout, func() error {
			btn, err := w.page.Element(w.deps.Selectors.CreatePDFButton)
			if err != nil {
				return err
			}
			return btn.Click(proto.InputMouseButtonLeft, 1)
		})
		if err != nil {
			return fmt.Errorf("await popup: %w", err)
		}
		defer popup.Close()

		if err := popup.WaitLoad(); err != nil {
			return fmt.Errorf("wait popup load: %w", err)
		}

		b, err := downloadPopupPDF(ctx, popup, w.deps.Limiter)
		if err != nil {
			return fmt.Errorf("download: %w", err)
		}
		pdfBytes = b
		return nil
	}, w.deps.Pool.CloseStrayPopups)
	if critErr != nil {
		return fmt.Errorf("pdf critical section: %w", critErr)
	}

	if len(pdfBytes) == 0 {
		return errors.New("pdf critical section produced no bytes")
	}

	destPath := filepath.Join(w.deps.PDFDir, string(ref)+".pdf")
	if err := atomicfile.Write(destPath, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}

	if err := browser.ClearFilters(w.page, w.deps.Selectors); err != nil {
		return fmt.Errorf("return to inventory: %w", err)
	}
	return nil
}

// reauthenticate serializes re-login under the PDF critical-section
// lock, driving pages[0] in the shared pool so every worker re-logs-in
// through the same control page regardless of which tab detected the
// logout.
func (w *Worker) reauthenticate(ctx context.Context) error {
	return w.deps.Lock.Critical(ctx, func(ctx context.Context) error {
		return browser.Reauthenticate(w.deps.Pool.Page(0), w.deps.Selectors, w.deps.LoginURL, w.deps.Username, w.deps.Password)
	}, nil)
}

// recoverPage clears the inventory filter on the worker's page after a
// transient error. It does not navigate the page back to the inventory
// view.
func (w *Worker) recoverPage() {
	_ = browser.ClearFilters(w.page, w.deps.Selectors)
}

