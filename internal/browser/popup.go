package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// AwaitPopup arms a context-scoped listener for a new page target
// before click runs it, then waits up to timeout for that target to
// appear. Listening at browser-context scope rather than on a single
// page (rod.Page.WaitOpen) is deliberate: page-scoped listening may
// narrow the hazard window on environments that support it, but the
// process-wide mutex is the primary defense regardless, so this helper
// never assumes which page triggers the popup.
func AwaitPopup(ctx context.Context, browser *rod.Browser, timeout time.Duration, click func() error) (*rod.Page, error) {
	var targetID proto.TargetTargetID
	b := browser.Context(ctx)
	wait := b.EachEvent(func(e *proto.TargetTargetCreated) bool {
		if e.TargetInfo.Type != "page" {
			return false
		}
		targetID = e.TargetInfo.TargetID
		return true
	})

	if err := click(); err != nil {
		return nil, fmt.Errorf("click create-pdf: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()

	select {
	case <-done:
	case <-waitCtx.Done():
		return nil, fmt.Errorf("%w: %w", ErrPopupTimeout, waitCtx.Err())
	}

	page, err := b.PageFromTarget(targetID)
	if err != nil {
		return nil, fmt.Errorf("attach to popup target: %w", err)
	}
	return page, nil
}

// CloseStrayPopups enumerates every page in the shared context other
// than the known worker pages and closes anything left over. It
// satisfies pdflock.PopupVerifier.
func (p *Pool) CloseStrayPopups(ctx context.Context) error {
	known := make(map[proto.TargetTargetID]bool, len(p.pages))
	for _, pg := range p.pages {
		known[pg.TargetID] = true
	}

	pages, err := p.browser.Pages()
	if err != nil {
		return fmt.Errorf("enumerate pages: %w", err)
	}

	var firstErr error
	for _, pg := range pages {
		if known[pg.TargetID] {
			continue
		}
		if err := pg.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close stray popup %s: %w", pg.TargetID, err)
		}
	}
	return firstErr
}
