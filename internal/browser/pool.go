// Package browser wraps go-rod/rod to provide the page pool: a single
// authenticated browser context hosting N independent tabs, brought up
// in a strict sequence so that only one login ever occurs and every
// worker tab inherits its cookies, with go-rod/stealth applied to each
// page against a bot-averse site.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// blockedResourceTypes are aborted by the hijack router during page
// setup when Options.BlockResources is set, for throughput.
var blockedResourceTypes = map[proto.NetworkResourceType]bool{
	proto.NetworkResourceTypeImage:      true,
	proto.NetworkResourceTypeStylesheet: true,
	proto.NetworkResourceTypeFont:       true,
	proto.NetworkResourceTypeMedia:      true,
}

// Options configures Pool bring-up.
type Options struct {
	Headless       bool
	BlockResources bool
	Selectors      Selectors
	LoginURL       string
	InventoryURL   string
	Username       string
	Password       string
	Workers        int
}

// Pool is the single shared browser context C and its N worker pages.
type Pool struct {
	logger   *slog.Logger
	opts     Options
	browser  *rod.Browser
	launcher *launcher.Launcher
	pages    []*rod.Page // pages[0] is P0, the login/control page
}

// New launches a headless (or headed) Chromium instance and connects
// to it. Nothing is logged in yet; call BringUp to run the strictly
// serialized login + export + worker-page sequence.
func New(logger *slog.Logger, opts Options) (*Pool, error) {
	l := launcher.New().
		Headless(opts.Headless).
		Leakless(true).
		Set("disable-gpu", "1").
		Set("disable-dev-shm-usage", "1")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser: launch: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	return &Pool{logger: logger, opts: opts, browser: b, launcher: l}, nil
}

// BringUp performs the strictly serialized bring-up sequence: open P0,
// log in, handle the license interstitial, navigate to the
// inventory view and clear filters, export the CSV, then create the
// remaining worker pages, which inherit the authenticated session
// because they share browser context C. The exported CSV path is
// returned so the caller can hand it to the reference package.
func (p *Pool) BringUp(ctx context.Context, exportPath string) (csvPath string, err error) {
	p0, err := p.newPage()
	if err != nil {
		return "", fmt.Errorf("browser: open control page: %w", err)
	}
	p.pages = append(p.pages, p0)

	if err := Login(p0, p.opts.Selectors, p.opts.LoginURL, p.opts.Username, p.opts.Password); err != nil {
		return "", fmt.Errorf("browser: login: %w", err)
	}
	if err := AcceptLicenseIfPresent(p0, p.opts.Selectors); err != nil {
		return "", fmt.Errorf("browser: license interstitial: %w", err)
	}
	if err := p0.Navigate(p.opts.InventoryURL); err != nil {
		return "", fmt.Errorf("browser: navigate to inventory: %w", err)
	}
	if err := p0.WaitLoad(); err != nil {
		return "", fmt.Errorf("browser: wait inventory load: %w", err)
	}
	if err := ClearFilters(p0, p.opts.Selectors); err != nil {
		return "", fmt.Errorf("browser: clear filters: %w", err)
	}

	csvPath, err = ExportInventory(p0, p.opts.Selectors, exportPath)
	if err != nil {
		return "", fmt.Errorf("browser: export inventory: %w", err)
	}

	// Only after export do we create the worker pages; concurrent
	// logins are forbidden and this ordering keeps P0 the sole page
	// driving authentication.
	for i := 1; i < p.opts.Workers; i++ {
		pi, err := p.newPage()
		if err != nil {
			return "", fmt.Errorf("browser: create worker page %d: %w", i, err)
		}
		if err := pi.Navigate(p.opts.InventoryURL); err != nil {
			return "", fmt.Errorf("browser: worker page %d navigate: %w", i, err)
		}
		if err := pi.WaitLoad(); err != nil {
			return "", fmt.Errorf("browser: worker page %d wait load: %w", i, err)
		}
		p.pages = append(p.pages, pi)
	}

	p.logger.Info("browser session ready", "workers", p.opts.Workers)
	return csvPath, nil
}

func (p *Pool) newPage() (*rod.Page, error) {
	page, err := p.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, err
	}
	if err := stealth.Page(page); err != nil {
		return nil, fmt.Errorf("apply stealth patches: %w", err)
	}
	if p.opts.BlockResources {
		if err := installResourceBlocker(page); err != nil {
			return nil, err
		}
	}
	return page, nil
}

// installResourceBlocker aborts image/stylesheet/font/media requests
// on page.
func installResourceBlocker(page *rod.Page) error {
	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if blockedResourceTypes[h.Request.Type()] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return nil
}

// Page returns worker i's page (0 is P0, the control/login page).
func (p *Pool) Page(i int) *rod.Page {
	return p.pages[i]
}

// Browser returns the shared rod.Browser handle, needed by the PDF
// critical section to enumerate pages across all workers.
func (p *Pool) Browser() *rod.Browser {
	return p.browser
}

// Close tears down every page and the browser itself.
func (p *Pool) Close() error {
	for _, page := range p.pages {
		_ = page.Close()
	}
	if p.browser != nil {
		return p.browser.Close()
	}
	return nil
}

// ReauthenticateTimeout bounds how long a mid-run re-login may take
// before it is treated as a fatal setup failure.
const ReauthenticateTimeout = 30 * time.Second
