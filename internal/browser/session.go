package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// Login fills and submits the credentials form on page.
func Login(page *rod.Page, sel Selectors, loginURL, username, password string) error {
	if err := page.Navigate(loginURL); err != nil {
		return fmt.Errorf("navigate to login page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait login page load: %w", err)
	}

	userEl, err := page.Timeout(10 * time.Second).Element(sel.UsernameInput)
	if err != nil {
		return fmt.Errorf("find username input: %w", err)
	}
	if err := userEl.Input(username); err != nil {
		return fmt.Errorf("fill username: %w", err)
	}

	passEl, err := page.Element(sel.PasswordInput)
	if err != nil {
		return fmt.Errorf("find password input: %w", err)
	}
	if err := passEl.Input(password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}

	submitEl, err := page.Element(sel.LoginSubmit)
	if err != nil {
		return fmt.Errorf("find submit button: %w", err)
	}
	if err := submitEl.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click submit: %w", err)
	}

	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait post-login load: %w", err)
	}
	return nil
}

// AcceptLicenseIfPresent clicks the license/terms interstitial button
// if it appears, tolerating its absence for deployments that don't
// present one.
func AcceptLicenseIfPresent(page *rod.Page, sel Selectors) error {
	has, el, err := page.Timeout(3 * time.Second).Has(sel.LicenseAccept)
	if err != nil {
		return nil // no reliable way to distinguish "absent" from a transient query failure; treat as absent
	}
	if !has {
		return nil
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// ClearFilters resets any inventory filter left over from a prior run
// or a cached page, so ExportInventory always produces the full
// reference list rather than a stale subset.
func ClearFilters(page *rod.Page, sel Selectors) error {
	has, el, err := page.Timeout(5 * time.Second).Has(sel.ClearFilter)
	if err != nil || !has {
		return nil
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click clear filters: %w", err)
	}
	return page.WaitLoad()
}

// ExportInventory triggers the site's CSV export and waits for the
// resulting download, saving it to destPath using rod's browser-level
// WaitDownload guard.
func ExportInventory(page *rod.Page, sel Selectors, destPath string) (string, error) {
	btn, err := page.Element(sel.ExportCSVButton)
	if err != nil {
		return "", fmt.Errorf("find export button: %w", err)
	}

	// WaitDownload saves into a directory under the download's GUID, so
	// the file is renamed onto destPath once it lands.
	downloadDir := filepath.Dir(destPath)
	wait := page.Browser().WaitDownload(downloadDir)
	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return "", fmt.Errorf("click export: %w", err)
	}
	info := wait()
	if info == nil {
		return "", fmt.Errorf("export: no download observed")
	}
	if err := os.Rename(filepath.Join(downloadDir, info.GUID), destPath); err != nil {
		return "", fmt.Errorf("export: move download to %s: %w", destPath, err)
	}
	return destPath, nil
}

// IsLoggedOut reports whether page currently shows the login form,
// which is how session loss is detected mid-run.
func IsLoggedOut(page *rod.Page, sel Selectors) bool {
	has, _, err := page.Timeout(3 * time.Second).Has(sel.UsernameInput)
	return err == nil && has
}

// Reauthenticate re-runs Login against page and must only ever be
// called while the PDF critical-section lock is held, since a
// concurrent worker could otherwise observe the page mid-navigation.
func Reauthenticate(page *rod.Page, sel Selectors, loginURL, username, password string) error {
	return Login(page.Timeout(ReauthenticateTimeout), sel, loginURL, username, password)
}

// OpenReferenceDetail filters the inventory grid down to ref and opens
// its detail view, the first half of the per-task processing
// procedure.
func OpenReferenceDetail(page *rod.Page, sel Selectors, ref string) error {
	filterEl, err := page.Element(sel.ReferenceFilter)
	if err != nil {
		return fmt.Errorf("find reference filter: %w", err)
	}
	if err := filterEl.SelectAllText(); err != nil {
		return fmt.Errorf("select filter text: %w", err)
	}
	if err := filterEl.Input(ref); err != nil {
		return fmt.Errorf("input reference: %w", err)
	}
	if err := page.Keyboard.Type(input.Enter); err != nil {
		return fmt.Errorf("submit filter: %w", err)
	}
	if err := page.WaitStable(500 * time.Millisecond); err != nil {
		return fmt.Errorf("wait filtered grid stable: %w", err)
	}

	rowSelector := fmt.Sprintf(sel.RowOpenByRef, ref)
	rowEl, err := page.Timeout(15 * time.Second).Element(rowSelector)
	if err != nil {
		return fmt.Errorf("find row for reference %s: %w", ref, err)
	}
	return rowEl.Click(proto.InputMouseButtonLeft, 1)
}
