package worker

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/cordero-labs/refharvest/internal/network"
)

// downloadPopupPDF fetches the PDF bytes rendered in popup through an
// HTTP client carrying the shared browser context's cookies. It does
// not rely on popup.GetDownloadFile, since the target renders the
// document inline rather than triggering Chromium's download manager.
func downloadPopupPDF(ctx context.Context, popup *rod.Page, limiter *network.Limiter) ([]byte, error) {
	info, err := popup.Info()
	if err != nil {
		return nil, fmt.Errorf("popup page info: %w", err)
	}

	cookies, err := popup.Cookies([]string{info.URL})
	if err != nil {
		return nil, fmt.Errorf("popup cookies: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("Accept", "application/pdf,*/*")
	for _, c := range cookies {
		req.AddCookie(protoCookieToHTTP(c))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download pdf: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download pdf: unexpected status %d", resp.StatusCode)
	}

	if limiter != nil {
		if err := limiter.Wait(ctx, int(resp.ContentLength)); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read pdf body: %w", err)
	}
	return body, nil
}

func protoCookieToHTTP(c *proto.NetworkCookie) *http.Cookie {
	return &http.Cookie{
		Name:   c.Name,
		Value:  c.Value,
		Domain: c.Domain,
		Path:   c.Path,
	}
}
