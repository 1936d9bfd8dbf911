package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// Browser renders pages in headless Chrome and captures the final DOM markup.
// Each Render spawns a fresh browser process and tears it down afterwards.
type Browser struct {
	UserAgent string
	// Timeout bounds navigation and capture. Zero means only the caller's
	// context applies.
	Timeout time.Duration
	// WaitTimeout separately bounds the optional wait for a CSS selector.
	WaitTimeout time.Duration
}

// Render loads url, waits for the body to be ready and, when waitCSS is
// non-empty, for that selector to become visible, then returns the rendered
// markup. A selector that never appears within WaitTimeout is an error, never
// an empty capture.
func (b *Browser) Render(ctx context.Context, url string, waitCSS string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if b.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.UserAgent))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		browserCtx, cancel = context.WithTimeout(browserCtx, b.Timeout)
		defer cancel()
	}

	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("navigate %s: %w", url, err)
	}

	if sel := strings.TrimSpace(waitCSS); sel != "" {
		waitCtx := browserCtx
		if b.WaitTimeout > 0 {
			var cancel context.CancelFunc
			waitCtx, cancel = context.WithTimeout(browserCtx, b.WaitTimeout)
			defer cancel()
		}
		if err := chromedp.Run(waitCtx, chromedp.WaitVisible(sel, chromedp.ByQuery)); err != nil {
			return "", fmt.Errorf("wait for %q: %w", sel, err)
		}
	}

	var html string
	if err := chromedp.Run(browserCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("capture markup: %w", err)
	}
	return html, nil
}
