package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Mode identifies which fetch path produced a result.
type Mode string

const (
	ModePlain    Mode = "plain"
	ModeHeadless Mode = "headless"
	// ModeBoth appears only in errors, when both paths were tried and failed.
	ModeBoth Mode = "both"
)

// Result is the outcome of fetching one page. Immutable once produced.
type Result struct {
	URL     string
	HTML    string
	Mode    Mode
	Elapsed time.Duration
}

// Options control a single fetch.
type Options struct {
	// ForceJS skips the plain attempt and goes straight to the browser.
	ForceJS bool
	// WaitCSS is a selector the browser waits for before capturing markup.
	// When set, a failing browser fetch is terminal: the caller asked for an
	// element the page never produced.
	WaitCSS string
}

// Error describes a failed fetch and names the path that failed.
type Error struct {
	Mode Mode
	URL  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.URL, e.Mode, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// PlainGetter fetches markup over plain HTTP.
type PlainGetter interface {
	Get(ctx context.Context, url string) (string, error)
}

// Renderer fetches markup through a browser engine.
type Renderer interface {
	Render(ctx context.Context, url string, waitCSS string) (string, error)
}

// Fetcher decides between the plain and browser paths. The plain path is
// tried first and kept unless the markup looks JS-heavy; each path falls back
// to the other once on hard failure.
type Fetcher struct {
	Plain   PlainGetter
	Browser Renderer
}

// Do fetches url according to opts and returns the markup with the mode that
// produced it.
func (f *Fetcher) Do(ctx context.Context, url string, opts Options) (*Result, error) {
	start := time.Now()

	if opts.ForceJS {
		html, err := f.Browser.Render(ctx, url, opts.WaitCSS)
		if err == nil {
			return &Result{URL: url, HTML: html, Mode: ModeHeadless, Elapsed: time.Since(start)}, nil
		}
		if wantsSelector(opts) {
			return nil, &Error{Mode: ModeHeadless, URL: url, Err: err}
		}
		log.Warn().Err(err).Str("url", url).Msg("forced headless fetch failed; trying plain")
		plain, perr := f.Plain.Get(ctx, url)
		if perr != nil {
			return nil, &Error{Mode: ModeBoth, URL: url, Err: fmt.Errorf("headless: %v; plain: %w", err, perr)}
		}
		return &Result{URL: url, HTML: plain, Mode: ModePlain, Elapsed: time.Since(start)}, nil
	}

	html, err := f.Plain.Get(ctx, url)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("plain fetch failed; trying headless")
		rendered, rerr := f.Browser.Render(ctx, url, opts.WaitCSS)
		if rerr != nil {
			return nil, &Error{Mode: ModeBoth, URL: url, Err: fmt.Errorf("plain: %v; headless: %w", err, rerr)}
		}
		return &Result{URL: url, HTML: rendered, Mode: ModeHeadless, Elapsed: time.Since(start)}, nil
	}

	heavy, reason := LooksJSHeavy(html)
	if !heavy {
		return &Result{URL: url, HTML: html, Mode: ModePlain, Elapsed: time.Since(start)}, nil
	}
	log.Debug().Str("url", url).Str("reason", reason).Msg("page looks JS-heavy; rendering in browser")
	rendered, rerr := f.Browser.Render(ctx, url, opts.WaitCSS)
	if rerr != nil {
		if wantsSelector(opts) {
			return nil, &Error{Mode: ModeHeadless, URL: url, Err: rerr}
		}
		log.Warn().Err(rerr).Str("url", url).Msg("headless fetch failed; keeping plain result")
		return &Result{URL: url, HTML: html, Mode: ModePlain, Elapsed: time.Since(start)}, nil
	}
	return &Result{URL: url, HTML: rendered, Mode: ModeHeadless, Elapsed: time.Since(start)}, nil
}

func wantsSelector(opts Options) bool {
	return strings.TrimSpace(opts.WaitCSS) != ""
}
