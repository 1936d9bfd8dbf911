package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// DefaultMaxBodyBytes bounds how much markup a plain fetch will read.
const DefaultMaxBodyBytes = 10 << 20 // 10 MiB

// defaultRedirectHops caps redirect chains when RedirectMaxHops is unset.
const defaultRedirectHops = 5

// Client performs plain HTTP fetches with an explicit timeout, size bound,
// and HTML content-type gate. Responses are decoded to UTF-8 via their
// declared charset.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// Timeout bounds each request. Zero means only the caller's context applies.
	Timeout time.Duration
	// MaxBodyBytes caps how much of the response is read. Zero means
	// DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// RedirectMaxHops caps redirect following. Zero means defaultRedirectHops.
	RedirectMaxHops int
}

// Get issues a single GET and returns the decoded markup.
func (c *Client) Get(ctx context.Context, rawURL string) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	if s := strings.ToLower(req.URL.Scheme); s != "http" && s != "https" {
		return "", fmt.Errorf("unsupported URL scheme: %q", rawURL)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := c.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !htmlContentType(ct) {
		return "", fmt.Errorf("unsupported content type: %s", ct)
	}

	limit := c.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return decodeToUTF8(body, ct), nil
}

// client attaches the redirect policy, cloning an injected client rather than
// mutating it.
func (c *Client) client() *http.Client {
	hops := c.RedirectMaxHops
	if hops <= 0 {
		hops = defaultRedirectHops
	}
	redirect := func(req *http.Request, via []*http.Request) error {
		if len(via) >= hops {
			return errors.New("too many redirects")
		}
		if s := strings.ToLower(req.URL.Scheme); s != "http" && s != "https" {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
	if c.HTTPClient == nil {
		return &http.Client{CheckRedirect: redirect}
	}
	clone := *c.HTTPClient
	clone.CheckRedirect = redirect
	return &clone
}

// decodeToUTF8 converts markup to UTF-8 using the Content-Type header and any
// declared meta charset. On any decoding trouble the raw bytes are returned
// as-is rather than failing the fetch.
func decodeToUTF8(body []byte, contentType string) string {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return string(body)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

func htmlContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}
