package app

import (
	"net"
	"net/http"
	"time"
)

// newHTTPClient builds the client shared by the plain fetcher and the LLM
// transport. budget is the caller's per-call bound; the client timeout is a
// backstop sized above it.
func newHTTPClient(budget time.Duration) *http.Client {
	backstop := 90 * time.Second
	if budget+10*time.Second > backstop {
		backstop = budget + 10*time.Second
	}
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	return &http.Client{
		Timeout: backstop,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			ForceAttemptHTTP2:   true,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}
