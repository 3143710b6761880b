// Package httpclient constructs the outbound HTTP client used for Notion
// API calls. One place owns timeouts, connection pooling, and the redirect
// cap so adapters never build their own clients.
package httpclient

import (
	"net"
	"net/http"
	"time"

	"github.com/a13xperi/kaa-notion-backend-sub005/errors"
)

const maxRedirects = 10

// New returns an HTTP client with the given overall request timeout.
// The timeout covers the full exchange; a timed-out call surfaces as a
// generic adapter failure and enters the retry path.
func New(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errors.Newf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}
