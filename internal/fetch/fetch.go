// Package fetch implements the synchronous segment-source collaborator: a
// blocking HTTP(S) byte fetcher with per-request timeout and bounded retries,
// optionally riding HTTP/3.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/quic-go/quic-go/http3"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "anhelo/1.0"
	maxAttempts      = 3
	retryDelay       = 100 * time.Millisecond
)

// Client fetches playlist and segment bodies. All fetches are synchronous:
// the pipeline blocks until the body is read or the deadline passes.
type Client struct {
	httpClient *http.Client
	log        *slog.Logger
	userAgent  string
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request deadline (default 10s).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTP3 switches the transport to HTTP/3 over QUIC. Only origins that
// speak HTTP/3 directly can be fetched in this mode; there is no Alt-Svc
// fallback to TCP.
func WithHTTP3() Option {
	return func(c *Client) {
		c.httpClient.Transport = &http3.Transport{}
	}
}

// WithHTTPClient substitutes the underlying *http.Client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a fetch client. If log is nil, slog.Default() is used.
func New(log *slog.Logger, opts ...Option) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		httpClient: &http.Client{},
		log:        log.With("component", "fetch"),
		userAgent:  defaultUserAgent,
		timeout:    defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads url and returns the full body. Transport errors and
// non-2xx responses are retried up to maxAttempts times with a fixed delay;
// the last failure is returned. Context cancellation aborts immediately.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		data, err := c.fetchOnce(ctx, url)
		if err == nil {
			return data, nil
		}
		lastErr = err
		c.log.Debug("fetch attempt failed", "url", url, "attempt", attempt, "error", err)

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}

	return nil, fmt.Errorf("fetch %s: %w", url, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
