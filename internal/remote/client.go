// Package remote checks candidates against a login endpoint over HTTP.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Form fields posted to the login endpoint.
const (
	FieldAccount  = "account"
	FieldPassword = "password"
)

// Client posts login attempts and reports whether they were accepted. It
// satisfies the attack's Oracle interface.
//
// A rate limit, when set, waits inside Check, so the wait is part of the
// measured latency. Keep the burst above the sampler's inner count or the
// minimum-of-trials filter has nothing clean to pick.
type Client struct {
	url     string
	http    *http.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithRateLimit paces requests to r per second with the given burst.
// A non-positive r disables pacing.
func WithRateLimit(r float64, burst int) Option {
	return func(cl *Client) {
		if r <= 0 {
			cl.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		cl.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// NewClient returns a client for the login endpoint at rawURL.
func NewClient(rawURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid target url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid target url %q: scheme must be http or https", rawURL)
	}
	c := &Client{
		url: u.String(),
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL returns the login endpoint.
func (c *Client) URL() string {
	return c.url
}

// Check posts one login attempt. 200 means accepted and 401 or 403 means
// rejected; any other status is an error.
func (c *Client) Check(ctx context.Context, account, candidate string) (bool, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return false, err
		}
	}

	form := url.Values{FieldAccount: {account}, FieldPassword: {candidate}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("login request failed: %w", err)
	}
	// Drain so the connection is reused; a fresh handshake per check would
	// swamp the signal.
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected status %s", resp.Status)
	}
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}
