// Package api is the HTTP client for the DeepWatch backend. It owns
// request construction, bearer-token attachment, response decoding, and
// the error taxonomy; it holds no view or session state of its own.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTimeout = 10 * time.Second
	defaultRetries = 2
	retryDelay     = 250 * time.Millisecond
)

// Client talks to one backend base URL. The zero value is not usable; use
// New.
type Client struct {
	base    string
	http    *http.Client
	logger  *log.Logger
	tokenFn func() string
	retries int
}

type Option func(*Client)

// WithTokenSource supplies the bearer token for protected calls, read
// fresh on every request so a re-login is picked up immediately.
func WithTokenSource(fn func() string) Option {
	return func(c *Client) { c.tokenFn = fn }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRetries sets how many extra attempts idempotent GETs get after a
// transport failure. Non-GET requests are never retried.
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

func New(base string, opts ...Option) *Client {
	c := &Client{
		base:    strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  log.New(os.Stderr, "[api] ", log.LstdFlags),
		retries: defaultRetries,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// WithToken returns a copy of the client bound to a fixed token. Used by
// the web gateway, which carries a different token per request.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.tokenFn = func() string { return token }
	return &cp
}

func (c *Client) token() string {
	if c.tokenFn == nil {
		return ""
	}
	return c.tokenFn()
}

// call issues one request and returns the raw body and status. Transport
// failures on GETs are retried up to c.retries times; everything else is
// attempted once. ErrNoSession is returned before any network activity if
// an authenticated call has no token to attach.
func (c *Client) call(ctx context.Context, method, path string, payload any, authed bool) ([]byte, int, error) {
	var bodyBytes []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("encode request: %w", err)
		}
		bodyBytes = b
	}

	var token string
	if authed {
		token = c.token()
		if token == "" {
			return nil, 0, ErrNoSession
		}
	}

	attempts := 1
	if method == http.MethodGet {
		attempts += c.retries
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			c.logger.Printf("retrying %s %s after transport failure: %v", method, path, lastErr)
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(retryDelay):
			}
		}

		var rdr io.Reader
		if bodyBytes != nil {
			rdr = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
		if err != nil {
			return nil, 0, err
		}
		if bodyBytes != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("X-Request-ID", uuid.NewString())
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%s %s: %w", method, path, err)
			continue
		}
		b, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("%s %s: read body: %w", method, path, err)
			continue
		}
		return b, resp.StatusCode, nil
	}
	return nil, 0, lastErr
}

// getJSON fetches path and decodes a success body into out. Non-success
// statuses become a *StatusError, undecodable bodies a *ValidationError.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	body, status, err := c.call(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return &StatusError{Status: status, Detail: errorDetail(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ValidationError{Endpoint: path, Reason: err.Error()}
	}
	return nil
}
