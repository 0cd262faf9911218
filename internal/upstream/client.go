// Package upstream talks to the inference backend. One shared HTTP client,
// one configurable timeout covering the whole call (streams included), and no
// retries anywhere: inference requests are expensive and not idempotent, so a
// blind retry risks duplicate generation.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// hopHeaders are connection-level headers that must not be forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Client makes requests to the backend inference server.
type Client struct {
	baseURL string
	http    *http.Client
	verbose bool
}

// NewClient creates a backend client. When apiKey is non-empty the client
// carries it as a bearer token on every call (for OpenAI-compatible backends
// that require one; a local llama-server does not).
func NewClient(baseURL, apiKey string, timeout time.Duration, verbose bool) *Client {
	hc := &http.Client{Timeout: timeout}
	if apiKey != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey})
		hc = oauth2.NewClient(context.Background(), src)
		hc.Timeout = timeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		verbose: verbose,
	}
}

// BaseURL returns the configured backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Post sends a JSON body to the backend. The response body is returned unread
// so the caller chooses between buffering and relaying; the caller owns
// closing it. The request context propagates client disconnects, which
// releases the backend connection mid-stream.
func (c *Client) Post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	if c.verbose {
		slog.Info("backend.response", "path", path, "status", resp.StatusCode)
	}
	return resp, nil
}

// Get fetches a backend path. The caller owns closing the response body.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	return resp, nil
}

// Forward replays an arbitrary inbound request against the backend verbatim:
// same method, path, query, headers (minus hop-by-hop), and body. Used for
// the catch-all passthrough routes.
func (c *Client) Forward(ctx context.Context, method, path, rawQuery string, header http.Header, body io.Reader) (*http.Response, error) {
	url := c.baseURL + path
	if rawQuery != "" {
		url += "?" + rawQuery
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	for k, vv := range header {
		if isHopHeader(k) || strings.EqualFold(k, "Host") {
			continue
		}
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	return resp, nil
}

func isHopHeader(name string) bool {
	for _, h := range hopHeaders {
		if strings.EqualFold(name, h) {
			return true
		}
	}
	return false
}
