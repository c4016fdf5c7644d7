// Package moa is the Go SDK for the moa backtest service. A Client wraps a
// single http.Client bound to a fixed base path; the generic helpers Get,
// Post, Put and Delete return decoded response bodies.
package moa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the base path the dashboard talks to.
const DefaultBaseURL = "http://localhost:3001/api/moA"

// maxErrorBody bounds how much of a failed response is kept in HTTPError.
const maxErrorBody = 4 << 10

// Client provides a Go SDK for interacting with the moa backtest API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. hc itself is never
// modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets a per-request timeout on the Client's copy of the
// http.Client, regardless of option order. Zero leaves requests bounded only
// by their context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger used to report failed requests.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a new moa API client rooted at baseURL. An empty baseURL
// selects DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// BaseURL returns the base every request path is resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HTTPError is returned when the service answers with a non-2xx status.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d (%s %s)", e.StatusCode, e.Method, e.URL)
}

// Get issues GET <base><path>?query and decodes the body into T.
func Get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	return do[T](ctx, c, http.MethodGet, path, query, nil)
}

// Post issues POST <base><path> with body encoded as JSON and decodes the
// response into T.
func Post[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	return do[T](ctx, c, http.MethodPost, path, nil, body)
}

// Put issues PUT <base><path> with body encoded as JSON and decodes the
// response into T.
func Put[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	return do[T](ctx, c, http.MethodPut, path, nil, body)
}

// Delete issues DELETE <base><path> and decodes the response into T. An
// empty response body yields the zero value of T.
func Delete[T any](ctx context.Context, c *Client, path string) (T, error) {
	return do[T](ctx, c, http.MethodDelete, path, nil, nil)
}

func do[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (T, error) {
	var out T

	data, err := c.roundTrip(ctx, method, path, query, body)
	if err == nil && len(bytes.TrimSpace(data)) > 0 {
		if uerr := json.Unmarshal(data, &out); uerr != nil {
			err = fmt.Errorf("decoding %s %s response: %w", method, path, uerr)
		}
	}
	if err != nil {
		c.log.Error("API error", "method", method, "path", path, "error", err)
		var zero T
		return zero, err
	}
	return out, nil
}

// roundTrip performs the request and returns the raw 2xx body.
func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("building %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{
			Method:     method,
			URL:        u,
			StatusCode: resp.StatusCode,
			Body:       string(snippet),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s %s response: %w", method, path, err)
	}
	return data, nil
}
