// Package store provides resilient access to the backing relational/vector
// store over its PostgREST-style HTTP API.
//
// The package is split in two layers: Client performs single HTTP calls and
// reports errors faithfully; Store wraps a Client with a retry policy and
// degrades to an empty, tagged result once the retry budget is exhausted, so
// the orchestration layer above never crashes on backend unavailability.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/lexilabs/lexid/internal/config"
)

var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Row is a single record as returned by the store. Rows are schemaless at
// this layer; domain packages pick out the fields they need.
type Row = map[string]any

// Filters are equality filters applied to a select, column name to value.
type Filters = map[string]any

// apiError is a non-2xx response from the store API.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("store api: status %d: %s", e.StatusCode, e.Body)
}

// retryable reports whether another attempt could plausibly succeed.
// Client-side errors (4xx) are terminal, except timeouts and rate limits.
func (e *apiError) retryable() bool {
	if e.StatusCode == http.StatusRequestTimeout || e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return e.StatusCode < 400 || e.StatusCode >= 500
}

// Client is a low-level client for the store's REST API. A single Client is
// constructed at startup and shared for the process lifetime; it holds one
// reusable http.Client.
type Client struct {
	baseURL string
	apiKey  config.Secret
	http    *http.Client
}

// NewClient creates a store client from config.
func NewClient(cfg config.StoreConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout.Duration()},
	}, nil
}

// Select fetches all rows of table matching the equality filters.
func (c *Client) Select(ctx context.Context, table string, filters Filters) ([]Row, error) {
	q := url.Values{}
	q.Set("select", "*")

	// Deterministic filter order keeps request URLs stable for tests and logs.
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q.Set(k, fmt.Sprintf("eq.%v", filters[k]))
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, url.PathEscape(table), q.Encode())
	return c.do(ctx, http.MethodGet, endpoint, nil)
}

// Insert appends a row to table and returns the stored representation.
func (c *Client) Insert(ctx context.Context, table string, row Row) ([]Row, error) {
	body, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("marshaling row: %w", err)
	}
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, url.PathEscape(table))
	return c.do(ctx, http.MethodPost, endpoint, body)
}

// RPC invokes a server-side function by name, e.g. a vector similarity match.
func (c *Client) RPC(ctx context.Context, name string, params map[string]any) ([]Row, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshaling params: %w", err)
	}
	endpoint := fmt.Sprintf("%s/rest/v1/rpc/%s", c.baseURL, url.PathEscape(name))
	return c.do(ctx, http.MethodPost, endpoint, body)
}

// do performs one HTTP call and decodes the JSON row list response.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) ([]Row, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "return=representation")
	}
	if c.apiKey.IsSet() {
		req.Header.Set("apikey", c.apiKey.Value())
		req.Header.Set("Authorization", "Bearer "+c.apiKey.Value())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store transport: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &apiError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return []Row{}, nil
	}

	var rows []Row
	if err := json.Unmarshal(raw, &rows); err != nil {
		// Some endpoints return a single object rather than a list.
		var one Row
		if err2 := json.Unmarshal(raw, &one); err2 == nil {
			return []Row{one}, nil
		}
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return rows, nil
}

// isRetryable reports whether err is worth another attempt.
func isRetryable(err error) bool {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.retryable()
	}
	// Transport-level failures (connection refused, timeouts) are transient.
	return !errors.Is(err, context.Canceled)
}
