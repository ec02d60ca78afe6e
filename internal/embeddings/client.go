// Package embeddings provides text embedding generation over an
// OpenAI-compatible embeddings API.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lexilabs/lexid/internal/config"
)

var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMalformedResponse indicates the service returned a body that could
	// not be decoded.
	ErrMalformedResponse = errors.New("malformed embeddings response")

	// ErrServiceRejected indicates the service returned an explicit error
	// payload instead of an embedding.
	ErrServiceRejected = errors.New("embeddings service rejected request")
)

// Client generates embeddings. It performs no internal retries; retry policy
// belongs to callers that can tell idempotent-safe retries apart.
type Client struct {
	config config.EmbeddingsConfig
	http   *http.Client
}

// NewClient creates an embedding client from config.
func NewClient(cfg config.EmbeddingsConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if cfg.MaxInputChars < 1 {
		cfg.MaxInputChars = 8000
	}
	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: cfg.Timeout.Duration()},
	}, nil
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error json.RawMessage `json:"error,omitempty"`
}

// Embed turns text into a fixed-length vector.
//
// Empty or whitespace-only input returns (nil, nil): no embedding is
// possible, and callers must skip grounding rather than substitute a zero
// vector. Overlong input is truncated to the configured safety limit before
// dispatch; truncation, not rejection, keeps the pipeline non-blocking on
// oversized documents.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	if runes := []rune(text); len(runes) > c.config.MaxInputChars {
		text = string(runes[:c.config.MaxInputChars])
	}

	body, err := json.Marshal(embedRequest{Model: c.config.Model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/v1/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey.IsSet() {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey.Value())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings transport: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var payload embedResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, truncateForError(raw))
	}

	if len(payload.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrServiceRejected, truncateForError(raw))
	}

	return payload.Data[0].Embedding, nil
}

// truncateForError keeps error messages bounded when the service misbehaves.
func truncateForError(raw []byte) string {
	const max = 256
	s := string(bytes.TrimSpace(raw))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
