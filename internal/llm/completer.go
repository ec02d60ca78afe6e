// Package llm provides the text-completion client and the incident-anchored
// prompt contracts built on top of it: fact extraction, maintainability
// classification, and constitutional screening.
//
// All prompts are deterministic (temperature 0) with a bounded output token
// budget, and every wrapper converts completion failure into a fixed sentinel
// instead of propagating the error, so the ingestion pipeline's required path
// is never blocked by the enrichment path.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/lexilabs/lexid/internal/config"
)

// Sentinel outputs. These are contract surface, not implementation detail:
// callers compare against them verbatim.
const (
	// NoRelevantFacts is emitted by the model when no evidence fact is tied
	// to the incident. Never persisted.
	NoRelevantFacts = "NO RELEVANT FACTS"

	// Inconclusive replaces any completion failure (timeout, malformed
	// response, safety filter). Means "extraction unavailable", never a fact.
	Inconclusive = "INCONCLUSIVE"

	// NoConstitutionalIssue is the exact response when no constitutional
	// adjudication is warranted.
	NoConstitutionalIssue = "NO CONSTITUTIONAL ISSUE"
)

// Maintainability classifications. Anything else from the model collapses to
// NotMaintainable (fail-closed).
const (
	CriminalMaintainable = "CRIMINAL MAINTAINABLE"
	CivilMaintainable    = "CIVIL MAINTAINABLE"
	NotMaintainable      = "NOT MAINTAINABLE"
)

// ErrEmptyCompletion indicates the service returned no choices.
var ErrEmptyCompletion = errors.New("empty completion response")

// Completer is the text-completion capability consumed by this package's
// prompt wrappers. Implementations must be safe for concurrent use.
type Completer interface {
	// Complete generates a deterministic completion for prompt.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Requests per minute against the completion API; bursts smooth over the
// two back-to-back screening calls.
const (
	completionRateLimit = 50.0 / 60.0
	completionBurst     = 5
)

// Client is a Completer backed by an OpenAI-compatible chat completion API.
type Client struct {
	client    *openai.Client
	model     string
	maxTokens int
	limiter   *rate.Limiter
}

// NewClient creates a completion client from config.
func NewClient(cfg config.LLMConfig) (*Client, error) {
	if !cfg.APIKey.IsSet() {
		return nil, fmt.Errorf("completion API key required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey.Value())
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 512
	}

	return &Client{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     model,
		maxTokens: maxTokens,
		limiter:   rate.NewLimiter(rate.Limit(completionRateLimit), completionBurst),
	}, nil
}

// Complete sends prompt as a single user message with temperature 0 and the
// configured output token budget.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("completion API: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
