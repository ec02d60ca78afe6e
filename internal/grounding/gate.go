package grounding

import (
	"context"

	"go.uber.org/zap"
)

// DefaultThreshold separates "plausibly about the same incident" from
// "unrelated drift". Chosen empirically, not derived.
const DefaultThreshold = 0.25

// Embedder turns text into a fixed-length vector. A (nil, nil) return means
// no embedding is possible for the input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Result carries the gate decision. FactsVector is the embedding computed for
// the facts text; callers that persist accepted facts reuse it instead of
// embedding the same text a second time.
type Result struct {
	Grounded    bool
	Similarity  float64
	FactsVector []float32
}

// Gate accepts or rejects extracted facts by cosine similarity against the
// incident anchor.
type Gate struct {
	embedder  Embedder
	threshold float64
	logger    *zap.Logger
}

// NewGate creates a gate. A non-positive threshold falls back to
// DefaultThreshold.
func NewGate(embedder Embedder, threshold float64, logger *zap.Logger) *Gate {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{embedder: embedder, threshold: threshold, logger: logger}
}

// Threshold returns the configured similarity threshold.
func (g *Gate) Threshold() float64 {
	return g.threshold
}

// Check embeds both texts and compares. Rejects when either embedding is
// unavailable, either vector has zero norm, or similarity is below the
// threshold.
func (g *Gate) Check(ctx context.Context, incidentText, factsText string) Result {
	incidentVec, err := g.embedder.Embed(ctx, incidentText)
	if err != nil || len(incidentVec) == 0 {
		g.logger.Warn("grounding rejected: incident embedding unavailable", zap.Error(err))
		return Result{}
	}

	factsVec, err := g.embedder.Embed(ctx, factsText)
	if err != nil || len(factsVec) == 0 {
		g.logger.Warn("grounding rejected: facts embedding unavailable", zap.Error(err))
		return Result{}
	}

	similarity := Cosine(incidentVec, factsVec)
	return Result{
		Grounded:    similarity >= g.threshold,
		Similarity:  similarity,
		FactsVector: factsVec,
	}
}

// IsGrounded reports whether factsText is semantically grounded in
// incidentText.
func (g *Gate) IsGrounded(ctx context.Context, incidentText, factsText string) bool {
	return g.Check(ctx, incidentText, factsText).Grounded
}
