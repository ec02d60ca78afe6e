// Package grounding implements the semantic grounding gate: generated facts
// must be embedding-close to the trusted incident anchor before they are
// persisted. This gate is the guard against the pipeline's highest-risk
// failure mode, a hallucinated or off-topic completion stored as
// case-relevant fact.
package grounding

import "math"

// Cosine returns the cosine similarity of a and b. Returns 0 when either
// vector has zero norm or the lengths differ, which callers treat as
// "not comparable": rejection, never acceptance.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
