package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const factPromptTemplate = `INCIDENT:
%s

EVIDENCE:
%s

TASK:
Extract ONLY facts that are directly related to the incident.

RULES:
- Use bullet points only
- Do NOT infer intent or guilt
- Do NOT add external information
- If no relevant facts exist, respond EXACTLY:
NO RELEVANT FACTS`

// FactExtractor derives incident-anchored facts from evidence text.
type FactExtractor struct {
	completer Completer
	logger    *zap.Logger
}

// NewFactExtractor creates a fact extractor.
func NewFactExtractor(completer Completer, logger *zap.Logger) *FactExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FactExtractor{completer: completer, logger: logger}
}

// Extract returns bullet-point facts textually tied to the incident, the
// exact sentinel NoRelevantFacts when nothing qualifies, or Inconclusive when
// the completion call fails. Callers must never persist Inconclusive.
func (f *FactExtractor) Extract(ctx context.Context, evidenceText, incidentText string) string {
	prompt := fmt.Sprintf(factPromptTemplate, incidentText, evidenceText)

	result, err := f.completer.Complete(ctx, prompt)
	if err != nil {
		f.logger.Warn("fact extraction unavailable", zap.Error(err))
		return Inconclusive
	}
	return result
}
