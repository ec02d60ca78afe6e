package casefile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lexilabs/lexid/internal/llm"
	"github.com/lexilabs/lexid/internal/store"
)

// Outcome names the terminal state of one evidence ingestion run. Every
// outcome is a success from the uploader's point of view: the audit trail
// landed (or the store degraded fail-open) and the enrichment path simply
// went as far as it could.
type Outcome string

const (
	// OutcomeFactsPersisted is the full happy path: evidence and a grounded
	// fact row both landed.
	OutcomeFactsPersisted Outcome = "facts_persisted"

	// OutcomeNoText means extraction yielded no usable text. Terminal, not
	// an error.
	OutcomeNoText Outcome = "no_text"

	// OutcomeNoIncident means no incident anchor exists for the case. Facts
	// cannot be grounded without one.
	OutcomeNoIncident Outcome = "no_incident"

	// OutcomeStoreDegraded means the store was unreachable at a point where
	// proceeding would require trusting an absent answer.
	OutcomeStoreDegraded Outcome = "store_degraded"

	// OutcomeNoRelevantFacts means the model found nothing tied to the
	// incident.
	OutcomeNoRelevantFacts Outcome = "no_relevant_facts"

	// OutcomeExtractionUnavailable means the completion call failed and was
	// replaced by the INCONCLUSIVE sentinel.
	OutcomeExtractionUnavailable Outcome = "extraction_unavailable"

	// OutcomeRejected means the grounding gate refused the extracted facts.
	// Rejection leaves no trace beyond the evidence row.
	OutcomeRejected Outcome = "grounding_rejected"
)

// AddEvidence runs the ingestion pipeline for one uploaded file:
//
//	hash -> content-addressed file write -> text extraction ->
//	evidence row (always) -> incident fetch -> fact extraction ->
//	grounding gate -> fact row
//
// The evidence row is persisted unconditionally with whatever text was
// extracted, preserving an audit trail even for files that yield no usable
// facts. The returned error is non-nil only when the required path itself
// failed (the file could not be written); every enrichment failure is a
// terminal Outcome instead.
func (s *Service) AddEvidence(ctx context.Context, caseID, side, fileName string, data []byte) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "casefile.add_evidence",
		trace.WithAttributes(attribute.String("case_id", caseID)))
	defer span.End()

	uploadID := uuid.NewString()
	logger := s.logger.With(
		zap.String("upload_id", uploadID),
		zap.String("case_id", caseID),
		zap.String("file_name", fileName),
	)

	// RECEIVED -> HASHED
	sum := sha256.Sum256(data)
	hashHex := hex.EncodeToString(sum[:])
	ext := Ext(fileName)

	if _, err := s.uploads.Write(hashHex, ext, data); err != nil {
		return "", err
	}

	// HASHED -> TEXT_EXTRACTED
	extractedText := s.extractor.Text(data, ext)

	// TEXT_EXTRACTED -> EVIDENCE_PERSISTED, unconditionally.
	_, status := s.store.Insert(ctx, TableEvidence, store.Row{
		"case_id":        caseID,
		"side":           side,
		"file_name":      fileName,
		"hash":           hashHex,
		"extracted_text": extractedText,
	})
	if status == store.StatusDegraded {
		// The audit record could not be confirmed; the file itself is on
		// disk. Nothing downstream can be trusted to land either.
		logger.Error("evidence row not confirmed, store degraded")
		return s.finish(ctx, logger, OutcomeStoreDegraded)
	}

	if strings.TrimSpace(extractedText) == "" {
		return s.finish(ctx, logger, OutcomeNoText)
	}

	// Fetch the incident anchor. A degraded fetch is explicitly not the
	// same as an absent incident: proceeding blind would ground facts
	// against nothing, and concluding absence would be reading a degraded
	// empty result as proof.
	incidentRows, status := s.store.Fetch(ctx, TableIncidents, store.Filters{"id": caseID})
	if status == store.StatusDegraded {
		return s.finish(ctx, logger, OutcomeStoreDegraded)
	}
	if len(incidentRows) == 0 {
		return s.finish(ctx, logger, OutcomeNoIncident)
	}
	incidentText := rowString(incidentRows[0], "description")
	if strings.TrimSpace(incidentText) == "" {
		return s.finish(ctx, logger, OutcomeNoIncident)
	}

	// EVIDENCE_PERSISTED -> FACTS_EXTRACTED
	facts := s.facts.Extract(ctx, extractedText, incidentText)
	if facts == llm.Inconclusive {
		return s.finish(ctx, logger, OutcomeExtractionUnavailable)
	}
	if facts == llm.NoRelevantFacts || strings.TrimSpace(facts) == "" {
		return s.finish(ctx, logger, OutcomeNoRelevantFacts)
	}

	// FACTS_EXTRACTED -> GROUNDING_CHECKED
	check := s.gate.Check(ctx, incidentText, facts)
	if !check.Grounded {
		// No rejected-fact row is persisted; only the evidence audit
		// record remains.
		logger.Info("facts rejected by grounding gate",
			zap.Float64("similarity", check.Similarity),
			zap.Float64("threshold", s.gate.Threshold()),
		)
		return s.finish(ctx, logger, OutcomeRejected)
	}

	// GROUNDING_CHECKED -> FACTS_PERSISTED. The facts vector from the gate
	// is reused; the embedding budget per upload is two calls.
	_, status = s.store.Insert(ctx, TableFacts, store.Row{
		"case_id":   caseID,
		"facts":     facts,
		"embedding": check.FactsVector,
	})
	if status == store.StatusDegraded {
		logger.Error("fact row not confirmed, store degraded")
		return s.finish(ctx, logger, OutcomeStoreDegraded)
	}

	return s.finish(ctx, logger, OutcomeFactsPersisted)
}

// finish records the terminal outcome once, in both logs and metrics.
func (s *Service) finish(ctx context.Context, logger *zap.Logger, outcome Outcome) (Outcome, error) {
	logger.Info("evidence ingestion finished", zap.String("outcome", string(outcome)))
	s.ingestOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcome))))
	return outcome, nil
}
