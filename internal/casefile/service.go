package casefile

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lexilabs/lexid/internal/extract"
	"github.com/lexilabs/lexid/internal/grounding"
	"github.com/lexilabs/lexid/internal/llm"
	"github.com/lexilabs/lexid/internal/store"
)

const instrumentationName = "github.com/lexilabs/lexid/internal/casefile"

// ErrStoreDegraded reports that a required-path write could not be confirmed
// because the backing store was unreachable within its retry budget.
var ErrStoreDegraded = errors.New("store degraded: write not confirmed")

// Service orchestrates case operations. All dependencies are injected; the
// service holds no mutable state and is safe for concurrent use. Concurrent
// requests against the same case are not coordinated: two simultaneous
// uploads may each read the same incident snapshot and independently append
// fact rows.
type Service struct {
	store     *store.Store
	embedder  grounding.Embedder
	extractor *extract.Extractor
	facts     *llm.FactExtractor
	gate      *grounding.Gate
	completer llm.Completer
	uploads   *UploadDir
	logger    *zap.Logger

	tracer          trace.Tracer
	ingestOutcomes  metric.Int64Counter
	screeningsTotal metric.Int64Counter
}

// NewService creates the case service.
func NewService(
	st *store.Store,
	embedder grounding.Embedder,
	extractor *extract.Extractor,
	facts *llm.FactExtractor,
	gate *grounding.Gate,
	completer llm.Completer,
	uploads *UploadDir,
	logger *zap.Logger,
) (*Service, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if facts == nil {
		return nil, errors.New("fact extractor is required")
	}
	if gate == nil {
		return nil, errors.New("grounding gate is required")
	}
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	if uploads == nil {
		return nil, errors.New("upload dir is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	meter := otel.Meter(instrumentationName)
	ingestOutcomes, err := meter.Int64Counter("lexid.ingest.outcomes",
		metric.WithDescription("Terminal outcomes of evidence ingestion"))
	if err != nil {
		return nil, err
	}
	screeningsTotal, err := meter.Int64Counter("lexid.screenings.total",
		metric.WithDescription("Incident screenings performed"))
	if err != nil {
		return nil, err
	}

	return &Service{
		store:           st,
		embedder:        embedder,
		extractor:       extractor,
		facts:           facts,
		gate:            gate,
		completer:       completer,
		uploads:         uploads,
		logger:          logger,
		tracer:          otel.Tracer(instrumentationName),
		ingestOutcomes:  ingestOutcomes,
		screeningsTotal: screeningsTotal,
	}, nil
}

// RegisterIncident creates the immutable incident anchor and returns its id.
// Registration is required-path: a degraded store write is surfaced as
// ErrStoreDegraded since there is no id to acknowledge with.
func (s *Service) RegisterIncident(ctx context.Context, title, description string) (string, error) {
	rows, status := s.store.Insert(ctx, TableIncidents, store.Row{
		"title":       title,
		"description": description,
	})
	if status == store.StatusDegraded || len(rows) == 0 {
		return "", ErrStoreDegraded
	}
	id := rowID(rows[0])
	s.logger.Info("incident registered", zap.String("case_id", id))
	return id, nil
}

// AddClaim persists a party submission. The claim embedding is enrichment:
// when embedding fails or yields nothing the claim row still lands without
// one, per the rule that core records always land.
func (s *Service) AddClaim(ctx context.Context, caseID, side, text string) (store.Row, error) {
	row := store.Row{
		"case_id": caseID,
		"side":    side,
		"text":    text,
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		s.logger.Warn("claim embedding unavailable", zap.String("case_id", caseID), zap.Error(err))
	} else if vector != nil {
		row["embedding"] = vector
	}

	rows, status := s.store.Insert(ctx, TableClaims, row)
	if status == store.StatusDegraded || len(rows) == 0 {
		return nil, ErrStoreDegraded
	}
	return rows[0], nil
}

// History reconstructs the complete auditable case state. Degraded reports
// whether any of the four fetches fell back to an empty result; callers must
// not treat a degraded empty section as proof of absence.
type History struct {
	Incident []store.Row `json:"incident"`
	Claims   []store.Row `json:"claims"`
	Evidence []store.Row `json:"evidence"`
	Facts    []store.Row `json:"facts"`
	Degraded bool        `json:"degraded,omitempty"`
}

// History returns the full case record.
func (s *Service) History(ctx context.Context, caseID string) *History {
	ctx, span := s.tracer.Start(ctx, "casefile.history")
	defer span.End()

	h := &History{}
	var status store.Status

	h.Incident, status = s.store.Fetch(ctx, TableIncidents, store.Filters{"id": caseID})
	h.Degraded = h.Degraded || status == store.StatusDegraded

	h.Claims, status = s.store.Fetch(ctx, TableClaims, store.Filters{"case_id": caseID})
	h.Degraded = h.Degraded || status == store.StatusDegraded

	h.Evidence, status = s.store.Fetch(ctx, TableEvidence, store.Filters{"case_id": caseID})
	h.Degraded = h.Degraded || status == store.StatusDegraded

	h.Facts, status = s.store.Fetch(ctx, TableFacts, store.Filters{"case_id": caseID})
	h.Degraded = h.Degraded || status == store.StatusDegraded

	return h
}

// CountFacts returns the number of persisted fact rows for the case.
func (s *Service) CountFacts(ctx context.Context, caseID string) (int, store.Status) {
	rows, status := s.store.Fetch(ctx, TableFacts, store.Filters{"case_id": caseID})
	return len(rows), status
}
