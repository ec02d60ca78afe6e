package store

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/lexilabs/lexid/internal/store"

// Status tags the outcome of a store operation. A Degraded result carries no
// rows and means the backend could not be reached within the retry budget;
// callers must treat it as ambiguous between "no rows" and "unreachable" and
// must never read it as proof of absence.
type Status int

const (
	// StatusOK means the operation completed against the backend.
	StatusOK Status = iota

	// StatusDegraded means the retry budget was exhausted and the result
	// was replaced with an empty row set.
	StatusDegraded
)

// String returns the status name for logs.
func (s Status) String() string {
	if s == StatusDegraded {
		return "degraded"
	}
	return "ok"
}

// Store is the retry-wrapped store used by all orchestration code. Each
// operation retries transient failures per the injected policy and then
// fails open: exhaustion yields (nil, StatusDegraded) rather than an error.
type Store struct {
	client *Client
	policy RetryPolicy
	logger *zap.Logger
	tracer trace.Tracer
}

// New creates a retry-wrapped store.
func New(client *Client, policy RetryPolicy, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.sleep == nil {
		policy.sleep = sleepContext
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Store{
		client: client,
		policy: policy,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
	}
}

// Fetch returns all rows of table matching the equality filters.
func (s *Store) Fetch(ctx context.Context, table string, filters Filters) ([]Row, Status) {
	return s.run(ctx, "fetch", table, func(ctx context.Context) ([]Row, error) {
		return s.client.Select(ctx, table, filters)
	})
}

// Insert appends row to table and returns the stored representation.
func (s *Store) Insert(ctx context.Context, table string, row Row) ([]Row, Status) {
	return s.run(ctx, "insert", table, func(ctx context.Context) ([]Row, error) {
		return s.client.Insert(ctx, table, row)
	})
}

// SimilaritySearch invokes the server-side vector match RPC and returns the
// topK nearest rows for the query vector.
func (s *Store) SimilaritySearch(ctx context.Context, rpcName string, vector []float32, topK int) ([]Row, Status) {
	return s.run(ctx, "similarity_search", rpcName, func(ctx context.Context) ([]Row, error) {
		return s.client.RPC(ctx, rpcName, map[string]any{
			"query_embedding": vector,
			"match_count":     topK,
		})
	})
}

// run executes op under the retry policy. Terminal (non-retryable) errors
// skip the remaining budget; either way exhaustion degrades to empty.
func (s *Store) run(ctx context.Context, opName, target string, op func(ctx context.Context) ([]Row, error)) ([]Row, Status) {
	ctx, span := s.tracer.Start(ctx, "store."+opName,
		trace.WithAttributes(attribute.String("store.target", target)))
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := s.policy.sleep(ctx, s.policy.Backoff); err != nil {
				lastErr = err
				break
			}
		}

		rows, err := op(ctx)
		if err == nil {
			span.SetAttributes(attribute.Int("store.rows", len(rows)))
			return rows, StatusOK
		}

		lastErr = err
		if !isRetryable(err) {
			s.logger.Warn("store operation failed terminally",
				zap.String("op", opName),
				zap.String("target", target),
				zap.Error(err),
			)
			break
		}
		s.logger.Warn("store operation failed, will retry",
			zap.String("op", opName),
			zap.String("target", target),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.policy.MaxAttempts),
			zap.Error(err),
		)
	}

	span.SetAttributes(attribute.Bool("store.degraded", true))
	s.logger.Error("store operation degraded to empty result",
		zap.String("op", opName),
		zap.String("target", target),
		zap.Error(lastErr),
	)
	return nil, StatusDegraded
}
