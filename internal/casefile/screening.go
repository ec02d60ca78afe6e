package casefile

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/lexilabs/lexid/internal/llm"
)

// ScreeningResult combines the two advisory screening outputs. The decision
// to register a case is made by a human after viewing both; nothing here is
// persisted.
type ScreeningResult struct {
	Constitutional  llm.ConstitutionalResult `json:"constitutional"`
	Maintainability string                   `json:"maintainability"`
}

// Screen runs pre-registration screening on an incident text: retrieve the
// most similar constitution articles, then two independent completion calls.
// A degraded similarity search or an unavailable incident embedding narrows
// the constitutional check to an empty article set rather than blocking.
func (s *Service) Screen(ctx context.Context, incident string) *ScreeningResult {
	ctx, span := s.tracer.Start(ctx, "casefile.screen")
	defer span.End()

	articles := s.similarArticles(ctx, incident, 5)

	constitutional := llm.CheckConstitutional(ctx, s.completer, incident, articles, s.logger)
	maintainability := llm.CheckMaintainability(ctx, s.completer, incident, s.logger)

	s.screeningsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("maintainability", maintainability),
		attribute.Bool("constitutional_violation", constitutional.Violation),
	))

	return &ScreeningResult{
		Constitutional:  constitutional,
		Maintainability: maintainability,
	}
}

// similarArticles embeds the incident and asks the store for the topK most
// similar constitution articles. Any unavailability degrades to an empty set.
func (s *Service) similarArticles(ctx context.Context, incident string, topK int) []llm.Article {
	vector, err := s.embedder.Embed(ctx, incident)
	if err != nil {
		s.logger.Warn("incident embedding unavailable for screening", zap.Error(err))
		return nil
	}
	if vector == nil {
		return nil
	}

	rows, _ := s.store.SimilaritySearch(ctx, RPCMatchConstitutionArticles, vector, topK)

	articles := make([]llm.Article, 0, len(rows))
	for _, row := range rows {
		articles = append(articles, llm.Article{
			Title: rowString(row, "article_title"),
			Text:  rowString(row, "article_text"),
		})
	}
	return articles
}
