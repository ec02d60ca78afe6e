// Package constitution loads the static constitutional reference corpus:
// a constitution PDF is split into articles, each article body is embedded,
// and the rows are inserted for server-side similarity search.
package constitution

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/lexilabs/lexid/internal/extract"
	"github.com/lexilabs/lexid/internal/grounding"
	"github.com/lexilabs/lexid/internal/store"
)

// Table is the corpus table name.
const Table = "constitution_articles"

// minBodyLength filters split noise: fragments shorter than this are not
// real article bodies.
const minBodyLength = 50

// articlePattern matches article headings like "Article 21" or "Article 14A".
var articlePattern = regexp.MustCompile(`(?m)^(Article\s+\d+[A-Z]?\s*–?.*)$`)

// Article is one parsed constitutional provision.
type Article struct {
	Title string
	Body  string
}

// SplitArticles splits full constitution text into articles by heading.
func SplitArticles(text string) []Article {
	locs := articlePattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	articles := make([]Article, 0, len(locs))
	for i, loc := range locs {
		title := strings.TrimSpace(text[loc[0]:loc[1]])
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.TrimSpace(text[loc[1]:end])
		articles = append(articles, Article{Title: title, Body: body})
	}
	return articles
}

// Loader parses, embeds, and persists the corpus.
type Loader struct {
	store     *store.Store
	embedder  grounding.Embedder
	extractor *extract.Extractor
	logger    *zap.Logger
}

// NewLoader creates a corpus loader.
func NewLoader(st *store.Store, embedder grounding.Embedder, extractor *extract.Extractor, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{store: st, embedder: embedder, extractor: extractor, logger: logger}
}

// LoadPDF reads a constitution PDF and inserts one row per article with its
// embedding. Returns the number of rows inserted. Articles whose embedding is
// unavailable are skipped (an unembedded row would be invisible to similarity
// search), as are bodies too short to be real provisions.
func (l *Loader) LoadPDF(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading constitution pdf: %w", err)
	}

	text := l.extractor.Text(data, "pdf")
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("no text extracted from %s", path)
	}

	articles := SplitArticles(text)
	l.logger.Info("parsed constitution", zap.Int("articles", len(articles)))

	inserted := 0
	for _, article := range articles {
		if len(article.Body) < minBodyLength {
			continue
		}

		vector, err := l.embedder.Embed(ctx, article.Body)
		if err != nil || vector == nil {
			l.logger.Warn("skipping article, embedding unavailable",
				zap.String("title", article.Title), zap.Error(err))
			continue
		}

		_, status := l.store.Insert(ctx, Table, store.Row{
			"article_title": article.Title,
			"article_text":  article.Body,
			"embedding":     vector,
		})
		if status == store.StatusDegraded {
			return inserted, fmt.Errorf("store degraded while loading corpus after %d articles", inserted)
		}
		inserted++
	}

	l.logger.Info("constitution corpus loaded", zap.Int("inserted", inserted))
	return inserted, nil
}
