package casefile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lexilabs/lexid/internal/config"
	"github.com/lexilabs/lexid/internal/extract"
	"github.com/lexilabs/lexid/internal/grounding"
	"github.com/lexilabs/lexid/internal/llm"
	"github.com/lexilabs/lexid/internal/store"
)

// fakeBackend simulates the store's REST API in memory.
type fakeBackend struct {
	mu      sync.Mutex
	tables  map[string][]store.Row
	rpcRows []store.Row
	nextID  int
	// failAll makes every request answer 503, simulating an unreachable
	// backend.
	failAll bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{tables: map[string][]store.Row{}}
}

func (b *fakeBackend) seed(table string, row store.Row) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tables[table] = append(b.tables[table], row)
}

func (b *fakeBackend) rows(table string) []store.Row {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]store.Row{}, b.tables[table]...)
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failAll {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/rest/v1/")

	if strings.HasPrefix(path, "rpc/") {
		json.NewEncoder(w).Encode(b.rpcRows)
		return
	}

	switch r.Method {
	case http.MethodPost:
		var row store.Row
		if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.nextID++
		row["id"] = b.nextID
		b.tables[path] = append(b.tables[path], row)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode([]store.Row{row})

	case http.MethodGet:
		matched := []store.Row{}
		for _, row := range b.tables[path] {
			ok := true
			for key, values := range r.URL.Query() {
				if key == "select" {
					continue
				}
				want := strings.TrimPrefix(values[0], "eq.")
				if fmt.Sprint(row[key]) != want {
					ok = false
					break
				}
			}
			if ok {
				matched = append(matched, row)
			}
		}
		json.NewEncoder(w).Encode(matched)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// funcEmbedder adapts a function to the Embedder interface.
type funcEmbedder func(text string) ([]float32, error)

func (f funcEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(text)
}

// scriptCompleter answers prompts via a function and counts calls.
type scriptCompleter struct {
	mu       sync.Mutex
	complete func(prompt string) (string, error)
	calls    int
}

func (s *scriptCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.complete == nil {
		return llm.NoRelevantFacts, nil
	}
	return s.complete(prompt)
}

func (s *scriptCompleter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// newTestService wires a Service over the fake backend with injected fakes.
// Returns the service and its upload directory.
func newTestService(t *testing.T, backend *fakeBackend, embedder grounding.Embedder, completer llm.Completer) (*Service, string) {
	t.Helper()

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client, err := store.NewClient(config.StoreConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	policy := store.RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}.
		WithSleep(func(ctx context.Context, d time.Duration) error { return nil })
	st := store.New(client, policy, zap.NewNop())

	uploadDir := t.TempDir()
	uploads, err := NewUploadDir(uploadDir)
	require.NoError(t, err)

	gate := grounding.NewGate(embedder, 0.25, nil)
	facts := llm.NewFactExtractor(completer, nil)
	extractor := extract.New(nil, nil)

	svc, err := NewService(st, embedder, extractor, facts, gate, completer, uploads, zap.NewNop())
	require.NoError(t, err)
	return svc, uploadDir
}
