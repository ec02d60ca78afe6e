package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lexilabs/lexid/internal/casefile"
	"github.com/lexilabs/lexid/internal/config"
	"github.com/lexilabs/lexid/internal/extract"
	"github.com/lexilabs/lexid/internal/grounding"
	"github.com/lexilabs/lexid/internal/llm"
	"github.com/lexilabs/lexid/internal/store"
)

// memoryBackend is a minimal in-memory stand-in for the store's REST API.
type memoryBackend struct {
	mu     sync.Mutex
	tables map[string][]store.Row
	nextID int
	fail   bool
}

func (b *memoryBackend) seed(table string, row store.Row) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tables[table] = append(b.tables[table], row)
}

func (b *memoryBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fail {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	if strings.HasPrefix(path, "rpc/") {
		json.NewEncoder(w).Encode([]store.Row{})
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
				if fmt.Sprint(row[key]) != strings.TrimPrefix(values[0], "eq.") {
					ok = false
					break
				}
			}
			if ok {
				matched = append(matched, row)
			}
		}
		json.NewEncoder(w).Encode(matched)
	}
}

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type fixedCompleter struct {
	response string
}

func (f fixedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if f.response == "" {
		return llm.NoRelevantFacts, nil
	}
	return f.response, nil
}

var _ grounding.Embedder = fixedEmbedder{}

func newTestServer(t *testing.T, backend *memoryBackend) *Server {
	t.Helper()

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client, err := store.NewClient(config.StoreConfig{BaseURL: srv.URL})
	require.NoError(t, err)
	policy := store.RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}.
		WithSleep(func(ctx context.Context, d time.Duration) error { return nil })
	st := store.New(client, policy, zap.NewNop())

	uploads, err := casefile.NewUploadDir(t.TempDir())
	require.NoError(t, err)

	embedder := fixedEmbedder{}
	completer := fixedCompleter{}
	cases, err := casefile.NewService(
		st,
		embedder,
		extract.New(nil, nil),
		llm.NewFactExtractor(completer, nil),
		grounding.NewGate(embedder, 0.25, nil),
		completer,
		uploads,
		zap.NewNop(),
	)
	require.NoError(t, err)

	server, err := NewServer(cases, zap.NewNop(), config.ServerConfig{})
	require.NoError(t, err)
	return server
}

func doJSON(server *Server, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, &memoryBackend{tables: map[string][]store.Row{}})

	rec := doJSON(server, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCreateIncident(t *testing.T) {
	backend := &memoryBackend{tables: map[string][]store.Row{}}
	server := newTestServer(t, backend)

	rec := doJSON(server, http.MethodPost, "/incident", IncidentRequest{
		Title:       "State v. Doe",
		Description: "A collision at the junction",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1", resp.ID)
}

func TestCreateIncidentValidation(t *testing.T) {
	server := newTestServer(t, &memoryBackend{tables: map[string][]store.Row{}})

	rec := doJSON(server, http.MethodPost, "/incident", IncidentRequest{Title: "no description"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateIncidentStoreDegraded(t *testing.T) {
	backend := &memoryBackend{tables: map[string][]store.Row{}, fail: true}
	server := newTestServer(t, backend)

	rec := doJSON(server, http.MethodPost, "/incident", IncidentRequest{
		Title:       "State v. Doe",
		Description: "desc",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSubmitClaimSideValidation(t *testing.T) {
	server := newTestServer(t, &memoryBackend{tables: map[string][]store.Row{}})

	rec := doJSON(server, http.MethodPost, "/claim", ClaimRequest{
		CaseID: "1", Side: "C", Text: "claim text",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitClaim(t *testing.T) {
	backend := &memoryBackend{tables: map[string][]store.Row{}}
	server := newTestServer(t, backend)

	rec := doJSON(server, http.MethodPost, "/claim", ClaimRequest{
		CaseID: "1", Side: "A", Text: "The defendant was elsewhere",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, backend.tables[casefile.TableClaims], 1)
}

func TestUploadEvidence(t *testing.T) {
	backend := &memoryBackend{tables: map[string][]store.Row{}}
	backend.seed(casefile.TableIncidents, store.Row{"id": 1, "description": "A collision at the junction"})
	server := newTestServer(t, backend)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("case_id", "1"))
	require.NoError(t, mw.WriteField("side", "A"))
	fw, err := mw.CreateFormFile("file", "statement.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("witness statement about the collision"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/evidence/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	// The evidence audit row lands regardless of enrichment outcome.
	assert.Len(t, backend.tables[casefile.TableEvidence], 1)
}

func TestUploadEvidenceMissingFile(t *testing.T) {
	server := newTestServer(t, &memoryBackend{tables: map[string][]store.Row{}})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("case_id", "1"))
	require.NoError(t, mw.WriteField("side", "B"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/evidence/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistory(t *testing.T) {
	backend := &memoryBackend{tables: map[string][]store.Row{}}
	backend.seed(casefile.TableIncidents, store.Row{"id": 4, "description": "desc"})
	backend.seed(casefile.TableFacts, store.Row{"case_id": "4", "facts": "- a fact"})
	server := newTestServer(t, backend)

	rec := doJSON(server, http.MethodGet, "/case/4/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var h casefile.History
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Len(t, h.Incident, 1)
	assert.Len(t, h.Facts, 1)
	assert.False(t, h.Degraded)
}

func TestVerdictWithReason(t *testing.T) {
	backend := &memoryBackend{tables: map[string][]store.Row{}}
	backend.seed(casefile.TableFacts, store.Row{"case_id": "2", "facts": "- one"})
	backend.seed(casefile.TableFacts, store.Row{"case_id": "2", "facts": "- two"})
	server := newTestServer(t, backend)

	rec := doJSON(server, http.MethodGet, "/verdict-with-reason?case_id=2&case_type=criminal&score=0.8", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Verdict    string  `json:"verdict"`
		Threshold  float64 `json:"threshold"`
		Score      float64 `json:"score"`
		FactsCount int     `json:"facts_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "GUILTY", result.Verdict)
	assert.Equal(t, 0.75, result.Threshold)
	assert.Equal(t, 0.8, result.Score)
	assert.Equal(t, 2, result.FactsCount)
}

func TestVerdictStoreDegraded(t *testing.T) {
	backend := &memoryBackend{tables: map[string][]store.Row{}, fail: true}
	server := newTestServer(t, backend)

	// An unreachable store must not serve a verdict claiming zero facts.
	rec := doJSON(server, http.MethodGet, "/verdict-with-reason?case_id=2&case_type=criminal&score=0.8", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestVerdictValidation(t *testing.T) {
	server := newTestServer(t, &memoryBackend{tables: map[string][]store.Row{}})

	tests := []struct {
		name string
		path string
	}{
		{"missing case_id", "/verdict-with-reason?case_type=criminal&score=0.8"},
		{"bad score", "/verdict-with-reason?case_id=1&case_type=criminal&score=high"},
		{"invalid case type", "/verdict-with-reason?case_id=1&case_type=family&score=0.8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(server, http.MethodGet, tt.path, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
