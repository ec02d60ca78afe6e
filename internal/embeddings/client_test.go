package embeddings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexilabs/lexid/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, maxChars int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(config.EmbeddingsConfig{
		BaseURL:       srv.URL,
		Model:         "test-model",
		APIKey:        config.Secret("key"),
		MaxInputChars: maxChars,
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(config.EmbeddingsConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEmbed_BlankInputReturnsNil(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for blank input")
	}, 8000)

	for _, input := range []string{"", "   ", "\n\t "} {
		vector, err := client.Embed(context.Background(), input)
		assert.NoError(t, err)
		assert.Nil(t, vector)
	}
}

func TestEmbed_Success(t *testing.T) {
	var gotReq embedRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotReq)
		fmt.Fprint(w, `{"data":[{"embedding":[0.1,0.2,0.3]}]}`)
	}, 8000)

	vector, err := client.Embed(context.Background(), "a bicycle was stolen")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
	assert.Equal(t, "test-model", gotReq.Model)
	assert.Equal(t, "a bicycle was stolen", gotReq.Input)
}

func TestEmbed_TruncatesOverlongInput(t *testing.T) {
	var gotInput string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotInput = req.Input
		fmt.Fprint(w, `{"data":[{"embedding":[0.5]}]}`)
	}, 100)

	_, err := client.Embed(context.Background(), strings.Repeat("x", 500))
	require.NoError(t, err)
	assert.Len(t, gotInput, 100)
}

func TestEmbed_MalformedResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json at all")
	}, 8000)

	_, err := client.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestEmbed_ServiceRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key"}}`)
	}, 8000)

	_, err := client.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceRejected)
	assert.Contains(t, err.Error(), "invalid api key")
}
