package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ollamaServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"models": []map[string]string{{"name": "nomic-embed-text:latest"}},
			})
		case "/api/embeddings":
			var req embeddingRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if calls != nil {
				calls.Add(1)
			}
			if req.Prompt == "fail" {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("model crashed"))
				return
			}
			_ = json.NewEncoder(w).Encode(embeddingResponse{
				Embedding: []float64{float64(len(req.Prompt)), 1, 0},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaClient_Name(t *testing.T) {
	c := NewOllamaClient("http://localhost:11434/", "nomic-embed-text", 0)
	assert.Equal(t, "ollama/nomic-embed-text", c.Name())
	assert.Equal(t, "http://localhost:11434", c.baseURL)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
}

func TestOllamaClient_Available(t *testing.T) {
	srv := ollamaServer(t, nil)

	assert.NoError(t, NewOllamaClient(srv.URL, "nomic-embed-text", time.Second).Available(context.Background()))
	assert.Error(t, NewOllamaClient(srv.URL, "other-model", time.Second).Available(context.Background()))
}

func TestOllamaClient_Available_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewOllamaClient(srv.URL, "nomic-embed-text", time.Second).Available(context.Background())
	assert.Error(t, err)
}

func TestOllamaClient_Embed(t *testing.T) {
	srv := ollamaServer(t, nil)
	c := NewOllamaClient(srv.URL, "nomic-embed-text", time.Second)

	vec, err := c.Embed(context.Background(), "abcd")
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 1, 0}, vec)

	_, err = c.Embed(context.Background(), "fail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "model crashed")
}

func TestOllamaClient_EmptyEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding": []}`))
	}))
	defer srv.Close()

	_, err := NewOllamaClient(srv.URL, "m", time.Second).Embed(context.Background(), "x")
	assert.Error(t, err)
}

func TestMemo_CachesByContent(t *testing.T) {
	var calls atomic.Int32
	srv := ollamaServer(t, &calls)
	m := NewMemo(NewOllamaClient(srv.URL, "nomic-embed-text", time.Second))

	for range 3 {
		_, err := m.Embed(context.Background(), "def f(): pass")
		require.NoError(t, err)
	}
	_, err := m.Embed(context.Background(), "def g(): pass")
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	hits, misses := m.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(2), misses)
	assert.Equal(t, "ollama/nomic-embed-text", m.Name())
}

type failing struct{}

func (failing) Name() string                                     { return "failing" }
func (failing) Available(context.Context) error                  { return errors.New("down") }
func (failing) Embed(context.Context, string) ([]float64, error) { return nil, errors.New("down") }

func TestMemo_DoesNotCacheErrors(t *testing.T) {
	m := NewMemo(failing{})
	_, err := m.Embed(context.Background(), "x")
	assert.Error(t, err)
	assert.Error(t, m.Available(context.Background()))
	_, misses := m.Stats()
	assert.Equal(t, int64(0), misses)
}
