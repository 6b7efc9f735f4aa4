package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOllamaServer(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/embed", r.URL.Path)
		calls.Add(1)

		var req struct {
			Model string `json:"model"`
			Input any    `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "bge-m3", req.Model)

		n := 1
		if inputs, ok := req.Input.([]any); ok {
			n = len(inputs)
		}
		embeddings := make([][]float32, n)
		for i := range embeddings {
			embeddings[i] = []float32{0.1, 0.2, 0.3}
		}
		json.NewEncoder(w).Encode(map[string]any{"embeddings": embeddings})
	}))
}

func TestOllamaProvider_Embed(t *testing.T) {
	var calls atomic.Int64
	srv := newOllamaServer(t, &calls)
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "bge-m3", "")
	vec, err := p.Embed(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	// One warm-up call plus the real one.
	assert.Equal(t, int64(2), calls.Load())
}

func TestOllamaProvider_EmbedBatch(t *testing.T) {
	var calls atomic.Int64
	srv := newOllamaServer(t, &calls)
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "bge-m3", "")
	vecs, err := p.EmbedBatch(context.Background(), []string{"a", "b", "c"})

	require.NoError(t, err)
	require.Len(t, vecs, 3)
}

func TestOllamaProvider_WarmupHappensOnce(t *testing.T) {
	var calls atomic.Int64
	srv := newOllamaServer(t, &calls)
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "bge-m3", "")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Embed(context.Background(), "concurrent")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// 8 embed calls plus exactly one shared warm-up.
	assert.Equal(t, int64(9), calls.Load())
}

func TestOllamaProvider_FailedLoadIsTerminal(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "bge-m3", "")

	_, err := p.Embed(context.Background(), "first")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model load failed")

	_, err = p.Embed(context.Background(), "second")
	require.Error(t, err)
	// The failure is remembered, no further HTTP traffic.
	assert.Equal(t, int64(1), calls.Load())
}

func TestOllamaProvider_HTTPClientHasTimeout(t *testing.T) {
	p := NewOllamaProvider("http://localhost:11434", "bge-m3", "")

	// A hung Ollama must not stall the index worker indefinitely.
	assert.Equal(t, requestTimeout, p.httpClient.Timeout)
	assert.Positive(t, p.httpClient.Timeout)
}

func TestOllamaProvider_SendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{1}}})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "bge-m3", "secret")
	_, err := p.Embed(context.Background(), "hello")
	require.NoError(t, err)
}
