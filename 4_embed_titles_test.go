package simart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newEmbeddingServer answers the embeddings endpoint with vectors from table,
// listing them in reverse order.
func newEmbeddingServer(t *testing.T, table map[string][]float64, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			v, ok := table[req.Input[i]]
			if !ok {
				http.Error(w, `{"error":{"message":"unknown input"}}`, http.StatusInternalServerError)
				return
			}
			data = append(data, map[string]any{"object": "embedding", "index": i, "embedding": v})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]any{"prompt_tokens": len(req.Input), "total_tokens": len(req.Input)},
		})
	}))
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	var requests atomic.Int32
	server := newEmbeddingServer(t, map[string][]float64{
		"first":  {1, 0, 0},
		"second": {0, 1, 0},
		"third":  {0, 0, 1},
	}, &requests)
	defer server.Close()

	embedder := NewOpenAIEmbedder("test-key", server.URL+"/v1/", "text-embedding-3-small", 2)
	vectors, err := embedder.Embed(context.Background(), []string{"first", "second", "third"})
	require.NoError(t, err)

	assert.Equal(t, [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, vectors)
	assert.Equal(t, int32(2), requests.Load())
	assert.Equal(t, "text-embedding-3-small", embedder.Model())
}

func TestOpenAIEmbedder_NoRetry(t *testing.T) {
	var requests atomic.Int32
	server := newEmbeddingServer(t, map[string][]float64{}, &requests)
	defer server.Close()

	embedder := NewOpenAIEmbedder("test-key", server.URL+"/v1/", "text-embedding-3-small", 10)
	_, err := embedder.Embed(context.Background(), []string{"missing"})
	require.ErrorIs(t, err, ErrEmbeddingFailure)
	assert.Equal(t, int32(1), requests.Load())
}

type memoryCache struct {
	vectors map[string][]float64
	saved   int
}

func (c *memoryCache) LookupEmbeddings(_ context.Context, keys []string) (map[string][]float64, error) {
	found := make(map[string][]float64)
	for _, key := range keys {
		if v, ok := c.vectors[key]; ok {
			found[key] = v
		}
	}
	return found, nil
}

func (c *memoryCache) SaveEmbeddings(_ context.Context, _ string, vectors map[string][]float64) error {
	for key, v := range vectors {
		c.vectors[key] = v
		c.saved++
	}
	return nil
}

func TestCachedEmbedder(t *testing.T) {
	inner := &fakeEmbedder{vectors: map[string][]float64{
		"Senate passes budget": {1, 0},
		"Storm hits coast":     {0, 1},
	}}
	cache := &memoryCache{vectors: map[string][]float64{}}
	embedder := &CachedEmbedder{Embedder: inner, Cache: cache, Model: "m1"}
	ctx := context.Background()

	vectors, err := embedder.Embed(ctx, []string{"Senate passes budget", "Storm hits coast", "Senate passes budget"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}, {1, 0}}, vectors)
	require.Len(t, inner.calls, 1)
	assert.Equal(t, []string{"Senate passes budget", "Storm hits coast"}, inner.calls[0])
	assert.Equal(t, 2, cache.saved)

	vectors, err = embedder.Embed(ctx, []string{"Storm hits coast"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 1}}, vectors)
	assert.Len(t, inner.calls, 1, "cached texts are not embedded again")

	other := &CachedEmbedder{Embedder: inner, Cache: cache, Model: "m2"}
	_, err = other.Embed(ctx, []string{"Storm hits coast"})
	require.NoError(t, err)
	assert.Len(t, inner.calls, 2, "a different model misses the cache")
}

func TestEmbeddingKey(t *testing.T) {
	assert.Equal(t, embeddingKey("m", "text"), embeddingKey("m", "text"))
	assert.NotEqual(t, embeddingKey("m", "text"), embeddingKey("m2", "text"))
	assert.NotEqual(t, embeddingKey("ab", "c"), embeddingKey("a", "bc"))
	assert.Len(t, embeddingKey("m", "text"), 64)
}

func TestEmbedTitles(t *testing.T) {
	articles := []Article{{Title: "A"}, {Title: "B"}}

	vectors, err := EmbedTitles(context.Background(), &fakeEmbedder{vectors: map[string][]float64{"A": {1}, "B": {2}}}, articles)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1}, {2}}, vectors)

	_, err = EmbedTitles(context.Background(), &fakeEmbedder{vectors: map[string][]float64{"A": {}, "B": {}}}, articles)
	assert.ErrorIs(t, err, ErrEmbeddingFailure)
}
