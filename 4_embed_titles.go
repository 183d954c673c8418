package simart

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Embedder turns texts into fixed-length vectors, one per text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// OpenAIEmbedder calls the OpenAI embeddings endpoint.
type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	batchSize int
}

// NewOpenAIEmbedder creates an embedder for model. baseURL may be empty.
// Requests are not retried; a failed call fails the batch.
func NewOpenAIEmbedder(apiKey, baseURL, model string, batchSize int) *OpenAIEmbedder {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if batchSize <= 0 {
		batchSize = 256
	}
	return &OpenAIEmbedder{
		client:    openai.NewClient(opts...),
		model:     model,
		batchSize: batchSize,
	}
}

// Model returns the embedding model name.
func (e *OpenAIEmbedder) Model() string { return e.model }

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		batch := texts[start:end]

		resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: batch,
			},
			Model:          openai.EmbeddingModel(e.model),
			EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: failed to call OpenAI API: %v", ErrEmbeddingFailure, err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmbeddingFailure, len(resp.Data), len(batch))
		}

		// The API reports each vector's position; don't rely on response order.
		ordered := make([][]float64, len(batch))
		for _, item := range resp.Data {
			idx := int(item.Index)
			if idx < 0 || idx >= len(batch) || ordered[idx] != nil {
				return nil, fmt.Errorf("%w: unexpected embedding index %d", ErrEmbeddingFailure, item.Index)
			}
			ordered[idx] = item.Embedding
		}
		vectors = append(vectors, ordered...)
	}
	return vectors, nil
}

// EmbeddingCache persists vectors by key.
type EmbeddingCache interface {
	LookupEmbeddings(ctx context.Context, keys []string) (map[string][]float64, error)
	SaveEmbeddings(ctx context.Context, model string, vectors map[string][]float64) error
}

// CachedEmbedder only sends texts to the wrapped Embedder that the cache has not seen
// for the same model.
type CachedEmbedder struct {
	Embedder Embedder
	Cache    EmbeddingCache
	Model    string
	Log      *zap.SugaredLogger
}

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = embeddingKey(c.Model, text)
	}

	cached, err := c.Cache.LookupEmbeddings(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to look up cached embeddings: %w", err)
	}

	var missingTexts []string
	var missingKeys []string
	queued := make(map[string]bool)
	for i, key := range keys {
		if _, ok := cached[key]; ok || queued[key] {
			continue
		}
		queued[key] = true
		missingTexts = append(missingTexts, texts[i])
		missingKeys = append(missingKeys, key)
	}

	if len(missingTexts) > 0 {
		vectors, err := c.Embedder.Embed(ctx, missingTexts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(missingTexts) {
			return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmbeddingFailure, len(vectors), len(missingTexts))
		}
		fresh := make(map[string][]float64, len(vectors))
		for i, key := range missingKeys {
			fresh[key] = vectors[i]
			cached[key] = vectors[i]
		}
		if err := c.Cache.SaveEmbeddings(ctx, c.Model, fresh); err != nil {
			return nil, fmt.Errorf("failed to save embeddings: %w", err)
		}
	}
	if c.Log != nil {
		c.Log.Debugf("Embedded %d texts (%d from cache)", len(texts), len(texts)-len(missingTexts))
	}

	result := make([][]float64, len(texts))
	for i, key := range keys {
		result[i] = cached[key]
	}
	return result, nil
}

func embeddingKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// EmbedTitles embeds the title of every article and checks that the response
// lines up: one vector per article, all of the same non-zero dimension.
func EmbedTitles(ctx context.Context, embedder Embedder, articles []Article) ([][]float64, error) {
	titles := make([]string, len(articles))
	for i, a := range articles {
		titles[i] = a.Title
	}

	vectors, err := embedder.Embed(ctx, titles)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(titles) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d titles", ErrEmbeddingFailure, len(vectors), len(titles))
	}
	if len(vectors) > 0 {
		dim := len(vectors[0])
		if dim == 0 {
			return nil, fmt.Errorf("%w: empty embedding vector", ErrEmbeddingFailure)
		}
		for i, v := range vectors {
			if len(v) != dim {
				return nil, fmt.Errorf("%w: embedding %d has dimension %d, want %d", ErrEmbeddingFailure, i, len(v), dim)
			}
		}
	}
	return vectors, nil
}

// isFinite reports whether every component of v is a real number.
func isFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// cosineSimilarity calculates cosine similarity between two vectors.
// Vectors of different length or zero norm have similarity 0.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	return floats.Dot(a, b) / (normA * normB)
}
