package simart

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// BuildSimilarityMatrix computes the pairwise title similarity of articles and
// adjusts every pair for source diversity and shared keywords:
//
//	different sources:  + adj.SourceBonus
//	same source:        - adj.SameSourcePenalty
//	shared keywords:    + adj.KeywordBonus per keyword in both sets
//
// Entries are clipped to [0, 1]. A pair whose similarity is NaN ends up at 0 and
// can never be clustered. The diagonal is left at the raw self-similarity and is
// not meaningful.
//
// The matrix holds n² entries, so memory grows quadratically with the batch.
func BuildSimilarityMatrix(articles []Article, embeddings [][]float64, adj Adjustments) (*mat.SymDense, error) {
	n := len(articles)
	if len(embeddings) != n {
		return nil, fmt.Errorf("%w: %d embeddings for %d articles", ErrEmbeddingFailure, len(embeddings), n)
	}
	if n == 0 {
		return nil, fmt.Errorf("cannot build a similarity matrix for zero articles")
	}

	sim := cosineMatrix(embeddings)

	keywordSets := make([]map[string]struct{}, n)
	for i, a := range articles {
		keywordSets[i] = toSet(a.Keywords)
	}

	for i := range n {
		for j := i + 1; j < n; j++ {
			value := sim.At(i, j)
			if articles[i].Source != articles[j].Source {
				value += adj.SourceBonus
			} else {
				value -= adj.SameSourcePenalty
			}
			value += adj.KeywordBonus * float64(intersectionSize(keywordSets[i], keywordSets[j]))
			sim.SetSym(i, j, clip(value))
		}
	}
	return sim, nil
}

// cosineMatrix returns the cosine similarity of every pair of rows.
func cosineMatrix(embeddings [][]float64) *mat.SymDense {
	n := len(embeddings)
	dim := 0
	for _, v := range embeddings {
		dim = max(dim, len(v))
	}

	// Rows are scaled to unit length so E·Eᵀ is the cosine matrix.
	// Zero rows stay zero and get similarity 0 with everything.
	normalized := mat.NewDense(n, max(dim, 1), nil)
	for i, v := range embeddings {
		if len(v) == 0 {
			continue
		}
		norm := floats.Norm(v, 2)
		if norm == 0 {
			continue
		}
		for j, x := range v {
			normalized.Set(i, j, x/norm)
		}
	}

	sim := mat.NewSymDense(n, nil)
	sim.SymOuterK(1, normalized)
	return sim
}

func clip(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

func intersectionSize(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	count := 0
	for item := range a {
		if _, ok := b[item]; ok {
			count++
		}
	}
	return count
}
