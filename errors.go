package simart

import "errors"

var (
	// ErrMalformedKeywordField is returned when a serialized list field cannot be decoded.
	ErrMalformedKeywordField = errors.New("malformed keyword field")

	// ErrEmbeddingFailure is returned when the embedding model errors or returns
	// a response that does not line up with the requested titles.
	ErrEmbeddingFailure = errors.New("embedding failure")

	// ErrDegenerateCluster is returned when a cluster label ends up with fewer than two members.
	ErrDegenerateCluster = errors.New("degenerate cluster")

	// ErrEmptyBatch reports that a batch had too few articles to cluster.
	// The engine does not fail on it; it sets Result.Skipped and returns the articles
	// without clusters.
	ErrEmptyBatch = errors.New("empty batch")
)
