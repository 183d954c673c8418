package simart

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Engine runs the similar-article pipeline over one batch. Build it once and
// reuse it; it holds the extractor models and the embedding client.
type Engine struct {
	Aggregator *KeywordAggregator
	Embedder   Embedder
	Config     Config
	Log        *zap.SugaredLogger
}

// Stats counts what happened to a batch.
type Stats struct {
	Input          int `json:"input"`
	Unique         int `json:"unique"`
	NearDuplicates int `json:"near_duplicates"`
	Rejected       int `json:"rejected"`
	Clustered      int `json:"clustered"`
	Noise          int `json:"noise"`
	Clusters       int `json:"clusters"`
}

// Result is the output of a run: every unique article with its keywords, and the clusters.
type Result struct {
	Articles []Article
	Clusters []Cluster
	Stats    Stats
	// Skipped is ErrEmptyBatch when too few articles were left to cluster.
	Skipped error
}

// Run removes near-duplicate articles, attaches keywords to those that have none,
// then clusters the batch. Result.Articles is the deduplicated batch.
func (e *Engine) Run(ctx context.Context, articles []Article) (*Result, error) {
	unique := RemoveDuplicates(articles)
	if e.Aggregator != nil {
		if err := e.Aggregator.Annotate(ctx, unique); err != nil {
			return nil, fmt.Errorf("failed to extract keywords: %w", err)
		}
	}

	result, err := e.Cluster(ctx, unique)
	if err != nil {
		return nil, err
	}
	result.Stats.Input = len(articles)
	result.Stats.NearDuplicates = len(articles) - len(unique)
	return result, nil
}

// Cluster groups already keyworded articles. Near-duplicate URLs are removed
// before any similarity work; they still appear in Result.Articles.
func (e *Engine) Cluster(ctx context.Context, articles []Article) (*Result, error) {
	log := e.logger()
	result := &Result{
		Articles: articles,
		Clusters: []Cluster{},
		Stats:    Stats{Input: len(articles), Unique: len(articles)},
	}

	working := RemoveDuplicates(articles)
	result.Stats.NearDuplicates = len(articles) - len(working)
	if result.Stats.NearDuplicates > 0 {
		log.Infof("Removed %d near-duplicate articles", result.Stats.NearDuplicates)
	}
	if len(working) < 2 {
		log.Warnf("Skipping clustering: %v (%d articles after deduplication)", ErrEmptyBatch, len(working))
		result.Stats.Noise = len(working)
		result.Skipped = ErrEmptyBatch
		return result, nil
	}

	embeddings, err := EmbedTitles(ctx, e.Embedder, working)
	if err != nil {
		return nil, err
	}
	log.Infof("Embedded %d titles", len(working))

	working, embeddings = rejectNonFinite(working, embeddings, log)
	result.Stats.Rejected = len(articles) - result.Stats.NearDuplicates - len(working)
	if len(working) < 2 {
		log.Warnf("Skipping clustering: %v (%d articles with usable embeddings)", ErrEmptyBatch, len(working))
		result.Stats.Noise = len(working)
		result.Skipped = ErrEmptyBatch
		return result, nil
	}

	sim, err := BuildSimilarityMatrix(working, embeddings, e.Config.Adjustments)
	if err != nil {
		return nil, fmt.Errorf("failed to build similarity matrix: %w", err)
	}

	labels := ClusterLabels(sim, e.Config.SimilarityThreshold, e.Config.MinSamples)
	clusters, err := SummarizeClusters(working, sim, labels)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize clusters: %w", err)
	}

	for _, label := range labels {
		if label == Noise {
			result.Stats.Noise++
		} else {
			result.Stats.Clustered++
		}
	}
	result.Clusters = clusters
	result.Stats.Clusters = len(clusters)
	log.Infof("Found %d clusters covering %d of %d articles", len(clusters), result.Stats.Clustered, len(working))
	return result, nil
}

func (e *Engine) logger() *zap.SugaredLogger {
	if e.Log == nil {
		return zap.NewNop().Sugar()
	}
	return e.Log
}

// rejectNonFinite drops articles whose embedding contains NaN or Inf.
func rejectNonFinite(articles []Article, embeddings [][]float64, log *zap.SugaredLogger) ([]Article, [][]float64) {
	keptArticles := make([]Article, 0, len(articles))
	keptEmbeddings := make([][]float64, 0, len(embeddings))
	for i, v := range embeddings {
		if !isFinite(v) {
			log.Warnf("Rejecting %s: embedding has non-finite values", articles[i].URL)
			continue
		}
		keptArticles = append(keptArticles, articles[i])
		keptEmbeddings = append(keptEmbeddings, v)
	}
	return keptArticles, keptEmbeddings
}
