package simart

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

// Noise is the label of articles that belong to no cluster.
const Noise = -1

// ClusterLabels runs DBSCAN over 1 - sim. Two articles are neighbours when their
// similarity is at least threshold.
func ClusterLabels(sim mat.Symmetric, threshold float64, minSamples int) []int {
	return DBSCAN(distanceMatrix(sim), 1-threshold, minSamples)
}

func distanceMatrix(sim mat.Symmetric) *mat.SymDense {
	n := sim.SymmetricDim()
	dist := mat.NewSymDense(n, nil)
	for i := range n {
		for j := i + 1; j < n; j++ {
			dist.SetSym(i, j, 1-sim.At(i, j))
		}
	}
	return dist
}

// DBSCAN clusters points given their pairwise distances. A point is a core point
// when at least minSamples points, itself included, lie within eps of it.
// Clusters grow from core points through their neighbours; points reached by no
// core point are labelled Noise. Labels are numbered in discovery order from 0.
// Diagonal entries are never read.
func DBSCAN(dist mat.Symmetric, eps float64, minSamples int) []int {
	n := dist.SymmetricDim()

	neighborhoods := make([][]int, n)
	core := make([]bool, n)
	for i := range n {
		neighborhoods[i] = findNeighbors(dist, i, eps)
		core[i] = len(neighborhoods[i]) >= minSamples
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}

	currentCluster := 0
	for i := range n {
		if labels[i] != Noise || !core[i] {
			continue
		}
		expandCluster(i, currentCluster, neighborhoods, core, labels)
		currentCluster++
	}
	return labels
}

// findNeighbors returns every point within eps of pointIdx, including pointIdx.
// NaN distances never count as close.
func findNeighbors(dist mat.Symmetric, pointIdx int, eps float64) []int {
	n := dist.SymmetricDim()
	neighbors := []int{pointIdx}
	for j := range n {
		if j != pointIdx && dist.At(pointIdx, j) <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

// expandCluster labels everything density-reachable from the core point start.
func expandCluster(start, clusterID int, neighborhoods [][]int, core []bool, labels []int) {
	stack := []int{start}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if labels[p] != Noise {
			continue
		}
		labels[p] = clusterID
		if !core[p] {
			continue
		}
		for _, q := range neighborhoods[p] {
			if labels[q] == Noise {
				stack = append(stack, q)
			}
		}
	}
}

// NewClusterArticlesCmd reads articles.csv, clusters the headlines and writes simart.csv.
func NewClusterArticlesCmd(app *App) *cobra.Command {
	var (
		dir       string
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "cluster-articles",
		Short: "Group articles describing the same event",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if threshold <= 0 || threshold > 1 {
				return fmt.Errorf("threshold must be in (0, 1], got %v", threshold)
			}
			articles, err := ReadArticlesFile(filepath.Join(dir, ArticlesFile))
			if err != nil {
				return err
			}
			app.Log.Infof("Loaded %d articles for clustering", len(articles))

			embedder, closeEmbedder, err := app.NewEmbedder(ctx)
			if err != nil {
				return err
			}
			defer closeEmbedder()

			engine := app.NewEngine(embedder)
			engine.Config.SimilarityThreshold = threshold
			result, err := engine.Cluster(ctx, articles)
			if err != nil {
				return fmt.Errorf("failed to cluster articles: %w", err)
			}

			path := filepath.Join(dir, ClustersFile)
			if err := WriteClustersFile(path, result.Clusters); err != nil {
				return err
			}
			app.Log.Infof("Saved %d clusters to %s", len(result.Clusters), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory holding articles.csv; simart.csv is written next to it")
	cmd.Flags().Float64Var(&threshold, "threshold", app.Config.SimilarityThreshold, "minimum adjusted similarity for two articles to be neighbours")
	return cmd
}
