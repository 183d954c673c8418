package simart

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// SummarizeClusters turns DBSCAN labels into Cluster records, ordered by label.
// Members keep batch order. The weight is the mean similarity over ordered member
// pairs rounded to two decimals, and the keywords are those every member shares,
// in the order of the first member's keywords.
func SummarizeClusters(articles []Article, sim mat.Symmetric, labels []int) ([]Cluster, error) {
	if len(labels) != len(articles) {
		return nil, fmt.Errorf("got %d labels for %d articles", len(labels), len(articles))
	}
	if n := sim.SymmetricDim(); n != len(articles) {
		return nil, fmt.Errorf("similarity matrix is %dx%d for %d articles", n, n, len(articles))
	}

	members := make(map[int][]int)
	var order []int
	for i, label := range labels {
		if label == Noise {
			continue
		}
		if _, ok := members[label]; !ok {
			order = append(order, label)
		}
		members[label] = append(members[label], i)
	}
	slices.Sort(order)

	clusters := make([]Cluster, 0, len(order))
	for _, label := range order {
		indices := members[label]
		if len(indices) < 2 {
			return nil, fmt.Errorf("%w: label %d has %d member", ErrDegenerateCluster, label, len(indices))
		}

		cluster := Cluster{
			Headlines:        make([]string, 0, len(indices)),
			URLs:             make([]string, 0, len(indices)),
			Keywords:         sharedKeywords(articles, indices),
			SimilarityWeight: clusterWeight(sim, indices),
		}
		for _, idx := range indices {
			cluster.Headlines = append(cluster.Headlines, articles[idx].Title)
			cluster.URLs = append(cluster.URLs, articles[idx].URL)
		}
		clusters = append(clusters, cluster)
	}
	return clusters, nil
}

// clusterWeight is the mean of sim over ordered pairs i != j, rounded to 2 decimals.
func clusterWeight(sim mat.Symmetric, indices []int) float64 {
	total := 0.0
	pairs := 0
	for _, i := range indices {
		for _, j := range indices {
			if i == j {
				continue
			}
			total += sim.At(i, j)
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return math.Round(total/float64(pairs)*100) / 100
}

func sharedKeywords(articles []Article, indices []int) []string {
	first := articles[indices[0]].Keywords
	shared := make([]string, 0, len(first))
	seen := make(map[string]bool, len(first))

	others := make([]map[string]struct{}, 0, len(indices)-1)
	for _, idx := range indices[1:] {
		others = append(others, toSet(articles[idx].Keywords))
	}

	for _, keyword := range first {
		if seen[keyword] {
			continue
		}
		seen[keyword] = true
		inAll := true
		for _, set := range others {
			if _, ok := set[keyword]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			shared = append(shared, keyword)
		}
	}
	return shared
}
