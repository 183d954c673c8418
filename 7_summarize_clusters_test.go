package simart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSummarizeClusters(t *testing.T) {
	articles := []Article{
		{Source: "CNN", Title: "Senate passes budget", URL: "https://cnn.com/1", Keywords: []string{"senate", "budget", "vote"}},
		{Source: "BBC", Title: "Storm hits coast", URL: "https://bbc.com/1", Keywords: []string{"storm"}},
		{Source: "FOX", Title: "Budget clears Senate", URL: "https://fox.com/1", Keywords: []string{"vote", "senate", "budget", "shutdown"}},
		{Source: "NYT", Title: "Hurricane makes landfall", URL: "https://nyt.com/1", Keywords: []string{"hurricane"}},
		{Source: "WSJ", Title: "Landfall for hurricane", URL: "https://wsj.com/1", Keywords: []string{"landfall"}},
	}
	sim := mat.NewSymDense(5, nil)
	sim.SetSym(0, 2, 0.934)
	sim.SetSym(3, 4, 0.9)

	clusters, err := SummarizeClusters(articles, sim, []int{1, Noise, 1, 0, 0})
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	assert.Equal(t, Cluster{
		Headlines:        []string{"Hurricane makes landfall", "Landfall for hurricane"},
		URLs:             []string{"https://nyt.com/1", "https://wsj.com/1"},
		Keywords:         []string{},
		SimilarityWeight: 0.9,
	}, clusters[0])

	assert.Equal(t, Cluster{
		Headlines:        []string{"Senate passes budget", "Budget clears Senate"},
		URLs:             []string{"https://cnn.com/1", "https://fox.com/1"},
		Keywords:         []string{"senate", "budget", "vote"},
		SimilarityWeight: 0.93,
	}, clusters[1])
}

func TestSummarizeClusters_KeywordsSharedByAllMembers(t *testing.T) {
	articles := []Article{
		{URL: "https://a.com/1", Keywords: []string{"gaza", "ceasefire", "hamas", "talks"}},
		{URL: "https://b.com/1", Keywords: []string{"talks", "gaza", "hamas"}},
		{URL: "https://c.com/1", Keywords: []string{"hamas", "gaza"}},
	}
	sim := mat.NewSymDense(3, nil)
	sim.SetSym(0, 1, 1)
	sim.SetSym(0, 2, 0.9)
	sim.SetSym(1, 2, 0.95)

	clusters, err := SummarizeClusters(articles, sim, []int{0, 0, 0})
	require.NoError(t, err)
	require.Len(t, clusters, 1)

	assert.Equal(t, []string{"gaza", "hamas"}, clusters[0].Keywords)
	for _, k := range clusters[0].Keywords {
		for _, a := range articles {
			assert.Contains(t, a.Keywords, k)
		}
	}
	// (1 + 0.9 + 0.95) * 2 / 6
	assert.Equal(t, 0.95, clusters[0].SimilarityWeight)
}

func TestSummarizeClusters_Degenerate(t *testing.T) {
	articles := []Article{{URL: "https://a.com/1"}, {URL: "https://b.com/1"}, {URL: "https://c.com/1"}}
	sim := mat.NewSymDense(3, nil)

	_, err := SummarizeClusters(articles, sim, []int{0, 1, 1})
	assert.ErrorIs(t, err, ErrDegenerateCluster)
}

func TestSummarizeClusters_AllNoise(t *testing.T) {
	articles := []Article{{URL: "https://a.com/1"}, {URL: "https://b.com/1"}}
	clusters, err := SummarizeClusters(articles, mat.NewSymDense(2, nil), []int{Noise, Noise})
	require.NoError(t, err)
	assert.Empty(t, clusters)
}

func TestSummarizeClusters_SizeMismatch(t *testing.T) {
	articles := []Article{{URL: "https://a.com/1"}, {URL: "https://b.com/1"}}

	_, err := SummarizeClusters(articles, mat.NewSymDense(2, nil), []int{0})
	assert.Error(t, err)

	_, err = SummarizeClusters(articles, mat.NewSymDense(3, nil), []int{0, 0})
	assert.Error(t, err)
}
