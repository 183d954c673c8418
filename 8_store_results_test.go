package simart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestParseDatabaseURL(t *testing.T) {
	testCases := []struct {
		url        string
		wantDriver string
		wantDSN    string
	}{
		{url: "sqlite3://simart.db", wantDriver: "sqlite3", wantDSN: "simart.db"},
		{url: ":memory:", wantDriver: "sqlite3", wantDSN: ":memory:"},
		{url: "data/simart.db", wantDriver: "sqlite3", wantDSN: "data/simart.db"},
		{url: "postgres://simart@localhost/simart?sslmode=disable", wantDriver: "postgres", wantDSN: "postgres://simart@localhost/simart?sslmode=disable"},
		{url: "postgresql://db/simart", wantDriver: "postgres", wantDSN: "postgresql://db/simart"},
	}

	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			driver, dsn := parseDatabaseURL(tc.url)
			assert.Equal(t, tc.wantDriver, driver)
			assert.Equal(t, tc.wantDSN, dsn)
		})
	}
}

func TestStore_InsertArticles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	articles := []Article{
		{Source: "CNN", Title: "Senate passes budget", URL: "https://cnn.com/1", Date: "2026-10-14", Keywords: []string{"senate", "budget"}},
		{Source: "FOX", Title: "Budget clears Senate", URL: "https://fox.com/1", Date: "2026-10-14"},
	}

	inserted, err := store.InsertArticles(ctx, articles)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	inserted, err = store.InsertArticles(ctx, articles)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted, "existing urls are skipped")

	var keywords string
	require.NoError(t, store.db.GetContext(ctx, &keywords, `SELECT keywords FROM raw_articles WHERE url = ?`, "https://cnn.com/1"))
	assert.Equal(t, "senate|||budget", keywords)
}

func TestStore_Clusters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := []Cluster{{
		Headlines:        []string{"Old story", "Old story again"},
		URLs:             []string{"https://a.com/old", "https://b.com/old"},
		Keywords:         []string{"old"},
		SimilarityWeight: 0.99,
	}}
	recent := []Cluster{
		{
			Headlines:        []string{"Senate passes budget", "Budget clears Senate"},
			URLs:             []string{"https://cnn.com/1", "https://fox.com/1"},
			Keywords:         []string{"senate", "budget"},
			SimilarityWeight: 0.93,
		},
		{
			Headlines:        []string{"Storm nears", "Storm approaches"},
			URLs:             []string{"https://bbc.com/1", "https://nyt.com/1"},
			Keywords:         []string{},
			SimilarityWeight: 0.95,
		},
		{
			Headlines:        []string{"Weak link", "Weaker link"},
			URLs:             []string{"https://x.com/1", "https://y.com/1"},
			SimilarityWeight: 0.7,
		},
	}

	inserted, err := store.InsertClusters(ctx, older, "2026-10-01")
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	inserted, err = store.InsertClusters(ctx, recent, "2026-10-14")
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	inserted, err = store.InsertClusters(ctx, recent[:1], "2026-10-15")
	require.NoError(t, err)
	assert.Equal(t, 0, inserted, "same member urls are stored once")

	since := time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC)
	got, err := store.RecentClusters(ctx, 0.8, since)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, StoredCluster{Cluster: Cluster{
		Headlines:        []string{"Storm nears", "Storm approaches"},
		URLs:             []string{"https://bbc.com/1", "https://nyt.com/1"},
		Keywords:         []string{},
		SimilarityWeight: 0.95,
	}, Date: "2026-10-14"}, got[0])
	assert.Equal(t, []string{"senate", "budget"}, got[1].Keywords)
	assert.Equal(t, 0.93, got[1].SimilarityWeight)
}

func TestStore_BracketPrefixedHeadlines(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cluster := Cluster{
		Headlines:        []string{"[Video] Senate passes budget", "Senate passes budget bill"},
		URLs:             []string{"https://cbs.com/1", "https://abc.com/1"},
		Keywords:         []string{"[budget]"},
		SimilarityWeight: 0.91,
	}
	_, err := store.InsertClusters(ctx, []Cluster{cluster}, "2026-10-15")
	require.NoError(t, err)

	got, err := store.RecentClusters(ctx, 0.8, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, cluster, got[0].Cluster)
}

func TestStore_Embeddings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	found, err := store.LookupEmbeddings(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, found)

	require.NoError(t, store.SaveEmbeddings(ctx, "m1", map[string][]float64{
		"k1": {0.25, -0.5},
		"k2": {1, 2, 3},
	}))
	// Saving again is a no-op.
	require.NoError(t, store.SaveEmbeddings(ctx, "m1", map[string][]float64{"k1": {9, 9}}))

	found, err = store.LookupEmbeddings(ctx, []string{"k1", "k3"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]float64{"k1": {0.25, -0.5}}, found)
}

func TestStore_BacksCachedEmbedder(t *testing.T) {
	store := newTestStore(t)
	inner := &fakeEmbedder{vectors: map[string][]float64{"Quake strikes Japan": {0.1, 0.2}}}
	embedder := &CachedEmbedder{Embedder: inner, Cache: store, Model: "text-embedding-3-small"}

	for range 2 {
		vectors, err := embedder.Embed(context.Background(), []string{"Quake strikes Japan"})
		require.NoError(t, err)
		assert.Equal(t, [][]float64{{0.1, 0.2}}, vectors)
	}
	assert.Len(t, inner.calls, 1)
}

func TestApp_SaveResult(t *testing.T) {
	store := newTestStore(t)
	app := NewApp(DefaultConfig(), nil)
	app.Now = func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }

	result := &Result{
		Articles: []Article{{Source: "CNN", Title: "A", URL: "https://cnn.com/a", Date: "2026-10-15"}},
		Clusters: []Cluster{{
			Headlines:        []string{"A", "B"},
			URLs:             []string{"https://cnn.com/a", "https://fox.com/b"},
			SimilarityWeight: 0.9,
		}},
	}
	require.NoError(t, app.SaveResult(context.Background(), store, result))

	got, err := store.RecentClusters(context.Background(), 0.8, app.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2026-10-15", got[0].Date)
}
