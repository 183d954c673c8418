package simart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// App carries configuration and shared dependencies into the commands.
type App struct {
	Config Config
	Log    *zap.SugaredLogger
	Now    func() time.Time
}

// NewApp returns an App using the wall clock.
func NewApp(cfg Config, log *zap.SugaredLogger) *App {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &App{Config: cfg, Log: log, Now: time.Now}
}

// NewEmbedder returns the OpenAI embedder, backed by the embedding cache in the
// database when one is configured. The returned func releases the cache.
func (app *App) NewEmbedder(ctx context.Context) (Embedder, func(), error) {
	if app.Config.OpenAIAPIKey == "" {
		return nil, nil, errors.New("missing required environment variable: OPENAI_API_KEY")
	}
	openaiEmbedder := NewOpenAIEmbedder(app.Config.OpenAIAPIKey, app.Config.OpenAIBaseURL, app.Config.EmbeddingModel, app.Config.EmbeddingBatchSize)
	if app.Config.DatabaseURL == "" {
		return openaiEmbedder, func() {}, nil
	}

	store, err := app.OpenStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	cached := &CachedEmbedder{
		Embedder: openaiEmbedder,
		Cache:    store,
		Model:    openaiEmbedder.Model(),
		Log:      app.Log,
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			app.Log.Warnf("Failed to close database: %v", err)
		}
	}
	return cached, closeStore, nil
}

// NewAggregator returns the keyword aggregator with the standard extractors.
func (app *App) NewAggregator(embedder Embedder) *KeywordAggregator {
	return NewKeywordAggregator(app.Config.Weights, app.Log,
		POSExtractor{},
		NERExtractor{},
		KeyphraseExtractor{Embedder: embedder, TopN: app.Config.KeyphraseTopN},
		NewVocabularyExtractor(app.Config.Vocabulary),
	)
}

// NewEngine returns an Engine wired with the standard extractors and embedder.
func (app *App) NewEngine(embedder Embedder) *Engine {
	return &Engine{
		Aggregator: app.NewAggregator(embedder),
		Embedder:   embedder,
		Config:     app.Config,
		Log:        app.Log,
	}
}

// OpenStore opens the configured database.
func (app *App) OpenStore(ctx context.Context) (*Store, error) {
	if app.Config.DatabaseURL == "" {
		return nil, errors.New("no database configured")
	}
	store, err := OpenStore(ctx, app.Config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, nil
}

// SaveResult writes articles and clusters to store, dated with the run date.
func (app *App) SaveResult(ctx context.Context, store *Store, result *Result) error {
	date := app.Now().Format(DateLayout)

	articles, err := store.InsertArticles(ctx, result.Articles)
	if err != nil {
		return err
	}
	clusters, err := store.InsertClusters(ctx, result.Clusters, date)
	if err != nil {
		return err
	}
	app.Log.Infof("Stored %d new articles and %d new clusters (%d and %d already present)",
		articles, clusters, len(result.Articles)-articles, len(result.Clusters)-clusters)
	return nil
}
