package simart

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/spf13/cobra"
)

const pingTimeout = 5 * time.Second

var schema = []string{
	`CREATE TABLE IF NOT EXISTS raw_articles (
		url TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		section TEXT NOT NULL DEFAULT '',
		section_url TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		keywords TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		image TEXT NOT NULL DEFAULT '',
		subheading TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS raw_similar_articles (
		article_urls TEXT PRIMARY KEY,
		article_headlines TEXT NOT NULL,
		keywords TEXT NOT NULL DEFAULT '',
		similarity_weight DOUBLE PRECISION NOT NULL,
		date TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_raw_similar_articles_date ON raw_similar_articles(date)`,
	`CREATE TABLE IF NOT EXISTS embeddings (
		text_hash TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		vector TEXT NOT NULL
	)`,
}

// Store keeps articles, clusters and title embeddings in SQLite or PostgreSQL.
type Store struct {
	db *sqlx.DB
}

// StoredCluster is a cluster together with the date of the run that produced it.
type StoredCluster struct {
	Cluster
	Date string `json:"date"`
}

type clusterRow struct {
	ArticleURLs      string  `db:"article_urls"`
	ArticleHeadlines string  `db:"article_headlines"`
	Keywords         string  `db:"keywords"`
	SimilarityWeight float64 `db:"similarity_weight"`
	Date             string  `db:"date"`
}

type embeddingRow struct {
	TextHash string `db:"text_hash"`
	Vector   string `db:"vector"`
}

// OpenStore connects to databaseURL and creates missing tables.
//
//	sqlite3://simart.db     SQLite file
//	:memory:                in-memory SQLite
//	postgres://user@host/db PostgreSQL
//
// Anything else is treated as a SQLite file path.
func OpenStore(ctx context.Context, databaseURL string) (*Store, error) {
	driver, dsn := parseDatabaseURL(databaseURL)

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == "sqlite3" {
		// Each SQLite connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func parseDatabaseURL(databaseURL string) (driver, dsn string) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return "postgres", databaseURL
	case strings.HasPrefix(databaseURL, "sqlite3://"):
		return "sqlite3", strings.TrimPrefix(databaseURL, "sqlite3://")
	default:
		return "sqlite3", databaseURL
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InsertArticles stores articles; URLs already present are left untouched.
// It returns the number of new rows.
func (s *Store) InsertArticles(ctx context.Context, articles []Article) (int, error) {
	query := s.db.Rebind(`
		INSERT INTO raw_articles (url, source, section, section_url, title, keywords, date, image, subheading)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)

	return s.insertAll(ctx, len(articles), func(tx *sqlx.Tx, i int) (int64, error) {
		a := articles[i]
		keywords, err := EncodeList(CleanKeywords(a.Keywords))
		if err != nil {
			return 0, fmt.Errorf("article %s: %w", a.URL, err)
		}
		res, err := tx.ExecContext(ctx, query, a.URL, a.Source, a.Section, a.SectionURL, a.Title, keywords, a.Date, a.Image, a.Subheading)
		if err != nil {
			return 0, fmt.Errorf("failed to insert article %s: %w", a.URL, err)
		}
		return res.RowsAffected()
	})
}

// InsertClusters stores clusters found on date. A cluster with the same member
// URLs as a stored one is skipped. It returns the number of new rows.
func (s *Store) InsertClusters(ctx context.Context, clusters []Cluster, date string) (int, error) {
	query := s.db.Rebind(`
		INSERT INTO raw_similar_articles (article_urls, article_headlines, keywords, similarity_weight, date)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)

	return s.insertAll(ctx, len(clusters), func(tx *sqlx.Tx, i int) (int64, error) {
		record, err := encodeCluster(clusters[i])
		if err != nil {
			return 0, err
		}
		res, err := tx.ExecContext(ctx, query, record[1], record[0], record[2], clusters[i].SimilarityWeight, date)
		if err != nil {
			return 0, fmt.Errorf("failed to insert cluster: %w", err)
		}
		return res.RowsAffected()
	})
}

func (s *Store) insertAll(ctx context.Context, n int, insert func(tx *sqlx.Tx, i int) (int64, error)) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	inserted := 0
	for i := range n {
		affected, err := insert(tx, i)
		if err != nil {
			return 0, err
		}
		inserted += int(affected)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return inserted, nil
}

// RecentClusters returns clusters with weight at least minWeight found on or after since,
// strongest first.
func (s *Store) RecentClusters(ctx context.Context, minWeight float64, since time.Time) ([]StoredCluster, error) {
	query := s.db.Rebind(`
		SELECT article_urls, article_headlines, keywords, similarity_weight, date
		FROM raw_similar_articles
		WHERE similarity_weight >= ? AND date >= ?
		ORDER BY similarity_weight DESC, date DESC, article_urls
	`)

	var rows []clusterRow
	if err := s.db.SelectContext(ctx, &rows, query, minWeight, since.Format(DateLayout)); err != nil {
		return nil, fmt.Errorf("failed to query clusters: %w", err)
	}

	clusters := make([]StoredCluster, 0, len(rows))
	for _, row := range rows {
		c, err := row.decode()
		if err != nil {
			return nil, err
		}
		clusters = append(clusters, c)
	}
	return clusters, nil
}

func (row clusterRow) decode() (StoredCluster, error) {
	c := StoredCluster{Date: row.Date}
	c.SimilarityWeight = row.SimilarityWeight

	var err error
	if c.URLs, err = ParseList(row.ArticleURLs); err != nil {
		return StoredCluster{}, fmt.Errorf("stored cluster urls: %w", err)
	}
	if c.Headlines, err = ParseList(row.ArticleHeadlines); err != nil {
		return StoredCluster{}, fmt.Errorf("stored cluster %s headlines: %w", row.ArticleURLs, err)
	}
	if c.Keywords, err = ParseList(row.Keywords); err != nil {
		return StoredCluster{}, fmt.Errorf("stored cluster %s keywords: %w", row.ArticleURLs, err)
	}
	return c, nil
}

// LookupEmbeddings returns the stored vectors for the given keys. Missing keys are absent.
func (s *Store) LookupEmbeddings(ctx context.Context, keys []string) (map[string][]float64, error) {
	vectors := make(map[string][]float64, len(keys))
	if len(keys) == 0 {
		return vectors, nil
	}

	query, args, err := sqlx.In(`SELECT text_hash, vector FROM embeddings WHERE text_hash IN (?)`, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to build embedding query: %w", err)
	}

	var rows []embeddingRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	for _, row := range rows {
		var v []float64
		if err := json.Unmarshal([]byte(row.Vector), &v); err != nil {
			return nil, fmt.Errorf("failed to decode embedding %s: %w", row.TextHash, err)
		}
		vectors[row.TextHash] = v
	}
	return vectors, nil
}

// SaveEmbeddings stores vectors produced by model.
func (s *Store) SaveEmbeddings(ctx context.Context, model string, vectors map[string][]float64) error {
	query := s.db.Rebind(`
		INSERT INTO embeddings (text_hash, model, vector)
		VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING
	`)

	keys := make([]string, 0, len(vectors))
	for key := range vectors {
		keys = append(keys, key)
	}
	_, err := s.insertAll(ctx, len(keys), func(tx *sqlx.Tx, i int) (int64, error) {
		data, err := json.Marshal(vectors[keys[i]])
		if err != nil {
			return 0, fmt.Errorf("failed to encode embedding: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, keys[i], model, string(data))
		if err != nil {
			return 0, fmt.Errorf("failed to save embedding: %w", err)
		}
		return res.RowsAffected()
	})
	return err
}

// NewStoreResultsCmd loads articles.csv and simart.csv into the database.
func NewStoreResultsCmd(app *App) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "store-results",
		Short: "Save articles and clusters to the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			articles, err := ReadArticlesFile(filepath.Join(dir, ArticlesFile))
			if err != nil {
				return err
			}
			clusters, err := ReadClustersFile(filepath.Join(dir, ClustersFile))
			if err != nil {
				return err
			}

			store, err := app.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			return app.SaveResult(ctx, store, &Result{Articles: articles, Clusters: clusters})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory holding articles.csv and simart.csv")
	return cmd
}
