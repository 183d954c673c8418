package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cenkalti/simart"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Load .env file if there is one
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	cfg, err := simart.LoadConfig(os.Getenv("SIMART_CONFIG"))
	if err != nil {
		log.Fatal(err)
	}
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if v := os.Getenv("SIMART_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("SIMART_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	logger, err := simart.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync() //nolint:errcheck // stderr sync fails on some terminals

	app := simart.NewApp(cfg, logger)

	rootCmd := &cobra.Command{
		Use:           "simart",
		Short:         "Find news articles that cover the same event across outlets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(simart.NewExtractKeywordsCmd(app))
	rootCmd.AddCommand(simart.NewClusterArticlesCmd(app))
	rootCmd.AddCommand(simart.NewStoreResultsCmd(app))
	rootCmd.AddCommand(simart.NewGenerateReportCmd(app))
	rootCmd.AddCommand(simart.NewSchemaCmd())
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newCleanCmd(app))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Errorf("%v", err)
		stop()
		logger.Sync() //nolint:errcheck
		os.Exit(1)
	}
}

func newRunCmd(app *simart.App) *cobra.Command {
	var inputDir, outputDir string
	var store bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline: extract-keywords -> cluster-articles -> store-results",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app.Log.Info("Running full pipeline...")

			articles, err := simart.LoadArticlesDir(inputDir, app.Now())
			if err != nil {
				return err
			}
			app.Log.Infof("Loaded %d articles from %s", len(articles), inputDir)

			embedder, closeEmbedder, err := app.NewEmbedder(ctx)
			if err != nil {
				return err
			}
			defer closeEmbedder()

			result, err := app.NewEngine(embedder).Run(ctx, articles)
			if err != nil {
				return err
			}

			if err := simart.WriteArticlesFile(filepath.Join(outputDir, simart.ArticlesFile), result.Articles); err != nil {
				return err
			}
			if err := simart.WriteClustersFile(filepath.Join(outputDir, simart.ClustersFile), result.Clusters); err != nil {
				return err
			}

			if store {
				s, err := app.OpenStore(ctx)
				if err != nil {
					return err
				}
				defer s.Close()
				if err := app.SaveResult(ctx, s, result); err != nil {
					return err
				}
			}

			st := result.Stats
			app.Log.Infof("Pipeline complete: %d input, %d unique, %d near-duplicates, %d rejected, %d clusters, %d noise",
				st.Input, st.Unique, st.NearDuplicates, st.Rejected, st.Clusters, st.Noise)
			return nil
		},
	}
	cmd.Flags().StringVar(&inputDir, "input", "scraped", "directory with scraper CSV/JSON files")
	cmd.Flags().StringVar(&outputDir, "output", ".", "directory for articles.csv and simart.csv")
	cmd.Flags().BoolVar(&store, "store", true, "save results to the database")
	return cmd
}

func newCleanCmd(app *simart.App) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove pipeline outputs and reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			files := []string{simart.ArticlesFile, simart.ClustersFile, "report.md", "report.html"}
			for _, name := range files {
				path := filepath.Join(dir, name)
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("failed to remove %s: %w", path, err)
				}
			}
			app.Log.Infof("Cleaned outputs in %s", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory holding pipeline outputs")
	return cmd
}
