package simart

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Kind identifies which extractor produced a keyword signal.
type Kind string

const (
	KindPOS       Kind = "pos"
	KindNER       Kind = "ner"
	KindKeyphrase Kind = "kbrt"
	KindManual    Kind = "manual"
)

// Signal is one keyword candidate found in a title.
type Signal struct {
	Text       string
	Kind       Kind
	Label      string  // entity label or part-of-speech tag, informational only
	Confidence float64 // keyphrase similarity, only used for KindKeyphrase
}

// Extractor finds keyword candidates in a title.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, title string) ([]Signal, error)
}

// ExtractorResult is the outcome of one extractor on one title.
// A failed extractor has no signals and a non-nil Err.
type ExtractorResult struct {
	Extractor string
	Signals   []Signal
	Err       error
}

// KeywordAggregator combines several extractors into a single ranked keyword list.
type KeywordAggregator struct {
	extractors []Extractor
	weights    Weights
	log        *zap.SugaredLogger
}

// NewKeywordAggregator returns an aggregator running extractors in the given order.
// Extractor order decides tie breaks between equally scored keywords.
func NewKeywordAggregator(weights Weights, log *zap.SugaredLogger, extractors ...Extractor) *KeywordAggregator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &KeywordAggregator{extractors: extractors, weights: weights, log: log}
}

// Aggregate runs every extractor on title and returns the ranked keywords plus
// the per-extractor results. A failing extractor counts as empty for this title.
func (a *KeywordAggregator) Aggregate(ctx context.Context, title string) ([]string, []ExtractorResult) {
	results := make([]ExtractorResult, 0, len(a.extractors))
	for _, extractor := range a.extractors {
		signals, err := extractor.Extract(ctx, title)
		if err != nil {
			a.log.Warnf("Extractor %s failed on %q: %v", extractor.Name(), truncateString(title, 60), err)
			signals = nil
		}
		results = append(results, ExtractorResult{Extractor: extractor.Name(), Signals: signals, Err: err})
	}
	return AggregateSignals(a.weights, results), results
}

// Annotate attaches keywords to every article that has none yet. A nil or empty
// Keywords slice counts as none.
func (a *KeywordAggregator) Annotate(ctx context.Context, articles []Article) error {
	annotated := 0
	for i := range articles {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(articles[i].Keywords) > 0 {
			continue
		}
		keywords, _ := a.Aggregate(ctx, articles[i].Title)
		articles[i].Keywords = keywords
		annotated++
	}
	a.log.Infof("Extracted keywords for %d articles", annotated)
	return nil
}

// AggregateSignals scores every normalized keyword and returns those scoring above 1,
// highest first. Equal scores keep the order in which keywords were first seen.
func AggregateSignals(weights Weights, results []ExtractorResult) []string {
	scores := make(map[string]float64)
	var order []string

	for _, result := range results {
		for _, signal := range result.Signals {
			keyword := strings.ToLower(strings.TrimSpace(signal.Text))
			if keyword == "" {
				continue
			}
			if _, ok := scores[keyword]; !ok {
				order = append(order, keyword)
			}

			switch signal.Kind {
			case KindPOS:
				scores[keyword] += weights.POS
			case KindNER:
				scores[keyword] += weights.NER
			case KindKeyphrase:
				scores[keyword] += NormalizeConfidence(signal.Confidence)
			case KindManual:
				scores[keyword] += weights.Manual
			}
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	keywords := make([]string, 0, len(order))
	for _, keyword := range order {
		if scores[keyword] > 1 {
			keywords = append(keywords, keyword)
		}
	}
	return keywords
}

// NormalizeConfidence maps a keyphrase confidence from [0.5, 1.0] onto [0, 2.0].
// Values outside the range are extrapolated, not clamped.
func NormalizeConfidence(confidence float64) float64 {
	const (
		minConf   = 0.5
		maxConf   = 1.0
		targetMax = 2.0
	)
	return (confidence - minConf) / (maxConf - minConf) * targetMax
}

// NewExtractKeywordsCmd reads scraper output, attaches keywords and writes articles.csv.
func NewExtractKeywordsCmd(app *App) *cobra.Command {
	var inputDir, outputDir string
	cmd := &cobra.Command{
		Use:   "extract-keywords",
		Short: "Extract keywords for every scraped headline",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			articles, err := LoadArticlesDir(inputDir, app.Now())
			if err != nil {
				return err
			}
			app.Log.Infof("Loaded %d articles from %s", len(articles), inputDir)

			embedder, closeEmbedder, err := app.NewEmbedder(ctx)
			if err != nil {
				return err
			}
			defer closeEmbedder()

			articles = RemoveDuplicates(articles)
			if err := app.NewAggregator(embedder).Annotate(ctx, articles); err != nil {
				return fmt.Errorf("failed to extract keywords: %w", err)
			}

			path := filepath.Join(outputDir, ArticlesFile)
			if err := WriteArticlesFile(path, articles); err != nil {
				return err
			}
			app.Log.Infof("Saved %d articles to %s", len(articles), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&inputDir, "input", "scraped", "directory with scraper CSV/JSON files")
	cmd.Flags().StringVar(&outputDir, "output", ".", "directory for articles.csv")
	return cmd
}
