package simart

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Weights are the per-signal scores added for each keyword hit.
type Weights struct {
	POS    float64 `yaml:"pos"`
	NER    float64 `yaml:"ner"`
	Manual float64 `yaml:"manual"`
}

// Adjustments are the pairwise corrections applied on top of cosine similarity.
type Adjustments struct {
	SourceBonus       float64 `yaml:"source_bonus"`
	SameSourcePenalty float64 `yaml:"same_source_penalty"`
	KeywordBonus      float64 `yaml:"keyword_bonus"`
}

// Config holds all tunables of a run.
type Config struct {
	OpenAIAPIKey       string `yaml:"-"`
	OpenAIBaseURL      string `yaml:"openai_base_url"`
	EmbeddingModel     string `yaml:"embedding_model"`
	EmbeddingBatchSize int    `yaml:"embedding_batch_size"`
	DatabaseURL        string `yaml:"database_url"`
	LogLevel           string `yaml:"log_level"`

	Weights             Weights     `yaml:"weights"`
	Adjustments         Adjustments `yaml:"adjustments"`
	SimilarityThreshold float64     `yaml:"similarity_threshold"`
	MinSamples          int         `yaml:"min_samples"`
	KeyphraseTopN       int         `yaml:"keyphrase_top_n"`
	Vocabulary          []string    `yaml:"vocabulary"`
}

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() Config {
	return Config{
		EmbeddingModel:     "text-embedding-3-small",
		EmbeddingBatchSize: 256,
		DatabaseURL:        "sqlite3://simart.db",
		LogLevel:           "info",
		Weights: Weights{
			POS:    1,
			NER:    2,
			Manual: 1.1,
		},
		Adjustments: Adjustments{
			SourceBonus:       0.1,
			SameSourcePenalty: 0.5,
			KeywordBonus:      0.033,
		},
		SimilarityThreshold: 0.9,
		MinSamples:          2,
		KeyphraseTopN:       5,
		Vocabulary:          DefaultVocabulary,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
// An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("similarity_threshold must be in (0, 1], got %v", c.SimilarityThreshold))
	}
	if c.MinSamples < 2 {
		errs = append(errs, fmt.Errorf("min_samples must be at least 2, got %d", c.MinSamples))
	}
	if c.EmbeddingBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("embedding_batch_size must be positive, got %d", c.EmbeddingBatchSize))
	}
	if c.KeyphraseTopN < 0 {
		errs = append(errs, fmt.Errorf("keyphrase_top_n must not be negative, got %d", c.KeyphraseTopN))
	}
	if c.Adjustments.SameSourcePenalty < 0 {
		errs = append(errs, fmt.Errorf("same_source_penalty is subtracted and must not be negative, got %v", c.Adjustments.SameSourcePenalty))
	}
	return errors.Join(errs...)
}
