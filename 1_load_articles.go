package simart

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DateLayout is the date format written to every output.
const DateLayout = "2006-01-02"

// Output files of the pipeline; they are never read back as scraper input.
const (
	ArticlesFile = "articles.csv"
	ClustersFile = "simart.csv"
)

// LoadArticlesDir reads every scraper output file (*.csv, *.json) in dir, in name order.
// Pipeline outputs and files too small to hold a record are skipped.
func LoadArticlesDir(dir string, runDate time.Time) ([]Article, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var articles []Article
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == ArticlesFile || name == ClustersFile {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".csv" && ext != ".json" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", name, err)
		}
		if info.Size() <= 2 {
			continue
		}

		loaded, err := LoadArticlesFile(filepath.Join(dir, name), runDate)
		if err != nil {
			return nil, err
		}
		articles = append(articles, loaded...)
	}
	return articles, nil
}

// LoadArticlesFile reads one CSV or JSON file of articles and normalizes them.
func LoadArticlesFile(path string, runDate time.Time) ([]Article, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var articles []Article
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.NewDecoder(f).Decode(&articles); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".csv":
		articles, err = ReadArticlesCSV(f)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported article file %s", path)
	}

	return NormalizeArticles(articles, runDate), nil
}

// ReadArticlesCSV reads articles from CSV with a header row.
// Headers are matched case-insensitively; both "Article URL" and "url" style names work.
// A "Keywords" column is decoded with ParseList.
func ReadArticlesCSV(r io.Reader) ([]Article, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[columnKey(name)] = i
	}
	if _, ok := columns["url"]; !ok {
		return nil, fmt.Errorf("missing url column in header %v", header)
	}

	var articles []Article
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}

		get := func(key string) string {
			idx, ok := columns[key]
			if !ok || idx >= len(record) {
				return ""
			}
			return record[idx]
		}

		article := Article{
			Source:     get("source"),
			Section:    get("section"),
			SectionURL: get("section_url"),
			Title:      get("title"),
			URL:        get("url"),
			Date:       get("date"),
			Image:      get("image"),
			Subheading: get("subheading"),
		}
		if _, ok := columns["keywords"]; ok {
			keywords, err := ParseList(get("keywords"))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			article.Keywords = keywords
		}
		articles = append(articles, article)
	}
	return articles, nil
}

func columnKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, " ", "_")
	switch key {
	case "article_title":
		return "title"
	case "article_url":
		return "url"
	case "article_source":
		return "source"
	case "article_section":
		return "section"
	case "article_keywords":
		return "keywords"
	}
	return key
}

// NormalizeArticles trims text fields, drops records without a URL and
// rewrites dates as YYYY-MM-DD, using runDate when the date is missing or unparsable.
func NormalizeArticles(articles []Article, runDate time.Time) []Article {
	normalized := make([]Article, 0, len(articles))
	for _, a := range articles {
		a.Source = strings.TrimSpace(a.Source)
		a.Title = strings.TrimSpace(a.Title)
		a.URL = strings.TrimSpace(a.URL)
		if a.URL == "" {
			continue
		}
		a.Date = normalizeDate(a.Date, runDate)
		a.Keywords = slices.Clone(a.Keywords)
		normalized = append(normalized, a)
	}
	return normalized
}

func normalizeDate(value string, runDate time.Time) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return runDate.Format(DateLayout)
	}
	t, err := dateparse.ParseIn(value, runDate.Location())
	if err != nil {
		return runDate.Format(DateLayout)
	}
	return t.Format(DateLayout)
}
