package simart

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var (
	articlesHeader = []string{"Source", "Section", "Section URL", "Article Title", "Article URL", "Keywords", "Date", "Image", "Subheading"}
	clustersHeader = []string{"Article Headlines", "Article URLs", "Keywords", "Similarity Weights"}
)

// WriteArticlesFile writes the per-article output as CSV.
func WriteArticlesFile(path string, articles []Article) error {
	return writeCSVFile(path, func(w *csv.Writer) error {
		return WriteArticlesCSV(w, articles)
	})
}

// WriteArticlesCSV writes articles with their keywords joined by ListDelimiter.
func WriteArticlesCSV(w *csv.Writer, articles []Article) error {
	if err := w.Write(articlesHeader); err != nil {
		return err
	}
	for _, a := range articles {
		keywords, err := EncodeList(CleanKeywords(a.Keywords))
		if err != nil {
			return fmt.Errorf("article %s: %w", a.URL, err)
		}
		record := []string{a.Source, a.Section, a.SectionURL, a.Title, a.URL, keywords, a.Date, a.Image, a.Subheading}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadArticlesFile reads a file written by WriteArticlesFile.
func ReadArticlesFile(path string) ([]Article, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	articles, err := ReadArticlesCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return articles, nil
}

// WriteClustersFile writes the per-cluster output as CSV.
func WriteClustersFile(path string, clusters []Cluster) error {
	return writeCSVFile(path, func(w *csv.Writer) error {
		return WriteClustersCSV(w, clusters)
	})
}

// WriteClustersCSV writes clusters with list fields joined by ListDelimiter.
func WriteClustersCSV(w *csv.Writer, clusters []Cluster) error {
	if err := w.Write(clustersHeader); err != nil {
		return err
	}
	for _, c := range clusters {
		record, err := encodeCluster(c)
		if err != nil {
			return err
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func encodeCluster(c Cluster) ([]string, error) {
	headlines := make([]string, len(c.Headlines))
	for i, h := range c.Headlines {
		headlines[i] = cleanHeadline(h)
	}
	encodedHeadlines, err := EncodeList(headlines)
	if err != nil {
		return nil, fmt.Errorf("cluster headlines: %w", err)
	}
	encodedURLs, err := EncodeList(c.URLs)
	if err != nil {
		return nil, fmt.Errorf("cluster urls: %w", err)
	}
	encodedKeywords, err := EncodeList(CleanKeywords(c.Keywords))
	if err != nil {
		return nil, fmt.Errorf("cluster keywords: %w", err)
	}
	return []string{
		encodedHeadlines,
		encodedURLs,
		encodedKeywords,
		strconv.FormatFloat(c.SimilarityWeight, 'f', -1, 64),
	}, nil
}

// ReadClustersFile reads a file written by WriteClustersFile.
func ReadClustersFile(path string) ([]Cluster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	clusters, err := ReadClustersCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return clusters, nil
}

// ReadClustersCSV decodes clusters written by WriteClustersCSV.
func ReadClustersCSV(r io.Reader) ([]Cluster, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(clustersHeader)

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var clusters []Cluster
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}

		var c Cluster
		if c.Headlines, err = ParseList(record[0]); err != nil {
			return nil, fmt.Errorf("line %d headlines: %w", line, err)
		}
		if c.URLs, err = ParseList(record[1]); err != nil {
			return nil, fmt.Errorf("line %d urls: %w", line, err)
		}
		if c.Keywords, err = ParseList(record[2]); err != nil {
			return nil, fmt.Errorf("line %d keywords: %w", line, err)
		}
		if c.SimilarityWeight, err = strconv.ParseFloat(record[3], 64); err != nil {
			return nil, fmt.Errorf("line %d weight: %w", line, err)
		}
		clusters = append(clusters, c)
	}
	return clusters, nil
}

// CleanKeywords strips non-ASCII characters (after folding accents) and drops
// keywords left empty.
func CleanKeywords(keywords []string) []string {
	cleaned := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(cleanASCII(k))
		if k == "" || strings.Contains(k, "|") {
			continue
		}
		cleaned = append(cleaned, k)
	}
	return cleaned
}

// cleanHeadline trims pipes at the edges, which would be ambiguous next to the delimiter.
func cleanHeadline(h string) string {
	h = strings.Trim(h, " |")
	if h == "" {
		return "untitled"
	}
	return strings.ReplaceAll(h, ListDelimiter, " | ")
}

func writeCSVFile(path string, write func(*csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(csv.NewWriter(f)); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
