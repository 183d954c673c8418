package simart

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ListDelimiter joins list-valued fields (keywords, headlines, urls) in flat text output.
const ListDelimiter = "|||"

// Article is one scraped headline.
type Article struct {
	Source     string   `json:"source" jsonschema:"description=Outlet identifier such as FOX or NYT"`
	Section    string   `json:"section" jsonschema:"description=Section of the outlet the headline was found in"`
	SectionURL string   `json:"section_url" jsonschema:"description=URL of the section page"`
	Title      string   `json:"title" jsonschema:"description=Headline text"`
	URL        string   `json:"url" jsonschema:"description=Article URL, unique within a batch"`
	Date       string   `json:"date" jsonschema:"description=Publication date (YYYY-MM-DD); the run date when unknown"`
	Image      string   `json:"image,omitempty" jsonschema:"description=Lead image URL"`
	Subheading string   `json:"subheading,omitempty" jsonschema:"description=Subheading or dek"`
	Keywords   []string `json:"keywords,omitempty" jsonschema:"description=Ranked keywords, attached by simart"`
}

// Cluster is a group of articles from the batch that describe the same event.
type Cluster struct {
	Headlines        []string `json:"article_headlines"`
	URLs             []string `json:"article_urls"`
	Keywords         []string `json:"keywords"`
	SimilarityWeight float64  `json:"similarity_weight"`
}

// Size returns the number of member articles.
func (c Cluster) Size() int {
	return len(c.URLs)
}

// EncodeList joins items with ListDelimiter.
// Items that would not survive ParseList are rejected.
func EncodeList(items []string) (string, error) {
	for _, item := range items {
		if err := checkListItem(item); err != nil {
			return "", err
		}
	}
	field := strings.Join(items, ListDelimiter)
	if _, ok := parseJSONList(field); ok {
		return "", fmt.Errorf("%w: %q would read back as a JSON array", ErrMalformedKeywordField, truncateString(field, 80))
	}
	return field, nil
}

// ParseList decodes a list field written by EncodeList.
// A field holding a JSON array of strings is read as such; anything else,
// including text that merely starts with "[", is split on ListDelimiter.
// An empty field is an empty list.
func ParseList(field string) ([]string, error) {
	if strings.TrimSpace(field) == "" {
		return []string{}, nil
	}

	if items, ok := parseJSONList(field); ok {
		for _, item := range items {
			if strings.TrimSpace(item) == "" {
				return nil, fmt.Errorf("%w: empty element in %q", ErrMalformedKeywordField, truncateString(field, 80))
			}
		}
		return items, nil
	}

	items := strings.Split(field, ListDelimiter)
	for _, item := range items {
		if err := checkListItem(item); err != nil {
			return nil, fmt.Errorf("%w (field %q)", err, truncateString(field, 80))
		}
	}
	return items, nil
}

func parseJSONList(field string) ([]string, bool) {
	trimmed := strings.TrimSpace(field)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return nil, false
	}
	var items []string
	if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
		return nil, false
	}
	return items, true
}

func checkListItem(item string) error {
	if strings.TrimSpace(item) == "" {
		return fmt.Errorf("%w: empty element", ErrMalformedKeywordField)
	}
	if strings.Contains(item, ListDelimiter) {
		return fmt.Errorf("%w: element %q contains the delimiter", ErrMalformedKeywordField, item)
	}
	// A pipe at either edge makes the delimiter ambiguous on the way back.
	if strings.HasPrefix(item, "|") || strings.HasSuffix(item, "|") {
		return fmt.Errorf("%w: element %q has a dangling pipe", ErrMalformedKeywordField, item)
	}
	return nil
}

// truncateString truncates a string to maxLength runes, adding "..." if truncated
func truncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	return string(runes[:maxLength-3]) + "..."
}
