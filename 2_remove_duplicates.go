package simart

import "strings"

// RemoveDuplicates drops articles whose URL repeats, or contains or is contained in,
// the URL of an article seen earlier in the batch. The first occurrence is kept,
// so tracking suffixes like "?ref=fb" collapse onto the bare URL.
// Articles without a URL have no identity and are dropped.
//
// Every candidate is compared with every kept article, so cost is O(n²) string
// containment checks. That is fine for a day of headlines (a few thousand) and is
// the limit on batch size.
func RemoveDuplicates(articles []Article) []Article {
	kept := make([]Article, 0, len(articles))
	seen := make(map[string]struct{}, len(articles))

	for _, article := range articles {
		if article.URL == "" {
			continue
		}
		if _, ok := seen[article.URL]; ok {
			continue
		}
		if containsRelatedURL(kept, article.URL) {
			continue
		}
		seen[article.URL] = struct{}{}
		kept = append(kept, article)
	}
	return kept
}

func containsRelatedURL(kept []Article, url string) bool {
	for _, other := range kept {
		if strings.Contains(other.URL, url) || strings.Contains(url, other.URL) {
			return true
		}
	}
	return false
}
