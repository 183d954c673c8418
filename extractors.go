package simart

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"
	"unicode"

	ahocorasick "github.com/cloudflare/ahocorasick"
	"github.com/jdkato/prose/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// POSExtractor emits nouns, proper nouns and verbs of a title that are not stop words.
type POSExtractor struct{}

func (POSExtractor) Name() string { return string(KindPOS) }

func (POSExtractor) Extract(_ context.Context, title string) ([]Signal, error) {
	doc, err := prose.NewDocument(strings.ToLower(title),
		prose.WithSegmentation(false),
		prose.WithExtraction(false))
	if err != nil {
		return nil, fmt.Errorf("failed to tag title: %w", err)
	}

	var signals []Signal
	for _, tok := range doc.Tokens() {
		if !strings.HasPrefix(tok.Tag, "NN") && !strings.HasPrefix(tok.Tag, "VB") {
			continue
		}
		word := strings.ToLower(tok.Text)
		if isStopWord(word) || !hasLetter(word) {
			continue
		}
		signals = append(signals, Signal{Text: word, Kind: KindPOS, Label: tok.Tag})
	}
	return signals, nil
}

// excludedEntityLabels are entity categories that carry no topical meaning.
var excludedEntityLabels = map[string]bool{
	"DATE":     true,
	"ORDINAL":  true,
	"CARDINAL": true,
	"MONEY":    true,
	"TIME":     true,
	"QUANTITY": true,
	"PERCENT":  true,
}

// NERExtractor emits named entities of a title.
type NERExtractor struct{}

func (NERExtractor) Name() string { return string(KindNER) }

func (NERExtractor) Extract(_ context.Context, title string) ([]Signal, error) {
	doc, err := prose.NewDocument(title, prose.WithSegmentation(false))
	if err != nil {
		return nil, fmt.Errorf("failed to extract entities: %w", err)
	}

	var signals []Signal
	for _, ent := range doc.Entities() {
		if excludedEntityLabels[ent.Label] {
			continue
		}
		signals = append(signals, Signal{Text: ent.Text, Kind: KindNER, Label: ent.Label})
	}
	return signals, nil
}

var candidateToken = regexp.MustCompile(`\w\w+`)

// KeyphraseExtractor ranks the words of a title by how close their embedding is
// to the embedding of the whole title and returns the best TopN with that
// similarity as confidence.
type KeyphraseExtractor struct {
	Embedder Embedder
	TopN     int
}

func (e KeyphraseExtractor) Name() string { return string(KindKeyphrase) }

func (e KeyphraseExtractor) Extract(ctx context.Context, title string) ([]Signal, error) {
	if e.TopN <= 0 {
		return nil, nil
	}
	candidates := keyphraseCandidates(title)
	if len(candidates) == 0 {
		return nil, nil
	}

	vectors, err := e.Embedder.Embed(ctx, append([]string{title}, candidates...))
	if err != nil {
		return nil, fmt.Errorf("failed to embed keyphrase candidates: %w", err)
	}
	if len(vectors) != len(candidates)+1 {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailure, len(vectors), len(candidates)+1)
	}

	signals := make([]Signal, len(candidates))
	for i, candidate := range candidates {
		score := cosineSimilarity(vectors[0], vectors[i+1])
		signals[i] = Signal{
			Text:       candidate,
			Kind:       KindKeyphrase,
			Confidence: math.Round(score*10000) / 10000,
		}
	}
	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Confidence > signals[j].Confidence
	})
	if len(signals) > e.TopN {
		signals = signals[:e.TopN]
	}
	return signals, nil
}

// keyphraseCandidates returns the distinct lowercase words of at least two
// characters that are not stop words, in title order.
func keyphraseCandidates(title string) []string {
	var candidates []string
	seen := make(map[string]bool)
	for _, word := range candidateToken.FindAllString(strings.ToLower(title), -1) {
		if isStopWord(word) || seen[word] {
			continue
		}
		seen[word] = true
		candidates = append(candidates, word)
	}
	return candidates
}

// VocabularyExtractor matches a title against a curated term list.
// Single-word terms must equal a title word, multi-word terms must appear as
// a run of whole words.
type VocabularyExtractor struct {
	mu      sync.Mutex
	matcher *ahocorasick.Matcher
	terms   []string
}

// NewVocabularyExtractor builds the Aho-Corasick automaton for terms.
// Terms are normalized like titles, so "Côte d'Ivoire" and "cote d'ivoire" are the same term.
func NewVocabularyExtractor(terms []string) *VocabularyExtractor {
	e := &VocabularyExtractor{}
	seen := make(map[string]bool, len(terms))
	for _, term := range terms {
		term = strings.Join(strings.Fields(normalizeHeadline(term)), " ")
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		e.terms = append(e.terms, term)
	}
	if len(e.terms) > 0 {
		e.matcher = ahocorasick.NewStringMatcher(e.terms)
	}
	return e
}

func (e *VocabularyExtractor) Name() string { return string(KindManual) }

func (e *VocabularyExtractor) Extract(_ context.Context, title string) ([]Signal, error) {
	if e.matcher == nil {
		return nil, nil
	}
	text := normalizeHeadline(title)

	e.mu.Lock()
	hits := e.matcher.Match([]byte(text))
	e.mu.Unlock()

	slices.Sort(hits)
	hits = slices.Compact(hits)

	padded := " " + strings.Join(strings.Fields(text), " ") + " "
	var signals []Signal
	for _, idx := range hits {
		if idx < 0 || idx >= len(e.terms) {
			continue
		}
		term := e.terms[idx]
		if strings.Contains(padded, " "+term+" ") {
			signals = append(signals, Signal{Text: term, Kind: KindManual})
		}
	}
	return signals, nil
}

var nonWord = regexp.MustCompile(`[^\w\s']`)

// normalizeHeadline folds accents, lowercases and strips punctuation other than apostrophes.
func normalizeHeadline(title string) string {
	return nonWord.ReplaceAllString(strings.ToLower(foldAccents(title)), "")
}

// foldAccents decomposes text and drops combining marks ("café" → "cafe").
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// cleanASCII folds accents and drops whatever is still outside ASCII.
func cleanASCII(s string) string {
	folded := foldAccents(s)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
