package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode"
)

// MinScore filters out matches with no meaningful relation to the query.
const MinScore = 0.1

// DefaultTopK is how many corpus items a retrieval returns at most.
const DefaultTopK = 3

// Embedder produces vector embeddings for corpus content and queries. The
// goframe embedding service satisfies this interface.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Match is a scored retrieval result.
type Match struct {
	Item  Item
	Score float64
}

// Index answers similarity queries over the corpus. With an embedder it
// ranks by cosine similarity; without one, or when embedding fails, it
// degrades to keyword-overlap scoring so retrieval keeps working offline.
type Index struct {
	embedder Embedder
	items    []Item
	vectors  [][]float32
	logger   *slog.Logger
}

// NewIndex builds an index over the given corpus. A nil embedder is valid
// and selects keyword retrieval.
func NewIndex(ctx context.Context, embedder Embedder, items []Item, logger *slog.Logger) *Index {
	idx := &Index{items: items, logger: logger}
	if embedder == nil || len(items) == 0 {
		return idx
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Content
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil || len(vectors) != len(items) {
		logger.Warn("corpus embedding failed, falling back to keyword retrieval",
			"items", len(items),
			"error", err,
		)
		return idx
	}

	idx.embedder = embedder
	idx.vectors = vectors
	return idx
}

// Len returns the corpus size.
func (x *Index) Len() int {
	return len(x.items)
}

// Items returns the indexed corpus in its original order.
func (x *Index) Items() []Item {
	return x.items
}

// Search returns up to k corpus items relevant to the query, best match
// first. Results below MinScore are dropped. With k <= 0 the default is
// used. Search never fails; embedding errors degrade to keyword scoring.
func (x *Index) Search(ctx context.Context, query string, k int) []Match {
	if k <= 0 {
		k = DefaultTopK
	}
	if len(x.items) == 0 || strings.TrimSpace(query) == "" {
		return nil
	}

	if x.embedder != nil {
		matches, err := x.vectorSearch(ctx, query, k)
		if err == nil {
			return matches
		}
		x.logger.Warn("vector search failed, falling back to keyword retrieval", "error", err)
	}
	return x.keywordSearch(query, k)
}

func (x *Index) vectorSearch(ctx context.Context, query string, k int) ([]Match, error) {
	queryVec, err := x.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches := make([]Match, 0, len(x.items))
	for i, vec := range x.vectors {
		score := CosineSimilarity(queryVec, vec)
		if score > MinScore {
			matches = append(matches, Match{Item: x.items[i], Score: score})
		}
	}
	return topMatches(matches, k), nil
}

func (x *Index) keywordSearch(query string, k int) []Match {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil
	}

	matches := make([]Match, 0, len(x.items))
	for _, item := range x.items {
		itemTerms := tokenize(item.Content + " " + item.Category)
		score := overlapScore(queryTerms, itemTerms)
		if score > MinScore {
			matches = append(matches, Match{Item: item, Score: score})
		}
	}
	return topMatches(matches, k)
}

// topMatches sorts by score descending and caps the result at k. The sort
// is stable so equal scores keep corpus order, which keeps retrieval
// deterministic.
func topMatches(matches []Match, k int) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Mismatched or zero-magnitude vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// tokenize lowercases the text and splits it into terms, dropping short
// tokens that carry no signal. A trailing plural 's' is trimmed so "names"
// matches "name".
func tokenize(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, field := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(field) > 4 && strings.HasSuffix(field, "s") {
			field = strings.TrimSuffix(field, "s")
		}
		if len(field) < 3 {
			continue
		}
		terms[field] = struct{}{}
	}
	return terms
}

// overlapScore is the fraction of query terms found in the item terms.
func overlapScore(query, item map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	matched := 0
	for term := range query {
		if _, ok := item[term]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(query))
}
