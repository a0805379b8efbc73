// Package index provides an in-memory similarity index over a corpus.
package index

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/ppiankov/newsbrief/internal/model"
	"github.com/ppiankov/newsbrief/internal/relevance"
)

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// Memory is a TF-IDF cosine index. Vectors are sparse and L2-normalized.
type Memory struct {
	mu      sync.RWMutex
	ids     []string
	vectors map[string]map[string]float64
}

// NewMemory creates an empty index.
func NewMemory() *Memory {
	return &Memory{vectors: make(map[string]map[string]float64)}
}

// Build replaces the index contents with vectors for articles (title + summary).
func (m *Memory) Build(articles []model.CandidateArticle) {
	docs := make([][]string, len(articles))
	df := make(map[string]int)
	for i, a := range articles {
		docs[i] = tokenize(a.Title + " " + a.Title + " " + a.Summary)
		seen := make(map[string]struct{})
		for _, t := range docs[i] {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}

	n := float64(len(articles))
	vectors := make(map[string]map[string]float64, len(articles))
	ids := make([]string, 0, len(articles))
	for i, a := range articles {
		tf := make(map[string]int)
		for _, t := range docs[i] {
			tf[t]++
		}
		vec := make(map[string]float64, len(tf))
		norm := 0.0
		for t, c := range tf {
			// Smoothed IDF
			w := float64(c) / float64(len(docs[i])) * (math.Log((1+n)/(1+float64(df[t]))) + 1.0)
			vec[t] = w
			norm += w * w
		}
		norm = math.Sqrt(norm)
		if norm > 0 {
			for t := range vec {
				vec[t] /= norm
			}
		}
		if _, dup := vectors[a.ID]; !dup {
			ids = append(ids, a.ID)
		}
		vectors[a.ID] = vec
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = ids
	m.vectors = vectors
}

// Len returns the number of indexed items.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Neighbors returns up to topK items most similar to id, excluding id itself.
func (m *Memory) Neighbors(ctx context.Context, id string, topK int) ([]relevance.Neighbor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	anchor, ok := m.vectors[id]
	if !ok {
		return nil, relevance.ErrUnknownIdentity
	}
	if topK <= 0 {
		topK = 5
	}

	out := make([]relevance.Neighbor, 0, len(m.ids))
	for _, other := range m.ids {
		if other == id {
			continue
		}
		out = append(out, relevance.Neighbor{ID: other, Similarity: dot(anchor, m.vectors[other])})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func dot(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	sum := 0.0
	for t, v := range a {
		sum += v * b[t]
	}
	if sum > 1 {
		sum = 1
	}
	return sum
}

func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these",
		"those", "from", "up", "down", "over", "under", "than", "so", "such", "into", "about", "between",
		"after", "before", "out", "can", "will", "just", "should", "now", "new", "says", "said",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
