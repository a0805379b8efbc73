// Package relevance re-ranks similarity-index neighbors into editorially
// related items for an anchor article.
package relevance

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/ppiankov/newsbrief/internal/metrics"
	"github.com/ppiankov/newsbrief/internal/model"
)

// ErrUnknownIdentity is returned by a SimilarityIndex that has never seen an id.
var ErrUnknownIdentity = errors.New("unknown identity")

// Neighbor is one ranked hit from the similarity index.
type Neighbor struct {
	ID         string
	Similarity float64
}

// SimilarityIndex returns ranked neighbors of an indexed item.
type SimilarityIndex interface {
	Neighbors(ctx context.Context, id string, topK int) ([]Neighbor, error)
}

// Weights are the scoring constants of the re-ranking formula.
type Weights struct {
	TopK               int
	SimilarityFloor    float64
	CategoryBonus      float64
	EntityBonus        float64 // per shared entity
	TitleOverlapWeight float64
	DuplicateThreshold float64
	DuplicatePenalty   float64
	MinScore           float64
	LongWordMin        int
}

// DefaultWeights returns the production weights.
func DefaultWeights() Weights {
	return Weights{
		TopK:               3,
		SimilarityFloor:    0.2,
		CategoryBonus:      0.2,
		EntityBonus:        0.3,
		TitleOverlapWeight: 0.15,
		DuplicateThreshold: 0.9,
		DuplicatePenalty:   0.5,
		MinScore:           0.3,
		LongWordMin:        5,
	}
}

// WeightsFromConfig overlays non-zero configured values on the defaults.
func WeightsFromConfig(cfg model.RelevanceConfig) Weights {
	w := DefaultWeights()
	if cfg.TopK > 0 {
		w.TopK = cfg.TopK
	}
	setIf := func(dst *float64, v float64) {
		if v > 0 {
			*dst = v
		}
	}
	setIf(&w.SimilarityFloor, cfg.SimilarityFloor)
	setIf(&w.CategoryBonus, cfg.CategoryBonus)
	setIf(&w.EntityBonus, cfg.EntityBonus)
	setIf(&w.TitleOverlapWeight, cfg.TitleOverlapWeight)
	setIf(&w.DuplicateThreshold, cfg.DuplicateThreshold)
	setIf(&w.DuplicatePenalty, cfg.DuplicatePenalty)
	setIf(&w.MinScore, cfg.MinScore)
	return w
}

// Candidate is a corpus article pre-scored with base similarity to the anchor.
type Candidate struct {
	Article    model.CandidateArticle
	Similarity float64
}

// Engine scores candidates. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	weights   Weights
	extractor EntityExtractor
	logger    *slog.Logger
}

// NewEngine creates an engine; a nil extractor selects the heuristic one.
func NewEngine(weights Weights, extractor EntityExtractor, logger *slog.Logger) *Engine {
	if extractor == nil {
		extractor = NewHeuristicExtractor(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if weights.TopK <= 0 {
		weights.TopK = DefaultWeights().TopK
	}
	if weights.LongWordMin <= 0 {
		weights.LongWordMin = DefaultWeights().LongWordMin
	}
	return &Engine{weights: weights, extractor: extractor, logger: logger}
}

// Weights returns the engine's scoring constants.
func (e *Engine) Weights() Weights {
	return e.weights
}

// Score returns the adjusted score of c against anchor before the MinScore cut.
// Near-duplicates keep their place but at a penalty, since they may be the
// only other source.
func (e *Engine) Score(anchor model.CandidateArticle, c Candidate) float64 {
	w := e.weights
	score := c.Similarity

	if anchor.Category != "" && strings.EqualFold(anchor.Category, c.Article.Category) {
		score += w.CategoryBonus
	}

	shared := intersect(
		e.extractor.Extract(anchor.Title+" "+anchor.Summary),
		e.extractor.Extract(c.Article.Title+" "+c.Article.Summary),
	)
	score += w.EntityBonus * float64(shared)

	anchorWords := longWords(anchor.Title, w.LongWordMin)
	if len(anchorWords) > 0 {
		overlap := intersect(anchorWords, longWords(c.Article.Title, w.LongWordMin))
		score += w.TitleOverlapWeight * float64(overlap) / float64(len(anchorWords))
	}

	if c.Similarity > w.DuplicateThreshold {
		score = clamp01(score) * w.DuplicatePenalty
	}
	return score
}

// Rank returns up to TopK related items for anchor, best first.
func (e *Engine) Rank(anchor model.CandidateArticle, candidates []Candidate) []model.RelatedItem {
	w := e.weights
	type scored struct {
		c     Candidate
		score float64
	}
	var kept []scored
	seen := make(map[string]struct{})
	for _, c := range candidates {
		if c.Article.ID == anchor.ID || c.Similarity < w.SimilarityFloor {
			continue
		}
		if _, dup := seen[c.Article.ID]; dup {
			continue
		}
		seen[c.Article.ID] = struct{}{}

		s := e.Score(anchor, c)
		if s <= w.MinScore {
			continue
		}
		kept = append(kept, scored{c: c, score: s})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].score != kept[j].score {
			return kept[i].score > kept[j].score
		}
		return kept[i].c.Article.ID < kept[j].c.Article.ID
	})
	if len(kept) > w.TopK {
		kept = kept[:w.TopK]
	}

	out := make([]model.RelatedItem, 0, len(kept))
	for _, k := range kept {
		out = append(out, toRelated(k.c.Article, clamp01(k.score)))
	}
	return out
}

// Related looks up neighbors of anchorID and ranks them. The result is empty,
// never an error, when the index fails.
func (e *Engine) Related(ctx context.Context, anchorID string, corpus map[string]model.CandidateArticle, index SimilarityIndex) []model.RelatedItem {
	if index == nil || anchorID == "" {
		return []model.RelatedItem{}
	}
	neighbors, err := index.Neighbors(ctx, anchorID, e.weights.TopK*4)
	if err != nil {
		e.logger.Debug("related lookup failed", "anchor", anchorID, "error", err)
		metrics.RelatedLookupFailures.Inc()
		return []model.RelatedItem{}
	}

	anchor, ok := corpus[anchorID]
	if !ok {
		return e.baseOnly(anchorID, neighbors, corpus)
	}

	candidates := make([]Candidate, 0, len(neighbors))
	for _, n := range neighbors {
		if a, ok := corpus[n.ID]; ok {
			candidates = append(candidates, Candidate{Article: a, Similarity: n.Similarity})
		}
	}
	return e.Rank(anchor, candidates)
}

// baseOnly ranks by base similarity alone, for anchors missing from the corpus.
func (e *Engine) baseOnly(anchorID string, neighbors []Neighbor, corpus map[string]model.CandidateArticle) []model.RelatedItem {
	var hits []Neighbor
	for _, n := range neighbors {
		if n.ID == anchorID || n.Similarity < e.weights.SimilarityFloor {
			continue
		}
		if _, ok := corpus[n.ID]; ok {
			hits = append(hits, n)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > e.weights.TopK {
		hits = hits[:e.weights.TopK]
	}
	out := make([]model.RelatedItem, 0, len(hits))
	for _, h := range hits {
		out = append(out, toRelated(corpus[h.ID], clamp01(h.Similarity)))
	}
	return out
}

func toRelated(a model.CandidateArticle, score float64) model.RelatedItem {
	return model.RelatedItem{
		ArticleID:  a.ID,
		Title:      a.Title,
		Source:     a.Source,
		URL:        a.URL,
		BiasRating: a.BiasRating,
		Summary:    a.Summary,
		Score:      score,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
