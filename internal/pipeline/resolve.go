package pipeline

import (
	"net/url"
	"strings"

	"github.com/ppiankov/newsbrief/internal/model"
	"github.com/ppiankov/newsbrief/internal/parse"
)

// minSharedWords is the keyword-overlap bar for matching a record to a candidate
const minSharedWords = 2

var matchStopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "that": {}, "this": {},
	"into": {}, "over": {}, "after": {}, "amid": {}, "says": {}, "will": {}, "its": {},
	"are": {}, "was": {}, "has": {}, "have": {}, "new": {},
}

// resolver anchors parsed records to corpus candidates. Every candidate is
// used at most once; a record that cannot be matched takes the next unused
// candidate in corpus order.
type resolver struct {
	corpus []model.CandidateArticle
	byID   map[string]int
	used   []bool
	words  []map[string]struct{}
}

func newResolver(corpus []model.CandidateArticle) *resolver {
	r := &resolver{
		corpus: corpus,
		byID:   make(map[string]int, len(corpus)),
		used:   make([]bool, len(corpus)),
		words:  make([]map[string]struct{}, len(corpus)),
	}
	for i, a := range corpus {
		if _, dup := r.byID[a.ID]; !dup {
			r.byID[a.ID] = i
		}
		r.words[i] = significantWords(a.Title)
	}
	return r
}

// resolve returns the corpus index for rec and whether it matched on
// content rather than by position. It returns -1 when every candidate is used.
func (r *resolver) resolve(rec parse.Record) (int, bool) {
	if id := rec.String("id", "article_id", "articleId"); id != "" {
		if i, ok := r.byID[id]; ok && !r.used[i] {
			return r.take(i), true
		}
	}

	title := fold(rec.String("title", "headline"))
	source := fold(rec.String("source", "publisher"))

	if title != "" {
		if source != "" {
			for i, a := range r.corpus {
				if !r.used[i] && fold(a.Title) == title && fold(a.Source) == source {
					return r.take(i), true
				}
			}
		}
		for i, a := range r.corpus {
			if !r.used[i] && fold(a.Title) == title {
				return r.take(i), true
			}
		}

		recWords := significantWords(title)
		best, bestScore := -1, 0.0
		for i := range r.corpus {
			if r.used[i] {
				continue
			}
			shared := 0
			for w := range recWords {
				if _, ok := r.words[i][w]; ok {
					shared++
				}
			}
			if shared < minSharedWords {
				continue
			}
			union := len(recWords) + len(r.words[i]) - shared
			score := float64(shared) / float64(union)
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best >= 0 {
			return r.take(best), true
		}
	}

	for i := range r.corpus {
		if !r.used[i] {
			return r.take(i), false
		}
	}
	return -1, false
}

func (r *resolver) take(i int) int {
	r.used[i] = true
	return i
}

func fold(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func significantWords(title string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	}) {
		if len([]rune(w)) < 3 {
			continue
		}
		if _, stop := matchStopwords[w]; stop {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

// normalizeURL drops the query string and fragment, where tracking
// parameters live. It returns fallback when raw is empty or unparseable.
func normalizeURL(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = fallback
	}
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		if raw != fallback {
			return normalizeURL(fallback, "")
		}
		return ""
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
