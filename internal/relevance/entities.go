package relevance

import (
	"strings"
	"unicode"
)

// EntityExtractor finds named entities in free text. Returned keys are
// normalized (lowercase) so sets from different texts can be intersected.
type EntityExtractor interface {
	Extract(text string) map[string]struct{}
}

// DefaultBrands are always recognized, whatever their casing in the text.
var DefaultBrands = []string{
	"apple", "google", "alphabet", "microsoft", "amazon", "meta", "facebook",
	"openai", "anthropic", "nvidia", "tesla", "samsung", "intel", "amd", "tsmc",
	"ibm", "oracle", "netflix", "spacex", "huawei", "alibaba", "tencent",
	"bytedance", "tiktok", "qualcomm", "arm", "salesforce", "adobe", "uber",
}

// titleStopwords are capitalized in headlines without naming anything.
var titleStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "of": {}, "in": {},
	"on": {}, "for": {}, "to": {}, "with": {}, "by": {}, "at": {}, "from": {}, "as": {},
	"is": {}, "are": {}, "was": {}, "be": {}, "new": {}, "how": {}, "why": {}, "what": {},
	"when": {}, "who": {}, "after": {}, "over": {}, "says": {}, "said": {}, "its": {},
	"this": {}, "that": {}, "will": {}, "could": {}, "may": {}, "into": {}, "amid": {},
	"report": {}, "reports": {}, "first": {}, "more": {}, "than": {}, "about": {},
}

// HeuristicExtractor treats capitalized tokens and a fixed brand list as entities.
type HeuristicExtractor struct {
	brands map[string]struct{}
}

// NewHeuristicExtractor creates an extractor recognizing brands (DefaultBrands when nil).
func NewHeuristicExtractor(brands []string) *HeuristicExtractor {
	if brands == nil {
		brands = DefaultBrands
	}
	set := make(map[string]struct{}, len(brands))
	for _, b := range brands {
		set[strings.ToLower(b)] = struct{}{}
	}
	return &HeuristicExtractor{brands: set}
}

// Extract returns the entity set of text.
func (h *HeuristicExtractor) Extract(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range tokenize(text) {
		lower := strings.ToLower(tok)
		if _, ok := h.brands[lower]; ok {
			out[lower] = struct{}{}
			continue
		}
		if len([]rune(tok)) < 3 {
			continue
		}
		if _, stop := titleStopwords[lower]; stop {
			continue
		}
		if unicode.IsUpper([]rune(tok)[0]) {
			out[lower] = struct{}{}
		}
	}
	return out
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// longWords returns the distinct lowercase words of text with at least minLen runes.
func longWords(text string, minLen int) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range tokenize(text) {
		if len([]rune(tok)) >= minLen {
			out[strings.ToLower(tok)] = struct{}{}
		}
	}
	return out
}

func intersect(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
