package model

import "strings"

// TimeHorizon classifies when an item is expected to matter.
// Values outside the vocabulary are kept verbatim; use Known to tell them apart.
type TimeHorizon string

const (
	HorizonImmediate TimeHorizon = "Immediate"
	HorizonMedium    TimeHorizon = "Medium"
	HorizonLongTerm  TimeHorizon = "LongTerm"
)

// RiskOpportunity classifies whether an item reads as a risk, an opportunity or both.
type RiskOpportunity string

const (
	Risk        RiskOpportunity = "Risk"
	Opportunity RiskOpportunity = "Opportunity"
	Mixed       RiskOpportunity = "Mixed"
)

// SignalStrength grades how strong the underlying signal is.
type SignalStrength string

const (
	SignalWeak     SignalStrength = "Weak"
	SignalModerate SignalStrength = "Moderate"
	SignalStrong   SignalStrength = "Strong"
)

var horizonAliases = map[string]TimeHorizon{
	"immediate":  HorizonImmediate,
	"shortterm":  HorizonImmediate,
	"short":      HorizonImmediate,
	"now":        HorizonImmediate,
	"medium":     HorizonMedium,
	"mediumterm": HorizonMedium,
	"midterm":    HorizonMedium,
	"longterm":   HorizonLongTerm,
	"long":       HorizonLongTerm,
}

var riskAliases = map[string]RiskOpportunity{
	"risk":        Risk,
	"threat":      Risk,
	"opportunity": Opportunity,
	"mixed":       Mixed,
	"both":        Mixed,
}

var strengthAliases = map[string]SignalStrength{
	"weak":     SignalWeak,
	"low":      SignalWeak,
	"moderate": SignalModerate,
	"medium":   SignalModerate,
	"strong":   SignalStrong,
	"high":     SignalStrong,
}

// foldEnum lowercases and drops separators so "Long-term", "long_term" and
// "LONG TERM" compare equal.
func foldEnum(raw string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch r {
		case ' ', '-', '_', '.', '\t':
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// ParseTimeHorizon coerces raw into the closed vocabulary, passing unknown values through.
func ParseTimeHorizon(raw string) TimeHorizon {
	if v, ok := horizonAliases[foldEnum(raw)]; ok {
		return v
	}
	return TimeHorizon(strings.TrimSpace(raw))
}

// Known reports whether h is part of the vocabulary.
func (h TimeHorizon) Known() bool {
	return h == HorizonImmediate || h == HorizonMedium || h == HorizonLongTerm
}

// ParseRiskOpportunity coerces raw into the closed vocabulary, passing unknown values through.
func ParseRiskOpportunity(raw string) RiskOpportunity {
	if v, ok := riskAliases[foldEnum(raw)]; ok {
		return v
	}
	return RiskOpportunity(strings.TrimSpace(raw))
}

// Known reports whether r is part of the vocabulary.
func (r RiskOpportunity) Known() bool {
	return r == Risk || r == Opportunity || r == Mixed
}

// ParseSignalStrength coerces raw into the closed vocabulary, passing unknown values through.
func ParseSignalStrength(raw string) SignalStrength {
	if v, ok := strengthAliases[foldEnum(raw)]; ok {
		return v
	}
	return SignalStrength(strings.TrimSpace(raw))
}

// Known reports whether s is part of the vocabulary.
func (s SignalStrength) Known() bool {
	return s == SignalWeak || s == SignalModerate || s == SignalStrong
}

// Scores are optional editorial grades, each in [0,5].
type Scores struct {
	Relevance          float64 `json:"relevance"`
	Novelty            float64 `json:"novelty"`
	Credibility        float64 `json:"credibility"`
	Representativeness float64 `json:"representativeness"`
}

// Clamp bounds every score to [0,5].
func (s Scores) Clamp() Scores {
	return Scores{
		Relevance:          clamp(s.Relevance, 0, 5),
		Novelty:            clamp(s.Novelty, 0, 5),
		Credibility:        clamp(s.Credibility, 0, 5),
		Representativeness: clamp(s.Representativeness, 0, 5),
	}
}

// MaxTakeawayWords bounds the length of StructuredItem.Takeaway.
const MaxTakeawayWords = 20

// MaxActionItems bounds StructuredItem.ActionItems.
const MaxActionItems = 2

// StructuredItem is one analyst-style record describing a selected article.
type StructuredItem struct {
	ArticleID          string          `json:"article_id"`
	Title              string          `json:"title"`
	Source             string          `json:"source"`
	Date               string          `json:"date"`
	URL                string          `json:"url,omitempty"`
	Takeaway           string          `json:"takeaway"`
	Summary            string          `json:"summary"`
	StrategicRelevance string          `json:"strategic_relevance"`
	TimeHorizon        TimeHorizon     `json:"time_horizon"`
	RiskOpportunity    RiskOpportunity `json:"risk_opportunity"`
	SignalStrength     SignalStrength  `json:"signal_strength"`
	ActionItems        []string        `json:"action_items"`
	Category           string          `json:"category,omitempty"`
	Scores             *Scores         `json:"scores,omitempty"`
}

// RelatedItem is a supporting article attached to a StructuredItem.
type RelatedItem struct {
	ArticleID  string  `json:"article_id"`
	Title      string  `json:"title"`
	Source     string  `json:"source"`
	URL        string  `json:"url,omitempty"`
	BiasRating string  `json:"bias_rating,omitempty"`
	Summary    string  `json:"summary,omitempty"`
	Score      float64 `json:"score"`
}

// TruncateWords keeps at most n whitespace-separated words of s.
func TruncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ")
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
