package pipeline

import (
	"fmt"
	"strings"

	"github.com/ppiankov/newsbrief/internal/model"
)

const recordSchema = `[
  {
    "id": "<article id from the list>",
    "title": "<article title>",
    "source": "<publisher>",
    "date": "YYYY-MM-DD",
    "url": "<article url>",
    "takeaway": "<one sentence, at most 20 words>",
    "summary": "<2-3 sentences>",
    "strategic_relevance": "<why this matters to the reader>",
    "time_horizon": "Immediate | Medium | LongTerm",
    "risk_opportunity": "Risk | Opportunity | Mixed",
    "signal_strength": "Weak | Moderate | Strong",
    "action_items": ["<first action>", "<optional second action>"],
    "category": "<category>",
    "scores": {"relevance": 0-5, "novelty": 0-5, "credibility": 0-5, "representativeness": 0-5}
  }
]`

// maxSummaryRunes bounds each candidate summary in the prompt
const maxSummaryRunes = 400

// BuildPrompt renders the generation prompt. It is a pure function of its
// inputs: the same request and corpus always produce the same text.
func BuildPrompt(req model.GenerationRequest, corpus []model.CandidateArticle) string {
	var sb strings.Builder

	n := req.Items()
	topic := "all topics"
	if req.HasTopic() {
		topic = strings.TrimSpace(req.Topic)
	}
	fmt.Fprintf(&sb, "Select the %d most strategically important developments about %s published %s.\n",
		n, topic, describeRange(req.DateRange))
	sb.WriteString("Prefer distinct stories over repeated coverage of the same event. Only use articles from the list.\n\n")

	if ctx := strings.TrimSpace(req.OrgContext); ctx != "" {
		sb.WriteString("Organizational context (tailor relevance and action items to it):\n")
		sb.WriteString(ctx)
		sb.WriteString("\n\n")
	}

	limit := len(corpus)
	if req.MaxArticles > 0 && limit > req.MaxArticles {
		limit = req.MaxArticles
	}
	fmt.Fprintf(&sb, "Articles (%d):\n", limit)
	for i, a := range corpus[:limit] {
		fmt.Fprintf(&sb, "%d. [id=%s] %s\n", i+1, a.ID, a.Title)
		fmt.Fprintf(&sb, "   source=%s", a.Source)
		if !a.PublishedAt.IsZero() {
			fmt.Fprintf(&sb, " date=%s", a.PublishedAt.UTC().Format("2006-01-02"))
		}
		if a.Category != "" {
			fmt.Fprintf(&sb, " category=%s", a.Category)
		}
		if a.BiasRating != "" {
			fmt.Fprintf(&sb, " bias=%s", a.BiasRating)
		}
		if a.FactualityRating != "" {
			fmt.Fprintf(&sb, " factuality=%s", a.FactualityRating)
		}
		sb.WriteByte('\n')
		if s := truncateRunes(strings.Join(strings.Fields(a.Summary), " "), maxSummaryRunes); s != "" {
			fmt.Fprintf(&sb, "   %s\n", s)
		}
	}

	fmt.Fprintf(&sb, "\nRespond with a JSON array of exactly %d objects and nothing else, using this shape:\n", n)
	sb.WriteString(recordSchema)
	sb.WriteByte('\n')
	return sb.String()
}

func describeRange(r model.DateRange) string {
	if r.Start.IsZero() || r.Start.Format("2006-01-02") == r.Day() {
		return "on " + r.Day()
	}
	return fmt.Sprintf("between %s and %s", r.Start.UTC().Format("2006-01-02"), r.Day())
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}
