package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/newsbrief/internal/llm"
	"github.com/ppiankov/newsbrief/internal/model"
)

var day = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

var themes = []string{
	"Nvidia expands chip production",
	"Central bank holds interest rates",
	"Drought hits wheat harvest",
	"Startup raises record funding",
	"Regulator probes cloud market",
}

// fakeProvider is a scripted generation gateway
type fakeProvider struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	text    string
	err     error
	started chan struct{}
	gate    chan struct{}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) IsAvailable(ctx context.Context) bool { return true }

func (f *fakeProvider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, req.Prompt)
	f.mu.Unlock()

	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", llm.ErrTransport, ctx.Err())
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llm.GenerateResponse{Text: f.text, Model: "fake-model"}, nil
}

func (f *fakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testCorpus(n int) []model.CandidateArticle {
	out := make([]model.CandidateArticle, n)
	for i := range out {
		theme := themes[i%len(themes)]
		category := "technology"
		if i%2 == 1 {
			category = "business"
		}
		out[i] = model.CandidateArticle{
			ID:          fmt.Sprintf("a%02d", i),
			Title:       fmt.Sprintf("%s in region %d", theme, i),
			Summary:     theme + " according to analysts tracking the sector.",
			Source:      "Wire",
			URL:         fmt.Sprintf("https://news.example.com/story/%d?utm_source=feed#top", i),
			PublishedAt: day.Add(time.Duration(i) * time.Minute),
			Category:    category,
			BiasRating:  "center",
		}
	}
	return out
}

func recordsJSON(t *testing.T, recs []map[string]any) string {
	t.Helper()
	data, err := json.Marshal(recs)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func wellFormed(corpus []model.CandidateArticle, idx ...int) []map[string]any {
	var recs []map[string]any
	for _, i := range idx {
		recs = append(recs, map[string]any{
			"title":               corpus[i].Title,
			"source":              corpus[i].Source,
			"takeaway":            "Capacity grows",
			"summary":             "Details of the development.",
			"strategic_relevance": "Supply risk eases",
			"time_horizon":        "long-term",
			"risk_opportunity":    "opportunity",
			"signal_strength":     "STRONG",
			"action_items":        []string{"Brief procurement"},
			"category":            corpus[i].Category,
			"scores":              map[string]any{"relevance": 4, "novelty": 9},
		})
	}
	return recs
}

func testRequest() model.GenerationRequest {
	return model.GenerationRequest{
		Topic:       "technology",
		DateRange:   model.DayRange(day, 1),
		MaxArticles: 50,
		ItemCount:   6,
	}
}

func newTestAssembler(p llm.Provider) *Assembler {
	if p == nil {
		return NewAssembler(nil, nil, Options{Clock: func() time.Time { return day }})
	}
	return NewAssembler(p, nil, Options{Clock: func() time.Time { return day }})
}

func checkRelated(t *testing.T, art *model.Artifact) {
	t.Helper()
	for _, e := range art.Entries {
		if e.Related == nil {
			t.Errorf("item %s: related must be an empty list, not nil", e.Item.ArticleID)
		}
		if len(e.Related) > 3 {
			t.Errorf("item %s: %d related items", e.Item.ArticleID, len(e.Related))
		}
		for _, r := range e.Related {
			if r.ArticleID == e.Item.ArticleID {
				t.Errorf("item %s relates to itself", e.Item.ArticleID)
			}
			if r.Score < 0 || r.Score > 1 {
				t.Errorf("item %s: related score %v out of range", e.Item.ArticleID, r.Score)
			}
		}
	}
}

func TestGenerateArtifact_WellFormedRecords(t *testing.T) {
	corpus := testCorpus(50)
	picks := []int{10, 11, 12, 13, 14, 15}
	p := &fakeProvider{text: "Here are the items:\n```json\n" + recordsJSON(t, wellFormed(corpus, picks...)) + "\n```"}

	art, usedFallback, err := newTestAssembler(p).GenerateArtifact(context.Background(), testRequest(), corpus)
	if err != nil {
		t.Fatalf("GenerateArtifact failed: %v", err)
	}
	if usedFallback || art.UsedFallback {
		t.Error("expected generated artifact, got fallback")
	}
	if len(art.Entries) != 6 {
		t.Fatalf("expected 6 items, got %d", len(art.Entries))
	}
	if p.Calls() != 1 {
		t.Errorf("expected one gateway call, got %d", p.Calls())
	}

	for i, e := range art.Entries {
		want := corpus[picks[i]]
		if e.Item.ArticleID != want.ID {
			t.Errorf("item %d: expected %s, got %s", i, want.ID, e.Item.ArticleID)
		}
		if e.Item.TimeHorizon != model.HorizonLongTerm || e.Item.RiskOpportunity != model.Opportunity || e.Item.SignalStrength != model.SignalStrong {
			t.Errorf("item %d: enums not coerced: %+v", i, e.Item)
		}
		if e.Item.URL != fmt.Sprintf("https://news.example.com/story/%d", picks[i]) {
			t.Errorf("item %d: url not normalized: %s", i, e.Item.URL)
		}
		if e.Item.Scores == nil || e.Item.Scores.Novelty != 5 || e.Item.Scores.Relevance != 4 {
			t.Errorf("item %d: scores not clamped: %+v", i, e.Item.Scores)
		}
	}
	checkRelated(t, art)

	if art.Key != "brief:v3:2025-01-15:technology" || art.ModelID != "fake-model" || art.ID == "" {
		t.Errorf("unexpected artifact header: key=%s model=%s id=%s", art.Key, art.ModelID, art.ID)
	}
	if art.Diagnostics.ParseStrategy == "" {
		t.Error("expected parse strategy in diagnostics")
	}
}

func TestGenerateArtifact_ProseFallsBack(t *testing.T) {
	tests := []struct {
		desc   string
		corpus int
		want   int
	}{
		{"large corpus", 50, 6},
		{"small corpus", 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			corpus := testCorpus(tt.corpus)
			p := &fakeProvider{text: "I'm sorry, but I can't identify notable developments for this period."}

			art, usedFallback, err := newTestAssembler(p).GenerateArtifact(context.Background(), testRequest(), corpus)
			if err != nil {
				t.Fatalf("GenerateArtifact failed: %v", err)
			}
			if !usedFallback || !art.UsedFallback {
				t.Error("expected fallback")
			}
			if len(art.Entries) != tt.want {
				t.Fatalf("expected %d items, got %d", tt.want, len(art.Entries))
			}
			for i, e := range art.Entries {
				if e.Item.ArticleID != corpus[i].ID {
					t.Errorf("item %d: expected corpus order, got %s", i, e.Item.ArticleID)
				}
				if strings.Join(e.Item.ActionItems, "|") != "Review full article|Monitor developments" {
					t.Errorf("item %d: unexpected action items %v", i, e.Item.ActionItems)
				}
				if e.Item.StrategicRelevance != PendingAnalysis || e.Item.TimeHorizon != model.HorizonMedium ||
					e.Item.RiskOpportunity != model.Mixed || e.Item.SignalStrength != model.SignalModerate {
					t.Errorf("item %d: placeholders missing: %+v", i, e.Item)
				}
			}
			checkRelated(t, art)
		})
	}
}

func TestGenerateArtifact_GatewayFailures(t *testing.T) {
	corpus := testCorpus(8)

	tests := []struct {
		desc     string
		provider llm.Provider
	}{
		{"transport error", &fakeProvider{err: fmt.Errorf("%w: connection refused", llm.ErrTransport)}},
		{"no provider", nil},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			art, usedFallback, err := NewAssembler(tt.provider, nil, Options{}).GenerateArtifact(context.Background(), testRequest(), corpus)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !usedFallback || len(art.Entries) != 6 {
				t.Errorf("expected 6 fallback items, got %d (fallback=%v)", len(art.Entries), usedFallback)
			}
			if art.Diagnostics.GatewayError == "" {
				t.Error("expected gateway error in diagnostics")
			}
		})
	}
}

func TestGenerateArtifact_GatewayTimeout(t *testing.T) {
	p := &fakeProvider{gate: make(chan struct{}), text: "[]"}
	defer close(p.gate)

	a := NewAssembler(p, nil, Options{GatewayTimeout: 20 * time.Millisecond})
	art, usedFallback, err := a.GenerateArtifact(context.Background(), testRequest(), testCorpus(3))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !usedFallback || len(art.Entries) != 3 {
		t.Errorf("expected 3 fallback items, got %d", len(art.Entries))
	}
}

func TestGenerateArtifact_EmptyCorpus(t *testing.T) {
	p := &fakeProvider{}
	_, _, err := newTestAssembler(p).GenerateArtifact(context.Background(), testRequest(), nil)
	if !errors.Is(err, ErrEmptyCorpus) {
		t.Errorf("expected ErrEmptyCorpus, got %v", err)
	}
	if p.Calls() != 0 {
		t.Errorf("expected no gateway call, got %d", p.Calls())
	}
}

func TestGenerateArtifact_NormalizesRecords(t *testing.T) {
	corpus := testCorpus(10)
	raw := recordsJSON(t, []map[string]any{
		{
			"id":               "a03",
			"title":            "Rewritten headline",
			"takeaway":         strings.Repeat("word ", 30),
			"time_horizon":     "next decade",
			"risk_opportunity": "Speculative",
			"action_items":     []string{"one", "two", "three"},
			"url":              "https://other.example.com/x?id=1&utm_medium=email",
		},
		{"title": "Something the corpus never mentioned"},
		{"id": "a03", "title": "Duplicate anchor"},
	})
	p := &fakeProvider{text: raw}

	req := testRequest()
	req.ItemCount = 4
	art, usedFallback, err := newTestAssembler(p).GenerateArtifact(context.Background(), req, corpus)
	if err != nil {
		t.Fatal(err)
	}
	if usedFallback {
		t.Fatal("expected generated artifact")
	}
	if len(art.Entries) != 4 {
		t.Fatalf("expected short response topped up to 4, got %d", len(art.Entries))
	}

	first := art.Entries[0].Item
	if first.ArticleID != "a03" || first.Title != "Rewritten headline" {
		t.Errorf("unexpected first item: %+v", first)
	}
	if n := len(strings.Fields(first.Takeaway)); n != model.MaxTakeawayWords {
		t.Errorf("expected takeaway truncated to %d words, got %d", model.MaxTakeawayWords, n)
	}
	if first.TimeHorizon != "next decade" || first.RiskOpportunity != "Speculative" {
		t.Errorf("unknown enum values must pass through: %+v", first)
	}
	if len(first.ActionItems) != 2 {
		t.Errorf("expected 2 action items, got %v", first.ActionItems)
	}
	if first.URL != "https://other.example.com/x" {
		t.Errorf("unexpected url %s", first.URL)
	}

	// Unmatched record and duplicate anchor take the next unused candidates
	if art.Entries[1].Item.ArticleID != "a00" || art.Entries[2].Item.ArticleID != "a01" {
		t.Errorf("expected re-anchoring to a00 and a01, got %s and %s", art.Entries[1].Item.ArticleID, art.Entries[2].Item.ArticleID)
	}
	if art.Entries[1].Item.ActionItems[0] != MonitorDevelopments {
		t.Errorf("expected placeholder action item, got %v", art.Entries[1].Item.ActionItems)
	}
	if art.Entries[3].Item.ArticleID != "a02" || art.Entries[3].Item.StrategicRelevance != PendingAnalysis {
		t.Errorf("expected placeholder top-up from a02, got %+v", art.Entries[3].Item)
	}
	if art.Diagnostics.UnmatchedItems != 2 || len(art.Diagnostics.Warnings) != 1 {
		t.Errorf("unexpected diagnostics: %+v", art.Diagnostics)
	}

	seen := make(map[string]bool)
	for _, e := range art.Entries {
		if seen[e.Item.ArticleID] {
			t.Errorf("candidate %s used twice", e.Item.ArticleID)
		}
		seen[e.Item.ArticleID] = true
	}
}

func TestGenerateArtifact_CapsAtRequestedCount(t *testing.T) {
	corpus := testCorpus(20)
	p := &fakeProvider{text: recordsJSON(t, wellFormed(corpus, 0, 1, 2, 3, 4, 5, 6, 7, 8))}

	art, _, err := newTestAssembler(p).GenerateArtifact(context.Background(), testRequest(), corpus)
	if err != nil {
		t.Fatal(err)
	}
	if len(art.Entries) != 6 {
		t.Errorf("expected 6 items, got %d", len(art.Entries))
	}
}

func TestBuildPrompt(t *testing.T) {
	corpus := testCorpus(5)
	req := testRequest()
	req.MaxArticles = 3
	req.OrgContext = "Organization: Acme"

	got := BuildPrompt(req, corpus)
	if got != BuildPrompt(req, corpus) {
		t.Error("prompt must be deterministic")
	}
	for _, want := range []string{"[id=a00]", "[id=a02]", "Organization: Acme", "technology", "exactly 6 objects", "on 2025-01-15"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in prompt", want)
		}
	}
	if strings.Contains(got, "[id=a03]") {
		t.Error("prompt must respect MaxArticles")
	}
}
