package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/newsbrief/internal/cache"
	"github.com/ppiankov/newsbrief/internal/index"
	"github.com/ppiankov/newsbrief/internal/llm"
	"github.com/ppiankov/newsbrief/internal/metrics"
	"github.com/ppiankov/newsbrief/internal/model"
	"github.com/ppiankov/newsbrief/internal/parse"
	"github.com/ppiankov/newsbrief/internal/relevance"
)

// ErrEmptyCorpus is the only error GenerateArtifact returns
var ErrEmptyCorpus = errors.New("empty corpus: nothing to report on")

var errGenerationDisabled = errors.New("no LLM provider configured")

// Placeholder analytical fields for items the model did not analyze
const (
	PendingAnalysis     = "Pending analysis"
	ReviewArticle       = "Review full article"
	MonitorDevelopments = "Monitor developments"
)

// Options tune an Assembler. Zero values select defaults.
type Options struct {
	// Parser recovers records from raw model output
	Parser *parse.Parser

	// Index is consulted for related items. When nil a TF-IDF index is
	// built over each cycle's corpus.
	Index relevance.SimilarityIndex

	// GatewayTimeout bounds the single generation call
	GatewayTimeout time.Duration

	// RelatedConcurrency bounds concurrent related-item lookups
	RelatedConcurrency int

	Temperature float64
	MaxTokens   int

	Logger *slog.Logger
	Clock  func() time.Time
}

// Assembler runs one generation cycle and always yields a usable Artifact
type Assembler struct {
	provider llm.Provider
	engine   *relevance.Engine
	opts     Options
	logger   *slog.Logger
}

// NewAssembler creates an assembler. A nil provider disables generation,
// so every cycle takes the fallback path.
func NewAssembler(provider llm.Provider, engine *relevance.Engine, opts Options) *Assembler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Parser == nil {
		opts.Parser = parse.NewParser(opts.Logger)
	}
	if engine == nil {
		engine = relevance.NewEngine(relevance.DefaultWeights(), nil, opts.Logger)
	}
	if opts.GatewayTimeout <= 0 {
		opts.GatewayTimeout = 60 * time.Second
	}
	if opts.RelatedConcurrency <= 0 {
		opts.RelatedConcurrency = 4
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Assembler{provider: provider, engine: engine, opts: opts, logger: opts.Logger}
}

// GenerateArtifact builds an artifact for req from corpus. The boolean
// reports whether the fallback path was used and is for telemetry only.
func (a *Assembler) GenerateArtifact(ctx context.Context, req model.GenerationRequest, corpus []model.CandidateArticle) (*model.Artifact, bool, error) {
	if len(corpus) == 0 {
		return nil, false, ErrEmptyCorpus
	}

	key := cache.KeyFor(req)
	logger := a.logger.With("cache_key", key)

	art := &model.Artifact{
		ID:          uuid.NewString(),
		Key:         key,
		Topic:       req.Topic,
		GeneratedAt: a.opts.Clock().UTC(),
		ModelID:     req.ModelID,
	}

	raw, modelID, err := a.generate(ctx, req, corpus)
	if modelID != "" {
		art.ModelID = modelID
	}

	var entries []model.Entry
	if err != nil {
		art.Diagnostics.GatewayError = err.Error()
		logger.Warn("generation failed, using fallback", "error", err)
	} else {
		result := a.opts.Parser.Parse(raw)
		art.Diagnostics.ParseStrategy = result.Strategy
		if result.Empty() {
			metrics.ParseStrategies.WithLabelValues("none").Inc()
			logger.Warn("model output unrecoverable, using fallback", "bytes", len(raw))
		} else {
			metrics.ParseStrategies.WithLabelValues(result.Strategy).Inc()
			entries = a.fromRecords(result.Records, corpus, req.Items(), &art.Diagnostics)
		}
	}

	usedFallback := len(entries) == 0
	if usedFallback {
		entries = fallbackEntries(corpus, req.Items())
		metrics.Generations.WithLabelValues("fallback").Inc()
	} else {
		metrics.Generations.WithLabelValues("generated").Inc()
	}

	a.attachRelated(ctx, entries, corpus)

	art.Entries = entries
	art.UsedFallback = usedFallback
	logger.Info("artifact assembled",
		"items", len(entries),
		"fallback", usedFallback,
		"strategy", art.Diagnostics.ParseStrategy)
	return art, usedFallback, nil
}

// generate makes the single gateway call; there is no retry at this layer
func (a *Assembler) generate(ctx context.Context, req model.GenerationRequest, corpus []model.CandidateArticle) (string, string, error) {
	if a.provider == nil {
		return "", "", errGenerationDisabled
	}

	gctx, cancel := context.WithTimeout(ctx, a.opts.GatewayTimeout)
	defer cancel()

	start := time.Now()
	resp, err := a.provider.Generate(gctx, llm.GenerateRequest{
		Prompt:      BuildPrompt(req, corpus),
		Model:       req.ModelID,
		Temperature: a.opts.Temperature,
		MaxTokens:   a.opts.MaxTokens,
	})

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.GatewayLatency.WithLabelValues(a.provider.Name(), status).Observe(time.Since(start).Seconds())

	if err != nil {
		return "", "", fmt.Errorf("generate with %s: %w", a.provider.Name(), err)
	}
	return resp.Text, resp.Model, nil
}

// fromRecords anchors records to candidates and normalizes them, capped at
// n items. Short responses are topped up with unused candidates.
func (a *Assembler) fromRecords(records []parse.Record, corpus []model.CandidateArticle, n int, diag *model.Diagnostics) []model.Entry {
	res := newResolver(corpus)
	entries := make([]model.Entry, 0, n)

	for _, rec := range records {
		if len(entries) == n {
			break
		}
		i, matched := res.resolve(rec)
		if i < 0 {
			diag.UnmatchedItems++
			continue
		}
		if !matched {
			diag.UnmatchedItems++
		}
		entries = append(entries, model.Entry{Item: itemFromRecord(rec, corpus[i])})
	}

	if len(entries) == 0 {
		return nil
	}
	if got := len(entries); got < n {
		for i := range corpus {
			if len(entries) == n {
				break
			}
			if !res.used[i] {
				res.take(i)
				entries = append(entries, model.Entry{Item: placeholderItem(corpus[i])})
			}
		}
		if len(entries) > got {
			diag.Warnings = append(diag.Warnings, fmt.Sprintf("model returned %d of %d items; %d filled from corpus", got, n, len(entries)-got))
		}
	}
	return entries
}

// attachRelated fans related-item lookups out and joins them before
// returning. Each lookup writes only its own entry.
func (a *Assembler) attachRelated(ctx context.Context, entries []model.Entry, corpus []model.CandidateArticle) {
	byID := make(map[string]model.CandidateArticle, len(corpus))
	for _, c := range corpus {
		if _, dup := byID[c.ID]; !dup {
			byID[c.ID] = c
		}
	}

	idx := a.opts.Index
	if idx == nil {
		mem := index.NewMemory()
		mem.Build(corpus)
		idx = mem
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.RelatedConcurrency)
	for i := range entries {
		i := i
		g.Go(func() error {
			entries[i].Related = a.engine.Related(gctx, entries[i].Item.ArticleID, byID, idx)
			return nil
		})
	}
	_ = g.Wait()
}

func itemFromRecord(rec parse.Record, c model.CandidateArticle) model.StructuredItem {
	item := model.StructuredItem{
		ArticleID:          c.ID,
		Title:              orDefault(rec.String("title", "headline"), c.Title),
		Source:             orDefault(rec.String("source", "publisher"), c.Source),
		Date:               orDefault(rec.String("date", "published_at", "publishedAt"), articleDate(c)),
		URL:                normalizeURL(rec.String("url", "link"), c.URL),
		Summary:            orDefault(rec.String("summary", "description"), c.Summary),
		StrategicRelevance: orDefault(rec.String("strategic_relevance", "strategicRelevance", "why_it_matters"), PendingAnalysis),
		TimeHorizon:        model.HorizonMedium,
		RiskOpportunity:    model.Mixed,
		SignalStrength:     model.SignalModerate,
		Category:           orDefault(rec.String("category", "tag"), c.Category),
	}

	item.Takeaway = model.TruncateWords(orDefault(rec.String("takeaway", "key_takeaway", "keyTakeaway"), item.Summary), model.MaxTakeawayWords)

	if v := rec.String("time_horizon", "timeHorizon"); v != "" {
		item.TimeHorizon = model.ParseTimeHorizon(v)
	}
	if v := rec.String("risk_opportunity", "riskOpportunity", "risk_or_opportunity"); v != "" {
		item.RiskOpportunity = model.ParseRiskOpportunity(v)
	}
	if v := rec.String("signal_strength", "signalStrength"); v != "" {
		item.SignalStrength = model.ParseSignalStrength(v)
	}

	actions := rec.Strings("action_items", "actionItems", "actions")
	if len(actions) > model.MaxActionItems {
		actions = actions[:model.MaxActionItems]
	}
	if len(actions) == 0 {
		actions = []string{MonitorDevelopments}
	}
	item.ActionItems = actions

	if obj := rec.Object("scores"); obj != nil {
		var s model.Scores
		s.Relevance, _ = obj.Float("relevance")
		s.Novelty, _ = obj.Float("novelty")
		s.Credibility, _ = obj.Float("credibility")
		s.Representativeness, _ = obj.Float("representativeness")
		s = s.Clamp()
		item.Scores = &s
	}
	return item
}

// placeholderItem synthesizes an item from fields already on the candidate
func placeholderItem(c model.CandidateArticle) model.StructuredItem {
	return model.StructuredItem{
		ArticleID:          c.ID,
		Title:              c.Title,
		Source:             c.Source,
		Date:               articleDate(c),
		URL:                normalizeURL(c.URL, ""),
		Takeaway:           model.TruncateWords(c.Summary, model.MaxTakeawayWords),
		Summary:            c.Summary,
		StrategicRelevance: PendingAnalysis,
		TimeHorizon:        model.HorizonMedium,
		RiskOpportunity:    model.Mixed,
		SignalStrength:     model.SignalModerate,
		ActionItems:        []string{ReviewArticle, MonitorDevelopments},
		Category:           c.Category,
	}
}

// fallbackEntries takes the first min(n, len(corpus)) candidates in corpus order
func fallbackEntries(corpus []model.CandidateArticle, n int) []model.Entry {
	if n > len(corpus) {
		n = len(corpus)
	}
	entries := make([]model.Entry, n)
	for i := 0; i < n; i++ {
		entries[i] = model.Entry{Item: placeholderItem(corpus[i])}
	}
	return entries
}

func articleDate(c model.CandidateArticle) string {
	if c.PublishedAt.IsZero() {
		return ""
	}
	return c.PublishedAt.UTC().Format("2006-01-02")
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
