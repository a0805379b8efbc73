package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/newsbrief/internal/cache"
	"github.com/ppiankov/newsbrief/internal/corpus"
	"github.com/ppiankov/newsbrief/internal/llm"
	"github.com/ppiankov/newsbrief/internal/model"
	"github.com/ppiankov/newsbrief/internal/orgctx"
	"github.com/ppiankov/newsbrief/internal/pipeline"
	"github.com/ppiankov/newsbrief/internal/relevance"
)

// app holds the wired generation stack for one command invocation
type app struct {
	service *pipeline.Service
	cache   *cache.TwoTier
	logger  *slog.Logger
}

// newApp wires gateway, relevance engine, assembler and both cache tiers.
// profilesPath is optional.
func newApp(ctx context.Context, cfg *model.Config, profilesPath string, logger *slog.Logger) (*app, error) {
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	if provider == nil {
		logger.Warn("no LLM provider configured, briefs will use the newest articles")
	}
	provider = llm.WithRateLimit(provider, llm.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize))

	engine := relevance.NewEngine(relevance.WeightsFromConfig(cfg.Relevance), nil, logger)
	assembler := pipeline.NewAssembler(provider, engine, pipeline.Options{
		GatewayTimeout:     time.Duration(cfg.LLM.Timeout) * time.Second,
		RelatedConcurrency: cfg.Concurrency.RelatedLookups,
		Temperature:        cfg.LLM.Temperature,
		MaxTokens:          cfg.LLM.MaxTokens,
		Logger:             logger,
	})

	tiers, err := openCache(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var orgs orgctx.Provider
	if profilesPath != "" {
		profiles, err := orgctx.LoadFile(profilesPath)
		if err != nil {
			_ = tiers.Close()
			return nil, err
		}
		orgs = profiles
	}

	return &app{
		service: pipeline.NewService(assembler, tiers, orgs, cfg.Generation.Timeout, logger),
		cache:   tiers,
		logger:  logger,
	}, nil
}

// openCache builds the two-tier cache. A disabled cache keeps only the
// memory tier so repeated requests within one process still coalesce.
func openCache(ctx context.Context, cfg *model.Config, logger *slog.Logger) (*cache.TwoTier, error) {
	var durable cache.Durable
	if cfg.Cache.Enabled {
		d, err := cache.Open(ctx, cfg.Cache, logger)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		durable = d
	}
	memory := cache.NewMemory(cfg.Cache.MemoryCapacity, cfg.Cache.Freshness)
	return cache.NewTwoTier(memory, durable, logger), nil
}

func (a *app) Close() error {
	return a.cache.Close()
}

// loadCorpus reads the candidate corpus from a file or an http(s) feed
func loadCorpus(ctx context.Context, cfg *model.Config, location string) (*corpus.FileProvider, error) {
	if !corpus.IsURL(location) {
		return corpus.LoadFile(location)
	}
	fetcher := corpus.NewFetcher(time.Duration(cfg.LLM.Timeout)*time.Second, "newsbrief/"+Version,
		0, cfg.LLM.HTTPProxy, cfg.LLM.HTTPSProxy, cfg.LLM.NoProxy)
	return fetcher.LoadURL(ctx, location)
}

// corpusSupplier adapts a corpus provider to the pipeline's supplier shape
func corpusSupplier(p corpus.Provider) pipeline.CorpusSupplier {
	return func(ctx context.Context, req model.GenerationRequest) ([]model.CandidateArticle, error) {
		if p == nil {
			return nil, errors.New("no corpus configured")
		}
		return p.Fetch(ctx, req.DateRange, req.Topic, req.MaxArticles)
	}
}

// buildRequest assembles a GenerationRequest, filling unset values from config
func buildRequest(cfg *model.Config, topic string, day time.Time, days, items, maxArticles int, profile string) model.GenerationRequest {
	if items <= 0 {
		items = cfg.Generation.ItemCount
	}
	if maxArticles <= 0 {
		maxArticles = cfg.Generation.MaxArticles
	}
	return model.GenerationRequest{
		Topic:       topic,
		DateRange:   model.DayRange(day, days),
		ModelID:     cfg.LLM.Model,
		MaxArticles: maxArticles,
		ItemCount:   items,
		ProfileID:   profile,
	}
}

// parseDay parses YYYY-MM-DD; empty means today (UTC)
func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	day, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return day, nil
}
