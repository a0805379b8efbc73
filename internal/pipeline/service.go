package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/newsbrief/internal/cache"
	"github.com/ppiankov/newsbrief/internal/model"
	"github.com/ppiankov/newsbrief/internal/orgctx"
)

// CorpusSupplier produces the candidate list for a request on a cache miss
type CorpusSupplier func(ctx context.Context, req model.GenerationRequest) ([]model.CandidateArticle, error)

// Service wraps the assembler with the two-tier cache. Concurrent misses
// for one key share a single generation.
type Service struct {
	assembler *Assembler
	cache     *cache.TwoTier
	orgs      orgctx.Provider
	timeout   time.Duration
	logger    *slog.Logger
	flights   singleflight.Group
}

// NewService creates a service. cache and orgs may be nil.
func NewService(assembler *Assembler, c *cache.TwoTier, orgs orgctx.Provider, timeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		assembler: assembler,
		cache:     c,
		orgs:      orgs,
		timeout:   timeout,
		logger:    logger,
	}
}

// GenerateArtifact runs one uncached cycle
func (s *Service) GenerateArtifact(ctx context.Context, req model.GenerationRequest, corpus []model.CandidateArticle) (*model.Artifact, bool, error) {
	return s.assembler.GenerateArtifact(ctx, req, corpus)
}

// GetOrGenerate serves req from cache or generates and writes through.
// force skips both cache reads but still writes on success. Generation runs
// detached from ctx: a caller that gives up gets ctx.Err() while the cycle
// finishes and populates the cache.
func (s *Service) GetOrGenerate(ctx context.Context, req model.GenerationRequest, supply CorpusSupplier, force bool) (*model.Artifact, error) {
	key := cache.KeyFor(req)

	if !force {
		if a, ok := s.lookup(ctx, key); ok {
			s.logger.Debug("cache hit", "cache_key", key)
			return a, nil
		}
	}

	flight := key
	if force {
		flight += "#force"
	}

	ch := s.flights.DoChan(flight, func() (any, error) {
		gctx := context.WithoutCancel(ctx)
		if s.timeout > 0 {
			var cancel context.CancelFunc
			gctx, cancel = context.WithTimeout(gctx, s.timeout)
			defer cancel()
		}

		// A flight that finished while we waited may have filled the cache
		if !force {
			if a, ok := s.lookup(gctx, key); ok {
				return a, nil
			}
		}

		req := s.withOrgContext(gctx, req)
		corpus, err := supply(gctx, req)
		if err != nil {
			return nil, fmt.Errorf("supply corpus: %w", err)
		}

		a, _, err := s.assembler.GenerateArtifact(gctx, req, corpus)
		if err != nil {
			return nil, err
		}

		if s.cache != nil {
			s.cache.Put(gctx, key, a)
		}
		return a, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.Artifact), nil
	case <-ctx.Done():
		s.logger.Debug("caller gave up, generation continues", "cache_key", key)
		return nil, ctx.Err()
	}
}

func (s *Service) lookup(ctx context.Context, key string) (*model.Artifact, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(ctx, key)
}

// withOrgContext fills OrgContext from the profile provider. Failures
// leave the request without context.
func (s *Service) withOrgContext(ctx context.Context, req model.GenerationRequest) model.GenerationRequest {
	if req.OrgContext != "" || req.ProfileID == "" || s.orgs == nil {
		return req
	}
	blob, err := s.orgs.Get(ctx, req.ProfileID)
	if err != nil {
		s.logger.Warn("organization context unavailable", "profile", req.ProfileID, "error", err)
		return req
	}
	req.OrgContext = blob
	return req
}
