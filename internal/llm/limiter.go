package llm

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter hands out one token bucket per key (provider/model pair)
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new keyed rate limiter
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until the key has a token or ctx is done
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.get(key).Wait(ctx)
}

// Allow reports whether a call for key may proceed now
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// SetRate overrides the limit for a single key
func (l *Limiter) SetRate(key string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}
	l.limiters[key] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[key]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[key] = limiter
	return limiter
}

// RateLimitedProvider throttles Generate calls per provider and model.
// Waiting past the caller's deadline surfaces as a transport failure.
type RateLimitedProvider struct {
	Provider
	limiter *Limiter
}

// WithRateLimit wraps p so each Generate waits on limiter first.
// A nil limiter returns p unchanged.
func WithRateLimit(p Provider, limiter *Limiter) Provider {
	if p == nil || limiter == nil {
		return p
	}
	return &RateLimitedProvider{Provider: p, limiter: limiter}
}

// Generate waits for a token and delegates
func (p *RateLimitedProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	key := p.Provider.Name() + "/" + req.Model
	if err := p.limiter.Wait(ctx, key); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %w", ErrTransport, err)
	}
	return p.Provider.Generate(ctx, req)
}
