package cache

import (
	"context"
	"log/slog"

	"github.com/ppiankov/newsbrief/internal/metrics"
	"github.com/ppiankov/newsbrief/internal/model"
)

// TwoTier layers the bounded memory tier over a durable store.
// Tier failures are logged and treated as a miss or a no-op.
type TwoTier struct {
	memory  *Memory
	durable Durable
	logger  *slog.Logger
}

// NewTwoTier creates a layered cache. durable may be nil for memory-only use.
func NewTwoTier(memory *Memory, durable Durable, logger *slog.Logger) *TwoTier {
	if memory == nil {
		memory = NewMemory(DefaultCapacity, DefaultFreshness)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TwoTier{memory: memory, durable: durable, logger: logger}
}

// Get checks memory first, then the durable tier, promoting durable hits
func (c *TwoTier) Get(ctx context.Context, key string) (*model.Artifact, bool) {
	if a, found := c.memory.Get(key); found {
		metrics.CacheLookups.WithLabelValues("memory", "hit").Inc()
		return a, true
	}
	metrics.CacheLookups.WithLabelValues("memory", "miss").Inc()

	if c.durable == nil {
		return nil, false
	}

	a, found, err := c.durable.Get(ctx, key)
	if err != nil {
		c.logger.Warn("durable cache read failed", "cache_key", key, "error", err)
		metrics.CacheLookups.WithLabelValues("durable", "error").Inc()
		return nil, false
	}
	if !found {
		metrics.CacheLookups.WithLabelValues("durable", "miss").Inc()
		return nil, false
	}

	metrics.CacheLookups.WithLabelValues("durable", "hit").Inc()
	c.memory.Put(key, a)
	return a, true
}

// Put writes through to both tiers
func (c *TwoTier) Put(ctx context.Context, key string, a *model.Artifact) {
	c.memory.Put(key, a)

	if c.durable == nil {
		return
	}
	if err := c.durable.Put(ctx, key, a, MetaFor(a)); err != nil {
		c.logger.Warn("durable cache write failed", "cache_key", key, "error", err)
	}
}

// Delete removes key from both tiers
func (c *TwoTier) Delete(ctx context.Context, key string) error {
	c.memory.Delete(key)
	if c.durable == nil {
		return nil
	}
	return c.durable.Delete(ctx, key)
}

// Clear empties both tiers
func (c *TwoTier) Clear(ctx context.Context) error {
	c.memory.Clear()
	if c.durable == nil {
		return nil
	}
	return c.durable.Clear(ctx)
}

// Memory exposes the bounded tier
func (c *TwoTier) Memory() *Memory {
	return c.memory
}

// Close closes the durable tier
func (c *TwoTier) Close() error {
	if c.durable == nil {
		return nil
	}
	return c.durable.Close()
}
