package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/newsbrief/internal/metrics"
	"github.com/ppiankov/newsbrief/internal/model"
)

const (
	DefaultCapacity  = 10
	DefaultFreshness = time.Hour
)

// Memory is the bounded in-process tier. It holds at most capacity
// entries and evicts the oldest-inserted one on overflow, no matter how
// often it was read. Entries older than the freshness window are stale.
type Memory struct {
	cache     *gocache.Cache
	capacity  int
	freshness time.Duration
	now       func() time.Time
	mu        sync.Mutex
}

// NewMemory creates a new bounded memory tier
func NewMemory(capacity int, freshness time.Duration) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &Memory{
		cache:     gocache.New(freshness, 10*time.Minute),
		capacity:  capacity,
		freshness: freshness,
		now:       time.Now,
	}
}

// WithClock replaces the clock used for freshness and insertion times
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// Get returns a fresh entry for key
func (m *Memory) Get(key string) (*model.Artifact, bool) {
	val, found := m.cache.Get(key)
	if !found {
		return nil, false
	}
	entry := val.(*model.CacheEntry)
	if m.stale(entry) {
		m.cache.Delete(key)
		metrics.CacheLookups.WithLabelValues("memory", "stale").Inc()
		return nil, false
	}
	return entry.Artifact, true
}

// Put inserts or replaces key, stamping it with the current time
func (m *Memory) Put(key string, a *model.Artifact) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if _, found := m.cache.Get(key); !found {
		m.dropStale()
		for m.cache.ItemCount() >= m.capacity {
			if !m.evictOldest() {
				break
			}
		}
	}
	m.cache.Set(key, &model.CacheEntry{Key: key, Artifact: a, InsertedAt: now}, m.freshness)
}

// Delete removes key
func (m *Memory) Delete(key string) {
	m.cache.Delete(key)
}

// Clear removes every entry
func (m *Memory) Clear() {
	m.cache.Flush()
}

// Len returns the number of entries held, stale ones included
func (m *Memory) Len() int {
	return m.cache.ItemCount()
}

// Entries returns a snapshot of fresh entries
func (m *Memory) Entries() []model.CacheEntry {
	var out []model.CacheEntry
	for _, item := range m.cache.Items() {
		entry := item.Object.(*model.CacheEntry)
		if !m.stale(entry) {
			out = append(out, *entry)
		}
	}
	return out
}

func (m *Memory) stale(e *model.CacheEntry) bool {
	return m.now().Sub(e.InsertedAt) > m.freshness
}

func (m *Memory) dropStale() {
	for key, item := range m.cache.Items() {
		if m.stale(item.Object.(*model.CacheEntry)) {
			m.cache.Delete(key)
		}
	}
}

// evictOldest removes the entry with the earliest insertion time
func (m *Memory) evictOldest() bool {
	var oldestKey string
	var oldest time.Time
	for key, item := range m.cache.Items() {
		entry := item.Object.(*model.CacheEntry)
		if oldestKey == "" || entry.InsertedAt.Before(oldest) ||
			(entry.InsertedAt.Equal(oldest) && key < oldestKey) {
			oldestKey = key
			oldest = entry.InsertedAt
		}
	}
	if oldestKey == "" {
		return false
	}
	m.cache.Delete(oldestKey)
	metrics.CacheEvictions.Inc()
	return true
}
