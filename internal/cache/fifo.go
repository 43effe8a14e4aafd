package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/onnwee/indevice-proxy/internal/metrics"
)

const backendFIFO = "fifo"

type fifoEntry struct {
	value     json.RawMessage
	expiresAt time.Time
}

// FIFOCache is a bounded TTL cache that evicts in insertion order.
//
// Reads never reorder entries: the underlying list is only touched through
// Peek, so a frequently read entry is evicted as soon as it becomes the oldest.
// Overwriting a key counts as a fresh insertion. Expired entries are purged
// lazily on lookup; there is no background sweeper.
type FIFOCache struct {
	mu         sync.Mutex
	entries    *simplelru.LRU[string, fifoEntry]
	capacity   int
	defaultTTL time.Duration
	now        func() time.Time

	hits, misses, stores, evictions, expirations uint64
}

// Option customizes a FIFOCache.
type Option func(*FIFOCache)

// WithClock replaces time.Now; tests use it to control expiry.
func WithClock(now func() time.Time) Option {
	return func(c *FIFOCache) { c.now = now }
}

// NewFIFO creates a FIFO cache holding at most capacity entries.
func NewFIFO(capacity int, defaultTTL time.Duration, opts ...Option) *FIFOCache {
	if capacity < 1 {
		capacity = 1
	}
	entries, err := simplelru.NewLRU[string, fifoEntry](capacity, nil)
	if err != nil {
		// Only returned for a non-positive size.
		panic(err)
	}
	c := &FIFOCache{
		entries:    entries,
		capacity:   capacity,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup implements Cache.
func (c *FIFOCache) Lookup(_ context.Context, key string) (Hit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries.Peek(key)
	if !ok {
		c.misses++
		metrics.CacheLookups.WithLabelValues(backendFIFO, "miss").Inc()
		return Hit{}, false
	}

	now := c.now()
	if now.After(ent.expiresAt) {
		c.entries.Remove(key)
		c.expirations++
		c.misses++
		metrics.CacheExpirations.WithLabelValues(backendFIFO).Inc()
		metrics.CacheLookups.WithLabelValues(backendFIFO, "miss").Inc()
		metrics.CacheItems.WithLabelValues(backendFIFO).Set(float64(c.entries.Len()))
		return Hit{}, false
	}

	c.hits++
	metrics.CacheLookups.WithLabelValues(backendFIFO, "hit").Inc()
	return Hit{Value: ent.value, TTL: remainingSeconds(ent.expiresAt, now)}, true
}

// Store implements Cache.
func (c *FIFOCache) Store(ctx context.Context, key string, value json.RawMessage) {
	c.StoreTTL(ctx, key, value, c.defaultTTL)
}

// StoreTTL implements Cache. When the cache is full the oldest-inserted entry
// is evicted first, even if key is already present.
func (c *FIFOCache) StoreTTL(_ context.Context, key string, value json.RawMessage, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.entries.Len() >= c.capacity {
		if _, _, ok := c.entries.RemoveOldest(); !ok {
			break
		}
		c.evictions++
		metrics.CacheEvictions.WithLabelValues(backendFIFO).Inc()
	}

	// Remove first so an overwrite moves the key to the newest position.
	c.entries.Remove(key)
	c.entries.Add(key, fifoEntry{value: value, expiresAt: c.now().Add(ttl)})
	c.stores++

	metrics.CacheStores.WithLabelValues(backendFIFO).Inc()
	metrics.CacheItems.WithLabelValues(backendFIFO).Set(float64(c.entries.Len()))
}

// Keys returns the cached keys from oldest to newest insertion, expired or not.
func (c *FIFOCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Keys()
}

// Len returns the number of stored entries, including expired ones not yet purged.
func (c *FIFOCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// DefaultTTL implements Cache.
func (c *FIFOCache) DefaultTTL() time.Duration { return c.defaultTTL }

// Stats implements Cache.
func (c *FIFOCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Backend:     backendFIFO,
		Hits:        c.hits,
		Misses:      c.misses,
		Stores:      c.stores,
		Evictions:   c.evictions,
		Expirations: c.expirations,
		Items:       c.entries.Len(),
		Capacity:    c.capacity,
	}
}

// Backend implements Cache.
func (c *FIFOCache) Backend() string { return backendFIFO }

// Close implements Cache. The FIFO cache holds no external resources.
func (c *FIFOCache) Close() error { return nil }

var _ Cache = (*FIFOCache)(nil)
