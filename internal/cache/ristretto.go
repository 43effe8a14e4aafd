package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/onnwee/indevice-proxy/internal/metrics"
)

const backendRistretto = "ristretto"

// RistrettoCache bounds the cache by entry count using ristretto's TinyLFU
// admission policy. Unlike FIFOCache it may reject a write or evict a newer
// entry before an older one; expiry is still checked on every lookup.
type RistrettoCache struct {
	cache      *ristretto.Cache
	capacity   int
	defaultTTL time.Duration
	now        func() time.Time

	hits, misses, stores, expirations atomic.Uint64
}

// cacheItem wraps the data with its expiration time.
type cacheItem struct {
	data      json.RawMessage
	expiresAt time.Time
}

// NewRistretto creates a ristretto-backed cache holding roughly capacity entries.
func NewRistretto(capacity int, defaultTTL time.Duration) (*RistrettoCache, error) {
	if capacity < 1 {
		capacity = 1
	}
	// NumCounters should be ~10x the number of entries for optimal performance
	numCounters := int64(capacity) * 10
	if numCounters < 1000 {
		numCounters = 1000
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     int64(capacity), // every entry costs 1
		BufferItems: 64,
		Metrics:     true,
		// Cost counts entries, not bytes.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}

	return &RistrettoCache{
		cache:      c,
		capacity:   capacity,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}, nil
}

// Lookup implements Cache.
func (c *RistrettoCache) Lookup(_ context.Context, key string) (Hit, bool) {
	val, found := c.cache.Get(key)
	if !found {
		c.miss()
		return Hit{}, false
	}

	item, ok := val.(*cacheItem)
	if !ok {
		c.cache.Del(key)
		c.miss()
		return Hit{}, false
	}

	now := c.now()
	if now.After(item.expiresAt) {
		c.cache.Del(key)
		c.expirations.Add(1)
		metrics.CacheExpirations.WithLabelValues(backendRistretto).Inc()
		c.miss()
		return Hit{}, false
	}

	c.hits.Add(1)
	metrics.CacheLookups.WithLabelValues(backendRistretto, "hit").Inc()
	return Hit{Value: item.data, TTL: remainingSeconds(item.expiresAt, now)}, true
}

func (c *RistrettoCache) miss() {
	c.misses.Add(1)
	metrics.CacheLookups.WithLabelValues(backendRistretto, "miss").Inc()
}

// Store implements Cache.
func (c *RistrettoCache) Store(ctx context.Context, key string, value json.RawMessage) {
	c.StoreTTL(ctx, key, value, c.defaultTTL)
}

// StoreTTL implements Cache. The write may be dropped by the admission policy.
func (c *RistrettoCache) StoreTTL(_ context.Context, key string, value json.RawMessage, ttl time.Duration) {
	item := &cacheItem{
		data:      value,
		expiresAt: c.now().Add(ttl),
	}
	if c.cache.Set(key, item, 1) {
		c.stores.Add(1)
		metrics.CacheStores.WithLabelValues(backendRistretto).Inc()
	}
	// Wait for value to pass through buffers so an immediate lookup sees it.
	c.cache.Wait()
	metrics.CacheItems.WithLabelValues(backendRistretto).Set(float64(c.items()))
}

func (c *RistrettoCache) items() int {
	m := c.cache.Metrics
	added, evicted := m.KeysAdded(), m.KeysEvicted()
	if evicted > added {
		return 0
	}
	return int(added - evicted)
}

// DefaultTTL implements Cache.
func (c *RistrettoCache) DefaultTTL() time.Duration { return c.defaultTTL }

// Stats implements Cache. Counts from ristretto are approximate.
func (c *RistrettoCache) Stats() Stats {
	return Stats{
		Backend:     backendRistretto,
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Stores:      c.stores.Load(),
		Evictions:   c.cache.Metrics.KeysEvicted(),
		Expirations: c.expirations.Load(),
		Items:       c.items(),
		Capacity:    c.capacity,
	}
}

// Backend implements Cache.
func (c *RistrettoCache) Backend() string { return backendRistretto }

// Close releases ristretto's goroutines.
func (c *RistrettoCache) Close() error {
	c.cache.Close()
	return nil
}

var _ Cache = (*RistrettoCache)(nil)
