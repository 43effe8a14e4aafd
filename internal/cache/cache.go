package cache

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"
)

// Cache memoizes upstream fetch results keyed by normalized target identifier.
// Implementations never return an entry whose expiry has passed.
type Cache interface {
	// Lookup returns the stored value and its remaining TTL, or false when the
	// key is absent or expired. Expired entries are purged by the lookup.
	Lookup(ctx context.Context, key string) (Hit, bool)

	// Store saves value under key with the cache's default TTL.
	Store(ctx context.Context, key string, value json.RawMessage)

	// StoreTTL saves value under key with an explicit TTL.
	StoreTTL(ctx context.Context, key string, value json.RawMessage, ttl time.Duration)

	// DefaultTTL is the TTL applied by Store.
	DefaultTTL() time.Duration

	// Stats returns cache statistics.
	Stats() Stats

	// Backend names the implementation, for logs and metric labels.
	Backend() string

	Close() error
}

// Hit is a successful lookup.
type Hit struct {
	Value json.RawMessage
	// TTL is the remaining lifetime in whole seconds, rounded to nearest. Never negative.
	TTL int
}

// Stats represents cache statistics.
type Stats struct {
	Backend     string `json:"backend"`
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Stores      uint64 `json:"stores"`
	Evictions   uint64 `json:"evictions"`
	Expirations uint64 `json:"expirations"`
	Items       int    `json:"items"`
	Capacity    int    `json:"capacity"`
}

// Normalize derives the cache key for a raw target identifier. Only surrounding
// whitespace is removed; case, query order and escaping are kept as given.
func Normalize(raw string) string {
	return strings.TrimSpace(raw)
}

// remainingSeconds rounds the time left until expiresAt to whole seconds.
func remainingSeconds(expiresAt, now time.Time) int {
	return roundSeconds(expiresAt.Sub(now))
}

func roundSeconds(d time.Duration) int {
	secs := math.Round(d.Seconds())
	if secs < 0 {
		return 0
	}
	return int(secs)
}
