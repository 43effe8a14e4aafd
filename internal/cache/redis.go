package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/onnwee/indevice-proxy/internal/logger"
	"github.com/onnwee/indevice-proxy/internal/metrics"
)

const backendRedis = "redis"

// RedisConfig holds the configuration for the Redis client.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisCache shares cached results between proxy instances. Expiry is enforced
// by Redis itself and the entry bound is left to the server's maxmemory policy.
// Redis errors are logged and reported as misses.
type RedisCache struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
	log        *slog.Logger

	hits, misses, stores, errs atomic.Uint64
}

// NewRedis connects to Redis and pings it before returning.
func NewRedis(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	c := NewRedisWithClient(rdb, cfg.KeyPrefix, cfg.TTL)
	c.log.Info("connected to redis", "addr", cfg.Addr, "db", cfg.DB)
	return c, nil
}

// NewRedisWithClient wraps an existing client without checking connectivity.
func NewRedisWithClient(client *redis.Client, prefix string, defaultTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     client,
		prefix:     prefix,
		defaultTTL: defaultTTL,
		log:        logger.WithComponent("redis_cache"),
	}
}

func (c *RedisCache) key(k string) string { return c.prefix + k }

// Lookup implements Cache. GET and PTTL run in one transaction so the TTL
// belongs to the value returned.
func (c *RedisCache) Lookup(ctx context.Context, key string) (Hit, bool) {
	var (
		get  *redis.StringCmd
		pttl *redis.DurationCmd
	)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.Get(ctx, c.key(key))
		pttl = pipe.PTTL(ctx, c.key(key))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		c.fail(ctx, "lookup", err)
		c.miss()
		return Hit{}, false
	}

	data, err := get.Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.fail(ctx, "lookup", err)
		}
		c.miss()
		return Hit{}, false
	}

	// PTTL is negative for keys without expiry; StoreTTL never writes those.
	ttl := pttl.Val()

	c.hits.Add(1)
	metrics.CacheLookups.WithLabelValues(backendRedis, "hit").Inc()
	return Hit{
		Value: json.RawMessage(data),
		TTL:   roundSeconds(ttl),
	}, true
}

func (c *RedisCache) miss() {
	c.misses.Add(1)
	metrics.CacheLookups.WithLabelValues(backendRedis, "miss").Inc()
}

func (c *RedisCache) fail(ctx context.Context, op string, err error) {
	c.errs.Add(1)
	metrics.CacheErrors.WithLabelValues(backendRedis, op).Inc()
	c.log.WarnContext(ctx, "redis cache operation failed", "operation", op, "error", err)
}

// Store implements Cache.
func (c *RedisCache) Store(ctx context.Context, key string, value json.RawMessage) {
	c.StoreTTL(ctx, key, value, c.defaultTTL)
}

// StoreTTL implements Cache. A non-positive ttl removes the key, since Redis
// treats a zero expiration as "never expire".
func (c *RedisCache) StoreTTL(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) {
	if ttl <= 0 {
		if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
			c.fail(ctx, "store", err)
		}
		return
	}
	if err := c.client.Set(ctx, c.key(key), []byte(value), ttl).Err(); err != nil {
		c.fail(ctx, "store", err)
		return
	}
	c.stores.Add(1)
	metrics.CacheStores.WithLabelValues(backendRedis).Inc()
}

// DefaultTTL implements Cache.
func (c *RedisCache) DefaultTTL() time.Duration { return c.defaultTTL }

// Stats implements Cache. Item count and capacity are owned by the Redis
// server and reported as zero.
func (c *RedisCache) Stats() Stats {
	return Stats{
		Backend: backendRedis,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Stores:  c.stores.Load(),
	}
}

// Errors returns how many Redis operations failed.
func (c *RedisCache) Errors() uint64 { return c.errs.Load() }

// Backend implements Cache.
func (c *RedisCache) Backend() string { return backendRedis }

// Close closes the Redis client connection.
func (c *RedisCache) Close() error {
	if c.client != nil {
		c.log.Info("closing redis client")
		return c.client.Close()
	}
	return nil
}

var _ Cache = (*RedisCache)(nil)
