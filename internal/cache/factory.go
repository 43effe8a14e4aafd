package cache

import (
	"context"
	"fmt"

	"github.com/onnwee/indevice-proxy/internal/config"
	"github.com/onnwee/indevice-proxy/internal/logger"
)

// backendCaveat describes how a backend departs from the bounded FIFO
// behaviour, or returns "" for the FIFO cache.
func backendCaveat(backend string) string {
	switch backend {
	case config.CacheBackendRistretto:
		return "ristretto backend evicts by admission policy, not insertion order"
	case config.CacheBackendRedis:
		return "redis backend ignores CACHE_MAX_ENTRIES; the entry limit is the server's maxmemory policy"
	}
	return ""
}

// New builds the backend selected by cfg.CacheBackend.
func New(ctx context.Context, cfg *config.Config) (Cache, error) {
	if caveat := backendCaveat(cfg.CacheBackend); caveat != "" {
		logger.WithComponent("cache").Warn(caveat, "backend", cfg.CacheBackend)
	}

	switch cfg.CacheBackend {
	case config.CacheBackendRistretto:
		return NewRistretto(cfg.CacheMaxEntries, cfg.CacheTTL)
	case config.CacheBackendRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("cache backend %q requires REDIS_ADDR", cfg.CacheBackend)
		}
		return NewRedis(ctx, RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
			TTL:       cfg.CacheTTL,
		})
	default:
		return NewFIFO(cfg.CacheMaxEntries, cfg.CacheTTL), nil
	}
}
