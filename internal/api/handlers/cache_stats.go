package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/onnwee/indevice-proxy/internal/cache"
)

// StatsSource reports cache statistics.
type StatsSource interface {
	Stats() cache.Stats
}

// CacheStatsHandler serves GET /api/cache/stats.
type CacheStatsHandler struct {
	source StatsSource
}

// NewCacheStatsHandler creates a new cache stats handler.
func NewCacheStatsHandler(s StatsSource) *CacheStatsHandler {
	return &CacheStatsHandler{source: s}
}

// ServeHTTP implements http.Handler.
func (h *CacheStatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(h.source.Stats())
}
