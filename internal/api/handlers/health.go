package handlers

import (
	"encoding/json"
	"net/http"
)

type healthResponse struct {
	Status       string `json:"status"`
	CacheBackend string `json:"cache_backend,omitempty"`
}

// Health answers liveness checks. It never touches the upstream or the
// cache, so a slow browser fetch cannot fail it.
func Health(cacheBackend string) http.HandlerFunc {
	body := healthResponse{Status: "ok", CacheBackend: cacheBackend}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(body)
	}
}
