package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/indevice-proxy/internal/api/handlers"
	"github.com/onnwee/indevice-proxy/internal/apierr"
	"github.com/onnwee/indevice-proxy/internal/cache"
	"github.com/onnwee/indevice-proxy/internal/middleware"
)

// Deps are the services the HTTP layer depends on.
type Deps struct {
	Resolver handlers.Resolver
	Cache    cache.Cache
	// RateLimiter guards the fetch routes; nil disables limiting.
	RateLimiter *middleware.RateLimiter
	// CORS nil means DefaultCORSConfig.
	CORS        *middleware.CORSConfig
	Compression bool
}

// NewRouter registers the routes.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestMetrics)

	var fetch http.Handler = handlers.NewFetchHandler(d.Resolver)
	if d.RateLimiter != nil {
		fetch = d.RateLimiter.Limit(fetch)
	}

	// Fetch
	r.Handle("/api/fetch", fetch).Methods(http.MethodGet, http.MethodOptions)
	r.Handle("/", fetch).Methods(http.MethodGet, http.MethodOptions)

	// Health
	var backend string
	if d.Cache != nil {
		backend = d.Cache.Backend()
	}
	r.Handle("/health", handlers.Health(backend)).Methods(http.MethodGet)

	// Cache
	r.Handle("/api/cache/stats", handlers.NewCacheStatsHandler(d.Cache)).Methods(http.MethodGet)

	// Metrics
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apierr.WriteErrorWithContext(w, r, apierr.NotFound())
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apierr.WriteErrorWithContext(w, r, apierr.MethodNotAllowed())
	})

	return r
}

// NewHandler wraps the router in the server-wide middleware chain. The chain
// sits outside the router so unmatched routes get CORS headers too.
func NewHandler(d Deps) http.Handler {
	var h http.Handler = NewRouter(d)
	if d.Compression {
		h = middleware.Compress(h)
	}
	h = middleware.SecurityHeaders(h)
	h = middleware.RecoverWithSentry(h)
	h = middleware.CORS(d.CORS)(h)
	h = middleware.RequestID(h)
	return h
}
