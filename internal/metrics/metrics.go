package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache metrics
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_cache_lookups_total",
			Help: "Total number of cache lookups by result",
		},
		[]string{"backend", "result"}, // result: hit, miss
	)

	CacheStores = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_cache_stores_total",
			Help: "Total number of entries written to the cache",
		},
		[]string{"backend"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_cache_evictions_total",
			Help: "Total number of entries evicted to respect capacity",
		},
		[]string{"backend"},
	)

	CacheExpirations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_cache_expirations_total",
			Help: "Total number of expired entries purged on read",
		},
		[]string{"backend"},
	)

	CacheItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "proxy_cache_items",
			Help: "Current number of items in the cache",
		},
		[]string{"backend"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_cache_errors_total",
			Help: "Total number of cache backend errors treated as misses",
		},
		[]string{"backend", "operation"},
	)

	// Upstream fetch metrics
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_fetch_total",
			Help: "Total number of upstream fetches",
		},
		[]string{"mode", "status"}, // status: success, failed, rejected
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "proxy_fetch_duration_seconds",
			Help:    "Duration of upstream fetches including the challenge wait",
			Buckets: []float64{0.5, 1, 2, 4, 6, 8, 12, 20, 30, 60},
		},
		[]string{"mode", "status"},
	)

	FetchUpstreamStatus = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_fetch_upstream_status_total",
			Help: "Upstream HTTP status codes observed by successful fetches",
		},
		[]string{"code"},
	)

	FetchInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "proxy_fetch_in_flight",
			Help: "Number of upstream fetches currently running",
		},
	)

	FetchShared = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proxy_fetch_shared_total",
			Help: "Total number of requests served by joining another request's in-flight fetch",
		},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"component"},
	)

	CircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_trips_total",
			Help: "Total number of circuit breaker trips",
		},
		[]string{"component"},
	)

	// API request metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"endpoint", "method", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"endpoint", "method", "status"},
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"scope"}, // scope: global, ip
	)
)
