package config

import (
	"os"
	"strings"
	"time"

	"github.com/onnwee/indevice-proxy/internal/secrets"
	"github.com/onnwee/indevice-proxy/internal/utils"
)

// Cache backends selectable through CACHE_BACKEND.
const (
	CacheBackendFIFO      = "fifo"
	CacheBackendRistretto = "ristretto"
	CacheBackendRedis     = "redis"
)

// Fetcher modes selectable through FETCHER_MODE.
const (
	FetcherModeBrowser = "browser"
	FetcherModeDirect  = "direct"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	Port string
	Env  string
	// Cache
	CacheTTL        time.Duration
	CacheMaxEntries int
	CacheBackend    string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisKeyPrefix  string
	// Upstream fetch
	FetcherMode           string
	FetchOrigin           string // site visited to clear the browser challenge
	FetchAPIPath          string // upstream endpoint receiving the form POST
	FetchChallengeWait    time.Duration
	FetchTimeout          time.Duration // 0 means no timeout
	FetchSingleFlight     bool
	FetchBreakerThreshold int // 0 disables the circuit breaker
	FetchBreakerCooldown  time.Duration
	// Headless Chrome
	ChromePath      string
	ChromeHeadless  bool
	ChromeNoSandbox bool
	// Security settings
	EnableRateLimit      bool
	RateLimitGlobal      float64 // requests per second globally
	RateLimitGlobalBurst int
	RateLimitPerIP       float64 // requests per second per IP
	RateLimitPerIPBurst  int
	CORSAllowedOrigins   []string
	EnableCompression    bool
	// Observability settings
	LogLevel          string
	OTELEnabled       bool
	OTELEndpoint      string
	OTELSampleRate    float64
	SentryDSN         string
	SentryEnvironment string
	SentryRelease     string
}

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}
	cached = &Config{
		Port:            utils.GetEnvAsString("PORT", "8000"),
		Env:             utils.GetEnvAsString("ENV", "development"),
		CacheTTL:        time.Duration(utils.GetEnvAsInt("CACHE_TTL_SECONDS", 300)) * time.Second,
		CacheMaxEntries: utils.GetEnvAsInt("CACHE_MAX_ENTRIES", 50),
		CacheBackend:    strings.ToLower(utils.GetEnvAsString("CACHE_BACKEND", CacheBackendFIFO)),
		RedisAddr:       strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         utils.GetEnvAsInt("REDIS_DB", 0),
		RedisKeyPrefix:  utils.GetEnvAsString("REDIS_KEY_PREFIX", "indevice:"),

		FetcherMode:           strings.ToLower(utils.GetEnvAsString("FETCHER_MODE", FetcherModeBrowser)),
		FetchOrigin:           utils.GetEnvAsString("FETCH_ORIGIN", "https://getindevice.com"),
		FetchAPIPath:          utils.GetEnvAsString("FETCH_API_PATH", "/wp-json/aio-dl/video-data/"),
		FetchChallengeWait:    time.Duration(utils.GetEnvAsInt("FETCH_CHALLENGE_WAIT_MS", 4000)) * time.Millisecond,
		FetchTimeout:          time.Duration(utils.GetEnvAsInt("FETCH_TIMEOUT_MS", 0)) * time.Millisecond,
		FetchSingleFlight:     utils.GetEnvAsBool("FETCH_SINGLE_FLIGHT", true),
		FetchBreakerThreshold: utils.GetEnvAsInt("FETCH_BREAKER_THRESHOLD", 5),
		FetchBreakerCooldown:  time.Duration(utils.GetEnvAsInt("FETCH_BREAKER_COOLDOWN_MS", 60000)) * time.Millisecond,

		ChromePath:      strings.TrimSpace(os.Getenv("CHROME_PATH")),
		ChromeHeadless:  utils.GetEnvAsBool("CHROME_HEADLESS", true),
		ChromeNoSandbox: utils.GetEnvAsBool("CHROME_NO_SANDBOX", true),

		EnableRateLimit:      utils.GetEnvAsBool("ENABLE_RATE_LIMIT", true),
		RateLimitGlobal:      utils.GetEnvAsFloat("RATE_LIMIT_GLOBAL", 20.0),
		RateLimitGlobalBurst: utils.GetEnvAsInt("RATE_LIMIT_GLOBAL_BURST", 40),
		RateLimitPerIP:       utils.GetEnvAsFloat("RATE_LIMIT_PER_IP", 2.0),
		RateLimitPerIPBurst:  utils.GetEnvAsInt("RATE_LIMIT_PER_IP_BURST", 5),
		CORSAllowedOrigins:   utils.GetEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		EnableCompression:    utils.GetEnvAsBool("ENABLE_COMPRESSION", true),

		LogLevel:          strings.ToLower(utils.GetEnvAsString("LOG_LEVEL", "info")),
		OTELEnabled:       utils.GetEnvAsBool("OTEL_ENABLED", false),
		OTELEndpoint:      utils.GetEnvAsString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OTELSampleRate:    utils.GetEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryDSN:         strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment: strings.TrimSpace(os.Getenv("SENTRY_ENVIRONMENT")),
		SentryRelease:     strings.TrimSpace(os.Getenv("SENTRY_RELEASE")),
	}

	// A zero TTL expires entries immediately; negative values fall back.
	if cached.CacheTTL < 0 {
		cached.CacheTTL = 300 * time.Second
	}
	if cached.CacheMaxEntries < 1 {
		cached.CacheMaxEntries = 50
	}
	switch cached.CacheBackend {
	case CacheBackendFIFO, CacheBackendRistretto, CacheBackendRedis:
	default:
		cached.CacheBackend = CacheBackendFIFO
	}
	if cached.FetcherMode != FetcherModeDirect {
		cached.FetcherMode = FetcherModeBrowser
	}
	if cached.SentryEnvironment == "" {
		cached.SentryEnvironment = cached.Env
	}

	return cached
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }

// UpstreamURL is the absolute URL the form POST is sent to.
func (c *Config) UpstreamURL() string {
	return utils.TrimSlashJoin(c.FetchOrigin, c.FetchAPIPath)
}

// CacheTTLSeconds is the default TTL in whole seconds, as reported to clients.
func (c *Config) CacheTTLSeconds() int {
	return int(c.CacheTTL / time.Second)
}

// Validate reports settings that are required by the selected backends.
func (c *Config) Validate() error {
	required := map[string]string{
		"FETCH_ORIGIN":   c.FetchOrigin,
		"FETCH_API_PATH": c.FetchAPIPath,
	}
	if c.CacheBackend == CacheBackendRedis {
		required["REDIS_ADDR"] = c.RedisAddr
	}
	return secrets.ValidateRequired(required)
}
