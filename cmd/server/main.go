package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/indevice-proxy/internal/api"
	"github.com/onnwee/indevice-proxy/internal/cache"
	"github.com/onnwee/indevice-proxy/internal/config"
	"github.com/onnwee/indevice-proxy/internal/errorreporting"
	"github.com/onnwee/indevice-proxy/internal/fetcher"
	"github.com/onnwee/indevice-proxy/internal/logger"
	"github.com/onnwee/indevice-proxy/internal/middleware"
	"github.com/onnwee/indevice-proxy/internal/proxy"
	"github.com/onnwee/indevice-proxy/internal/secrets"
	"github.com/onnwee/indevice-proxy/internal/server"
	"github.com/onnwee/indevice-proxy/internal/tracing"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	if envErr != nil {
		logger.Debug("No .env file found, using process environment")
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := errorreporting.Init(errorreporting.Options{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     cfg.SentryRelease,
		SampleRate:  1.0,
	}); err != nil {
		logger.Warn("Sentry init failed, continuing without error reporting", "error", err)
	}
	defer errorreporting.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, tracing.Options{
		ServiceName: "indevice-proxy",
		Enabled:     cfg.OTELEnabled,
		Endpoint:    cfg.OTELEndpoint,
		SampleRate:  cfg.OTELSampleRate,
	})
	if err != nil {
		logger.Warn("Tracing init failed, continuing without tracing", "error", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	store, err := cache.New(ctx, cfg)
	if err != nil {
		logger.Error("Cache init failed", "backend", cfg.CacheBackend, "error", err)
		errorreporting.CaptureError(err)
		errorreporting.Flush(2 * time.Second)
		os.Exit(1)
	}
	defer store.Close()

	svc := proxy.NewService(store, fetcher.New(cfg), proxy.WithSingleFlight(cfg.FetchSingleFlight))

	deps := api.Deps{
		Resolver:    svc,
		Cache:       store,
		Compression: cfg.EnableCompression,
		CORS: &middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			ExposedHeaders: []string{"X-Cache", middleware.RequestIDHeader},
		},
	}
	if cfg.EnableRateLimit {
		deps.RateLimiter = middleware.NewRateLimiter(
			cfg.RateLimitGlobal, cfg.RateLimitGlobalBurst,
			cfg.RateLimitPerIP, cfg.RateLimitPerIPBurst,
		)
		defer deps.RateLimiter.Stop()
	}

	// Without a fetch timeout a slow browser fetch may run arbitrarily long,
	// so the write deadline is lifted as well.
	writeTimeout := server.NoWriteTimeout
	if cfg.FetchTimeout > 0 {
		writeTimeout = cfg.FetchTimeout + 30*time.Second
	}
	srv := server.New(api.NewHandler(deps), server.Options{
		Addr:         ":" + cfg.Port,
		WriteTimeout: writeTimeout,
	})

	logger.Info("Starting indevice proxy",
		"port", cfg.Port,
		"cache_backend", store.Backend(),
		"cache_ttl_seconds", cfg.CacheTTLSeconds(),
		"cache_max_entries", cfg.CacheMaxEntries,
		"redis_addr", secrets.MaskURL(cfg.RedisAddr),
		"redis_password", secrets.Mask(cfg.RedisPassword),
		"fetcher_mode", cfg.FetcherMode,
		"upstream", cfg.UpstreamURL(),
		"single_flight", cfg.FetchSingleFlight,
		"sentry_dsn", secrets.MaskURL(cfg.SentryDSN),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("Server failed", "error", err)
		errorreporting.CaptureError(err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("Tracer shutdown failed", "error", err)
	}
}
