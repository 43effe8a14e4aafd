// Package proxy answers target lookups from the cache, falling back to the
// upstream fetcher on a miss.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/singleflight"

	"github.com/onnwee/indevice-proxy/internal/cache"
	"github.com/onnwee/indevice-proxy/internal/errorreporting"
	"github.com/onnwee/indevice-proxy/internal/fetcher"
	"github.com/onnwee/indevice-proxy/internal/logger"
	"github.com/onnwee/indevice-proxy/internal/metrics"
)

// Outcome is the result of resolving one target.
type Outcome struct {
	Cached bool
	// TTL is the remaining lifetime on a hit, or the default TTL after a fetch.
	TTL int
	// APIStatus is the upstream HTTP status; zero on a hit.
	APIStatus int
	Response  json.RawMessage
	// Shared reports that another caller's in-flight fetch was reused.
	Shared bool
}

// Service wires the cache to the fetcher.
type Service struct {
	cache        cache.Cache
	fetcher      fetcher.Fetcher
	group        singleflight.Group
	singleFlight bool
}

// Option configures a Service.
type Option func(*Service)

// WithSingleFlight toggles sharing one upstream fetch between concurrent
// misses for the same key.
func WithSingleFlight(enabled bool) Option {
	return func(s *Service) { s.singleFlight = enabled }
}

// NewService creates a Service. Single-flight is on by default.
func NewService(c cache.Cache, f fetcher.Fetcher, opts ...Option) *Service {
	s := &Service{cache: c, fetcher: f, singleFlight: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cache returns the underlying cache.
func (s *Service) Cache() cache.Cache { return s.cache }

// Resolve returns the cached response for target, or fetches and caches it.
// Failed fetches are never cached.
func (s *Service) Resolve(ctx context.Context, target string) (Outcome, error) {
	key := cache.Normalize(target)
	if key == "" {
		return Outcome{}, fetcher.ErrEmptyTarget
	}

	if hit, ok := s.cache.Lookup(ctx, key); ok {
		return Outcome{Cached: true, TTL: hit.TTL, Response: hit.Value}, nil
	}

	if !s.singleFlight {
		res, err := s.fetchAndStore(ctx, key, target)
		if err != nil {
			return Outcome{}, err
		}
		return s.fresh(res, false), nil
	}

	// The shared fetch outlives any one caller; each caller still stops
	// waiting when its own context ends.
	ch := s.group.DoChan(key, func() (any, error) {
		return s.fetchAndStore(context.WithoutCancel(ctx), key, target)
	})

	select {
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return Outcome{}, r.Err
		}
		if r.Shared {
			metrics.FetchShared.Inc()
		}
		return s.fresh(r.Val.(*fetcher.Result), r.Shared), nil
	}
}

// ErrFetchPanicked wraps a panic raised while fetching. Under single-flight
// the fetch runs on its own goroutine where no middleware can recover it.
var ErrFetchPanicked = errors.New("fetch panicked")

func (s *Service) fetchAndStore(ctx context.Context, key, target string) (res *fetcher.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrFetchPanicked, rec)
			res = nil
			logger.ErrorContext(ctx, "upstream fetch panicked", "target", key, "panic", rec, "stack", string(debug.Stack()))
			errorreporting.CaptureError(err)
		}
	}()

	res, err = s.fetcher.Fetch(ctx, target)
	if err != nil {
		logger.WarnContext(ctx, "upstream fetch failed", "target", key, "error", err)
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%w for %q", fetcher.ErrNoResult, key)
	}
	s.cache.Store(ctx, key, res.Data)
	logger.DebugContext(ctx, "cached upstream response", "target", key, "api_status", res.Status)
	return res, nil
}

func (s *Service) fresh(res *fetcher.Result, shared bool) Outcome {
	return Outcome{
		Cached:    false,
		TTL:       int(s.cache.DefaultTTL().Seconds()),
		APIStatus: res.Status,
		Response:  res.Data,
		Shared:    shared,
	}
}
