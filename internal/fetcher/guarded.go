package fetcher

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/onnwee/indevice-proxy/internal/circuitbreaker"
	"github.com/onnwee/indevice-proxy/internal/metrics"
	"github.com/onnwee/indevice-proxy/internal/tracing"
)

// GuardOptions configures NewGuarded.
type GuardOptions struct {
	// Mode labels metrics and spans, e.g. "browser".
	Mode string
	// Timeout bounds each fetch; zero leaves the caller's context as is.
	Timeout time.Duration
	// BreakerThreshold is the consecutive failure count that opens the
	// breaker; zero disables it.
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Guarded wraps a Fetcher with a circuit breaker, metrics and tracing.
type Guarded struct {
	next    Fetcher
	mode    string
	timeout time.Duration
	breaker *circuitbreaker.CircuitBreaker
}

// NewGuarded decorates next.
func NewGuarded(next Fetcher, opts GuardOptions) *Guarded {
	g := &Guarded{next: next, mode: opts.Mode, timeout: opts.Timeout}
	if opts.BreakerThreshold > 0 {
		g.breaker = circuitbreaker.New(circuitbreaker.Config{
			Name:             "fetcher",
			FailureThreshold: opts.BreakerThreshold,
			Timeout:          opts.BreakerCooldown,
			IsFailure:        countsAgainstBreaker,
		})
	}
	return g
}

// A caller going away says nothing about upstream health.
func countsAgainstBreaker(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, ErrEmptyTarget)
}

// Breaker returns the circuit breaker, or nil when disabled.
func (g *Guarded) Breaker() *circuitbreaker.CircuitBreaker { return g.breaker }

// Fetch implements Fetcher.
func (g *Guarded) Fetch(ctx context.Context, target string) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "fetcher.Fetch",
		trace.WithAttributes(attribute.String("fetch.mode", g.mode)),
	)
	defer span.End()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	metrics.FetchInFlight.Inc()
	defer metrics.FetchInFlight.Dec()
	start := time.Now()

	var res *Result
	call := func() error {
		var err error
		res, err = g.next.Fetch(ctx, target)
		if err == nil && res == nil {
			err = ErrNoResult
		}
		return err
	}

	var err error
	if g.breaker != nil {
		err = g.breaker.Call(call)
	} else {
		err = call()
	}

	status := "success"
	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		status = "rejected"
		span.SetAttributes(attribute.String("circuit_breaker.name", g.breaker.Name()))
	case err != nil:
		status = "failed"
	}
	metrics.FetchTotal.WithLabelValues(g.mode, status).Inc()
	metrics.FetchDuration.WithLabelValues(g.mode, status).Observe(time.Since(start).Seconds())

	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	metrics.FetchUpstreamStatus.WithLabelValues(strconv.Itoa(res.Status)).Inc()
	span.SetAttributes(attribute.Int("http.response.status_code", res.Status))
	return res, nil
}
