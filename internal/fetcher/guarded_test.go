package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/onnwee/indevice-proxy/internal/circuitbreaker"
)

type stubFetcher struct {
	calls atomic.Int32
	fn    func(ctx context.Context, target string) (*Result, error)
}

func (s *stubFetcher) Fetch(ctx context.Context, target string) (*Result, error) {
	s.calls.Add(1)
	return s.fn(ctx, target)
}

func TestGuarded_PassesResultThrough(t *testing.T) {
	stub := &stubFetcher{fn: func(context.Context, string) (*Result, error) {
		return &Result{Status: 200, Data: json.RawMessage(`{"ok":true}`)}, nil
	}}
	g := NewGuarded(stub, GuardOptions{Mode: "direct", BreakerThreshold: 3})

	res, err := g.Fetch(context.Background(), "https://example.com/v")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Status != 200 || string(res.Data) != `{"ok":true}` {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestGuarded_BreakerOpensAfterThreshold(t *testing.T) {
	upstreamErr := errors.New("navigation timeout")
	stub := &stubFetcher{fn: func(context.Context, string) (*Result, error) {
		return nil, upstreamErr
	}}
	g := NewGuarded(stub, GuardOptions{Mode: "browser", BreakerThreshold: 2, BreakerCooldown: time.Minute})

	for i := 0; i < 2; i++ {
		if _, err := g.Fetch(context.Background(), "https://example.com/v"); !errors.Is(err, upstreamErr) {
			t.Fatalf("call %d: expected upstream error, got %v", i, err)
		}
	}

	_, err := g.Fetch(context.Background(), "https://example.com/v")
	if !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if got := stub.calls.Load(); got != 2 {
		t.Errorf("expected 2 upstream calls, got %d", got)
	}
	if name := g.Breaker().Name(); name != "fetcher" {
		t.Errorf("breaker name = %q, want fetcher", name)
	}
}

func TestGuarded_BreakerDisabled(t *testing.T) {
	stub := &stubFetcher{fn: func(context.Context, string) (*Result, error) {
		return nil, errors.New("boom")
	}}
	g := NewGuarded(stub, GuardOptions{Mode: "browser"})
	if g.Breaker() != nil {
		t.Fatal("expected no breaker when threshold is zero")
	}

	for i := 0; i < 10; i++ {
		g.Fetch(context.Background(), "https://example.com/v")
	}
	if got := stub.calls.Load(); got != 10 {
		t.Errorf("expected every call to reach upstream, got %d", got)
	}
}

func TestGuarded_CancellationDoesNotTrip(t *testing.T) {
	stub := &stubFetcher{fn: func(ctx context.Context, _ string) (*Result, error) {
		return nil, context.Canceled
	}}
	g := NewGuarded(stub, GuardOptions{Mode: "browser", BreakerThreshold: 1})

	for i := 0; i < 3; i++ {
		g.Fetch(context.Background(), "https://example.com/v")
	}
	if g.Breaker().GetState() != circuitbreaker.StateClosed {
		t.Errorf("expected breaker to stay closed, got %v", g.Breaker().GetState())
	}
}

func TestGuarded_Timeout(t *testing.T) {
	t.Run("applied", func(t *testing.T) {
		stub := &stubFetcher{fn: func(ctx context.Context, _ string) (*Result, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}}
		g := NewGuarded(stub, GuardOptions{Mode: "browser", Timeout: 20 * time.Millisecond})

		_, err := g.Fetch(context.Background(), "https://example.com/v")
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("zero means none", func(t *testing.T) {
		stub := &stubFetcher{fn: func(ctx context.Context, _ string) (*Result, error) {
			if _, ok := ctx.Deadline(); ok {
				t.Error("expected no deadline")
			}
			return &Result{Status: 200, Data: json.RawMessage(`{}`)}, nil
		}}
		g := NewGuarded(stub, GuardOptions{Mode: "browser"})
		if _, err := g.Fetch(context.Background(), "https://example.com/v"); err != nil {
			t.Fatalf("Fetch: %v", err)
		}
	})
}

func TestGuarded_NilResultIsFailure(t *testing.T) {
	stub := &stubFetcher{fn: func(context.Context, string) (*Result, error) {
		return nil, nil
	}}
	g := NewGuarded(stub, GuardOptions{Mode: "browser", BreakerThreshold: 1, BreakerCooldown: time.Minute})

	res, err := g.Fetch(context.Background(), "https://example.com/v")
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("expected ErrNoResult, got %v", err)
	}
	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}
	if g.Breaker().GetState() != circuitbreaker.StateOpen {
		t.Errorf("expected breaker to open, got %v", g.Breaker().GetState())
	}
}
