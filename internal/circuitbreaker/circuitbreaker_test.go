package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerStateClosed(t *testing.T) {
	cb := New(Config{
		Name:             "test",
		FailureThreshold: 3,
		Timeout:          100 * time.Millisecond,
	})

	err := cb.Call(func() error { return nil })
	if err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}

	if cb.GetState() != StateClosed {
		t.Errorf("Expected state to be Closed, got %v", cb.GetState())
	}
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cb := New(Config{
		Name:             "test",
		FailureThreshold: 3,
		Timeout:          100 * time.Millisecond,
	})

	testErr := errors.New("test error")

	for i := 0; i < 3; i++ {
		err := cb.Call(func() error { return testErr })
		if err != testErr {
			t.Errorf("Expected test error, got: %v", err)
		}
	}

	if cb.GetState() != StateOpen {
		t.Errorf("Expected state to be Open, got %v", cb.GetState())
	}

	called := false
	err := cb.Call(func() error { called = true; return nil })
	if err != ErrCircuitOpen {
		t.Errorf("Expected ErrCircuitOpen, got: %v", err)
	}
	if called {
		t.Error("function must not run while the circuit is open")
	}
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := New(Config{Name: "test", FailureThreshold: 2})
	testErr := errors.New("test error")

	cb.Call(func() error { return testErr })
	cb.Call(func() error { return nil })
	cb.Call(func() error { return testErr })

	if cb.GetState() != StateClosed {
		t.Errorf("Expected state to be Closed, got %v", cb.GetState())
	}
}

func TestCircuitBreakerHalfOpenAfterTimeout(t *testing.T) {
	cb := New(Config{
		Name:             "test",
		FailureThreshold: 2,
		SuccessThreshold: 2,
		Timeout:          time.Minute,
	})
	now := time.Unix(1_700_000_000, 0)
	cb.now = func() time.Time { return now }

	testErr := errors.New("test error")
	cb.Call(func() error { return testErr })
	cb.Call(func() error { return testErr })

	if cb.GetState() != StateOpen {
		t.Fatalf("Expected state to be Open, got %v", cb.GetState())
	}

	now = now.Add(30 * time.Second)
	if err := cb.Call(func() error { return nil }); err != ErrCircuitOpen {
		t.Fatalf("Expected ErrCircuitOpen before cooldown, got: %v", err)
	}

	now = now.Add(31 * time.Second)
	if err := cb.Call(func() error { return nil }); err != nil {
		t.Errorf("Expected success in half-open state, got: %v", err)
	}
	if cb.GetState() != StateHalfOpen {
		t.Errorf("Expected state to be HalfOpen, got %v", cb.GetState())
	}

	cb.Call(func() error { return nil })
	if cb.GetState() != StateClosed {
		t.Errorf("Expected state to be Closed, got %v", cb.GetState())
	}
}

func TestCircuitBreakerReopensOnFailureInHalfOpen(t *testing.T) {
	cb := New(Config{
		Name:             "test",
		FailureThreshold: 2,
		Timeout:          50 * time.Millisecond,
	})

	testErr := errors.New("test error")

	cb.Call(func() error { return testErr })
	cb.Call(func() error { return testErr })

	time.Sleep(60 * time.Millisecond)

	cb.Call(func() error { return testErr })

	if cb.GetState() != StateOpen {
		t.Errorf("Expected state to be Open after failure in half-open, got %v", cb.GetState())
	}
}

func TestCircuitBreakerIgnoresNonFailures(t *testing.T) {
	cb := New(Config{
		Name:             "test",
		FailureThreshold: 1,
		IsFailure: func(err error) bool {
			return !errors.Is(err, context.Canceled)
		},
	})

	err := cb.Call(func() error { return context.Canceled })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled to pass through, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("Expected state to stay Closed, got %v", cb.GetState())
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(9):      "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
