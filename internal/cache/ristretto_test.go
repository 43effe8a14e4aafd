package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestRistrettoCache_StoreAndLookup(t *testing.T) {
	c, err := NewRistretto(100, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	c.Store(ctx, "test-key", raw(`{"title":"clip"}`))

	hit, found := c.Lookup(ctx, "test-key")
	if !found {
		t.Fatal("Expected to find cached value")
	}
	if string(hit.Value) != `{"title":"clip"}` {
		t.Errorf("unexpected value %s", hit.Value)
	}
	if hit.TTL < 59 || hit.TTL > 60 {
		t.Errorf("expected ttl close to 60, got %d", hit.TTL)
	}
}

func TestRistrettoCache_LookupNonExistent(t *testing.T) {
	c, err := NewRistretto(100, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer c.Close()

	if _, found := c.Lookup(context.Background(), "nonexistent"); found {
		t.Error("Expected not to find nonexistent key")
	}
	if s := c.Stats(); s.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", s.Misses)
	}
}

func TestRistrettoCache_Expiration(t *testing.T) {
	c, err := NewRistretto(100, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	clock := newFakeClock()
	c.now = clock.Now

	c.StoreTTL(ctx, "expiring-key", raw(`1`), time.Second)
	if _, found := c.Lookup(ctx, "expiring-key"); !found {
		t.Fatal("Expected to find value immediately after store")
	}

	clock.Advance(2 * time.Second)
	if _, found := c.Lookup(ctx, "expiring-key"); found {
		t.Fatal("Expected value to be expired")
	}
	if _, found := c.Lookup(ctx, "expiring-key"); found {
		t.Fatal("Expected expired value to stay gone")
	}
	if s := c.Stats(); s.Expirations != 1 {
		t.Errorf("expected 1 expiration, got %d", s.Expirations)
	}
}

func TestRistrettoCache_BoundedByEntryCount(t *testing.T) {
	c, err := NewRistretto(10, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		c.Store(ctx, fmt.Sprintf("k%d", i), raw(`1`))
	}

	// Admission is probabilistic, so only the upper bound is asserted.
	found := 0
	for i := 0; i < 100; i++ {
		if _, ok := c.Lookup(ctx, fmt.Sprintf("k%d", i)); ok {
			found++
		}
	}
	if found > 10 {
		t.Errorf("expected at most 10 retained entries, got %d", found)
	}
	t.Logf("Cache retained %d out of 100 items with capacity 10", found)
}
