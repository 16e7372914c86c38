package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryGetPutExpiry(t *testing.T) {
	clock := newTestClock()
	m := NewMemory(0, WithMemoryClock(clock.Now))
	defer m.Close()
	ctx := context.Background()

	key := Key("token-a")
	if _, err := m.Get(ctx, key); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss on empty cache, got %v", err)
	}

	if err := m.Put(ctx, key, sampleSnapshot(), time.Minute); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	got, err := m.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Fatalf("unexpected snapshot %+v", got)
	}

	clock.Advance(time.Minute)
	if _, err := m.Get(ctx, key); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss at TTL, got %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("expected expired entry to be removed on read, have %d", m.Len())
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	m := NewMemory(0)
	defer m.Close()
	ctx := context.Background()

	key := Key("token-a")
	if err := m.Put(ctx, key, sampleSnapshot(), time.Minute); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	got, _ := m.Get(ctx, key)
	got.Role = "admin"

	again, _ := m.Get(ctx, key)
	if again.Role != "user" {
		t.Fatal("mutating a returned snapshot changed the cached entry")
	}
}

func TestMemoryInvalidate(t *testing.T) {
	m := NewMemory(0)
	defer m.Close()
	ctx := context.Background()

	a, b := Key("token-a"), Key("token-b")
	other := sampleSnapshot()
	other.IdentityID = "someone-else"

	_ = m.Put(ctx, a, sampleSnapshot(), time.Minute)
	_ = m.Put(ctx, b, sampleSnapshot(), time.Minute)
	_ = m.Put(ctx, Key("token-c"), other, time.Minute)

	if err := m.Invalidate(ctx, a); err != nil {
		t.Fatalf("Invalidate error: %v", err)
	}
	if _, err := m.Get(ctx, a); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss after Invalidate, got %v", err)
	}
	if _, err := m.Get(ctx, b); err != nil {
		t.Fatalf("sibling entry should survive: %v", err)
	}

	if err := m.InvalidateIdentity(ctx, sampleSnapshot().IdentityID); err != nil {
		t.Fatalf("InvalidateIdentity error: %v", err)
	}
	if _, err := m.Get(ctx, b); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss after InvalidateIdentity, got %v", err)
	}
	if _, err := m.Get(ctx, Key("token-c")); err != nil {
		t.Fatalf("other identity should survive: %v", err)
	}
	if err := m.Invalidate(ctx, Key("missing")); err != nil {
		t.Fatalf("Invalidate of missing key: %v", err)
	}
}

func TestMemorySweep(t *testing.T) {
	clock := newTestClock()
	m := NewMemory(0, WithMemoryClock(clock.Now))
	defer m.Close()
	ctx := context.Background()

	_ = m.Put(ctx, Key("short"), sampleSnapshot(), time.Second)
	_ = m.Put(ctx, Key("long"), sampleSnapshot(), time.Hour)

	clock.Advance(2 * time.Second)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("expected 1 swept entry, got %d", n)
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 entry left, got %d", m.Len())
	}
}

func TestMemorySweepGoroutineStops(t *testing.T) {
	m := NewMemory(time.Millisecond)
	_ = m.Put(context.Background(), Key("short"), sampleSnapshot(), time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for m.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("sweep goroutine never removed the expired entry")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
}

func TestMemoryConcurrentAccess(t *testing.T) {
	m := NewMemory(time.Millisecond)
	defer m.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := Key(fmt.Sprintf("token-%d", i%4))
			for j := 0; j < 200; j++ {
				_ = m.Put(ctx, key, sampleSnapshot(), time.Second)
				_, _ = m.Get(ctx, key)
				if j%50 == 0 {
					_ = m.InvalidateIdentity(ctx, sampleSnapshot().IdentityID)
				}
			}
		}(i)
	}
	wg.Wait()
}
