package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type brokenCache struct{ err error }

func (b brokenCache) Get(context.Context, string) (*Snapshot, error) { return nil, b.err }
func (b brokenCache) Put(context.Context, string, *Snapshot, time.Duration) error {
	return b.err
}
func (b brokenCache) Invalidate(context.Context, string) error         { return b.err }
func (b brokenCache) InvalidateIdentity(context.Context, string) error { return b.err }
func (b brokenCache) Ping(context.Context) error                       { return b.err }

func TestFailOpenTurnsFailuresIntoMisses(t *testing.T) {
	down := errors.New("connection refused")
	var ops []string
	c := NewFailOpen(brokenCache{err: down}, nil)
	c.OnError = func(op string, err error) {
		if !errors.Is(err, down) {
			t.Fatalf("unexpected error passed to OnError: %v", err)
		}
		ops = append(ops, op)
	}
	ctx := context.Background()

	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}
	if err := c.Put(ctx, "k", sampleSnapshot(), time.Minute); err != nil {
		t.Fatalf("Put must not fail: %v", err)
	}
	if err := c.Invalidate(ctx, "k"); err != nil {
		t.Fatalf("Invalidate must not fail: %v", err)
	}
	if err := c.InvalidateIdentity(ctx, "id"); err != nil {
		t.Fatalf("InvalidateIdentity must not fail: %v", err)
	}
	if err := c.Ping(ctx); !errors.Is(err, down) {
		t.Fatalf("Ping should report the backend state, got %v", err)
	}

	if len(ops) != 4 {
		t.Fatalf("expected 4 reported failures, got %v", ops)
	}
}

func TestFailOpenDoesNotReportPlainMiss(t *testing.T) {
	m := NewMemory(0)
	defer m.Close()

	c := NewFailOpen(m, nil)
	c.OnError = func(op string, err error) {
		t.Fatalf("miss reported as failure: %s %v", op, err)
	}
	if _, err := c.Get(context.Background(), "absent"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}
}
