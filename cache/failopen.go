package cache

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goContacts/internal/logging"
)

// FailOpen wraps a backend so its failures never reach the caller: a
// failed Get is a miss, a failed write or invalidation is logged and
// swallowed. OnError, when set, is called once per swallowed failure.
type FailOpen struct {
	next    Cache
	log     logging.Logger
	OnError func(op string, err error)
}

// NewFailOpen wraps next. A nil logger discards.
func NewFailOpen(next Cache, log logging.Logger) *FailOpen {
	if log == nil {
		log = logging.Nop()
	}
	return &FailOpen{next: next, log: log.With("component", "identity_cache")}
}

func (f *FailOpen) Get(ctx context.Context, key string) (*Snapshot, error) {
	snap, err := f.next.Get(ctx, key)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, ErrMiss) {
		f.report(ctx, "get", err)
	}
	return nil, ErrMiss
}

func (f *FailOpen) Put(ctx context.Context, key string, snap *Snapshot, ttl time.Duration) error {
	if err := f.next.Put(ctx, key, snap, ttl); err != nil {
		f.report(ctx, "put", err)
	}
	return nil
}

func (f *FailOpen) Invalidate(ctx context.Context, key string) error {
	if err := f.next.Invalidate(ctx, key); err != nil {
		f.report(ctx, "invalidate", err)
	}
	return nil
}

func (f *FailOpen) InvalidateIdentity(ctx context.Context, identityID string) error {
	if err := f.next.InvalidateIdentity(ctx, identityID); err != nil {
		f.report(ctx, "invalidate_identity", err)
	}
	return nil
}

// Ping is passed through so health checks can report a degraded cache.
func (f *FailOpen) Ping(ctx context.Context) error {
	return f.next.Ping(ctx)
}

func (f *FailOpen) report(ctx context.Context, op string, err error) {
	f.log.Warn(ctx, "cache backend failure, continuing without cache", "op", op, "error", err)
	if f.OnError != nil {
		f.OnError(op, err)
	}
}
