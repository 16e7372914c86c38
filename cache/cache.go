package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrMiss is returned by Get when no live entry exists for the key.
	ErrMiss = errors.New("cache miss")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("cache backend unavailable")
)

// Snapshot is the cached view of an identity.
type Snapshot struct {
	IdentityID string
	Email      string
	Username   string
	Role       string
	Verified   bool
	AvatarURL  string
	CreatedAt  int64
	TokenID    string
	ExpiresAt  int64
}

// Cache is implemented by every backend. Implementations are safe for
// concurrent use; same-key writes are last-write-wins.
type Cache interface {
	Get(ctx context.Context, key string) (*Snapshot, error)
	Put(ctx context.Context, key string, snap *Snapshot, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
	InvalidateIdentity(ctx context.Context, identityID string) error
	Ping(ctx context.Context) error
}

// Key derives the cache key for a bearer token. The raw token never reaches
// the backend.
func Key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
