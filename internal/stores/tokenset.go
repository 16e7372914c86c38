package stores

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps Redis failures.
var ErrRedisUnavailable = errors.New("token set redis unavailable")

// TokenSet records token IDs (jti) until their own expiry. It backs two
// features: the opt-in revocation list consulted by Authorize, and the
// single-use marker for password reset tokens.
type TokenSet interface {
	// Mark records id for ttl. It reports false when id was already present.
	Mark(ctx context.Context, id string, ttl time.Duration) (bool, error)
	// Contains reports whether id is currently recorded.
	Contains(ctx context.Context, id string) (bool, error)
	// Unmark removes id. Missing ids are not an error.
	Unmark(ctx context.Context, id string) error
}

// RedisTokenSet stores each id as "<prefix><id>" with a TTL.
type RedisTokenSet struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisTokenSet creates a Redis-backed TokenSet. Use distinct prefixes
// for distinct sets.
func NewRedisTokenSet(client redis.UniversalClient, prefix string) *RedisTokenSet {
	return &RedisTokenSet{redis: client, prefix: prefix}
}

func (s *RedisTokenSet) Mark(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return true, nil
	}
	ok, err := s.redis.SetNX(ctx, s.prefix+id, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ok, nil
}

func (s *RedisTokenSet) Contains(ctx context.Context, id string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.prefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}

func (s *RedisTokenSet) Unmark(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.prefix+id).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// MemoryTokenSet is a process-local TokenSet. Expired ids are dropped
// lazily on access.
type MemoryTokenSet struct {
	mu  sync.Mutex
	ids map[string]time.Time
	now func() time.Time
}

// NewMemoryTokenSet creates an empty set. A nil clock means time.Now.
func NewMemoryTokenSet(now func() time.Time) *MemoryTokenSet {
	if now == nil {
		now = time.Now
	}
	return &MemoryTokenSet{ids: make(map[string]time.Time), now: now}
}

func (s *MemoryTokenSet) Mark(_ context.Context, id string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return true, nil
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if exp, ok := s.ids[id]; ok && now.Before(exp) {
		return false, nil
	}
	s.ids[id] = now.Add(ttl)
	if len(s.ids)%256 == 0 {
		for k, exp := range s.ids {
			if !now.Before(exp) {
				delete(s.ids, k)
			}
		}
	}
	return true, nil
}

func (s *MemoryTokenSet) Contains(_ context.Context, id string) (bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.ids[id]
	if !ok {
		return false, nil
	}
	if !now.Before(exp) {
		delete(s.ids, id)
		return false, nil
	}
	return true, nil
}

func (s *MemoryTokenSet) Unmark(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.ids, id)
	s.mu.Unlock()
	return nil
}
