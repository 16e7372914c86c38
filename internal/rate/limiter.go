package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config is the window length and the number of calls allowed inside it.
type Config struct {
	Window time.Duration
	Max    int
}

func (c Config) validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be > 0", ErrInvalidConfig)
	}
	if c.Max <= 0 {
		return fmt.Errorf("%w: max must be > 0", ErrInvalidConfig)
	}
	return nil
}

// Limiter decides whether one more call for key fits in the current window.
// A backend error is returned with allowed=false; the caller owns the
// fail-open or fail-closed decision.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Redis is a Limiter sharing counters through Redis.
type Redis struct {
	redis  redis.UniversalClient
	config Config
	prefix string
}

// NewRedis creates a Redis-backed Limiter.
func NewRedis(client redis.UniversalClient, cfg Config) (*Redis, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Redis{redis: client, config: cfg, prefix: "rl:"}, nil
}

// Allow counts the call and reports whether it is within the ceiling.
func (l *Redis) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.incrementWithTTL(ctx, l.prefix+key, l.config.Window)
	if err != nil {
		return false, err
	}
	return count <= int64(l.config.Max), nil
}

func (l *Redis) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	// Fixed window: NX keeps the TTL set by the hit that opened it.
	// INCR and EXPIRE share one MULTI.
	var incr *redis.IntCmd
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return incr.Val(), nil
}
