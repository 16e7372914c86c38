package rate

import "errors"

var (
	// ErrRedisUnavailable wraps Redis failures seen by the Redis backend.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrInvalidConfig is returned by constructors for a non-positive window or ceiling.
	ErrInvalidConfig = errors.New("invalid rate limit config")
)
