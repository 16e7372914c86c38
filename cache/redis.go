package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores snapshots in a shared Redis so every instance sees the same
// entries and invalidations.
//
// Layout:
//
//	<prefix>:t:<key>          encoded snapshot, TTL = entry TTL
//	<prefix>:i:<identityID>   set of keys cached for that identity
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis returns a Redis-backed cache. prefix namespaces every key and
// defaults to "ic".
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "ic"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) entryKey(key string) string {
	return r.prefix + ":t:" + key
}

func (r *Redis) indexKey(identityID string) string {
	return r.prefix + ":i:" + identityID
}

// Get returns the snapshot stored under key or ErrMiss.
func (r *Redis) Get(ctx context.Context, key string) (*Snapshot, error) {
	data, err := r.client.Get(ctx, r.entryKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	snap, err := Decode(data)
	if err != nil {
		// Unreadable entries are dropped and reported as a miss.
		_ = r.client.Del(ctx, r.entryKey(key)).Err()
		return nil, ErrMiss
	}
	return snap, nil
}

// Put stores snap under key and records key in the identity index. The
// index TTL is pushed out to at least ttl so it never expires before the
// entries it points at.
func (r *Redis) Put(ctx context.Context, key string, snap *Snapshot, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := Encode(snap)
	if err != nil {
		return err
	}

	indexKey := r.indexKey(snap.IdentityID)
	indexTTL, err := r.client.TTL(ctx, indexKey).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.entryKey(key), data, ttl)
		pipe.SAdd(ctx, indexKey, key)
		if indexTTL < ttl {
			pipe.Expire(ctx, indexKey, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Invalidate drops the entry for key. Missing entries are not an error.
func (r *Redis) Invalidate(ctx context.Context, key string) error {
	entryKey := r.entryKey(key)

	data, err := r.client.Get(ctx, entryKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, entryKey)
		if snap, decErr := Decode(data); decErr == nil {
			pipe.SRem(ctx, r.indexKey(snap.IdentityID), key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// InvalidateIdentity drops every entry indexed for identityID.
//
// The index is read before the delete, so an entry written concurrently
// between the two steps survives until its TTL.
func (r *Redis) InvalidateIdentity(ctx context.Context, identityID string) error {
	indexKey := r.indexKey(identityID)

	keys, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	entryKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		entryKeys = append(entryKeys, r.entryKey(k))
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(entryKeys) > 0 {
			pipe.Del(ctx, entryKeys...)
		}
		pipe.Del(ctx, indexKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
