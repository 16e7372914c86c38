package goContacts

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goContacts/cache"
	"github.com/MrEthical07/goContacts/internal/audit"
	"github.com/MrEthical07/goContacts/internal/logging"
	"github.com/MrEthical07/goContacts/internal/rate"
	"github.com/MrEthical07/goContacts/internal/stores"
	"github.com/MrEthical07/goContacts/password"
	"github.com/MrEthical07/goContacts/token"
	"github.com/redis/go-redis/v9"
)

// dummyPassword is hashed once at build time so Login spends the same work
// on unknown emails as on known ones.
const dummyPassword = "contacts-timing-equalizer"

// Builder assembles an Engine. A Builder is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store    CredentialStore
	notifier Notifier
	avatars  AvatarStorage
	cache    cache.Cache
	limiter  Limiter
	log      Logger
	sink     AuditSink
	now      func() time.Time

	defaultAvatar func(email string) string

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the client used by every redis backend selected in
// Config (cache, rate limiter, token sets).
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.store = store
	return b
}

func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

func (b *Builder) WithAvatarStorage(s AvatarStorage) *Builder {
	b.avatars = s
	return b
}

// WithCache replaces the cache backend chosen by Config.Cache.Backend. The
// Engine still wraps it to fail open.
func (b *Builder) WithCache(c cache.Cache) *Builder {
	b.cache = c
	return b
}

// WithLimiter replaces the limiter chosen by Config.RateLimit.Backend.
func (b *Builder) WithLimiter(l Limiter) *Builder {
	b.limiter = l
	return b
}

func (b *Builder) WithLogger(log Logger) *Builder {
	b.log = log
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithClock overrides the wall clock for tokens, caches and limiters.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithDefaultAvatar sets the avatar URL assigned at registration.
func (b *Builder) WithDefaultAvatar(fn func(email string) string) *Builder {
	b.defaultAvatar = fn
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("credential store required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}
	if b.redis == nil && b.cache == nil && cfg.Cache.Backend == CacheRedis {
		return nil, errors.New("redis cache backend requires redis client")
	}
	if b.redis == nil && b.limiter == nil && cfg.RateLimit.Enabled && cfg.RateLimit.Backend == LimiterRedis {
		return nil, errors.New("redis rate limit backend requires redis client")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	log := b.log
	if log == nil {
		log = logging.Nop()
	}

	e := &Engine{
		config:        cfg,
		store:         b.store,
		notifier:      b.notifier,
		avatars:       b.avatars,
		log:           log.With("component", "engine"),
		now:           now,
		defaultAvatar: b.defaultAvatar,
		metrics:       NewMetrics(cfg.Metrics),
	}

	// -------- TOKENS --------
	codec, err := token.New(cfg.tokenConfig(), token.WithClock(now))
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}
	e.codec = codec

	// -------- PASSWORDS --------
	hasher, err := password.NewArgon2(cfg.passwordConfig())
	if err != nil {
		return nil, err
	}
	e.hasher = hasher
	if e.dummyHash, err = hasher.Hash(dummyPassword); err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}

	// -------- IDENTITY CACHE --------
	backend := b.cache
	if backend == nil {
		switch cfg.Cache.Backend {
		case CacheMemory:
			mem := cache.NewMemory(cfg.Cache.SweepInterval, cache.WithMemoryClock(now))
			e.closers = append(e.closers, mem.Close)
			backend = mem
		case CacheRedis:
			backend = cache.NewRedis(b.redis, cfg.Cache.RedisPrefix)
		}
	}
	if backend != nil {
		fo := cache.NewFailOpen(backend, log)
		fo.OnError = func(string, error) { e.metrics.Inc(MetricCacheError) }
		e.cache = fo
	}

	// -------- RATE LIMITER --------
	if cfg.RateLimit.Enabled {
		e.limiter = b.limiter
		if e.limiter == nil {
			rl := rate.Config{Window: cfg.RateLimit.Window, Max: cfg.RateLimit.Max}
			switch cfg.RateLimit.Backend {
			case LimiterRedis:
				e.limiter, err = rate.NewRedis(b.redis, rl)
			default:
				e.limiter, err = rate.NewMemory(rl, rate.WithClock(now))
			}
			if err != nil {
				return nil, err
			}
		}
	}

	// -------- TOKEN SETS --------
	newSet := func(name string) stores.TokenSet {
		if b.redis != nil {
			return stores.NewRedisTokenSet(b.redis, cfg.Security.RedisPrefix+":"+name+":")
		}
		return stores.NewMemoryTokenSet(now)
	}
	if cfg.Security.RevokeOnLogout {
		e.revoked = newSet("revoked")
	}
	if cfg.Security.SingleUseResetTokens {
		e.usedResets = newSet("reset")
	}

	// -------- AUDIT --------
	e.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.sink)

	b.built = true
	return e, nil
}
