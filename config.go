package goContacts

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goContacts/password"
	"github.com/MrEthical07/goContacts/token"
)

// Config is the complete Engine configuration. Start from DefaultConfig and
// override fields; Builder.Build validates the result.
type Config struct {
	Token     TokenConfig
	Password  PasswordConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Security  SecurityConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/* ==== TOKENS ==== */

// TokenConfig configures the signing key and the lifetime of each token purpose.
type TokenConfig struct {
	SigningMethod token.SigningMethod
	Secret        []byte
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string

	AccessTTL       time.Duration
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

/* ==== PASSWORDS ==== */

// PasswordConfig holds argon2id cost parameters and the length policy.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
	MaxLength   int
	// UpgradeOnLogin re-hashes bcrypt or weaker argon2 hashes after a
	// successful login.
	UpgradeOnLogin bool
}

/* ==== IDENTITY CACHE ==== */

// CacheBackend selects the identity cache implementation.
type CacheBackend string

const (
	CacheMemory CacheBackend = "memory"
	CacheRedis  CacheBackend = "redis"
	CacheNone   CacheBackend = "none"
)

// CacheConfig configures the identity cache. Entries never outlive the
// access token they were resolved from, whatever TTL says.
type CacheConfig struct {
	Backend       CacheBackend
	TTL           time.Duration
	SweepInterval time.Duration
	RedisPrefix   string
}

/* ==== RATE LIMITING ==== */

// LimiterBackend selects the rate limiter implementation.
type LimiterBackend string

const (
	LimiterMemory LimiterBackend = "memory"
	LimiterRedis  LimiterBackend = "redis"
)

// RateLimitConfig configures the fixed-window limiter in front of Login.
type RateLimitConfig struct {
	Enabled bool
	Backend LimiterBackend
	Window  time.Duration
	Max     int
	// FailClosed rejects requests when the limiter backend errors. The
	// default lets them through and logs.
	FailClosed bool
}

/* ==== SECURITY ==== */

// SecurityConfig holds opt-in hardening beyond the base token model.
type SecurityConfig struct {
	// RevokeOnLogout records the jti of logged-out and refreshed access
	// tokens until they expire, and Authorize rejects them. Off by default:
	// without it a decoded token stays valid until expiry.
	RevokeOnLogout bool
	// SingleUseResetTokens rejects a reset token the second time it is used.
	SingleUseResetTokens bool
	RedisPrefix          string
}

/* ==== AUDIT ==== */

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/* ==== METRICS ==== */

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the production baseline: one hour access tokens,
// seven day verification links, fifteen minute reset links, a five minute
// identity cache and ten login attempts per minute per client.
func DefaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		Token: TokenConfig{
			SigningMethod:   token.MethodHS256,
			Issuer:          "contacts",
			AccessTTL:       time.Hour,
			VerificationTTL: 7 * 24 * time.Hour,
			ResetTTL:        15 * time.Minute,
		},
		Password: PasswordConfig{
			Memory:         pw.Memory,
			Time:           pw.Time,
			Parallelism:    pw.Parallelism,
			SaltLength:     pw.SaltLength,
			KeyLength:      pw.KeyLength,
			MinLength:      pw.MinLength,
			MaxLength:      pw.MaxLength,
			UpgradeOnLogin: true,
		},
		Cache: CacheConfig{
			Backend:       CacheMemory,
			TTL:           5 * time.Minute,
			SweepInterval: time.Minute,
			RedisPrefix:   "ic",
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Backend: LimiterMemory,
			Window:  time.Minute,
			Max:     10,
		},
		Security: SecurityConfig{
			SingleUseResetTokens: true,
			RedisPrefix:          "tk",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Token.SigningMethod {
	case token.MethodHS256, "":
		if len(c.Token.Secret) < 16 {
			return errors.New("Token Secret must be at least 16 bytes")
		}
	case token.MethodEd25519:
		if len(c.Token.PublicKey) == 0 {
			return errors.New("Token PublicKey required for ed25519")
		}
		if len(c.Token.PrivateKey) == 0 {
			return errors.New("Token PrivateKey required for ed25519")
		}
	default:
		return errors.New("Token SigningMethod must be hs256 or ed25519")
	}
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be > 0")
	}
	if c.Token.VerificationTTL <= 0 {
		return errors.New("Token VerificationTTL must be > 0")
	}
	if c.Token.ResetTTL <= 0 {
		return errors.New("Token ResetTTL must be > 0")
	}

	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MaxLength != 0 && c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password MaxLength must be >= MinLength")
	}

	switch c.Cache.Backend {
	case CacheMemory:
		if c.Cache.SweepInterval <= 0 {
			return errors.New("Cache SweepInterval must be > 0 for memory backend")
		}
	case CacheRedis:
		if strings.TrimSpace(c.Cache.RedisPrefix) == "" {
			return errors.New("Cache RedisPrefix must not be empty")
		}
	case CacheNone:
	default:
		return errors.New("Cache Backend must be memory, redis or none")
	}
	if c.Cache.Backend != CacheNone && c.Cache.TTL <= 0 {
		return errors.New("Cache TTL must be > 0")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Backend != LimiterMemory && c.RateLimit.Backend != LimiterRedis {
			return errors.New("RateLimit Backend must be memory or redis")
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("RateLimit Window must be > 0")
		}
		if c.RateLimit.Max <= 0 {
			return errors.New("RateLimit Max must be > 0")
		}
	}

	if (c.Security.RevokeOnLogout || c.Security.SingleUseResetTokens) &&
		strings.TrimSpace(c.Security.RedisPrefix) == "" {
		return errors.New("Security RedisPrefix must not be empty")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}
	return nil
}

func (c Config) passwordConfig() password.Config {
	return password.Config{
		Memory:      c.Password.Memory,
		Time:        c.Password.Time,
		Parallelism: c.Password.Parallelism,
		SaltLength:  c.Password.SaltLength,
		KeyLength:   c.Password.KeyLength,
		MinLength:   c.Password.MinLength,
		MaxLength:   c.Password.MaxLength,
	}
}

func (c Config) tokenConfig() token.Config {
	return token.Config{
		SigningMethod: c.Token.SigningMethod,
		Secret:        c.Token.Secret,
		PrivateKey:    c.Token.PrivateKey,
		PublicKey:     c.Token.PublicKey,
		Issuer:        c.Token.Issuer,
		Audience:      c.Token.Audience,
	}
}

func cloneConfig(c Config) Config {
	out := c
	out.Token.Secret = cloneBytes(c.Token.Secret)
	out.Token.PrivateKey = cloneBytes(c.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(c.Token.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
