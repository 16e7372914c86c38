package goContacts

import (
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goContacts/token"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef")
	return cfg
}

func TestDefaultConfigNeedsOnlySecret(t *testing.T) {
	if err := DefaultConfig().Validate(); err == nil {
		t.Fatal("default config without secret must fail")
	}
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestDefaultTokenLifetimes(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Token.AccessTTL != time.Hour ||
		cfg.Token.VerificationTTL != 7*24*time.Hour ||
		cfg.Token.ResetTTL != 15*time.Minute {
		t.Fatalf("unexpected defaults: %+v", cfg.Token)
	}
	if cfg.Security.RevokeOnLogout {
		t.Fatal("revocation must be opt-in")
	}
}

func TestConfigValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"AccessTTL":       func(c *Config) { c.Token.AccessTTL = 0 },
		"VerificationTTL": func(c *Config) { c.Token.VerificationTTL = -time.Second },
		"ResetTTL":        func(c *Config) { c.Token.ResetTTL = 0 },
		"SigningMethod":   func(c *Config) { c.Token.SigningMethod = token.SigningMethod("rs256") },
		"PublicKey":       func(c *Config) { c.Token.SigningMethod = token.MethodEd25519 },
		"MaxLength":       func(c *Config) { c.Password.MaxLength = 4 },
		"Cache Backend":   func(c *Config) { c.Cache.Backend = "memcached" },
		"Cache TTL":       func(c *Config) { c.Cache.TTL = 0 },
		"SweepInterval":   func(c *Config) { c.Cache.SweepInterval = 0 },
		"RateLimit Max":   func(c *Config) { c.RateLimit.Max = 0 },
		"RateLimit Window": func(c *Config) {
			c.RateLimit.Window = 0
		},
		"RedisPrefix": func(c *Config) { c.Security.RedisPrefix = " " },
		"BufferSize": func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		},
	}
	for want, mutate := range cases {
		cfg := validConfig()
		mutate(&cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("%s: expected matching error, got %v", want, err)
		}
	}
}

func TestConfigRateLimitIgnoredWhenDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.Enabled = false
	cfg.RateLimit.Max = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled limiter settings must not be validated: %v", err)
	}
}

func TestCloneConfigCopiesKeys(t *testing.T) {
	cfg := validConfig()
	clone := cloneConfig(cfg)
	clone.Token.Secret[0] = 'X'
	if cfg.Token.Secret[0] == 'X' {
		t.Fatal("clone must not share key bytes")
	}
}

func TestRoleOrdering(t *testing.T) {
	if !RoleAdmin.AtLeast(RoleUser) || RoleUser.AtLeast(RoleAdmin) {
		t.Fatal("admin must outrank user")
	}
	if Role("ghost").AtLeast(RoleUser) || Role("").Valid() {
		t.Fatal("unknown roles grant nothing")
	}
	if r, ok := ParseRole(" Admin "); !ok || r != RoleAdmin {
		t.Fatalf("ParseRole failed: %v %v", r, ok)
	}
}
