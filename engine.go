package goContacts

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/MrEthical07/goContacts/cache"
	"github.com/MrEthical07/goContacts/internal/audit"
	"github.com/MrEthical07/goContacts/internal/stores"
	"github.com/MrEthical07/goContacts/password"
	"github.com/MrEthical07/goContacts/token"
)

// Engine is the identity and session core. It is safe for concurrent use;
// per-identity atomicity is delegated to the CredentialStore.
type Engine struct {
	config   Config
	codec    *token.Codec
	hasher   *password.Argon2
	store    CredentialStore
	notifier Notifier
	avatars  AvatarStorage

	// cache is nil when Config.Cache.Backend is none; otherwise it never
	// returns errors.
	cache      cache.Cache
	limiter    Limiter
	revoked    stores.TokenSet
	usedResets stores.TokenSet

	audit   *audit.Dispatcher
	metrics *Metrics
	log     Logger
	now     func() time.Time

	defaultAvatar func(email string) string
	dummyHash     string
	closers       []func() error
}

// Close stops background goroutines and flushes the audit buffer.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	for _, c := range e.closers {
		_ = c()
	}
	e.audit.Close()
}

// AuditDropped reports audit events lost to a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return (*Metrics)(nil).Snapshot()
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

// HealthStatus is the result of Health. A failed cache only degrades the
// service.
type HealthStatus struct {
	Store error
	Cache error
}

func (h HealthStatus) OK() bool       { return h.Store == nil }
func (h HealthStatus) Degraded() bool { return h.Cache != nil }

// Health pings the credential store and the cache backend.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil {
		return HealthStatus{Store: ErrEngineNotReady}
	}
	var h HealthStatus
	if err := e.store.Ping(ctx); err != nil {
		h.Store = fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if e.cache != nil {
		h.Cache = e.cache.Ping(ctx)
	}
	return h
}

func (e *Engine) ready() error {
	if e == nil || e.codec == nil || e.store == nil {
		return ErrEngineNotReady
	}
	return nil
}

// storeErr passes through the store outcomes callers act on and folds
// everything else into ErrStoreUnavailable.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrDuplicateEmail),
		errors.Is(err, ErrDuplicateUsername):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
}

// NormalizeEmail lowercases and trims an address and checks that it is a
// bare addr-spec.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || len(email) > 180 {
		return "", fmt.Errorf("%w: email", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: email", ErrInvalidInput)
	}
	return email, nil
}

func normalizeUsername(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if len(name) < 3 || len(name) > 64 {
		return "", fmt.Errorf("%w: username must be 3..64 characters", ErrInvalidInput)
	}
	if strings.ContainsAny(name, " \t\r\n/") {
		return "", fmt.Errorf("%w: username contains whitespace or '/'", ErrInvalidInput)
	}
	return name, nil
}

func principalFromIdentity(id Identity) *Principal {
	return &Principal{
		IdentityID: id.ID,
		Email:      id.Email,
		Username:   id.Username,
		Role:       id.Role,
		Verified:   id.Verified,
		AvatarURL:  id.AvatarURL,
		CreatedAt:  id.CreatedAt,
	}
}

func principalFromSnapshot(s *cache.Snapshot) *Principal {
	return &Principal{
		IdentityID: s.IdentityID,
		Email:      s.Email,
		Username:   s.Username,
		Role:       Role(s.Role),
		Verified:   s.Verified,
		AvatarURL:  s.AvatarURL,
		CreatedAt:  time.Unix(0, s.CreatedAt).UTC(),
		TokenID:    s.TokenID,
		ExpiresAt:  time.Unix(0, s.ExpiresAt).UTC(),
		FromCache:  true,
	}
}

func (p *Principal) snapshot() *cache.Snapshot {
	return &cache.Snapshot{
		IdentityID: p.IdentityID,
		Email:      p.Email,
		Username:   p.Username,
		Role:       string(p.Role),
		Verified:   p.Verified,
		AvatarURL:  p.AvatarURL,
		CreatedAt:  p.CreatedAt.UnixNano(),
		TokenID:    p.TokenID,
		ExpiresAt:  p.ExpiresAt.UnixNano(),
	}
}

// cachePrincipal stores p under the token's key for at most the token's
// remaining lifetime.
func (e *Engine) cachePrincipal(ctx context.Context, bearer string, p *Principal) {
	if e.cache == nil {
		return
	}
	ttl := e.config.Cache.TTL
	if remaining := p.ExpiresAt.Sub(e.now()); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return
	}
	_ = e.cache.Put(ctx, cache.Key(bearer), p.snapshot(), ttl)
}

func (e *Engine) invalidateToken(ctx context.Context, bearer string) {
	if e.cache != nil {
		_ = e.cache.Invalidate(ctx, cache.Key(bearer))
	}
}

func (e *Engine) invalidateIdentity(ctx context.Context, identityID string) {
	if e.cache != nil {
		_ = e.cache.InvalidateIdentity(ctx, identityID)
	}
}

// allow consults the limiter. Backend failures let the call through unless
// RateLimit.FailClosed is set.
func (e *Engine) allow(ctx context.Context, key string) bool {
	if e.limiter == nil {
		return true
	}
	ok, err := e.limiter.Allow(ctx, key)
	if err != nil {
		e.metricInc(MetricLimiterError)
		e.log.Warn(ctx, "rate limiter unavailable", "key", key, "fail_closed", e.config.RateLimit.FailClosed, "error", err)
		return !e.config.RateLimit.FailClosed
	}
	return ok
}

// Allow exposes the Engine's limiter to transport middleware.
func (e *Engine) Allow(ctx context.Context, key string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}
	return e.allow(ctx, key), nil
}

// deliver issues a token of the given purpose and hands it to the notifier.
// It reports whether the notifier accepted it; failures are logged.
func (e *Engine) deliver(ctx context.Context, id Identity, purpose token.Purpose, ttl time.Duration) bool {
	tok, claims, err := e.codec.IssueWithClaims(id.ID, purpose, ttl, "")
	if err != nil {
		e.log.Error(ctx, "token issue failed", "purpose", purpose.String(), "identity_id", id.ID, "error", err)
		return false
	}
	err = e.notifier.Send(ctx, Notification{
		To:        id.Email,
		Username:  id.Username,
		Token:     tok,
		Purpose:   purpose,
		ExpiresAt: claims.ExpiresAt,
	})
	if err != nil {
		e.metricInc(MetricDeliveryFailure)
		e.log.Warn(ctx, "notification delivery failed",
			"purpose", purpose.String(),
			"identity_id", id.ID,
			"error", fmt.Errorf("%w: %w", ErrDeliveryFailed, err),
		)
		return false
	}
	return true
}

func clientKey(ctx context.Context, route string) string {
	ip := ClientIPFromContext(ctx)
	if ip == "" {
		ip = "unknown"
	}
	return ip + ":" + route
}
