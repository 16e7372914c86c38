package goContacts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goContacts/cache"
	"github.com/MrEthical07/goContacts/token"
)

// Authorize resolves the identity behind an access token and checks that
// its role is at least min.
//
// The identity cache is consulted first. On a miss the token is decoded,
// the identity is loaded from the store and the result is cached for at
// most the token's remaining lifetime. The role checked is the stored one,
// not the claim embedded in the token.
//
// Token and identity failures satisfy errors.Is(err, ErrUnauthenticated);
// an insufficient role is ErrForbidden; store outages are
// ErrStoreUnavailable.
func (e *Engine) Authorize(ctx context.Context, bearer string, min Role) (*Principal, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	start := e.now()
	defer func() { e.metrics.Observe(MetricAuthorizeLatency, e.now().Sub(start)) }()

	p, err := e.resolve(ctx, bearer)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			e.metricInc(MetricAuthorizeUnauthenticated)
		}
		return nil, err
	}
	if !p.Role.AtLeast(min) {
		e.metricInc(MetricAuthorizeForbidden)
		return nil, fmt.Errorf("%w: role %s below %s", ErrForbidden, p.Role, min)
	}
	e.metricInc(MetricAuthorizeSuccess)
	return p, nil
}

// Me returns the caller's identity for any authenticated role.
func (e *Engine) Me(ctx context.Context, bearer string) (*Principal, error) {
	return e.Authorize(ctx, bearer, RoleUser)
}

func (e *Engine) resolve(ctx context.Context, bearer string) (*Principal, error) {
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return nil, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}

	if e.cache != nil {
		snap, err := e.cache.Get(ctx, cache.Key(bearer))
		if err == nil {
			p := principalFromSnapshot(snap)
			if !e.now().Before(p.ExpiresAt) {
				e.invalidateToken(ctx, bearer)
				return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrExpired)
			}
			if err := e.checkRevoked(ctx, p.TokenID); err != nil {
				return nil, err
			}
			e.metricInc(MetricCacheHit)
			return p, nil
		}
		e.metricInc(MetricCacheMiss)
	}

	claims, err := e.codec.Decode(bearer, token.PurposeAccess)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if err := e.checkRevoked(ctx, claims.ID); err != nil {
		return nil, err
	}

	identity, err := e.store.FindByID(ctx, claims.Subject)
	if err != nil {
		err = storeErr(err)
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
		}
		e.log.Error(ctx, "identity lookup failed", "error", err)
		return nil, err
	}

	p := principalFromIdentity(identity)
	p.TokenID = claims.ID
	p.ExpiresAt = claims.ExpiresAt
	e.cachePrincipal(ctx, bearer, p)
	return p, nil
}

func (e *Engine) checkRevoked(ctx context.Context, tokenID string) error {
	if e.revoked == nil || tokenID == "" {
		return nil
	}
	revoked, err := e.revoked.Contains(ctx, tokenID)
	if err != nil {
		e.log.Error(ctx, "revocation lookup failed", "error", err)
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if revoked {
		return fmt.Errorf("%w: token revoked", ErrUnauthenticated)
	}
	return nil
}
