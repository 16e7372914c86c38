package goContacts

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goContacts/token"
)

// Login exchanges an email and password for an access token.
//
// The rate limiter runs first, keyed by the client address from
// WithClientIP. An unknown email and a wrong password both return
// ErrInvalidCredentials after the same hashing work. ErrNotVerified is only
// returned once the password has matched.
func (e *Engine) Login(ctx context.Context, email, plain string) (*AccessToken, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	if !e.allow(ctx, clientKey(ctx, "login")) {
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, "", ErrRateLimited, nil)
		return nil, ErrRateLimited
	}

	identity, err := e.checkCredentials(ctx, email, plain)
	if err != nil {
		if errors.Is(err, ErrNotVerified) {
			e.metricInc(MetricLoginNotVerified)
		} else {
			e.metricInc(MetricLoginFailure)
		}
		e.emitAudit(ctx, auditEventLogin, false, identity.ID, err, nil)
		return nil, err
	}

	e.upgradeHash(ctx, identity, plain)

	tok, claims, err := e.codec.IssueWithClaims(identity.ID, token.PurposeAccess, e.config.Token.AccessTTL, string(identity.Role))
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	p := principalFromIdentity(identity)
	p.TokenID = claims.ID
	p.ExpiresAt = claims.ExpiresAt
	e.cachePrincipal(ctx, tok, p)

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLogin, true, identity.ID, nil, nil)
	return &AccessToken{Token: tok, TokenType: "bearer", ExpiresAt: claims.ExpiresAt}, nil
}

// checkCredentials returns the identity when the password matches. On
// failure the returned identity carries at most the ID, for auditing.
func (e *Engine) checkCredentials(ctx context.Context, email, plain string) (Identity, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		_, _ = e.hasher.Verify(plain, e.dummyHash)
		return Identity{}, ErrInvalidCredentials
	}

	identity, err := e.store.FindByEmail(ctx, normalized)
	if err != nil {
		err = storeErr(err)
		if errors.Is(err, ErrNotFound) {
			_, _ = e.hasher.Verify(plain, e.dummyHash)
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, err
	}

	ok, err := e.hasher.Verify(plain, identity.PasswordHash)
	if err != nil {
		e.log.Error(ctx, "password verify failed", "identity_id", identity.ID, "error", err)
		return Identity{ID: identity.ID}, ErrInvalidCredentials
	}
	if !ok {
		return Identity{ID: identity.ID}, ErrInvalidCredentials
	}
	if !identity.Verified {
		return Identity{ID: identity.ID}, ErrNotVerified
	}
	return identity, nil
}

// upgradeHash re-hashes with the current parameters after a successful
// login. Failures are logged; the old hash keeps working.
func (e *Engine) upgradeHash(ctx context.Context, identity Identity, plain string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	upgrade, err := e.hasher.NeedsUpgrade(identity.PasswordHash)
	if err != nil || !upgrade {
		return
	}
	hash, err := e.hasher.Hash(plain)
	if err != nil {
		return
	}
	at := identity.PasswordChangedAt
	if at.IsZero() {
		at = identity.CreatedAt
	}
	if err := e.store.UpdatePassword(ctx, identity.ID, hash, at); err != nil {
		e.log.Warn(ctx, "password rehash not persisted", "identity_id", identity.ID, "error", err)
		return
	}
	e.metricInc(MetricPasswordRehash)
}

// Logout drops the cache entry for the token. When Security.RevokeOnLogout
// is off the token itself stays valid until it expires.
func (e *Engine) Logout(ctx context.Context, bearer string) error {
	if err := e.ready(); err != nil {
		return err
	}

	claims, err := e.codec.Decode(bearer, token.PurposeAccess)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrUnauthenticated, err)
		e.emitAudit(ctx, auditEventLogout, false, "", err, nil)
		return err
	}

	e.invalidateToken(ctx, bearer)
	if err := e.revoke(ctx, claims); err != nil {
		e.emitAudit(ctx, auditEventLogout, false, claims.Subject, err, nil)
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, claims.Subject, nil, nil)
	return nil
}

// Refresh trades a valid access token for a new one with a fresh lifetime
// and the identity's current role. The old token leaves the cache and, with
// Security.RevokeOnLogout, is revoked.
func (e *Engine) Refresh(ctx context.Context, bearer string) (*AccessToken, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	p, err := e.Authorize(ctx, bearer, RoleUser)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefresh, false, "", err, nil)
		return nil, err
	}

	tok, claims, err := e.codec.IssueWithClaims(p.IdentityID, token.PurposeAccess, e.config.Token.AccessTTL, string(p.Role))
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	e.invalidateToken(ctx, bearer)
	if err := e.revoke(ctx, token.Decoded{ID: p.TokenID, ExpiresAt: p.ExpiresAt}); err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}

	next := *p
	next.TokenID = claims.ID
	next.ExpiresAt = claims.ExpiresAt
	next.FromCache = false
	e.cachePrincipal(ctx, tok, &next)

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefresh, true, p.IdentityID, nil, nil)
	return &AccessToken{Token: tok, TokenType: "bearer", ExpiresAt: claims.ExpiresAt}, nil
}

func (e *Engine) revoke(ctx context.Context, claims token.Decoded) error {
	if e.revoked == nil || claims.ID == "" {
		return nil
	}
	if _, err := e.revoked.Mark(ctx, claims.ID, claims.ExpiresAt.Sub(e.now())); err != nil {
		e.log.Error(ctx, "token revocation failed", "error", err)
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}
