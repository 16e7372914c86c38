package goContacts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goContacts/token"
)

// RequestPasswordReset sends a reset token when the email belongs to an
// identity. The result is the same whether or not it does.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if err := e.ready(); err != nil {
		return err
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	e.metricInc(MetricPasswordResetRequest)

	identity, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		err = storeErr(err)
		if errors.Is(err, ErrNotFound) {
			e.emitAudit(ctx, auditEventResetRequest, true, "", nil, nil)
			return nil
		}
		return err
	}

	delivered := e.deliver(ctx, identity, token.PurposeReset, e.config.Token.ResetTTL)
	e.emitAudit(ctx, auditEventResetRequest, true, identity.ID, nil, func() map[string]string {
		return map[string]string{"delivered": fmt.Sprint(delivered)}
	})
	return nil
}

// ResetPassword sets a new password using a reset token and drops every
// cached entry for the identity.
//
// A token issued before the identity's last password change is rejected
// with ErrTokenUsed, and so is a second use when Security.SingleUseResetTokens
// is on. Token issue times carry whole seconds, so with single use off a
// token can still be replayed within the second of the reset it performed.
// Access tokens issued before the reset are not revoked. Cache invalidation
// fails open: when the cache backend is down the error is logged and stale
// entries stay readable until the cache TTL.
func (e *Engine) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if err := e.ready(); err != nil {
		return err
	}

	claims, err := e.codec.Decode(resetToken, token.PurposeReset)
	if err != nil {
		return e.resetFailed(ctx, "", fmt.Errorf("%w: %w", ErrInvalidToken, err))
	}

	hash, err := e.hashPassword(newPassword)
	if err != nil {
		return e.resetFailed(ctx, claims.Subject, err)
	}

	identity, err := e.store.FindByID(ctx, claims.Subject)
	if err != nil {
		err = storeErr(err)
		if errors.Is(err, ErrNotFound) {
			err = fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
		return e.resetFailed(ctx, claims.Subject, err)
	}

	// NumericDate claims carry whole seconds.
	if changed := identity.PasswordChangedAt.Truncate(time.Second); !changed.IsZero() && claims.IssuedAt.Before(changed) {
		return e.resetFailed(ctx, identity.ID, fmt.Errorf("%w: %w", ErrInvalidToken, ErrTokenUsed))
	}

	if e.usedResets != nil {
		fresh, err := e.usedResets.Mark(ctx, claims.ID, claims.ExpiresAt.Sub(e.now()))
		if err != nil {
			return e.resetFailed(ctx, identity.ID, fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
		}
		if !fresh {
			return e.resetFailed(ctx, identity.ID, fmt.Errorf("%w: %w", ErrInvalidToken, ErrTokenUsed))
		}
	}

	if err := e.store.UpdatePassword(ctx, identity.ID, hash, e.now().UTC()); err != nil {
		if e.usedResets != nil {
			_ = e.usedResets.Unmark(ctx, claims.ID)
		}
		return e.resetFailed(ctx, identity.ID, storeErr(err))
	}
	e.invalidateIdentity(ctx, identity.ID)

	e.metricInc(MetricPasswordResetConfirmSuccess)
	e.emitAudit(ctx, auditEventResetConfirm, true, identity.ID, nil, nil)
	e.log.Info(ctx, "password reset", "identity_id", identity.ID)
	return nil
}

func (e *Engine) resetFailed(ctx context.Context, identityID string, err error) error {
	e.metricInc(MetricPasswordResetConfirmFailure)
	e.emitAudit(ctx, auditEventResetConfirm, false, identityID, err, nil)
	return err
}
