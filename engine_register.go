package goContacts

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goContacts/password"
	"github.com/MrEthical07/goContacts/token"
	"github.com/google/uuid"
)

// Register creates an unverified identity with the standard role and
// sends it a verification token. A failed send is reported through
// RegisterResult.Delivered and never undoes the registration.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	username, err := normalizeUsername(in.Username)
	if err != nil {
		return nil, err
	}
	hash, err := e.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	identity := Identity{
		ID:                uuid.NewString(),
		Email:             email,
		Username:          username,
		PasswordHash:      hash,
		Role:              RoleUser,
		CreatedAt:         now,
		PasswordChangedAt: now,
	}
	if e.defaultAvatar != nil {
		identity.AvatarURL = e.defaultAvatar(email)
	}

	created, err := e.store.Create(ctx, identity)
	if err != nil {
		err = storeErr(err)
		if errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrDuplicateUsername) {
			e.metricInc(MetricRegisterDuplicate)
		}
		e.emitAudit(ctx, auditEventRegister, false, "", err, nil)
		return nil, err
	}

	delivered := e.deliver(ctx, created, token.PurposeVerification, e.config.Token.VerificationTTL)

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegister, true, created.ID, nil, func() map[string]string {
		return map[string]string{"delivered": fmt.Sprint(delivered)}
	})
	e.log.Info(ctx, "identity registered", "identity_id", created.ID, "delivered", delivered)

	created.PasswordHash = ""
	return &RegisterResult{Identity: created, Delivered: delivered}, nil
}

// Confirm marks the token's identity as verified. Confirming an already
// verified identity succeeds and changes nothing.
func (e *Engine) Confirm(ctx context.Context, verificationToken string) (*ConfirmResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	claims, err := e.codec.Decode(verificationToken, token.PurposeVerification)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidToken, err)
		e.metricInc(MetricConfirmFailure)
		e.emitAudit(ctx, auditEventConfirm, false, "", err, nil)
		return nil, err
	}

	identity, err := e.store.FindByID(ctx, claims.Subject)
	if err != nil {
		err = storeErr(err)
		if errors.Is(err, ErrNotFound) {
			err = fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
		e.metricInc(MetricConfirmFailure)
		e.emitAudit(ctx, auditEventConfirm, false, claims.Subject, err, nil)
		return nil, err
	}
	identity.PasswordHash = ""

	if identity.Verified {
		e.metricInc(MetricConfirmAlreadyVerified)
		return &ConfirmResult{Identity: identity, AlreadyVerified: true}, nil
	}

	now := e.now().UTC()
	if err := e.store.SetVerified(ctx, identity.ID, now); err != nil {
		err = storeErr(err)
		e.metricInc(MetricConfirmFailure)
		e.emitAudit(ctx, auditEventConfirm, false, identity.ID, err, nil)
		return nil, err
	}
	identity.Verified = true
	identity.VerifiedAt = now
	e.invalidateIdentity(ctx, identity.ID)

	e.metricInc(MetricConfirmSuccess)
	e.emitAudit(ctx, auditEventConfirm, true, identity.ID, nil, nil)
	return &ConfirmResult{Identity: identity}, nil
}

// RequestVerification re-sends a verification token to an unverified
// identity. Unknown and already verified emails get the same nil result.
func (e *Engine) RequestVerification(ctx context.Context, email string) error {
	if err := e.ready(); err != nil {
		return err
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	identity, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		err = storeErr(err)
		if errors.Is(err, ErrNotFound) {
			e.emitAudit(ctx, auditEventVerificationRequest, true, "", nil, nil)
			return nil
		}
		return err
	}
	if identity.Verified {
		e.emitAudit(ctx, auditEventVerificationRequest, true, identity.ID, nil, nil)
		return nil
	}

	delivered := e.deliver(ctx, identity, token.PurposeVerification, e.config.Token.VerificationTTL)
	e.metricInc(MetricVerificationResend)
	e.emitAudit(ctx, auditEventVerificationRequest, true, identity.ID, nil, func() map[string]string {
		return map[string]string{"delivered": fmt.Sprint(delivered)}
	})
	return nil
}

func (e *Engine) hashPassword(plain string) (string, error) {
	hash, err := e.hasher.Hash(plain)
	if err != nil {
		if errors.Is(err, password.ErrTooShort) || errors.Is(err, password.ErrTooLong) {
			return "", fmt.Errorf("%w: %w", ErrPasswordPolicy, err)
		}
		return "", err
	}
	return hash, nil
}
