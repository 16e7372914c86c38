package goContacts

import (
	"context"
	"errors"
	"fmt"
)

// UpdateAvatar uploads an image for the identity and stores its URL. The
// stored identity is untouched when the upload fails.
func (e *Engine) UpdateAvatar(ctx context.Context, identityID string, data []byte, contentType string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	if e.avatars == nil {
		return "", fmt.Errorf("%w: no avatar storage configured", ErrUploadFailed)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty image", ErrInvalidInput)
	}

	identity, err := e.store.FindByID(ctx, identityID)
	if err != nil {
		return "", storeErr(err)
	}

	url, err := e.avatars.Upload(ctx, identity.Username, data, contentType)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrUploadFailed, err)
		e.emitAudit(ctx, auditEventAvatarUpdate, false, identity.ID, err, nil)
		e.log.Error(ctx, "avatar upload failed", "identity_id", identity.ID, "error", err)
		return "", err
	}

	if err := e.store.UpdateAvatar(ctx, identity.ID, url); err != nil {
		err = storeErr(err)
		e.emitAudit(ctx, auditEventAvatarUpdate, false, identity.ID, err, nil)
		return "", err
	}
	e.invalidateIdentity(ctx, identity.ID)

	e.metricInc(MetricAvatarUpdated)
	e.emitAudit(ctx, auditEventAvatarUpdate, true, identity.ID, nil, nil)
	return url, nil
}

// SetRole changes an identity's role. Cached entries are dropped so the
// next Authorize sees the new role. If the cache backend is down the drop
// is skipped and the old role stays cached until the cache TTL.
func (e *Engine) SetRole(ctx context.Context, identityID string, role Role) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	if err := e.store.UpdateRole(ctx, identityID, role); err != nil {
		err = storeErr(err)
		e.emitAudit(ctx, auditEventRoleChange, false, identityID, err, nil)
		return err
	}
	e.invalidateIdentity(ctx, identityID)

	e.metricInc(MetricRoleChanged)
	e.emitAudit(ctx, auditEventRoleChange, true, identityID, nil, func() map[string]string {
		return map[string]string{"role": string(role)}
	})
	return nil
}

// Identity loads an identity by ID without its password hash.
func (e *Engine) Identity(ctx context.Context, identityID string) (Identity, error) {
	if err := e.ready(); err != nil {
		return Identity{}, err
	}
	identity, err := e.store.FindByID(ctx, identityID)
	if err != nil {
		err = storeErr(err)
		if !errors.Is(err, ErrNotFound) {
			e.log.Error(ctx, "identity lookup failed", "identity_id", identityID, "error", err)
		}
		return Identity{}, err
	}
	identity.PasswordHash = ""
	return identity, nil
}
