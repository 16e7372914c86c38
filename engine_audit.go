package goContacts

import (
	"context"
	"errors"
)

const (
	auditEventRegister            = "register"
	auditEventConfirm             = "email_confirm"
	auditEventVerificationRequest = "email_verification_request"
	auditEventLogin               = "login"
	auditEventLoginRateLimited    = "login_rate_limited"
	auditEventLogout              = "logout"
	auditEventRefresh             = "refresh"
	auditEventResetRequest        = "password_reset_request"
	auditEventResetConfirm        = "password_reset_confirm"
	auditEventAvatarUpdate        = "avatar_update"
	auditEventRoleChange          = "role_change"
)

// AuditErrorCode is the stable failure label written to audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrNotVerified        AuditErrorCode = "not_verified"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrTokenUsed          AuditErrorCode = "token_used"
	auditErrUnauthenticated    AuditErrorCode = "unauthenticated"
	auditErrForbidden          AuditErrorCode = "forbidden"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrInvalidInput       AuditErrorCode = "invalid_input"
	auditErrNotFound           AuditErrorCode = "not_found"
	auditErrUploadFailed       AuditErrorCode = "upload_failed"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identityID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:  e.now().UTC(),
		Type:       eventType,
		IdentityID: identityID,
		IP:         ClientIPFromContext(ctx),
		Success:    success,
		Metadata:   metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Code = string(code)
	}
	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrNotVerified):
		return auditErrNotVerified
	case errors.Is(err, ErrDuplicateEmail), errors.Is(err, ErrDuplicateUsername):
		return auditErrDuplicate
	case errors.Is(err, ErrTokenUsed):
		return auditErrTokenUsed
	case errors.Is(err, ErrInvalidToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrUnauthenticated):
		return auditErrUnauthenticated
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrInvalidInput):
		return auditErrInvalidInput
	case errors.Is(err, ErrNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrUploadFailed):
		return auditErrUploadFailed
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
