package goContacts

import (
	"errors"

	"github.com/MrEthical07/goContacts/token"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown email and for
	// a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotVerified is returned by Login when the password matches but the
	// email address has not been confirmed.
	ErrNotVerified = errors.New("email not verified")
	// ErrDuplicateEmail is returned by Register and stores when the email is taken.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateUsername is returned by Register and stores when the username is taken.
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrInvalidToken is the caller-facing kind for verification and reset
	// token failures. The codec error is wrapped alongside it.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrTokenUsed is returned when a single-use reset token is presented again.
	ErrTokenUsed = errors.New("token already used")
	// ErrUnauthenticated is returned by Authorize for a missing, invalid,
	// expired or revoked access token, or an identity that no longer exists.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned by Authorize when the identity's role is below
	// the required one.
	ErrForbidden = errors.New("forbidden")
	// ErrRateLimited is returned when the request limiter refuses a call.
	ErrRateLimited = errors.New("rate limited")
	// ErrDeliveryFailed marks a notification that could not be sent. It is
	// logged and never rolls back the operation that triggered it.
	ErrDeliveryFailed = errors.New("notification delivery failed")
	// ErrStoreUnavailable wraps credential store failures other than
	// not-found and duplicates.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrNotFound is returned by stores when no record matches.
	ErrNotFound = errors.New("not found")
	// ErrPasswordPolicy is returned when a new password is too short or too long.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrInvalidInput is returned for malformed email, username or role values.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUploadFailed is returned by UpdateAvatar when the storage upload fails.
	ErrUploadFailed = errors.New("avatar upload failed")
	// ErrEngineNotReady is returned by operations on a nil or half-built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Codec diagnostic kinds. Callers should test for ErrUnauthenticated or
// ErrInvalidToken; these exist for logs and tests.
var (
	ErrInvalidSignature = token.ErrInvalidSignature
	ErrExpired          = token.ErrExpired
	ErrPurposeMismatch  = token.ErrPurposeMismatch
)
