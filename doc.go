// Package goContacts is the identity and session core of the contacts
// service: registration with email verification, login with purpose-tagged
// access tokens, password reset, and request authorization backed by a
// read-through identity cache.
//
// An [Engine] is assembled with [Builder]. It consumes a [CredentialStore],
// a [Notifier] and optionally an [AvatarStorage]; the cache, the rate
// limiter and the token sets are chosen by [Config] and may live in memory
// or in Redis. Engine methods are safe for concurrent use.
//
// # Failure model
//
// Cache backend failures never reach the caller: a failed lookup is a miss.
// Rate limiter failures let requests through unless configured otherwise.
// Notification failures are logged and reported, never rolled back.
// Credential store failures surface as [ErrStoreUnavailable].
//
// # Token lifetime
//
// Logout and password reset drop cached identities but do not revoke the
// access tokens themselves: a token that still decodes stays valid until
// it expires. [SecurityConfig.RevokeOnLogout] adds a revocation set that
// Authorize consults.
package goContacts
