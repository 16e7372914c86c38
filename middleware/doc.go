// Package middleware adapts Engine authorization and rate limiting to HTTP.
//
// # Guards
//
//   - [Guard]: requires a bearer access token whose identity holds at least
//     the given role.
//   - [RequireUser], [RequireAdmin]: Guard for the two roles.
//   - [RateLimit]: refuses requests once the caller's address exceeds the
//     limiter ceiling for a route.
//   - [ClientIP]: records the caller's address in the request context.
//
// Each net/http middleware has a gin counterpart in gin.go.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself: every decision is delegated to
// Engine.Authorize and Engine.Allow.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly.
//   - Access Redis or the credential store.
//   - Reveal why a token was rejected.
package middleware
