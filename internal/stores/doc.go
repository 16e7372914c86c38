// Package stores keeps short-lived token ID sets for the engine: the
// revocation list consulted by Authorize and the single-use marker for
// password reset tokens.
//
// # Design
//
// Each entry lives until the token it names would expire on its own, so the
// sets never grow past the number of live tokens. The Redis implementation
// uses SET NX with a TTL, which makes Mark atomic across instances. The
// memory implementation is for single-process deployments and tests.
//
// # What this package must NOT do
//
//   - Import goContacts or any sibling internal package.
//   - Store token bodies. Only token IDs are recorded.
package stores
