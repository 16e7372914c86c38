// Package cache holds the read-through identity cache consulted by Authorize.
//
// Entries map a key derived from the raw bearer token ([Key]) to a
// [Snapshot] of the identity it resolved to. A snapshot never carries the
// password hash. Every backend also indexes keys by identity so a password,
// role or avatar change can drop every cached token of that identity at once
// ([Cache.InvalidateIdentity]).
//
// Two backends satisfy [Cache]: [Redis] for deployments sharing one cache
// across instances, and [Memory] for a single process. [FailOpen] wraps
// either one and turns backend failures into misses.
package cache
