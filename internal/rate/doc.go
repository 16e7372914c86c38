// Package rate implements the fixed-window request limiter placed in front
// of authentication endpoints.
//
// A window opens on the first hit for a key and lasts Config.Window. The
// first Config.Max calls inside it are allowed, every later call is refused
// until the window closes. Keys are chosen by the caller, usually
// "<client-ip>:<route>".
//
// The Redis backend keeps counters under "rl:<key>" using INCR plus EXPIRE
// on the first hit, so all instances share one budget per key. The memory
// backend serves single-process deployments and tests.
package rate
