// Package audit relays identity events (registration, login, reset and
// so on) to a pluggable [Sink] without blocking the request path.
//
// The [Dispatcher] owns buffering only. Which events exist, and what they
// carry, is decided by the Engine.
package audit
