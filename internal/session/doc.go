// Package session implements the connection registry: per-connection identity
// and subscription state keyed by an opaque connection id.
//
// Every method is a total function. Unknown or unregistered ids are no-ops
// that report false, never errors.
package session
