// Package subscription validates and applies per-connection requests
// (connect, disconnect, login, logout, subscribe, unsubscribe) against the
// price catalog and the connection registry.
//
// Every request yields a typed Outcome. Rejections stay silent on the wire
// but are visible to callers and tests.
package subscription
