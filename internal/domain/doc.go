// Package domain defines the core domain types and interfaces.
//
// This package contains concept-oriented files (symbol.go, price.go, event.go, connection.go, errors.go)
// with shared types and cross-cutting interfaces. No business logic - just contracts and value types.
// Prevents circular imports by keeping interfaces on the consumer side.
package domain
