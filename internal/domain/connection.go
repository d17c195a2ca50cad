package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ConnectionID is the opaque identifier of one client connection.
type ConnectionID = uuid.UUID

// SessionView is a point-in-time copy of one connection's session state.
type SessionView struct {
	ID            ConnectionID
	Identity      string
	LoggedIn      bool
	Subscriptions SymbolSet
	ConnectedAt   time.Time
}

// Sender delivers outbound events to a single connection.
// Implementations return ErrConnectionGone for connections that no longer exist.
type Sender interface {
	Send(ctx context.Context, id ConnectionID, event Event) error
}

// PriceSource is the read side of the price store.
type PriceSource interface {
	Snapshot() Prices
}

// SessionSource exposes consistent per-tick copies of every live session.
type SessionSource interface {
	Snapshot() []SessionView
}
