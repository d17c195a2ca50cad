package subscription

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/domain"
)

// SessionStore is the subset of the connection registry the manager mutates.
type SessionStore interface {
	Register() domain.ConnectionID
	Unregister(id domain.ConnectionID) bool
	SetIdentity(id domain.ConnectionID, identity string) bool
	ClearIdentity(id domain.ConnectionID) bool
	Subscriptions(id domain.ConnectionID) domain.SymbolSet
	MutateSubscriptions(id domain.ConnectionID, fn func(domain.SymbolSet)) (domain.SymbolSet, bool)
}

// Manager applies inbound connection requests.
// Requests for one connection are expected to arrive serialized; requests for
// different connections may interleave freely.
type Manager struct {
	catalog  *domain.Catalog
	prices   domain.PriceSource
	sessions SessionStore
	sender   domain.Sender
}

func NewManager(catalog *domain.Catalog, prices domain.PriceSource, sessions SessionStore, sender domain.Sender) *Manager {
	return &Manager{
		catalog:  catalog,
		prices:   prices,
		sessions: sessions,
		sender:   sender,
	}
}

// Connect allocates a new anonymous connection.
func (m *Manager) Connect(ctx context.Context) domain.ConnectionID {
	id := m.sessions.Register()
	slog.DebugContext(ctx, "Client connected", "connection_id", id.String())
	return id
}

// Disconnect releases all state for id. Safe to call more than once.
func (m *Manager) Disconnect(ctx context.Context, id domain.ConnectionID) Outcome {
	if !m.sessions.Unregister(id) {
		return OutcomeUnknownConnection
	}
	slog.DebugContext(ctx, "Client disconnected", "connection_id", id.String())
	return OutcomeApplied
}

// Login tags the connection with identity and sends it the supported symbols
// followed by a full price snapshot. Subscriptions are left untouched.
func (m *Manager) Login(ctx context.Context, id domain.ConnectionID, identity string) Outcome {
	if !m.sessions.SetIdentity(id, identity) {
		return OutcomeUnknownConnection
	}
	slog.InfoContext(ctx, "User logged in", "connection_id", id.String(), "identity", identity)

	m.send(ctx, id, domain.SupportedSymbolsEvent(m.catalog.Symbols()))
	m.send(ctx, id, domain.InitialPricesEvent(m.prices.Snapshot()))
	return OutcomeApplied
}

// Logout clears the identity and the subscription set. Nothing is sent.
func (m *Manager) Logout(ctx context.Context, id domain.ConnectionID) Outcome {
	if !m.sessions.ClearIdentity(id) {
		return OutcomeUnknownConnection
	}
	slog.InfoContext(ctx, "User logged out", "connection_id", id.String())
	return OutcomeApplied
}

// Subscribe adds symbol to the connection's subscription set and sends the
// full updated list. Re-subscribing is idempotent but still acknowledged.
func (m *Manager) Subscribe(ctx context.Context, id domain.ConnectionID, symbol domain.Symbol) Outcome {
	if !m.catalog.Supports(symbol) {
		slog.DebugContext(ctx, "Ignoring subscribe to unknown symbol", "connection_id", id.String(), "symbol", symbol)
		return OutcomeRejectedUnknownSymbol
	}

	var added bool
	subs, ok := m.sessions.MutateSubscriptions(id, func(s domain.SymbolSet) {
		added = !s.Has(symbol)
		s.Add(symbol)
	})
	if !ok {
		return OutcomeUnknownConnection
	}

	slog.DebugContext(ctx, "Subscribed", "connection_id", id.String(), "symbol", symbol, "subscriptions", len(subs))
	m.send(ctx, id, domain.SubscriptionsChangedEvent(m.catalog.Ordered(subs)))

	if !added {
		return OutcomeUnchanged
	}
	return OutcomeApplied
}

// Unsubscribe removes symbol from the connection's subscription set and sends
// the updated list. Unsubscribing from something not subscribed sends nothing.
func (m *Manager) Unsubscribe(ctx context.Context, id domain.ConnectionID, symbol domain.Symbol) Outcome {
	if !m.catalog.Supports(symbol) {
		slog.DebugContext(ctx, "Ignoring unsubscribe from unknown symbol", "connection_id", id.String(), "symbol", symbol)
		return OutcomeRejectedUnknownSymbol
	}

	var removed bool
	subs, ok := m.sessions.MutateSubscriptions(id, func(s domain.SymbolSet) {
		removed = s.Has(symbol)
		s.Remove(symbol)
	})
	if !ok {
		return OutcomeUnknownConnection
	}
	if !removed {
		return OutcomeUnchanged
	}

	slog.DebugContext(ctx, "Unsubscribed", "connection_id", id.String(), "symbol", symbol, "subscriptions", len(subs))
	m.send(ctx, id, domain.SubscriptionsChangedEvent(m.catalog.Ordered(subs)))
	return OutcomeApplied
}

// Subscriptions returns the connection's subscriptions in catalog order.
func (m *Manager) Subscriptions(id domain.ConnectionID) []domain.Symbol {
	return m.catalog.Ordered(m.sessions.Subscriptions(id))
}

func (m *Manager) send(ctx context.Context, id domain.ConnectionID, event domain.Event) {
	err := m.sender.Send(ctx, id, event)
	if err == nil {
		return
	}
	if errors.Is(err, domain.ErrConnectionGone) {
		slog.DebugContext(ctx, "Connection gone before reply", "connection_id", id.String(), "event", event.Name)
		return
	}
	slog.WarnContext(ctx, "Failed to deliver reply", "connection_id", id.String(), "event", event.Name, "error", err)
}
