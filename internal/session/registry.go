package session

import (
	"sync"
	"time"

	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type session struct {
	identity      string
	loggedIn      bool
	subscriptions domain.SymbolSet
	connectedAt   time.Time
}

func (s *session) view(id domain.ConnectionID) domain.SessionView {
	return domain.SessionView{
		ID:            id,
		Identity:      s.identity,
		LoggedIn:      s.loggedIn,
		Subscriptions: s.subscriptions.Clone(),
		ConnectedAt:   s.connectedAt,
	}
}

// Registry owns the session state of every live connection.
// A single RWMutex guards the whole map so a Snapshot never observes a
// half-applied mutation.
type Registry struct {
	mu       sync.RWMutex
	clock    clockwork.Clock
	sessions map[domain.ConnectionID]*session
}

func NewRegistry(clock clockwork.Clock) *Registry {
	return &Registry{
		clock:    clock,
		sessions: make(map[domain.ConnectionID]*session),
	}
}

// Register allocates an anonymous session with no subscriptions.
func (r *Registry) Register() domain.ConnectionID {
	id := uuid.New()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &session{
		subscriptions: make(domain.SymbolSet),
		connectedAt:   r.clock.Now(),
	}
	return id
}

// Unregister releases all state for id. It reports whether id was live.
func (r *Registry) Unregister(id domain.ConnectionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// SetIdentity marks the connection as logged in under identity.
func (r *Registry) SetIdentity(id domain.ConnectionID, identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	s.identity = identity
	s.loggedIn = true
	return true
}

// ClearIdentity logs the connection out and empties its subscription set.
func (r *Registry) ClearIdentity(id domain.ConnectionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	s.identity = ""
	s.loggedIn = false
	s.subscriptions = make(domain.SymbolSet)
	return true
}

// Identity returns the identity of a logged-in connection.
func (r *Registry) Identity(id domain.ConnectionID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok || !s.loggedIn {
		return "", false
	}
	return s.identity, true
}

// Subscriptions returns a copy of the connection's subscription set,
// or an empty set for unknown ids.
func (r *Registry) Subscriptions(id domain.ConnectionID) domain.SymbolSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return make(domain.SymbolSet)
	}
	return s.subscriptions.Clone()
}

// MutateSubscriptions applies fn to the connection's subscription set under
// the registry lock and returns a copy of the result. fn must not call back
// into the Registry.
func (r *Registry) MutateSubscriptions(id domain.ConnectionID, fn func(domain.SymbolSet)) (domain.SymbolSet, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return make(domain.SymbolSet), false
	}
	fn(s.subscriptions)
	return s.subscriptions.Clone(), true
}

// Session returns a copy of one connection's state.
func (r *Registry) Session(id domain.ConnectionID) (domain.SessionView, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return domain.SessionView{}, false
	}
	return s.view(id), true
}

// Snapshot copies every live session. The scheduler takes one per tick.
func (r *Registry) Snapshot() []domain.SessionView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	views := make([]domain.SessionView, 0, len(r.sessions))
	for id, s := range r.sessions {
		views = append(views, s.view(id))
	}
	return views
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
