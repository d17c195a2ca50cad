// Package domaintest provides in-memory test doubles for domain interfaces.
package domaintest

import (
	"context"
	"sync"

	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/domain"
)

// Delivery is one event handed to a RecordingSender.
type Delivery struct {
	To    domain.ConnectionID
	Event domain.Event
}

// RecordingSender records every delivery in order. It is safe for concurrent use.
// Connections listed via Fail return the configured error instead of recording.
type RecordingSender struct {
	mu         sync.Mutex
	deliveries []Delivery
	failures   map[domain.ConnectionID]error
	panics     map[domain.ConnectionID]bool
}

func NewRecordingSender() *RecordingSender {
	return &RecordingSender{
		failures: make(map[domain.ConnectionID]error),
		panics:   make(map[domain.ConnectionID]bool),
	}
}

func (s *RecordingSender) Send(_ context.Context, id domain.ConnectionID, event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panics[id] {
		panic("recording sender: forced panic")
	}
	if err, ok := s.failures[id]; ok {
		return err
	}
	s.deliveries = append(s.deliveries, Delivery{To: id, Event: event})
	return nil
}

// Fail makes every later Send to id return err.
func (s *RecordingSender) Fail(id domain.ConnectionID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[id] = err
}

// Panic makes every later Send to id panic.
func (s *RecordingSender) Panic(id domain.ConnectionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panics[id] = true
}

// All returns every recorded delivery.
func (s *RecordingSender) All() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Delivery, len(s.deliveries))
	copy(out, s.deliveries)
	return out
}

// To returns the events delivered to id, in order.
func (s *RecordingSender) To(id domain.ConnectionID) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Event
	for _, d := range s.deliveries {
		if d.To == id {
			out = append(out, d.Event)
		}
	}
	return out
}

// Named returns the events named name delivered to id.
func (s *RecordingSender) Named(id domain.ConnectionID, name domain.EventName) []domain.Event {
	var out []domain.Event
	for _, e := range s.To(id) {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Reset forgets all recorded deliveries.
func (s *RecordingSender) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = nil
}
