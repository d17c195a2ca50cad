package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/adapter/metrics"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

// Hub maps connection ids to their writers and implements domain.Sender.
// Send never blocks: a connection whose buffer is full is evicted.
type Hub struct {
	mu         sync.RWMutex
	writers    map[domain.ConnectionID]*clientWriter
	clock      clockwork.Clock
	bufferSize int
	metrics    *metrics.WebSocketMetrics
}

func NewHub(clock clockwork.Clock, bufferSize int, m *metrics.WebSocketMetrics) *Hub {
	return &Hub{
		writers:    make(map[domain.ConnectionID]*clientWriter),
		clock:      clock,
		bufferSize: bufferSize,
		metrics:    m,
	}
}

// Attach starts a writer for conn under id.
func (h *Hub) Attach(id domain.ConnectionID, conn *websocket.Conn) {
	cw := newClientWriter(conn, h.clock, h.bufferSize, h.metrics.MessagesSent.Inc)

	h.mu.Lock()
	old, exists := h.writers[id]
	h.writers[id] = cw
	h.mu.Unlock()

	if exists {
		old.stop()
	}
}

// Detach stops the writer for id, if any.
func (h *Hub) Detach(id domain.ConnectionID) {
	h.mu.Lock()
	cw, ok := h.writers[id]
	delete(h.writers, id)
	h.mu.Unlock()

	if ok {
		cw.stop()
	}
}

// touch pushes id's read deadline out after the reader received a frame.
func (h *Hub) touch(id domain.ConnectionID) {
	h.mu.RLock()
	cw, ok := h.writers[id]
	h.mu.RUnlock()
	if ok {
		cw.extendReadDeadline()
	}
}

// Send encodes event and queues it for id.
func (h *Hub) Send(ctx context.Context, id domain.ConnectionID, event domain.Event) error {
	h.mu.RLock()
	cw, ok := h.writers[id]
	h.mu.RUnlock()
	if !ok {
		return domain.ErrConnectionGone
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.Name, err)
	}

	if cw.enqueue(data) {
		return nil
	}

	h.evict(ctx, id, cw)
	return domain.ErrSlowConnection
}

// evict drops a connection that cannot keep up. Closing the socket ends the
// reader, which then releases the session.
func (h *Hub) evict(ctx context.Context, id domain.ConnectionID, cw *clientWriter) {
	h.mu.Lock()
	current, ok := h.writers[id]
	if ok && current == cw {
		delete(h.writers, id)
	}
	h.mu.Unlock()
	if !ok || current != cw {
		return
	}

	slog.WarnContext(ctx, "Disconnecting slow client", "connection_id", id.String())
	h.metrics.SlowClientsEvicted.Inc()
	go cw.stop()
}

// Len returns the number of attached connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.writers)
}

// Close sends every client a close frame with reason and drops them.
func (h *Hub) Close(reason string) {
	h.mu.Lock()
	writers := h.writers
	h.writers = make(map[domain.ConnectionID]*clientWriter)
	h.mu.Unlock()

	var wg sync.WaitGroup
	for _, cw := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cw.stopGraceful(reason)
		}()
	}
	wg.Wait()
	slog.Info("WebSocket hub closed", "disconnected_clients", len(writers))
}
