package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/adapter/metrics"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T, bufferSize int) (*Hub, *metrics.WebSocketMetrics) {
	t.Helper()
	m := metrics.NewWebSocketMetrics(prometheus.NewRegistry())
	hub := NewHub(clockwork.NewRealClock(), bufferSize, m)
	t.Cleanup(func() { hub.Close("test done") })
	return hub, m
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var event domain.Event
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

func TestHub_SendDeliversEncodedEvent(t *testing.T) {
	hub, m := newTestHub(t, 4)
	server, client := newTestConnPair(t)
	id := uuid.New()
	hub.Attach(id, server)

	err := hub.Send(context.Background(), id, domain.SubscriptionsChangedEvent([]domain.Symbol{"GOOG"}))
	require.NoError(t, err)

	event := readEvent(t, client)
	assert.Equal(t, domain.EventSubscriptionsChanged, event.Name)
	assert.Equal(t, []domain.Symbol{"GOOG"}, event.Symbols)
	assert.Eventually(t, func() bool { return testutil.ToFloat64(m.MessagesSent) == 1 }, time.Second, 5*time.Millisecond)
}

func TestHub_SendToUnknownConnection(t *testing.T) {
	hub, _ := newTestHub(t, 4)

	err := hub.Send(context.Background(), uuid.New(), domain.TickerUpdateEvent(nil))

	assert.ErrorIs(t, err, domain.ErrConnectionGone)
}

func TestHub_DetachStopsDelivery(t *testing.T) {
	hub, _ := newTestHub(t, 4)
	server, _ := newTestConnPair(t)
	id := uuid.New()
	hub.Attach(id, server)

	hub.Detach(id)
	hub.Detach(id)

	assert.Equal(t, 0, hub.Len())
	assert.ErrorIs(t, hub.Send(context.Background(), id, domain.TickerUpdateEvent(nil)), domain.ErrConnectionGone)
}

func TestHub_EvictsSlowConnection(t *testing.T) {
	hub, m := newTestHub(t, 1)
	id := uuid.New()

	// A writer whose goroutine never drains its buffer.
	server, client := newTestConnPair(t)
	stuck := &clientWriter{
		connection:  server,
		clock:       clockwork.NewRealClock(),
		sendChannel: make(chan []byte, 1),
		doneChannel: make(chan struct{}),
	}
	hub.mu.Lock()
	hub.writers[id] = stuck
	hub.mu.Unlock()

	ctx := context.Background()
	require.NoError(t, hub.Send(ctx, id, domain.TickerUpdateEvent(nil)))
	err := hub.Send(ctx, id, domain.TickerUpdateEvent(nil))

	assert.ErrorIs(t, err, domain.ErrSlowConnection)
	assert.Equal(t, 0, hub.Len())
	assert.InDelta(t, 1, testutil.ToFloat64(m.SlowClientsEvicted), 0)
	assert.ErrorIs(t, hub.Send(ctx, id, domain.TickerUpdateEvent(nil)), domain.ErrConnectionGone)

	// The evicted socket is closed, so the peer's read fails.
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = client.ReadMessage()
	assert.Error(t, err)
}

func TestHub_CloseSendsCloseFrames(t *testing.T) {
	hub, _ := newTestHub(t, 4)
	server, client := newTestConnPair(t)
	hub.Attach(uuid.New(), server)

	hub.Close("Server shutting down")

	assert.Equal(t, 0, hub.Len())
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := client.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)
}

func TestHub_AttachReplacesExistingWriter(t *testing.T) {
	hub, _ := newTestHub(t, 4)
	first, firstClient := newTestConnPair(t)
	second, secondClient := newTestConnPair(t)
	id := uuid.New()

	hub.Attach(id, first)
	hub.Attach(id, second)
	require.NoError(t, hub.Send(context.Background(), id, domain.TickerUpdateEvent(nil)))

	assert.Equal(t, 1, hub.Len())
	assert.Equal(t, domain.EventTickerUpdate, readEvent(t, secondClient).Name)
	require.NoError(t, firstClient.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := firstClient.ReadMessage()
	assert.Error(t, err)
}

func TestHub_TouchExtendsReadDeadline(t *testing.T) {
	hub, _ := newTestHub(t, 4)
	server, client := newTestConnPair(t)
	id := uuid.New()
	hub.Attach(id, server)

	// An already expired deadline would fail the next read.
	require.NoError(t, server.SetReadDeadline(time.Now().Add(-time.Second)))
	hub.touch(id)

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"event":"logout"}`)))
	_, data, err := server.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"logout"}`, string(data))
}

func TestHub_TouchUnknownConnectionIsNoop(t *testing.T) {
	hub, _ := newTestHub(t, 4)

	assert.NotPanics(t, func() { hub.touch(uuid.New()) })
}
