package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/adapter/metrics"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/domain"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/pricing"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/session"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/subscription"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	url      string
	registry *session.Registry
	hub      *Hub
	metrics  *metrics.WebSocketMetrics
}

func newTestServer(t *testing.T, limits LimitsConfig) *testServer {
	t.Helper()
	catalog, err := pricing.ParseCatalog(pricing.DefaultSymbols)
	require.NoError(t, err)

	clock := clockwork.NewRealClock()
	m := metrics.NewWebSocketMetrics(prometheus.NewRegistry())
	registry := session.NewRegistry(clock)
	hub := NewHub(clock, DefaultSendBuffer, m)
	manager := subscription.NewManager(catalog, pricing.NewStore(catalog), registry, hub)
	handler := NewHandler(manager, hub, NewConnectionLimits(limits, clock), NewCheckOrigin("http://stocks.test", false), m)

	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		hub.Close("test done")
		srv.Close()
	})

	return &testServer{
		url:      "ws" + strings.TrimPrefix(srv.URL, "http"),
		registry: registry,
		hub:      hub,
		metrics:  m,
	}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (s *testServer) waitForSessions(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.registry.Len() == n && s.hub.Len() == n
	}, 2*time.Second, 5*time.Millisecond)
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func TestHandler_LoginAndSubscribeRoundTrip(t *testing.T) {
	s := newTestServer(t, LimitsConfig{})
	conn := s.dial(t)
	s.waitForSessions(t, 1)

	send(t, conn, `{"event":"login","data":"a@b.com"}`)

	supported := readEvent(t, conn)
	assert.Equal(t, domain.EventSupportedSymbols, supported.Name)
	assert.Equal(t, []domain.Symbol{"GOOG", "TSLA", "AMZN", "META", "NVDA"}, supported.Symbols)

	initial := readEvent(t, conn)
	assert.Equal(t, domain.EventInitialPrices, initial.Name)
	assert.True(t, initial.Prices["GOOG"].Equal(domain.MustPrice("2800")))

	send(t, conn, `{"event":"subscribe","data":"nvda"}`)
	changed := readEvent(t, conn)
	assert.Equal(t, domain.EventSubscriptionsChanged, changed.Name)
	assert.Equal(t, []domain.Symbol{"NVDA"}, changed.Symbols)

	send(t, conn, `{"event":"unsubscribe","data":"NVDA"}`)
	changed = readEvent(t, conn)
	assert.Empty(t, changed.Symbols)
	assert.NotNil(t, changed.Symbols)
}

func TestHandler_BlankLoginIsAccepted(t *testing.T) {
	s := newTestServer(t, LimitsConfig{})
	conn := s.dial(t)
	s.waitForSessions(t, 1)

	send(t, conn, `{"event":"login","data":""}`)

	supported := readEvent(t, conn)
	assert.Equal(t, domain.EventSupportedSymbols, supported.Name)
	assert.Equal(t, domain.EventInitialPrices, readEvent(t, conn).Name)

	views := s.registry.Snapshot()
	require.Len(t, views, 1)
	assert.True(t, views[0].LoggedIn)
	assert.Empty(t, views[0].Identity)
	assert.InDelta(t, 0, testutil.ToFloat64(s.metrics.MalformedFrames), 0)
}

func TestHandler_IgnoresMalformedAndUnknownSymbols(t *testing.T) {
	s := newTestServer(t, LimitsConfig{})
	conn := s.dial(t)
	s.waitForSessions(t, 1)

	send(t, conn, `not json`)
	send(t, conn, `{"event":"subscribe","data":"AAPL"}`)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{0x01}))
	send(t, conn, `{"event":"subscribe","data":"GOOG"}`)

	// The first reply is for GOOG; nothing was sent for the rejected frames.
	changed := readEvent(t, conn)
	assert.Equal(t, []domain.Symbol{"GOOG"}, changed.Symbols)

	assert.InDelta(t, 2, testutil.ToFloat64(s.metrics.MalformedFrames), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(s.metrics.InboundEvents.WithLabelValues("subscribe", "rejected_unknown_symbol")), 0)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(s.metrics.InboundEvents.WithLabelValues("subscribe", "applied")) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHandler_CloseReleasesSession(t *testing.T) {
	s := newTestServer(t, LimitsConfig{MaxConnections: 5})
	conn := s.dial(t)
	s.waitForSessions(t, 1)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(s.metrics.ActiveConnections) == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())

	s.waitForSessions(t, 0)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(s.metrics.ActiveConnections) == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHandler_RejectsOverCapacity(t *testing.T) {
	s := newTestServer(t, LimitsConfig{MaxConnections: 1})
	s.dial(t)
	s.waitForSessions(t, 1)

	_, resp, err := websocket.DefaultDialer.Dial(s.url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.InDelta(t, 1, testutil.ToFloat64(s.metrics.RejectedConnections.WithLabelValues(string(LimitReasonGlobal))), 0)
}

func TestHandler_RejectsForeignOrigin(t *testing.T) {
	s := newTestServer(t, LimitsConfig{})

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(s.url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, s.registry.Len())
}

func TestHandler_LogoutClearsSubscriptions(t *testing.T) {
	s := newTestServer(t, LimitsConfig{})
	conn := s.dial(t)
	s.waitForSessions(t, 1)

	send(t, conn, `{"event":"subscribe","data":"GOOG"}`)
	readEvent(t, conn)
	send(t, conn, `{"event":"logout"}`)

	require.Eventually(t, func() bool {
		views := s.registry.Snapshot()
		return len(views) == 1 && len(views[0].Subscriptions) == 0
	}, 2*time.Second, 5*time.Millisecond)
}
