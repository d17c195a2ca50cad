package websocket

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/adapter/metrics"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/domain"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/platform/correlation"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/subscription"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const maxMessageSize = 4096

// SessionManager applies inbound requests for a connection.
type SessionManager interface {
	Connect(ctx context.Context) domain.ConnectionID
	Disconnect(ctx context.Context, id domain.ConnectionID) subscription.Outcome
	Login(ctx context.Context, id domain.ConnectionID, identity string) subscription.Outcome
	Logout(ctx context.Context, id domain.ConnectionID) subscription.Outcome
	Subscribe(ctx context.Context, id domain.ConnectionID, symbol domain.Symbol) subscription.Outcome
	Unsubscribe(ctx context.Context, id domain.ConnectionID, symbol domain.Symbol) subscription.Outcome
}

// Handler upgrades HTTP requests to WebSocket connections and runs one read
// loop per connection. Requests on a connection are applied in arrival order.
type Handler struct {
	manager  SessionManager
	hub      *Hub
	limits   *ConnectionLimits
	upgrader websocket.Upgrader
	metrics  *metrics.WebSocketMetrics
}

func NewHandler(manager SessionManager, hub *Hub, limits *ConnectionLimits, checkOrigin func(*http.Request) bool, m *metrics.WebSocketMetrics) *Handler {
	return &Handler{
		manager: manager,
		hub:     hub,
		limits:  limits,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		metrics: m,
	}
}

// ServeHTTP admits the connection using the socket's remote address.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, remoteIP(r))
}

// HandleEcho admits the connection using echo's real-IP resolution.
func (h *Handler) HandleEcho(c echo.Context) error {
	h.serve(c.Response(), c.Request(), c.RealIP())
	return nil
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, ip string) {
	if ok, reason := h.limits.Acquire(ip); !ok {
		h.metrics.RejectedConnections.WithLabelValues(string(reason)).Inc()
		slog.Warn("WebSocket connection refused", "remote_ip", ip, "reason", reason)
		status := http.StatusServiceUnavailable
		if reason == LimitReasonRate {
			status = http.StatusTooManyRequests
		}
		http.Error(w, http.StatusText(status), status)
		return
	}
	defer h.limits.Release(ip)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		h.metrics.RejectedConnections.WithLabelValues("upgrade_failed").Inc()
		slog.Debug("WebSocket upgrade failed", "remote_ip", ip, "error", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	ctx := correlation.WithID(context.WithoutCancel(r.Context()), correlation.NewID())
	id := h.manager.Connect(ctx)
	h.hub.Attach(id, conn)
	h.metrics.ActiveConnections.Inc()
	slog.InfoContext(ctx, "WebSocket connected", "connection_id", id.String(), "remote_ip", ip)

	defer func() {
		h.manager.Disconnect(ctx, id)
		h.hub.Detach(id)
		h.metrics.ActiveConnections.Dec()
		slog.InfoContext(ctx, "WebSocket disconnected", "connection_id", id.String())
	}()

	h.readLoop(ctx, id, conn)
}

func (h *Handler) readLoop(ctx context.Context, id domain.ConnectionID, conn *websocket.Conn) {
	for {
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				slog.DebugContext(ctx, "WebSocket read ended", "connection_id", id.String(), "error", err)
			}
			return
		}
		h.hub.touch(id)

		if msgType != websocket.TextMessage {
			h.metrics.MalformedFrames.Inc()
			continue
		}

		req, err := decodeRequest(raw)
		if err != nil {
			h.metrics.MalformedFrames.Inc()
			slog.DebugContext(ctx, "Ignoring malformed frame", "connection_id", id.String(), "error", err)
			continue
		}

		outcome := h.dispatch(ctx, id, req)
		h.metrics.InboundEvents.WithLabelValues(string(req.Event), outcome.String()).Inc()
	}
}

func (h *Handler) dispatch(ctx context.Context, id domain.ConnectionID, req request) subscription.Outcome {
	switch req.Event {
	case domain.EventLogin:
		return h.manager.Login(ctx, id, req.Arg)
	case domain.EventLogout:
		return h.manager.Logout(ctx, id)
	case domain.EventSubscribe:
		return h.manager.Subscribe(ctx, id, domain.Symbol(req.Arg))
	case domain.EventUnsubscribe:
		return h.manager.Unsubscribe(ctx, id, domain.Symbol(req.Arg))
	default:
		return subscription.OutcomeUnchanged
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
