package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/adapter/metrics"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/domain"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/platform/config"
	apperrors "github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/platform/errors"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
)

// PriceReader is the read side of the price store.
type PriceReader interface {
	Snapshot() domain.Prices
	Price(sym domain.Symbol) (domain.Price, bool)
}

// ConnectionCounter reports how many connections are registered.
type ConnectionCounter interface {
	Len() int
}

// Deps are the collaborators the HTTP surface serves from.
type Deps struct {
	Catalog      *domain.Catalog
	Prices       PriceReader
	Connections  ConnectionCounter
	WebSocket    echo.HandlerFunc
	Metrics      http.Handler
	HTTPMetrics  *metrics.HTTPMetrics
	HealthChecks []HealthCheck
	Clock        clockwork.Clock
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	catalog      *domain.Catalog
	prices       PriceReader
	connections  ConnectionCounter
	websocket    echo.HandlerFunc
	metrics      http.Handler
	httpMetrics  *metrics.HTTPMetrics
	healthChecks []HealthCheck
	clock        clockwork.Clock
	startTime    time.Time
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpErrorHandler

	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	srv := &Server{
		echo:         e,
		config:       cfg,
		catalog:      deps.Catalog,
		prices:       deps.Prices,
		connections:  deps.Connections,
		websocket:    deps.WebSocket,
		metrics:      deps.Metrics,
		httpMetrics:  deps.HTTPMetrics,
		healthChecks: deps.HealthChecks,
		clock:        clock,
		startTime:    clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(net.JoinHostPort("", s.config.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
// Upgraded WebSocket connections are not tracked here; the hub closes them.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP exposes the router, mainly for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// httpErrorHandler renders errors that escape the middleware chain, including
// echo's own routing errors, in the structured JSON shape.
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	structuredErr := apperrors.AsStructuredError(err)
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		structuredErr = WrapHTTPError(httpErr)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(structuredErr.HTTPStatus())
	} else {
		err = c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse())
	}
	if err != nil {
		slog.DebugContext(c.Request().Context(), "Failed to write error response", "error", err)
	}
}
