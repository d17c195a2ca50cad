package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/adapter/metrics"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/platform/config"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/pricing"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"
)

type fixedCounter int

func (f fixedCounter) Len() int { return int(f) }

type testServerOption func(*config.Config, *Deps)

func withHealthChecks(checks ...HealthCheck) testServerOption {
	return func(_ *config.Config, d *Deps) { d.HealthChecks = checks }
}

func withConfig(fn func(*config.Config)) testServerOption {
	return func(c *config.Config, _ *Deps) { fn(c) }
}

func withDeps(fn func(*Deps)) testServerOption {
	return func(_ *config.Config, d *Deps) { fn(d) }
}

func newTestServer(t *testing.T, opts ...testServerOption) *Server {
	t.Helper()

	catalog, err := pricing.ParseCatalog(pricing.DefaultSymbols)
	require.NoError(t, err)
	store := pricing.NewStore(catalog)

	reg := prometheus.NewRegistry()
	cfg := &config.Config{Port: "0", AppEnv: "test"}
	deps := Deps{
		Catalog:     catalog,
		Prices:      store,
		Connections: fixedCounter(0),
		WebSocket:   func(c echo.Context) error { return c.String(http.StatusOK, "ws") },
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		Clock:       clockwork.NewFakeClock(),
	}
	for _, opt := range opts {
		opt(cfg, &deps)
	}

	return NewServer(cfg, deps)
}

func newRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

func serveRequest(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func serve(srv *Server, method, target string) *httptest.ResponseRecorder {
	return serveRequest(srv, newRequest(method, target))
}
