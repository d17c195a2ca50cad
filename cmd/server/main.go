package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/adapter/httpserver"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/adapter/metrics"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/adapter/websocket"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/broadcast"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/domain"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/platform/config"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/platform/logging"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/platform/version"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/pricing"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/session"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/subscription"
	"github.com/jonboulle/clockwork"
)

func runGracefulShutdown(cfg *config.Config, srv *httpserver.Server, broadcaster *broadcast.Broadcaster, hub *websocket.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		// Stop ticking before closing sockets so no tick races the close frames.
		broadcaster.Stop()
		hub.Close("server shutting down")

		close(done)
	}()

	return done
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupCatalog(cfg *config.Config) *domain.Catalog {
	catalog, err := cfg.Catalog()
	if err != nil {
		slog.Error("Failed to load symbol catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("Symbol catalog loaded", "symbols", catalog.Len(), "from_file", cfg.SymbolsFile != "")
	return catalog
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().String())

	catalog := setupCatalog(cfg)
	store := pricing.NewStore(catalog)
	registry := session.NewRegistry(clock)

	reg := metrics.NewRegistry()
	broadcastMetrics := metrics.NewBroadcastMetrics(reg)
	priceMetrics := metrics.NewPriceMetrics(reg)
	wsMetrics := metrics.NewWebSocketMetrics(reg)
	httpMetrics := metrics.NewHTTPMetrics(reg)

	hub := websocket.NewHub(clock, cfg.WSSendBuffer, wsMetrics)
	manager := subscription.NewManager(catalog, store, registry, hub)
	broadcaster := broadcast.NewBroadcaster(store, registry, hub, clock, broadcast.Config{
		TickInterval: cfg.TickInterval,
		WalkBound:    cfg.PriceWalkBound,
	}, broadcastMetrics, priceMetrics)

	limits := websocket.NewConnectionLimits(websocket.LimitsConfig{
		MaxConnections: int64(cfg.MaxWebSocketConnections),
		MaxPerIP:       cfg.MaxConnectionsPerIP,
		PerIPRate:      cfg.ConnectionRatePerIP,
		PerIPBurst:     cfg.ConnectionRateBurst,
	}, clock)
	wsHandler := websocket.NewHandler(manager, hub, limits,
		websocket.NewCheckOrigin(cfg.AppURL, cfg.IsDevelopment()), wsMetrics)

	srv := httpserver.NewServer(cfg, httpserver.Deps{
		Catalog:     catalog,
		Prices:      store,
		Connections: registry,
		WebSocket:   wsHandler.HandleEcho,
		Metrics:     metrics.Handler(reg),
		HTTPMetrics: httpMetrics,
		HealthChecks: []httpserver.HealthCheck{
			{Name: "broadcaster", Check: broadcaster.Healthy},
			{Name: "connection_capacity", Check: func(_ context.Context) error {
				if pct := limits.CapacityPct(); pct >= 100 {
					return fmt.Errorf("websocket connections at %.0f%% of capacity", pct)
				}
				return nil
			}},
		},
		Clock: clock,
	})

	done := runGracefulShutdown(cfg, srv, broadcaster, hub)

	slog.Info("Server starting", "port", cfg.Port, "symbols", catalog.Symbols(), "tick_interval", cfg.TickInterval)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
