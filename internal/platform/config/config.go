package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/domain"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/pricing"
	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	AppURL    string `env:"APP_URL" default:"http://localhost:8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
	StaticDir string `env:"STATIC_DIR"`

	TickInterval   time.Duration `env:"TICK_INTERVAL" default:"1s"`
	PriceWalkBound float64       `env:"PRICE_WALK_BOUND" default:"0.01"`
	Symbols        string        `env:"SYMBOLS" default:"GOOG:2800,TSLA:700,AMZN:3300,META:350,NVDA:900"`
	SymbolsFile    string        `env:"SYMBOLS_FILE"`

	MaxWebSocketConnections int     `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`
	MaxConnectionsPerIP     int     `env:"MAX_CONNECTIONS_PER_IP" default:"100"`
	ConnectionRatePerIP     float64 `env:"CONNECTION_RATE_PER_IP" default:"10"`
	ConnectionRateBurst     int     `env:"CONNECTION_RATE_BURST" default:"20"`
	WSSendBuffer            int     `env:"WS_SEND_BUFFER" default:"16"`

	APIRateLimit float64 `env:"API_RATE_LIMIT" default:"20"`
	APIRateBurst int     `env:"API_RATE_BURST" default:"40"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Catalog builds the supported symbol set. SYMBOLS_FILE wins over SYMBOLS.
func (c *Config) Catalog() (*domain.Catalog, error) {
	if c.SymbolsFile != "" {
		catalog, err := pricing.LoadCatalogFile(c.SymbolsFile)
		if err != nil {
			return nil, fmt.Errorf("SYMBOLS_FILE: %w", err)
		}
		return catalog, nil
	}
	catalog, err := pricing.ParseCatalog(c.Symbols)
	if err != nil {
		return nil, fmt.Errorf("SYMBOLS: %w", err)
	}
	return catalog, nil
}

func validate(cfg *Config) error {
	if cfg.Port == "" {
		return errors.New("PORT is required")
	}
	if cfg.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive, got %s", cfg.TickInterval)
	}
	if cfg.PriceWalkBound < 0 || cfg.PriceWalkBound >= 1 {
		return fmt.Errorf("PRICE_WALK_BOUND must be in [0, 1), got %g", cfg.PriceWalkBound)
	}
	if cfg.WSSendBuffer <= 0 {
		return fmt.Errorf("WS_SEND_BUFFER must be positive, got %d", cfg.WSSendBuffer)
	}
	if cfg.MaxWebSocketConnections < 0 || cfg.MaxConnectionsPerIP < 0 {
		return errors.New("connection limits must not be negative")
	}
	if cfg.ConnectionRatePerIP < 0 || cfg.APIRateLimit < 0 {
		return errors.New("rate limits must not be negative")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	if cfg.SymbolsFile == "" {
		if _, err := pricing.ParseCatalog(cfg.Symbols); err != nil {
			return fmt.Errorf("SYMBOLS: %w", err)
		}
	}

	return nil
}
