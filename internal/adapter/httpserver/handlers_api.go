package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/domain"
	apperrors "github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

type symbolsResponse struct {
	Symbols []domain.Symbol `json:"symbols"`
}

type pricesResponse struct {
	Prices domain.Prices `json:"prices"`
}

type priceResponse struct {
	Symbol domain.Symbol `json:"symbol"`
	Price  json.Number   `json:"price"`
}

type statsResponse struct {
	Connections int `json:"connections"`
	Symbols     int `json:"symbols"`
}

func (s *Server) registerAPIRoutes() {
	api := s.echo.Group("/api", newRateLimiter(s.config.APIRateLimit, s.config.APIRateBurst))
	api.GET("/symbols", s.handleSymbols)
	api.GET("/prices", s.handlePrices)
	api.GET("/prices/:symbol", s.handlePrice)
	api.GET("/stats", s.handleStats)
}

func (s *Server) handleSymbols(c echo.Context) error {
	if err := c.JSON(http.StatusOK, symbolsResponse{Symbols: s.catalog.Symbols()}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handlePrices(c echo.Context) error {
	if err := c.JSON(http.StatusOK, pricesResponse{Prices: s.prices.Snapshot()}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handlePrice(c echo.Context) error {
	raw := c.Param("symbol")
	sym := domain.NormalizeSymbol(raw)
	if sym == "" {
		return apperrors.ValidationError("symbol is required")
	}

	price, ok := s.prices.Price(sym)
	if !ok {
		return apperrors.NotFoundError("unknown symbol").WithContext("symbol", raw)
	}

	resp := priceResponse{Symbol: sym, Price: json.Number(price.StringFixed(domain.PricePrecision))}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleStats(c echo.Context) error {
	resp := statsResponse{Symbols: s.catalog.Len()}
	if s.connections != nil {
		resp.Connections = s.connections.Len()
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
