package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// PricePrecision is the number of fraction digits every price carries.
const PricePrecision = 2

// Price is a non-negative decimal amount with two fraction digits.
type Price = decimal.Decimal

// RoundPrice rounds p half away from zero to PricePrecision places.
func RoundPrice(p Price) Price {
	return p.Round(PricePrecision)
}

// MustPrice parses s and panics on malformed input. Intended for tests and literals.
func MustPrice(s string) Price {
	return RoundPrice(decimal.RequireFromString(s))
}

// Prices maps symbols to their current price.
// On the wire each price is a JSON number with exactly two fraction digits.
type Prices map[Symbol]Price

// Clone returns an independent copy.
func (p Prices) Clone() Prices {
	c := make(Prices, len(p))
	for sym, price := range p {
		c[sym] = price
	}
	return c
}

// Filter returns the subset of p whose symbols are in set.
func (p Prices) Filter(set SymbolSet) Prices {
	out := make(Prices, len(set))
	for sym := range set {
		if price, ok := p[sym]; ok {
			out[sym] = price
		}
	}
	return out
}

func (p Prices) MarshalJSON() ([]byte, error) {
	raw := make(map[Symbol]json.Number, len(p))
	for sym, price := range p {
		raw[sym] = json.Number(price.StringFixed(PricePrecision))
	}
	return json.Marshal(raw)
}

func (p *Prices) UnmarshalJSON(data []byte) error {
	var raw map[Symbol]json.Number
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode prices: %w", err)
	}
	out := make(Prices, len(raw))
	for sym, num := range raw {
		price, err := decimal.NewFromString(num.String())
		if err != nil {
			return fmt.Errorf("decode price for %s: %w", sym, err)
		}
		out[sym] = price
	}
	*p = out
	return nil
}
