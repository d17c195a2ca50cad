package domain

import (
	"fmt"
	"strings"
)

// Symbol identifies a tradable instrument, e.g. "GOOG".
type Symbol string

// NormalizeSymbol trims whitespace and upper-cases raw client input.
func NormalizeSymbol(raw string) Symbol {
	return Symbol(strings.ToUpper(strings.TrimSpace(raw)))
}

// SymbolSet is an unordered set of symbols.
type SymbolSet map[Symbol]struct{}

func NewSymbolSet(symbols ...Symbol) SymbolSet {
	s := make(SymbolSet, len(symbols))
	for _, sym := range symbols {
		s[sym] = struct{}{}
	}
	return s
}

func (s SymbolSet) Has(sym Symbol) bool {
	_, ok := s[sym]
	return ok
}

func (s SymbolSet) Add(sym Symbol) {
	s[sym] = struct{}{}
}

func (s SymbolSet) Remove(sym Symbol) {
	delete(s, sym)
}

// Clone returns an independent copy. A nil receiver yields an empty set.
func (s SymbolSet) Clone() SymbolSet {
	c := make(SymbolSet, len(s))
	for sym := range s {
		c[sym] = struct{}{}
	}
	return c
}

// Equal reports whether both sets hold exactly the same symbols.
func (s SymbolSet) Equal(other SymbolSet) bool {
	if len(s) != len(other) {
		return false
	}
	for sym := range s {
		if !other.Has(sym) {
			return false
		}
	}
	return true
}

// CatalogEntry is one supported symbol with its starting price.
type CatalogEntry struct {
	Symbol       Symbol
	InitialPrice Price
}

// Catalog is the fixed, ordered set of supported symbols.
// It is immutable once built; the order is the order entries were supplied in.
type Catalog struct {
	entries []CatalogEntry
	index   map[Symbol]int
}

// NewCatalog validates entries and builds a catalog.
func NewCatalog(entries []CatalogEntry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		entries: make([]CatalogEntry, 0, len(entries)),
		index:   make(map[Symbol]int, len(entries)),
	}
	for _, e := range entries {
		sym := NormalizeSymbol(string(e.Symbol))
		if sym == "" {
			return nil, fmt.Errorf("catalog entry %d: empty symbol", len(c.entries))
		}
		if _, exists := c.index[sym]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSymbol, sym)
		}
		if e.InitialPrice.IsNegative() {
			return nil, fmt.Errorf("%w: %s=%s", ErrNegativePrice, sym, e.InitialPrice.String())
		}
		c.index[sym] = len(c.entries)
		c.entries = append(c.entries, CatalogEntry{Symbol: sym, InitialPrice: RoundPrice(e.InitialPrice)})
	}
	return c, nil
}

// Supports reports whether sym belongs to the supported set.
func (c *Catalog) Supports(sym Symbol) bool {
	_, ok := c.index[sym]
	return ok
}

// Symbols returns the supported symbols in catalog order.
func (c *Catalog) Symbols() []Symbol {
	out := make([]Symbol, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Symbol
	}
	return out
}

// Entries returns a copy of the catalog entries.
func (c *Catalog) Entries() []CatalogEntry {
	out := make([]CatalogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

// Ordered returns the members of set in catalog order, dropping anything unsupported.
func (c *Catalog) Ordered(set SymbolSet) []Symbol {
	out := make([]Symbol, 0, len(set))
	for _, e := range c.entries {
		if set.Has(e.Symbol) {
			out = append(out, e.Symbol)
		}
	}
	return out
}
