package pricing

import (
	"fmt"
	"os"
	"strings"

	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultSymbols is the catalog used when nothing else is configured.
const DefaultSymbols = "GOOG:2800,TSLA:700,AMZN:3300,META:350,NVDA:900"

// ParseCatalog parses a comma-separated list of SYMBOL:PRICE pairs.
func ParseCatalog(spec string) (*domain.Catalog, error) {
	var entries []domain.CatalogEntry
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		sym, rawPrice, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("catalog entry %q: expected SYMBOL:PRICE", pair)
		}
		entry, err := newEntry(sym, rawPrice)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return domain.NewCatalog(entries)
}

type catalogFile struct {
	Symbols []struct {
		Symbol string `yaml:"symbol"`
		Price  string `yaml:"price"`
	} `yaml:"symbols"`
}

// LoadCatalogFile reads a YAML catalog and expands ${VAR} environment variables.
//
//	symbols:
//	  - symbol: GOOG
//	    price: 2800
func LoadCatalogFile(path string) (*domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &file); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}

	entries := make([]domain.CatalogEntry, 0, len(file.Symbols))
	for _, s := range file.Symbols {
		entry, err := newEntry(s.Symbol, s.Price)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	catalog, err := domain.NewCatalog(entries)
	if err != nil {
		return nil, fmt.Errorf("catalog file %s: %w", path, err)
	}
	return catalog, nil
}

func newEntry(sym, rawPrice string) (domain.CatalogEntry, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(rawPrice))
	if err != nil {
		return domain.CatalogEntry{}, fmt.Errorf("catalog entry %s: invalid price %q: %w", sym, rawPrice, err)
	}
	return domain.CatalogEntry{Symbol: domain.NormalizeSymbol(sym), InitialPrice: price}, nil
}
