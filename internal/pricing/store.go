package pricing

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultWalkBound is the default maximum relative move per tick (1%).
const DefaultWalkBound = 0.01

var one = decimal.NewFromInt(1)

// Store holds the current price of every supported symbol.
// The key set is fixed at construction.
type Store struct {
	mu      sync.RWMutex
	catalog *domain.Catalog
	prices  domain.Prices
	rng     *rand.Rand
}

type Option func(*Store)

// WithRand sets the random source used for perturbation draws.
func WithRand(r *rand.Rand) Option {
	return func(s *Store) { s.rng = r }
}

func NewStore(catalog *domain.Catalog, opts ...Option) *Store {
	s := &Store{
		catalog: catalog,
		prices:  make(domain.Prices, catalog.Len()),
	}
	for _, e := range catalog.Entries() {
		s.prices[e.Symbol] = e.InitialPrice
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		seed := uint64(time.Now().UnixNano())
		s.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return s
}

// Catalog returns the supported symbol catalog.
func (s *Store) Catalog() *domain.Catalog {
	return s.catalog
}

// Snapshot returns a copy of the current price mapping.
func (s *Store) Snapshot() domain.Prices {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prices.Clone()
}

// Price returns the current price of sym.
func (s *Store) Price(sym domain.Symbol) (domain.Price, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[sym]
	return p, ok
}

// ApplyRandomWalk moves every price by an independent factor drawn uniformly
// from [-bound, +bound] and returns the resulting snapshot. Symbols are drawn
// in catalog order, so a seeded source yields a reproducible walk.
func (s *Store) ApplyRandomWalk(bound float64) domain.Prices {
	bound = math.Abs(bound)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sym := range s.catalog.Symbols() {
		factor := (s.rng.Float64()*2 - 1) * bound
		s.prices[sym] = Perturb(s.prices[sym], factor)
	}
	return s.prices.Clone()
}

// Perturb computes old × (1 + factor) rounded half away from zero to two
// places. There is no floor. The relative bound on factor holds before
// rounding; the rounded move may exceed it by at most half a cent, and a price
// whose largest move is under half a cent (below 0.50 at the default bound)
// no longer changes.
func Perturb(old domain.Price, factor float64) domain.Price {
	return domain.RoundPrice(old.Mul(one.Add(decimal.NewFromFloat(factor))))
}
