// Package strategy turns detected price structures into candidate trade
// signals and manages the set of named strategy instances.
package strategy

import (
	"fmt"
	"sort"
	"sync"

	"smc-trading-engine/internal/market"
)

// Strategy is the capability contract for a trading strategy: a pattern
// detector and signal generator pair, independently activatable
type Strategy interface {
	// Name returns the unique strategy name
	Name() string

	// Timeframe returns the bar timeframe this strategy analyzes
	Timeframe() string

	// Activate enables signal generation
	Activate()

	// Deactivate disables signal generation
	Deactivate()

	// IsActive reports whether the strategy currently generates signals
	IsActive() bool

	// Analyze runs one detection cycle over the bar window and returns
	// zero or more candidate signals. An inactive strategy returns none.
	Analyze(symbol string, bars []market.Bar, tick market.Tick) []Signal
}

// Registry holds a named collection of strategies. It is safe for concurrent
// use.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry returns an empty, ready-to-use registry
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register adds a strategy under its own name, replacing any previous entry
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name
func (r *Registry) Get(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("strategy %q: not registered", name)
	}
	return s, nil
}

// List returns all registered strategy names in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Active returns all currently active strategies in name order
func (r *Registry) Active() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)

	active := make([]Strategy, 0, len(names))
	for _, name := range names {
		if s := r.strategies[name]; s.IsActive() {
			active = append(active, s)
		}
	}
	return active
}

// ActivateAll activates every registered strategy
func (r *Registry) ActivateAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.strategies {
		s.Activate()
	}
}

// DeactivateAll deactivates every registered strategy
func (r *Registry) DeactivateAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.strategies {
		s.Deactivate()
	}
}
