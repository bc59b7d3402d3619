package strategy

import (
	"testing"

	"github.com/rs/zerolog"

	"smc-trading-engine/internal/market"
)

// stubStrategy is a minimal Strategy for registry tests
type stubStrategy struct {
	name   string
	active bool
}

func (s *stubStrategy) Name() string      { return s.name }
func (s *stubStrategy) Timeframe() string { return "M15" }
func (s *stubStrategy) Activate()         { s.active = true }
func (s *stubStrategy) Deactivate()       { s.active = false }
func (s *stubStrategy) IsActive() bool    { return s.active }
func (s *stubStrategy) Analyze(string, []market.Bar, market.Tick) []Signal {
	return nil
}

// TestRegistryRegisterAndGet verifies lookup of a registered strategy and the
// error for an unknown name.
func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubStrategy{name: "alpha"})

	s, err := r.Get("alpha")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s.Name() != "alpha" {
		t.Errorf("Name = %q, want alpha", s.Name())
	}

	if _, err := r.Get("missing"); err == nil {
		t.Error("expected an error for an unregistered name")
	}
}

// TestRegistryActive verifies that Active filters inactive strategies and
// returns the rest in name order.
func TestRegistryActive(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubStrategy{name: "charlie", active: true})
	r.Register(&stubStrategy{name: "alpha", active: true})
	r.Register(&stubStrategy{name: "bravo"})

	active := r.Active()
	if len(active) != 2 {
		t.Fatalf("len(Active) = %d, want 2", len(active))
	}
	if active[0].Name() != "alpha" || active[1].Name() != "charlie" {
		t.Errorf("Active order = %s, %s; want alpha, charlie", active[0].Name(), active[1].Name())
	}
}

// TestRegistryActivateAll verifies the bulk activate and deactivate paths.
func TestRegistryActivateAll(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubStrategy{name: "alpha"})
	r.Register(&stubStrategy{name: "bravo"})

	r.ActivateAll()
	if len(r.Active()) != 2 {
		t.Error("ActivateAll left strategies inactive")
	}

	r.DeactivateAll()
	if len(r.Active()) != 0 {
		t.Error("DeactivateAll left strategies active")
	}
}

// TestSMCInactiveReturnsNil verifies that a deactivated strategy emits no
// signals regardless of the bar window.
func TestSMCInactiveReturnsNil(t *testing.T) {
	s := NewSMC("M15", zerolog.Nop())

	bars := make([]market.Bar, 60)
	for i := range bars {
		bars[i] = market.Bar{Open: 1.1, High: 1.1, Low: 1.1, Close: 1.1}
	}
	if got := s.Analyze("EURUSD", bars, market.Tick{Bid: 1.1, Ask: 1.1}); got != nil {
		t.Errorf("inactive strategy returned %d signals", len(got))
	}
}

// TestSMCInsufficientData verifies that a short bar window yields no signals
// and no error escapes.
func TestSMCInsufficientData(t *testing.T) {
	s := NewSMC("M15", zerolog.Nop())
	s.Activate()

	bars := make([]market.Bar, 20)
	for i := range bars {
		bars[i] = market.Bar{Open: 1.1, High: 1.1, Low: 1.1, Close: 1.1}
	}
	if got := s.Analyze("EURUSD", bars, market.Tick{Bid: 1.1, Ask: 1.1}); got != nil {
		t.Errorf("short window returned %d signals", len(got))
	}
}
