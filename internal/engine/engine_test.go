package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"smc-trading-engine/internal/arbiter"
	"smc-trading-engine/internal/events"
	"smc-trading-engine/internal/market"
	"smc-trading-engine/internal/risk"
	"smc-trading-engine/internal/strategy"
)

// scriptedStrategy returns a fixed candidate list every cycle
type scriptedStrategy struct {
	active  bool
	signals []strategy.Signal
}

func (s *scriptedStrategy) Name() string      { return "scripted" }
func (s *scriptedStrategy) Timeframe() string { return "15m" }
func (s *scriptedStrategy) Activate()         { s.active = true }
func (s *scriptedStrategy) Deactivate()       { s.active = false }
func (s *scriptedStrategy) IsActive() bool    { return s.active }
func (s *scriptedStrategy) Analyze(symbol string, bars []market.Bar, tick market.Tick) []strategy.Signal {
	return s.signals
}

// failingFeed reports not ready
type failingFeed struct{ market.DataFeed }

func (f *failingFeed) Ready(ctx context.Context) error {
	return errors.New("feed offline")
}

func validBuy() strategy.Signal {
	return strategy.Signal{
		ID:         "test-signal",
		Symbol:     "EURUSD",
		Action:     strategy.ActionBuy,
		Confidence: 0.8,
		Entry:      1.1000,
		StopLoss:   1.0950,
		TakeProfit: 1.1100,
		Strategy:   "scripted",
		Time:       time.Now(),
	}
}

type testHarness struct {
	engine   *Engine
	feed     *market.MockFeed
	gateway  *market.MockGateway
	arbiter  *arbiter.Arbiter
	strategy *scriptedStrategy
}

func newTestHarness(signals []strategy.Signal) *testHarness {
	feed := market.NewMockFeed()
	gateway := market.NewMockGateway(10000)
	registry := strategy.NewRegistry()
	strat := &scriptedStrategy{signals: signals}
	registry.Register(strat)

	params := risk.Parameters{
		MaxRiskPerTradePct: 1.0,
		MaxDailyLossPct:    6.0,
		MaxOpenPositions:   5,
		MinRiskReward:      1.5,
		MaxSpreadPips:      3.0,
	}
	arb := arbiter.New(zerolog.Nop())
	validator := risk.NewValidator(params, 10000, zerolog.Nop())
	positions := risk.NewPositionManager(gateway, feed, params, nil, zerolog.Nop())

	cfg := DefaultConfig()
	cfg.AnalysisInterval = 10 * time.Millisecond
	cfg.MonitorInterval = 10 * time.Millisecond

	eng := New(cfg, feed, gateway, registry, arb, validator, positions,
		events.NewBus(), nil, []string{"EURUSD"}, zerolog.Nop())
	return &testHarness{engine: eng, feed: feed, gateway: gateway, arbiter: arb, strategy: strat}
}

// TestStartRequiresReadyFeed verifies the engine stays stopped when the data
// feed is unavailable.
func TestStartRequiresReadyFeed(t *testing.T) {
	h := newTestHarness(nil)
	h.engine.feed = &failingFeed{}

	if h.engine.Start(context.Background()) {
		t.Fatal("engine started on an unavailable feed")
	}
	if h.engine.Status().Running {
		t.Error("status reports running after a failed start")
	}
}

// TestStartStop verifies the running transitions and that stopping
// deactivates every strategy.
func TestStartStop(t *testing.T) {
	h := newTestHarness(nil)

	if !h.engine.Start(context.Background()) {
		t.Fatal("start failed with a ready feed")
	}
	st := h.engine.Status()
	if !st.Running {
		t.Error("status not running after start")
	}
	if len(st.ActiveStrategies) != 1 || st.ActiveStrategies[0] != "scripted" {
		t.Errorf("ActiveStrategies = %v, want [scripted]", st.ActiveStrategies)
	}

	h.engine.Stop()
	if h.engine.Status().Running {
		t.Error("status running after stop")
	}
	if h.strategy.IsActive() {
		t.Error("strategy still active after stop")
	}
}

// TestAnalyzeExecutesSelectedSignal verifies the full pipeline from candidate
// to open position.
func TestAnalyzeExecutesSelectedSignal(t *testing.T) {
	h := newTestHarness([]strategy.Signal{validBuy()})
	h.strategy.Activate()
	h.feed.SetTick(market.Tick{Symbol: "EURUSD", Bid: 1.0999, Ask: 1.1001, Spread: 0.0002})

	h.engine.analyzeSymbol(context.Background(), "EURUSD")

	positions, _ := h.gateway.OpenPositions(context.Background())
	if len(positions) != 1 {
		t.Fatalf("open positions = %d, want 1", len(positions))
	}
	pos := positions[0]
	if pos.Symbol != "EURUSD" || pos.Side != market.SideBuy {
		t.Errorf("position %s %s, want EURUSD BUY", pos.Symbol, pos.Side)
	}
	if h.engine.Status().TotalSignalsIssued != 1 {
		t.Errorf("TotalSignalsIssued = %d, want 1", h.engine.Status().TotalSignalsIssued)
	}
}

// TestAnalyzeRejectedSignalDoesNotTrade verifies a wide spread keeps the
// pipeline from reaching the gateway.
func TestAnalyzeRejectedSignalDoesNotTrade(t *testing.T) {
	h := newTestHarness([]strategy.Signal{validBuy()})
	h.strategy.Activate()
	h.feed.SetTick(market.Tick{Symbol: "EURUSD", Bid: 1.0995, Ask: 1.1005, Spread: 0.0010})

	h.engine.analyzeSymbol(context.Background(), "EURUSD")

	positions, _ := h.gateway.OpenPositions(context.Background())
	if len(positions) != 0 {
		t.Errorf("open positions = %d after a rejected signal", len(positions))
	}
}

// TestResolveOutcomes verifies ticket diffing: a closed position resolves
// with its last observed profit and moves the strategy weight.
func TestResolveOutcomes(t *testing.T) {
	h := newTestHarness([]strategy.Signal{validBuy()})
	h.strategy.Activate()
	h.feed.SetTick(market.Tick{Symbol: "EURUSD", Bid: 1.0999, Ask: 1.1001, Spread: 0.0002})

	h.engine.analyzeSymbol(context.Background(), "EURUSD")
	positions, _ := h.gateway.OpenPositions(context.Background())
	if len(positions) != 1 {
		t.Fatal("position not opened")
	}
	ticket := positions[0].Ticket

	// position still live: profit observed but no outcome yet
	h.gateway.SetPositionProfit(ticket, 80)
	h.engine.resolveOutcomes(context.Background())
	if perf := h.arbiter.Performance(); len(perf) != 0 {
		t.Fatal("outcome recorded while position still live")
	}

	if err := h.gateway.ClosePosition(context.Background(), ticket); err != nil {
		t.Fatalf("ClosePosition: %v", err)
	}
	h.engine.resolveOutcomes(context.Background())

	perf, ok := h.arbiter.Performance()["scripted"]
	if !ok {
		t.Fatal("no outcome recorded after position close")
	}
	if perf.TotalTrades != 1 || perf.Wins != 1 {
		t.Errorf("trades/wins = %d/%d, want 1/1", perf.TotalTrades, perf.Wins)
	}
	if w := h.arbiter.StrategyWeight("scripted"); w < 1.049 || w > 1.051 {
		t.Errorf("strategy weight = %v, want 1.05 after a win", w)
	}
}

// TestAddRemoveSymbol verifies the monitored set surfaces through Status.
func TestAddRemoveSymbol(t *testing.T) {
	h := newTestHarness(nil)

	h.engine.AddSymbol("GBPUSD")
	st := h.engine.Status()
	if len(st.MonitoredSymbols) != 2 {
		t.Fatalf("MonitoredSymbols = %v, want 2 entries", st.MonitoredSymbols)
	}

	h.engine.RemoveSymbol("EURUSD")
	st = h.engine.Status()
	if len(st.MonitoredSymbols) != 1 || st.MonitoredSymbols[0] != "GBPUSD" {
		t.Errorf("MonitoredSymbols = %v, want [GBPUSD]", st.MonitoredSymbols)
	}
}
