// Package engine orchestrates the trading cycle: it drives per-symbol
// analysis on a short period, position supervision on a longer period, and
// feeds resolved trade outcomes back into the arbiter.
package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"smc-trading-engine/internal/arbiter"
	"smc-trading-engine/internal/events"
	"smc-trading-engine/internal/market"
	"smc-trading-engine/internal/metrics"
	"smc-trading-engine/internal/risk"
	"smc-trading-engine/internal/strategy"
)

// Config holds the engine cadence and analysis parameters
type Config struct {
	AnalysisInterval time.Duration
	MonitorInterval  time.Duration
	Timeframe        string
	BarCount         int
	MarketFactor     float64
}

// DefaultConfig returns the nominal cadence: analysis every 15s, monitoring
// every 30s, 100 bars of 15m candles
func DefaultConfig() Config {
	return Config{
		AnalysisInterval: 15 * time.Second,
		MonitorInterval:  30 * time.Second,
		Timeframe:        "15m",
		BarCount:         100,
		MarketFactor:     1.0,
	}
}

// Outcome is the resolution of an executed signal
type Outcome struct {
	Result    string // "win" or "loss"
	Profit    float64
	CloseTime time.Time
}

// HistoryEntry tracks one executed signal until its position closes
type HistoryEntry struct {
	Signal        strategy.Signal
	Ticket        int64
	Size          float64
	ExecutionTime time.Time
	Outcome       *Outcome
}

// TradeStore persists executions and outcomes. A nil store disables
// persistence without changing engine behavior.
type TradeStore interface {
	SaveExecution(ctx context.Context, entry HistoryEntry) error
	SaveOutcome(ctx context.Context, ticket int64, outcome Outcome) error
}

// Status is the engine state summary exposed to callers
type Status struct {
	Running            bool     `json:"running"`
	ActiveStrategies   []string `json:"active_strategies"`
	MonitoredSymbols   []string `json:"monitored_symbols"`
	TotalSignalsIssued int      `json:"total_signals_issued"`
}

// Engine wires the detector-to-gateway pipeline together
type Engine struct {
	cfg       Config
	feed      market.DataFeed
	gateway   market.Gateway
	registry  *strategy.Registry
	arbiter   *arbiter.Arbiter
	validator *risk.Validator
	positions *risk.PositionManager
	bus       *events.Bus
	store     TradeStore // optional
	logger    zerolog.Logger

	mu            sync.Mutex
	running       bool
	cancel        context.CancelFunc
	group         *errgroup.Group
	symbols       map[string]bool
	inFlight      map[string]bool
	executed      map[int64]*HistoryEntry
	lastProfit    map[int64]float64
	signalsIssued int
	currentDay    time.Time
}

// New creates a stopped engine monitoring the given symbols. store may be
// nil.
func New(cfg Config, feed market.DataFeed, gateway market.Gateway, registry *strategy.Registry,
	arb *arbiter.Arbiter, validator *risk.Validator, positions *risk.PositionManager,
	bus *events.Bus, store TradeStore, symbols []string, logger zerolog.Logger) *Engine {

	symbolSet := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		symbolSet[s] = true
	}
	return &Engine{
		cfg:        cfg,
		feed:       feed,
		gateway:    gateway,
		registry:   registry,
		arbiter:    arb,
		validator:  validator,
		positions:  positions,
		bus:        bus,
		store:      store,
		logger:     logger.With().Str("component", "engine").Logger(),
		symbols:    symbolSet,
		inFlight:   make(map[string]bool),
		executed:   make(map[int64]*HistoryEntry),
		lastProfit: make(map[int64]float64),
		currentDay: dayOf(time.Now()),
	}
}

// Start transitions the engine to running once the data feed confirms
// readiness. Reports false and stays stopped when the feed is unavailable.
func (e *Engine) Start(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return true
	}
	if err := e.feed.Ready(ctx); err != nil {
		e.logger.Error().Err(err).Msg("data feed not ready, engine stays stopped")
		return false
	}

	runCtx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(runCtx)
	e.cancel = cancel
	e.group = group
	e.running = true

	e.registry.ActivateAll()
	group.Go(func() error { e.analysisLoop(groupCtx); return nil })
	group.Go(func() error { e.monitorLoop(groupCtx); return nil })

	e.bus.Publish(events.Event{Type: events.EventEngineStarted})
	e.logger.Info().
		Dur("analysis_interval", e.cfg.AnalysisInterval).
		Dur("monitor_interval", e.cfg.MonitorInterval).
		Msg("engine started")
	return true
}

// Stop cancels both cycles, waits for in-flight work and deactivates all
// strategies. Safe to call on a stopped engine.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	cancel, group := e.cancel, e.group
	e.mu.Unlock()

	cancel()
	_ = group.Wait()
	e.registry.DeactivateAll()
	e.bus.Publish(events.Event{Type: events.EventEngineStopped})
	e.logger.Info().Msg("engine stopped")
}

// AddSymbol adds a symbol to the monitored set
func (e *Engine) AddSymbol(symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.symbols[symbol] = true
}

// RemoveSymbol drops a symbol from the monitored set
func (e *Engine) RemoveSymbol(symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.symbols, symbol)
}

// Status returns the current engine state summary
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	symbols := make([]string, 0, len(e.symbols))
	for s := range e.symbols {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	active := e.registry.Active()
	names := make([]string, 0, len(active))
	for _, s := range active {
		names = append(names, s.Name())
	}

	return Status{
		Running:            e.running,
		ActiveStrategies:   names,
		MonitoredSymbols:   symbols,
		TotalSignalsIssued: e.signalsIssued,
	}
}

// StrategyPerformance returns the arbiter's per-strategy outcome summary
func (e *Engine) StrategyPerformance() map[string]arbiter.Performance {
	return e.arbiter.Performance()
}

func (e *Engine) analysisLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.AnalysisInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.runAnalysisCycle(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// runAnalysisCycle dispatches one analysis pass per monitored symbol.
// Analysis for one symbol never overlaps itself: a symbol whose previous
// pass is still in flight is skipped this tick. Different symbols proceed
// independently.
func (e *Engine) runAnalysisCycle(ctx context.Context) {
	e.mu.Lock()
	var due []string
	for symbol := range e.symbols {
		if !e.inFlight[symbol] {
			e.inFlight[symbol] = true
			due = append(due, symbol)
		}
	}
	e.mu.Unlock()

	for _, symbol := range due {
		symbol := symbol
		go func() {
			defer func() {
				e.mu.Lock()
				delete(e.inFlight, symbol)
				e.mu.Unlock()
			}()
			start := time.Now()
			e.analyzeSymbol(ctx, symbol)
			metrics.AnalysisDuration.WithLabelValues(symbol).Observe(time.Since(start).Seconds())
		}()
	}
}

// analyzeSymbol runs the full pipeline for one symbol: fetch data, collect
// candidates from every active strategy, arbitrate, validate and execute.
// Any data failure skips the symbol for this cycle without raising.
func (e *Engine) analyzeSymbol(ctx context.Context, symbol string) {
	tick, ok, err := e.feed.LatestTick(ctx, symbol)
	if err != nil || !ok {
		e.logger.Debug().Str("symbol", symbol).Msg("no tick, symbol skipped")
		return
	}
	bars, err := e.feed.BarHistory(ctx, symbol, e.cfg.Timeframe, e.cfg.BarCount)
	if err != nil || len(bars) == 0 {
		e.logger.Debug().Str("symbol", symbol).Msg("no bar history, symbol skipped")
		return
	}

	var candidates []strategy.Signal
	for _, strat := range e.registry.Active() {
		candidates = append(candidates, strat.Analyze(symbol, bars, tick)...)
	}

	selected, ok := e.arbiter.Select(candidates, e.cfg.MarketFactor)
	if !ok {
		return
	}

	e.mu.Lock()
	e.signalsIssued++
	e.mu.Unlock()
	metrics.SignalsGenerated.WithLabelValues(selected.Strategy, symbol).Inc()
	e.bus.Publish(events.Event{
		Type: events.EventSignalGenerated,
		Data: map[string]interface{}{
			"symbol":     symbol,
			"strategy":   selected.Strategy,
			"action":     string(selected.Action),
			"confidence": selected.Confidence,
			"reason":     selected.Reason,
		},
	})

	account, err := e.gateway.AccountSnapshot(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("account snapshot failed, symbol skipped")
		return
	}
	open, err := e.gateway.OpenPositions(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("open positions fetch failed, symbol skipped")
		return
	}
	limits, err := e.gateway.SymbolLimits(ctx, symbol)
	if err != nil {
		e.logger.Error().Err(err).Str("symbol", symbol).Msg("symbol limits fetch failed, symbol skipped")
		return
	}

	result := e.validator.Validate(selected, account, len(open), tick, limits)
	if !result.Valid {
		metrics.SignalsRejected.WithLabelValues(symbol).Inc()
		e.bus.Publish(events.Event{
			Type: events.EventSignalRejected,
			Data: map[string]interface{}{"symbol": symbol, "reason": result.Reason},
		})
		e.logger.Info().Str("symbol", symbol).Str("reason", result.Reason).Msg("signal rejected")
		return
	}

	e.execute(ctx, result.AdjustedSignal, result.PositionSize)
}

func (e *Engine) execute(ctx context.Context, sig strategy.Signal, size float64) {
	order := market.OrderRequest{
		Symbol:     sig.Symbol,
		Side:       sig.Action.Side(),
		Volume:     size,
		Price:      sig.Entry,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
		Comment:    sig.Strategy,
	}
	res, err := e.gateway.SubmitMarketOrder(ctx, order)
	if err != nil {
		e.logger.Error().Err(err).Str("symbol", sig.Symbol).Msg("order submission failed")
		e.bus.PublishError("engine", "order submission failed: "+err.Error())
		return
	}

	entry := &HistoryEntry{
		Signal:        sig,
		Ticket:        res.Ticket,
		Size:          size,
		ExecutionTime: time.Now(),
	}
	e.mu.Lock()
	e.executed[res.Ticket] = entry
	e.mu.Unlock()

	if e.store != nil {
		if err := e.store.SaveExecution(ctx, *entry); err != nil {
			e.logger.Error().Err(err).Int64("ticket", res.Ticket).Msg("execution persist failed")
		}
	}

	metrics.TradesExecuted.WithLabelValues(sig.Strategy, sig.Symbol, string(order.Side)).Inc()
	e.bus.PublishTradeOpened(sig.Symbol, string(order.Side), res.Ticket, res.Price, size)
	e.logger.Info().
		Int64("ticket", res.Ticket).
		Str("symbol", sig.Symbol).
		Str("side", string(order.Side)).
		Float64("size", size).
		Float64("entry", res.Price).
		Msg("trade opened")
}

func (e *Engine) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.runMonitorCycle(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// runMonitorCycle refreshes daily risk state, supervises open positions and
// resolves outcomes for tickets that left the live position set.
func (e *Engine) runMonitorCycle(ctx context.Context) {
	account, err := e.gateway.AccountSnapshot(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("account snapshot failed, monitor cycle skipped")
		return
	}
	metrics.AccountBalance.Set(account.Balance)

	today := dayOf(time.Now())
	e.mu.Lock()
	newDay := !today.Equal(e.currentDay)
	if newDay {
		e.currentDay = today
	}
	e.mu.Unlock()
	if newDay {
		e.validator.ResetDay(account.Balance)
		e.bus.Publish(events.Event{Type: events.EventDailyReset, Data: map[string]interface{}{"balance": account.Balance}})
	}
	e.validator.UpdateDailyPL(account.Balance)

	e.positions.Check(ctx, e.validator.State().DayStartBalance)
	e.resolveOutcomes(ctx)
}

// resolveOutcomes diffs the live ticket set against executed signals. A
// ticket that disappeared closed; its last observed profit decides win or
// loss and feeds the arbiter's weights.
func (e *Engine) resolveOutcomes(ctx context.Context) {
	open, err := e.gateway.OpenPositions(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("open positions fetch failed, outcomes deferred")
		return
	}
	metrics.OpenPositions.Set(float64(len(open)))

	live := make(map[int64]bool, len(open))
	e.mu.Lock()
	for _, pos := range open {
		live[pos.Ticket] = true
		if _, tracked := e.executed[pos.Ticket]; tracked {
			e.lastProfit[pos.Ticket] = pos.Profit
		}
	}
	var closed []*HistoryEntry
	for ticket, entry := range e.executed {
		if live[ticket] {
			continue
		}
		profit := e.lastProfit[ticket]
		result := "loss"
		if profit > 0 {
			result = "win"
		}
		entry.Outcome = &Outcome{Result: result, Profit: profit, CloseTime: time.Now()}
		closed = append(closed, entry)
		delete(e.executed, ticket)
		delete(e.lastProfit, ticket)
	}
	e.mu.Unlock()

	for _, entry := range closed {
		e.arbiter.RecordOutcome(entry.Signal.Strategy, entry.Signal.Symbol, entry.Outcome.Profit)
		metrics.TradesResolved.WithLabelValues(entry.Signal.Strategy, entry.Outcome.Result).Inc()
		e.bus.PublishTradeClosed(entry.Signal.Symbol, entry.Signal.Strategy, entry.Ticket, entry.Outcome.Profit)
		if e.store != nil {
			if err := e.store.SaveOutcome(ctx, entry.Ticket, *entry.Outcome); err != nil {
				e.logger.Error().Err(err).Int64("ticket", entry.Ticket).Msg("outcome persist failed")
			}
		}
		e.logger.Info().
			Int64("ticket", entry.Ticket).
			Str("symbol", entry.Signal.Symbol).
			Str("result", entry.Outcome.Result).
			Float64("profit", entry.Outcome.Profit).
			Msg("trade outcome resolved")
	}
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
