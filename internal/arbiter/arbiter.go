// Package arbiter scores competing candidate signals with learned weights
// and adjusts those weights from trade outcomes.
package arbiter

import (
	"sync"

	"github.com/rs/zerolog"

	"smc-trading-engine/internal/strategy"
)

const (
	minWeight = 0.1
	maxWeight = 2.0

	strategyWinStep  = 0.05
	strategyLossStep = 0.02
	symbolWinStep    = 0.03
	symbolLossStep   = 0.01
)

// Arbiter selects one signal per cycle from the candidates of all active
// strategies. Scoring multiplies signal confidence by a per-strategy weight,
// a per-strategy-per-symbol weight and the caller's market condition factor.
// Weights start at 1.0 and move with outcome feedback, clamped to [0.1, 2.0].
// Wins move weights up more than losses move them down so a single losing
// trade never collapses a strategy's standing.
type Arbiter struct {
	mu              sync.Mutex
	logger          zerolog.Logger
	strategyWeights map[string]float64
	symbolWeights   map[string]float64
	stats           map[string]*strategyStats
}

type strategyStats struct {
	trades      int
	wins        int
	grossProfit float64
	grossLoss   float64
	equity      float64
	peak        float64
	maxDrawdown float64
}

// Performance is the per-strategy outcome summary
type Performance struct {
	TotalTrades  int     `json:"total_trades"`
	Wins         int     `json:"wins"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
	NetProfit    float64 `json:"net_profit"`
	MaxDrawdown  float64 `json:"max_drawdown"`
}

// New returns an arbiter with all weights at their neutral 1.0
func New(logger zerolog.Logger) *Arbiter {
	return &Arbiter{
		logger:          logger.With().Str("component", "arbiter").Logger(),
		strategyWeights: make(map[string]float64),
		symbolWeights:   make(map[string]float64),
		stats:           make(map[string]*strategyStats),
	}
}

// Select picks the highest scoring candidate. With one candidate it is
// chosen outright; ties go to the earliest candidate in the slice. The
// second return is false when candidates is empty.
func (a *Arbiter) Select(candidates []strategy.Signal, marketFactor float64) (strategy.Signal, bool) {
	if len(candidates) == 0 {
		return strategy.Signal{}, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if len(candidates) == 1 {
		return candidates[0], true
	}

	best := candidates[0]
	bestScore := a.score(best, marketFactor)
	for _, c := range candidates[1:] {
		if s := a.score(c, marketFactor); s > bestScore {
			best, bestScore = c, s
		}
	}

	a.logger.Debug().
		Str("strategy", best.Strategy).
		Str("symbol", best.Symbol).
		Float64("score", bestScore).
		Int("candidates", len(candidates)).
		Msg("signal selected")
	return best, true
}

// Score returns the current score of a signal under the given market factor
func (a *Arbiter) Score(sig strategy.Signal, marketFactor float64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.score(sig, marketFactor)
}

func (a *Arbiter) score(sig strategy.Signal, marketFactor float64) float64 {
	return sig.Confidence *
		a.weight(a.strategyWeights, sig.Strategy) *
		a.weight(a.symbolWeights, symbolKey(sig.Strategy, sig.Symbol)) *
		marketFactor
}

// RecordOutcome feeds a resolved trade back into the weights and the
// per-strategy performance stats. A profitable close counts as a win.
func (a *Arbiter) RecordOutcome(strategyName, symbol string, profit float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	win := profit > 0
	skey := symbolKey(strategyName, symbol)
	if win {
		a.strategyWeights[strategyName] = clamp(a.weight(a.strategyWeights, strategyName) + strategyWinStep)
		a.symbolWeights[skey] = clamp(a.weight(a.symbolWeights, skey) + symbolWinStep)
	} else {
		a.strategyWeights[strategyName] = clamp(a.weight(a.strategyWeights, strategyName) - strategyLossStep)
		a.symbolWeights[skey] = clamp(a.weight(a.symbolWeights, skey) - symbolLossStep)
	}

	st, ok := a.stats[strategyName]
	if !ok {
		st = &strategyStats{}
		a.stats[strategyName] = st
	}
	st.trades++
	if win {
		st.wins++
		st.grossProfit += profit
	} else {
		st.grossLoss += -profit
	}
	st.equity += profit
	if st.equity > st.peak {
		st.peak = st.equity
	}
	if dd := st.peak - st.equity; dd > st.maxDrawdown {
		st.maxDrawdown = dd
	}

	a.logger.Info().
		Str("strategy", strategyName).
		Str("symbol", symbol).
		Bool("win", win).
		Float64("profit", profit).
		Float64("strategy_weight", a.strategyWeights[strategyName]).
		Float64("symbol_weight", a.symbolWeights[skey]).
		Msg("outcome recorded")
}

// StrategyWeight returns the learned weight for a strategy
func (a *Arbiter) StrategyWeight(strategyName string) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.weight(a.strategyWeights, strategyName)
}

// SymbolWeight returns the learned per-symbol weight for a strategy
func (a *Arbiter) SymbolWeight(strategyName, symbol string) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.weight(a.symbolWeights, symbolKey(strategyName, symbol))
}

// Performance returns the outcome summary for every strategy that has
// resolved at least one trade. With no recorded losses the profit factor is
// the gross profit itself.
func (a *Arbiter) Performance() map[string]Performance {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]Performance, len(a.stats))
	for name, st := range a.stats {
		p := Performance{
			TotalTrades: st.trades,
			Wins:        st.wins,
			NetProfit:   st.grossProfit - st.grossLoss,
			MaxDrawdown: st.maxDrawdown,
		}
		if st.trades > 0 {
			p.WinRate = float64(st.wins) / float64(st.trades)
		}
		if st.grossLoss > 0 {
			p.ProfitFactor = st.grossProfit / st.grossLoss
		} else {
			p.ProfitFactor = st.grossProfit
		}
		out[name] = p
	}
	return out
}

func (a *Arbiter) weight(m map[string]float64, key string) float64 {
	if w, ok := m[key]; ok {
		return w
	}
	return 1.0
}

func symbolKey(strategyName, symbol string) string {
	return symbol + "|" + strategyName
}

func clamp(w float64) float64 {
	if w < minWeight {
		return minWeight
	}
	if w > maxWeight {
		return maxWeight
	}
	return w
}
