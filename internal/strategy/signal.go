package strategy

import (
	"time"

	"github.com/google/uuid"

	"smc-trading-engine/internal/market"
)

// Action is the trade action a signal calls for
type Action string

const (
	ActionBuy   Action = "BUY"
	ActionSell  Action = "SELL"
	ActionClose Action = "CLOSE"
)

// Side maps the action to an order side
func (a Action) Side() market.Side {
	if a == ActionSell {
		return market.SideSell
	}
	return market.SideBuy
}

// Signal is one candidate trade produced by a strategy. Signals are produced
// fresh each cycle and never mutated after emission; the risk validator
// returns a derived, adjusted copy.
type Signal struct {
	ID         string
	Symbol     string
	Action     Action
	Confidence float64 // 0..1
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	Strategy   string
	Reason     string
	Time       time.Time
}

// NewSignal creates a signal with a fresh ID and timestamp
func NewSignal(strategyName, symbol string, action Action, confidence, entry, stop, target float64, reason string) Signal {
	return Signal{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Action:     action,
		Confidence: confidence,
		Entry:      entry,
		StopLoss:   stop,
		TakeProfit: target,
		Strategy:   strategyName,
		Reason:     reason,
		Time:       time.Now(),
	}
}

// RewardRisk returns the reward:risk ratio, or 0 when the stop distance is
// degenerate
func (s Signal) RewardRisk() float64 {
	risk := s.Entry - s.StopLoss
	if risk < 0 {
		risk = -risk
	}
	if risk == 0 {
		return 0
	}
	reward := s.TakeProfit - s.Entry
	if reward < 0 {
		reward = -reward
	}
	return reward / risk
}

// StopDistance returns the entry-to-stop distance in price units
func (s Signal) StopDistance() float64 {
	d := s.Entry - s.StopLoss
	if d < 0 {
		return -d
	}
	return d
}
