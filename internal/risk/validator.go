// Package risk sizes and validates selected signals against account level
// limits, and supervises open positions for break-even and emergency exits.
package risk

import (
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"smc-trading-engine/internal/market"
	"smc-trading-engine/internal/strategy"
)

// Parameters is the externally supplied risk configuration, read-only to the
// validator
type Parameters struct {
	MaxRiskPerTradePct float64 `json:"max_risk_per_trade_pct"`
	MaxDailyLossPct    float64 `json:"max_daily_loss_pct"`
	MaxOpenPositions   int     `json:"max_open_positions"`
	MinRiskReward      float64 `json:"min_risk_reward"`
	MaxSpreadPips      float64 `json:"max_spread_pips"`
	NewsFilterEnabled  bool    `json:"news_filter_enabled"`
}

// DailyState tracks the day's risk budget. TradingBlocked is sticky: once
// the daily loss limit trips it, only ResetDay clears it.
type DailyState struct {
	DayStartBalance float64
	DailyPL         float64
	TradingBlocked  bool
}

// ValidationResult is the terminal output of validating one candidate
type ValidationResult struct {
	Valid          bool
	Reason         string
	AdjustedSignal strategy.Signal
	PositionSize   float64
}

// Validator runs the ordered pre-trade checks and computes position size
type Validator struct {
	mu     sync.Mutex
	params Parameters
	state  DailyState
	logger zerolog.Logger
}

// NewValidator creates a validator with the day anchored at the given
// starting balance
func NewValidator(params Parameters, dayStartBalance float64, logger zerolog.Logger) *Validator {
	return &Validator{
		params: params,
		state:  DailyState{DayStartBalance: dayStartBalance},
		logger: logger.With().Str("component", "risk_validator").Logger(),
	}
}

// Validate runs the ordered checks against one selected signal,
// short-circuiting on the first failure. On success the returned result
// carries a derived signal whose target satisfies the minimum reward:risk,
// plus the computed position size. The input signal is never mutated.
func (v *Validator) Validate(sig strategy.Signal, account market.AccountSnapshot, openPositions int, tick market.Tick, limits market.SymbolLimits) ValidationResult {
	v.mu.Lock()
	defer v.mu.Unlock()

	// 1. sticky daily block
	if v.state.TradingBlocked {
		return reject("trading blocked for the day")
	}

	// 2. daily loss limit, measured against the day's starting balance
	lossLimit := v.state.DayStartBalance * v.params.MaxDailyLossPct / 100
	if loss := v.state.DayStartBalance - account.Balance; loss >= lossLimit && lossLimit > 0 {
		v.state.TradingBlocked = true
		v.logger.Warn().
			Float64("loss", loss).
			Float64("limit", lossLimit).
			Msg("daily loss limit reached, trading blocked")
		return reject(fmt.Sprintf("daily loss %.2f reached limit %.2f", loss, lossLimit))
	}

	// 3. position count
	if openPositions >= v.params.MaxOpenPositions {
		return reject(fmt.Sprintf("max open positions reached (%d/%d)", openPositions, v.params.MaxOpenPositions))
	}

	// 4. spread
	if limits.PipSize > 0 {
		if spreadPips := tick.Spread / limits.PipSize; spreadPips > v.params.MaxSpreadPips {
			return reject(fmt.Sprintf("spread %.1f pips exceeds max %.1f", spreadPips, v.params.MaxSpreadPips))
		}
	}

	// 5. position sizing from the per-trade risk budget
	stopDistance := sig.StopDistance()
	if stopDistance <= 0 {
		return reject("degenerate stop distance")
	}
	riskAmount := account.Equity * v.params.MaxRiskPerTradePct / 100
	size := riskAmount / stopDistance
	size = clampVolume(size, limits)
	if size <= 0 {
		return reject("position size rounds to zero")
	}

	// 6. target extension: never touches the stop
	adjusted := sig
	if adjusted.RewardRisk() < v.params.MinRiskReward {
		if adjusted.Action == strategy.ActionSell {
			adjusted.TakeProfit = adjusted.Entry - v.params.MinRiskReward*stopDistance
		} else {
			adjusted.TakeProfit = adjusted.Entry + v.params.MinRiskReward*stopDistance
		}
	}

	return ValidationResult{Valid: true, AdjustedSignal: adjusted, PositionSize: size}
}

// UpdateDailyPL refreshes the tracked daily profit figure
func (v *Validator) UpdateDailyPL(currentBalance float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.DailyPL = currentBalance - v.state.DayStartBalance
}

// ResetDay re-anchors the day at the given balance and clears the sticky
// trading block
func (v *Validator) ResetDay(balance float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = DailyState{DayStartBalance: balance}
	v.logger.Info().Float64("balance", balance).Msg("daily risk state reset")
}

// State returns a copy of the current daily risk state
func (v *Validator) State() DailyState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Params returns the validator's risk parameters
func (v *Validator) Params() Parameters {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.params
}

func clampVolume(size float64, limits market.SymbolLimits) float64 {
	if size < limits.MinVolume {
		size = limits.MinVolume
	}
	if limits.MaxVolume > 0 && size > limits.MaxVolume {
		size = limits.MaxVolume
	}
	if limits.VolumeStep > 0 {
		size = math.Round(size/limits.VolumeStep) * limits.VolumeStep
	}
	return size
}

func reject(reason string) ValidationResult {
	return ValidationResult{Valid: false, Reason: reason}
}
