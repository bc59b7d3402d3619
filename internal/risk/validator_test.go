package risk

import (
	"testing"

	"github.com/rs/zerolog"

	"smc-trading-engine/internal/market"
	"smc-trading-engine/internal/strategy"
)

func testParams() Parameters {
	return Parameters{
		MaxRiskPerTradePct: 1.0,
		MaxDailyLossPct:    6.0,
		MaxOpenPositions:   5,
		MinRiskReward:      1.5,
		MaxSpreadPips:      3.0,
	}
}

func testLimits() market.SymbolLimits {
	return market.SymbolLimits{MinVolume: 0.01, MaxVolume: 5.0, VolumeStep: 0.01, PipSize: 0.0001}
}

func buySignal() strategy.Signal {
	return strategy.Signal{
		Symbol:     "EURUSD",
		Action:     strategy.ActionBuy,
		Confidence: 0.8,
		Entry:      1.1000,
		StopLoss:   1.0950,
		TakeProfit: 1.1100,
		Strategy:   "smc",
	}
}

func tightTick() market.Tick {
	return market.Tick{Symbol: "EURUSD", Bid: 1.0999, Ask: 1.1001, Spread: 0.0002}
}

// TestValidateAccepts verifies a clean pass: size computed from the risk
// budget and clamped to the symbol maximum, target left alone.
func TestValidateAccepts(t *testing.T) {
	v := NewValidator(testParams(), 10000, zerolog.Nop())

	res := v.Validate(buySignal(), market.AccountSnapshot{Balance: 10000, Equity: 10000}, 0, tightTick(), testLimits())
	if !res.Valid {
		t.Fatalf("rejected: %s", res.Reason)
	}
	// 1% of 10000 over a 0.0050 stop clamps to the 5.0 max volume
	if res.PositionSize != 5.0 {
		t.Errorf("PositionSize = %v, want 5.0", res.PositionSize)
	}
	if res.AdjustedSignal.TakeProfit != 1.1100 {
		t.Errorf("target changed to %v on an already-valid reward:risk", res.AdjustedSignal.TakeProfit)
	}
}

// TestValidateDailyLossBlocks verifies that reaching the daily loss limit
// rejects the trade and sets a sticky block that only ResetDay clears.
func TestValidateDailyLossBlocks(t *testing.T) {
	v := NewValidator(testParams(), 10000, zerolog.Nop())

	// balance down 600 on a 10000 day start trips the 6% limit
	res := v.Validate(buySignal(), market.AccountSnapshot{Balance: 9400, Equity: 9400}, 0, tightTick(), testLimits())
	if res.Valid {
		t.Fatal("trade accepted past the daily loss limit")
	}
	if !v.State().TradingBlocked {
		t.Fatal("daily loss did not set the trading block")
	}

	// a recovered balance must not unblock within the same day
	res = v.Validate(buySignal(), market.AccountSnapshot{Balance: 10500, Equity: 10500}, 0, tightTick(), testLimits())
	if res.Valid {
		t.Error("sticky block ignored after balance recovery")
	}

	v.ResetDay(10500)
	res = v.Validate(buySignal(), market.AccountSnapshot{Balance: 10500, Equity: 10500}, 0, tightTick(), testLimits())
	if !res.Valid {
		t.Errorf("rejected after daily reset: %s", res.Reason)
	}
}

// TestValidatePositionCount verifies the open-position ceiling.
func TestValidatePositionCount(t *testing.T) {
	v := NewValidator(testParams(), 10000, zerolog.Nop())

	res := v.Validate(buySignal(), market.AccountSnapshot{Balance: 10000, Equity: 10000}, 5, tightTick(), testLimits())
	if res.Valid {
		t.Error("trade accepted at the position ceiling")
	}
}

// TestValidateSpread verifies rejection when the live spread exceeds the pip
// limit.
func TestValidateSpread(t *testing.T) {
	v := NewValidator(testParams(), 10000, zerolog.Nop())

	wide := market.Tick{Symbol: "EURUSD", Bid: 1.0998, Ask: 1.1003, Spread: 0.0005}
	res := v.Validate(buySignal(), market.AccountSnapshot{Balance: 10000, Equity: 10000}, 0, wide, testLimits())
	if res.Valid {
		t.Error("trade accepted on a 5 pip spread with a 3 pip limit")
	}
}

// TestValidateSizeRounding verifies rounding to the volume step when the raw
// size falls inside the allowed range.
func TestValidateSizeRounding(t *testing.T) {
	v := NewValidator(testParams(), 10000, zerolog.Nop())

	sig := buySignal()
	sig.Entry = 150.00
	sig.StopLoss = 147.00
	sig.TakeProfit = 156.00
	limits := market.SymbolLimits{MinVolume: 0.01, MaxVolume: 100, VolumeStep: 0.01, PipSize: 0.01}
	tick := market.Tick{Symbol: "USDJPY", Bid: 149.99, Ask: 150.01, Spread: 0.02}

	res := v.Validate(sig, market.AccountSnapshot{Balance: 1000, Equity: 1000}, 0, tick, limits)
	if !res.Valid {
		t.Fatalf("rejected: %s", res.Reason)
	}
	// 10 risk budget over a 3.0 stop is 3.333..., rounded to 3.33
	if res.PositionSize < 3.3299 || res.PositionSize > 3.3301 {
		t.Errorf("PositionSize = %v, want 3.33", res.PositionSize)
	}
}

// TestValidateTargetExtension verifies that a thin target is pushed out to
// exactly the minimum reward:risk while the stop stays put.
func TestValidateTargetExtension(t *testing.T) {
	v := NewValidator(testParams(), 10000, zerolog.Nop())

	sig := buySignal()
	sig.TakeProfit = 1.1030 // reward:risk 0.6

	res := v.Validate(sig, market.AccountSnapshot{Balance: 10000, Equity: 10000}, 0, tightTick(), testLimits())
	if !res.Valid {
		t.Fatalf("rejected: %s", res.Reason)
	}
	want := 1.1000 + 1.5*0.0050
	if d := res.AdjustedSignal.TakeProfit - want; d < -1e-9 || d > 1e-9 {
		t.Errorf("TakeProfit = %v, want %v", res.AdjustedSignal.TakeProfit, want)
	}
	if res.AdjustedSignal.StopLoss != sig.StopLoss {
		t.Error("stop was altered during target extension")
	}
	if sig.TakeProfit != 1.1030 {
		t.Error("input signal was mutated")
	}
}
