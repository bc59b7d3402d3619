package strategy

import (
	"testing"
	"time"

	"smc-trading-engine/internal/analysis"
	"smc-trading-engine/internal/market"
)

func approxEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}

// TestOrderBlockEntry verifies the stop, target and confidence levels of an
// entry into an untested bullish order block.
func TestOrderBlockEntry(t *testing.T) {
	gen := NewGenerator("test")
	snap := &analysis.Snapshot{
		OrderBlocks: []analysis.OrderBlock{{
			Direction: analysis.Bullish,
			PriceLow:  1.1000,
			PriceHigh: 1.1020,
			Strength:  80,
		}},
	}

	sig, ok := gen.OrderBlockEntry("EURUSD", 1.1018, snap)
	if !ok {
		t.Fatal("expected a candidate signal")
	}
	if sig.Action != ActionBuy {
		t.Errorf("Action = %s, want BUY", sig.Action)
	}
	if !approxEqual(sig.Confidence, 0.8) {
		t.Errorf("Confidence = %v, want 0.8", sig.Confidence)
	}
	// stop 20% of the range below the block low, target at twice the
	// entry-to-low distance
	if !approxEqual(sig.StopLoss, 1.0996) {
		t.Errorf("StopLoss = %v, want 1.0996", sig.StopLoss)
	}
	if !approxEqual(sig.TakeProfit, 1.1054) {
		t.Errorf("TakeProfit = %v, want 1.1054", sig.TakeProfit)
	}
	if rr := sig.RewardRisk(); rr < MinRewardRisk {
		t.Errorf("RewardRisk = %v, want >= %v", rr, MinRewardRisk)
	}
}

// TestOrderBlockTestedSkipped verifies that a block already tested by a later
// close never produces an entry.
func TestOrderBlockTestedSkipped(t *testing.T) {
	gen := NewGenerator("test")
	snap := &analysis.Snapshot{
		OrderBlocks: []analysis.OrderBlock{{
			Direction: analysis.Bullish,
			PriceLow:  1.1000,
			PriceHigh: 1.1020,
			Strength:  90,
			Tested:    true,
		}},
	}

	if _, ok := gen.OrderBlockEntry("EURUSD", 1.1018, snap); ok {
		t.Error("tested block produced a signal")
	}
}

// TestOrderBlockWeakRejected verifies the 0.5 confidence floor: a strength 40
// block maps to confidence 0.4 and is dropped.
func TestOrderBlockWeakRejected(t *testing.T) {
	gen := NewGenerator("test")
	snap := &analysis.Snapshot{
		OrderBlocks: []analysis.OrderBlock{{
			Direction: analysis.Bullish,
			PriceLow:  1.1000,
			PriceHigh: 1.1020,
			Strength:  40,
		}},
	}

	if _, ok := gen.OrderBlockEntry("EURUSD", 1.1018, snap); ok {
		t.Error("confidence 0.4 candidate passed the floor")
	}
}

// TestOrderBlockFirstMatchWins verifies that the first matching block in the
// snapshot's strength-ranked order supplies the single candidate.
func TestOrderBlockFirstMatchWins(t *testing.T) {
	gen := NewGenerator("test")
	snap := &analysis.Snapshot{
		OrderBlocks: []analysis.OrderBlock{
			{Direction: analysis.Bullish, PriceLow: 1.1000, PriceHigh: 1.1020, Strength: 90},
			{Direction: analysis.Bullish, PriceLow: 1.0990, PriceHigh: 1.1025, Strength: 70},
		},
	}

	sig, ok := gen.OrderBlockEntry("EURUSD", 1.1018, snap)
	if !ok {
		t.Fatal("expected a candidate signal")
	}
	if !approxEqual(sig.Confidence, 0.9) {
		t.Errorf("Confidence = %v, want 0.9 from the strongest block", sig.Confidence)
	}
}

// TestLiquidityGrabSell verifies the reversal levels after a sweep above a
// resistance level that closes back below it.
func TestLiquidityGrabSell(t *testing.T) {
	gen := NewGenerator("test")
	snap := &analysis.Snapshot{
		LiquidityZones: []analysis.LiquidityZone{{
			Kind:     analysis.Resistance,
			Level:    1.2000,
			Strength: 60,
		}},
	}
	last := market.Bar{
		Time:  time.Now(),
		Open:  1.2010,
		High:  1.2030,
		Low:   1.1985,
		Close: 1.1990,
	}

	sig, ok := gen.LiquidityGrabReversal("EURUSD", 1.1990, last, snap)
	if !ok {
		t.Fatal("expected a reversal signal")
	}
	if sig.Action != ActionSell {
		t.Errorf("Action = %s, want SELL", sig.Action)
	}
	if !approxEqual(sig.Confidence, 0.8) {
		t.Errorf("Confidence = %v, want 0.8", sig.Confidence)
	}
	// stop just beyond the broken level, target at 1.5x the grab distance
	if !approxEqual(sig.StopLoss, 1.2012) {
		t.Errorf("StopLoss = %v, want 1.2012", sig.StopLoss)
	}
	if !approxEqual(sig.TakeProfit, 1.1945) {
		t.Errorf("TakeProfit = %v, want 1.1945", sig.TakeProfit)
	}
}

// TestLiquidityGrabRequiresCloseBack verifies that a breakout bar still
// closing beyond the level is a breakout, not a grab.
func TestLiquidityGrabRequiresCloseBack(t *testing.T) {
	gen := NewGenerator("test")
	snap := &analysis.Snapshot{
		LiquidityZones: []analysis.LiquidityZone{{
			Kind:     analysis.Resistance,
			Level:    1.2000,
			Strength: 60,
		}},
	}
	last := market.Bar{Open: 1.1995, High: 1.2030, Low: 1.1990, Close: 1.2020}

	if _, ok := gen.LiquidityGrabReversal("EURUSD", 1.2020, last, snap); ok {
		t.Error("breakout close produced a reversal signal")
	}
}

// TestGapFillBuy verifies the entry levels when price re-enters an unfilled
// bullish fair value gap.
func TestGapFillBuy(t *testing.T) {
	gen := NewGenerator("test")
	snap := &analysis.Snapshot{
		Gaps: []analysis.FairValueGap{{
			Direction: analysis.Bullish,
			Top:       1.0960,
			Bottom:    1.0950,
		}},
	}

	sig, gap, ok := gen.GapFillEntry("EURUSD", 1.0952, snap)
	if !ok {
		t.Fatal("expected a gap fill signal")
	}
	if sig.Action != ActionBuy {
		t.Errorf("Action = %s, want BUY", sig.Action)
	}
	if !approxEqual(sig.Confidence, 0.65) {
		t.Errorf("Confidence = %v, want 0.65", sig.Confidence)
	}
	// stop half the width beyond the far edge, target at twice the width
	if !approxEqual(sig.StopLoss, 1.0945) {
		t.Errorf("StopLoss = %v, want 1.0945", sig.StopLoss)
	}
	if !approxEqual(sig.TakeProfit, 1.0972) {
		t.Errorf("TakeProfit = %v, want 1.0972", sig.TakeProfit)
	}
	if gap.Bottom != 1.0950 || gap.Top != 1.0960 {
		t.Errorf("returned gap %v-%v, want the triggering gap", gap.Bottom, gap.Top)
	}
}

// TestGapFillSkipsFilled verifies that a filled gap never re-triggers.
func TestGapFillSkipsFilled(t *testing.T) {
	gen := NewGenerator("test")
	snap := &analysis.Snapshot{
		Gaps: []analysis.FairValueGap{{
			Direction: analysis.Bullish,
			Top:       1.0960,
			Bottom:    1.0950,
			Filled:    true,
		}},
	}

	if _, _, ok := gen.GapFillEntry("EURUSD", 1.0952, snap); ok {
		t.Error("filled gap produced a signal")
	}
}
