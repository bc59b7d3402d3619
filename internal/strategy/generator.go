package strategy

import (
	"fmt"

	"smc-trading-engine/internal/analysis"
	"smc-trading-engine/internal/market"
)

const (
	// MinConfidence is the floor below which no candidate is emitted
	MinConfidence = 0.5
	// MinRewardRisk is the minimum reward:risk ratio for a candidate
	MinRewardRisk = 1.5

	// blockEntryExtension widens the entry zone by 10% of the block range
	// on each side
	blockEntryExtension = 0.10
	// blockStopPadding places the stop 20% of the block range beyond the
	// block edge
	blockStopPadding = 0.20
	// grabTolerance is the relative distance (0.1%) a breakout must exceed
	// a zone level by to count as a liquidity grab
	grabTolerance = 0.001
	// gapFillConfidence is the fixed confidence of gap-fill entries
	gapFillConfidence = 0.65
)

// Generator builds candidate signals from one cycle's structure snapshot.
// Each structure category yields at most one candidate; the first matching
// structure in a category is the candidate, and it is dropped entirely when
// it fails the confidence or reward:risk floor.
type Generator struct {
	strategyName string
}

// NewGenerator creates a generator stamping signals with the given strategy
// name
func NewGenerator(strategyName string) *Generator {
	return &Generator{strategyName: strategyName}
}

// OrderBlockEntry emits a signal when price sits inside the entry zone of an
// untested order block. The stop goes 20% of the block range beyond the block
// edge; the target sits at twice the entry-to-edge distance.
func (g *Generator) OrderBlockEntry(symbol string, price float64, snap *analysis.Snapshot) (Signal, bool) {
	for _, block := range snap.OrderBlocks {
		if block.Tested || !block.Contains(price, blockEntryExtension) {
			continue
		}
		blockRange := block.PriceHigh - block.PriceLow
		if blockRange <= 0 {
			continue
		}

		var sig Signal
		if block.Direction == analysis.Bullish {
			stop := block.PriceLow - blockRange*blockStopPadding
			target := price + 2*(price-block.PriceLow)
			sig = NewSignal(g.strategyName, symbol, ActionBuy, block.Strength/100, price, stop, target,
				fmt.Sprintf("bullish order block %.5f-%.5f (strength %.0f)", block.PriceLow, block.PriceHigh, block.Strength))
		} else {
			stop := block.PriceHigh + blockRange*blockStopPadding
			target := price - 2*(block.PriceHigh-price)
			sig = NewSignal(g.strategyName, symbol, ActionSell, block.Strength/100, price, stop, target,
				fmt.Sprintf("bearish order block %.5f-%.5f (strength %.0f)", block.PriceLow, block.PriceHigh, block.Strength))
		}
		return sig, g.accept(sig)
	}
	return Signal{}, false
}

// LiquidityGrabReversal emits a counter-trend signal when the latest bar
// swept beyond a zone level by more than 0.1% and closed back against the
// breakout. The stop goes just beyond the broken level; the target sits at
// 1.5x the grab distance.
func (g *Generator) LiquidityGrabReversal(symbol string, price float64, last market.Bar, snap *analysis.Snapshot) (Signal, bool) {
	for _, zone := range snap.LiquidityZones {
		buffer := zone.Level * grabTolerance

		if zone.Kind == analysis.Resistance && last.High > zone.Level+buffer && last.Close < zone.Level {
			grab := last.High - zone.Level
			stop := zone.Level + buffer
			target := price - 1.5*grab
			sig := NewSignal(g.strategyName, symbol, ActionSell, grabConfidence(zone.Strength), price, stop, target,
				fmt.Sprintf("liquidity grab above %.5f rejected", zone.Level))
			return sig, g.accept(sig)
		}

		if zone.Kind == analysis.Support && last.Low < zone.Level-buffer && last.Close > zone.Level {
			grab := zone.Level - last.Low
			stop := zone.Level - buffer
			target := price + 1.5*grab
			sig := NewSignal(g.strategyName, symbol, ActionBuy, grabConfidence(zone.Strength), price, stop, target,
				fmt.Sprintf("liquidity grab below %.5f rejected", zone.Level))
			return sig, g.accept(sig)
		}
	}
	return Signal{}, false
}

// GapFillEntry emits a signal when price re-enters an unfilled fair value
// gap, in the gap's directional bias. The stop goes half the gap width beyond
// the far edge; the target sits at twice the gap width. The triggering gap is
// returned so the caller can mark it filled.
func (g *Generator) GapFillEntry(symbol string, price float64, snap *analysis.Snapshot) (Signal, analysis.FairValueGap, bool) {
	for _, gap := range snap.Gaps {
		if gap.Filled || !gap.Contains(price) {
			continue
		}
		width := gap.Width()
		if width <= 0 {
			continue
		}

		var sig Signal
		if gap.Direction == analysis.Bullish {
			sig = NewSignal(g.strategyName, symbol, ActionBuy, gapFillConfidence, price,
				gap.Bottom-width/2, price+2*width,
				fmt.Sprintf("bullish fair value gap fill %.5f-%.5f", gap.Bottom, gap.Top))
		} else {
			sig = NewSignal(g.strategyName, symbol, ActionSell, gapFillConfidence, price,
				gap.Top+width/2, price-2*width,
				fmt.Sprintf("bearish fair value gap fill %.5f-%.5f", gap.Bottom, gap.Top))
		}
		return sig, gap, g.accept(sig)
	}
	return Signal{}, analysis.FairValueGap{}, false
}

// grabConfidence maps zone strength [0,100] onto [0.5,1.0]
func grabConfidence(strength float64) float64 {
	return 0.5 + strength/200
}

// accept applies the shared candidate floors: confidence, reward:risk, and
// level sanity for the signal's direction
func (g *Generator) accept(sig Signal) bool {
	if sig.Confidence < MinConfidence {
		return false
	}
	switch sig.Action {
	case ActionBuy:
		if !(sig.StopLoss < sig.Entry && sig.TakeProfit > sig.Entry) {
			return false
		}
	case ActionSell:
		if !(sig.StopLoss > sig.Entry && sig.TakeProfit < sig.Entry) {
			return false
		}
	}
	return sig.RewardRisk() >= MinRewardRisk
}
