package analysis

import (
	"sort"

	"smc-trading-engine/internal/market"
)

// maxOrderBlocks bounds the retained block set per cycle
const maxOrderBlocks = 10

// OrderBlock is a price region where a strong rejection candle was followed
// by continuation, read as concentrated institutional order flow
type OrderBlock struct {
	Direction   Direction
	PriceHigh   float64
	PriceLow    float64
	OriginIndex int
	Strength    float64 // 0..100
	Tested      bool
}

// Contains reports whether price sits inside the block's range extended by
// the given fraction of the range on each side
func (ob OrderBlock) Contains(price, extension float64) bool {
	pad := (ob.PriceHigh - ob.PriceLow) * extension
	return price >= ob.PriceLow-pad && price <= ob.PriceHigh+pad
}

// detectOrderBlocks scans the window for rejection candles with continuation.
// A bullish block needs a lower wick of at least half the body, a bullish
// close, and at least 2 of the following 3 bars closing above the block high.
// Only the 10 strongest blocks are retained.
func detectOrderBlocks(bars []market.Bar) []OrderBlock {
	n := len(bars)
	var blocks []OrderBlock

	for i := 0; i < n-1; i++ {
		bar := bars[i]
		body := bar.Body()
		if body <= 0 {
			continue
		}

		if bar.Bullish() && bar.LowerWick() >= body*0.5 {
			if closesBeyond(bars, i, bar.High, true) >= 2 {
				blocks = append(blocks, OrderBlock{
					Direction:   Bullish,
					PriceHigh:   bar.High,
					PriceLow:    bar.Low,
					OriginIndex: i,
					Strength:    blockStrength(bar, bar.LowerWick(), i, n),
					Tested:      blockTested(bars, i, Bullish),
				})
			}
		}

		if bar.Bearish() && bar.UpperWick() >= body*0.5 {
			if closesBeyond(bars, i, bar.Low, false) >= 2 {
				blocks = append(blocks, OrderBlock{
					Direction:   Bearish,
					PriceHigh:   bar.High,
					PriceLow:    bar.Low,
					OriginIndex: i,
					Strength:    blockStrength(bar, bar.UpperWick(), i, n),
					Tested:      blockTested(bars, i, Bearish),
				})
			}
		}
	}

	// Strongest first; equal strength keeps the more recent block ahead
	sort.SliceStable(blocks, func(a, b int) bool {
		if blocks[a].Strength != blocks[b].Strength {
			return blocks[a].Strength > blocks[b].Strength
		}
		return blocks[a].OriginIndex > blocks[b].OriginIndex
	})
	if len(blocks) > maxOrderBlocks {
		blocks = blocks[:maxOrderBlocks]
	}
	return blocks
}

// closesBeyond counts how many of the up-to-3 bars after origin close beyond
// the level (above when up, below otherwise)
func closesBeyond(bars []market.Bar, origin int, level float64, up bool) int {
	count := 0
	for j := origin + 1; j <= origin+3 && j < len(bars); j++ {
		if up && bars[j].Close > level {
			count++
		}
		if !up && bars[j].Close < level {
			count++
		}
	}
	return count
}

// blockStrength scores a block: volume bonus (+20 above 1000, else +10),
// wick-to-body ratio x30, recency fraction x20, capped at 100
func blockStrength(bar market.Bar, wick float64, index, window int) float64 {
	strength := 10.0
	if bar.Volume > 1000 {
		strength = 20.0
	}
	strength += (wick / bar.Body()) * 30
	strength += (float64(index) / float64(window)) * 20
	if strength > 100 {
		strength = 100
	}
	return strength
}

// blockTested reports whether price closed back inside the block zone after
// the confirmation bars, meaning the zone has already been consumed
func blockTested(bars []market.Bar, origin int, dir Direction) bool {
	block := bars[origin]
	for j := origin + 4; j < len(bars); j++ {
		if dir == Bullish && bars[j].Close <= block.High && bars[j].Close >= block.Low {
			return true
		}
		if dir == Bearish && bars[j].Close >= block.Low && bars[j].Close <= block.High {
			return true
		}
	}
	return false
}
