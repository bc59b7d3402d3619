package analysis

import (
	"time"

	"smc-trading-engine/internal/market"
)

// FairValueGap is a three-bar price discontinuity interpreted as an imbalance
// likely to be revisited. A filled gap stays in the set but must not
// re-trigger.
type FairValueGap struct {
	Direction   Direction
	Top         float64
	Bottom      float64
	OriginIndex int
	OriginTime  time.Time
	Filled      bool
}

// Width returns the gap extent in price units
func (g FairValueGap) Width() float64 {
	return g.Top - g.Bottom
}

// Contains reports whether price sits inside the gap range
func (g FairValueGap) Contains(price float64) bool {
	return price >= g.Bottom && price <= g.Top
}

// detectGaps re-derives the gap candidate set from the window. A bullish gap
// needs bars[i-1].High < bars[i+1].Low with a bullish-bodied middle bar
// (symmetric for bearish). Fill status comes from later bars re-entering the
// gap range, combined with the detector's cross-cycle fill memory.
func (d *Detector) detectGaps(bars []market.Bar) []FairValueGap {
	n := len(bars)
	var gaps []FairValueGap

	for i := 1; i < n-1; i++ {
		prev, mid, next := bars[i-1], bars[i], bars[i+1]

		var gap FairValueGap
		switch {
		case prev.High < next.Low && mid.Bullish():
			gap = FairValueGap{
				Direction:   Bullish,
				Top:         next.Low,
				Bottom:      prev.High,
				OriginIndex: i,
				OriginTime:  mid.Time,
			}
		case prev.Low > next.High && mid.Bearish():
			gap = FairValueGap{
				Direction:   Bearish,
				Top:         prev.Low,
				Bottom:      next.High,
				OriginIndex: i,
				OriginTime:  mid.Time,
			}
		default:
			continue
		}

		key := gapKey{origin: gap.OriginTime.Unix(), direction: gap.Direction}
		gap.Filled = d.filledGaps[key]
		if !gap.Filled && gapFilledBy(bars, i, gap) {
			gap.Filled = true
			d.filledGaps[key] = true
		}

		gaps = append(gaps, gap)
	}

	return gaps
}

// gapFilledBy reports whether any bar after the gap's third bar re-entered
// the gap range
func gapFilledBy(bars []market.Bar, mid int, gap FairValueGap) bool {
	for j := mid + 2; j < len(bars); j++ {
		if gap.Direction == Bullish && bars[j].Low <= gap.Top {
			return true
		}
		if gap.Direction == Bearish && bars[j].High >= gap.Bottom {
			return true
		}
	}
	return false
}
