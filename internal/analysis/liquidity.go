package analysis

import "smc-trading-engine/internal/market"

// ZoneKind classifies a liquidity zone
type ZoneKind string

const (
	Support    ZoneKind = "support"
	Resistance ZoneKind = "resistance"
)

const (
	// pivotWindow is the number of bars on each side a pivot must strictly
	// exceed
	pivotWindow = 3
	// touchTolerance is the relative distance at which a later bar counts
	// as touching the pivot level (0.1%)
	touchTolerance = 0.001
)

// LiquidityZone is a support/resistance level likely to contain resting stop
// or limit orders
type LiquidityZone struct {
	Kind       ZoneKind
	Level      float64
	Strength   float64 // 0..100
	TouchCount int
}

// detectLiquidityZones derives zones from strict pivot highs and lows.
// Strength is 25 per later touch of the level, capped at 100.
func detectLiquidityZones(bars []market.Bar) []LiquidityZone {
	n := len(bars)
	var zones []LiquidityZone

	for i := pivotWindow; i < n-pivotWindow; i++ {
		if isPivotHigh(bars, i) {
			touches := countTouches(bars, i, bars[i].High)
			zones = append(zones, LiquidityZone{
				Kind:       Resistance,
				Level:      bars[i].High,
				Strength:   zoneStrength(touches),
				TouchCount: touches,
			})
		}
		if isPivotLow(bars, i) {
			touches := countTouches(bars, i, bars[i].Low)
			zones = append(zones, LiquidityZone{
				Kind:       Support,
				Level:      bars[i].Low,
				Strength:   zoneStrength(touches),
				TouchCount: touches,
			})
		}
	}

	return zones
}

// isPivotHigh reports whether the bar's high strictly exceeds the highs of
// the 3 bars before and after it
func isPivotHigh(bars []market.Bar, i int) bool {
	for j := i - pivotWindow; j <= i+pivotWindow; j++ {
		if j == i {
			continue
		}
		if bars[j].High >= bars[i].High {
			return false
		}
	}
	return true
}

func isPivotLow(bars []market.Bar, i int) bool {
	for j := i - pivotWindow; j <= i+pivotWindow; j++ {
		if j == i {
			continue
		}
		if bars[j].Low <= bars[i].Low {
			return false
		}
	}
	return true
}

// countTouches counts later bars whose high or low comes within 0.1% of the
// level
func countTouches(bars []market.Bar, pivot int, level float64) int {
	tolerance := level * touchTolerance
	count := 0
	for j := pivot + 1; j < len(bars); j++ {
		if abs(bars[j].High-level) <= tolerance || abs(bars[j].Low-level) <= tolerance {
			count++
		}
	}
	return count
}

func zoneStrength(touches int) float64 {
	strength := 25.0 * float64(touches)
	if strength > 100 {
		strength = 100
	}
	return strength
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
