package risk

import (
	"sync"

	"smc-trading-engine/internal/market"
)

// HighWaterTrailer is a water-mark trailing stop: it tracks the best price
// seen per ticket since tracking began, activates once unrealized profit
// exceeds the activation fraction of the entry price, and then trails the
// stop at a fixed fraction behind the water mark. Stops only tighten, never
// loosen.
type HighWaterTrailer struct {
	mu             sync.Mutex
	trailPercent   float64 // distance from the water mark, e.g. 0.005
	activatePct    float64 // unrealized profit fraction to activate
	marks          map[int64]float64
}

// NewHighWaterTrailer creates a trailer trailing trailPercent behind the
// water mark after activatePct unrealized profit
func NewHighWaterTrailer(trailPercent, activatePct float64) *HighWaterTrailer {
	return &HighWaterTrailer{
		trailPercent: trailPercent,
		activatePct:  activatePct,
		marks:        make(map[int64]float64),
	}
}

// Trail implements the Trailer extension point
func (t *HighWaterTrailer) Trail(pos market.Position, currentPrice float64) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	mark, ok := t.marks[pos.Ticket]
	if !ok {
		mark = pos.OpenPrice
	}

	if pos.Side == market.SideBuy {
		if currentPrice > mark {
			mark = currentPrice
		}
		t.marks[pos.Ticket] = mark

		if pos.OpenPrice <= 0 || (mark-pos.OpenPrice)/pos.OpenPrice < t.activatePct {
			return 0, false
		}
		newStop := mark * (1 - t.trailPercent)
		if newStop > pos.StopLoss && newStop < currentPrice {
			return newStop, true
		}
		return 0, false
	}

	if currentPrice < mark {
		mark = currentPrice
	}
	t.marks[pos.Ticket] = mark

	if pos.OpenPrice <= 0 || (pos.OpenPrice-mark)/pos.OpenPrice < t.activatePct {
		return 0, false
	}
	newStop := mark * (1 + t.trailPercent)
	if (pos.StopLoss == 0 || newStop < pos.StopLoss) && newStop > currentPrice {
		return newStop, true
	}
	return 0, false
}

// Forget drops tracking state for a closed ticket
func (t *HighWaterTrailer) Forget(ticket int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.marks, ticket)
}
