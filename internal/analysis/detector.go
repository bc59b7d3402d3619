// Package analysis detects structural price patterns (order blocks, liquidity
// zones, fair value gaps) from a rolling bar window. All structures are
// recomputed in full on every call; nothing is maintained incrementally.
package analysis

import (
	"errors"

	"smc-trading-engine/internal/market"
)

// MinBars is the minimum bar window required for detection
const MinBars = 50

// ErrInsufficientData is returned when the bar window is too short for
// detection. It is an expected condition, not a failure.
var ErrInsufficientData = errors.New("analysis: insufficient bar history")

// Direction represents the directional bias of a structure
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

// Snapshot holds one cycle's fully consistent structure sets. A snapshot is
// never mutated after Analyze returns it.
type Snapshot struct {
	OrderBlocks    []OrderBlock
	LiquidityZones []LiquidityZone
	Gaps           []FairValueGap
}

type gapKey struct {
	origin    int64 // unix seconds of the gap's middle bar
	direction Direction
}

// Detector recomputes structure sets from a bar window each cycle. It keeps
// one piece of state across cycles: which fair value gaps have already been
// filled, so a filled gap never reappears as unfilled.
type Detector struct {
	filledGaps map[gapKey]bool
}

// NewDetector creates a detector with empty gap memory
func NewDetector() *Detector {
	return &Detector{
		filledGaps: make(map[gapKey]bool),
	}
}

// Analyze recomputes all three structure sets from the given window. Windows
// shorter than MinBars return ErrInsufficientData and no structures.
func (d *Detector) Analyze(bars []market.Bar) (*Snapshot, error) {
	if len(bars) < MinBars {
		return nil, ErrInsufficientData
	}

	snap := &Snapshot{
		OrderBlocks:    detectOrderBlocks(bars),
		LiquidityZones: detectLiquidityZones(bars),
		Gaps:           d.detectGaps(bars),
	}

	d.pruneGapMemory(bars[0].Time.Unix())
	return snap, nil
}

// MarkGapFilled records that a gap has been entered, so it cannot re-trigger
// on later cycles even before a bar close reflects the fill
func (d *Detector) MarkGapFilled(gap FairValueGap) {
	d.filledGaps[gapKey{origin: gap.OriginTime.Unix(), direction: gap.Direction}] = true
}

// pruneGapMemory drops memory for gaps whose origin bar has scrolled out of
// the window; they can never be re-derived
func (d *Detector) pruneGapMemory(windowStart int64) {
	for key := range d.filledGaps {
		if key.origin < windowStart {
			delete(d.filledGaps, key)
		}
	}
}
