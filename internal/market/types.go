package market

import "time"

// Side represents the direction of an order or position
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the opposing side
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Bar represents one OHLCV candle. Sequences are ordered oldest-first and
// immutable once produced.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Body returns the absolute candle body size
func (b Bar) Body() float64 {
	if b.Close >= b.Open {
		return b.Close - b.Open
	}
	return b.Open - b.Close
}

// Range returns the full high-to-low extent of the bar
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// Bullish reports whether the bar closed above its open
func (b Bar) Bullish() bool {
	return b.Close > b.Open
}

// Bearish reports whether the bar closed below its open
func (b Bar) Bearish() bool {
	return b.Close < b.Open
}

// UpperWick returns the distance from the body top to the high
func (b Bar) UpperWick() float64 {
	if b.Close >= b.Open {
		return b.High - b.Close
	}
	return b.High - b.Open
}

// LowerWick returns the distance from the body bottom to the low
func (b Bar) LowerWick() float64 {
	if b.Close >= b.Open {
		return b.Open - b.Low
	}
	return b.Close - b.Low
}

// Tick is the latest-known quote for a symbol. Ticks are superseded, never
// merged.
type Tick struct {
	Symbol string
	Bid    float64
	Ask    float64
	Spread float64
	Volume float64
	Time   time.Time
}

// Mid returns the quote midpoint
func (t Tick) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

// Position is an open position as reported by the execution gateway
type Position struct {
	Ticket     int64
	Symbol     string
	Side       Side
	Volume     float64
	OpenPrice  float64
	StopLoss   float64
	TakeProfit float64
	Profit     float64 // unrealized P/L in account currency
	OpenTime   time.Time
}

// AccountSnapshot holds the balance and equity reported by the gateway
type AccountSnapshot struct {
	Balance float64
	Equity  float64
}

// SymbolLimits describes the volume and price granularity of an instrument
type SymbolLimits struct {
	MinVolume  float64
	MaxVolume  float64
	VolumeStep float64
	PipSize    float64
}

// OrderRequest is a market order handed to the execution gateway. Price is
// the entry level the signal was generated at; gateways fill at market and
// may ignore it.
type OrderRequest struct {
	Symbol     string
	Side       Side
	Volume     float64
	Price      float64
	StopLoss   float64
	TakeProfit float64
	Comment    string
}

// OrderResult is the gateway's response to a submitted order
type OrderResult struct {
	Ticket int64
	Price  float64
}
