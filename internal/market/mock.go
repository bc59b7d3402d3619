package market

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// MockFeed provides simulated market data for development and testing
type MockFeed struct {
	mu     sync.RWMutex
	prices map[string]float64
	rng    *rand.Rand
	ticks  map[string]Tick
}

// NewMockFeed creates a mock feed seeded with realistic base prices
func NewMockFeed() *MockFeed {
	return &MockFeed{
		prices: map[string]float64{
			"EURUSD": 1.0850,
			"GBPUSD": 1.2700,
			"USDJPY": 149.50,
			"XAUUSD": 2350.00,
			"BTCUSD": 104500.00,
			"ETHUSD": 3900.00,
		},
		ticks: make(map[string]Tick),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Ready always succeeds for the mock feed
func (m *MockFeed) Ready(ctx context.Context) error {
	return nil
}

// SetPrice pins the base price for a symbol
func (m *MockFeed) SetPrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = price
}

// SetTick pins a fixed tick for a symbol, overriding generation
func (m *MockFeed) SetTick(tick Tick) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks[tick.Symbol] = tick
}

// LatestTick returns a simulated tick around the symbol's base price
func (m *MockFeed) LatestTick(ctx context.Context, symbol string) (Tick, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tick, ok := m.ticks[symbol]; ok {
		return tick, true, nil
	}

	base, ok := m.prices[symbol]
	if !ok {
		return Tick{}, false, nil
	}

	// Random walk: -0.05% to +0.05% change per call
	base *= 1 + (m.rng.Float64()-0.5)*0.001
	m.prices[symbol] = base

	spread := base * 0.0001
	return Tick{
		Symbol: symbol,
		Bid:    base - spread/2,
		Ask:    base + spread/2,
		Spread: spread,
		Volume: 500 + m.rng.Float64()*1500,
		Time:   time.Now(),
	}, true, nil
}

// BarHistory returns simulated candles ending at the current base price
func (m *MockFeed) BarHistory(ctx context.Context, symbol, timeframe string, count int) ([]Bar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	base, ok := m.prices[symbol]
	if !ok {
		return nil, fmt.Errorf("mock feed: unknown symbol %s", symbol)
	}

	step := barDuration(timeframe)
	bars := make([]Bar, count)
	price := base * (1 - 0.0002*float64(count)) // drift back up toward base
	start := time.Now().Add(-time.Duration(count) * step)

	for i := 0; i < count; i++ {
		change := (m.rng.Float64() - 0.48) * 0.002
		open := price
		close := price * (1 + change)
		high := math.Max(open, close) * (1 + m.rng.Float64()*0.001)
		low := math.Min(open, close) * (1 - m.rng.Float64()*0.001)

		bars[i] = Bar{
			Time:   start.Add(time.Duration(i) * step),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: 400 + m.rng.Float64()*1800,
		}
		price = close
	}

	return bars, nil
}

func barDuration(timeframe string) time.Duration {
	switch timeframe {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return 15 * time.Minute
	}
}

// MockGateway simulates order execution against an in-memory account
type MockGateway struct {
	mu         sync.RWMutex
	account    AccountSnapshot
	positions  map[int64]Position
	limits     map[string]SymbolLimits
	nextTicket int64
}

// NewMockGateway creates a gateway with the given starting balance
func NewMockGateway(balance float64) *MockGateway {
	return &MockGateway{
		account:    AccountSnapshot{Balance: balance, Equity: balance},
		positions:  make(map[int64]Position),
		limits:     make(map[string]SymbolLimits),
		nextTicket: 1000,
	}
}

// SetLimits configures the volume limits for a symbol
func (g *MockGateway) SetLimits(symbol string, limits SymbolLimits) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limits[symbol] = limits
}

// SetAccount overrides the account snapshot
func (g *MockGateway) SetAccount(snap AccountSnapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.account = snap
}

// SetPositionProfit updates the unrealized profit on an open position
func (g *MockGateway) SetPositionProfit(ticket int64, profit float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if pos, ok := g.positions[ticket]; ok {
		pos.Profit = profit
		g.positions[ticket] = pos
	}
}

// OpenPositions lists all simulated open positions
func (g *MockGateway) OpenPositions(ctx context.Context) ([]Position, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Position, 0, len(g.positions))
	for _, pos := range g.positions {
		out = append(out, pos)
	}
	return out, nil
}

// AccountSnapshot returns the simulated balance and equity
func (g *MockGateway) AccountSnapshot(ctx context.Context) (AccountSnapshot, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.account, nil
}

// SymbolLimits returns the configured limits, with forex-style defaults
func (g *MockGateway) SymbolLimits(ctx context.Context, symbol string) (SymbolLimits, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if limits, ok := g.limits[symbol]; ok {
		return limits, nil
	}
	return SymbolLimits{MinVolume: 0.01, MaxVolume: 5.0, VolumeStep: 0.01, PipSize: 0.0001}, nil
}

// SubmitMarketOrder fills the order immediately and opens a position
func (g *MockGateway) SubmitMarketOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if req.Volume <= 0 {
		return OrderResult{}, fmt.Errorf("mock gateway: invalid volume %.4f", req.Volume)
	}

	g.nextTicket++
	ticket := g.nextTicket

	g.positions[ticket] = Position{
		Ticket:     ticket,
		Symbol:     req.Symbol,
		Side:       req.Side,
		Volume:     req.Volume,
		OpenPrice:  req.Price,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		OpenTime:   time.Now(),
	}

	return OrderResult{Ticket: ticket, Price: req.Price}, nil
}

// ModifyPosition updates the stop and target on an open position
func (g *MockGateway) ModifyPosition(ctx context.Context, ticket int64, stopLoss, takeProfit float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	pos, ok := g.positions[ticket]
	if !ok {
		return fmt.Errorf("mock gateway: position %d not found", ticket)
	}
	pos.StopLoss = stopLoss
	pos.TakeProfit = takeProfit
	g.positions[ticket] = pos
	return nil
}

// ClosePosition removes a position and realizes its profit into the balance
func (g *MockGateway) ClosePosition(ctx context.Context, ticket int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	pos, ok := g.positions[ticket]
	if !ok {
		return fmt.Errorf("mock gateway: position %d not found", ticket)
	}
	g.account.Balance += pos.Profit
	g.account.Equity = g.account.Balance
	delete(g.positions, ticket)
	return nil
}
