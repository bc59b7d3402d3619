package market

import "context"

// DataFeed defines the market data collaborator contract. A timed-out or
// failed call is treated by callers the same as "no data": the symbol is
// skipped for the cycle.
type DataFeed interface {
	// Ready reports whether the feed is connected and serving data
	Ready(ctx context.Context) error

	// LatestTick returns the most recent tick for a symbol. The bool is
	// false when no tick is known.
	LatestTick(ctx context.Context, symbol string) (Tick, bool, error)

	// BarHistory returns up to count bars for the symbol and timeframe,
	// ordered oldest-first
	BarHistory(ctx context.Context, symbol, timeframe string, count int) ([]Bar, error)
}

// Gateway defines the execution collaborator contract
type Gateway interface {
	OpenPositions(ctx context.Context) ([]Position, error)
	AccountSnapshot(ctx context.Context) (AccountSnapshot, error)
	SymbolLimits(ctx context.Context, symbol string) (SymbolLimits, error)
	SubmitMarketOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	ModifyPosition(ctx context.Context, ticket int64, stopLoss, takeProfit float64) error
	ClosePosition(ctx context.Context, ticket int64) error
}

// Ensure the mock implementations satisfy the collaborator contracts
var _ DataFeed = (*MockFeed)(nil)
var _ Gateway = (*MockGateway)(nil)
