package risk

import (
	"context"

	"github.com/rs/zerolog"

	"smc-trading-engine/internal/market"
)

// breakEvenTrigger moves the stop to entry once unrealized profit in price
// units reaches this multiple of the original stop distance
const breakEvenTrigger = 1.5

// emergencyLossMultiple closes a losing position once its loss reaches this
// multiple of the per-trade risk amount
const emergencyLossMultiple = 2.0

// Trailer is the trailing-stop extension point, evaluated after the
// break-even and emergency checks. Implementations return the new stop and
// true when the stop should move.
type Trailer interface {
	Trail(pos market.Position, currentPrice float64) (newStop float64, move bool)
}

// PositionManager supervises open positions on the monitoring cycle. The
// break-even and emergency checks are independent per position and do not
// interact within one cycle.
type PositionManager struct {
	gateway market.Gateway
	feed    market.DataFeed
	params  Parameters
	trailer Trailer // optional
	logger  zerolog.Logger
}

// NewPositionManager creates a position manager. trailer may be nil.
func NewPositionManager(gateway market.Gateway, feed market.DataFeed, params Parameters, trailer Trailer, logger zerolog.Logger) *PositionManager {
	return &PositionManager{
		gateway: gateway,
		feed:    feed,
		params:  params,
		trailer: trailer,
		logger:  logger.With().Str("component", "position_manager").Logger(),
	}
}

// Check runs one supervision pass over every open position. dayStartBalance
// anchors the emergency-loss threshold. Failures on individual positions are
// logged and skipped, never fatal.
func (pm *PositionManager) Check(ctx context.Context, dayStartBalance float64) {
	positions, err := pm.gateway.OpenPositions(ctx)
	if err != nil {
		pm.logger.Error().Err(err).Msg("fetching open positions failed")
		return
	}

	riskAmount := dayStartBalance * pm.params.MaxRiskPerTradePct / 100
	for _, pos := range positions {
		pm.checkPosition(ctx, pos, riskAmount)
	}
}

func (pm *PositionManager) checkPosition(ctx context.Context, pos market.Position, riskAmount float64) {
	if closed := pm.emergencyClose(ctx, pos, riskAmount); closed {
		return
	}
	pm.moveToBreakEven(ctx, pos)

	if pm.trailer == nil {
		return
	}
	tick, ok, err := pm.feed.LatestTick(ctx, pos.Symbol)
	if err != nil || !ok {
		return
	}
	if newStop, move := pm.trailer.Trail(pos, tick.Mid()); move {
		if err := pm.gateway.ModifyPosition(ctx, pos.Ticket, newStop, pos.TakeProfit); err != nil {
			pm.logger.Error().Err(err).Int64("ticket", pos.Ticket).Msg("trailing stop update failed")
			return
		}
		pm.logger.Info().Int64("ticket", pos.Ticket).Float64("stop", newStop).Msg("trailing stop moved")
	}
}

// emergencyClose closes a losing position whose loss reached twice the
// per-trade risk amount. Reports whether the position was closed.
func (pm *PositionManager) emergencyClose(ctx context.Context, pos market.Position, riskAmount float64) bool {
	if pos.Profit >= 0 || riskAmount <= 0 {
		return false
	}
	if -pos.Profit < emergencyLossMultiple*riskAmount {
		return false
	}
	if err := pm.gateway.ClosePosition(ctx, pos.Ticket); err != nil {
		pm.logger.Error().Err(err).Int64("ticket", pos.Ticket).Msg("emergency close failed")
		return false
	}
	pm.logger.Warn().
		Int64("ticket", pos.Ticket).
		Str("symbol", pos.Symbol).
		Float64("loss", pos.Profit).
		Msg("position emergency closed")
	return true
}

// moveToBreakEven moves the stop to the entry price once unrealized profit
// in price units reaches 1.5x the original stop distance. Idempotent: a stop
// already at entry is left alone.
func (pm *PositionManager) moveToBreakEven(ctx context.Context, pos market.Position) {
	if pos.StopLoss == pos.OpenPrice {
		return
	}
	stopDistance := pos.OpenPrice - pos.StopLoss
	if stopDistance < 0 {
		stopDistance = -stopDistance
	}
	if stopDistance == 0 {
		return
	}

	tick, ok, err := pm.feed.LatestTick(ctx, pos.Symbol)
	if err != nil || !ok {
		return
	}
	price := tick.Mid()

	var profitUnits float64
	if pos.Side == market.SideBuy {
		profitUnits = price - pos.OpenPrice
	} else {
		profitUnits = pos.OpenPrice - price
	}
	if profitUnits < breakEvenTrigger*stopDistance {
		return
	}

	if err := pm.gateway.ModifyPosition(ctx, pos.Ticket, pos.OpenPrice, pos.TakeProfit); err != nil {
		pm.logger.Error().Err(err).Int64("ticket", pos.Ticket).Msg("break-even move failed")
		return
	}
	pm.logger.Info().
		Int64("ticket", pos.Ticket).
		Str("symbol", pos.Symbol).
		Float64("stop", pos.OpenPrice).
		Msg("stop moved to break-even")
}
