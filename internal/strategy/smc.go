package strategy

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"smc-trading-engine/internal/analysis"
	"smc-trading-engine/internal/market"
)

// SMCName is the registry name of the smart money concept strategy
const SMCName = "smc"

// SMC is the smart money concept strategy. It keeps one pattern detector per
// symbol so gap fill state survives across cycles, and emits at most one
// candidate per structure category per cycle.
type SMC struct {
	name      string
	timeframe string
	gen       *Generator
	logger    zerolog.Logger

	mu        sync.Mutex
	active    bool
	detectors map[string]*analysis.Detector
}

// NewSMC creates an inactive SMC strategy analyzing the given timeframe
func NewSMC(timeframe string, logger zerolog.Logger) *SMC {
	return &SMC{
		name:      SMCName,
		timeframe: timeframe,
		gen:       NewGenerator(SMCName),
		logger:    logger.With().Str("strategy", SMCName).Logger(),
		detectors: make(map[string]*analysis.Detector),
	}
}

func (s *SMC) Name() string      { return s.name }
func (s *SMC) Timeframe() string { return s.timeframe }

func (s *SMC) Activate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true
}

func (s *SMC) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}

func (s *SMC) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Analyze runs one detection cycle for the symbol. Gaps that trigger an
// entry are marked filled in the symbol's detector so they never re-trigger.
func (s *SMC) Analyze(symbol string, bars []market.Bar, tick market.Tick) []Signal {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil
	}

	detector, ok := s.detectors[symbol]
	if !ok {
		detector = analysis.NewDetector()
		s.detectors[symbol] = detector
	}

	snap, err := detector.Analyze(bars)
	if err != nil {
		if errors.Is(err, analysis.ErrInsufficientData) {
			s.logger.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("not enough bars for analysis")
		} else {
			s.logger.Error().Err(err).Str("symbol", symbol).Msg("analysis failed")
		}
		return nil
	}

	price := tick.Mid()
	last := bars[len(bars)-1]

	var signals []Signal
	if sig, ok := s.gen.OrderBlockEntry(symbol, price, snap); ok {
		signals = append(signals, sig)
	}
	if sig, ok := s.gen.LiquidityGrabReversal(symbol, price, last, snap); ok {
		signals = append(signals, sig)
	}
	if sig, gap, ok := s.gen.GapFillEntry(symbol, price, snap); ok {
		detector.MarkGapFilled(gap)
		signals = append(signals, sig)
	}

	for _, sig := range signals {
		s.logger.Info().
			Str("symbol", sig.Symbol).
			Str("action", string(sig.Action)).
			Float64("confidence", sig.Confidence).
			Float64("entry", sig.Entry).
			Float64("stop", sig.StopLoss).
			Float64("target", sig.TakeProfit).
			Str("reason", sig.Reason).
			Msg("candidate signal")
	}
	return signals
}
