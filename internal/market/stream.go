package market

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// tickMessage is the wire format pushed by the quote stream
type tickMessage struct {
	Symbol    string  `json:"symbol"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Volume    float64 `json:"volume"`
	Timestamp int64   `json:"timestamp"` // unix milliseconds
}

// TickStream maintains a live table of latest ticks from a websocket quote
// endpoint. It reconnects with backoff until the context is cancelled.
type TickStream struct {
	url    string
	logger zerolog.Logger

	mu    sync.RWMutex
	ticks map[string]Tick
}

// NewTickStream creates a stream client for the given websocket URL
func NewTickStream(url string, logger zerolog.Logger) *TickStream {
	return &TickStream{
		url:    url,
		logger: logger.With().Str("component", "tick_stream").Logger(),
		ticks:  make(map[string]Tick),
	}
}

// Run connects and consumes tick messages until the context is cancelled.
// Connection failures are retried with a capped backoff.
func (s *TickStream) Run(ctx context.Context) {
	backoff := time.Second

	for {
		if ctx.Err() != nil {
			return
		}

		if err := s.consume(ctx); err != nil {
			s.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("stream disconnected")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (s *TickStream) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()

	// Close the connection when the context is cancelled so ReadMessage
	// unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	s.logger.Info().Str("url", s.url).Msg("stream connected")

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var msg tickMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logger.Debug().Err(err).Msg("skipping malformed tick")
			continue
		}
		if msg.Symbol == "" || msg.Bid <= 0 || msg.Ask <= 0 {
			continue
		}

		s.mu.Lock()
		s.ticks[msg.Symbol] = Tick{
			Symbol: msg.Symbol,
			Bid:    msg.Bid,
			Ask:    msg.Ask,
			Spread: msg.Ask - msg.Bid,
			Volume: msg.Volume,
			Time:   time.UnixMilli(msg.Timestamp),
		}
		s.mu.Unlock()
	}
}

// Latest returns the most recent tick for a symbol, if one has been received
func (s *TickStream) Latest(symbol string) (Tick, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tick, ok := s.ticks[symbol]
	return tick, ok
}

// StreamFeed decorates a base DataFeed, serving ticks from a live websocket
// stream when available and falling back to the base feed otherwise. Bar
// history always comes from the base feed.
type StreamFeed struct {
	base   DataFeed
	stream *TickStream
}

// NewStreamFeed wraps base with live ticks from stream
func NewStreamFeed(base DataFeed, stream *TickStream) *StreamFeed {
	return &StreamFeed{base: base, stream: stream}
}

// Ready delegates to the base feed
func (f *StreamFeed) Ready(ctx context.Context) error {
	return f.base.Ready(ctx)
}

// LatestTick prefers the streamed tick, falling back to the base feed
func (f *StreamFeed) LatestTick(ctx context.Context, symbol string) (Tick, bool, error) {
	if tick, ok := f.stream.Latest(symbol); ok {
		return tick, true, nil
	}
	return f.base.LatestTick(ctx, symbol)
}

// BarHistory delegates to the base feed
func (f *StreamFeed) BarHistory(ctx context.Context, symbol, timeframe string, count int) ([]Bar, error) {
	return f.base.BarHistory(ctx, symbol, timeframe, count)
}

var _ DataFeed = (*StreamFeed)(nil)
