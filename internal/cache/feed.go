// Package cache decorates the market data feed with a Redis layer so
// repeated bar-history fetches within a cycle window hit the cache instead
// of the upstream feed.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"smc-trading-engine/internal/market"
)

const (
	barTTL  = 10 * time.Second
	tickTTL = 2 * time.Second
)

// Config holds Redis connection settings
type Config struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// CachedFeed wraps a DataFeed with Redis-backed read-through caching. Cache
// failures fall back to the underlying feed and are never fatal.
type CachedFeed struct {
	base   market.DataFeed
	client *redis.Client
	logger zerolog.Logger
}

var _ market.DataFeed = (*CachedFeed)(nil)

// NewCachedFeed connects to Redis and wraps the base feed
func NewCachedFeed(ctx context.Context, cfg Config, base market.DataFeed, logger zerolog.Logger) (*CachedFeed, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &CachedFeed{
		base:   base,
		client: client,
		logger: logger.With().Str("component", "cached_feed").Logger(),
	}, nil
}

// Close releases the Redis client
func (c *CachedFeed) Close() error {
	return c.client.Close()
}

// Ready delegates to the underlying feed
func (c *CachedFeed) Ready(ctx context.Context) error {
	return c.base.Ready(ctx)
}

// LatestTick serves a short-lived cached tick when available
func (c *CachedFeed) LatestTick(ctx context.Context, symbol string) (market.Tick, bool, error) {
	key := "tick:" + symbol

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var tick market.Tick
		if err := json.Unmarshal(raw, &tick); err == nil {
			return tick, true, nil
		}
	}

	tick, ok, err := c.base.LatestTick(ctx, symbol)
	if err != nil || !ok {
		return tick, ok, err
	}
	if raw, err := json.Marshal(tick); err == nil {
		if err := c.client.Set(ctx, key, raw, tickTTL).Err(); err != nil {
			c.logger.Debug().Err(err).Str("symbol", symbol).Msg("tick cache write failed")
		}
	}
	return tick, true, nil
}

// BarHistory serves cached bar windows keyed by symbol, timeframe and count
func (c *CachedFeed) BarHistory(ctx context.Context, symbol, timeframe string, count int) ([]market.Bar, error) {
	key := fmt.Sprintf("bars:%s:%s:%d", symbol, timeframe, count)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var bars []market.Bar
		if err := json.Unmarshal(raw, &bars); err == nil {
			return bars, nil
		}
	}

	bars, err := c.base.BarHistory(ctx, symbol, timeframe, count)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(bars); err == nil {
		if err := c.client.Set(ctx, key, raw, barTTL).Err(); err != nil {
			c.logger.Debug().Err(err).Str("symbol", symbol).Msg("bar cache write failed")
		}
	}
	return bars, nil
}
