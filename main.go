package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"smc-trading-engine/config"
	"smc-trading-engine/internal/api"
	"smc-trading-engine/internal/arbiter"
	"smc-trading-engine/internal/cache"
	"smc-trading-engine/internal/engine"
	"smc-trading-engine/internal/events"
	"smc-trading-engine/internal/logging"
	"smc-trading-engine/internal/market"
	"smc-trading-engine/internal/metrics"
	"smc-trading-engine/internal/risk"
	"smc-trading-engine/internal/store"
	"smc-trading-engine/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := logging.New(logging.Config{})
		fallback.Fatal().Err(err).Msg("loading configuration failed")
	}
	logger := logging.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// market data: mock feed locally, optionally fronted by a websocket
	// tick stream
	var feed market.DataFeed = market.NewMockFeed()
	if cfg.Feed.Mode == "stream" {
		stream := market.NewTickStream(cfg.Feed.StreamURL, logger)
		go stream.Run(ctx)
		feed = market.NewStreamFeed(feed, stream)
	}

	if cfg.Redis.Enabled {
		cached, err := cache.NewCachedFeed(ctx, cfg.Redis.Config, feed, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, continuing without cache")
		} else {
			defer cached.Close()
			feed = cached
		}
	}

	gateway := market.NewMockGateway(cfg.Engine.StartingBalance)

	var tradeStore engine.TradeStore
	if cfg.Database.Enabled {
		pg, err := store.New(ctx, cfg.Database.Config, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("database unavailable, continuing without persistence")
		} else {
			defer pg.Close()
			if err := pg.EnsureSchema(ctx); err != nil {
				logger.Error().Err(err).Msg("schema setup failed")
			} else {
				tradeStore = pg
			}
		}
	}

	registry := strategy.NewRegistry()
	registry.Register(strategy.NewSMC(cfg.Engine.Timeframe, logger))

	var trailer risk.Trailer
	if cfg.Trailing.Enabled {
		trailer = risk.NewHighWaterTrailer(cfg.Trailing.TrailPercent, cfg.Trailing.ActivationPct)
	}

	arb := arbiter.New(logger)
	validator := risk.NewValidator(cfg.Risk, cfg.Engine.StartingBalance, logger)
	positions := risk.NewPositionManager(gateway, feed, cfg.Risk, trailer, logger)
	bus := events.NewBus()

	engineCfg := engine.Config{
		AnalysisInterval: cfg.Engine.AnalysisInterval(),
		MonitorInterval:  cfg.Engine.MonitorInterval(),
		Timeframe:        cfg.Engine.Timeframe,
		BarCount:         cfg.Engine.BarCount,
		MarketFactor:     cfg.Engine.MarketFactor,
	}
	eng := engine.New(engineCfg, feed, gateway, registry, arb, validator, positions,
		bus, tradeStore, cfg.Engine.Symbols, logger)

	if cfg.Metrics.Enabled {
		metricsSrv := metrics.Serve(cfg.Metrics.Addr)
		defer metricsSrv.Close()
		logger.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics exposed")
	}

	if !eng.Start(ctx) {
		logger.Fatal().Msg("engine failed to start")
	}

	server := api.NewServer(cfg.Server, eng, bus, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("api server exited")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api shutdown failed")
	}
	eng.Stop()
}
