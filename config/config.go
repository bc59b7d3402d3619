// Package config loads engine configuration from a JSON file with
// environment variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"smc-trading-engine/internal/api"
	"smc-trading-engine/internal/cache"
	"smc-trading-engine/internal/logging"
	"smc-trading-engine/internal/risk"
	"smc-trading-engine/internal/store"
)

// Config is the full engine configuration
type Config struct {
	Engine   EngineConfig    `json:"engine"`
	Risk     risk.Parameters `json:"risk"`
	Server   api.Config      `json:"server"`
	Metrics  MetricsConfig   `json:"metrics"`
	Database DatabaseConfig  `json:"database"`
	Redis    RedisConfig     `json:"redis"`
	Feed     FeedConfig      `json:"feed"`
	Trailing TrailingConfig  `json:"trailing"`
	Logging  logging.Config  `json:"logging"`
}

// EngineConfig holds cycle cadence and analysis settings
type EngineConfig struct {
	Symbols                 []string `json:"symbols"`
	Timeframe               string   `json:"timeframe"`
	BarCount                int      `json:"bar_count"`
	AnalysisIntervalSeconds int      `json:"analysis_interval_seconds"`
	MonitorIntervalSeconds  int      `json:"monitor_interval_seconds"`
	MarketFactor            float64  `json:"market_factor"`
	StartingBalance         float64  `json:"starting_balance"`
}

// AnalysisInterval returns the analysis cycle period
func (e EngineConfig) AnalysisInterval() time.Duration {
	return time.Duration(e.AnalysisIntervalSeconds) * time.Second
}

// MonitorInterval returns the monitoring cycle period
func (e EngineConfig) MonitorInterval() time.Duration {
	return time.Duration(e.MonitorIntervalSeconds) * time.Second
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// DatabaseConfig wraps the store settings with an enable switch
type DatabaseConfig struct {
	Enabled bool `json:"enabled"`
	store.Config
}

// RedisConfig wraps the cache settings with an enable switch
type RedisConfig struct {
	Enabled bool `json:"enabled"`
	cache.Config
}

// FeedConfig selects the market data source
type FeedConfig struct {
	Mode      string `json:"mode"`       // "mock" or "stream"
	StreamURL string `json:"stream_url"` // websocket endpoint for stream mode
}

// TrailingConfig holds the optional trailing stop settings
type TrailingConfig struct {
	Enabled       bool    `json:"enabled"`
	TrailPercent  float64 `json:"trail_percent"`
	ActivationPct float64 `json:"activation_pct"`
}

// Load reads config.json (when present), applies .env and environment
// overrides, and fills in defaults
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}
	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			Symbols:                 []string{"EURUSD", "GBPUSD", "XAUUSD"},
			Timeframe:               "15m",
			BarCount:                100,
			AnalysisIntervalSeconds: 15,
			MonitorIntervalSeconds:  30,
			MarketFactor:            1.0,
			StartingBalance:         10000,
		},
		Risk: risk.Parameters{
			MaxRiskPerTradePct: 1.0,
			MaxDailyLossPct:    6.0,
			MaxOpenPositions:   5,
			MinRiskReward:      1.5,
			MaxSpreadPips:      3.0,
		},
		Server: api.Config{Port: 8080},
		Metrics: MetricsConfig{Enabled: true, Addr: ":9100"},
		Database: DatabaseConfig{
			Config: store.Config{
				Host: "localhost", Port: 5432, User: "postgres",
				Database: "trading", SSLMode: "disable",
			},
		},
		Redis: RedisConfig{
			Config: cache.Config{Addr: "localhost:6379"},
		},
		Feed: FeedConfig{Mode: "mock"},
		Trailing: TrailingConfig{
			TrailPercent:  0.005,
			ActivationPct: 0.01,
		},
		Logging: logging.Config{Level: "info"},
	}
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ENGINE_SYMBOLS"); v != "" {
		cfg.Engine.Symbols = strings.Split(v, ",")
	}
	cfg.Engine.Timeframe = getEnvOrDefault("ENGINE_TIMEFRAME", cfg.Engine.Timeframe)
	cfg.Engine.AnalysisIntervalSeconds = getEnvInt("ENGINE_ANALYSIS_INTERVAL", cfg.Engine.AnalysisIntervalSeconds)
	cfg.Engine.MonitorIntervalSeconds = getEnvInt("ENGINE_MONITOR_INTERVAL", cfg.Engine.MonitorIntervalSeconds)
	cfg.Engine.StartingBalance = getEnvFloat("ENGINE_STARTING_BALANCE", cfg.Engine.StartingBalance)

	cfg.Risk.MaxRiskPerTradePct = getEnvFloat("RISK_MAX_PER_TRADE_PCT", cfg.Risk.MaxRiskPerTradePct)
	cfg.Risk.MaxDailyLossPct = getEnvFloat("RISK_MAX_DAILY_LOSS_PCT", cfg.Risk.MaxDailyLossPct)
	cfg.Risk.MaxOpenPositions = getEnvInt("RISK_MAX_OPEN_POSITIONS", cfg.Risk.MaxOpenPositions)
	cfg.Risk.MinRiskReward = getEnvFloat("RISK_MIN_RISK_REWARD", cfg.Risk.MinRiskReward)
	cfg.Risk.MaxSpreadPips = getEnvFloat("RISK_MAX_SPREAD_PIPS", cfg.Risk.MaxSpreadPips)
	cfg.Risk.NewsFilterEnabled = getEnvOrDefault("RISK_NEWS_FILTER", boolString(cfg.Risk.NewsFilterEnabled)) == "true"

	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)

	cfg.Metrics.Enabled = getEnvOrDefault("METRICS_ENABLED", boolString(cfg.Metrics.Enabled)) == "true"
	cfg.Metrics.Addr = getEnvOrDefault("METRICS_ADDR", cfg.Metrics.Addr)

	cfg.Database.Enabled = getEnvOrDefault("DATABASE_ENABLED", boolString(cfg.Database.Enabled)) == "true"
	cfg.Database.Host = getEnvOrDefault("DATABASE_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvInt("DATABASE_PORT", cfg.Database.Port)
	cfg.Database.User = getEnvOrDefault("DATABASE_USER", cfg.Database.User)
	cfg.Database.Password = getEnvOrDefault("DATABASE_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnvOrDefault("DATABASE_NAME", cfg.Database.Database)

	cfg.Redis.Enabled = getEnvOrDefault("REDIS_ENABLED", boolString(cfg.Redis.Enabled)) == "true"
	cfg.Redis.Addr = getEnvOrDefault("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.Redis.Password)

	cfg.Feed.Mode = getEnvOrDefault("FEED_MODE", cfg.Feed.Mode)
	cfg.Feed.StreamURL = getEnvOrDefault("FEED_STREAM_URL", cfg.Feed.StreamURL)

	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Pretty = getEnvOrDefault("LOG_PRETTY", boolString(cfg.Logging.Pretty)) == "true"
}

func (c *Config) validate() error {
	if len(c.Engine.Symbols) == 0 {
		return fmt.Errorf("config: at least one symbol required")
	}
	if c.Engine.AnalysisIntervalSeconds <= 0 || c.Engine.MonitorIntervalSeconds <= 0 {
		return fmt.Errorf("config: cycle intervals must be positive")
	}
	if c.Risk.MaxRiskPerTradePct <= 0 || c.Risk.MaxDailyLossPct <= 0 {
		return fmt.Errorf("config: risk percentages must be positive")
	}
	if c.Feed.Mode == "stream" && c.Feed.StreamURL == "" {
		return fmt.Errorf("config: stream feed mode requires a stream url")
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
