package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadDefaults verifies the built-in defaults when no file or
// environment overrides exist.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.AnalysisIntervalSeconds != 15 || cfg.Engine.MonitorIntervalSeconds != 30 {
		t.Errorf("cycle defaults = %d/%d, want 15/30",
			cfg.Engine.AnalysisIntervalSeconds, cfg.Engine.MonitorIntervalSeconds)
	}
	if cfg.Risk.MaxOpenPositions != 5 {
		t.Errorf("MaxOpenPositions = %d, want 5", cfg.Risk.MaxOpenPositions)
	}
	if cfg.Feed.Mode != "mock" {
		t.Errorf("Feed.Mode = %q, want mock", cfg.Feed.Mode)
	}
}

// TestLoadFromFile verifies JSON file values override the defaults.
func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"engine": {"symbols": ["BTCUSD"], "timeframe": "1h", "bar_count": 200,
			"analysis_interval_seconds": 5, "monitor_interval_seconds": 10,
			"market_factor": 1.0, "starting_balance": 50000},
		"risk": {"max_risk_per_trade_pct": 0.5, "max_daily_loss_pct": 3,
			"max_open_positions": 2, "min_risk_reward": 2, "max_spread_pips": 5}
	}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Engine.Symbols) != 1 || cfg.Engine.Symbols[0] != "BTCUSD" {
		t.Errorf("Symbols = %v, want [BTCUSD]", cfg.Engine.Symbols)
	}
	if cfg.Risk.MaxOpenPositions != 2 {
		t.Errorf("MaxOpenPositions = %d, want 2", cfg.Risk.MaxOpenPositions)
	}
}

// TestEnvOverrides verifies environment variables take precedence over file
// values.
func TestEnvOverrides(t *testing.T) {
	t.Setenv("ENGINE_SYMBOLS", "USDJPY,XAUUSD")
	t.Setenv("RISK_MAX_OPEN_POSITIONS", "9")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Engine.Symbols) != 2 || cfg.Engine.Symbols[1] != "XAUUSD" {
		t.Errorf("Symbols = %v, want [USDJPY XAUUSD]", cfg.Engine.Symbols)
	}
	if cfg.Risk.MaxOpenPositions != 9 {
		t.Errorf("MaxOpenPositions = %d, want 9", cfg.Risk.MaxOpenPositions)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

// TestValidateStreamNeedsURL verifies the stream feed mode requires an
// endpoint.
func TestValidateStreamNeedsURL(t *testing.T) {
	t.Setenv("FEED_MODE", "stream")

	if _, err := Load(""); err == nil {
		t.Error("stream mode without a url passed validation")
	}
}
