// Package store persists signal executions and trade outcomes to
// PostgreSQL.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"smc-trading-engine/internal/engine"
)

// Config holds the PostgreSQL connection settings
type Config struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// DSN renders the config as a pgx connection string
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Store is a pgx-backed trade history store implementing engine.TradeStore
type Store struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

var _ engine.TradeStore = (*Store)(nil)

// New connects to PostgreSQL and verifies the connection
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.HealthCheckPeriod = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Store{
		pool:   pool,
		logger: logger.With().Str("component", "store").Logger(),
	}, nil
}

// Close releases the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the trade history table when missing
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS trade_history (
			id SERIAL PRIMARY KEY,
			ticket BIGINT NOT NULL UNIQUE,
			signal_id VARCHAR(40) NOT NULL,
			symbol VARCHAR(20) NOT NULL,
			action VARCHAR(5) NOT NULL,
			strategy VARCHAR(40) NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			entry_price DOUBLE PRECISION NOT NULL,
			stop_loss DOUBLE PRECISION NOT NULL,
			take_profit DOUBLE PRECISION NOT NULL,
			size DOUBLE PRECISION NOT NULL,
			reason TEXT,
			executed_at TIMESTAMPTZ NOT NULL,
			result VARCHAR(5),
			profit DOUBLE PRECISION,
			closed_at TIMESTAMPTZ
		)`)
	if err != nil {
		return fmt.Errorf("creating trade_history table: %w", err)
	}
	return nil
}

// SaveExecution records an executed signal
func (s *Store) SaveExecution(ctx context.Context, entry engine.HistoryEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trade_history
			(ticket, signal_id, symbol, action, strategy, confidence,
			 entry_price, stop_loss, take_profit, size, reason, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (ticket) DO NOTHING`,
		entry.Ticket, entry.Signal.ID, entry.Signal.Symbol, string(entry.Signal.Action),
		entry.Signal.Strategy, entry.Signal.Confidence, entry.Signal.Entry,
		entry.Signal.StopLoss, entry.Signal.TakeProfit, entry.Size,
		entry.Signal.Reason, entry.ExecutionTime,
	)
	if err != nil {
		return fmt.Errorf("inserting execution for ticket %d: %w", entry.Ticket, err)
	}
	return nil
}

// SaveOutcome resolves a previously saved execution
func (s *Store) SaveOutcome(ctx context.Context, ticket int64, outcome engine.Outcome) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE trade_history
		SET result = $2, profit = $3, closed_at = $4
		WHERE ticket = $1`,
		ticket, outcome.Result, outcome.Profit, outcome.CloseTime,
	)
	if err != nil {
		return fmt.Errorf("updating outcome for ticket %d: %w", ticket, err)
	}
	if tag.RowsAffected() == 0 {
		s.logger.Warn().Int64("ticket", ticket).Msg("outcome for unknown ticket")
	}
	return nil
}
