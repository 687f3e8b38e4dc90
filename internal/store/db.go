package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"okx-short-bot/config"
	"okx-short-bot/internal/logging"
)

// DB wraps the PostgreSQL connection pool for decision records. The store is
// optional: the bot runs with logging only when the database is disabled.
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDB connects, configures the pool and runs migrations
func NewDB(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	db := &DB{Pool: pool, logger: logging.WithComponent("store")}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	db.logger.Info().Str("database", cfg.Database).Msg("Connected to PostgreSQL")
	return db, nil
}

// Close releases the pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

func (db *DB) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS assessments (
			id SERIAL PRIMARY KEY,
			signal_id VARCHAR(36) NOT NULL,
			symbol VARCHAR(30) NOT NULL,
			signal_type VARCHAR(20) NOT NULL,
			confidence DECIMAL(5, 2) NOT NULL,
			entry DECIMAL(20, 8) NOT NULL,
			stop DECIMAL(20, 8) NOT NULL,
			target DECIMAL(20, 8) NOT NULL,
			size DECIMAL(20, 8) NOT NULL,
			reward_risk DECIMAL(10, 4) NOT NULL,
			risk_percent DECIMAL(6, 3) NOT NULL,
			accepted BOOLEAN NOT NULL,
			rejection_reason TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assessments_symbol ON assessments(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_assessments_created_at ON assessments(created_at)`,
		`CREATE TABLE IF NOT EXISTS close_instructions (
			id SERIAL PRIMARY KEY,
			symbol VARCHAR(30) NOT NULL,
			reason VARCHAR(30) NOT NULL,
			correlation DECIMAL(6, 4),
			elapsed_hours DECIMAL(10, 3),
			issued_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_close_instructions_symbol ON close_instructions(symbol)`,
	}

	for _, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return err
		}
	}
	return nil
}
