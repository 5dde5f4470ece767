// Package db opens the stores behind the action audit trail and the saved views.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"queuebot/internal/config"
)

// Pool is the audit trail's connection pool.
type Pool struct {
	*pgxpool.Pool
}

// NewPool connects to the audit database and applies the schema.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*Pool, error) {
	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach audit database: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Name).
		Int32("max_conns", pc.MaxConns).
		Msg("Audit database ready")

	return &Pool{Pool: pool}, nil
}

// poolConfig sizes the pool for one small insert per operator action.
func poolConfig(cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pc.MaxConns = max(int32(cfg.PoolSize), 1)
	if cfg.ConnectTimeout > 0 {
		pc.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	return pc, nil
}

// Close releases every connection.
func (p *Pool) Close() {
	p.Pool.Close()
	log.Info().Msg("Audit database closed")
}

// HealthCheck pings the database.
func (p *Pool) HealthCheck(ctx context.Context) error {
	return p.Pool.Ping(ctx)
}
