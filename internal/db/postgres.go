// Package db opens the shared Postgres pool.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var Pool *pgxpool.Pool

var (
	parseConfig = pgxpool.ParseConfig
	newPool     = pgxpool.NewWithConfig
	pingPool    = func(ctx context.Context, pool *pgxpool.Pool) error { return pool.Ping(ctx) }
)

const (
	maxConns        = 10
	maxConnIdleTime = 5 * time.Minute
	pingTimeout     = 5 * time.Second
)

// InitPostgres connects to databaseURL and stores the pool in Pool. An empty
// URL leaves Pool nil.
func InitPostgres(ctx context.Context, databaseURL string) error {
	if databaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set, skipping Postgres")
		return nil
	}
	cfg, err := parseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	cfg.MaxConns = maxConns
	cfg.MaxConnIdleTime = maxConnIdleTime

	pool, err := newPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create postgres pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pingPool(pingCtx, pool); err != nil {
		pool.Close()
		return fmt.Errorf("connect to postgres: %w", err)
	}
	Pool = pool
	log.Info().Msg("connected to Postgres")
	return nil
}

func Close() {
	if Pool != nil {
		Pool.Close()
		Pool = nil
	}
}
