// Copyright (c) 2025-2026 Professional Email Services Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Database struct {
	Pool *pgxpool.Pool
}

func Connect(databaseURL string) (*Database, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 2 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Database connected successfully")
	return &Database{Pool: pool}, nil
}

func (d *Database) Close() {
	if d.Pool != nil {
		d.Pool.Close()
		slog.Info("Database connection closed")
	}
}

func (d *Database) HealthCheck(ctx context.Context) error {
	return d.Pool.Ping(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS domain_analyses (
	id BIGSERIAL PRIMARY KEY,
	domain TEXT NOT NULL,
	ascii_domain TEXT NOT NULL,
	selector TEXT NOT NULL,
	result JSONB NOT NULL,
	report TEXT NOT NULL,
	duration_s DOUBLE PRECISION NOT NULL,
	success BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_domain_analyses_domain
	ON domain_analyses (ascii_domain, created_at DESC);
`

func (d *Database) EnsureSchema(ctx context.Context) error {
	_, err := d.Pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
