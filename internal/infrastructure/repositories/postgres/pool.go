package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// NewPool opens a pool, pings it and applies the schema.
func NewPool(ctx context.Context, dsn string, maxConns int32, connectTimeout time.Duration, logger *zap.SugaredLogger) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if connectTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = connectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if logger != nil {
		logger.Infow("connected to Postgres", "max_conns", cfg.MaxConns)
	}
	return pool, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS event_vonage_sessions (
	id TEXT PRIMARY KEY,
	event_id TEXT NOT NULL,
	conference_id TEXT NOT NULL DEFAULT '',
	vonage_session_id TEXT NOT NULL DEFAULT '',
	rtmp_input_name TEXT NOT NULL DEFAULT 'RTMP_A'
)`,
	`CREATE INDEX IF NOT EXISTS event_vonage_sessions_session_idx ON event_vonage_sessions (vonage_session_id)`,
	`CREATE INDEX IF NOT EXISTS event_vonage_sessions_event_idx ON event_vonage_sessions (event_id)`,
	`CREATE TABLE IF NOT EXISTS channel_stacks (
	event_id TEXT PRIMARY KEY,
	rtmp_a_input_uri TEXT NOT NULL DEFAULT '',
	rtmp_b_input_uri TEXT NOT NULL DEFAULT ''
)`,
	`CREATE TABLE IF NOT EXISTS event_vonage_session_layouts (
	id TEXT PRIMARY KEY,
	event_vonage_session_id TEXT NOT NULL,
	layout_data JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	seq BIGSERIAL
)`,
	`CREATE INDEX IF NOT EXISTS event_vonage_session_layouts_latest_idx
	ON event_vonage_session_layouts (event_vonage_session_id, created_at DESC, seq DESC)`,
	`CREATE TABLE IF NOT EXISTS event_participant_streams (
	id TEXT PRIMARY KEY,
	conference_id TEXT NOT NULL DEFAULT '',
	event_id TEXT NOT NULL,
	registrant_id TEXT NOT NULL DEFAULT '',
	vonage_connection_id TEXT NOT NULL,
	vonage_stream_id TEXT NOT NULL,
	vonage_stream_type TEXT NOT NULL DEFAULT 'camera',
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (event_id, vonage_connection_id, vonage_stream_id)
)`,
}

// Migrate applies the idempotent schema statements in order.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.SugaredLogger) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	if logger != nil {
		logger.Infow("postgres schema applied", "statements", len(schema))
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
