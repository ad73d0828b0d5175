package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"candidate-portal/internal/common/config"

	_ "github.com/lib/pq"
)

// NewSupabase opens the secondary candidate store. Supabase exposes a plain
// Postgres endpoint, so lib/pq is enough.
func NewSupabase(ctx context.Context, cfg config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the candidate and activity tables when missing.
func EnsureSchema(ctx context.Context, db *sql.DB, cfg config.PostgresConfig) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			candidate_id          TEXT PRIMARY KEY,
			headline              TEXT NOT NULL DEFAULT '',
			sectors               TEXT[] NOT NULL DEFAULT '{}',
			tags                  TEXT[] NOT NULL DEFAULT '{}',
			resume_url            TEXT NOT NULL DEFAULT '',
			resume_text           TEXT NOT NULL DEFAULT '',
			category              TEXT NOT NULL DEFAULT '',
			job_title             TEXT NOT NULL DEFAULT '',
			summary               TEXT NOT NULL DEFAULT '',
			location              TEXT NOT NULL DEFAULT '',
			relocation_preference TEXT NOT NULL DEFAULT '',
			notable_employers     TEXT NOT NULL DEFAULT '',
			updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, cfg.Table),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			event_id    UUID PRIMARY KEY,
			event_type  TEXT NOT NULL,
			data        JSONB NOT NULL DEFAULT '{}',
			occurred_at TIMESTAMPTZ NOT NULL,
			received_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, cfg.ActivityTable),
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema migration failed: %w", err)
		}
	}
	return nil
}
