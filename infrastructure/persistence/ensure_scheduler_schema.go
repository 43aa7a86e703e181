package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureSchedulerSchema creates the scheduled_posts table and its dispatch
// index if they are missing. Safe to call at startup.
func EnsureSchedulerSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ddl := `CREATE TABLE IF NOT EXISTS scheduled_posts (
		id BIGSERIAL PRIMARY KEY,
		owner_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		payload JSONB NOT NULL,
		scheduled_time TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		retries INT NOT NULL DEFAULT 0,
		last_error TEXT,
		platform_post_id TEXT,
		next_attempt_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create scheduled_posts: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_scheduled_posts_due ON scheduled_posts (status, scheduled_time)`,
		`CREATE INDEX IF NOT EXISTS idx_scheduled_posts_retry ON scheduled_posts (status, next_attempt_at)`,
		`CREATE INDEX IF NOT EXISTS idx_scheduled_posts_owner ON scheduled_posts (owner_id)`,
	}
	for _, ddl := range indexes {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create scheduled_posts index: %w", err)
		}
	}

	usersDDL := `CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		user_name TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := db.ExecContext(ctx, usersDDL); err != nil {
		return fmt.Errorf("create users: %w", err)
	}

	tokensDDL := `CREATE TABLE IF NOT EXISTS oauth_tokens (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		access_token TEXT NOT NULL,
		refresh_token TEXT,
		expires_at TIMESTAMPTZ,
		scopes TEXT NOT NULL DEFAULT '',
		page_id TEXT,
		page_name TEXT,
		token_type TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, platform)
	)`
	if _, err := db.ExecContext(ctx, tokensDDL); err != nil {
		return fmt.Errorf("create oauth_tokens: %w", err)
	}
	return nil
}
