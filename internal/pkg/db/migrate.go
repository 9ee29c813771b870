package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// migrations are idempotent and run in order on every start.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id BIGINT PRIMARY KEY,
		username VARCHAR(255) NOT NULL DEFAULT '',
		language VARCHAR(16) NOT NULL DEFAULT 'pt-BR',
		avatar_url TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		notifications_muted BOOLEAN NOT NULL DEFAULT FALSE,
		focus_donated BIGINT NOT NULL DEFAULT 0,
		total_focus_received BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS follows (
		follower_id BIGINT NOT NULL,
		following_id BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (follower_id, following_id),
		CHECK (follower_id <> following_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_follows_following ON follows(following_id)`,
	`CREATE TABLE IF NOT EXISTS focus_transactions (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		amount BIGINT NOT NULL,
		type VARCHAR(50) NOT NULL,
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_focus_transactions_user ON focus_transactions(user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS mentions (
		id BIGSERIAL PRIMARY KEY,
		mentioned_user_id BIGINT NOT NULL,
		mentioned_by_user_id BIGINT NOT NULL,
		post_id TEXT NOT NULL DEFAULT '',
		comment_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT unique_mention UNIQUE (mentioned_user_id, mentioned_by_user_id, post_id, comment_id)
	)`,
}

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration %d: %w", i, err)
		}
	}
	log.Info().Int("count", len(migrations)).Msg("Database migrations completed")
	return nil
}
