// internal/adapter/storage/schema.go

package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS sounds (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		artist TEXT,
		cover_url TEXT,
		tiktok_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS sound_snapshots (
		id BIGSERIAL PRIMARY KEY,
		sound_id TEXT NOT NULL REFERENCES sounds(id) ON DELETE CASCADE,
		uses BIGINT NOT NULL,
		velocity REAL,
		captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS snapshots_sound_captured_idx ON sound_snapshots (sound_id, captured_at DESC)`,
	`CREATE INDEX IF NOT EXISTS snapshots_captured_idx ON sound_snapshots (captured_at)`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		plan TEXT NOT NULL DEFAULT 'free',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS alert_settings (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		email_frequency TEXT NOT NULL DEFAULT 'daily',
		velocity_threshold INTEGER NOT NULL DEFAULT 300,
		min_uses BIGINT NOT NULL DEFAULT 200,
		discord_webhook TEXT,
		telegram_chat_id TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		sound_id TEXT NOT NULL REFERENCES sounds(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS alerts_user_idx ON alerts (user_id)`,
}

// Migrate creates the schema when it does not exist yet
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("error running migration %d: %w", i, err)
		}
	}
	return nil
}
