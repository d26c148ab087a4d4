package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations creates the database schema.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		// One row per chat: conversation state plus the spreadsheet binding.
		// category_seq is the per-chat id counter for categories; it only
		// ever grows, so category ids are never reused.
		`CREATE TABLE IF NOT EXISTS sessions (
			chat_id BIGINT PRIMARY KEY,
			state TEXT NOT NULL DEFAULT 'default',
			document_ref TEXT NOT NULL DEFAULT '',
			worksheet_ref TEXT NOT NULL DEFAULT '',
			categories_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			category_seq BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS categories (
			chat_id BIGINT NOT NULL REFERENCES sessions(chat_id),
			id BIGINT NOT NULL,
			title TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (chat_id, id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_categories_chat_id ON categories(chat_id)`,
	}

	for i, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
