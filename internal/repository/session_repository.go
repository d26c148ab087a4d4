// Package repository provides database access for domain entities.
package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/sheet-spend-bot/internal/database"
	"gitlab.com/yelinaung/sheet-spend-bot/internal/engine"
	"gitlab.com/yelinaung/sheet-spend-bot/internal/models"
)

// SessionRepository handles per-chat conversation session rows.
type SessionRepository struct {
	db database.PGXDB
}

// Compile-time check that the repository satisfies the engine's contract.
var _ engine.SessionStore = (*SessionRepository)(nil)

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db database.PGXDB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Get returns the session for a chat, creating a default one on first
// contact. The upsert makes lazy creation safe under concurrent events.
func (r *SessionRepository) Get(ctx context.Context, chatID int64) (*models.Session, error) {
	var (
		s        models.Session
		rawState string
	)
	err := r.db.QueryRow(ctx, `
		INSERT INTO sessions (chat_id) VALUES ($1)
		ON CONFLICT (chat_id) DO UPDATE SET chat_id = EXCLUDED.chat_id
		RETURNING chat_id, state, document_ref, worksheet_ref, categories_enabled, created_at, updated_at
	`, chatID).Scan(&s.ChatID, &rawState, &s.DocumentRef, &s.WorksheetRef, &s.CategoriesEnabled, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	s.State, err = models.ParseState(rawState)
	if err != nil {
		return nil, fmt.Errorf("corrupt session for chat: %w", err)
	}

	return &s, nil
}

// SetState persists a conversation state transition.
func (r *SessionRepository) SetState(ctx context.Context, chatID int64, state models.State) error {
	return r.setField(ctx, chatID, "state", string(state))
}

// SetDocumentRef persists the bound spreadsheet document reference.
func (r *SessionRepository) SetDocumentRef(ctx context.Context, chatID int64, ref string) error {
	return r.setField(ctx, chatID, "document_ref", ref)
}

// SetWorksheetRef persists the active worksheet reference.
func (r *SessionRepository) SetWorksheetRef(ctx context.Context, chatID int64, ref string) error {
	return r.setField(ctx, chatID, "worksheet_ref", ref)
}

// SetCategoriesEnabled persists the category display flag.
func (r *SessionRepository) SetCategoriesEnabled(ctx context.Context, chatID int64, enabled bool) error {
	return r.setField(ctx, chatID, "categories_enabled", enabled)
}

// setField updates one session column. The column name is always one of
// the fixed strings above, never user input.
func (r *SessionRepository) setField(ctx context.Context, chatID int64, column string, value any) error {
	tag, err := r.db.Exec(ctx,
		fmt.Sprintf(`UPDATE sessions SET %s = $2, updated_at = NOW() WHERE chat_id = $1`, column),
		chatID, value,
	)
	if err != nil {
		return fmt.Errorf("failed to update session %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no session for chat %d", chatID)
	}
	return nil
}
