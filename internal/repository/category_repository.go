package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"gitlab.com/yelinaung/sheet-spend-bot/internal/database"
	"gitlab.com/yelinaung/sheet-spend-bot/internal/engine"
	"gitlab.com/yelinaung/sheet-spend-bot/internal/models"
)

// CategoryRepository handles per-chat spending categories.
// Category ids come from the per-chat counter on the sessions row, so they
// stay monotonic across processes and are never reused after deletion.
type CategoryRepository struct {
	db database.PGXDB
	tx database.TxBeginner
}

// Compile-time check that the repository satisfies the engine's contract.
var _ engine.CategoryStore = (*CategoryRepository)(nil)

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{db: pool, tx: pool}
}

// Add creates a category, drawing the id from the chat's counter in the
// same transaction as the insert.
func (r *CategoryRepository) Add(ctx context.Context, chatID int64, title string) (models.Category, error) {
	tx, err := r.tx.Begin(ctx)
	if err != nil {
		return models.Category{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	err = tx.QueryRow(ctx, `
		UPDATE sessions SET category_seq = category_seq + 1, updated_at = NOW()
		WHERE chat_id = $1
		RETURNING category_seq
	`, chatID).Scan(&id)
	if err != nil {
		return models.Category{}, fmt.Errorf("failed to advance category counter: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO categories (chat_id, id, title) VALUES ($1, $2, $3)
	`, chatID, id, title)
	if err != nil {
		return models.Category{}, fmt.Errorf("failed to insert category: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Category{}, fmt.Errorf("failed to commit category: %w", err)
	}

	return models.Category{ID: id, Title: title}, nil
}

// Remove deletes a category by id. Removing an unknown id is not an error.
func (r *CategoryRepository) Remove(ctx context.Context, chatID int64, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM categories WHERE chat_id = $1 AND id = $2`, chatID, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

// List returns the chat's categories. Callers must not rely on the order.
func (r *CategoryRepository) List(ctx context.Context, chatID int64) ([]models.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, title FROM categories WHERE chat_id = $1`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Title); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}
