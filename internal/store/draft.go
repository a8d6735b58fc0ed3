package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/matheus3301/msana/internal/errs"
	"github.com/matheus3301/msana/internal/model"
)

// SaveDraft replaces the draft of a category wholesale.
func (db *DB) SaveDraft(ctx context.Context, category string, data []byte) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO drafts (category, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(category) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		category, string(data), time.Now().UnixMilli())
	return errs.Storage("save draft", err)
}

// GetDraft returns the draft for a category, or nil if none exists.
func (db *DB) GetDraft(ctx context.Context, category string) (*model.Draft, error) {
	var (
		data      string
		updatedAt int64
	)
	err := db.QueryRowContext(ctx, `SELECT data, updated_at FROM drafts WHERE category = ?`, category).Scan(&data, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Storage("get draft", err)
	}
	return &model.Draft{Category: category, Data: []byte(data), UpdatedAt: time.UnixMilli(updatedAt)}, nil
}

// ClearDraft deletes the draft of a category.
func (db *DB) ClearDraft(ctx context.Context, category string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM drafts WHERE category = ?`, category)
	return errs.Storage("clear draft", err)
}
