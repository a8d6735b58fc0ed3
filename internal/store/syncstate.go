package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/matheus3301/msana/internal/errs"
)

// SetSyncState upserts a sync checkpoint value.
func (db *DB) SetSyncState(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	return errs.Storage("set sync state", err)
}

// SyncState returns a checkpoint value and whether it exists.
func (db *DB) SyncState(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errs.Storage("get sync state", err)
	}
	return value, true, nil
}
