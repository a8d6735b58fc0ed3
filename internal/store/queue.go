package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matheus3301/msana/internal/errs"
	"github.com/matheus3301/msana/internal/model"
)

// QueueInvoice appends an invoice to the offline queue and returns its local id.
func (db *DB) QueueInvoice(ctx context.Context, idempotencyKey string, inv *model.Invoice) (int64, error) {
	data, err := json.Marshal(inv)
	if err != nil {
		return 0, errs.Storage("encode invoice", err)
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO invoice_queue (idempotency_key, invoice_data, created_at, synced)
		VALUES (?, ?, ?, 0)`,
		idempotencyKey, string(data), time.Now().UnixMilli())
	if err != nil {
		return 0, errs.Storage("queue invoice", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errs.Storage("queue invoice", err)
	}
	return id, nil
}

// PendingInvoices returns unsynced entries in the order they were queued.
func (db *DB) PendingInvoices(ctx context.Context) ([]model.QueueEntry, error) {
	return db.listQueue(ctx, `
		SELECT id, idempotency_key, invoice_data, created_at, synced
		FROM invoice_queue WHERE synced = 0 ORDER BY id ASC`)
}

// QueuedInvoices returns every entry, synced or not.
func (db *DB) QueuedInvoices(ctx context.Context) ([]model.QueueEntry, error) {
	return db.listQueue(ctx, `
		SELECT id, idempotency_key, invoice_data, created_at, synced
		FROM invoice_queue ORDER BY id ASC`)
}

func (db *DB) listQueue(ctx context.Context, query string) ([]model.QueueEntry, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errs.Storage("list queue", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.QueueEntry
	for rows.Next() {
		var (
			e         model.QueueEntry
			data      string
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.IdempotencyKey, &data, &createdAt, &e.Synced); err != nil {
			return nil, errs.Storage("scan queue", err)
		}
		if err := json.Unmarshal([]byte(data), &e.Invoice); err != nil {
			return nil, errs.Storage("decode queued invoice", err)
		}
		e.CreatedAt = time.UnixMilli(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage("list queue", err)
	}
	return entries, nil
}

// MarkInvoiceSynced flips the synced flag of one entry.
func (db *DB) MarkInvoiceSynced(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, `UPDATE invoice_queue SET synced = 1 WHERE id = ?`, id)
	return errs.Storage("mark synced", err)
}

// DeleteSyncedInvoices removes every entry already marked synced.
func (db *DB) DeleteSyncedInvoices(ctx context.Context) (int, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM invoice_queue WHERE synced = 1`)
	if err != nil {
		return 0, errs.Storage("delete synced", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errs.Storage("delete synced", err)
	}
	return int(n), nil
}

// PendingInvoiceCount counts unsynced entries.
func (db *DB) PendingInvoiceCount(ctx context.Context) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM invoice_queue WHERE synced = 0`).Scan(&n)
	if err != nil {
		return 0, errs.Storage("count pending", err)
	}
	return n, nil
}
