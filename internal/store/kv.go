package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/msana/internal/errs"
	"github.com/matheus3301/msana/internal/model"
)

// Keys of the shared maps in the kv table.
const (
	KeyAccounts  = "accounts"
	KeyOccupancy = "occupancy"
)

// getKV returns the raw value stored under key, or "" when absent.
func (db *DB) getKV(ctx context.Context, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (db *DB) putKV(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	return err
}

// LoadAccounts returns the shared credential map keyed by email.
// Records without a token are dropped; the map key wins over the stored email.
func (db *DB) LoadAccounts(ctx context.Context) (map[string]model.AccountRecord, error) {
	raw, err := db.getKV(ctx, KeyAccounts)
	if err != nil {
		return nil, errs.Storage("load accounts", err)
	}
	accounts := make(map[string]model.AccountRecord)
	if raw == "" {
		return accounts, nil
	}
	var decoded map[string]model.AccountRecord
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, errs.Storage("decode accounts", err)
	}
	for email, rec := range decoded {
		email = strings.TrimSpace(email)
		if email == "" || rec.Token == "" {
			continue
		}
		rec.Email = email
		if rec.User.Email == "" {
			rec.User.Email = email
		}
		accounts[email] = rec
	}
	return accounts, nil
}

// SaveAccounts overwrites the shared credential map. Last writer wins.
func (db *DB) SaveAccounts(ctx context.Context, accounts map[string]model.AccountRecord) error {
	data, err := json.Marshal(accounts)
	if err != nil {
		return errs.Storage("encode accounts", err)
	}
	return errs.Storage("save accounts", db.putKV(ctx, KeyAccounts, string(data)))
}

// LoadOccupancy returns the shared lease map keyed by email.
// Leases without a tab id are dropped.
func (db *DB) LoadOccupancy(ctx context.Context) (map[string]model.OccupancyRecord, error) {
	raw, err := db.getKV(ctx, KeyOccupancy)
	if err != nil {
		return nil, errs.Storage("load occupancy", err)
	}
	occupancy := make(map[string]model.OccupancyRecord)
	if raw == "" {
		return occupancy, nil
	}
	var decoded map[string]model.OccupancyRecord
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, errs.Storage("decode occupancy", err)
	}
	for email, occ := range decoded {
		if email == "" || occ.TabID == "" {
			continue
		}
		occupancy[email] = occ
	}
	return occupancy, nil
}

// SaveOccupancy overwrites the shared lease map. Last writer wins.
func (db *DB) SaveOccupancy(ctx context.Context, occupancy map[string]model.OccupancyRecord) error {
	data, err := json.Marshal(occupancy)
	if err != nil {
		return errs.Storage("encode occupancy", err)
	}
	if err := db.putKV(ctx, KeyOccupancy, string(data)); err != nil {
		return errs.Storage("save occupancy", fmt.Errorf("put %s: %w", KeyOccupancy, err))
	}
	return nil
}
