package sync

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Checkpoint keys in sync_state.
const (
	CheckpointLastSyncAt     = "last_sync_at"
	CheckpointLastSyncSynced = "last_sync_synced"
	CheckpointLastSyncFailed = "last_sync_failed"
)

// CheckpointStore persists checkpoint values.
type CheckpointStore interface {
	SetSyncState(ctx context.Context, key, value string) error
	SyncState(ctx context.Context, key string) (string, bool, error)
}

// Pass summarizes the last completed sync pass.
type Pass struct {
	At     time.Time
	Synced int
	Failed int
}

// Reconciler manages sync checkpoints.
type Reconciler struct {
	db     CheckpointStore
	logger *zap.Logger
}

// NewReconciler creates a new reconciler.
func NewReconciler(db CheckpointStore, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{db: db, logger: logger}
}

// UpdateCheckpoint updates a sync checkpoint value.
func (r *Reconciler) UpdateCheckpoint(ctx context.Context, key, value string) error {
	return r.db.SetSyncState(ctx, key, value)
}

// GetCheckpoint retrieves a sync checkpoint value.
func (r *Reconciler) GetCheckpoint(ctx context.Context, key string) (string, bool, error) {
	return r.db.SyncState(ctx, key)
}

// RecordPass stores the outcome of a completed pass.
func (r *Reconciler) RecordPass(ctx context.Context, p Pass) error {
	values := map[string]string{
		CheckpointLastSyncAt:     strconv.FormatInt(p.At.UnixMilli(), 10),
		CheckpointLastSyncSynced: strconv.Itoa(p.Synced),
		CheckpointLastSyncFailed: strconv.Itoa(p.Failed),
	}
	for k, v := range values {
		if err := r.UpdateCheckpoint(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}

// LastPass returns the last recorded pass, if any.
func (r *Reconciler) LastPass(ctx context.Context) (Pass, bool, error) {
	at, ok, err := r.GetCheckpoint(ctx, CheckpointLastSyncAt)
	if err != nil || !ok {
		return Pass{}, false, err
	}
	ms, err := strconv.ParseInt(at, 10, 64)
	if err != nil {
		return Pass{}, false, fmt.Errorf("checkpoint %s: %w", CheckpointLastSyncAt, err)
	}
	p := Pass{At: time.UnixMilli(ms)}
	p.Synced, err = r.intCheckpoint(ctx, CheckpointLastSyncSynced)
	if err != nil {
		return Pass{}, false, err
	}
	p.Failed, err = r.intCheckpoint(ctx, CheckpointLastSyncFailed)
	if err != nil {
		return Pass{}, false, err
	}
	return p, true, nil
}

func (r *Reconciler) intCheckpoint(ctx context.Context, key string) (int, error) {
	v, ok, err := r.GetCheckpoint(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("checkpoint %s: %w", key, err)
	}
	return n, nil
}
