// Package sync replays queued invoices against the billing API.
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/matheus3301/msana/internal/billingapi"
	"github.com/matheus3301/msana/internal/bus"
	"github.com/matheus3301/msana/internal/metrics"
	"github.com/matheus3301/msana/internal/model"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Messages of a pass that did not run.
const (
	MsgInProgress = "Sync in progress"
	MsgNoToken    = "No auth token"
	MsgOffline    = "Offline"
)

const (
	DefaultStartupDelay  = 2 * time.Second
	DefaultOnlineDelay   = 1 * time.Second
	DefaultRatePerSecond = 5
)

// Replayer submits a queued invoice.
type Replayer interface {
	CreateInvoice(ctx context.Context, inv *model.Invoice, idempotencyKey string) (*model.CreatedInvoice, error)
}

// Queue is the durable invoice queue.
type Queue interface {
	PendingInvoices(ctx context.Context) ([]model.QueueEntry, error)
	MarkInvoiceSynced(ctx context.Context, id int64) error
	DeleteSyncedInvoices(ctx context.Context) (int, error)
	PendingInvoiceCount(ctx context.Context) (int, error)
}

// TokenSource reports the active credential.
type TokenSource interface {
	Token() string
}

// Liveness is the online/offline signal.
type Liveness interface {
	Online() bool
}

// Config tunes pass triggers and pacing.
type Config struct {
	StartupDelay  time.Duration
	OnlineDelay   time.Duration
	RatePerSecond float64
}

func (c Config) withDefaults() Config {
	if c.StartupDelay <= 0 {
		c.StartupDelay = DefaultStartupDelay
	}
	if c.OnlineDelay <= 0 {
		c.OnlineDelay = DefaultOnlineDelay
	}
	if c.RatePerSecond <= 0 {
		c.RatePerSecond = DefaultRatePerSecond
	}
	return c
}

// EntryError is the failure of one queued entry.
type EntryError struct {
	ID    int64  `json:"id"`
	Error string `json:"error"`
}

// Result is the outcome of one SyncPending call.
type Result struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Synced  int          `json:"synced"`
	Failed  int          `json:"failed"`
	Errors  []EntryError `json:"errors,omitempty"`
}

// Status drives the pending-invoices indicator.
type Status struct {
	HasPending   bool      `json:"hasPending"`
	PendingCount int       `json:"pendingCount"`
	IsSyncing    bool      `json:"isSyncing"`
	LastSyncAt   time.Time `json:"lastSyncAt,omitzero"`
}

// Engine runs sync passes. At most one pass runs at a time.
type Engine struct {
	queue      Queue
	api        Replayer
	tokens     TokenSource
	liveness   Liveness
	reconciler *Reconciler
	bus        *bus.Bus
	logger     *zap.Logger
	metrics    *metrics.Metrics
	cfg        Config
	limiter    *rate.Limiter

	syncing atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewEngine creates a new sync engine.
func NewEngine(queue Queue, api Replayer, tokens TokenSource, liveness Liveness, reconciler *Reconciler, b *bus.Bus, logger *zap.Logger, mt *metrics.Metrics, cfg Config) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	return &Engine{
		queue:      queue,
		api:        api,
		tokens:     tokens,
		liveness:   liveness,
		reconciler: reconciler,
		bus:        b,
		logger:     logger,
		metrics:    mt,
		cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
	}
}

// SyncPending replays every unsynced entry, oldest first, one at a time.
// A failed entry stays queued and does not stop the pass. Entries accepted by
// the server are marked synced, then deleted in a separate step.
//
// When a precondition fails the pass does nothing and the returned Result
// carries the reason. Storage failures are returned as errors.
func (e *Engine) SyncPending(ctx context.Context) (Result, error) {
	if !e.syncing.CompareAndSwap(false, true) {
		e.logger.Debug("sync already in progress")
		e.metrics.SyncPass(metrics.OutcomeInProgress, 0, 0)
		return Result{Message: MsgInProgress}, nil
	}
	defer e.syncing.Store(false)

	if e.tokens.Token() == "" {
		e.logger.Debug("no auth token, skipping sync")
		e.metrics.SyncPass(metrics.OutcomeNoToken, 0, 0)
		return Result{Message: MsgNoToken}, nil
	}
	if !e.liveness.Online() {
		e.logger.Debug("offline, skipping sync")
		e.metrics.SyncPass(metrics.OutcomeOffline, 0, 0)
		return Result{Message: MsgOffline}, nil
	}

	res, err := e.run(ctx)
	if err != nil {
		e.logger.Error("sync failed", zap.Error(err))
		e.metrics.SyncPass(metrics.OutcomeError, res.Synced, res.Failed)
		return Result{Message: err.Error(), Synced: res.Synced, Failed: res.Failed, Errors: res.Errors}, err
	}
	e.metrics.SyncPass(metrics.OutcomeCompleted, res.Synced, res.Failed)
	return res, nil
}

func (e *Engine) run(ctx context.Context) (Result, error) {
	pending, err := e.queue.PendingInvoices(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(pending) == 0 {
		// Entries marked synced by an interrupted pass.
		if _, err := e.queue.DeleteSyncedInvoices(ctx); err != nil {
			return Result{}, err
		}
		e.logger.Debug("no pending invoices to sync")
		e.refreshPending(ctx)
		return Result{Success: true}, nil
	}

	e.logger.Info("syncing pending invoices", zap.Int("count", len(pending)))
	e.bus.Emit(bus.SyncStarted, len(pending))

	res := Result{Success: true}
	for _, entry := range pending {
		if err := e.limiter.Wait(ctx); err != nil {
			return res, err
		}
		if err := e.replay(ctx, entry); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, EntryError{ID: entry.ID, Error: errorMessage(err)})
			e.logger.Warn("failed to sync invoice", zap.Int64("id", entry.ID), zap.Error(err))
			continue
		}
		res.Synced++
		e.logger.Info("synced invoice", zap.Int64("id", entry.ID))
	}

	if _, err := e.queue.DeleteSyncedInvoices(ctx); err != nil {
		return res, err
	}
	if e.reconciler != nil {
		if err := e.reconciler.RecordPass(ctx, Pass{At: time.Now(), Synced: res.Synced, Failed: res.Failed}); err != nil {
			e.logger.Warn("failed to record sync checkpoint", zap.Error(err))
		}
	}
	e.refreshPending(ctx)

	if res.Synced > 0 {
		e.bus.Notify(bus.NotifySuccess, fmt.Sprintf("Synced %d offline invoice(s)", res.Synced))
	}
	if res.Failed > 0 {
		e.bus.Notify(bus.NotifyError, fmt.Sprintf("Failed to sync %d invoice(s)", res.Failed))
	}
	e.bus.Emit(bus.SyncFinished, res)
	return res, nil
}

func (e *Engine) replay(ctx context.Context, entry model.QueueEntry) error {
	if _, err := e.api.CreateInvoice(ctx, &entry.Invoice, entry.IdempotencyKey); err != nil {
		return err
	}
	return e.queue.MarkInvoiceSynced(ctx, entry.ID)
}

func (e *Engine) refreshPending(ctx context.Context) {
	if n, err := e.queue.PendingInvoiceCount(ctx); err == nil {
		e.metrics.SetPending(n)
	}
}

// errorMessage prefers the server's own message.
func errorMessage(err error) string {
	var appErr *billingapi.ApplicationError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}

// Status reports queue size and whether a pass is running.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	n, err := e.queue.PendingInvoiceCount(ctx)
	if err != nil {
		return Status{}, err
	}
	st := Status{HasPending: n > 0, PendingCount: n, IsSyncing: e.syncing.Load()}
	if e.reconciler != nil {
		if p, ok, err := e.reconciler.LastPass(ctx); err == nil && ok {
			st.LastSyncAt = p.At
		}
	}
	return st, nil
}

// IsSyncing reports whether a pass is running.
func (e *Engine) IsSyncing() bool {
	return e.syncing.Load()
}

// Start schedules a pass shortly after startup when online, and one after
// every offline to online transition.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})

	var events <-chan bus.Event
	unsub := func() {}
	if e.bus != nil {
		events, unsub = e.bus.Subscribe("net.", 16)
	}

	go func() {
		defer close(e.done)
		defer unsub()

		var timer <-chan time.Time
		reason := "startup"
		if e.liveness.Online() {
			timer = time.After(e.cfg.StartupDelay)
		}
		for {
			select {
			case <-timer:
				timer = nil
				e.trigger(ctx, reason)
			case evt := <-events:
				if evt.Kind == bus.NetOnline {
					e.logger.Info("connection restored, scheduling sync")
					reason = "online"
					timer = time.After(e.cfg.OnlineDelay)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
		<-e.done
		e.cancel = nil
	}
}

func (e *Engine) trigger(ctx context.Context, reason string) {
	res, err := e.SyncPending(ctx)
	if err != nil {
		e.bus.Notify(bus.NotifyError, "Sync failed: "+err.Error())
		return
	}
	e.logger.Info("triggered sync finished",
		zap.String("reason", reason),
		zap.Bool("success", res.Success),
		zap.String("message", res.Message),
		zap.Int("synced", res.Synced),
		zap.Int("failed", res.Failed))
}
