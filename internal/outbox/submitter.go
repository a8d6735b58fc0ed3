// Package outbox is the invoice create path: submit online, queue when the API
// cannot be reached.
package outbox

import (
	"context"
	"fmt"

	"github.com/matheus3301/msana/internal/billingapi"
	"github.com/matheus3301/msana/internal/bus"
	"github.com/matheus3301/msana/internal/ids"
	"github.com/matheus3301/msana/internal/metrics"
	"github.com/matheus3301/msana/internal/model"
	"go.uber.org/zap"
)

// Placeholder invoice numbers shown for an invoice that is not on the server yet.
const (
	InvoiceNoPendingSync = "PENDING-SYNC"
	InvoiceNoOffline     = "OFFLINE"
)

// Creator submits invoices to the billing API.
type Creator interface {
	CreateInvoice(ctx context.Context, inv *model.Invoice, idempotencyKey string) (*model.CreatedInvoice, error)
}

// Queue is the durable offline queue.
type Queue interface {
	QueueInvoice(ctx context.Context, idempotencyKey string, inv *model.Invoice) (int64, error)
	PendingInvoiceCount(ctx context.Context) (int, error)
}

// Liveness is the online/offline signal.
type Liveness interface {
	Online() bool
}

// Outcome is the terminal state of one submit.
type Outcome string

const (
	Committed Outcome = "committed"
	Queued    Outcome = "queued"
)

// Result describes what happened to a submitted invoice.
type Result struct {
	Outcome        Outcome
	Invoice        *model.CreatedInvoice
	QueueID        int64
	IdempotencyKey string
	// InvoiceNo is the server number, or a placeholder when queued.
	InvoiceNo string
}

// Submitter creates invoices, falling back to the offline queue.
type Submitter struct {
	api      Creator
	queue    Queue
	liveness Liveness
	bus      *bus.Bus
	logger   *zap.Logger
	metrics  *metrics.Metrics
	newKey   func() string
}

// NewSubmitter creates a submitter.
func NewSubmitter(api Creator, queue Queue, liveness Liveness, b *bus.Bus, logger *zap.Logger, mt *metrics.Metrics) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{
		api:      api,
		queue:    queue,
		liveness: liveness,
		bus:      b,
		logger:   logger,
		metrics:  mt,
		newKey:   ids.New,
	}
}

// Submit creates inv on the server, or queues it when offline or when the
// attempt fails at the network level. Application errors are returned as is
// and nothing is queued.
func (s *Submitter) Submit(ctx context.Context, inv *model.Invoice) (*Result, error) {
	if err := inv.Normalize(); err != nil {
		return nil, err
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	key := s.newKey()

	if !s.liveness.Online() {
		s.logger.Info("offline, queuing invoice", zap.String("patient", inv.PatientName))
		return s.enqueue(ctx, key, inv, InvoiceNoPendingSync, "Invoice queued for sync (offline)")
	}

	created, err := s.api.CreateInvoice(ctx, inv, key)
	if err == nil {
		s.logger.Info("invoice created", zap.String("invoice_no", created.InvoiceNo))
		s.metrics.Committed()
		s.bus.Emit(bus.InvoiceCommitted, created)
		s.bus.Notify(bus.NotifySuccess, "Invoice created successfully!")
		return &Result{Outcome: Committed, Invoice: created, IdempotencyKey: key, InvoiceNo: created.InvoiceNo}, nil
	}
	if !billingapi.IsNetwork(err) {
		s.logger.Warn("invoice rejected", zap.Error(err))
		s.bus.Notify(bus.NotifyError, err.Error())
		return nil, err
	}

	s.logger.Warn("create failed on the network, queuing invoice", zap.Error(err))
	return s.enqueue(ctx, key, inv, InvoiceNoOffline, "Invoice queued for sync")
}

func (s *Submitter) enqueue(ctx context.Context, key string, inv *model.Invoice, placeholder, notice string) (*Result, error) {
	id, err := s.queue.QueueInvoice(ctx, key, inv)
	if err != nil {
		s.bus.Notify(bus.NotifyError, "Failed to create invoice")
		return nil, fmt.Errorf("queue invoice: %w", err)
	}
	s.metrics.Queued()
	if n, err := s.queue.PendingInvoiceCount(ctx); err == nil {
		s.metrics.SetPending(n)
	}

	res := &Result{Outcome: Queued, QueueID: id, IdempotencyKey: key, InvoiceNo: placeholder}
	s.bus.Emit(bus.InvoiceQueued, res)
	s.bus.Notify(bus.NotifySuccess, notice)
	return res, nil
}
