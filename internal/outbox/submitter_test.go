package outbox

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/matheus3301/msana/internal/billingapi"
	"github.com/matheus3301/msana/internal/bus"
	"github.com/matheus3301/msana/internal/errs"
	"github.com/matheus3301/msana/internal/metrics"
	"github.com/matheus3301/msana/internal/model"
	"github.com/matheus3301/msana/internal/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// mockCreator records calls and returns a configurable result.
type mockCreator struct {
	calls []string
	err   error
}

func (m *mockCreator) CreateInvoice(_ context.Context, inv *model.Invoice, key string) (*model.CreatedInvoice, error) {
	m.calls = append(m.calls, key)
	if m.err != nil {
		return nil, m.err
	}
	return &model.CreatedInvoice{ID: "srv-1", InvoiceNo: "INV-0042", Patient: inv.PatientName, Total: inv.NetPayable}, nil
}

type fixedLiveness bool

func (f fixedLiveness) Online() bool { return bool(f) }

func testDB(t *testing.T) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func johnDoe() *model.Invoice {
	return &model.Invoice{
		PatientName: "John Doe",
		Items:       []model.InvoiceItem{{ProductName: "Paracetamol 500mg", Qty: 1, UnitRate: 20, Amount: 20}},
		SubTotal:    20,
		NetPayable:  20,
	}
}

func TestOfflineSkipsNetworkAndQueues(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	b := bus.New()
	notes, unsub := b.Subscribe("notify.", 10)
	defer unsub()
	api := &mockCreator{}
	mt := metrics.New()

	s := NewSubmitter(api, db, fixedLiveness(false), b, nil, mt)
	res, err := s.Submit(ctx, johnDoe())
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != Queued || res.InvoiceNo != InvoiceNoPendingSync {
		t.Errorf("result = %+v, want queued PENDING-SYNC", res)
	}
	if len(api.calls) != 0 {
		t.Errorf("api calls = %d, want 0 when offline", len(api.calls))
	}

	pending, err := db.PendingInvoices(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if pending[0].Invoice.PatientName != "John Doe" || pending[0].Synced {
		t.Errorf("entry = %+v", pending[0])
	}
	if pending[0].IdempotencyKey != res.IdempotencyKey {
		t.Errorf("key = %q, want %q", pending[0].IdempotencyKey, res.IdempotencyKey)
	}

	evt := <-notes
	if evt.Kind != bus.NotifySuccess {
		t.Errorf("notice kind = %q, want %s", evt.Kind, bus.NotifySuccess)
	}
	if got := testutil.ToFloat64(mt.InvoicesQueued); got != 1 {
		t.Errorf("queued counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(mt.PendingInvoices); got != 1 {
		t.Errorf("pending gauge = %v, want 1", got)
	}
}

func TestOnlineCommit(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	api := &mockCreator{}
	s := NewSubmitter(api, db, fixedLiveness(true), nil, nil, nil)

	res, err := s.Submit(ctx, johnDoe())
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != Committed || res.InvoiceNo != "INV-0042" {
		t.Errorf("result = %+v, want committed INV-0042", res)
	}
	if len(api.calls) != 1 || api.calls[0] != res.IdempotencyKey {
		t.Errorf("calls = %v, want one call with key %s", api.calls, res.IdempotencyKey)
	}
	n, _ := db.PendingInvoiceCount(ctx)
	if n != 0 {
		t.Errorf("pending = %d, want 0", n)
	}
}

func TestNetworkFailureFallsBackToQueue(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	api := &mockCreator{err: &billingapi.NetworkError{Op: "create invoice", Err: errors.New("connection refused")}}
	s := NewSubmitter(api, db, fixedLiveness(true), nil, nil, nil)

	res, err := s.Submit(ctx, johnDoe())
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != Queued || res.InvoiceNo != InvoiceNoOffline {
		t.Errorf("result = %+v, want queued OFFLINE", res)
	}
	pending, _ := db.PendingInvoices(ctx)
	if len(pending) != 1 || pending[0].IdempotencyKey != api.calls[0] {
		t.Errorf("queued entry must reuse the key of the failed attempt")
	}
}

func TestApplicationErrorIsNotQueued(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	b := bus.New()
	notes, unsub := b.Subscribe("notify.", 10)
	defer unsub()
	api := &mockCreator{err: &billingapi.ApplicationError{Op: "create invoice", StatusCode: http.StatusBadRequest, Message: "Insufficient stock"}}
	s := NewSubmitter(api, db, fixedLiveness(true), b, nil, nil)

	_, err := s.Submit(ctx, johnDoe())
	var appErr *billingapi.ApplicationError
	if !errors.As(err, &appErr) {
		t.Fatalf("err = %v, want ApplicationError", err)
	}
	n, _ := db.PendingInvoiceCount(ctx)
	if n != 0 {
		t.Errorf("pending = %d, want 0", n)
	}
	if evt := <-notes; evt.Kind != bus.NotifyError {
		t.Errorf("notice kind = %q, want %s", evt.Kind, bus.NotifyError)
	}
}

func TestInvalidInvoiceRejectedLocally(t *testing.T) {
	db := testDB(t)
	api := &mockCreator{}
	s := NewSubmitter(api, db, fixedLiveness(false), nil, nil, nil)

	_, err := s.Submit(context.Background(), &model.Invoice{PatientName: "John Doe"})
	if !errors.Is(err, errs.ErrInvalidInvoice) {
		t.Fatalf("err = %v, want ErrInvalidInvoice", err)
	}
	n, _ := db.PendingInvoiceCount(context.Background())
	if n != 0 {
		t.Errorf("pending = %d, want 0", n)
	}
}

func TestWalkInPatientIsQueued(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	s := NewSubmitter(&mockCreator{}, db, fixedLiveness(false), nil, nil, nil)

	inv := johnDoe()
	inv.PatientName = ""
	if _, err := s.Submit(ctx, inv); err != nil {
		t.Fatalf("Submit() = %v, want walk-in invoice queued", err)
	}
	pending, err := db.PendingInvoices(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Invoice.PatientName != model.WalkInPatient {
		t.Errorf("pending = %+v, want one %q invoice", pending, model.WalkInPatient)
	}
}

func TestQueueFailurePropagates(t *testing.T) {
	db := testDB(t)
	_ = db.Close()
	s := NewSubmitter(&mockCreator{}, db, fixedLiveness(false), nil, nil, nil)

	_, err := s.Submit(context.Background(), johnDoe())
	var se *errs.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StorageError", err)
	}
}
