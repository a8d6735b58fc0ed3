package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/msana/internal/errs"
	"github.com/matheus3301/msana/internal/model"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleInvoice(patient string) *model.Invoice {
	return &model.Invoice{
		PatientName: patient,
		Items:       []model.InvoiceItem{{ProductName: "Paracetamol", Qty: 2, UnitRate: 5, Amount: 10}},
		SubTotal:    10,
		NetPayable:  10,
		Mode:        "CASH",
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate, so a second run must be a no-op.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2 (init + products)", result.Version)
	}
}

// TestSharedFileSeenByTwoConnections verifies two tabs opening the same file
// observe each other's writes, which is what makes the kv maps origin-shared.
func TestSharedFileSeenByTwoConnections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	a, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = a.Close() }()
	if _, err := a.Migrate(); err != nil {
		t.Fatal(err)
	}
	b, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = b.Close() }()
	if _, err := b.Migrate(); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := a.SaveOccupancy(ctx, map[string]model.OccupancyRecord{
		"a@x.com": {TabID: "tab-a", LastSeen: time.Now()},
	}); err != nil {
		t.Fatal(err)
	}
	occ, err := b.LoadOccupancy(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if occ["a@x.com"].TabID != "tab-a" {
		t.Errorf("second connection saw %+v, want tab-a lease", occ)
	}
}

func TestAccountsRoundTripAndValidation(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	empty, err := db.LoadAccounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Fatalf("got %d accounts on a fresh db, want 0", len(empty))
	}

	now := time.Now().Truncate(time.Millisecond)
	err = db.SaveAccounts(ctx, map[string]model.AccountRecord{
		"a@x.com": {User: model.User{Name: "A", Role: "admin"}, Token: "tok-a", LastUsed: now},
		"b@y.com": {Email: "b@y.com", User: model.User{Email: "b@y.com"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	accounts, err := db.LoadAccounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 1 {
		t.Fatalf("got %d accounts, want 1 (tokenless record dropped)", len(accounts))
	}
	a := accounts["a@x.com"]
	if a.Email != "a@x.com" || a.User.Email != "a@x.com" {
		t.Errorf("email not restored from key: %+v", a)
	}
	if !a.LastUsed.Equal(now) {
		t.Errorf("lastUsed = %v, want %v", a.LastUsed, now)
	}
}

func TestLoadAccountsCorrupt(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.putKV(ctx, KeyAccounts, "{not json"); err != nil {
		t.Fatal(err)
	}
	_, err := db.LoadAccounts(ctx)
	var se *errs.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError for corrupt accounts, got %v", err)
	}
}

func TestOccupancyDropsRecordsWithoutTab(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.SaveOccupancy(ctx, map[string]model.OccupancyRecord{
		"a@x.com": {TabID: "t1", LastSeen: time.Now()},
		"b@y.com": {LastSeen: time.Now()},
	}); err != nil {
		t.Fatal(err)
	}
	occ, err := db.LoadOccupancy(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(occ) != 1 || occ["a@x.com"].TabID != "t1" {
		t.Errorf("occupancy = %+v, want only a@x.com", occ)
	}
}

func TestQueuedPayloadIsUnchanged(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	payload := `{"patientName":"Walk-in Customer","patientPhone":"","items":[{"product":"665f0c","productName":"Paracetamol","unit":"pcs","unitRate":2.5,"qty":2,"gstPct":12,"stock":40}],"mode":"CASH","paymentStatus":"Paid","discount":0,"paid":5.6,"balance":0,"notes":"Pharmacy Billing","subTotal":5,"taxTotal":0.6,"netPayable":5.6}`
	var inv model.Invoice
	if err := json.Unmarshal([]byte(payload), &inv); err != nil {
		t.Fatal(err)
	}
	if _, err := db.QueueInvoice(ctx, "k1", &inv); err != nil {
		t.Fatal(err)
	}

	pending, err := db.PendingInvoices(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("got %d pending, want 1", len(pending))
	}
	out, err := json.Marshal(&pending[0].Invoice)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != payload {
		t.Errorf("queued payload changed:\n got %s\nwant %s", out, payload)
	}
}

func TestQueueLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	id1, err := db.QueueInvoice(ctx, "k1", sampleInvoice("John Doe"))
	if err != nil {
		t.Fatal(err)
	}
	id2, err := db.QueueInvoice(ctx, "k2", sampleInvoice("Jane Roe"))
	if err != nil {
		t.Fatal(err)
	}
	if id2 <= id1 {
		t.Errorf("ids not monotonic: %d then %d", id1, id2)
	}

	pending, err := db.PendingInvoices(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending, want 2", len(pending))
	}
	if pending[0].Invoice.PatientName != "John Doe" || pending[0].Synced {
		t.Errorf("first entry = %+v, want unsynced John Doe", pending[0])
	}
	if pending[0].IdempotencyKey != "k1" {
		t.Errorf("idempotency key = %q, want k1", pending[0].IdempotencyKey)
	}

	if err := db.MarkInvoiceSynced(ctx, id1); err != nil {
		t.Fatal(err)
	}
	count, err := db.PendingInvoiceCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("pending count = %d, want 1", count)
	}

	// Marked but not yet collected.
	all, err := db.QueuedInvoices(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || !all[0].Synced {
		t.Errorf("queue = %+v, want 2 entries with the first synced", all)
	}

	deleted, err := db.DeleteSyncedInvoices(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	// Collecting again deletes nothing.
	deleted, err = db.DeleteSyncedInvoices(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 0 {
		t.Errorf("second delete = %d, want 0", deleted)
	}
}

func TestQueueRejectsDuplicateKey(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, err := db.QueueInvoice(ctx, "same", sampleInvoice("A")); err != nil {
		t.Fatal(err)
	}
	_, err := db.QueueInvoice(ctx, "same", sampleInvoice("B"))
	var se *errs.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError on duplicate key, got %v", err)
	}
}

func TestDrafts(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	d, err := db.GetDraft(ctx, "pharmacy")
	if err != nil {
		t.Fatal(err)
	}
	if d != nil {
		t.Fatal("expected nil draft before save")
	}

	if err := db.SaveDraft(ctx, "pharmacy", []byte(`{"patientName":"A"}`)); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveDraft(ctx, "pharmacy", []byte(`{"patientName":"B"}`)); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveDraft(ctx, "billing", []byte(`{"patientName":"C"}`)); err != nil {
		t.Fatal(err)
	}

	d, err = db.GetDraft(ctx, "pharmacy")
	if err != nil {
		t.Fatal(err)
	}
	if d == nil || string(d.Data) != `{"patientName":"B"}` {
		t.Errorf("draft = %+v, want the overwritten B payload", d)
	}

	if err := db.ClearDraft(ctx, "pharmacy"); err != nil {
		t.Fatal(err)
	}
	d, _ = db.GetDraft(ctx, "pharmacy")
	if d != nil {
		t.Error("pharmacy draft should be cleared")
	}
	other, _ := db.GetDraft(ctx, "billing")
	if other == nil {
		t.Error("clearing one category must not touch another")
	}
}

func TestReplaceProducts(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.ReplaceProducts(ctx, []model.Product{
		{ID: "p1", Name: "Zinc", Stock: 3},
		{ID: "p2", Name: "Amoxicillin", Stock: 10, SellingPrice: 42, GST: 12},
	}); err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceProducts(ctx, []model.Product{
		{ID: "p2", Name: "Amoxicillin", Stock: 9, SellingPrice: 42, GST: 12},
	}); err != nil {
		t.Fatal(err)
	}

	products, err := db.Products(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1 after replace", len(products))
	}
	if products[0].Stock != 9 {
		t.Errorf("stock = %v, want 9", products[0].Stock)
	}
}

func TestSyncState(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, ok, err := db.SyncState(ctx, "last_sync_at"); err != nil || ok {
		t.Fatalf("SyncState on empty db = ok:%v err:%v", ok, err)
	}
	if err := db.SetSyncState(ctx, "last_sync_at", "100"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetSyncState(ctx, "last_sync_at", "200"); err != nil {
		t.Fatal(err)
	}
	v, ok, err := db.SyncState(ctx, "last_sync_at")
	if err != nil || !ok || v != "200" {
		t.Errorf("SyncState = %q %v %v, want 200", v, ok, err)
	}
}
