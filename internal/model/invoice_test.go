package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/matheus3301/msana/internal/errs"
)

func TestInvoiceValidate(t *testing.T) {
	item := InvoiceItem{ProductName: "Paracetamol", Qty: 1, UnitRate: 10, Amount: 10}
	tests := []struct {
		name    string
		inv     Invoice
		wantErr bool
	}{
		{"valid", Invoice{PatientName: "John Doe", Items: []InvoiceItem{item}}, false},
		{"no patient name", Invoice{Items: []InvoiceItem{item}}, false},
		{"product reference only", Invoice{Items: []InvoiceItem{{Product: "665f0c", Quantity: 2}}}, false},
		{"ten digit phone", Invoice{PatientPhone: "9876543210", Items: []InvoiceItem{item}}, false},
		{"short phone", Invoice{PatientPhone: "98765", Items: []InvoiceItem{item}}, true},
		{"phone with letters", Invoice{PatientPhone: "98765abcde", Items: []InvoiceItem{item}}, true},
		{"no items", Invoice{PatientName: "John Doe"}, true},
		{"zero qty", Invoice{PatientName: "John Doe", Items: []InvoiceItem{{ProductName: "X"}}}, true},
		{"unnamed item", Invoice{PatientName: "John Doe", Items: []InvoiceItem{{Qty: 1}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.inv.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errs.ErrInvalidInvoice) {
				t.Errorf("Validate() error = %v, want ErrInvalidInvoice", err)
			}
		})
	}
}

const pharmacyPayload = `{"patientName":"Asha","patientPhone":"9876543210","items":[{"product":"665f0c","productName":"Paracetamol","unit":"strip","unitRate":12.5,"qty":2,"gstPct":12,"stock":40}],"mode":"UPI","paymentStatus":"Paid","discount":0,"paid":28,"balance":0,"notes":"Pharmacy Billing","subTotal":25,"taxTotal":3,"netPayable":28}`

func TestInvoiceKeepsPayload(t *testing.T) {
	var inv Invoice
	if err := json.Unmarshal([]byte(pharmacyPayload), &inv); err != nil {
		t.Fatal(err)
	}
	if inv.Items[0].Product != "665f0c" || inv.Items[0].Unit != "strip" || inv.PatientPhone != "9876543210" {
		t.Errorf("decoded = %+v", inv)
	}

	out, err := json.Marshal(&inv)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != pharmacyPayload {
		t.Errorf("encoded = %s\nwant %s", out, pharmacyPayload)
	}
}

func TestInvoiceNormalizeWalkIn(t *testing.T) {
	var inv Invoice
	payload := `{"patientName":"","items":[{"product":"665f0c","qty":1}],"notes":"Pharmacy Billing"}`
	if err := json.Unmarshal([]byte(payload), &inv); err != nil {
		t.Fatal(err)
	}
	if err := inv.Normalize(); err != nil {
		t.Fatal(err)
	}
	if inv.PatientName != WalkInPatient {
		t.Errorf("PatientName = %q, want %q", inv.PatientName, WalkInPatient)
	}

	out, err := json.Marshal(inv)
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]any
	if err := json.Unmarshal(out, &fields); err != nil {
		t.Fatal(err)
	}
	if fields["patientName"] != WalkInPatient || fields["notes"] != "Pharmacy Billing" {
		t.Errorf("normalized payload = %s", out)
	}

	named := Invoice{PatientName: "John Doe"}
	if err := named.Normalize(); err != nil || named.PatientName != "John Doe" {
		t.Errorf("Normalize changed a named invoice: %q, %v", named.PatientName, err)
	}
}

func TestOccupancyStale(t *testing.T) {
	now := time.Now()
	ttl := 8 * time.Second

	if (OccupancyRecord{LastSeen: now.Add(-7 * time.Second)}).Stale(now, ttl) {
		t.Error("7s old lease should be fresh")
	}
	if !(OccupancyRecord{LastSeen: now.Add(-9 * time.Second)}).Stale(now, ttl) {
		t.Error("9s old lease should be stale")
	}
	if (OccupancyRecord{LastSeen: now.Add(-ttl)}).Stale(now, ttl) {
		t.Error("lease exactly at ttl should still be fresh")
	}
}
