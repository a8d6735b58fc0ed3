package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/msana/internal/errs"
)

// WalkInPatient names the patient of an invoice sent without one.
const WalkInPatient = "Walk-in Customer"

// InvoiceItem is one billed line. Billing pages send either the product
// reference with qty, or a free-text productName, and older ones use quantity.
type InvoiceItem struct {
	Product     string  `json:"product,omitempty"`
	ProductName string  `json:"productName,omitempty"`
	Unit        string  `json:"unit,omitempty"`
	Batch       string  `json:"batch,omitempty"`
	Qty         float64 `json:"qty,omitempty"`
	Quantity    float64 `json:"quantity,omitempty"`
	UnitRate    float64 `json:"unitRate,omitempty"`
	GSTPct      float64 `json:"gstPct,omitempty"`
	Amount      float64 `json:"amount,omitempty"`
	Stock       float64 `json:"stock,omitempty"`
}

func (it InvoiceItem) count() float64 {
	if it.Qty != 0 {
		return it.Qty
	}
	return it.Quantity
}

// Invoice is the payload POST /invoices expects. An invoice decoded from JSON
// keeps the exact bytes it was decoded from and encodes back to them, so keys
// this type does not model still reach the server. Treat a decoded invoice as
// read-only; use Normalize to change it.
type Invoice struct {
	PatientName       string        `json:"patientName"`
	PatientPhone      string        `json:"patientPhone,omitempty"`
	PatientAddress    string        `json:"patientAddress,omitempty"`
	AdmissionDate     string        `json:"admissionDate,omitempty"`
	DischargeDate     string        `json:"dischargeDate,omitempty"`
	DoctorName        string        `json:"doctorName,omitempty"`
	Department        string        `json:"department,omitempty"`
	AccommodationType string        `json:"accommodationType,omitempty"`
	RoomNo            string        `json:"roomNo,omitempty"`
	Diagnosis         string        `json:"diagnosis,omitempty"`
	CustomerPhone     string        `json:"customerPhone,omitempty"`
	Items             []InvoiceItem `json:"items"`
	SubTotal          float64       `json:"subTotal"`
	TaxTotal          float64       `json:"taxTotal"`
	DiscountTotal     float64       `json:"discountTotal,omitempty"`
	Discount          float64       `json:"discount,omitempty"`
	NetPayable        float64       `json:"netPayable"`
	Paid              float64       `json:"paid"`
	Balance           float64       `json:"balance"`
	Mode              string        `json:"mode,omitempty"`
	PaymentStatus     string        `json:"paymentStatus,omitempty"`
	Notes             string        `json:"notes,omitempty"`

	raw json.RawMessage
}

// invoiceFields has Invoice's fields without its JSON methods.
type invoiceFields Invoice

// UnmarshalJSON decodes the known fields and keeps data verbatim.
func (inv *Invoice) UnmarshalJSON(data []byte) error {
	var f invoiceFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*inv = Invoice(f)
	inv.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON returns the decoded bytes, or the typed fields for an invoice
// built in code.
func (inv Invoice) MarshalJSON() ([]byte, error) {
	if len(inv.raw) > 0 {
		return inv.raw, nil
	}
	return json.Marshal(invoiceFields(inv))
}

// Normalize fills the defaults the billing pages apply before submitting.
func (inv *Invoice) Normalize() error {
	if strings.TrimSpace(inv.PatientName) != "" {
		return nil
	}
	inv.PatientName = WalkInPatient
	if len(inv.raw) == 0 {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(inv.raw, &fields); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidInvoice, err)
	}
	name, err := json.Marshal(inv.PatientName)
	if err != nil {
		return err
	}
	fields["patientName"] = name
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	inv.raw = raw
	return nil
}

// Validate checks the shape of an invoice before it is sent or queued.
func (inv *Invoice) Validate() error {
	if phone := inv.PatientPhone; phone != "" && !tenDigits(phone) {
		return fmt.Errorf("%w: mobile number must be exactly 10 digits", errs.ErrInvalidInvoice)
	}
	if len(inv.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", errs.ErrInvalidInvoice)
	}
	for i, it := range inv.Items {
		if strings.TrimSpace(it.Product) == "" && strings.TrimSpace(it.ProductName) == "" {
			return fmt.Errorf("%w: item %d: product is required", errs.ErrInvalidInvoice, i+1)
		}
		if it.count() <= 0 {
			return fmt.Errorf("%w: item %d: quantity must be positive", errs.ErrInvalidInvoice, i+1)
		}
	}
	return nil
}

func tenDigits(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CreatedInvoice is the server's view of a committed invoice.
type CreatedInvoice struct {
	ID        string  `json:"_id"`
	InvoiceNo string  `json:"invoiceNo"`
	Patient   string  `json:"patientName"`
	Total     float64 `json:"netPayable"`
}

// QueueEntry is an invoice waiting to be replayed against the server.
// Only Synced ever changes after the entry is written.
type QueueEntry struct {
	ID             int64
	IdempotencyKey string
	Invoice        Invoice
	CreatedAt      time.Time
	Synced         bool
}

// Draft holds partially filled form state for one draft category.
type Draft struct {
	Category  string
	Data      []byte
	UpdatedAt time.Time
}

// Product is a cached catalog entry used for offline billing.
type Product struct {
	ID           string  `json:"_id"`
	Name         string  `json:"name"`
	Stock        float64 `json:"stock"`
	SellingPrice float64 `json:"sellingPrice"`
	GST          float64 `json:"gst"`
}
