package api

import (
	"encoding/json"
	"time"

	"github.com/matheus3301/msana/internal/model"
	intsync "github.com/matheus3301/msana/internal/sync"
)

type StatusRequest struct{}

type StatusResponse struct {
	Tab          string      `json:"tab"`
	TabID        string      `json:"tabId"`
	Account      *model.User `json:"account,omitempty"`
	Online       bool        `json:"online"`
	Liveness     string      `json:"liveness"`
	NetworkMode  string      `json:"networkMode"`
	PendingCount int         `json:"pendingCount"`
	IsSyncing    bool        `json:"isSyncing"`
	LastSyncAt   time.Time   `json:"lastSyncAt,omitzero"`
	UptimeMs     int64       `json:"uptimeMs"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User model.User `json:"user"`
}

type LogoutRequest struct{}

type LogoutResponse struct {
	Email string `json:"email,omitempty"`
}

type SwitchAccountRequest struct {
	Email string `json:"email"`
}

// SwitchAccountResponse reports a refused switch in Success and Message
// rather than as an error.
type SwitchAccountResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	User    *model.User `json:"user,omitempty"`
}

type ListAccountsRequest struct{}

type ListAccountsResponse struct {
	Accounts []model.AccountSummary `json:"accounts"`
}

// CreateInvoiceRequest carries the invoice payload. ClearDraft names a draft
// category to drop once the server accepts the invoice; queued invoices keep it.
type CreateInvoiceRequest struct {
	Invoice    model.Invoice `json:"invoice"`
	ClearDraft string        `json:"clearDraft,omitempty"`
}

type CreateInvoiceResponse struct {
	Outcome        string `json:"outcome"`
	InvoiceNo      string `json:"invoiceNo"`
	QueueID        int64  `json:"queueId,omitempty"`
	IdempotencyKey string `json:"idempotencyKey"`
	Message        string `json:"message"`
	DraftCleared   bool   `json:"draftCleared,omitempty"`
}

type SyncNowRequest struct{}

type SyncNowResponse = intsync.Result

type SyncStatusRequest struct{}

type SyncStatusResponse = intsync.Status

// Network modes accepted by SetNetwork.
const (
	NetworkOnline  = "online"
	NetworkOffline = "offline"
	NetworkAuto    = "auto"
)

type SetNetworkRequest struct {
	Mode string `json:"mode"`
}

type SetNetworkResponse struct {
	Liveness string `json:"liveness"`
	Mode     string `json:"mode"`
}

type SaveDraftRequest struct {
	Category string          `json:"category"`
	Data     json.RawMessage `json:"data"`
}

type SaveDraftResponse struct{}

type GetDraftRequest struct {
	Category string `json:"category"`
}

type GetDraftResponse struct {
	Found     bool            `json:"found"`
	Data      json.RawMessage `json:"data,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt,omitzero"`
}

type ClearDraftRequest struct {
	Category string `json:"category"`
}

type ClearDraftResponse struct{}

type ListProductsRequest struct{}

type ListProductsResponse struct {
	Products []model.Product `json:"products"`
	Cached   bool            `json:"cached"`
}
