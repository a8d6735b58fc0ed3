package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matheus3301/msana/internal/catalog"
	"github.com/matheus3301/msana/internal/drafts"
	"github.com/matheus3301/msana/internal/errs"
	"github.com/matheus3301/msana/internal/lease"
	"github.com/matheus3301/msana/internal/liveness"
	"github.com/matheus3301/msana/internal/model"
	"github.com/matheus3301/msana/internal/outbox"
	intsync "github.com/matheus3301/msana/internal/sync"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// Authenticator exchanges credentials for a profile and token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (model.User, string, error)
}

// ConsoleService implements ConsoleServer on top of one tab's components.
type ConsoleService struct {
	tabName   string
	startedAt time.Time
	leases    *lease.Manager
	monitor   *liveness.Monitor
	auth      Authenticator
	submitter *outbox.Submitter
	engine    *intsync.Engine
	drafts    *drafts.Service
	catalog   *catalog.Service
	logger    *zap.Logger
}

// Deps are the components a ConsoleService serves.
type Deps struct {
	TabName   string
	Leases    *lease.Manager
	Monitor   *liveness.Monitor
	Auth      Authenticator
	Submitter *outbox.Submitter
	Engine    *intsync.Engine
	Drafts    *drafts.Service
	Catalog   *catalog.Service
	Logger    *zap.Logger
}

// NewConsoleService creates the control service.
func NewConsoleService(d Deps) *ConsoleService {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleService{
		tabName:   d.TabName,
		startedAt: time.Now(),
		leases:    d.Leases,
		monitor:   d.Monitor,
		auth:      d.Auth,
		submitter: d.Submitter,
		engine:    d.Engine,
		drafts:    d.Drafts,
		catalog:   d.Catalog,
		logger:    logger,
	}
}

func (s *ConsoleService) Status(ctx context.Context, _ *StatusRequest) (*StatusResponse, error) {
	resp := &StatusResponse{
		Tab:         s.tabName,
		TabID:       s.leases.TabID(),
		Account:     s.leases.User(),
		Online:      s.monitor.Online(),
		Liveness:    string(s.monitor.State()),
		NetworkMode: string(s.monitor.Mode()),
		UptimeMs:    time.Since(s.startedAt).Milliseconds(),
	}
	st, err := s.engine.Status(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	resp.PendingCount = st.PendingCount
	resp.IsSyncing = st.IsSyncing
	resp.LastSyncAt = st.LastSyncAt
	return resp, nil
}

func (s *ConsoleService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "email and password are required")
	}
	user, token, err := s.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := s.leases.Login(ctx, user, token); err != nil {
		return nil, toStatus(err)
	}
	return &LoginResponse{User: user}, nil
}

func (s *ConsoleService) Logout(ctx context.Context, _ *LogoutRequest) (*LogoutResponse, error) {
	email := s.leases.ActiveEmail()
	if err := s.leases.Logout(ctx); err != nil {
		return nil, toStatus(err)
	}
	return &LogoutResponse{Email: email}, nil
}

func (s *ConsoleService) SwitchAccount(ctx context.Context, req *SwitchAccountRequest) (*SwitchAccountResponse, error) {
	user, err := s.leases.SwitchAccount(ctx, req.Email)
	switch {
	case err == nil:
		return &SwitchAccountResponse{Success: true, User: user}, nil
	case errors.Is(err, errs.ErrAccountBusy), errors.Is(err, errs.ErrAccountNotFound):
		return &SwitchAccountResponse{Success: false, Message: err.Error()}, nil
	default:
		return nil, toStatus(err)
	}
}

func (s *ConsoleService) ListAccounts(ctx context.Context, _ *ListAccountsRequest) (*ListAccountsResponse, error) {
	accounts, err := s.leases.Accounts(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListAccountsResponse{Accounts: accounts}, nil
}

func (s *ConsoleService) CreateInvoice(ctx context.Context, req *CreateInvoiceRequest) (*CreateInvoiceResponse, error) {
	if s.leases.ActiveEmail() == "" {
		return nil, toStatus(errs.ErrNoActiveAccount)
	}
	inv := req.Invoice
	res, err := s.submitter.Submit(ctx, &inv)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &CreateInvoiceResponse{
		Outcome:        string(res.Outcome),
		InvoiceNo:      res.InvoiceNo,
		QueueID:        res.QueueID,
		IdempotencyKey: res.IdempotencyKey,
	}
	if res.Outcome == outbox.Queued {
		resp.Message = fmt.Sprintf("Invoice queued for sync (entry %d)", res.QueueID)
		return resp, nil
	}
	resp.Message = "Invoice created successfully!"
	if req.ClearDraft != "" {
		// The invoice is committed either way; a stale draft is only an annoyance.
		if err := s.drafts.Clear(ctx, req.ClearDraft); err != nil {
			s.logger.Warn("clear draft after commit", zap.String("category", req.ClearDraft), zap.Error(err))
		} else {
			resp.DraftCleared = true
		}
	}
	return resp, nil
}

func (s *ConsoleService) SyncNow(ctx context.Context, _ *SyncNowRequest) (*SyncNowResponse, error) {
	res, err := s.engine.SyncPending(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &res, nil
}

func (s *ConsoleService) SyncStatus(ctx context.Context, _ *SyncStatusRequest) (*SyncStatusResponse, error) {
	st, err := s.engine.Status(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &st, nil
}

func (s *ConsoleService) SetNetwork(ctx context.Context, req *SetNetworkRequest) (*SetNetworkResponse, error) {
	var err error
	switch req.Mode {
	case NetworkOnline:
		err = s.monitor.Force(true)
	case NetworkOffline:
		err = s.monitor.Force(false)
	case NetworkAuto:
		err = s.monitor.Auto(ctx)
	default:
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "unknown network mode %q: want online, offline or auto", req.Mode)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return &SetNetworkResponse{Liveness: string(s.monitor.State()), Mode: string(s.monitor.Mode())}, nil
}

func (s *ConsoleService) SaveDraft(ctx context.Context, req *SaveDraftRequest) (*SaveDraftResponse, error) {
	if err := s.drafts.Save(ctx, req.Category, req.Data); err != nil {
		return nil, toStatus(err)
	}
	return &SaveDraftResponse{}, nil
}

func (s *ConsoleService) GetDraft(ctx context.Context, req *GetDraftRequest) (*GetDraftResponse, error) {
	d, err := s.drafts.Get(ctx, req.Category)
	if err != nil {
		return nil, toStatus(err)
	}
	if d == nil {
		return &GetDraftResponse{}, nil
	}
	return &GetDraftResponse{Found: true, Data: d.Data, UpdatedAt: d.UpdatedAt}, nil
}

func (s *ConsoleService) ClearDraft(ctx context.Context, req *ClearDraftRequest) (*ClearDraftResponse, error) {
	if err := s.drafts.Clear(ctx, req.Category); err != nil {
		return nil, toStatus(err)
	}
	return &ClearDraftResponse{}, nil
}

func (s *ConsoleService) ListProducts(ctx context.Context, _ *ListProductsRequest) (*ListProductsResponse, error) {
	products, cached, err := s.catalog.Products(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	if products == nil {
		products = []model.Product{}
	}
	return &ListProductsResponse{Products: products, Cached: cached}, nil
}
