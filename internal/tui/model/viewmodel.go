package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/matheus3301/msana/internal/api"
	domain "github.com/matheus3301/msana/internal/model"
)

// Client is the part of the control API the TUI drives.
type Client interface {
	Status(ctx context.Context) (*api.StatusResponse, error)
	ListAccounts(ctx context.Context) (*api.ListAccountsResponse, error)
	SwitchAccount(ctx context.Context, email string) (*api.SwitchAccountResponse, error)
	Logout(ctx context.Context) (*api.LogoutResponse, error)
	SyncNow(ctx context.Context) (*api.SyncNowResponse, error)
	SetNetwork(ctx context.Context, mode string) (*api.SetNetworkResponse, error)
}

// Notice is the outcome of a user action, shown on the flash line.
type Notice struct {
	Text  string
	Error bool
}

// ViewModel caches what the tab last reported.
type ViewModel struct {
	mu sync.RWMutex

	client   Client
	status   *api.StatusResponse
	accounts []domain.AccountSummary
}

// NewViewModel creates a view model over a tab client.
func NewViewModel(c Client) *ViewModel {
	return &ViewModel{client: c}
}

// Refresh reloads status and the account list.
func (vm *ViewModel) Refresh(ctx context.Context) error {
	st, err := vm.client.Status(ctx)
	if err != nil {
		return err
	}
	accounts, err := vm.client.ListAccounts(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.status = st
	vm.accounts = accounts.Accounts
	vm.mu.Unlock()
	return nil
}

// Status returns the last reported status, or nil before the first refresh.
func (vm *ViewModel) Status() *api.StatusResponse {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.status
}

// Accounts returns the last reported account list.
func (vm *ViewModel) Accounts() []domain.AccountSummary {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.accounts
}

// SyncNow runs a sync pass on the tab.
func (vm *ViewModel) SyncNow(ctx context.Context) Notice {
	res, err := vm.client.SyncNow(ctx)
	if err != nil {
		return Notice{Text: "Sync failed: " + err.Error(), Error: true}
	}
	switch {
	case res.Message != "":
		return Notice{Text: res.Message, Error: !res.Success}
	case res.Synced == 0 && res.Failed == 0:
		return Notice{Text: "Nothing to sync"}
	case res.Failed > 0:
		return Notice{Text: fmt.Sprintf("Synced %d, failed %d invoice(s)", res.Synced, res.Failed), Error: true}
	default:
		return Notice{Text: fmt.Sprintf("Synced %d offline invoice(s)", res.Synced)}
	}
}

// SwitchAccount makes email the tab's active account.
func (vm *ViewModel) SwitchAccount(ctx context.Context, email string) Notice {
	res, err := vm.client.SwitchAccount(ctx, email)
	if err != nil {
		return Notice{Text: "Switch failed: " + err.Error(), Error: true}
	}
	if !res.Success {
		return Notice{Text: res.Message, Error: true}
	}
	return Notice{Text: "Switched to " + email}
}

// Logout logs the tab out of its active account.
func (vm *ViewModel) Logout(ctx context.Context) Notice {
	res, err := vm.client.Logout(ctx)
	if err != nil {
		return Notice{Text: "Logout failed: " + err.Error(), Error: true}
	}
	if res.Email == "" {
		return Notice{Text: "Not logged in"}
	}
	return Notice{Text: "Logged out " + res.Email}
}

// SetNetwork forces the tab online or offline, or returns it to probing.
func (vm *ViewModel) SetNetwork(ctx context.Context, mode string) Notice {
	res, err := vm.client.SetNetwork(ctx, mode)
	if err != nil {
		return Notice{Text: "Network change failed: " + err.Error(), Error: true}
	}
	return Notice{Text: fmt.Sprintf("Network %s (%s)", res.Liveness, res.Mode)}
}
