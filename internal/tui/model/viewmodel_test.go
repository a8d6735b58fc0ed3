package model

import (
	"context"
	"errors"
	"testing"

	"github.com/matheus3301/msana/internal/api"
	domain "github.com/matheus3301/msana/internal/model"
	intsync "github.com/matheus3301/msana/internal/sync"
)

type fakeClient struct {
	status   *api.StatusResponse
	accounts []domain.AccountSummary
	sync     api.SyncNowResponse
	switched api.SwitchAccountResponse
	err      error
}

func (f *fakeClient) Status(context.Context) (*api.StatusResponse, error) {
	return f.status, f.err
}

func (f *fakeClient) ListAccounts(context.Context) (*api.ListAccountsResponse, error) {
	return &api.ListAccountsResponse{Accounts: f.accounts}, f.err
}

func (f *fakeClient) SwitchAccount(context.Context, string) (*api.SwitchAccountResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &f.switched, nil
}

func (f *fakeClient) Logout(context.Context) (*api.LogoutResponse, error) {
	return &api.LogoutResponse{Email: "ana@example.com"}, f.err
}

func (f *fakeClient) SyncNow(context.Context) (*api.SyncNowResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &f.sync, nil
}

func (f *fakeClient) SetNetwork(_ context.Context, mode string) (*api.SetNetworkResponse, error) {
	return &api.SetNetworkResponse{Liveness: "OFFLINE", Mode: "forced_" + mode}, f.err
}

func TestRefresh(t *testing.T) {
	c := &fakeClient{
		status:   &api.StatusResponse{Tab: "main", PendingCount: 2},
		accounts: []domain.AccountSummary{{User: domain.User{Email: "ana@example.com"}, Active: true}},
	}
	vm := NewViewModel(c)
	if vm.Status() != nil {
		t.Fatal("status before refresh should be nil")
	}
	if err := vm.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if vm.Status().PendingCount != 2 {
		t.Fatalf("pending = %d", vm.Status().PendingCount)
	}
	if len(vm.Accounts()) != 1 {
		t.Fatalf("accounts = %d", len(vm.Accounts()))
	}

	c.err = errors.New("tab gone")
	if err := vm.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if vm.Status() == nil {
		t.Fatal("failed refresh should keep the last status")
	}
}

func TestSyncNowNotice(t *testing.T) {
	cases := []struct {
		name    string
		res     api.SyncNowResponse
		want    string
		isError bool
	}{
		{"refused", intsync.Result{Message: intsync.MsgOffline}, "Offline", true},
		{"empty", intsync.Result{Success: true}, "Nothing to sync", false},
		{"synced", intsync.Result{Success: true, Synced: 3}, "Synced 3 offline invoice(s)", false},
		{"partial", intsync.Result{Success: true, Synced: 1, Failed: 2}, "Synced 1, failed 2 invoice(s)", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vm := NewViewModel(&fakeClient{sync: tc.res})
			n := vm.SyncNow(context.Background())
			if n.Text != tc.want || n.Error != tc.isError {
				t.Fatalf("got %+v, want %q error=%v", n, tc.want, tc.isError)
			}
		})
	}
}

func TestSwitchAccountNotice(t *testing.T) {
	busy := "This account is already active in another tab"
	vm := NewViewModel(&fakeClient{switched: api.SwitchAccountResponse{Message: busy}})
	n := vm.SwitchAccount(context.Background(), "bob@example.com")
	if n.Text != busy || !n.Error {
		t.Fatalf("got %+v", n)
	}

	vm = NewViewModel(&fakeClient{switched: api.SwitchAccountResponse{Success: true}})
	n = vm.SwitchAccount(context.Background(), "bob@example.com")
	if n.Text != "Switched to bob@example.com" || n.Error {
		t.Fatalf("got %+v", n)
	}
}
