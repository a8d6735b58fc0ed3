package client

import (
	"context"
	"fmt"

	"github.com/matheus3301/msana/internal/api"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client is a typed wrapper over the tab's control API.
type Client struct {
	conn grpc.ClientConnInterface
	own  *grpc.ClientConn
}

// New dials the tab's Unix domain socket.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial tab: %w", err)
	}
	return &Client{conn: conn, own: conn}, nil
}

// NewFromConn wraps an existing connection. Close leaves it open.
func NewFromConn(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	if c.own == nil {
		return nil
	}
	return c.own.Close()
}

func invoke[Resp any](ctx context.Context, c *Client, method string, req any) (*Resp, error) {
	in, err := api.ToStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, api.FullMethod(method), in, out); err != nil {
		return nil, err
	}
	resp := new(Resp)
	if err := api.FromStruct(out, resp); err != nil {
		return nil, fmt.Errorf("decode %s: %w", method, err)
	}
	return resp, nil
}

func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	return invoke[api.StatusResponse](ctx, c, api.MethodStatus, &api.StatusRequest{})
}

func (c *Client) Login(ctx context.Context, email, password string) (*api.LoginResponse, error) {
	return invoke[api.LoginResponse](ctx, c, api.MethodLogin, &api.LoginRequest{Email: email, Password: password})
}

func (c *Client) Logout(ctx context.Context) (*api.LogoutResponse, error) {
	return invoke[api.LogoutResponse](ctx, c, api.MethodLogout, &api.LogoutRequest{})
}

func (c *Client) SwitchAccount(ctx context.Context, email string) (*api.SwitchAccountResponse, error) {
	return invoke[api.SwitchAccountResponse](ctx, c, api.MethodSwitchAccount, &api.SwitchAccountRequest{Email: email})
}

func (c *Client) ListAccounts(ctx context.Context) (*api.ListAccountsResponse, error) {
	return invoke[api.ListAccountsResponse](ctx, c, api.MethodListAccounts, &api.ListAccountsRequest{})
}

func (c *Client) CreateInvoice(ctx context.Context, req *api.CreateInvoiceRequest) (*api.CreateInvoiceResponse, error) {
	return invoke[api.CreateInvoiceResponse](ctx, c, api.MethodCreateInvoice, req)
}

func (c *Client) SyncNow(ctx context.Context) (*api.SyncNowResponse, error) {
	return invoke[api.SyncNowResponse](ctx, c, api.MethodSyncNow, &api.SyncNowRequest{})
}

func (c *Client) SyncStatus(ctx context.Context) (*api.SyncStatusResponse, error) {
	return invoke[api.SyncStatusResponse](ctx, c, api.MethodSyncStatus, &api.SyncStatusRequest{})
}

func (c *Client) SetNetwork(ctx context.Context, mode string) (*api.SetNetworkResponse, error) {
	return invoke[api.SetNetworkResponse](ctx, c, api.MethodSetNetwork, &api.SetNetworkRequest{Mode: mode})
}

func (c *Client) SaveDraft(ctx context.Context, category string, data []byte) error {
	_, err := invoke[api.SaveDraftResponse](ctx, c, api.MethodSaveDraft, &api.SaveDraftRequest{Category: category, Data: data})
	return err
}

func (c *Client) GetDraft(ctx context.Context, category string) (*api.GetDraftResponse, error) {
	return invoke[api.GetDraftResponse](ctx, c, api.MethodGetDraft, &api.GetDraftRequest{Category: category})
}

func (c *Client) ClearDraft(ctx context.Context, category string) error {
	_, err := invoke[api.ClearDraftResponse](ctx, c, api.MethodClearDraft, &api.ClearDraftRequest{Category: category})
	return err
}

func (c *Client) ListProducts(ctx context.Context) (*api.ListProductsResponse, error) {
	return invoke[api.ListProductsResponse](ctx, c, api.MethodListProducts, &api.ListProductsRequest{})
}
