// Package api implements the local control API a tab serves to msanactl and
// msanatui.
//
// The service is declared by hand. Requests and responses travel as
// google.protobuf.Struct and are bridged to the Go types in messages.go
// through their JSON form.
package api

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "msana.v1.Console"

// Method names.
const (
	MethodStatus        = "Status"
	MethodLogin         = "Login"
	MethodLogout        = "Logout"
	MethodSwitchAccount = "SwitchAccount"
	MethodListAccounts  = "ListAccounts"
	MethodCreateInvoice = "CreateInvoice"
	MethodSyncNow       = "SyncNow"
	MethodSyncStatus    = "SyncStatus"
	MethodSetNetwork    = "SetNetwork"
	MethodSaveDraft     = "SaveDraft"
	MethodGetDraft      = "GetDraft"
	MethodClearDraft    = "ClearDraft"
	MethodListProducts  = "ListProducts"
)

// FullMethod returns the gRPC path of a method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// ConsoleServer is the server side of the control API.
type ConsoleServer interface {
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	SwitchAccount(context.Context, *SwitchAccountRequest) (*SwitchAccountResponse, error)
	ListAccounts(context.Context, *ListAccountsRequest) (*ListAccountsResponse, error)
	CreateInvoice(context.Context, *CreateInvoiceRequest) (*CreateInvoiceResponse, error)
	SyncNow(context.Context, *SyncNowRequest) (*SyncNowResponse, error)
	SyncStatus(context.Context, *SyncStatusRequest) (*SyncStatusResponse, error)
	SetNetwork(context.Context, *SetNetworkRequest) (*SetNetworkResponse, error)
	SaveDraft(context.Context, *SaveDraftRequest) (*SaveDraftResponse, error)
	GetDraft(context.Context, *GetDraftRequest) (*GetDraftResponse, error)
	ClearDraft(context.Context, *ClearDraftRequest) (*ClearDraftResponse, error)
	ListProducts(context.Context, *ListProductsRequest) (*ListProductsResponse, error)
}

// ConsoleServiceDesc describes the Console service for grpc.Server.RegisterService.
var ConsoleServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ConsoleServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodStatus, ConsoleServer.Status),
		unary(MethodLogin, ConsoleServer.Login),
		unary(MethodLogout, ConsoleServer.Logout),
		unary(MethodSwitchAccount, ConsoleServer.SwitchAccount),
		unary(MethodListAccounts, ConsoleServer.ListAccounts),
		unary(MethodCreateInvoice, ConsoleServer.CreateInvoice),
		unary(MethodSyncNow, ConsoleServer.SyncNow),
		unary(MethodSyncStatus, ConsoleServer.SyncStatus),
		unary(MethodSetNetwork, ConsoleServer.SetNetwork),
		unary(MethodSaveDraft, ConsoleServer.SaveDraft),
		unary(MethodGetDraft, ConsoleServer.GetDraft),
		unary(MethodClearDraft, ConsoleServer.ClearDraft),
		unary(MethodListProducts, ConsoleServer.ListProducts),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "msana/v1/console.proto",
}

// RegisterConsoleServer registers srv on s.
func RegisterConsoleServer(s grpc.ServiceRegistrar, srv ConsoleServer) {
	s.RegisterService(&ConsoleServiceDesc, srv)
}

func unary[Req, Resp any](method string, call func(ConsoleServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				r := new(Req)
				if err := FromStruct(req.(*structpb.Struct), r); err != nil {
					return nil, grpcstatus.Errorf(codes.InvalidArgument, "decode %s request: %v", method, err)
				}
				resp, err := call(srv.(ConsoleServer), ctx, r)
				if err != nil {
					return nil, err
				}
				out, err := ToStruct(resp)
				if err != nil {
					return nil, grpcstatus.Errorf(codes.Internal, "encode %s response: %v", method, err)
				}
				return out, nil
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ToStruct converts a JSON-encodable value to a Struct.
func ToStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := new(structpb.Struct)
	if string(raw) == "null" {
		return s, nil
	}
	if err := protojson.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("not a JSON object: %w", err)
	}
	return s, nil
}

// FromStruct decodes a Struct into v.
func FromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		return nil
	}
	raw, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
