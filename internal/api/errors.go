package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/matheus3301/msana/internal/billingapi"
	"github.com/matheus3301/msana/internal/drafts"
	"github.com/matheus3301/msana/internal/errs"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// toStatus maps domain errors onto gRPC status codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := grpcstatus.FromError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return grpcstatus.FromContextError(err).Err()
	}

	var (
		appErr     *billingapi.ApplicationError
		netErr     *billingapi.NetworkError
		storageErr *errs.StorageError
	)
	switch {
	case errors.Is(err, errs.ErrAccountBusy):
		return grpcstatus.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, errs.ErrAccountNotFound):
		return grpcstatus.Error(codes.NotFound, err.Error())
	case errors.Is(err, errs.ErrNoActiveAccount):
		return grpcstatus.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, errs.ErrInvalidInvoice),
		errors.Is(err, drafts.ErrNoCategory),
		errors.Is(err, drafts.ErrInvalidJSON):
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &appErr):
		return grpcstatus.Error(httpCode(appErr.StatusCode), appErr.Error())
	case errors.As(err, &netErr):
		return grpcstatus.Error(codes.Unavailable, err.Error())
	case errors.As(err, &storageErr):
		return grpcstatus.Error(codes.Internal, err.Error())
	default:
		return grpcstatus.Error(codes.Internal, err.Error())
	}
}

func httpCode(status int) codes.Code {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return codes.InvalidArgument
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusConflict:
		return codes.AlreadyExists
	case http.StatusTooManyRequests:
		return codes.ResourceExhausted
	default:
		return codes.Unknown
	}
}
