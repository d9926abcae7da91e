package grpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"reservation-engine/internal/domain"
	"reservation-engine/internal/logger"
)

var errorCodes = []struct {
	kind error
	code codes.Code
}{
	{domain.ErrNotFound, codes.NotFound},
	{domain.ErrForbidden, codes.PermissionDenied},
	{domain.ErrInvalidTransition, codes.FailedPrecondition},
	{domain.ErrSchedulingConflict, codes.AlreadyExists},
	{domain.ErrIneligibleRenter, codes.FailedPrecondition},
	{domain.ErrInvalidInterval, codes.InvalidArgument},
	{domain.ErrAssetUnavailable, codes.FailedPrecondition},
	{domain.ErrPaymentInProgress, codes.AlreadyExists},
	{domain.ErrInvalidArgument, codes.InvalidArgument},
	{domain.ErrUnavailable, codes.Unavailable},
}

// toStatus converts a service error into a gRPC status carrying the stable
// user-facing message for its kind.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.kind) {
			return status.Error(ec.code, domain.UserMessage(err))
		}
	}
	logger.Error("Unexpected service error", "error", err)
	return status.Error(codes.Internal, domain.UserMessage(err))
}
