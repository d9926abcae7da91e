package grpc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"reservation-engine/internal/domain"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
		msg  string
	}{
		{"not found", fmt.Errorf("reservation x: %w", domain.ErrNotFound), codes.NotFound, "reservation or asset not found"},
		{"forbidden", domain.ErrForbidden, codes.PermissionDenied, "you are not allowed to perform this action"},
		{"invalid transition", &domain.InvalidTransitionError{From: domain.ReservationStatusCompleted, To: domain.ReservationStatusCompleted}, codes.FailedPrecondition, "reservation cannot move from COMPLETED to COMPLETED"},
		{"conflict", &domain.ConflictError{ConflictingID: uuid.New()}, codes.AlreadyExists, "already reserved for the selected dates"},
		{"ineligible", domain.ErrIneligibleRenter, codes.FailedPrecondition, domain.ErrIneligibleRenter.Error()},
		{"interval", domain.ErrInvalidInterval, codes.InvalidArgument, "invalid rental period"},
		{"asset", domain.ErrAssetUnavailable, codes.FailedPrecondition, "asset is not available for rent"},
		{"unavailable", fmt.Errorf("reservations.GetByID: %w", domain.ErrUnavailable), codes.Unavailable, "service temporarily unavailable, try again"},
		{"payment in progress", domain.ErrPaymentInProgress, codes.AlreadyExists, domain.ErrPaymentInProgress.Error()},
		{"unknown", errors.New("pq: relation does not exist"), codes.Internal, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, ok := status.FromError(toStatus(tt.err))
			assert.True(t, ok)
			assert.Equal(t, tt.code, st.Code())
			assert.Equal(t, tt.msg, st.Message())
		})
	}

	assert.NoError(t, toStatus(nil))

	already := status.Error(codes.Unauthenticated, "nope")
	assert.Equal(t, already, toStatus(already))
}
