package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("reservation or asset not found")
	ErrForbidden          = errors.New("you are not allowed to perform this action")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrSchedulingConflict = errors.New("already reserved for the selected dates")
	ErrIneligibleRenter   = errors.New("account is not eligible to rent: verify your account and license")
	ErrInvalidInterval    = errors.New("invalid rental period")
	ErrAssetUnavailable   = errors.New("asset is not available for rent")
	ErrUnavailable        = errors.New("service temporarily unavailable, try again")

	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidSignature  = errors.New("invalid payment signature")
	ErrPaymentInProgress = errors.New("a payment for this reservation is already in progress")
)

// InvalidTransitionError carries the observed and requested statuses.
type InvalidTransitionError struct {
	From ReservationStatus
	To   ReservationStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("reservation cannot move from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// ConflictError names the occupying reservation that blocked a create.
type ConflictError struct {
	ConflictingID uuid.UUID
}

func (e *ConflictError) Error() string {
	if e.ConflictingID == uuid.Nil {
		return ErrSchedulingConflict.Error()
	}
	return fmt.Sprintf("%s (conflicts with reservation %s)", ErrSchedulingConflict.Error(), e.ConflictingID)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrSchedulingConflict
}

var userFacing = []error{
	ErrNotFound,
	ErrForbidden,
	ErrSchedulingConflict,
	ErrIneligibleRenter,
	ErrInvalidInterval,
	ErrAssetUnavailable,
	ErrUnavailable,
	ErrInvalidArgument,
	ErrInvalidSignature,
	ErrPaymentInProgress,
}

// UserMessage returns the stable message a client should display for err.
// Unknown errors collapse to a generic failure.
func UserMessage(err error) string {
	var ite *InvalidTransitionError
	if errors.As(err, &ite) {
		return ite.Error()
	}
	if errors.Is(err, ErrInvalidTransition) {
		return ErrInvalidTransition.Error()
	}
	for _, known := range userFacing {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "internal error"
}
