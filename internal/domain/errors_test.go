package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestOverlaps(t *testing.T) {
	base := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		{"identical", base, base.Add(day), base, base.Add(day), true},
		{"touching end to start", base, base.Add(day), base.Add(day), base.Add(2 * day), false},
		{"touching start to end", base.Add(day), base.Add(2 * day), base, base.Add(day), false},
		{"contained", base, base.Add(3 * day), base.Add(day), base.Add(2 * day), true},
		{"partial", base, base.Add(2 * day), base.Add(day), base.Add(3 * day), true},
		{"disjoint", base, base.Add(day), base.Add(2 * day), base.Add(3 * day), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
			assert.Equal(t, tt.want, Overlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd))
		})
	}
}

func TestReservationStatus_IsOccupying(t *testing.T) {
	assert.True(t, ReservationStatusPending.IsOccupying())
	assert.True(t, ReservationStatusConfirmed.IsOccupying())
	assert.True(t, ReservationStatusActive.IsOccupying())
	assert.False(t, ReservationStatusCompleted.IsOccupying())
	assert.False(t, ReservationStatusCancelled.IsOccupying())
	assert.False(t, ReservationStatusRejected.IsOccupying())
}

func TestTypedErrorsMatchSentinels(t *testing.T) {
	ite := fmt.Errorf("transition: %w", &InvalidTransitionError{From: ReservationStatusCompleted, To: ReservationStatusCompleted})
	assert.True(t, errors.Is(ite, ErrInvalidTransition))
	assert.Equal(t, "reservation cannot move from COMPLETED to COMPLETED", UserMessage(ite))

	ce := &ConflictError{ConflictingID: uuid.New()}
	assert.True(t, errors.Is(ce, ErrSchedulingConflict))
	assert.Equal(t, "already reserved for the selected dates", UserMessage(ce))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "invalid rental period", UserMessage(fmt.Errorf("create: %w", ErrInvalidInterval)))
	assert.Equal(t, "service temporarily unavailable, try again", UserMessage(ErrUnavailable))
	assert.Equal(t, "internal error", UserMessage(errors.New("boom")))
}

func TestRenterEligibility_CanRentAt(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	guard := 30 * 24 * time.Hour
	far := now.AddDate(1, 0, 0)
	soon := now.AddDate(0, 0, 10)

	assert.True(t, (&RenterEligibility{Verified: true, LicenseNumber: "L1", LicenseExpiry: &far}).CanRentAt(now, guard))
	assert.False(t, (&RenterEligibility{Verified: false, LicenseNumber: "L1", LicenseExpiry: &far}).CanRentAt(now, guard))
	assert.False(t, (&RenterEligibility{Verified: true, LicenseExpiry: &far}).CanRentAt(now, guard))
	assert.False(t, (&RenterEligibility{Verified: true, LicenseNumber: "L1"}).CanRentAt(now, guard))
	assert.False(t, (&RenterEligibility{Verified: true, LicenseNumber: "L1", LicenseExpiry: &soon}).CanRentAt(now, guard))
	var nilElig *RenterEligibility
	assert.False(t, nilElig.CanRentAt(now, guard))
}
