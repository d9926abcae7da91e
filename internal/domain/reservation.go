package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "PENDING"
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusActive    ReservationStatus = "ACTIVE"
	ReservationStatusCompleted ReservationStatus = "COMPLETED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
	ReservationStatusRejected  ReservationStatus = "REJECTED"
)

// OccupyingStatuses are the statuses that block the interval for other renters.
var OccupyingStatuses = []ReservationStatus{
	ReservationStatusPending,
	ReservationStatusConfirmed,
	ReservationStatusActive,
}

// IsOccupying reports whether a reservation in this status counts toward conflict detection.
func (s ReservationStatus) IsOccupying() bool {
	for _, o := range OccupyingStatuses {
		if s == o {
			return true
		}
	}
	return false
}

func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationStatusCompleted || s == ReservationStatusCancelled || s == ReservationStatusRejected
}

func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationStatusPending, ReservationStatusConfirmed, ReservationStatusActive,
		ReservationStatusCompleted, ReservationStatusCancelled, ReservationStatusRejected:
		return true
	}
	return false
}

type Reservation struct {
	ID       uuid.UUID `json:"id"`
	AssetID  int32     `json:"asset_id"`
	RenterID int32     `json:"renter_id"`
	OwnerID  int32     `json:"owner_id"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	// Price snapshot captured at creation time. Later asset price changes
	// never touch these.
	RatePerUnitCents int32 `json:"rate_per_unit_cents"`
	UnitCount        int32 `json:"unit_count"`
	TotalAmountCents int32 `json:"total_amount_cents"`
	DepositCents     int32 `json:"deposit_cents"`

	Status ReservationStatus `json:"status"`

	Notes          string `json:"notes,omitempty"`
	PickupLocation string `json:"pickup_location,omitempty"`
	ReturnLocation string `json:"return_location,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Overlaps reports whether r occupies any part of [start, end).
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return Overlaps(r.StartTime, r.EndTime, start, end)
}

type ActorRole string

const (
	ActorRoleUser          ActorRole = "USER"
	ActorRoleAdmin         ActorRole = "ADMIN"
	ActorRolePaymentBridge ActorRole = "PAYMENT_BRIDGE"
)

// Actor identifies who is requesting a lifecycle change.
type Actor struct {
	ID   int32     `json:"id"`
	Role ActorRole `json:"role"`
}

type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// ReservationFilter narrows a listing. Zero values mean "any".
type ReservationFilter struct {
	Status   ReservationStatus `json:"status,omitempty"`
	AssetID  int32             `json:"asset_id,omitempty"`
	RenterID int32             `json:"renter_id,omitempty"`
	OwnerID  int32             `json:"owner_id,omitempty"`
}

type PageRequest struct {
	Page      int32         `json:"page"`
	PageSize  int32         `json:"page_size"`
	SortField string        `json:"sort_field,omitempty"`
	SortDir   SortDirection `json:"sort_dir,omitempty"`
}

type ReservationPage struct {
	Items      []Reservation `json:"items"`
	TotalCount int32         `json:"total_count"`
	Page       int32         `json:"page"`
	PageSize   int32         `json:"page_size"`
}

// Availability is the answer to a checkAvailability query.
type Availability struct {
	Available              bool         `json:"available"`
	ConflictingReservation *Reservation `json:"conflicting_reservation,omitempty"`
}
