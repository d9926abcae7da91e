package grpc

import (
	"time"

	"reservation-engine/internal/domain"
)

type CreateReservationRequest struct {
	AssetID        int32     `json:"asset_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Notes          string    `json:"notes,omitempty"`
	PickupLocation string    `json:"pickup_location,omitempty"`
	ReturnLocation string    `json:"return_location,omitempty"`
}

type ReservationResponse struct {
	Reservation *domain.Reservation `json:"reservation"`
}

type GetReservationRequest struct {
	ID string `json:"id"`
}

type TransitionReservationRequest struct {
	ID           string `json:"id"`
	TargetStatus string `json:"target_status"`
}

type CheckAvailabilityRequest struct {
	AssetID   int32     `json:"asset_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type CheckAvailabilityResponse struct {
	Available              bool                `json:"available"`
	ConflictingReservation *domain.Reservation `json:"conflicting_reservation,omitempty"`
}

type ListReservationsRequest struct {
	// Scope is RENTER (default), OWNER or ALL.
	Scope     string `json:"scope,omitempty"`
	Status    string `json:"status,omitempty"`
	AssetID   int32  `json:"asset_id,omitempty"`
	RenterID  int32  `json:"renter_id,omitempty"`
	OwnerID   int32  `json:"owner_id,omitempty"`
	Page      int32  `json:"page,omitempty"`
	PageSize  int32  `json:"page_size,omitempty"`
	SortField string `json:"sort_field,omitempty"`
	SortDir   string `json:"sort_dir,omitempty"`
}

type ListReservationsResponse struct {
	Reservations []domain.Reservation `json:"reservations"`
	TotalCount   int32                `json:"total_count"`
	Page         int32                `json:"page"`
	PageSize     int32                `json:"page_size"`
}

type InitiateCheckoutRequest struct {
	ReservationID string `json:"reservation_id"`
}

type InitiateCheckoutResponse struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}
