package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventReservationCreated   EventType = "reservation.created"
	EventReservationConfirmed EventType = "reservation.confirmed"
	EventReservationActivated EventType = "reservation.activated"
	EventReservationCancelled EventType = "reservation.cancelled"
	EventReservationRejected  EventType = "reservation.rejected"
	EventReservationCompleted EventType = "reservation.completed"
)

// ReservationEvent is published after a lifecycle change commits.
type ReservationEvent struct {
	ID            uuid.UUID         `json:"id"`
	Type          EventType         `json:"type"`
	ReservationID uuid.UUID         `json:"reservation_id"`
	RenterID      int32             `json:"renter_id"`
	OwnerID       int32             `json:"owner_id"`
	AssetID       int32             `json:"asset_id"`
	Status        ReservationStatus `json:"status"`
	StartTime     time.Time         `json:"start_time"`
	EndTime       time.Time         `json:"end_time"`
	CreatedAt     time.Time         `json:"created_at"`
	CancelledAt   *time.Time        `json:"cancelled_at,omitempty"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

func NewReservationEvent(t EventType, r *Reservation, at time.Time) ReservationEvent {
	return ReservationEvent{
		ID:            uuid.New(),
		Type:          t,
		ReservationID: r.ID,
		RenterID:      r.RenterID,
		OwnerID:       r.OwnerID,
		AssetID:       r.AssetID,
		Status:        r.Status,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		CreatedAt:     r.CreatedAt,
		CancelledAt:   r.CancelledAt,
		CompletedAt:   r.CompletedAt,
		OccurredAt:    at,
	}
}
