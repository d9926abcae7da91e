package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"reservation-engine/internal/domain"
)

// CreateReservationInput carries a renter's booking request. The free-text
// fields are stored as given.
type CreateReservationInput struct {
	RenterID       int32
	AssetID        int32
	StartTime      time.Time
	EndTime        time.Time
	Notes          string
	PickupLocation string
	ReturnLocation string
}

// ListScope selects whose reservations a listing returns.
type ListScope string

const (
	ListScopeRenter ListScope = "RENTER" // reservations the actor made
	ListScopeOwner  ListScope = "OWNER"  // reservations on the actor's assets
	ListScopeAll    ListScope = "ALL"    // admin only
)

type ReservationService interface {
	CreateReservation(ctx context.Context, in CreateReservationInput) (*domain.Reservation, error)
	GetReservation(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Reservation, error)
	TransitionReservation(ctx context.Context, id uuid.UUID, actor domain.Actor, target domain.ReservationStatus) (*domain.Reservation, error)
	CheckAvailability(ctx context.Context, assetID int32, start, end time.Time) (*domain.Availability, error)
	ListReservations(ctx context.Context, actor domain.Actor, scope ListScope, filter domain.ReservationFilter, page domain.PageRequest) (*domain.ReservationPage, error)
}

type PaymentService interface {
	InitiateCheckout(ctx context.Context, actor domain.Actor, reservationID uuid.UUID) (*domain.CheckoutSession, error)
	// HandlePaymentNotification applies a verified processor outcome. Replays
	// of an already applied outcome succeed without side effects.
	HandlePaymentNotification(ctx context.Context, n domain.PaymentNotification) error
}

// PaymentProcessor is the outbound half of the payment processor.
type PaymentProcessor interface {
	InitiateCheckout(ctx context.Context, reservationID uuid.UUID, amountCents int32) (*domain.CheckoutSession, error)
}

// ReplayCache remembers webhook deliveries that were fully processed.
type ReplayCache interface {
	Seen(ctx context.Context, sessionID string, outcome domain.PaymentOutcome) (bool, error)
	Remember(ctx context.Context, sessionID string, outcome domain.PaymentOutcome) error
}

// EventPublisher delivers lifecycle events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.ReservationEvent) error
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
