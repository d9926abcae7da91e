package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"reservation-engine/internal/domain"
)

// StatusChange describes one conditional lifecycle write: it applies only if
// the stored status still equals From.
type StatusChange struct {
	ID          uuid.UUID
	From        domain.ReservationStatus
	To          domain.ReservationStatus
	CancelledAt *time.Time
	CompletedAt *time.Time
	At          time.Time
}

type ReservationRepository interface {
	// CreateIfNoConflict inserts r unless an occupying reservation on the
	// same asset overlaps [r.StartTime, r.EndTime). The check and the insert
	// are atomic with respect to other creations for that asset.
	CreateIfNoConflict(ctx context.Context, r *domain.Reservation) error
	// FindConflict returns the first occupying reservation overlapping the
	// interval, or nil.
	FindConflict(ctx context.Context, assetID int32, start, end time.Time) (*domain.Reservation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	// Transition applies change atomically. If the stored status is not
	// change.From it returns *domain.InvalidTransitionError with the current status.
	Transition(ctx context.Context, change StatusChange) (*domain.Reservation, error)
	ListByRenter(ctx context.Context, renterID int32, filter domain.ReservationFilter, page domain.PageRequest) ([]domain.Reservation, int32, error)
	ListByAssetOwner(ctx context.Context, ownerID int32, filter domain.ReservationFilter, page domain.PageRequest) ([]domain.Reservation, int32, error)
	ListAll(ctx context.Context, filter domain.ReservationFilter, page domain.PageRequest) ([]domain.Reservation, int32, error)
}

// AssetRepository is the catalog collaborator's narrow surface.
type AssetRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Asset, error)
	SetStatus(ctx context.Context, id int32, status domain.AssetStatus) error
}

// IdentityRepository is the identity collaborator's narrow surface.
type IdentityRepository interface {
	GetRenterEligibility(ctx context.Context, userID int32) (*domain.RenterEligibility, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetBySessionID(ctx context.Context, sessionID string) (*domain.Payment, error)
	// GetActiveByReservation returns the non-failed payment for a reservation, or nil.
	GetActiveByReservation(ctx context.Context, reservationID uuid.UUID) (*domain.Payment, error)
	// UpdateStatus moves a payment from -> to. It reports false without error
	// when the stored status was not from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.PaymentStatus, at time.Time) (bool, error)
}

type ReconciliationRepository interface {
	Create(ctx context.Context, item *domain.ReconciliationItem) error
	ListOpen(ctx context.Context, kind domain.ReconciliationKind, limit int32) ([]domain.ReconciliationItem, error)
	MarkAttempt(ctx context.Context, id int64) error
	Resolve(ctx context.Context, id int64, at time.Time) error
}
