package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reservation-engine/internal/domain"
	"reservation-engine/internal/logger"
	"reservation-engine/internal/repository"
	"reservation-engine/internal/utils"
)

const defaultPageSize int32 = 20

// Policy holds the deployment choices the lifecycle depends on.
type Policy struct {
	// InitialStatus is CONFIRMED (book directly) or PENDING (owner approves).
	InitialStatus domain.ReservationStatus
	// LicenseGuard is how far past now a renter's license must stay valid.
	LicenseGuard time.Duration
	MaxPageSize  int32
}

// party is a bit set of the roles an actor plays for one reservation.
type party uint8

const (
	partyRenter party = 1 << iota
	partyManager
	partyBridge
)

type transitionRule struct {
	allowed party
	asset   domain.AssetStatus
	event   domain.EventType
}

// transitions lists every legal source -> target move. Anything else is an
// InvalidTransitionError.
var transitions = map[domain.ReservationStatus]map[domain.ReservationStatus]transitionRule{
	domain.ReservationStatusPending: {
		domain.ReservationStatusConfirmed: {allowed: partyManager, event: domain.EventReservationConfirmed},
		domain.ReservationStatusRejected:  {allowed: partyManager, event: domain.EventReservationRejected},
		domain.ReservationStatusCancelled: {allowed: partyRenter | partyManager, event: domain.EventReservationCancelled},
	},
	domain.ReservationStatusConfirmed: {
		domain.ReservationStatusActive:    {allowed: partyManager | partyBridge, asset: domain.AssetStatusRented, event: domain.EventReservationActivated},
		domain.ReservationStatusCancelled: {allowed: partyRenter | partyManager, event: domain.EventReservationCancelled},
		domain.ReservationStatusCompleted: {allowed: partyManager, asset: domain.AssetStatusAvailable, event: domain.EventReservationCompleted},
	},
	domain.ReservationStatusActive: {
		domain.ReservationStatusCompleted: {allowed: partyManager, asset: domain.AssetStatusAvailable, event: domain.EventReservationCompleted},
	},
}

type reservationService struct {
	reservations repository.ReservationRepository
	assets       repository.AssetRepository
	identity     repository.IdentityRepository
	sync         *AssetSynchronizer
	events       *EventEmitter
	clock        Clock
	policy       Policy
}

func NewReservationService(
	reservations repository.ReservationRepository,
	assets repository.AssetRepository,
	identity repository.IdentityRepository,
	sync *AssetSynchronizer,
	events *EventEmitter,
	clock Clock,
	policy Policy,
) ReservationService {
	if policy.InitialStatus == "" {
		policy.InitialStatus = domain.ReservationStatusConfirmed
	}
	if policy.MaxPageSize <= 0 {
		policy.MaxPageSize = 100
	}
	return &reservationService{
		reservations: reservations,
		assets:       assets,
		identity:     identity,
		sync:         sync,
		events:       events,
		clock:        clock,
		policy:       policy,
	}
}

// canManage reports whether actor may act as the asset's manager for r:
// the asset owner or an admin.
func canManage(actor domain.Actor, r *domain.Reservation) bool {
	if actor.Role == domain.ActorRoleAdmin {
		return true
	}
	return actor.Role == domain.ActorRoleUser && actor.ID == r.OwnerID
}

func partiesOf(actor domain.Actor, r *domain.Reservation) party {
	var p party
	switch actor.Role {
	case domain.ActorRolePaymentBridge:
		return partyBridge
	case domain.ActorRoleUser:
		if actor.ID == r.RenterID {
			p |= partyRenter
		}
	}
	if canManage(actor, r) {
		p |= partyManager
	}
	return p
}

func (s *reservationService) CreateReservation(ctx context.Context, in CreateReservationInput) (*domain.Reservation, error) {
	logger.EnterMethod("reservationService.CreateReservation", "renterID", in.RenterID, "assetID", in.AssetID)

	now := s.clock.Now()
	start, end := in.StartTime.UTC(), in.EndTime.UTC()
	if !start.Before(end) {
		return nil, s.fail("CreateReservation", fmt.Errorf("start must be before end: %w", domain.ErrInvalidInterval))
	}
	if start.Before(now) {
		return nil, s.fail("CreateReservation", fmt.Errorf("start is in the past: %w", domain.ErrInvalidInterval))
	}

	eligibility, err := s.identity.GetRenterEligibility(ctx, in.RenterID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, s.fail("CreateReservation", fmt.Errorf("renter %d unknown: %w", in.RenterID, domain.ErrIneligibleRenter))
	}
	if err != nil {
		return nil, s.fail("CreateReservation", err)
	}
	if !eligibility.CanRentAt(now, s.policy.LicenseGuard) {
		return nil, s.fail("CreateReservation", fmt.Errorf("renter %d: %w", in.RenterID, domain.ErrIneligibleRenter))
	}

	asset, err := s.assets.GetByID(ctx, in.AssetID)
	if err != nil {
		return nil, s.fail("CreateReservation", err)
	}
	if !asset.Bookable() {
		return nil, s.fail("CreateReservation", fmt.Errorf("asset %d is %s (active=%t): %w",
			asset.ID, asset.Status, asset.IsActive, domain.ErrAssetUnavailable))
	}
	if asset.OwnerID == in.RenterID {
		return nil, s.fail("CreateReservation", fmt.Errorf("owner cannot rent own asset %d: %w", asset.ID, domain.ErrForbidden))
	}

	price, err := utils.CalculatePriceSnapshot(start, end, asset)
	if err != nil {
		return nil, s.fail("CreateReservation", err)
	}

	r := &domain.Reservation{
		ID:               uuid.New(),
		AssetID:          asset.ID,
		RenterID:         in.RenterID,
		OwnerID:          asset.OwnerID,
		StartTime:        start,
		EndTime:          end,
		RatePerUnitCents: price.RatePerUnitCents,
		UnitCount:        price.UnitCount,
		TotalAmountCents: price.TotalAmountCents,
		DepositCents:     price.DepositCents,
		Status:           s.policy.InitialStatus,
		Notes:            in.Notes,
		PickupLocation:   in.PickupLocation,
		ReturnLocation:   in.ReturnLocation,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.reservations.CreateIfNoConflict(ctx, r); err != nil {
		return nil, s.fail("CreateReservation", err)
	}

	s.events.Emit(ctx, domain.NewReservationEvent(domain.EventReservationCreated, r, now))

	logger.ExitMethod("reservationService.CreateReservation", "reservationID", r.ID, "status", r.Status, "total", r.TotalAmountCents)
	return r, nil
}

func (s *reservationService) GetReservation(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Reservation, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if partiesOf(actor, r)&(partyRenter|partyManager) == 0 {
		return nil, domain.ErrForbidden
	}
	return r, nil
}

// TransitionReservation moves a reservation to target on behalf of actor.
// The current status is always re-read from the store, and the write only
// lands if that status is still current, so of two racing callers exactly
// one succeeds and the other gets an InvalidTransitionError.
func (s *reservationService) TransitionReservation(ctx context.Context, id uuid.UUID, actor domain.Actor, target domain.ReservationStatus) (*domain.Reservation, error) {
	logger.EnterMethod("reservationService.TransitionReservation", "reservationID", id, "actorID", actor.ID, "role", actor.Role, "target", target)

	if !target.Valid() {
		return nil, s.fail("TransitionReservation", fmt.Errorf("unknown status %q: %w", target, domain.ErrInvalidArgument))
	}

	current, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail("TransitionReservation", err)
	}

	parties := partiesOf(actor, current)
	if parties == 0 {
		return nil, s.fail("TransitionReservation", fmt.Errorf("actor %d on reservation %s: %w", actor.ID, id, domain.ErrForbidden))
	}

	rule, ok := transitions[current.Status][target]
	if !ok {
		return nil, s.fail("TransitionReservation", &domain.InvalidTransitionError{From: current.Status, To: target})
	}
	if parties&rule.allowed == 0 {
		return nil, s.fail("TransitionReservation", fmt.Errorf("%s -> %s by %s %d: %w",
			current.Status, target, actor.Role, actor.ID, domain.ErrForbidden))
	}

	now := s.clock.Now()
	change := repository.StatusChange{ID: id, From: current.Status, To: target, At: now}
	switch target {
	case domain.ReservationStatusCancelled:
		change.CancelledAt = &now
	case domain.ReservationStatusCompleted:
		change.CompletedAt = &now
	}

	updated, err := s.reservations.Transition(ctx, change)
	if err != nil {
		return nil, s.fail("TransitionReservation", err)
	}

	if rule.asset != "" {
		s.sync.Apply(ctx, updated, rule.asset)
	}
	s.events.Emit(ctx, domain.NewReservationEvent(rule.event, updated, now))

	logger.ExitMethod("reservationService.TransitionReservation", "reservationID", id, "from", current.Status, "to", updated.Status)
	return updated, nil
}

func (s *reservationService) CheckAvailability(ctx context.Context, assetID int32, start, end time.Time) (*domain.Availability, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("start must be before end: %w", domain.ErrInvalidInterval)
	}
	asset, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	// an asset that cannot be booked is unavailable for any interval
	if !asset.Bookable() {
		return &domain.Availability{Available: false}, nil
	}
	conflict, err := s.reservations.FindConflict(ctx, assetID, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	return &domain.Availability{Available: conflict == nil, ConflictingReservation: conflict}, nil
}

func (s *reservationService) ListReservations(ctx context.Context, actor domain.Actor, scope ListScope, filter domain.ReservationFilter, page domain.PageRequest) (*domain.ReservationPage, error) {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.PageSize < 1 {
		page.PageSize = defaultPageSize
	}
	if page.PageSize > s.policy.MaxPageSize {
		page.PageSize = s.policy.MaxPageSize
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", filter.Status, domain.ErrInvalidArgument)
	}

	var (
		items []domain.Reservation
		count int32
		err   error
	)
	switch scope {
	case ListScopeRenter, "":
		items, count, err = s.reservations.ListByRenter(ctx, actor.ID, filter, page)
	case ListScopeOwner:
		items, count, err = s.reservations.ListByAssetOwner(ctx, actor.ID, filter, page)
	case ListScopeAll:
		if actor.Role != domain.ActorRoleAdmin {
			return nil, fmt.Errorf("listing all reservations: %w", domain.ErrForbidden)
		}
		items, count, err = s.reservations.ListAll(ctx, filter, page)
	default:
		return nil, fmt.Errorf("unknown scope %q: %w", scope, domain.ErrInvalidArgument)
	}
	if err != nil {
		return nil, err
	}

	return &domain.ReservationPage{Items: items, TotalCount: count, Page: page.Page, PageSize: page.PageSize}, nil
}

// fail logs err at the level its kind deserves and returns it unchanged.
func (s *reservationService) fail(method string, err error) error {
	logger.ExitMethodWithError("reservationService."+method, err, isBusinessError(err))
	return err
}

func isBusinessError(err error) bool {
	for _, kind := range []error{
		domain.ErrNotFound, domain.ErrForbidden, domain.ErrInvalidTransition, domain.ErrSchedulingConflict,
		domain.ErrIneligibleRenter, domain.ErrInvalidInterval, domain.ErrAssetUnavailable, domain.ErrInvalidArgument,
		domain.ErrPaymentInProgress,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
