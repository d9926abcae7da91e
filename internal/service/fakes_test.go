package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"reservation-engine/internal/domain"
	"reservation-engine/internal/repository"
)

// memStore is an in-memory stand-in for the postgres store. Each repository
// view shares one mutex, which plays the part of the per-asset lock and the
// conditional update.
type memStore struct {
	mu           sync.Mutex
	reservations map[uuid.UUID]domain.Reservation
	assets       map[int32]domain.Asset
	users        map[int32]domain.RenterEligibility
	payments     map[uuid.UUID]domain.Payment
	recon        []domain.ReconciliationItem

	setStatusErr   error
	setStatusCalls int
}

func newMemStore() *memStore {
	return &memStore{
		reservations: map[uuid.UUID]domain.Reservation{},
		assets:       map[int32]domain.Asset{},
		users:        map[int32]domain.RenterEligibility{},
		payments:     map[uuid.UUID]domain.Payment{},
	}
}

func (m *memStore) Reservations() repository.ReservationRepository { return memReservations{m} }
func (m *memStore) Assets() repository.AssetRepository             { return memAssets{m} }
func (m *memStore) Identity() repository.IdentityRepository        { return memIdentity{m} }
func (m *memStore) Payments() repository.PaymentRepository         { return memPayments{m} }
func (m *memStore) Recon() repository.ReconciliationRepository     { return memRecon{m} }

func (m *memStore) asset(id int32) domain.Asset {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assets[id]
}

func (m *memStore) setAssetRate(id, rate int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.assets[id]
	a.RatePerUnitCents = rate
	m.assets[id] = a
}

func (m *memStore) openRecon(kind domain.ReconciliationKind) []domain.ReconciliationItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ReconciliationItem
	for _, it := range m.recon {
		if it.Kind == kind && it.ResolvedAt == nil {
			out = append(out, it)
		}
	}
	return out
}

type memReservations struct{ m *memStore }

func (r memReservations) CreateIfNoConflict(_ context.Context, rt *domain.Reservation) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if c := r.conflictLocked(rt.AssetID, rt.StartTime, rt.EndTime); c != nil {
		return &domain.ConflictError{ConflictingID: c.ID}
	}
	r.m.reservations[rt.ID] = *rt
	return nil
}

func (r memReservations) conflictLocked(assetID int32, start, end time.Time) *domain.Reservation {
	for _, existing := range r.m.reservations {
		if existing.AssetID == assetID && existing.Status.IsOccupying() && existing.Overlaps(start, end) {
			c := existing
			return &c
		}
	}
	return nil
}

func (r memReservations) FindConflict(_ context.Context, assetID int32, start, end time.Time) (*domain.Reservation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.conflictLocked(assetID, start, end), nil
}

func (r memReservations) GetByID(_ context.Context, id uuid.UUID) (*domain.Reservation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rt, ok := r.m.reservations[id]
	if !ok {
		return nil, fmt.Errorf("reservation %s: %w", id, domain.ErrNotFound)
	}
	return &rt, nil
}

func (r memReservations) Transition(_ context.Context, change repository.StatusChange) (*domain.Reservation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rt, ok := r.m.reservations[change.ID]
	if !ok {
		return nil, fmt.Errorf("reservation %s: %w", change.ID, domain.ErrNotFound)
	}
	if rt.Status != change.From {
		return nil, &domain.InvalidTransitionError{From: rt.Status, To: change.To}
	}
	rt.Status = change.To
	rt.UpdatedAt = change.At
	if change.CancelledAt != nil && rt.CancelledAt == nil {
		rt.CancelledAt = change.CancelledAt
	}
	if change.CompletedAt != nil && rt.CompletedAt == nil {
		rt.CompletedAt = change.CompletedAt
	}
	r.m.reservations[rt.ID] = rt
	return &rt, nil
}

func (r memReservations) list(filter domain.ReservationFilter, page domain.PageRequest) ([]domain.Reservation, int32, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var all []domain.Reservation
	for _, rt := range r.m.reservations {
		if filter.RenterID != 0 && rt.RenterID != filter.RenterID ||
			filter.OwnerID != 0 && rt.OwnerID != filter.OwnerID ||
			filter.AssetID != 0 && rt.AssetID != filter.AssetID ||
			filter.Status != "" && rt.Status != filter.Status {
			continue
		}
		all = append(all, rt)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	from := int((page.Page - 1) * page.PageSize)
	if from > len(all) {
		from = len(all)
	}
	to := from + int(page.PageSize)
	if to > len(all) {
		to = len(all)
	}
	return all[from:to], int32(len(all)), nil
}

func (r memReservations) ListByRenter(_ context.Context, renterID int32, filter domain.ReservationFilter, page domain.PageRequest) ([]domain.Reservation, int32, error) {
	filter.RenterID = renterID
	return r.list(filter, page)
}

func (r memReservations) ListByAssetOwner(_ context.Context, ownerID int32, filter domain.ReservationFilter, page domain.PageRequest) ([]domain.Reservation, int32, error) {
	filter.OwnerID = ownerID
	return r.list(filter, page)
}

func (r memReservations) ListAll(_ context.Context, filter domain.ReservationFilter, page domain.PageRequest) ([]domain.Reservation, int32, error) {
	return r.list(filter, page)
}

type memAssets struct{ m *memStore }

func (a memAssets) GetByID(_ context.Context, id int32) (*domain.Asset, error) {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	asset, ok := a.m.assets[id]
	if !ok {
		return nil, fmt.Errorf("asset %d: %w", id, domain.ErrNotFound)
	}
	return &asset, nil
}

func (a memAssets) SetStatus(_ context.Context, id int32, status domain.AssetStatus) error {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	a.m.setStatusCalls++
	if a.m.setStatusErr != nil {
		return a.m.setStatusErr
	}
	asset, ok := a.m.assets[id]
	if !ok {
		return fmt.Errorf("asset %d: %w", id, domain.ErrNotFound)
	}
	asset.Status = status
	a.m.assets[id] = asset
	return nil
}

type memIdentity struct{ m *memStore }

func (i memIdentity) GetRenterEligibility(_ context.Context, userID int32) (*domain.RenterEligibility, error) {
	i.m.mu.Lock()
	defer i.m.mu.Unlock()
	e, ok := i.m.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}
	return &e, nil
}

type memPayments struct{ m *memStore }

func (p memPayments) Create(_ context.Context, pay *domain.Payment) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	for _, existing := range p.m.payments {
		if existing.ReservationID == pay.ReservationID && existing.Status != domain.PaymentStatusFailed {
			return domain.ErrPaymentInProgress
		}
	}
	p.m.payments[pay.ID] = *pay
	return nil
}

func (p memPayments) GetBySessionID(_ context.Context, sessionID string) (*domain.Payment, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	for _, pay := range p.m.payments {
		if pay.SessionID == sessionID {
			return &pay, nil
		}
	}
	return nil, fmt.Errorf("payment session %s: %w", sessionID, domain.ErrNotFound)
}

func (p memPayments) GetActiveByReservation(_ context.Context, reservationID uuid.UUID) (*domain.Payment, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	for _, pay := range p.m.payments {
		if pay.ReservationID == reservationID && pay.Status != domain.PaymentStatusFailed {
			return &pay, nil
		}
	}
	return nil, nil
}

func (p memPayments) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.PaymentStatus, at time.Time) (bool, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	pay, ok := p.m.payments[id]
	if !ok || pay.Status != from {
		return false, nil
	}
	pay.Status = to
	pay.UpdatedAt = at
	if to == domain.PaymentStatusCompleted {
		pay.CompletedAt = &at
	}
	p.m.payments[id] = pay
	return true, nil
}

type memRecon struct{ m *memStore }

func (r memRecon) Create(_ context.Context, item *domain.ReconciliationItem) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	item.ID = int64(len(r.m.recon) + 1)
	r.m.recon = append(r.m.recon, *item)
	return nil
}

func (r memRecon) ListOpen(_ context.Context, kind domain.ReconciliationKind, limit int32) ([]domain.ReconciliationItem, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.ReconciliationItem
	for _, it := range r.m.recon {
		if it.Kind == kind && it.ResolvedAt == nil && int32(len(out)) < limit {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r memRecon) MarkAttempt(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.recon[id-1].Attempts++
	return nil
}

func (r memRecon) Resolve(_ context.Context, id int64, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.recon[id-1].ResolvedAt = &at
	return nil
}

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ReservationEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) InitiateCheckout(ctx context.Context, reservationID uuid.UUID, amountCents int32) (*domain.CheckoutSession, error) {
	args := m.Called(ctx, reservationID, amountCents)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CheckoutSession), args.Error(1)
}

type MockReplayCache struct {
	mock.Mock
}

func (m *MockReplayCache) Seen(ctx context.Context, sessionID string, outcome domain.PaymentOutcome) (bool, error) {
	args := m.Called(ctx, sessionID, outcome)
	return args.Bool(0), args.Error(1)
}

func (m *MockReplayCache) Remember(ctx context.Context, sessionID string, outcome domain.PaymentOutcome) error {
	args := m.Called(ctx, sessionID, outcome)
	return args.Error(0)
}

type MockReservationRepo struct {
	mock.Mock
}

func (m *MockReservationRepo) CreateIfNoConflict(ctx context.Context, r *domain.Reservation) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockReservationRepo) FindConflict(ctx context.Context, assetID int32, start, end time.Time) (*domain.Reservation, error) {
	args := m.Called(ctx, assetID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockReservationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockReservationRepo) Transition(ctx context.Context, change repository.StatusChange) (*domain.Reservation, error) {
	args := m.Called(ctx, change)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockReservationRepo) ListByRenter(ctx context.Context, renterID int32, filter domain.ReservationFilter, page domain.PageRequest) ([]domain.Reservation, int32, error) {
	args := m.Called(ctx, renterID, filter, page)
	return args.Get(0).([]domain.Reservation), args.Get(1).(int32), args.Error(2)
}

func (m *MockReservationRepo) ListByAssetOwner(ctx context.Context, ownerID int32, filter domain.ReservationFilter, page domain.PageRequest) ([]domain.Reservation, int32, error) {
	args := m.Called(ctx, ownerID, filter, page)
	return args.Get(0).([]domain.Reservation), args.Get(1).(int32), args.Error(2)
}

func (m *MockReservationRepo) ListAll(ctx context.Context, filter domain.ReservationFilter, page domain.PageRequest) ([]domain.Reservation, int32, error) {
	args := m.Called(ctx, filter, page)
	return args.Get(0).([]domain.Reservation), args.Get(1).(int32), args.Error(2)
}
