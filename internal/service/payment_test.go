package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"reservation-engine/internal/domain"
	"reservation-engine/internal/service"
)

type paymentHarness struct {
	*harness
	processor *MockProcessor
	payments  service.PaymentService
}

func newPaymentHarness(t *testing.T, replay service.ReplayCache) *paymentHarness {
	h := newHarness(t, domain.ReservationStatusConfirmed)
	processor := new(MockProcessor)
	svc := service.NewPaymentService(h.store.Reservations(), h.store.Payments(), h.store.Recon(), h.svc, processor, replay, h.clock)
	return &paymentHarness{harness: h, processor: processor, payments: svc}
}

// checkout books assetA for renterA and opens a checkout session for it.
func (h *paymentHarness) checkout(t *testing.T, sessionID string) *domain.Reservation {
	t.Helper()
	r, err := h.create(renterA, assetA, day(10), day(13))
	require.NoError(t, err)

	h.processor.On("InitiateCheckout", mock.Anything, r.ID, int32(12000)).
		Return(&domain.CheckoutSession{SessionID: sessionID, RedirectURL: "https://pay.example.com/c/" + sessionID}, nil).Once()
	_, err = h.payments.InitiateCheckout(context.Background(), renter, r.ID)
	require.NoError(t, err)
	return r
}

func (h *paymentHarness) reservation(t *testing.T, r *domain.Reservation) *domain.Reservation {
	t.Helper()
	got, err := h.svc.GetReservation(context.Background(), admin, r.ID)
	require.NoError(t, err)
	return got
}

func TestPaymentService_InitiateCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		h := newPaymentHarness(t, nil)
		r, err := h.create(renterA, assetA, day(10), day(13))
		require.NoError(t, err)

		h.processor.On("InitiateCheckout", mock.Anything, r.ID, int32(12000)).
			Return(&domain.CheckoutSession{SessionID: "sess_1", RedirectURL: "https://pay.example.com/c/sess_1"}, nil).Once()

		session, err := h.payments.InitiateCheckout(ctx, renter, r.ID)
		require.NoError(t, err)
		assert.Equal(t, "sess_1", session.SessionID)
		assert.Equal(t, "https://pay.example.com/c/sess_1", session.RedirectURL)

		p, err := h.store.Payments().GetBySessionID(ctx, "sess_1")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPending, p.Status)
		assert.Equal(t, int32(12000), p.AmountCents)
		assert.Equal(t, r.ID, p.ReservationID)

		_, err = h.payments.InitiateCheckout(ctx, renter, r.ID)
		assert.ErrorIs(t, err, domain.ErrPaymentInProgress)
		h.processor.AssertNumberOfCalls(t, "InitiateCheckout", 1)
	})

	t.Run("Only the renter may pay", func(t *testing.T) {
		h := newPaymentHarness(t, nil)
		r, err := h.create(renterA, assetA, day(10), day(13))
		require.NoError(t, err)

		for _, actor := range []domain.Actor{owner, admin, bridge} {
			_, err := h.payments.InitiateCheckout(ctx, actor, r.ID)
			assert.ErrorIs(t, err, domain.ErrForbidden)
		}
		h.processor.AssertNotCalled(t, "InitiateCheckout", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Reservation must be confirmed", func(t *testing.T) {
		h := newPaymentHarness(t, nil)
		r, err := h.create(renterA, assetA, day(10), day(13))
		require.NoError(t, err)
		_, err = h.svc.TransitionReservation(ctx, r.ID, renter, domain.ReservationStatusCancelled)
		require.NoError(t, err)

		_, err = h.payments.InitiateCheckout(ctx, renter, r.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("Processor failure stores nothing", func(t *testing.T) {
		h := newPaymentHarness(t, nil)
		r, err := h.create(renterA, assetA, day(10), day(13))
		require.NoError(t, err)

		h.processor.On("InitiateCheckout", mock.Anything, r.ID, int32(12000)).Return(nil, domain.ErrUnavailable).Once()

		_, err = h.payments.InitiateCheckout(ctx, renter, r.ID)
		assert.ErrorIs(t, err, domain.ErrUnavailable)
		active, err := h.store.Payments().GetActiveByReservation(ctx, r.ID)
		require.NoError(t, err)
		assert.Nil(t, active)
	})
}

func TestPaymentService_CompletedReplayAppliesOnce(t *testing.T) {
	ctx := context.Background()
	h := newPaymentHarness(t, nil)
	r := h.checkout(t, "sess_1")

	n := domain.PaymentNotification{SessionID: "sess_1", Outcome: domain.PaymentOutcomeCompleted}
	require.NoError(t, h.payments.HandlePaymentNotification(ctx, n))
	require.NoError(t, h.payments.HandlePaymentNotification(ctx, n))

	assert.Equal(t, domain.ReservationStatusActive, h.reservation(t, r).Status)
	assert.Equal(t, domain.AssetStatusRented, h.store.asset(assetA).Status)
	assert.Equal(t, 1, h.store.setStatusCalls)

	p, err := h.store.Payments().GetBySessionID(ctx, "sess_1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, p.Status)
	assert.NotNil(t, p.CompletedAt)

	h.emitter.Wait()
	activated := 0
	for _, typ := range h.pub.types() {
		if typ == domain.EventReservationActivated {
			activated++
		}
	}
	assert.Equal(t, 1, activated)
	assert.Empty(t, h.store.openRecon(domain.ReconciliationPaymentAnomaly))
}

func TestPaymentService_ReplayAfterActivationFailure(t *testing.T) {
	ctx := context.Background()
	h := newPaymentHarness(t, nil)
	r := h.checkout(t, "sess_1")

	// Payment is marked completed, then the activation never happens.
	p, err := h.store.Payments().GetBySessionID(ctx, "sess_1")
	require.NoError(t, err)
	changed, err := h.store.Payments().UpdateStatus(ctx, p.ID, domain.PaymentStatusPending, domain.PaymentStatusCompleted, jan1)
	require.NoError(t, err)
	require.True(t, changed)

	require.NoError(t, h.payments.HandlePaymentNotification(ctx, domain.PaymentNotification{SessionID: "sess_1", Outcome: domain.PaymentOutcomeCompleted}))
	assert.Equal(t, domain.ReservationStatusActive, h.reservation(t, r).Status)
}

func TestPaymentService_CompletedAfterCancellation(t *testing.T) {
	ctx := context.Background()
	h := newPaymentHarness(t, nil)
	r := h.checkout(t, "sess_1")

	_, err := h.svc.TransitionReservation(ctx, r.ID, renter, domain.ReservationStatusCancelled)
	require.NoError(t, err)

	n := domain.PaymentNotification{SessionID: "sess_1", Outcome: domain.PaymentOutcomeCompleted}
	require.NoError(t, h.payments.HandlePaymentNotification(ctx, n))
	require.NoError(t, h.payments.HandlePaymentNotification(ctx, n))

	assert.Equal(t, domain.ReservationStatusCancelled, h.reservation(t, r).Status)
	assert.Zero(t, h.store.setStatusCalls)

	p, err := h.store.Payments().GetBySessionID(ctx, "sess_1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, p.Status)

	anomalies := h.store.openRecon(domain.ReconciliationPaymentAnomaly)
	require.Len(t, anomalies, 1)
	assert.Equal(t, r.ID, anomalies[0].ReservationID)
	assert.Equal(t, domain.ReservationStatusCancelled, anomalies[0].ObservedStatus)
	require.NotNil(t, anomalies[0].PaymentID)
	assert.Equal(t, p.ID, *anomalies[0].PaymentID)

	count, err := service.ReportAnomalies(ctx, h.store.Recon(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPaymentService_CompletedAfterRentalFinished(t *testing.T) {
	ctx := context.Background()
	h := newPaymentHarness(t, nil)
	r := h.checkout(t, "sess_1")

	_, err := h.svc.TransitionReservation(ctx, r.ID, owner, domain.ReservationStatusActive)
	require.NoError(t, err)
	_, err = h.svc.TransitionReservation(ctx, r.ID, owner, domain.ReservationStatusCompleted)
	require.NoError(t, err)
	calls := h.store.setStatusCalls

	n := domain.PaymentNotification{SessionID: "sess_1", Outcome: domain.PaymentOutcomeCompleted}
	require.NoError(t, h.payments.HandlePaymentNotification(ctx, n))
	require.NoError(t, h.payments.HandlePaymentNotification(ctx, n))

	assert.Equal(t, domain.ReservationStatusCompleted, h.reservation(t, r).Status)
	assert.Equal(t, calls, h.store.setStatusCalls)

	anomalies := h.store.openRecon(domain.ReconciliationPaymentAnomaly)
	require.Len(t, anomalies, 1)
	assert.Equal(t, r.ID, anomalies[0].ReservationID)
	assert.Equal(t, domain.ReservationStatusCompleted, anomalies[0].ObservedStatus)
}

func TestPaymentService_CompletedWhileAlreadyActive(t *testing.T) {
	ctx := context.Background()
	h := newPaymentHarness(t, nil)
	r := h.checkout(t, "sess_1")

	_, err := h.svc.TransitionReservation(ctx, r.ID, owner, domain.ReservationStatusActive)
	require.NoError(t, err)

	require.NoError(t, h.payments.HandlePaymentNotification(ctx, domain.PaymentNotification{SessionID: "sess_1", Outcome: domain.PaymentOutcomeCompleted}))

	assert.Equal(t, domain.ReservationStatusActive, h.reservation(t, r).Status)
	assert.Empty(t, h.store.openRecon(domain.ReconciliationPaymentAnomaly))
}

func TestPaymentService_FailedOutcome(t *testing.T) {
	ctx := context.Background()
	h := newPaymentHarness(t, nil)
	r := h.checkout(t, "sess_1")

	require.NoError(t, h.payments.HandlePaymentNotification(ctx, domain.PaymentNotification{SessionID: "sess_1", Outcome: domain.PaymentOutcomeFailed}))

	p, err := h.store.Payments().GetBySessionID(ctx, "sess_1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, p.Status)
	assert.Equal(t, domain.ReservationStatusConfirmed, h.reservation(t, r).Status)

	// a failed payment does not block a fresh checkout
	h.processor.On("InitiateCheckout", mock.Anything, r.ID, int32(12000)).
		Return(&domain.CheckoutSession{SessionID: "sess_2", RedirectURL: "https://pay.example.com/c/sess_2"}, nil).Once()
	session, err := h.payments.InitiateCheckout(ctx, renter, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "sess_2", session.SessionID)
}

func TestPaymentService_RejectsBadNotifications(t *testing.T) {
	ctx := context.Background()
	h := newPaymentHarness(t, nil)

	err := h.payments.HandlePaymentNotification(ctx, domain.PaymentNotification{SessionID: "nope", Outcome: domain.PaymentOutcomeCompleted})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = h.payments.HandlePaymentNotification(ctx, domain.PaymentNotification{SessionID: "sess_1", Outcome: "MAYBE"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	err = h.payments.HandlePaymentNotification(ctx, domain.PaymentNotification{Outcome: domain.PaymentOutcomeCompleted})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestPaymentService_ReplayCache(t *testing.T) {
	ctx := context.Background()
	n := domain.PaymentNotification{SessionID: "sess_1", Outcome: domain.PaymentOutcomeCompleted}

	t.Run("Hit skips the store", func(t *testing.T) {
		cache := new(MockReplayCache)
		h := newPaymentHarness(t, cache)
		r := h.checkout(t, "sess_1")
		cache.On("Seen", mock.Anything, "sess_1", domain.PaymentOutcomeCompleted).Return(true, nil).Once()

		require.NoError(t, h.payments.HandlePaymentNotification(ctx, n))
		assert.Equal(t, domain.ReservationStatusConfirmed, h.reservation(t, r).Status)
		cache.AssertNotCalled(t, "Remember", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Miss processes and remembers", func(t *testing.T) {
		cache := new(MockReplayCache)
		h := newPaymentHarness(t, cache)
		r := h.checkout(t, "sess_1")
		cache.On("Seen", mock.Anything, "sess_1", domain.PaymentOutcomeCompleted).Return(false, nil).Once()
		cache.On("Remember", mock.Anything, "sess_1", domain.PaymentOutcomeCompleted).Return(nil).Once()

		require.NoError(t, h.payments.HandlePaymentNotification(ctx, n))
		assert.Equal(t, domain.ReservationStatusActive, h.reservation(t, r).Status)
		cache.AssertExpectations(t)
	})

	t.Run("Cache outage falls back to the store", func(t *testing.T) {
		cache := new(MockReplayCache)
		h := newPaymentHarness(t, cache)
		r := h.checkout(t, "sess_1")
		cache.On("Seen", mock.Anything, "sess_1", domain.PaymentOutcomeCompleted).Return(false, errors.New("connection refused")).Once()
		cache.On("Remember", mock.Anything, "sess_1", domain.PaymentOutcomeCompleted).Return(errors.New("connection refused")).Once()

		require.NoError(t, h.payments.HandlePaymentNotification(ctx, n))
		assert.Equal(t, domain.ReservationStatusActive, h.reservation(t, r).Status)
	})
}
