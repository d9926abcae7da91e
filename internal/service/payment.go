package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"reservation-engine/internal/domain"
	"reservation-engine/internal/logger"
	"reservation-engine/internal/repository"
)

// bridgeActor is the system actor the payment bridge drives transitions as.
var bridgeActor = domain.Actor{Role: domain.ActorRolePaymentBridge}

type paymentService struct {
	reservations repository.ReservationRepository
	payments     repository.PaymentRepository
	recon        repository.ReconciliationRepository
	lifecycle    ReservationService
	processor    PaymentProcessor
	replay       ReplayCache
	clock        Clock
}

// NewPaymentService wires the payment bridge. replay may be nil, in which
// case every delivery goes to the store.
func NewPaymentService(
	reservations repository.ReservationRepository,
	payments repository.PaymentRepository,
	recon repository.ReconciliationRepository,
	lifecycle ReservationService,
	processor PaymentProcessor,
	replay ReplayCache,
	clock Clock,
) PaymentService {
	return &paymentService{
		reservations: reservations,
		payments:     payments,
		recon:        recon,
		lifecycle:    lifecycle,
		processor:    processor,
		replay:       replay,
		clock:        clock,
	}
}

func (s *paymentService) InitiateCheckout(ctx context.Context, actor domain.Actor, reservationID uuid.UUID) (*domain.CheckoutSession, error) {
	logger.EnterMethod("paymentService.InitiateCheckout", "reservationID", reservationID, "actorID", actor.ID)

	r, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.ActorRoleUser || actor.ID != r.RenterID {
		return nil, fmt.Errorf("checkout for reservation %s: %w", reservationID, domain.ErrForbidden)
	}
	if r.Status != domain.ReservationStatusConfirmed {
		return nil, fmt.Errorf("checkout needs a CONFIRMED reservation, found %s: %w", r.Status, domain.ErrInvalidTransition)
	}

	active, err := s.payments.GetActiveByReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, fmt.Errorf("payment %s is %s: %w", active.ID, active.Status, domain.ErrPaymentInProgress)
	}

	session, err := s.processor.InitiateCheckout(ctx, r.ID, r.TotalAmountCents)
	if err != nil {
		logger.ExitMethodWithError("paymentService.InitiateCheckout", err, false)
		return nil, err
	}

	now := s.clock.Now()
	p := &domain.Payment{
		ID:            uuid.New(),
		ReservationID: r.ID,
		SessionID:     session.SessionID,
		AmountCents:   r.TotalAmountCents,
		Status:        domain.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}

	logger.ExitMethod("paymentService.InitiateCheckout", "paymentID", p.ID, "sessionID", session.SessionID)
	return session, nil
}

func (s *paymentService) HandlePaymentNotification(ctx context.Context, n domain.PaymentNotification) error {
	logger.EnterMethod("paymentService.HandlePaymentNotification", "sessionID", n.SessionID, "outcome", n.Outcome)

	if n.SessionID == "" {
		return fmt.Errorf("missing session id: %w", domain.ErrInvalidArgument)
	}
	if n.Outcome != domain.PaymentOutcomeCompleted && n.Outcome != domain.PaymentOutcomeFailed {
		return fmt.Errorf("unknown outcome %q: %w", n.Outcome, domain.ErrInvalidArgument)
	}

	if s.replay != nil {
		seen, err := s.replay.Seen(ctx, n.SessionID, n.Outcome)
		if err != nil {
			logger.Warn("Replay cache lookup failed, falling back to store", "sessionID", n.SessionID, "error", err)
		} else if seen {
			logger.Info("Payment notification already processed", "sessionID", n.SessionID, "outcome", n.Outcome)
			return nil
		}
	}

	p, err := s.payments.GetBySessionID(ctx, n.SessionID)
	if err != nil {
		return err
	}

	switch n.Outcome {
	case domain.PaymentOutcomeCompleted:
		err = s.applyCompleted(ctx, p)
	case domain.PaymentOutcomeFailed:
		err = s.applyFailed(ctx, p)
	}
	if err != nil {
		logger.ExitMethodWithError("paymentService.HandlePaymentNotification", err, false)
		return err
	}

	if s.replay != nil {
		if err := s.replay.Remember(ctx, n.SessionID, n.Outcome); err != nil {
			logger.Warn("Failed to remember payment notification", "sessionID", n.SessionID, "error", err)
		}
	}
	logger.ExitMethod("paymentService.HandlePaymentNotification", "paymentID", p.ID)
	return nil
}

func (s *paymentService) applyCompleted(ctx context.Context, p *domain.Payment) error {
	firstDelivery := false
	switch p.Status {
	case domain.PaymentStatusCompleted:
		// replay; still make sure the reservation was activated
	case domain.PaymentStatusPending:
		changed, err := s.payments.UpdateStatus(ctx, p.ID, domain.PaymentStatusPending, domain.PaymentStatusCompleted, s.clock.Now())
		if err != nil {
			return err
		}
		firstDelivery = changed
		if !changed {
			// A concurrent delivery won; re-read what it left behind.
			if p, err = s.payments.GetBySessionID(ctx, p.SessionID); err != nil {
				return err
			}
			if p.Status != domain.PaymentStatusCompleted {
				s.recordAnomaly(ctx, p, "", fmt.Sprintf("completed outcome for payment in status %s", p.Status))
				return nil
			}
		}
	default:
		s.recordAnomaly(ctx, p, "", fmt.Sprintf("completed outcome for payment in status %s", p.Status))
		return nil
	}

	r, err := s.reservations.GetByID(ctx, p.ReservationID)
	if err != nil {
		return err
	}

	switch r.Status {
	case domain.ReservationStatusActive:
		return nil
	case domain.ReservationStatusConfirmed:
		_, err := s.lifecycle.TransitionReservation(ctx, r.ID, bridgeActor, domain.ReservationStatusActive)
		var ite *domain.InvalidTransitionError
		if errors.As(err, &ite) {
			if ite.From == domain.ReservationStatusActive {
				return nil
			}
			s.recordAnomaly(ctx, p, ite.From, "reservation changed status while payment completed")
			return nil
		}
		return err
	default:
		if firstDelivery {
			s.recordAnomaly(ctx, p, r.Status, "payment completed for a reservation that is no longer CONFIRMED")
		}
		return nil
	}
}

func (s *paymentService) applyFailed(ctx context.Context, p *domain.Payment) error {
	if p.Status != domain.PaymentStatusPending {
		logger.Warn("Ignoring failed outcome for settled payment", "paymentID", p.ID, "status", p.Status)
		return nil
	}
	changed, err := s.payments.UpdateStatus(ctx, p.ID, domain.PaymentStatusPending, domain.PaymentStatusFailed, s.clock.Now())
	if err != nil {
		return err
	}
	if changed {
		logger.Info("Payment failed", "paymentID", p.ID, "reservationID", p.ReservationID)
	}
	return nil
}

// recordAnomaly queues a payment the bridge refused to act on. The reservation
// is left exactly as found.
func (s *paymentService) recordAnomaly(ctx context.Context, p *domain.Payment, observed domain.ReservationStatus, detail string) {
	logger.Reconciliation(string(domain.ReconciliationPaymentAnomaly), detail,
		"paymentID", p.ID, "paymentStatus", p.Status, "reservationID", p.ReservationID, "reservationStatus", observed)

	paymentID := p.ID
	item := &domain.ReconciliationItem{
		Kind:           domain.ReconciliationPaymentAnomaly,
		ReservationID:  p.ReservationID,
		PaymentID:      &paymentID,
		ObservedStatus: observed,
		Detail:         detail,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.recon.Create(context.WithoutCancel(ctx), item); err != nil {
		logger.Error("Failed to queue payment anomaly", "paymentID", p.ID, "reservationID", p.ReservationID, "error", err)
	}
}

// ReportAnomalies logs every open payment anomaly for manual handling and
// returns how many there are.
func ReportAnomalies(ctx context.Context, recon repository.ReconciliationRepository, limit int32) (int, error) {
	items, err := recon.ListOpen(ctx, domain.ReconciliationPaymentAnomaly, limit)
	if err != nil {
		return 0, err
	}
	for _, it := range items {
		logger.Reconciliation(string(domain.ReconciliationPaymentAnomaly), "Open payment anomaly",
			"item_id", it.ID, "reservation_id", it.ReservationID, "payment_id", it.PaymentID,
			"observed_status", it.ObservedStatus, "detail", it.Detail, "created_at", it.CreatedAt)
	}
	return len(items), nil
}
