package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"reservation-engine/internal/domain"
	"reservation-engine/internal/logger"
	"reservation-engine/internal/repository"
)

const paymentColumns = `id, reservation_id, session_id, amount_cents, status, created_at, updated_at, completed_at`

type paymentRepository struct {
	db    *sql.DB
	retry RetryPolicy
}

func NewPaymentRepository(db *sql.DB, retry RetryPolicy) repository.PaymentRepository {
	return &paymentRepository{db: db, retry: retry}
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	p := &domain.Payment{}
	if err := row.Scan(&p.ID, &p.ReservationID, &p.SessionID, &p.AmountCents, &p.Status, &p.CreatedAt, &p.UpdatedAt, &p.CompletedAt); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	return r.retry.Do(ctx, "payments.Create", func(ctx context.Context) error {
		query := `INSERT INTO payments (` + paymentColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
		_, err := r.db.ExecContext(ctx, query, p.ID, p.ReservationID, p.SessionID, p.AmountCents, p.Status, p.CreatedAt, p.UpdatedAt, p.CompletedAt)
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == "payments_one_active" {
			return domain.ErrPaymentInProgress
		}
		return err
	})
}

func (r *paymentRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Payment, error) {
	var out *domain.Payment
	err := r.retry.Do(ctx, "payments.GetBySessionID", func(ctx context.Context) error {
		p, err := scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE session_id = $1`, sessionID))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("payment session %s: %w", sessionID, domain.ErrNotFound)
		}
		out = p
		return err
	})
	return out, err
}

func (r *paymentRepository) GetActiveByReservation(ctx context.Context, reservationID uuid.UUID) (*domain.Payment, error) {
	var out *domain.Payment
	err := r.retry.Do(ctx, "payments.GetActiveByReservation", func(ctx context.Context) error {
		query := `SELECT ` + paymentColumns + ` FROM payments WHERE reservation_id = $1 AND status <> $2`
		p, err := scanPayment(r.db.QueryRowContext(ctx, query, reservationID, domain.PaymentStatusFailed))
		if errors.Is(err, sql.ErrNoRows) {
			out = nil
			return nil
		}
		out = p
		return err
	})
	return out, err
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.PaymentStatus, at time.Time) (bool, error) {
	var changed bool
	err := r.retry.Do(ctx, "payments.UpdateStatus", func(ctx context.Context) error {
		var completedAt *time.Time
		if to == domain.PaymentStatusCompleted {
			completedAt = &at
		}
		query := `UPDATE payments SET status = $1, updated_at = $2, completed_at = COALESCE($3, completed_at)
		          WHERE id = $4 AND status = $5`
		logger.DatabaseCall("UpdatePaymentStatus", query, "payment_id", id, "from", from, "to", to)
		res, err := r.db.ExecContext(ctx, query, to, at, completedAt, id, from)
		if err != nil {
			return err
		}
		rows, _ := res.RowsAffected()
		logger.DatabaseResult("UpdatePaymentStatus", rows, nil)
		changed = rows == 1
		return nil
	})
	return changed, err
}
