package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"reservation-engine/internal/domain"
	"reservation-engine/internal/repository"
)

const reconciliationColumns = `id, kind, reservation_id, asset_id, desired_status, payment_id, observed_status, detail, attempts, created_at, resolved_at`

type reconciliationRepository struct {
	db    *sql.DB
	retry RetryPolicy
}

func NewReconciliationRepository(db *sql.DB, retry RetryPolicy) repository.ReconciliationRepository {
	return &reconciliationRepository{db: db, retry: retry}
}

func (r *reconciliationRepository) Create(ctx context.Context, item *domain.ReconciliationItem) error {
	return r.retry.Do(ctx, "reconciliation.Create", func(ctx context.Context) error {
		query := `INSERT INTO reconciliation_items (kind, reservation_id, asset_id, desired_status, payment_id, observed_status, detail, attempts, created_at)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
		return r.db.QueryRowContext(ctx, query, item.Kind, item.ReservationID, item.AssetID, item.DesiredStatus,
			item.PaymentID, item.ObservedStatus, item.Detail, item.Attempts, item.CreatedAt).Scan(&item.ID)
	})
}

func (r *reconciliationRepository) ListOpen(ctx context.Context, kind domain.ReconciliationKind, limit int32) ([]domain.ReconciliationItem, error) {
	var items []domain.ReconciliationItem
	err := r.retry.Do(ctx, "reconciliation.ListOpen", func(ctx context.Context) error {
		items = nil
		query := `SELECT ` + reconciliationColumns + ` FROM reconciliation_items
		          WHERE kind = $1 AND resolved_at IS NULL ORDER BY created_at LIMIT $2`
		rows, err := r.db.QueryContext(ctx, query, kind, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var it domain.ReconciliationItem
			if err := rows.Scan(&it.ID, &it.Kind, &it.ReservationID, &it.AssetID, &it.DesiredStatus, &it.PaymentID,
				&it.ObservedStatus, &it.Detail, &it.Attempts, &it.CreatedAt, &it.ResolvedAt); err != nil {
				return err
			}
			items = append(items, it)
		}
		return rows.Err()
	})
	return items, err
}

func (r *reconciliationRepository) MarkAttempt(ctx context.Context, id int64) error {
	return r.retry.Do(ctx, "reconciliation.MarkAttempt", func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `UPDATE reconciliation_items SET attempts = attempts + 1 WHERE id = $1`, id)
		return err
	})
}

func (r *reconciliationRepository) Resolve(ctx context.Context, id int64, at time.Time) error {
	return r.retry.Do(ctx, "reconciliation.Resolve", func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, `UPDATE reconciliation_items SET resolved_at = $1 WHERE id = $2 AND resolved_at IS NULL`, at, id)
		if err != nil {
			return err
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return fmt.Errorf("reconciliation item %d: %w", id, domain.ErrNotFound)
		}
		return nil
	})
}
