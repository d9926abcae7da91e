package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"reservation-engine/internal/domain"
	"reservation-engine/internal/logger"
	"reservation-engine/internal/repository"
)

type assetRepository struct {
	db    *sql.DB
	retry RetryPolicy
}

func NewAssetRepository(db *sql.DB, retry RetryPolicy) repository.AssetRepository {
	return &assetRepository{db: db, retry: retry}
}

func (r *assetRepository) GetByID(ctx context.Context, id int32) (*domain.Asset, error) {
	var out *domain.Asset
	err := r.retry.Do(ctx, "assets.GetByID", func(ctx context.Context) error {
		a := &domain.Asset{}
		query := `SELECT id, owner_id, status, is_active, rate_per_unit_cents, deposit_cents FROM assets WHERE id = $1`
		err := r.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.OwnerID, &a.Status, &a.IsActive, &a.RatePerUnitCents, &a.DepositCents)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("asset %d: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

func (r *assetRepository) SetStatus(ctx context.Context, id int32, status domain.AssetStatus) error {
	return r.retry.Do(ctx, "assets.SetStatus", func(ctx context.Context) error {
		query := `UPDATE assets SET status = $1, updated_on = NOW() WHERE id = $2`
		logger.DatabaseCall("SetStatus", query, "asset_id", id, "status", status)
		res, err := r.db.ExecContext(ctx, query, status, id)
		if err != nil {
			logger.DatabaseResult("SetStatus", 0, err)
			return err
		}
		rows, _ := res.RowsAffected()
		logger.DatabaseResult("SetStatus", rows, nil)
		if rows == 0 {
			return fmt.Errorf("asset %d: %w", id, domain.ErrNotFound)
		}
		return nil
	})
}
