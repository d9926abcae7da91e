package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"reservation-engine/internal/domain"
	"reservation-engine/internal/repository"
)

type identityRepository struct {
	db    *sql.DB
	retry RetryPolicy
}

func NewIdentityRepository(db *sql.DB, retry RetryPolicy) repository.IdentityRepository {
	return &identityRepository{db: db, retry: retry}
}

func (r *identityRepository) GetRenterEligibility(ctx context.Context, userID int32) (*domain.RenterEligibility, error) {
	var out *domain.RenterEligibility
	err := r.retry.Do(ctx, "users.GetRenterEligibility", func(ctx context.Context) error {
		e := &domain.RenterEligibility{}
		var license sql.NullString
		query := `SELECT id, is_verified, license_number, license_expiry FROM users WHERE id = $1`
		err := r.db.QueryRowContext(ctx, query, userID).Scan(&e.UserID, &e.Verified, &license, &e.LicenseExpiry)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		e.LicenseNumber = license.String
		out = e
		return nil
	})
	return out, err
}
