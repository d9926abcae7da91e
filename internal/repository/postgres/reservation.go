package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"reservation-engine/internal/domain"
	"reservation-engine/internal/logger"
	"reservation-engine/internal/repository"
)

// assetLockNamespace keeps reservation advisory locks apart from any other
// pg_advisory_xact_lock(int, int) users in the same database.
const assetLockNamespace int32 = 0x52455356 // "RESV"

const reservationColumns = `id, asset_id, renter_id, owner_id, start_time, end_time,
	rate_per_unit_cents, unit_count, total_amount_cents, deposit_cents, status,
	notes, pickup_location, return_location, created_at, updated_at, cancelled_at, completed_at`

var sortColumns = map[string]string{
	"":             "created_at",
	"created_at":   "created_at",
	"start_time":   "start_time",
	"end_time":     "end_time",
	"total_amount": "total_amount_cents",
}

var occupying = func() pq.StringArray {
	out := make(pq.StringArray, 0, len(domain.OccupyingStatuses))
	for _, s := range domain.OccupyingStatuses {
		out = append(out, string(s))
	}
	return out
}()

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

type reservationRepository struct {
	db    *sql.DB
	retry RetryPolicy
}

func NewReservationRepository(db *sql.DB, retry RetryPolicy) repository.ReservationRepository {
	return &reservationRepository{db: db, retry: retry}
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	rt := &domain.Reservation{}
	err := row.Scan(&rt.ID, &rt.AssetID, &rt.RenterID, &rt.OwnerID, &rt.StartTime, &rt.EndTime,
		&rt.RatePerUnitCents, &rt.UnitCount, &rt.TotalAmountCents, &rt.DepositCents, &rt.Status,
		&rt.Notes, &rt.PickupLocation, &rt.ReturnLocation, &rt.CreatedAt, &rt.UpdatedAt, &rt.CancelledAt, &rt.CompletedAt)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

func (r *reservationRepository) CreateIfNoConflict(ctx context.Context, rt *domain.Reservation) error {
	return r.retry.Do(ctx, "reservations.CreateIfNoConflict", func(ctx context.Context) error {
		return r.createIfNoConflict(ctx, rt)
	})
}

func (r *reservationRepository) createIfNoConflict(ctx context.Context, rt *domain.Reservation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Serializes check-then-insert per asset; released on commit or rollback.
	logger.DatabaseCall("CreateIfNoConflict", "pg_advisory_xact_lock", "asset_id", rt.AssetID)
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, assetLockNamespace, rt.AssetID); err != nil {
		return fmt.Errorf("failed to lock asset %d: %w", rt.AssetID, err)
	}

	conflict, err := findConflict(ctx, tx, rt.AssetID, rt.StartTime, rt.EndTime)
	if err != nil {
		return err
	}
	if conflict != nil {
		return &domain.ConflictError{ConflictingID: conflict.ID}
	}

	query := `INSERT INTO reservations (` + reservationColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	res, err := tx.ExecContext(ctx, query,
		rt.ID, rt.AssetID, rt.RenterID, rt.OwnerID, rt.StartTime, rt.EndTime,
		rt.RatePerUnitCents, rt.UnitCount, rt.TotalAmountCents, rt.DepositCents, rt.Status,
		rt.Notes, rt.PickupLocation, rt.ReturnLocation, rt.CreatedAt, rt.UpdatedAt, rt.CancelledAt, rt.CompletedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23P01" {
			// reservations_no_overlap exclusion constraint
			return &domain.ConflictError{}
		}
		return err
	}
	rows, _ := res.RowsAffected()
	logger.DatabaseResult("CreateIfNoConflict", rows, nil, "reservation_id", rt.ID)

	return tx.Commit()
}

func findConflict(ctx context.Context, q queryer, assetID int32, start, end time.Time) (*domain.Reservation, error) {
	// Half-open overlap: existing.start < end AND start < existing.end.
	query := `SELECT ` + reservationColumns + ` FROM reservations
	          WHERE asset_id = $1 AND status = ANY($2) AND start_time < $3 AND $4 < end_time
	          ORDER BY start_time LIMIT 1`
	rt, err := scanReservation(q.QueryRowContext(ctx, query, assetID, occupying, end, start))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rt, nil
}

func (r *reservationRepository) FindConflict(ctx context.Context, assetID int32, start, end time.Time) (*domain.Reservation, error) {
	var out *domain.Reservation
	err := r.retry.Do(ctx, "reservations.FindConflict", func(ctx context.Context) error {
		var err error
		out, err = findConflict(ctx, r.db, assetID, start, end)
		return err
	})
	return out, err
}

func (r *reservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	var out *domain.Reservation
	err := r.retry.Do(ctx, "reservations.GetByID", func(ctx context.Context) error {
		query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
		rt, err := scanReservation(r.db.QueryRowContext(ctx, query, id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("reservation %s: %w", id, domain.ErrNotFound)
		}
		out = rt
		return err
	})
	return out, err
}

func (r *reservationRepository) Transition(ctx context.Context, change repository.StatusChange) (*domain.Reservation, error) {
	var out *domain.Reservation
	err := r.retry.Do(ctx, "reservations.Transition", func(ctx context.Context) error {
		query := `UPDATE reservations
		          SET status = $1,
		              cancelled_at = COALESCE($2, cancelled_at),
		              completed_at = COALESCE($3, completed_at),
		              updated_at = $4
		          WHERE id = $5 AND status = $6
		          RETURNING ` + reservationColumns
		logger.DatabaseCall("Transition", "UPDATE reservations", "reservation_id", change.ID, "from", change.From, "to", change.To)
		rt, err := scanReservation(r.db.QueryRowContext(ctx, query,
			change.To, change.CancelledAt, change.CompletedAt, change.At, change.ID, change.From))
		if err == nil {
			out = rt
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		// Nothing matched: either the id is unknown or someone else moved it first.
		current, err := scanReservation(r.db.QueryRowContext(ctx,
			`SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, change.ID))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("reservation %s: %w", change.ID, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return &domain.InvalidTransitionError{From: current.Status, To: change.To}
	})
	return out, err
}

func (r *reservationRepository) ListByRenter(ctx context.Context, renterID int32, filter domain.ReservationFilter, page domain.PageRequest) ([]domain.Reservation, int32, error) {
	filter.RenterID = renterID
	return r.list(ctx, "reservations.ListByRenter", filter, page)
}

func (r *reservationRepository) ListByAssetOwner(ctx context.Context, ownerID int32, filter domain.ReservationFilter, page domain.PageRequest) ([]domain.Reservation, int32, error) {
	filter.OwnerID = ownerID
	return r.list(ctx, "reservations.ListByAssetOwner", filter, page)
}

func (r *reservationRepository) ListAll(ctx context.Context, filter domain.ReservationFilter, page domain.PageRequest) ([]domain.Reservation, int32, error) {
	return r.list(ctx, "reservations.ListAll", filter, page)
}

func buildListWhere(filter domain.ReservationFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.RenterID != 0 {
		add("renter_id = $%d", filter.RenterID)
	}
	if filter.OwnerID != 0 {
		add("owner_id = $%d", filter.OwnerID)
	}
	if filter.AssetID != 0 {
		add("asset_id = $%d", filter.AssetID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(page domain.PageRequest) (string, error) {
	col, ok := sortColumns[page.SortField]
	if !ok {
		return "", fmt.Errorf("unsupported sort field %q: %w", page.SortField, domain.ErrInvalidArgument)
	}
	var dir string
	switch {
	case page.SortDir == "", strings.EqualFold(string(page.SortDir), string(domain.SortDesc)):
		dir = "DESC"
	case strings.EqualFold(string(page.SortDir), string(domain.SortAsc)):
		dir = "ASC"
	default:
		return "", fmt.Errorf("unsupported sort direction %q: %w", page.SortDir, domain.ErrInvalidArgument)
	}
	// id breaks ties so pages stay stable
	return fmt.Sprintf(" ORDER BY %s %s, id %s", col, dir, dir), nil
}

func (r *reservationRepository) list(ctx context.Context, operation string, filter domain.ReservationFilter, page domain.PageRequest) ([]domain.Reservation, int32, error) {
	order, err := orderClause(page)
	if err != nil {
		return nil, 0, err
	}
	if page.Page < 1 {
		page.Page = 1
	}
	if page.PageSize < 1 {
		page.PageSize = 20
	}
	where, args := buildListWhere(filter)

	var reservations []domain.Reservation
	var count int32
	err = r.retry.Do(ctx, operation, func(ctx context.Context) error {
		reservations = nil
		countSQL := "SELECT count(*) FROM reservations" + where
		if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&count); err != nil {
			return err
		}

		argIdx := len(args) + 1
		query := "SELECT " + reservationColumns + " FROM reservations" + where + order +
			fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
		pageArgs := append(append([]any{}, args...), page.PageSize, (page.Page-1)*page.PageSize)

		logger.DatabaseCall(operation, query)
		rows, err := r.db.QueryContext(ctx, query, pageArgs...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			rt, err := scanReservation(rows)
			if err != nil {
				return err
			}
			reservations = append(reservations, *rt)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return reservations, count, nil
}
