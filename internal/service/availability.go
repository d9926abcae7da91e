package service

import (
	"context"
	"errors"

	"reservation-engine/internal/domain"
	"reservation-engine/internal/logger"
	"reservation-engine/internal/repository"
)

// AssetSynchronizer mirrors reservation lifecycle changes onto the asset's
// availability status. It runs after the reservation write has committed and
// never undoes it: a write that still fails after the store's own retries is
// logged and queued as an ASSET_SYNC reconciliation item.
type AssetSynchronizer struct {
	assets       repository.AssetRepository
	reservations repository.ReservationRepository
	recon        repository.ReconciliationRepository
	clock        Clock
}

func NewAssetSynchronizer(
	assets repository.AssetRepository,
	reservations repository.ReservationRepository,
	recon repository.ReconciliationRepository,
	clock Clock,
) *AssetSynchronizer {
	return &AssetSynchronizer{
		assets:       assets,
		reservations: reservations,
		recon:        recon,
		clock:        clock,
	}
}

// Apply sets the asset of r to desired.
func (s *AssetSynchronizer) Apply(ctx context.Context, r *domain.Reservation, desired domain.AssetStatus) {
	ctx = context.WithoutCancel(ctx)

	err := s.assets.SetStatus(ctx, r.AssetID, desired)
	if err == nil {
		logger.Info("Asset status synchronized", "asset_id", r.AssetID, "status", desired, "reservation_id", r.ID)
		return
	}

	logger.Reconciliation(string(domain.ReconciliationAssetSync), "Asset status write failed after reservation change",
		"asset_id", r.AssetID, "desired_status", desired, "reservation_id", r.ID, "reservation_status", r.Status, "error", err)

	item := &domain.ReconciliationItem{
		Kind:          domain.ReconciliationAssetSync,
		ReservationID: r.ID,
		AssetID:       r.AssetID,
		DesiredStatus: desired,
		Detail:        err.Error(),
		Attempts:      1,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.recon.Create(ctx, item); err != nil {
		logger.Error("Failed to queue asset sync reconciliation",
			"asset_id", r.AssetID, "desired_status", desired, "reservation_id", r.ID, "error", err)
	}
}

// RetryResult summarizes one RetryOpen pass.
type RetryResult struct {
	Applied  int
	Obsolete int
	Failed   int
}

// RetryOpen re-applies queued asset writes. An item whose reservation has
// since moved on, so that its desired status is no longer what the
// reservation calls for, is resolved without writing.
func (s *AssetSynchronizer) RetryOpen(ctx context.Context, limit int32) (RetryResult, error) {
	var result RetryResult

	items, err := s.recon.ListOpen(ctx, domain.ReconciliationAssetSync, limit)
	if err != nil {
		return result, err
	}

	for _, item := range items {
		r, err := s.reservations.GetByID(ctx, item.ReservationID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			logger.Error("Failed to load reservation for asset sync", "item_id", item.ID, "reservation_id", item.ReservationID, "error", err)
			result.Failed++
			continue
		}

		if r == nil || DesiredAssetStatus(r.Status) != item.DesiredStatus {
			logger.Info("Asset sync item no longer applies", "item_id", item.ID, "reservation_id", item.ReservationID, "desired_status", item.DesiredStatus)
			if err := s.recon.Resolve(ctx, item.ID, s.clock.Now()); err != nil {
				logger.Error("Failed to resolve asset sync item", "item_id", item.ID, "error", err)
			}
			result.Obsolete++
			continue
		}

		if err := s.assets.SetStatus(ctx, item.AssetID, item.DesiredStatus); err != nil {
			logger.Reconciliation(string(domain.ReconciliationAssetSync), "Asset sync retry failed",
				"item_id", item.ID, "asset_id", item.AssetID, "desired_status", item.DesiredStatus, "attempts", item.Attempts+1, "error", err)
			if err := s.recon.MarkAttempt(ctx, item.ID); err != nil {
				logger.Error("Failed to record asset sync attempt", "item_id", item.ID, "error", err)
			}
			result.Failed++
			continue
		}

		if err := s.recon.Resolve(ctx, item.ID, s.clock.Now()); err != nil {
			logger.Error("Failed to resolve asset sync item", "item_id", item.ID, "error", err)
		}
		result.Applied++
	}
	return result, nil
}

// DesiredAssetStatus is the asset status a reservation in status implies,
// or "" when the reservation does not drive the asset at all.
func DesiredAssetStatus(status domain.ReservationStatus) domain.AssetStatus {
	switch status {
	case domain.ReservationStatusActive:
		return domain.AssetStatusRented
	case domain.ReservationStatusCompleted:
		return domain.AssetStatusAvailable
	}
	return ""
}
