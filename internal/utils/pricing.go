package utils

import (
	"fmt"
	"math"
	"time"

	"reservation-engine/internal/domain"
)

// UnitDuration is the billing unit: one started day is billed as a full day.
const UnitDuration = 24 * time.Hour

// PriceSnapshot is the commercial terms frozen onto a reservation at creation.
type PriceSnapshot struct {
	RatePerUnitCents int32
	UnitCount        int32
	TotalAmountCents int32
	DepositCents     int32
}

// UnitCount returns the number of whole days covering [start, end), rounding
// any partial day up. start must be before end.
func UnitCount(start, end time.Time) (int32, error) {
	if !start.Before(end) {
		return 0, fmt.Errorf("end time must be after start time: %w", domain.ErrInvalidInterval)
	}
	// time.Duration saturates near 292 years, so work in whole seconds
	secs := end.Unix() - start.Unix()
	nanos := end.Nanosecond() - start.Nanosecond()
	if nanos < 0 {
		secs--
		nanos += int(time.Second)
	}
	perUnit := int64(UnitDuration / time.Second)
	units := secs / perUnit
	if secs%perUnit != 0 || nanos > 0 {
		units++
	}
	if units > math.MaxInt32 {
		return 0, fmt.Errorf("rental period too long: %w", domain.ErrInvalidInterval)
	}
	return int32(units), nil
}

// CalculatePriceSnapshot prices [start, end) against the asset's current rate.
func CalculatePriceSnapshot(start, end time.Time, asset *domain.Asset) (PriceSnapshot, error) {
	if asset == nil {
		return PriceSnapshot{}, fmt.Errorf("asset is required")
	}
	if asset.RatePerUnitCents < 0 || asset.DepositCents < 0 {
		return PriceSnapshot{}, fmt.Errorf("asset %d has negative pricing: %w", asset.ID, domain.ErrAssetUnavailable)
	}

	units, err := UnitCount(start, end)
	if err != nil {
		return PriceSnapshot{}, err
	}

	total := int64(asset.RatePerUnitCents) * int64(units)
	if total > math.MaxInt32 {
		return PriceSnapshot{}, fmt.Errorf("total for %d units overflows: %w", units, domain.ErrInvalidInterval)
	}

	return PriceSnapshot{
		RatePerUnitCents: asset.RatePerUnitCents,
		UnitCount:        units,
		TotalAmountCents: int32(total),
		DepositCents:     asset.DepositCents,
	}, nil
}
