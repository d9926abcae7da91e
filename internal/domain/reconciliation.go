package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReconciliationKind string

const (
	// ReconciliationAssetSync is an asset status write that failed after the
	// reservation change had already committed.
	ReconciliationAssetSync ReconciliationKind = "ASSET_SYNC"
	// ReconciliationPaymentAnomaly is a completed payment whose reservation
	// could not be activated.
	ReconciliationPaymentAnomaly ReconciliationKind = "PAYMENT_ANOMALY"
)

type ReconciliationItem struct {
	ID             int64              `json:"id"`
	Kind           ReconciliationKind `json:"kind"`
	ReservationID  uuid.UUID          `json:"reservation_id"`
	AssetID        int32              `json:"asset_id,omitempty"`
	DesiredStatus  AssetStatus        `json:"desired_status,omitempty"`
	PaymentID      *uuid.UUID         `json:"payment_id,omitempty"`
	ObservedStatus ReservationStatus  `json:"observed_status,omitempty"`
	Detail         string             `json:"detail"`
	Attempts       int32              `json:"attempts"`
	CreatedAt      time.Time          `json:"created_at"`
	ResolvedAt     *time.Time         `json:"resolved_at,omitempty"`
}
