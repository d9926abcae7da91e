package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

type Payment struct {
	ID            uuid.UUID     `json:"id"`
	ReservationID uuid.UUID     `json:"reservation_id"`
	SessionID     string        `json:"session_id"`
	AmountCents   int32         `json:"amount_cents"`
	Status        PaymentStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
}

// CheckoutSession is what the processor hands back when a checkout starts.
type CheckoutSession struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

type PaymentOutcome string

const (
	PaymentOutcomeCompleted PaymentOutcome = "COMPLETED"
	PaymentOutcomeFailed    PaymentOutcome = "FAILED"
)

// PaymentNotification is the decoded body of a processor webhook.
type PaymentNotification struct {
	SessionID string         `json:"session_id"`
	Outcome   PaymentOutcome `json:"outcome"`
}
