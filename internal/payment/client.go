package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"reservation-engine/internal/domain"
	"reservation-engine/internal/logger"
)

// Client talks to the payment processor's checkout API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type checkoutRequest struct {
	Reference   string `json:"reference"`
	AmountCents int32  `json:"amount_cents"`
}

type checkoutResponse struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// InitiateCheckout opens a checkout session for the reservation. Transport
// failures and 5xx answers are reported as domain.ErrUnavailable.
func (c *Client) InitiateCheckout(ctx context.Context, reservationID uuid.UUID, amountCents int32) (*domain.CheckoutSession, error) {
	body, err := json.Marshal(checkoutRequest{Reference: reservationID.String(), AmountCents: amountCents})
	if err != nil {
		return nil, fmt.Errorf("marshal checkout request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build checkout request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Idempotency-Key", uuid.NewString())

	logger.ExternalServiceCall("payment", "InitiateCheckout", "reservation_id", reservationID, "amount_cents", amountCents)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.ExternalServiceResult("payment", "InitiateCheckout", err)
		return nil, fmt.Errorf("payment processor unreachable: %w (%v)", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read checkout response failed: %w (%v)", domain.ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		err = fmt.Errorf("payment processor returned %d: %w", resp.StatusCode, domain.ErrUnavailable)
	case resp.StatusCode >= 300:
		err = fmt.Errorf("payment processor rejected checkout (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err != nil {
		logger.ExternalServiceResult("payment", "InitiateCheckout", err, "status", resp.StatusCode)
		return nil, err
	}

	var out checkoutResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode checkout response failed: %w", err)
	}
	if out.SessionID == "" || out.RedirectURL == "" {
		return nil, fmt.Errorf("payment processor returned an incomplete session")
	}

	logger.ExternalServiceResult("payment", "InitiateCheckout", nil, "session_id", out.SessionID)
	return &domain.CheckoutSession{SessionID: out.SessionID, RedirectURL: out.RedirectURL}, nil
}
