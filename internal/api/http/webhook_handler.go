package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"reservation-engine/internal/domain"
	"reservation-engine/internal/logger"
	"reservation-engine/internal/payment"
	"reservation-engine/internal/service"
)

const maxWebhookBody = 64 << 10

// WebhookHandler receives payment processor callbacks.
type WebhookHandler struct {
	paymentSvc service.PaymentService
	secret     []byte
}

func NewWebhookHandler(paymentSvc service.PaymentService, secret string) *WebhookHandler {
	return &WebhookHandler{paymentSvc: paymentSvc, secret: []byte(secret)}
}

// HandlePaymentNotification verifies the signature over the raw body before
// decoding it. A 2xx tells the processor to stop redelivering.
func (h *WebhookHandler) HandlePaymentNotification(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) > maxWebhookBody {
		http.Error(w, "Body too large", http.StatusRequestEntityTooLarge)
		return
	}

	if err := payment.VerifySignature(h.secret, body, r.Header.Get(payment.SignatureHeader)); err != nil {
		logger.Warn("Rejected payment webhook", "remote", r.RemoteAddr, "error", err)
		writeError(w, err)
		return
	}

	var n domain.PaymentNotification
	if err := json.Unmarshal(body, &n); err != nil {
		http.Error(w, "Malformed notification", http.StatusBadRequest)
		return
	}

	if err := h.paymentSvc.HandlePaymentNotification(r.Context(), n); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidSignature):
		code = http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnavailable):
		code = http.StatusServiceUnavailable
	default:
		logger.Error("Payment webhook failed", "error", err)
	}
	writeJSON(w, code, map[string]string{"error": domain.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
