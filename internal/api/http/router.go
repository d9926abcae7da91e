package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NewRouter mounts the webhook and health endpoints.
func NewRouter(webhooks *WebhookHandler, db Pinger) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/webhooks/payments", webhooks.HandlePaymentNotification).Methods(http.MethodPost)
	r.HandleFunc("/healthz", healthHandler(db)).Methods(http.MethodGet)
	return r
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
