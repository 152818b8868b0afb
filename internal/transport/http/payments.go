package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SviatoslavBeiar/Event-Planer/internal/app"
	"github.com/SviatoslavBeiar/Event-Planer/internal/domain"
)

// PaymentService is the minimal surface the checkout endpoints need.
type PaymentService interface {
	CreateSession(ctx context.Context, eventID, buyerID string) (app.Checkout, error)
	ConfirmFromPoll(ctx context.Context, sessionID string) (domain.Ticket, error)
}

type checkoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// HandleCheckoutSession serves POST /payments/checkout-session/{eventId}.
func HandleCheckoutSession(svc PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		eventID, ok := pathSuffix(r.URL.Path, "/payments/checkout-session/")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		id, ok := requireIdentity(w, r)
		if !ok {
			return
		}

		checkout, err := svc.CreateSession(r.Context(), eventID, id.UserID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(checkoutResponse{
			SessionID: checkout.SessionID,
			URL:       checkout.URL,
		})
	}
}

// HandleConfirmPayment serves POST /payments/confirm/{sessionId}, the
// polling fallback for clients returning from checkout. Idempotent: a
// session already issued returns the same ticket again.
func HandleConfirmPayment(svc PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		sessionID, ok := pathSuffix(r.URL.Path, "/payments/confirm/")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if _, ok := requireIdentity(w, r); !ok {
			return
		}

		ticket, err := svc.ConfirmFromPoll(r.Context(), sessionID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toTicketResponse(ticket))
	}
}
