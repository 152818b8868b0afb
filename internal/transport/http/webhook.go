package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/SviatoslavBeiar/Event-Planer/internal/domain"
	stripepay "github.com/SviatoslavBeiar/Event-Planer/internal/payment/stripe"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 16

// PaymentConfirmer reconciles a provider confirmation into a ticket.
type PaymentConfirmer interface {
	Confirm(ctx context.Context, sessionID, paymentIntentID string) (domain.Ticket, error)
}

// WebhookParser verifies and normalizes a provider push payload.
type WebhookParser func(payload []byte, sigHeader string) (stripepay.Confirmation, bool, error)

// HandlePaymentWebhook serves POST /payments/webhook. Authenticated by the
// provider signature, not a bearer token. Business-outcome failures inside
// reconciliation are logged and acknowledged with 200 so the provider stops
// retrying a signal that will never succeed.
func HandlePaymentWebhook(parse WebhookParser, confirmer PaymentConfirmer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		sig := r.Header.Get("Stripe-Signature")
		if sig == "" {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "missing signature")
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		confirmation, ok, err := parse(payload, sig)
		if err != nil {
			logger.Warn("webhook rejected", zap.Error(err))
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid signature")
			return
		}
		if !ok || !confirmation.Paid {
			// Unknown event type or not yet paid; acknowledge and move on.
			w.WriteHeader(http.StatusOK)
			return
		}
		if confirmation.SessionID == "" {
			// payment_intent-only signals carry no session reference; the
			// checkout.session event or client polling settles those.
			logger.Info("webhook without session id acknowledged",
				zap.String("payment_intent_id", confirmation.PaymentIntentID),
			)
			w.WriteHeader(http.StatusOK)
			return
		}

		ticket, err := confirmer.Confirm(r.Context(), confirmation.SessionID, confirmation.PaymentIntentID)
		if err != nil {
			if errors.Is(err, domain.ErrCapacityFull) || errors.Is(err, domain.ErrSessionExpired) {
				logger.Warn("webhook confirmation not issuable",
					zap.String("session_id", confirmation.SessionID),
					zap.Error(err),
				)
				w.WriteHeader(http.StatusOK)
				return
			}
			logger.Error("webhook confirmation failed",
				zap.String("session_id", confirmation.SessionID),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		logger.Info("ticket issued from webhook",
			zap.String("session_id", confirmation.SessionID),
			zap.String("ticket_id", ticket.ID),
		)
		w.WriteHeader(http.StatusOK)
	}
}
