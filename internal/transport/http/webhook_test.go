package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SviatoslavBeiar/Event-Planer/internal/domain"
	stripepay "github.com/SviatoslavBeiar/Event-Planer/internal/payment/stripe"
	"go.uber.org/zap"
)

func TestHandlePaymentWebhook(t *testing.T) {
	t.Parallel()

	logger := zap.NewNop()

	paidConfirmation := stripepay.Confirmation{
		SessionID:       "cs_test_1",
		PaymentIntentID: "pi_test_1",
		Paid:            true,
	}

	tests := []struct {
		name           string
		sig            string
		parse          WebhookParser
		confirmErr     error
		expectedStatus int
		wantConfirms   int
	}{
		{
			name: "paid session confirmed",
			sig:  "t=1,v1=sig",
			parse: func(_ []byte, _ string) (stripepay.Confirmation, bool, error) {
				return paidConfirmation, true, nil
			},
			expectedStatus: http.StatusOK,
			wantConfirms:   1,
		},
		{
			name:           "missing signature",
			sig:            "",
			parse:          nil,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "invalid signature",
			sig:  "t=1,v1=deadbeef",
			parse: func(_ []byte, _ string) (stripepay.Confirmation, bool, error) {
				return stripepay.Confirmation{}, false, errors.New("bad signature")
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unhandled event acknowledged",
			sig:  "t=1,v1=sig",
			parse: func(_ []byte, _ string) (stripepay.Confirmation, bool, error) {
				return stripepay.Confirmation{}, false, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "unpaid session acknowledged without confirm",
			sig:  "t=1,v1=sig",
			parse: func(_ []byte, _ string) (stripepay.Confirmation, bool, error) {
				return stripepay.Confirmation{SessionID: "cs_test_1", Paid: false}, true, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "payment intent signal without session acknowledged",
			sig:  "t=1,v1=sig",
			parse: func(_ []byte, _ string) (stripepay.Confirmation, bool, error) {
				return stripepay.Confirmation{PaymentIntentID: "pi_test_1", Paid: true}, true, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "capacity race acknowledged to stop retries",
			sig:  "t=1,v1=sig",
			parse: func(_ []byte, _ string) (stripepay.Confirmation, bool, error) {
				return paidConfirmation, true, nil
			},
			confirmErr:     domain.ErrCapacityFull,
			expectedStatus: http.StatusOK,
			wantConfirms:   1,
		},
		{
			name: "expired session acknowledged to stop retries",
			sig:  "t=1,v1=sig",
			parse: func(_ []byte, _ string) (stripepay.Confirmation, bool, error) {
				return paidConfirmation, true, nil
			},
			confirmErr:     domain.ErrSessionExpired,
			expectedStatus: http.StatusOK,
			wantConfirms:   1,
		},
		{
			name: "storage fault keeps the retry alive",
			sig:  "t=1,v1=sig",
			parse: func(_ []byte, _ string) (stripepay.Confirmation, bool, error) {
				return paidConfirmation, true, nil
			},
			confirmErr:     errors.New("db down"),
			expectedStatus: http.StatusInternalServerError,
			wantConfirms:   1,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			confirmer := &stubConfirmer{err: tt.confirmErr}

			req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(`{"id":"evt_1"}`))
			if tt.sig != "" {
				req.Header.Set("Stripe-Signature", tt.sig)
			}
			rec := httptest.NewRecorder()

			HandlePaymentWebhook(tt.parse, confirmer, logger).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d (%s)", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if confirmer.calls != tt.wantConfirms {
				t.Fatalf("expected %d confirm calls, got %d", tt.wantConfirms, confirmer.calls)
			}
		})
	}
}

type stubConfirmer struct {
	calls int
	err   error
}

func (s *stubConfirmer) Confirm(_ context.Context, sessionID, paymentIntentID string) (domain.Ticket, error) {
	s.calls++
	if s.err != nil {
		return domain.Ticket{}, s.err
	}
	return domain.Ticket{ID: "ticket-1", CheckoutSessionID: sessionID, PaymentIntentID: paymentIntentID}, nil
}
