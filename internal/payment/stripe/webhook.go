package stripe

import (
	"encoding/json"
	"fmt"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

const (
	metadataEventID = "event_id"
	metadataUserID  = "user_id"
)

// Confirmation is a provider push signal normalized for the reconciler.
type Confirmation struct {
	SessionID       string
	PaymentIntentID string
	EventID         string
	UserID          string
	Paid            bool
}

// ParseWebhook verifies the Stripe-Signature header and extracts a
// confirmation from the event types the reconciler acts on. Other event
// types return ok=false and must still be acknowledged with 200.
func ParseWebhook(payload []byte, sigHeader, secret string) (Confirmation, bool, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, secret)
	if err != nil {
		return Confirmation{}, false, fmt.Errorf("verify webhook signature: %w", err)
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return Confirmation{}, false, fmt.Errorf("decode checkout session: %w", err)
		}
		c := Confirmation{
			SessionID: sess.ID,
			EventID:   sess.Metadata[metadataEventID],
			UserID:    sess.Metadata[metadataUserID],
			Paid: sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
				event.Type == "checkout.session.async_payment_succeeded",
		}
		if sess.PaymentIntent != nil {
			c.PaymentIntentID = sess.PaymentIntent.ID
		}
		return c, true, nil

	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return Confirmation{}, false, fmt.Errorf("decode payment intent: %w", err)
		}
		return Confirmation{
			PaymentIntentID: pi.ID,
			EventID:         pi.Metadata[metadataEventID],
			UserID:          pi.Metadata[metadataUserID],
			Paid:            true,
		}, true, nil
	}

	return Confirmation{}, false, nil
}
