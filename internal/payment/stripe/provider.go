package stripe

import (
	"context"
	"fmt"
	"strings"

	"github.com/SviatoslavBeiar/Event-Planer/internal/app"
	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"go.uber.org/zap"
)

// Provider drives Stripe Checkout. Event and buyer ids travel as metadata on
// both the checkout session and its payment intent, so every confirmation
// signal carries enough context to reconcile on its own.
type Provider struct {
	frontendBaseURL string
	logger          *zap.Logger
}

func NewProvider(secretKey, frontendBaseURL string, logger *zap.Logger) *Provider {
	stripe.Key = secretKey
	return &Provider{
		frontendBaseURL: strings.TrimRight(frontendBaseURL, "/"),
		logger:          logger,
	}
}

func (p *Provider) CreateCheckout(ctx context.Context, in app.CheckoutInput) (app.Checkout, error) {
	name := in.EventTitle
	if name == "" {
		name = "Event ticket"
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.frontendBaseURL + "/events/" + in.EventID + "?paid=1&session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(p.frontendBaseURL + "/events/" + in.EventID + "?pay=cancel"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(in.Currency)),
				UnitAmount: stripe.Int64(in.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(name),
				},
			},
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{
				metadataEventID: in.EventID,
				metadataUserID:  in.BuyerID,
			},
		},
	}
	params.Context = ctx
	params.AddMetadata(metadataEventID, in.EventID)
	params.AddMetadata(metadataUserID, in.BuyerID)

	sess, err := session.New(params)
	if err != nil {
		return app.Checkout{}, fmt.Errorf("create checkout session: %w", err)
	}

	p.logger.Info("checkout session created",
		zap.String("session_id", sess.ID),
		zap.String("event_id", in.EventID),
		zap.String("buyer_id", in.BuyerID),
	)
	return app.Checkout{SessionID: sess.ID, URL: sess.URL}, nil
}

func (p *Provider) CheckoutStatus(ctx context.Context, sessionID string) (app.CheckoutStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := session.Get(sessionID, params)
	if err != nil {
		return app.CheckoutStatus{}, fmt.Errorf("get checkout session: %w", err)
	}

	status := app.CheckoutStatus{
		Paid: sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}
	if sess.PaymentIntent != nil {
		status.PaymentIntentID = sess.PaymentIntent.ID
	}
	return status, nil
}
