package domain

import "time"

type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "PENDING"
	SessionStatusConfirmed SessionStatus = "CONFIRMED"
	SessionStatusIssued    SessionStatus = "ISSUED"
	SessionStatusExpired   SessionStatus = "EXPIRED"
)

// PaymentSession tracks one checkout with the payment provider. The ID is
// the provider-issued session id. A session reaches ISSUED at most once;
// ISSUED and EXPIRED are terminal.
type PaymentSession struct {
	ID              string
	EventID         string
	BuyerID         string
	Status          SessionStatus
	TicketID        string
	PaymentIntentID string
	RefundRequired  bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
