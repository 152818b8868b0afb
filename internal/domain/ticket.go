package domain

import "time"

type TicketStatus string

const (
	TicketStatusActive    TicketStatus = "ACTIVE"
	TicketStatusUsed      TicketStatus = "USED"
	TicketStatusCancelled TicketStatus = "CANCELLED"
)

// Ticket is the source-of-truth record for one admission.
// Status moves ACTIVE -> USED or ACTIVE -> CANCELLED and never back.
type Ticket struct {
	ID                string
	Code              string
	EventID           string
	OwnerID           string
	Status            TicketStatus
	PaymentIntentID   string
	CheckoutSessionID string
	CreatedAt         time.Time
	UsedAt            *time.Time
}
