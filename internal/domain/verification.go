package domain

import "time"

// Verification result messages. CONSUMED is an expected outcome of losing
// a consume race, not a fault.
const (
	VerifyMessageOK              = "OK"
	VerifyMessageConsumed        = "CONSUMED"
	VerifyMessageNotFound        = "TICKET_NOT_FOUND"
	VerifyMessageAnotherEvent    = "TICKET_FOR_ANOTHER_EVENT"
	VerifyMessageTicketNotActive = "TICKET_NOT_ACTIVE"
)

// VerificationResult is what a gate checker sees after scanning a code.
type VerificationResult struct {
	Valid      bool
	Message    string
	TicketID   string
	Code       string
	Status     TicketStatus
	OwnerID    string
	OwnerName  string
	EventID    string
	EventTitle string
	VerifiedAt time.Time
}
