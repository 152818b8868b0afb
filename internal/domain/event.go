package domain

import "time"

type EventStatus string

const (
	EventStatusDraft     EventStatus = "DRAFT"
	EventStatusPublished EventStatus = "PUBLISHED"
	EventStatusCancelled EventStatus = "CANCELLED"
)

// Event is catalog data the ticket core reads but never mutates.
// A nil Capacity means unlimited admission.
type Event struct {
	ID           string
	OrganizerID  string
	Title        string
	Capacity     *int
	Paid         bool
	PriceCents   int64
	Currency     string
	Status       EventStatus
	SalesStartAt *time.Time
	SalesEndAt   *time.Time
}

// Availability is the derived seat view for an event. Remaining is nil
// when the event has no capacity ceiling.
type Availability struct {
	Capacity  *int
	Sold      int
	Remaining *int
}
