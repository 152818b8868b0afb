package domain

import "time"

// CheckerGrant authorizes a non-organizer account to verify tickets at the
// gate for one event. The organizer is implicitly authorized without a grant.
type CheckerGrant struct {
	EventID    string
	UserID     string
	UserEmail  string
	EventTitle string
	GrantedAt  time.Time
}

// User is identity data owned by the external auth collaborator; the core
// only reads it for grant-by-email and verification display.
type User struct {
	ID    string
	Email string
	Name  string
}
