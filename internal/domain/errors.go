package domain

import "errors"

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrEventNotPublished = errors.New("event is not published")
	ErrEventCancelled    = errors.New("event is cancelled")
	ErrSalesNotStarted   = errors.New("ticket sales have not started")
	ErrSalesEnded        = errors.New("ticket sales have ended")
	ErrCapacityFull      = errors.New("event is full")
	ErrAlreadyRegistered = errors.New("already registered for this event")
	ErrPaymentRequired   = errors.New("event requires payment")
	ErrEventFree         = errors.New("event is free")

	ErrTicketNotFound        = errors.New("ticket not found")
	ErrTicketForAnotherEvent = errors.New("ticket belongs to another event")
	ErrTicketNotActive       = errors.New("ticket is not active")

	ErrSessionNotFound = errors.New("payment session not found")
	ErrSessionExpired  = errors.New("payment session expired")
	ErrNotYetIssued    = errors.New("ticket not yet issued")

	ErrUserNotFound  = errors.New("user not found")
	ErrEmailRequired = errors.New("email required")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidID     = errors.New("invalid id")
)
