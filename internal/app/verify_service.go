package app

import (
	"context"
	"strings"
	"time"

	"github.com/SviatoslavBeiar/Event-Planer/internal/clock"
	"github.com/SviatoslavBeiar/Event-Planer/internal/domain"
)

type VerifyRepository interface {
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
	GetUser(ctx context.Context, userID string) (domain.User, error)
	FindTicketByCode(ctx context.Context, code string) (*domain.Ticket, error)
	IsChecker(ctx context.Context, eventID, userID string) (bool, error)
	MarkUsed(ctx context.Context, ticketID string, usedAt time.Time) (bool, error)
}

// VerifyService validates and consumes scanned ticket codes at the gate.
type VerifyService struct {
	repo  VerifyRepository
	clock clock.Clock
}

func NewVerifyService(repo VerifyRepository, clk clock.Clock) *VerifyService {
	return &VerifyService{
		repo:  repo,
		clock: clk,
	}
}

const scanPrefix = "TICKET:"

// NormalizeScan reduces a scanner payload to a bare code. The QR payload is
// "TICKET:<eventId>:<code>"; a raw code string is accepted as fallback.
// Codes compare case-insensitively, so the result is always uppercase.
func NormalizeScan(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if strings.HasPrefix(s, scanPrefix) {
		parts := strings.SplitN(s, ":", 3)
		if len(parts) == 3 {
			return strings.TrimSpace(parts[2])
		}
	}
	return s
}

// Validate reports whether a code admits for the event. It never mutates
// ticket state, so re-scans are harmless.
func (s *VerifyService) Validate(ctx context.Context, eventID, rawCode, actorID string) (domain.VerificationResult, error) {
	if err := s.authorize(ctx, eventID, actorID); err != nil {
		return domain.VerificationResult{}, err
	}
	return s.lookup(ctx, eventID, rawCode)
}

// Consume admits a ticket: authorization and lookup run again from scratch,
// then the status flips ACTIVE -> USED with a compare-and-set. When another
// checker already consumed the code, the result is CONSUMED, not an error.
func (s *VerifyService) Consume(ctx context.Context, eventID, rawCode, actorID string) (domain.VerificationResult, error) {
	if err := s.authorize(ctx, eventID, actorID); err != nil {
		return domain.VerificationResult{}, err
	}

	res, err := s.lookup(ctx, eventID, rawCode)
	if err != nil || !res.Valid {
		return res, err
	}

	used, err := s.repo.MarkUsed(ctx, res.TicketID, s.clock.Now())
	if err != nil {
		return domain.VerificationResult{}, err
	}
	if !used {
		// Lost the race against a concurrent consume of the same code.
		res.Valid = false
		res.Message = domain.VerifyMessageConsumed
		res.Status = domain.TicketStatusUsed
		return res, nil
	}

	res.Status = domain.TicketStatusUsed
	return res, nil
}

func (s *VerifyService) authorize(ctx context.Context, eventID, actorID string) error {
	event, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if event.OrganizerID == actorID {
		return nil
	}
	isChecker, err := s.repo.IsChecker(ctx, eventID, actorID)
	if err != nil {
		return err
	}
	if !isChecker {
		return domain.ErrForbidden
	}
	return nil
}

func (s *VerifyService) lookup(ctx context.Context, eventID, rawCode string) (domain.VerificationResult, error) {
	code := NormalizeScan(rawCode)
	now := s.clock.Now()

	res := domain.VerificationResult{
		Code:       code,
		EventID:    eventID,
		VerifiedAt: now,
	}

	ticket, err := s.repo.FindTicketByCode(ctx, code)
	if err != nil {
		return domain.VerificationResult{}, err
	}
	if ticket == nil {
		res.Message = domain.VerifyMessageNotFound
		return res, nil
	}

	res.TicketID = ticket.ID
	res.Status = ticket.Status
	res.OwnerID = ticket.OwnerID
	if owner, err := s.repo.GetUser(ctx, ticket.OwnerID); err == nil {
		res.OwnerName = owner.Name
	}

	if ticket.EventID != eventID {
		res.Message = domain.VerifyMessageAnotherEvent
		return res, nil
	}

	if event, err := s.repo.GetEvent(ctx, eventID); err == nil {
		res.EventTitle = event.Title
	}

	switch ticket.Status {
	case domain.TicketStatusActive:
		res.Valid = true
		res.Message = domain.VerifyMessageOK
	case domain.TicketStatusUsed:
		res.Message = domain.VerifyMessageConsumed
	default:
		res.Message = domain.VerifyMessageTicketNotActive
	}
	return res, nil
}
