package app

import (
	"context"
	"time"

	"github.com/SviatoslavBeiar/Event-Planer/internal/clock"
	"github.com/SviatoslavBeiar/Event-Planer/internal/domain"
)

type TicketRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
	GetEventForUpdate(ctx context.Context, eventID string) (domain.Event, error)
	GetUser(ctx context.Context, userID string) (domain.User, error)
	FindTicket(ctx context.Context, eventID, ownerID string) (*domain.Ticket, error)
	FindTicketByCode(ctx context.Context, code string) (*domain.Ticket, error)
	ListTicketsByOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error)
	GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error)
	CountSeats(ctx context.Context, eventID string) (int, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	CreateTicket(ctx context.Context, ticket domain.Ticket) error
	MarkUsed(ctx context.Context, ticketID string, usedAt time.Time) (bool, error)
	CancelTicket(ctx context.Context, ticketID string) (bool, error)
}

// TicketMailer delivers the ticket to its owner after issuance. Failures are
// the sender's problem; issuance never depends on them.
type TicketMailer interface {
	SendTicket(ctx context.Context, to string, ticket domain.Ticket, eventTitle string) error
}

type TicketService struct {
	repo   TicketRepository
	mailer TicketMailer
	clock  clock.Clock
}

func NewTicketService(repo TicketRepository, mailer TicketMailer, clk clock.Clock) *TicketService {
	return &TicketService{
		repo:   repo,
		mailer: mailer,
		clock:  clk,
	}
}

const codeGenAttempts = 5

// checkRegistrationOpen maps the event's catalog state to the admission
// failure kinds. Draft and cancelled events never admit; the sales window
// only bounds events that define one.
func checkRegistrationOpen(e domain.Event, now time.Time) error {
	switch e.Status {
	case domain.EventStatusCancelled:
		return domain.ErrEventCancelled
	case domain.EventStatusPublished:
	default:
		return domain.ErrEventNotPublished
	}
	if e.SalesStartAt != nil && e.SalesStartAt.After(now) {
		return domain.ErrSalesNotStarted
	}
	if e.SalesEndAt != nil && e.SalesEndAt.Before(now) {
		return domain.ErrSalesEnded
	}
	return nil
}

// Register grants a free ticket. Paid events must go through checkout.
func (s *TicketService) Register(ctx context.Context, eventID, ownerID string) (domain.Ticket, error) {
	var result domain.Ticket

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		event, err := s.repo.GetEventForUpdate(txCtx, eventID)
		if err != nil {
			return err
		}
		if event.Paid && event.PriceCents > 0 {
			return domain.ErrPaymentRequired
		}

		ticket, err := s.issueLocked(txCtx, event, ownerID, IssueMeta{})
		if err != nil {
			return err
		}
		result = ticket
		return nil
	})
	if err != nil {
		return domain.Ticket{}, err
	}

	s.sendTicketMail(ctx, result)
	return result, nil
}

// IssueMeta carries the provider references recorded on paid tickets.
type IssueMeta struct {
	PaymentIntentID   string
	CheckoutSessionID string
}

// IssuePaid reserves a seat and mints a ticket for a settled payment. It
// joins the caller's transaction when one is already open on the context,
// which is how the payment reconciler keeps session and ticket writes atomic.
func (s *TicketService) IssuePaid(ctx context.Context, eventID, ownerID string, meta IssueMeta) (domain.Ticket, error) {
	var result domain.Ticket

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		event, err := s.repo.GetEventForUpdate(txCtx, eventID)
		if err != nil {
			return err
		}
		ticket, err := s.issueLocked(txCtx, event, ownerID, meta)
		if err != nil {
			return err
		}
		result = ticket
		return nil
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	return result, nil
}

// issueLocked is the sole admission-control point: it runs with the event
// row locked, so the capacity check and the ticket insert are indivisible
// with respect to concurrent reservations for the same event.
func (s *TicketService) issueLocked(txCtx context.Context, event domain.Event, ownerID string, meta IssueMeta) (domain.Ticket, error) {
	now := s.clock.Now()

	if existing, err := s.repo.FindTicket(txCtx, event.ID, ownerID); err != nil {
		return domain.Ticket{}, err
	} else if existing != nil {
		return domain.Ticket{}, domain.ErrAlreadyRegistered
	}

	if err := checkRegistrationOpen(event, now); err != nil {
		return domain.Ticket{}, err
	}

	if event.Capacity != nil {
		sold, err := s.repo.CountSeats(txCtx, event.ID)
		if err != nil {
			return domain.Ticket{}, err
		}
		if sold >= *event.Capacity {
			return domain.Ticket{}, domain.ErrCapacityFull
		}
	}

	code, err := s.uniqueCode(txCtx)
	if err != nil {
		return domain.Ticket{}, err
	}

	ticket := domain.Ticket{
		ID:                newID(),
		Code:              code,
		EventID:           event.ID,
		OwnerID:           ownerID,
		Status:            domain.TicketStatusActive,
		PaymentIntentID:   meta.PaymentIntentID,
		CheckoutSessionID: meta.CheckoutSessionID,
		CreatedAt:         now,
	}
	if err := s.repo.CreateTicket(txCtx, ticket); err != nil {
		return domain.Ticket{}, err
	}
	return ticket, nil
}

func (s *TicketService) uniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < codeGenAttempts; i++ {
		code := newTicketCode()
		exists, err := s.repo.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	// Five collisions in 64 random bits means something is very wrong with
	// the generator; a raw UUID keeps issuance alive regardless.
	return newTicketCode(), nil
}

func (s *TicketService) sendTicketMail(ctx context.Context, ticket domain.Ticket) {
	if s.mailer == nil {
		return
	}
	owner, err := s.repo.GetUser(ctx, ticket.OwnerID)
	if err != nil {
		return
	}
	event, err := s.repo.GetEvent(ctx, ticket.EventID)
	if err != nil {
		return
	}
	// Best effort: the sender logs its own failures.
	_ = s.mailer.SendTicket(ctx, owner.Email, ticket, event.Title)
}

// GetMine returns the caller's ticket for one event.
func (s *TicketService) GetMine(ctx context.Context, eventID, ownerID string) (domain.Ticket, error) {
	ticket, err := s.repo.FindTicket(ctx, eventID, ownerID)
	if err != nil {
		return domain.Ticket{}, err
	}
	if ticket == nil {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	return *ticket, nil
}

// ListMine returns all of the caller's tickets across events, newest first.
func (s *TicketService) ListMine(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	return s.repo.ListTicketsByOwner(ctx, ownerID)
}

// Availability derives the seat view from the live count; no caching, so it
// reflects every reservation and release immediately.
func (s *TicketService) Availability(ctx context.Context, eventID string) (domain.Availability, error) {
	event, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return domain.Availability{}, err
	}
	sold, err := s.repo.CountSeats(ctx, eventID)
	if err != nil {
		return domain.Availability{}, err
	}

	av := domain.Availability{Capacity: event.Capacity, Sold: sold}
	if event.Capacity != nil {
		remaining := *event.Capacity - sold
		if remaining < 0 {
			remaining = 0
		}
		av.Remaining = &remaining
	}
	return av, nil
}

// Cancel voids an active ticket. Only the owner or the event's organizer may
// cancel; the seat is released implicitly because cancelled tickets no
// longer count against capacity.
func (s *TicketService) Cancel(ctx context.Context, ticketID, actorID string) error {
	ticket, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	event, err := s.repo.GetEvent(ctx, ticket.EventID)
	if err != nil {
		return err
	}
	if actorID != ticket.OwnerID && actorID != event.OrganizerID {
		return domain.ErrForbidden
	}

	cancelled, err := s.repo.CancelTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if !cancelled {
		return domain.ErrTicketNotActive
	}
	return nil
}
