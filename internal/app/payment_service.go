package app

import (
	"context"
	"errors"
	"time"

	"github.com/SviatoslavBeiar/Event-Planer/internal/clock"
	"github.com/SviatoslavBeiar/Event-Planer/internal/domain"
)

type PaymentRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
	FindTicket(ctx context.Context, eventID, ownerID string) (*domain.Ticket, error)
	GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error)
	CountSeats(ctx context.Context, eventID string) (int, error)
	CreateSession(ctx context.Context, session domain.PaymentSession) error
	GetSessionForUpdate(ctx context.Context, sessionID string) (domain.PaymentSession, error)
	UpdateSession(ctx context.Context, session domain.PaymentSession) error
	ExpireStaleSessions(ctx context.Context, before time.Time) (int64, error)
}

// CheckoutProvider is the payment collaborator. Calls may block on provider
// latency, so the reconciler never invokes them while holding row locks.
type CheckoutProvider interface {
	CreateCheckout(ctx context.Context, in CheckoutInput) (Checkout, error)
	CheckoutStatus(ctx context.Context, sessionID string) (CheckoutStatus, error)
}

type CheckoutInput struct {
	EventID     string
	BuyerID     string
	EventTitle  string
	AmountCents int64
	Currency    string
}

type Checkout struct {
	SessionID string
	URL       string
}

type CheckoutStatus struct {
	Paid            bool
	PaymentIntentID string
}

// TicketIssuer mints the ticket for a settled payment inside the
// reconciler's transaction.
type TicketIssuer interface {
	IssuePaid(ctx context.Context, eventID, ownerID string, meta IssueMeta) (domain.Ticket, error)
}

// PaymentService turns asynchronous payment confirmations into exactly one
// issued ticket per session. Confirmation is idempotent under duplicate
// provider signals and under the webhook/polling overlap.
type PaymentService struct {
	repo       PaymentRepository
	provider   CheckoutProvider
	issuer     TicketIssuer
	clock      clock.Clock
	sessionTTL time.Duration
}

const defaultSessionTTL = 24 * time.Hour

func NewPaymentService(repo PaymentRepository, provider CheckoutProvider, issuer TicketIssuer, clk clock.Clock, opts ...PaymentServiceOption) *PaymentService {
	svc := &PaymentService{
		repo:       repo,
		provider:   provider,
		issuer:     issuer,
		clock:      clk,
		sessionTTL: defaultSessionTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type PaymentServiceOption func(*PaymentService)

// WithSessionTTL overrides how long a pending session may wait for its
// confirmation before the sweep expires it.
func WithSessionTTL(d time.Duration) PaymentServiceOption {
	return func(s *PaymentService) {
		if d > 0 {
			s.sessionTTL = d
		}
	}
}

// CreateSession opens a checkout with the provider. Availability is checked
// eagerly so obviously doomed purchases fail before money moves; no seat is
// reserved yet, reservation happens only at confirmation.
func (s *PaymentService) CreateSession(ctx context.Context, eventID, buyerID string) (Checkout, error) {
	event, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return Checkout{}, err
	}
	if !event.Paid || event.PriceCents <= 0 {
		return Checkout{}, domain.ErrEventFree
	}
	if err := checkRegistrationOpen(event, s.clock.Now()); err != nil {
		return Checkout{}, err
	}

	if existing, err := s.repo.FindTicket(ctx, eventID, buyerID); err != nil {
		return Checkout{}, err
	} else if existing != nil {
		return Checkout{}, domain.ErrAlreadyRegistered
	}

	if event.Capacity != nil {
		sold, err := s.repo.CountSeats(ctx, eventID)
		if err != nil {
			return Checkout{}, err
		}
		if sold >= *event.Capacity {
			return Checkout{}, domain.ErrCapacityFull
		}
	}

	checkout, err := s.provider.CreateCheckout(ctx, CheckoutInput{
		EventID:     eventID,
		BuyerID:     buyerID,
		EventTitle:  event.Title,
		AmountCents: event.PriceCents,
		Currency:    event.Currency,
	})
	if err != nil {
		return Checkout{}, err
	}

	now := s.clock.Now()
	session := domain.PaymentSession{
		ID:        checkout.SessionID,
		EventID:   eventID,
		BuyerID:   buyerID,
		Status:    domain.SessionStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return Checkout{}, err
	}
	return checkout, nil
}

// Confirm reconciles a settled payment into a ticket. Safe to call from the
// provider webhook and from client polling at the same time: the session row
// lock serializes them and a session already ISSUED simply returns its
// ticket. Losing the capacity race against other buyers expires the session
// and flags the payment for refund by the external collaborator.
func (s *PaymentService) Confirm(ctx context.Context, sessionID, paymentIntentID string) (domain.Ticket, error) {
	var (
		result  domain.Ticket
		soldOut bool
	)

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		session, err := s.repo.GetSessionForUpdate(txCtx, sessionID)
		if err != nil {
			return err
		}

		switch session.Status {
		case domain.SessionStatusIssued:
			ticket, err := s.repo.GetTicket(txCtx, session.TicketID)
			if err != nil {
				return err
			}
			result = ticket
			return nil
		case domain.SessionStatusExpired:
			return domain.ErrSessionExpired
		}

		now := s.clock.Now()
		session.Status = domain.SessionStatusConfirmed
		if paymentIntentID != "" {
			session.PaymentIntentID = paymentIntentID
		}
		session.UpdatedAt = now

		ticket, err := s.issuer.IssuePaid(txCtx, session.EventID, session.BuyerID, IssueMeta{
			PaymentIntentID:   session.PaymentIntentID,
			CheckoutSessionID: session.ID,
		})
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrAlreadyRegistered):
			// The buyer already holds a ticket (duplicate signal racing on
			// another path, or a free grant); attach it instead of minting.
			existing, ferr := s.repo.FindTicket(txCtx, session.EventID, session.BuyerID)
			if ferr != nil {
				return ferr
			}
			if existing == nil {
				return err
			}
			ticket = *existing
		case errors.Is(err, domain.ErrCapacityFull):
			session.Status = domain.SessionStatusExpired
			session.RefundRequired = true
			soldOut = true
			return s.repo.UpdateSession(txCtx, session)
		default:
			return err
		}

		session.Status = domain.SessionStatusIssued
		session.TicketID = ticket.ID
		if err := s.repo.UpdateSession(txCtx, session); err != nil {
			return err
		}
		result = ticket
		return nil
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	if soldOut {
		return domain.Ticket{}, domain.ErrCapacityFull
	}
	return result, nil
}

// ConfirmFromPoll is the polling fallback: it asks the provider whether the
// session is paid before reconciling, so an unpaid session can never be
// confirmed from the client side.
func (s *PaymentService) ConfirmFromPoll(ctx context.Context, sessionID string) (domain.Ticket, error) {
	status, err := s.provider.CheckoutStatus(ctx, sessionID)
	if err != nil {
		return domain.Ticket{}, err
	}
	if !status.Paid {
		return domain.Ticket{}, domain.ErrNotYetIssued
	}
	return s.Confirm(ctx, sessionID, status.PaymentIntentID)
}

// GetIssuedTicket is the cheap read the client polls after checkout.
func (s *PaymentService) GetIssuedTicket(ctx context.Context, eventID, buyerID string) (domain.Ticket, error) {
	ticket, err := s.repo.FindTicket(ctx, eventID, buyerID)
	if err != nil {
		return domain.Ticket{}, err
	}
	if ticket == nil {
		return domain.Ticket{}, domain.ErrNotYetIssued
	}
	return *ticket, nil
}

// ExpireStale moves abandoned PENDING sessions to EXPIRED. No seat is
// released because none is reserved before confirmation.
func (s *PaymentService) ExpireStale(ctx context.Context) (int64, error) {
	return s.repo.ExpireStaleSessions(ctx, s.clock.Now().Add(-s.sessionTTL))
}
