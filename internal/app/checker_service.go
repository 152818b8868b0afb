package app

import (
	"context"
	"strings"

	"github.com/SviatoslavBeiar/Event-Planer/internal/clock"
	"github.com/SviatoslavBeiar/Event-Planer/internal/domain"
)

type CheckerRepository interface {
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	CreateGrant(ctx context.Context, grant domain.CheckerGrant) error
	DeleteGrant(ctx context.Context, eventID, userID string) error
	IsChecker(ctx context.Context, eventID, userID string) (bool, error)
	ListGrantsByEvent(ctx context.Context, eventID string) ([]domain.CheckerGrant, error)
	ListGrantsByUser(ctx context.Context, userID string) ([]domain.CheckerGrant, error)
}

// CheckerService manages which accounts may verify tickets for an event.
// Grants and revokes are idempotent; only the organizer may change them.
type CheckerService struct {
	repo  CheckerRepository
	clock clock.Clock
}

func NewCheckerService(repo CheckerRepository, clk clock.Clock) *CheckerService {
	return &CheckerService{
		repo:  repo,
		clock: clk,
	}
}

func (s *CheckerService) GrantByEmail(ctx context.Context, eventID, organizerID, rawEmail string) (domain.CheckerGrant, error) {
	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return domain.CheckerGrant{}, err
	}

	event, err := s.requireOrganizer(ctx, eventID, organizerID)
	if err != nil {
		return domain.CheckerGrant{}, err
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.CheckerGrant{}, err
	}

	grant := domain.CheckerGrant{
		EventID:    eventID,
		UserID:     user.ID,
		UserEmail:  user.Email,
		EventTitle: event.Title,
		GrantedAt:  s.clock.Now(),
	}
	if err := s.repo.CreateGrant(ctx, grant); err != nil {
		return domain.CheckerGrant{}, err
	}
	return grant, nil
}

func (s *CheckerService) RevokeByEmail(ctx context.Context, eventID, organizerID, rawEmail string) error {
	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return err
	}

	if _, err := s.requireOrganizer(ctx, eventID, organizerID); err != nil {
		return err
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.repo.DeleteGrant(ctx, eventID, user.ID)
}

func (s *CheckerService) IsChecker(ctx context.Context, eventID, userID string) (bool, error) {
	return s.repo.IsChecker(ctx, eventID, userID)
}

// ListForEvent returns the event's grants; restricted to the organizer.
func (s *CheckerService) ListForEvent(ctx context.Context, eventID, requesterID string) ([]domain.CheckerGrant, error) {
	if _, err := s.requireOrganizer(ctx, eventID, requesterID); err != nil {
		return nil, err
	}
	return s.repo.ListGrantsByEvent(ctx, eventID)
}

// ListForUser returns the events the user may check.
func (s *CheckerService) ListForUser(ctx context.Context, userID string) ([]domain.CheckerGrant, error) {
	return s.repo.ListGrantsByUser(ctx, userID)
}

func (s *CheckerService) requireOrganizer(ctx context.Context, eventID, actorID string) (domain.Event, error) {
	event, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return domain.Event{}, err
	}
	if event.OrganizerID != actorID {
		return domain.Event{}, domain.ErrForbidden
	}
	return event, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", domain.ErrEmailRequired
	}
	return email, nil
}
