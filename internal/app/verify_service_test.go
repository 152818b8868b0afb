package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SviatoslavBeiar/Event-Planer/internal/clock"
	"github.com/SviatoslavBeiar/Event-Planer/internal/domain"
)

func TestNormalizeScan(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"bare code", "a1b2c3d4", "A1B2C3D4"},
		{"uppercase code untouched", "A1B2C3D4", "A1B2C3D4"},
		{"qr payload", "TICKET:event-1:a1b2c3d4", "A1B2C3D4"},
		{"qr payload lowercase prefix", "ticket:event-1:a1b2c3d4", "A1B2C3D4"},
		{"surrounding whitespace", "  TICKET:event-1:a1b2c3d4  ", "A1B2C3D4"},
		{"prefix without code segments", "TICKET:only", "TICKET:ONLY"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeScan(tc.raw); got != tc.want {
				t.Fatalf("NormalizeScan(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestVerifyService_Validate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

	makeSvc := func(repo *fakeVerifyRepo) *VerifyService {
		return NewVerifyService(repo, clock.NewFixed(now))
	}

	baseRepo := func() *fakeVerifyRepo {
		return newFakeVerifyRepo(
			[]domain.Event{
				{ID: "event-1", OrganizerID: "org-1", Title: "Go Meetup", Status: domain.EventStatusPublished},
				{ID: "event-2", OrganizerID: "org-2", Title: "Other", Status: domain.EventStatusPublished},
			},
			[]domain.Ticket{
				{ID: "ticket-1", Code: "AAAA1111", EventID: "event-1", OwnerID: "user-1", Status: domain.TicketStatusActive},
				{ID: "ticket-2", Code: "BBBB2222", EventID: "event-2", OwnerID: "user-2", Status: domain.TicketStatusActive},
			},
		)
	}

	t.Run("organizer validates active ticket", func(t *testing.T) {
		repo := baseRepo()
		repo.users["user-1"] = domain.User{ID: "user-1", Name: "User One"}
		svc := makeSvc(repo)

		res, err := svc.Validate(context.Background(), "event-1", "AAAA1111", "org-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !res.Valid {
			t.Fatalf("expected valid result: %+v", res)
		}
		if res.Message != domain.VerifyMessageOK {
			t.Fatalf("expected %s, got %s", domain.VerifyMessageOK, res.Message)
		}
		if res.TicketID != "ticket-1" || res.OwnerName != "User One" || res.EventTitle != "Go Meetup" {
			t.Fatalf("unexpected result: %+v", res)
		}
		if res.VerifiedAt != now {
			t.Fatalf("expected verified_at %v, got %v", now, res.VerifiedAt)
		}
	})

	t.Run("granted checker may validate", func(t *testing.T) {
		repo := baseRepo()
		repo.checkers["event-1|checker-1"] = true
		svc := makeSvc(repo)

		res, err := svc.Validate(context.Background(), "event-1", "AAAA1111", "checker-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !res.Valid {
			t.Fatalf("expected valid result: %+v", res)
		}
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		svc := makeSvc(baseRepo())

		_, err := svc.Validate(context.Background(), "event-1", "AAAA1111", "nobody")
		if err != domain.ErrForbidden {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("validate never mutates the ticket", func(t *testing.T) {
		repo := baseRepo()
		svc := makeSvc(repo)

		for i := 0; i < 3; i++ {
			res, err := svc.Validate(context.Background(), "event-1", "AAAA1111", "org-1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !res.Valid {
				t.Fatalf("expected repeat validate to stay valid, got %+v", res)
			}
		}
		if repo.tickets[0].Status != domain.TicketStatusActive {
			t.Fatalf("expected ticket still ACTIVE, got %s", repo.tickets[0].Status)
		}
	})

	t.Run("accepts full qr payload", func(t *testing.T) {
		svc := makeSvc(baseRepo())

		res, err := svc.Validate(context.Background(), "event-1", "TICKET:event-1:aaaa1111", "org-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !res.Valid || res.Code != "AAAA1111" {
			t.Fatalf("unexpected result: %+v", res)
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		svc := makeSvc(baseRepo())

		res, err := svc.Validate(context.Background(), "event-1", "ZZZZ9999", "org-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Valid {
			t.Fatalf("expected invalid result")
		}
		if res.Message != domain.VerifyMessageNotFound {
			t.Fatalf("expected %s, got %s", domain.VerifyMessageNotFound, res.Message)
		}
	})

	t.Run("ticket for another event", func(t *testing.T) {
		svc := makeSvc(baseRepo())

		res, err := svc.Validate(context.Background(), "event-1", "BBBB2222", "org-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Valid {
			t.Fatalf("expected invalid result")
		}
		if res.Message != domain.VerifyMessageAnotherEvent {
			t.Fatalf("expected %s, got %s", domain.VerifyMessageAnotherEvent, res.Message)
		}
		if res.TicketID != "ticket-2" {
			t.Fatalf("expected ticket id in result, got %q", res.TicketID)
		}
	})

	t.Run("used ticket reports consumed", func(t *testing.T) {
		repo := baseRepo()
		repo.tickets[0].Status = domain.TicketStatusUsed
		svc := makeSvc(repo)

		res, err := svc.Validate(context.Background(), "event-1", "AAAA1111", "org-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Valid {
			t.Fatalf("expected invalid result")
		}
		if res.Message != domain.VerifyMessageConsumed {
			t.Fatalf("expected %s, got %s", domain.VerifyMessageConsumed, res.Message)
		}
	})

	t.Run("cancelled ticket is not active", func(t *testing.T) {
		repo := baseRepo()
		repo.tickets[0].Status = domain.TicketStatusCancelled
		svc := makeSvc(repo)

		res, err := svc.Validate(context.Background(), "event-1", "AAAA1111", "org-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Valid {
			t.Fatalf("expected invalid result")
		}
		if res.Message != domain.VerifyMessageTicketNotActive {
			t.Fatalf("expected %s, got %s", domain.VerifyMessageTicketNotActive, res.Message)
		}
	})
}

func TestVerifyService_Consume(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

	makeRepo := func() *fakeVerifyRepo {
		return newFakeVerifyRepo(
			[]domain.Event{{ID: "event-1", OrganizerID: "org-1", Title: "Go Meetup", Status: domain.EventStatusPublished}},
			[]domain.Ticket{{ID: "ticket-1", Code: "AAAA1111", EventID: "event-1", OwnerID: "user-1", Status: domain.TicketStatusActive}},
		)
	}

	t.Run("first consume wins, second reports consumed", func(t *testing.T) {
		repo := makeRepo()
		svc := NewVerifyService(repo, clock.NewFixed(now))

		res, err := svc.Consume(context.Background(), "event-1", "AAAA1111", "org-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !res.Valid {
			t.Fatalf("expected valid result: %+v", res)
		}
		if res.Status != domain.TicketStatusUsed {
			t.Fatalf("expected status USED, got %s", res.Status)
		}
		if repo.tickets[0].UsedAt == nil || !repo.tickets[0].UsedAt.Equal(now) {
			t.Fatalf("expected used_at recorded: %+v", repo.tickets[0])
		}

		res, err = svc.Consume(context.Background(), "event-1", "AAAA1111", "org-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Valid {
			t.Fatalf("expected second consume invalid")
		}
		if res.Message != domain.VerifyMessageConsumed {
			t.Fatalf("expected %s, got %s", domain.VerifyMessageConsumed, res.Message)
		}
	})

	t.Run("stranger cannot consume", func(t *testing.T) {
		repo := makeRepo()
		svc := NewVerifyService(repo, clock.NewFixed(now))

		_, err := svc.Consume(context.Background(), "event-1", "AAAA1111", "nobody")
		if err != domain.ErrForbidden {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		if repo.tickets[0].Status != domain.TicketStatusActive {
			t.Fatalf("expected ticket untouched, got %s", repo.tickets[0].Status)
		}
	})

	t.Run("wrong event code is rejected without state change", func(t *testing.T) {
		repo := newFakeVerifyRepo(
			[]domain.Event{
				{ID: "event-1", OrganizerID: "org-1", Status: domain.EventStatusPublished},
				{ID: "event-2", OrganizerID: "org-1", Status: domain.EventStatusPublished},
			},
			[]domain.Ticket{{ID: "ticket-1", Code: "AAAA1111", EventID: "event-2", OwnerID: "user-1", Status: domain.TicketStatusActive}},
		)
		svc := NewVerifyService(repo, clock.NewFixed(now))

		res, err := svc.Consume(context.Background(), "event-1", "AAAA1111", "org-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Valid {
			t.Fatalf("expected invalid result")
		}
		if res.Message != domain.VerifyMessageAnotherEvent {
			t.Fatalf("expected %s, got %s", domain.VerifyMessageAnotherEvent, res.Message)
		}
		if repo.tickets[0].Status != domain.TicketStatusActive {
			t.Fatalf("expected ticket untouched, got %s", repo.tickets[0].Status)
		}
	})

	t.Run("concurrent consumes admit exactly once", func(t *testing.T) {
		repo := makeRepo()
		svc := NewVerifyService(repo, clock.NewFixed(now))

		const scanners = 8
		var wg sync.WaitGroup
		results := make([]domain.VerificationResult, scanners)
		errs := make([]error, scanners)
		for i := 0; i < scanners; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = svc.Consume(context.Background(), "event-1", "AAAA1111", "org-1")
			}(i)
		}
		wg.Wait()

		winners := 0
		for i := range results {
			if errs[i] != nil {
				t.Fatalf("unexpected error: %v", errs[i])
			}
			if results[i].Valid {
				winners++
			} else if results[i].Message != domain.VerifyMessageConsumed {
				t.Fatalf("expected loser message CONSUMED, got %s", results[i].Message)
			}
		}
		if winners != 1 {
			t.Fatalf("expected exactly one winner, got %d", winners)
		}
	})
}

type fakeVerifyRepo struct {
	mu       sync.Mutex
	events   map[string]domain.Event
	users    map[string]domain.User
	checkers map[string]bool
	tickets  []domain.Ticket
}

func newFakeVerifyRepo(events []domain.Event, tickets []domain.Ticket) *fakeVerifyRepo {
	e := make(map[string]domain.Event)
	for _, ev := range events {
		e[ev.ID] = ev
	}
	return &fakeVerifyRepo{
		events:   e,
		users:    make(map[string]domain.User),
		checkers: make(map[string]bool),
		tickets:  append([]domain.Ticket{}, tickets...),
	}
}

func (f *fakeVerifyRepo) GetEvent(_ context.Context, eventID string) (domain.Event, error) {
	event, ok := f.events[eventID]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return event, nil
}

func (f *fakeVerifyRepo) GetUser(_ context.Context, userID string) (domain.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeVerifyRepo) FindTicketByCode(_ context.Context, code string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tickets {
		tk := f.tickets[i]
		if tk.Code == code {
			return &tk, nil
		}
	}
	return nil, nil
}

func (f *fakeVerifyRepo) IsChecker(_ context.Context, eventID, userID string) (bool, error) {
	return f.checkers[eventID+"|"+userID], nil
}

// MarkUsed mimics the compare-and-set UPDATE: only one caller flips
// ACTIVE to USED.
func (f *fakeVerifyRepo) MarkUsed(_ context.Context, ticketID string, usedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tickets {
		if f.tickets[i].ID == ticketID && f.tickets[i].Status == domain.TicketStatusActive {
			f.tickets[i].Status = domain.TicketStatusUsed
			f.tickets[i].UsedAt = &usedAt
			return true, nil
		}
	}
	return false, nil
}
