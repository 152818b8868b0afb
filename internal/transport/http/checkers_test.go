package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SviatoslavBeiar/Event-Planer/internal/domain"
)

func TestHandleAssignChecker(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	grant := domain.CheckerGrant{
		EventID:    "event-1",
		UserID:     "checker-1",
		UserEmail:  "checker@example.com",
		EventTitle: "Go Meetup",
		GrantedAt:  now,
	}

	tests := []struct {
		name           string
		target         string
		authed         bool
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			target:         "/event-checkers/assign-by-email/event-1?email=checker@example.com",
			authed:         true,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"user_email":"checker@example.com"`,
		},
		{
			name:           "unauthenticated",
			target:         "/event-checkers/assign-by-email/event-1?email=checker@example.com",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "not the organizer",
			target:         "/event-checkers/assign-by-email/event-1?email=checker@example.com",
			authed:         true,
			serviceErr:     domain.ErrForbidden,
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "missing email",
			target:         "/event-checkers/assign-by-email/event-1",
			authed:         true,
			serviceErr:     domain.ErrEmailRequired,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: `"code":"EMAIL_REQUIRED"`,
		},
		{
			name:           "unknown user",
			target:         "/event-checkers/assign-by-email/event-1?email=nobody@example.com",
			authed:         true,
			serviceErr:     domain.ErrUserNotFound,
			expectedStatus: http.StatusNotFound,
			expectedSubstr: `"code":"USER_NOT_FOUND"`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubCheckerService{grant: grant, err: tt.serviceErr}

			var req *http.Request
			if tt.authed {
				req = authedRequest(http.MethodPost, tt.target, "")
			} else {
				req = httptest.NewRequest(http.MethodPost, tt.target, nil)
			}
			rec := httptest.NewRecorder()

			HandleAssignChecker(svc).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d (%s)", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestHandleRevokeChecker(t *testing.T) {
	t.Parallel()

	t.Run("revoke returns no content", func(t *testing.T) {
		svc := &stubCheckerService{}
		rec := httptest.NewRecorder()

		HandleRevokeChecker(svc).ServeHTTP(rec, authedRequest(http.MethodDelete, "/event-checkers/revoke-by-email/event-1?email=checker@example.com", ""))

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		svc := &stubCheckerService{}
		rec := httptest.NewRecorder()

		HandleRevokeChecker(svc).ServeHTTP(rec, authedRequest(http.MethodPost, "/event-checkers/revoke-by-email/event-1?email=checker@example.com", ""))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("not the organizer", func(t *testing.T) {
		svc := &stubCheckerService{err: domain.ErrForbidden}
		rec := httptest.NewRecorder()

		HandleRevokeChecker(svc).ServeHTTP(rec, authedRequest(http.MethodDelete, "/event-checkers/revoke-by-email/event-1?email=checker@example.com", ""))

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})
}

func TestHandleCheckersByEvent(t *testing.T) {
	t.Parallel()

	t.Run("lists grants", func(t *testing.T) {
		svc := &stubCheckerService{grants: []domain.CheckerGrant{
			{EventID: "event-1", UserID: "checker-1", UserEmail: "a@example.com"},
			{EventID: "event-1", UserID: "checker-2", UserEmail: "b@example.com"},
		}}
		rec := httptest.NewRecorder()

		HandleCheckersByEvent(svc).ServeHTTP(rec, authedRequest(http.MethodGet, "/event-checkers/by-event/event-1", ""))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, "a@example.com") || !strings.Contains(body, "b@example.com") {
			t.Fatalf("unexpected body: %s", body)
		}
	})

	t.Run("empty list is a JSON array", func(t *testing.T) {
		svc := &stubCheckerService{}
		rec := httptest.NewRecorder()

		HandleCheckersByEvent(svc).ServeHTTP(rec, authedRequest(http.MethodGet, "/event-checkers/by-event/event-1", ""))

		if strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Fatalf("expected [], got %s", rec.Body.String())
		}
	})
}

func TestHandleAmIChecker(t *testing.T) {
	t.Parallel()

	for _, isChecker := range []bool{true, false} {
		svc := &stubCheckerService{isChecker: isChecker}
		rec := httptest.NewRecorder()

		HandleAmIChecker(svc).ServeHTTP(rec, authedRequest(http.MethodGet, "/event-checkers/am-i-checker/event-1", ""))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		want := "false"
		if isChecker {
			want = "true"
		}
		if strings.TrimSpace(rec.Body.String()) != want {
			t.Fatalf("expected %s, got %s", want, rec.Body.String())
		}
	}
}

func TestHandleMyCheckerGrants(t *testing.T) {
	t.Parallel()

	svc := &stubCheckerService{grants: []domain.CheckerGrant{
		{EventID: "event-1", UserID: "user-1", EventTitle: "Go Meetup"},
	}}
	rec := httptest.NewRecorder()

	HandleMyCheckerGrants(svc).ServeHTTP(rec, authedRequest(http.MethodGet, "/event-checkers/mine", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"event_title":"Go Meetup"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

type stubCheckerService struct {
	grant     domain.CheckerGrant
	grants    []domain.CheckerGrant
	isChecker bool
	err       error
}

func (s *stubCheckerService) GrantByEmail(_ context.Context, _, _, _ string) (domain.CheckerGrant, error) {
	return s.grant, s.err
}

func (s *stubCheckerService) RevokeByEmail(_ context.Context, _, _, _ string) error {
	return s.err
}

func (s *stubCheckerService) IsChecker(_ context.Context, _, _ string) (bool, error) {
	return s.isChecker, s.err
}

func (s *stubCheckerService) ListForEvent(_ context.Context, _, _ string) ([]domain.CheckerGrant, error) {
	return s.grants, s.err
}

func (s *stubCheckerService) ListForUser(_ context.Context, _ string) ([]domain.CheckerGrant, error) {
	return s.grants, s.err
}
