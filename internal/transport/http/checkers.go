package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/SviatoslavBeiar/Event-Planer/internal/domain"
)

// CheckerService is the minimal surface the checker-management endpoints need.
type CheckerService interface {
	GrantByEmail(ctx context.Context, eventID, organizerID, email string) (domain.CheckerGrant, error)
	RevokeByEmail(ctx context.Context, eventID, organizerID, email string) error
	IsChecker(ctx context.Context, eventID, userID string) (bool, error)
	ListForEvent(ctx context.Context, eventID, requesterID string) ([]domain.CheckerGrant, error)
	ListForUser(ctx context.Context, userID string) ([]domain.CheckerGrant, error)
}

type grantResponse struct {
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	UserEmail  string    `json:"user_email"`
	EventTitle string    `json:"event_title"`
	GrantedAt  time.Time `json:"granted_at"`
}

func toGrantResponse(g domain.CheckerGrant) grantResponse {
	return grantResponse{
		EventID:    g.EventID,
		UserID:     g.UserID,
		UserEmail:  g.UserEmail,
		EventTitle: g.EventTitle,
		GrantedAt:  g.GrantedAt,
	}
}

// HandleAssignChecker serves POST /event-checkers/assign-by-email/{eventId}?email=.
func HandleAssignChecker(svc CheckerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		eventID, ok := pathSuffix(r.URL.Path, "/event-checkers/assign-by-email/")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		id, ok := requireIdentity(w, r)
		if !ok {
			return
		}

		grant, err := svc.GrantByEmail(r.Context(), eventID, id.UserID, r.URL.Query().Get("email"))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(toGrantResponse(grant))
	}
}

// HandleRevokeChecker serves DELETE /event-checkers/revoke-by-email/{eventId}?email=.
func HandleRevokeChecker(svc CheckerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		eventID, ok := pathSuffix(r.URL.Path, "/event-checkers/revoke-by-email/")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		id, ok := requireIdentity(w, r)
		if !ok {
			return
		}

		if err := svc.RevokeByEmail(r.Context(), eventID, id.UserID, r.URL.Query().Get("email")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleCheckersByEvent serves GET /event-checkers/by-event/{eventId};
// organizer only.
func HandleCheckersByEvent(svc CheckerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		eventID, ok := pathSuffix(r.URL.Path, "/event-checkers/by-event/")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		id, ok := requireIdentity(w, r)
		if !ok {
			return
		}

		grants, err := svc.ListForEvent(r.Context(), eventID, id.UserID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeGrants(w, grants)
	}
}

// HandleAmIChecker serves GET /event-checkers/am-i-checker/{eventId}.
func HandleAmIChecker(svc CheckerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		eventID, ok := pathSuffix(r.URL.Path, "/event-checkers/am-i-checker/")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		id, ok := requireIdentity(w, r)
		if !ok {
			return
		}

		isChecker, err := svc.IsChecker(r.Context(), eventID, id.UserID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(isChecker)
	}
}

// HandleMyCheckerGrants serves GET /event-checkers/mine.
func HandleMyCheckerGrants(svc CheckerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		id, ok := requireIdentity(w, r)
		if !ok {
			return
		}

		grants, err := svc.ListForUser(r.Context(), id.UserID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeGrants(w, grants)
	}
}

func writeGrants(w http.ResponseWriter, grants []domain.CheckerGrant) {
	resp := make([]grantResponse, 0, len(grants))
	for _, g := range grants {
		resp = append(resp, toGrantResponse(g))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
