package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/SviatoslavBeiar/Event-Planer/internal/domain"
)

// TicketService is the minimal surface the ticket endpoints need.
type TicketService interface {
	Register(ctx context.Context, eventID, ownerID string) (domain.Ticket, error)
	GetMine(ctx context.Context, eventID, ownerID string) (domain.Ticket, error)
	ListMine(ctx context.Context, ownerID string) ([]domain.Ticket, error)
	Availability(ctx context.Context, eventID string) (domain.Availability, error)
	Cancel(ctx context.Context, ticketID, actorID string) error
}

type ticketResponse struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	EventID   string     `json:"event_id"`
	OwnerID   string     `json:"owner_id"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

func toTicketResponse(t domain.Ticket) ticketResponse {
	return ticketResponse{
		ID:        t.ID,
		Code:      t.Code,
		EventID:   t.EventID,
		OwnerID:   t.OwnerID,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
		UsedAt:    t.UsedAt,
	}
}

// HandleRegister serves POST /tickets/register/{eventId} (free events).
func HandleRegister(svc TicketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		eventID, ok := pathSuffix(r.URL.Path, "/tickets/register/")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		id, ok := requireIdentity(w, r)
		if !ok {
			return
		}

		ticket, err := svc.Register(r.Context(), eventID, id.UserID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(toTicketResponse(ticket))
	}
}

// HandleMyTicket serves GET /tickets/my/{eventId}; 404 NOT_FOUND until a
// ticket exists, which makes it the post-payment polling target.
func HandleMyTicket(svc TicketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		eventID, ok := pathSuffix(r.URL.Path, "/tickets/my/")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		id, ok := requireIdentity(w, r)
		if !ok {
			return
		}

		ticket, err := svc.GetMine(r.Context(), eventID, id.UserID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toTicketResponse(ticket))
	}
}

// HandleMyTickets serves GET /tickets/mine across events, newest first.
func HandleMyTickets(svc TicketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		id, ok := requireIdentity(w, r)
		if !ok {
			return
		}

		tickets, err := svc.ListMine(r.Context(), id.UserID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]ticketResponse, 0, len(tickets))
		for _, t := range tickets {
			resp = append(resp, toTicketResponse(t))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type availabilityResponse struct {
	Capacity  *int `json:"capacity"`
	Sold      int  `json:"sold"`
	Remaining *int `json:"remaining,omitempty"`
}

// HandleAvailability serves GET /tickets/availability/{eventId}.
func HandleAvailability(svc TicketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		eventID, ok := pathSuffix(r.URL.Path, "/tickets/availability/")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		av, err := svc.Availability(r.Context(), eventID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(availabilityResponse{
			Capacity:  av.Capacity,
			Sold:      av.Sold,
			Remaining: av.Remaining,
		})
	}
}

// HandleCancelTicket serves DELETE /tickets/cancel/{ticketId}. Owner or
// event organizer only; the seat is released immediately.
func HandleCancelTicket(svc TicketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		ticketID, ok := pathSuffix(r.URL.Path, "/tickets/cancel/")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		id, ok := requireIdentity(w, r)
		if !ok {
			return
		}

		if err := svc.Cancel(r.Context(), ticketID, id.UserID); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// pathSuffix extracts the single path segment after prefix.
func pathSuffix(path, prefix string) (string, bool) {
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}
