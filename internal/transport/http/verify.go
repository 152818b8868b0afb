package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/SviatoslavBeiar/Event-Planer/internal/domain"
)

// VerifyService is the minimal surface the gate endpoints need.
type VerifyService interface {
	Validate(ctx context.Context, eventID, code, actorID string) (domain.VerificationResult, error)
	Consume(ctx context.Context, eventID, code, actorID string) (domain.VerificationResult, error)
}

type verifyRequest struct {
	EventID string `json:"event_id"`
	Code    string `json:"code"`
}

func (r verifyRequest) validate() bool {
	return r.EventID != "" && r.Code != ""
}

type verifyResponse struct {
	Valid      bool      `json:"valid"`
	Message    string    `json:"message"`
	TicketID   string    `json:"ticket_id,omitempty"`
	Code       string    `json:"code"`
	Status     string    `json:"status,omitempty"`
	OwnerID    string    `json:"owner_id,omitempty"`
	OwnerName  string    `json:"owner_name,omitempty"`
	EventID    string    `json:"event_id"`
	EventTitle string    `json:"event_title,omitempty"`
	VerifiedAt time.Time `json:"verified_at"`
}

func toVerifyResponse(res domain.VerificationResult) verifyResponse {
	return verifyResponse{
		Valid:      res.Valid,
		Message:    res.Message,
		TicketID:   res.TicketID,
		Code:       res.Code,
		Status:     string(res.Status),
		OwnerID:    res.OwnerID,
		OwnerName:  res.OwnerName,
		EventID:    res.EventID,
		EventTitle: res.EventTitle,
		VerifiedAt: res.VerifiedAt,
	}
}

// HandleValidate serves POST /tickets/verify/validate. Side-effect free;
// checkers may re-scan the same code any number of times.
func HandleValidate(svc VerifyService) http.HandlerFunc {
	return verifyHandler(svc.Validate)
}

// HandleConsume serves POST /tickets/verify/consume.
func HandleConsume(svc VerifyService) http.HandlerFunc {
	return verifyHandler(svc.Consume)
}

func verifyHandler(op func(ctx context.Context, eventID, code, actorID string) (domain.VerificationResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		id, ok := requireIdentity(w, r)
		if !ok {
			return
		}

		var req verifyRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil || !req.validate() {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		res, err := op(r.Context(), req.EventID, req.Code, id.UserID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toVerifyResponse(res))
	}
}
