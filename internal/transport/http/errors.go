package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/SviatoslavBeiar/Event-Planer/internal/domain"
)

// Stable outcome codes, surfaced verbatim so clients can branch on them.
const (
	codeEventNotFound      = "EVENT_NOT_FOUND"
	codeEventNotPublished  = "EVENT_NOT_PUBLISHED"
	codeEventCancelled     = "EVENT_CANCELLED"
	codeSalesNotStarted    = "SALES_NOT_STARTED"
	codeSalesEnded         = "SALES_ENDED"
	codeCapacityFull       = "CAPACITY_FULL"
	codeAlreadyRegistered  = "ALREADY_REGISTERED"
	codePaymentRequired    = "PAYMENT_REQUIRED"
	codeEventFree          = "EVENT_IS_FREE"
	codeTicketNotFound     = "TICKET_NOT_FOUND"
	codeTicketAnotherEvent = "TICKET_FOR_ANOTHER_EVENT"
	codeTicketNotActive    = "TICKET_NOT_ACTIVE"
	codeSessionNotFound    = "SESSION_NOT_FOUND"
	codeSessionExpired     = "SESSION_EXPIRED"
	codeNotYetIssued       = "NOT_YET_ISSUED"
	codeUserNotFound       = "USER_NOT_FOUND"
	codeEmailRequired      = "EMAIL_REQUIRED"
	codeForbidden          = "FORBIDDEN"
	codeInvalidID          = "INVALID_ID"
	codeUnauthorized       = "UNAUTHORIZED"
	codeNotFound           = "NOT_FOUND"
	codeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	codeInvalidRequestBody = "INVALID_REQUEST_BODY"
	codeInternalError      = "INTERNAL_ERROR"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"INTERNAL_ERROR"}`))
		return
	}
	_, _ = w.Write(payload)
}

var domainErrorCodes = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrEventNotFound, http.StatusNotFound, codeEventNotFound},
	{domain.ErrEventNotPublished, http.StatusConflict, codeEventNotPublished},
	{domain.ErrEventCancelled, http.StatusConflict, codeEventCancelled},
	{domain.ErrSalesNotStarted, http.StatusConflict, codeSalesNotStarted},
	{domain.ErrSalesEnded, http.StatusConflict, codeSalesEnded},
	{domain.ErrCapacityFull, http.StatusConflict, codeCapacityFull},
	{domain.ErrAlreadyRegistered, http.StatusConflict, codeAlreadyRegistered},
	{domain.ErrPaymentRequired, http.StatusPaymentRequired, codePaymentRequired},
	{domain.ErrEventFree, http.StatusBadRequest, codeEventFree},
	{domain.ErrTicketNotFound, http.StatusNotFound, codeTicketNotFound},
	{domain.ErrTicketForAnotherEvent, http.StatusConflict, codeTicketAnotherEvent},
	{domain.ErrTicketNotActive, http.StatusConflict, codeTicketNotActive},
	{domain.ErrSessionNotFound, http.StatusNotFound, codeSessionNotFound},
	{domain.ErrSessionExpired, http.StatusConflict, codeSessionExpired},
	{domain.ErrNotYetIssued, http.StatusNotFound, codeNotYetIssued},
	{domain.ErrUserNotFound, http.StatusNotFound, codeUserNotFound},
	{domain.ErrEmailRequired, http.StatusBadRequest, codeEmailRequired},
	{domain.ErrForbidden, http.StatusForbidden, codeForbidden},
	{domain.ErrInvalidID, http.StatusBadRequest, codeInvalidID},
}

// writeDomainError maps the business-outcome taxonomy to HTTP; anything
// outside it is a fault and reported generically.
func writeDomainError(w http.ResponseWriter, err error) {
	for _, m := range domainErrorCodes {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, m.err.Error())
			return
		}
	}
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
