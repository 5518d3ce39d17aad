package services

import (
	"errors"
	"net/http"
)

// Domain errors raised by the economy, moderation and content lifecycle
// services. Handlers map them to client-visible status codes with
// SendDomainError.
var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrGiftNotFound          = errors.New("gift not found")
	ErrForbidden             = errors.New("forbidden")
	ErrNotFound              = errors.New("not found")
	ErrChannelNotFound       = errors.New("channel not found")
	ErrLastChannelIsNotEmpty = errors.New("last channel is not empty")
	ErrDiscussionClosed      = errors.New("discussion is closed")
)

// SendDomainError maps a domain error to an HTTP error response. Unknown
// errors are reported as internal failures without leaking details.
func SendDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		SendErrorResponse(w, "Insufficient balance", http.StatusBadRequest, nil)
	case errors.Is(err, ErrGiftNotFound):
		SendErrorResponse(w, "Gift not found", http.StatusNotFound, nil)
	case errors.Is(err, ErrForbidden):
		SendErrorResponse(w, "Forbidden", http.StatusForbidden, nil)
	case errors.Is(err, ErrNotFound):
		SendErrorResponse(w, "Not found", http.StatusNotFound, nil)
	case errors.Is(err, ErrChannelNotFound):
		SendErrorResponse(w, "Destination channel not found", http.StatusNotFound, nil)
	case errors.Is(err, ErrLastChannelIsNotEmpty):
		SendErrorResponse(w, "Last channel still has discussions", http.StatusConflict, nil)
	case errors.Is(err, ErrDiscussionClosed):
		SendErrorResponse(w, "Discussion is closed", http.StatusConflict, nil)
	default:
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
	}
}
