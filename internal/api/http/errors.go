package httpapi

import (
	"errors"
	"net/http"

	"github.com/campus-market/meetup-hub/internal/domain/chat"
	"github.com/campus-market/meetup-hub/internal/domain/meetup"
	"github.com/campus-market/meetup-hub/internal/domain/product"
)

// respondServiceError maps service errors onto HTTP status codes. Order
// matters: ErrConversationClosed wraps ErrInvalidTransition.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, meetup.ErrValidation):
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
	case errors.Is(err, meetup.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
	case errors.Is(err, meetup.ErrUnauthorized), errors.Is(err, chat.ErrNotParticipant):
		respondError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, meetup.ErrNotFound), errors.Is(err, chat.ErrConversationNotFound), errors.Is(err, product.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, meetup.ErrConversationClosed):
		respondError(w, http.StatusConflict, "CONVERSATION_CLOSED", err.Error())
	case errors.Is(err, meetup.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "INVALID_STATE", err.Error())
	case errors.Is(err, meetup.ErrConcurrencyConflict):
		respondError(w, http.StatusConflict, "CONFLICT", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

type transactionResponse struct {
	Transaction *meetup.Transaction `json:"transaction"`
	Warning     *warning            `json:"warning,omitempty"`
}

type warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondTransaction writes the stored record of a write. A write whose
// counterparty notification failed is still persisted and answers 202.
func respondTransaction(w http.ResponseWriter, status int, tx *meetup.Transaction, err error) {
	var nf *meetup.NotificationFailedError
	if errors.As(err, &nf) {
		respondJSON(w, http.StatusAccepted, transactionResponse{
			Transaction: nf.Transaction,
			Warning:     &warning{Code: "NOTIFICATION_FAILED", Message: nf.Error()},
		})
		return
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, status, transactionResponse{Transaction: tx})
}
