package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appMeetup "github.com/campus-market/meetup-hub/internal/application/meetup"
	"github.com/campus-market/meetup-hub/internal/domain/audit"
	"github.com/campus-market/meetup-hub/internal/domain/meetup"
	"github.com/campus-market/meetup-hub/internal/domain/product"
)

type proposeMeetupRequest struct {
	ProductID string    `json:"productId" validate:"required"`
	BuyerID   string    `json:"buyerId,omitempty"`
	SellerID  string    `json:"sellerId" validate:"required"`
	Location  string    `json:"location,omitempty" validate:"max=200"`
	Date      time.Time `json:"date" validate:"required"`
}

type disputeRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type resolveRequest struct {
	Resolution string `json:"resolution" validate:"required,oneof=COMPLETED CANCELLED"`
	Note       string `json:"note,omitempty" validate:"max=500"`
}

func (s *Server) getMeetupLocation(w http.ResponseWriter, r *http.Request) {
	productID := strings.TrimSpace(chi.URLParam(r, "productId"))
	location, err := s.catalogSvc.DefaultMeetupLocation(r.Context(), productID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"productId": productID,
		"location":  location,
	})
}

func (s *Server) proposeMeetup(w http.ResponseWriter, r *http.Request) {
	var req proposeMeetupRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if strings.TrimSpace(req.Location) == "" {
		location, err := s.catalogSvc.DefaultMeetupLocation(r.Context(), req.ProductID)
		if err != nil && !errors.Is(err, product.ErrNotFound) {
			respondServiceError(w, err)
			return
		}
		req.Location = location
	}
	tx, err := s.coordinator.ProposeOrUpdateMeetup(r.Context(), actorFromContext(r.Context()), appMeetup.ProposeInput{
		ProductID: req.ProductID,
		BuyerID:   req.BuyerID,
		SellerID:  req.SellerID,
		Location:  req.Location,
		Date:      req.Date,
	})
	status := http.StatusOK
	if tx != nil && tx.Version == 1 {
		status = http.StatusCreated
	}
	respondTransaction(w, status, tx, err)
}

func (s *Server) retryNotification(w http.ResponseWriter, r *http.Request) {
	id, ok := transactionIDParam(w, r)
	if !ok {
		return
	}
	tx, err := s.coordinator.RetryNotification(r.Context(), actorFromContext(r.Context()), id)
	respondTransaction(w, http.StatusOK, tx, err)
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	// Due timers are applied first so the caller never sees a stale state.
	if _, err := s.monitor.EvaluateForParticipant(r.Context(), actor.ID); err != nil {
		s.logger.Warn().Err(err).Str("actor", actor.ID).Msg("failed to evaluate due transactions")
	}
	txs, err := s.meetupSvc.ListOpen(r.Context(), actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"transactions": txs})
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := transactionIDParam(w, r)
	if !ok {
		return
	}
	tx, err := s.meetupSvc.Get(r.Context(), actorFromContext(r.Context()), id)
	respondTransaction(w, http.StatusOK, tx, err)
}

func (s *Server) getTransactionHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := transactionIDParam(w, r)
	if !ok {
		return
	}
	if _, err := s.meetupSvc.Get(r.Context(), actorFromContext(r.Context()), id); err != nil {
		respondServiceError(w, err)
		return
	}
	logs, err := s.auditSvc.GetEntityHistory(r.Context(), audit.EntityTypeTransaction, id.String())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"history": logs})
}

func (s *Server) confirmTransaction(w http.ResponseWriter, r *http.Request) {
	s.transactionAction(w, r, s.meetupSvc.Confirm)
}

func (s *Server) cancelTransaction(w http.ResponseWriter, r *http.Request) {
	s.transactionAction(w, r, s.meetupSvc.Cancel)
}

func (s *Server) withdrawTransaction(w http.ResponseWriter, r *http.Request) {
	s.transactionAction(w, r, s.meetupSvc.Withdraw)
}

func (s *Server) completeTransaction(w http.ResponseWriter, r *http.Request) {
	s.transactionAction(w, r, s.meetupSvc.MarkCompleted)
}

func (s *Server) appealTransaction(w http.ResponseWriter, r *http.Request) {
	s.transactionAction(w, r, s.meetupSvc.Appeal)
}

func (s *Server) disputeTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := transactionIDParam(w, r)
	if !ok {
		return
	}
	var req disputeRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	tx, err := s.meetupSvc.Dispute(r.Context(), actorFromContext(r.Context()), id, req.Reason)
	respondTransaction(w, http.StatusOK, tx, err)
}

func (s *Server) resolveTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := transactionIDParam(w, r)
	if !ok {
		return
	}
	var req resolveRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	req.Resolution = strings.ToUpper(strings.TrimSpace(req.Resolution))
	if err := s.validate.StructCtx(r.Context(), req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	tx, err := s.meetupSvc.ResolveDispute(r.Context(), actorFromContext(r.Context()), id, meetup.Status(req.Resolution), req.Note)
	respondTransaction(w, http.StatusOK, tx, err)
}

type transactionOp func(ctx context.Context, actor meetup.Actor, id uuid.UUID) (*meetup.Transaction, error)

func (s *Server) transactionAction(w http.ResponseWriter, r *http.Request, op transactionOp) {
	id, ok := transactionIDParam(w, r)
	if !ok {
		return
	}
	tx, err := op(r.Context(), actorFromContext(r.Context()), id)
	respondTransaction(w, http.StatusOK, tx, err)
}

func transactionIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := parseUUIDParam(r, "transactionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", fmt.Sprintf("invalid transactionId: %v", err))
		return uuid.Nil, false
	}
	return id, true
}
