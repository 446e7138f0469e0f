package meetup

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/campus-market/meetup-hub/internal/domain/audit"
	"github.com/campus-market/meetup-hub/internal/domain/chat"
	"github.com/campus-market/meetup-hub/internal/domain/meetup"
)

// RoleModerator is the account role allowed to resolve disputes.
const RoleModerator = "MODERATOR"

// Service applies user-driven and timer-driven lifecycle transitions. Each
// transition is decided by the machine on a private copy, persisted through
// the store, then announced to the counterparty.
type Service struct {
	store    *Store
	machine  *meetup.Machine
	notifier Notifier
	audit    AuditLogger
	clock    meetup.Clock
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewService creates a new meetup service
func NewService(store *Store, machine *meetup.Machine, notifier Notifier, auditLogger AuditLogger, clock meetup.Clock, logger zerolog.Logger) *Service {
	if clock == nil {
		clock = meetup.SystemClock{}
	}
	return &Service{
		store:    store,
		machine:  machine,
		notifier: notifier,
		audit:    auditLogger,
		clock:    clock,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With().Str("service", "meetup").Logger(),
	}
}

// Policy returns the lifecycle windows in effect.
func (s *Service) Policy() meetup.Policy {
	return s.machine.Policy()
}

// Get returns a transaction visible to actor.
func (s *Service) Get(ctx context.Context, actor meetup.Actor, id uuid.UUID) (*meetup.Transaction, error) {
	if actor.ID == "" {
		return nil, meetup.ErrUnauthenticated
	}
	tx, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, ok := tx.RoleOf(actor.ID); !ok && !isModerator(actor) {
		return nil, meetup.ErrUnauthorized
	}
	return tx, nil
}

// ListOpen returns the actor's open transactions.
func (s *Service) ListOpen(ctx context.Context, actor meetup.Actor) ([]*meetup.Transaction, error) {
	if actor.ID == "" {
		return nil, meetup.ErrUnauthenticated
	}
	return s.store.FindOpenForParticipant(ctx, actor.ID)
}

func (s *Service) Confirm(ctx context.Context, actor meetup.Actor, id uuid.UUID) (*meetup.Transaction, error) {
	return s.transition(ctx, "confirm", actor, id, func(tx *meetup.Transaction) (*meetup.Outcome, error) {
		return s.machine.Confirm(tx, actor.ID, s.clock.Now())
	})
}

func (s *Service) Cancel(ctx context.Context, actor meetup.Actor, id uuid.UUID) (*meetup.Transaction, error) {
	return s.transition(ctx, "cancel", actor, id, func(tx *meetup.Transaction) (*meetup.Outcome, error) {
		return s.machine.Cancel(tx, actor.ID, s.clock.Now())
	})
}

func (s *Service) Withdraw(ctx context.Context, actor meetup.Actor, id uuid.UUID) (*meetup.Transaction, error) {
	return s.transition(ctx, "withdraw", actor, id, func(tx *meetup.Transaction) (*meetup.Outcome, error) {
		return s.machine.Withdraw(tx, actor.ID, s.clock.Now())
	})
}

func (s *Service) Dispute(ctx context.Context, actor meetup.Actor, id uuid.UUID, reason string) (*meetup.Transaction, error) {
	return s.transition(ctx, "dispute", actor, id, func(tx *meetup.Transaction) (*meetup.Outcome, error) {
		return s.machine.Dispute(tx, actor.ID, reason, s.clock.Now())
	})
}

func (s *Service) MarkCompleted(ctx context.Context, actor meetup.Actor, id uuid.UUID) (*meetup.Transaction, error) {
	return s.transition(ctx, "mark_completed", actor, id, func(tx *meetup.Transaction) (*meetup.Outcome, error) {
		return s.machine.MarkCompleted(tx, actor.ID, s.clock.Now())
	})
}

func (s *Service) Appeal(ctx context.Context, actor meetup.Actor, id uuid.UUID) (*meetup.Transaction, error) {
	return s.transition(ctx, "appeal", actor, id, func(tx *meetup.Transaction) (*meetup.Outcome, error) {
		return s.machine.Appeal(tx, actor.ID, s.clock.Now())
	})
}

// ResolveDispute closes a disputed transaction as completed or cancelled.
func (s *Service) ResolveDispute(ctx context.Context, actor meetup.Actor, id uuid.UUID, resolution meetup.Status, note string) (*meetup.Transaction, error) {
	if actor.ID == "" {
		return nil, meetup.ErrUnauthenticated
	}
	if !isModerator(actor) {
		return nil, fmt.Errorf("%w: moderator role required", meetup.ErrUnauthorized)
	}

	before, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	fields, err := s.machine.Resolve(before, resolution, s.clock.Now())
	if err != nil {
		s.recordError("resolve", err)
		return nil, err
	}
	tx, err := s.store.SetStatus(ctx, id, resolution, fields, meetup.StatusDisputed)
	if err != nil {
		s.recordError("resolve", err)
		return nil, err
	}
	out := &meetup.Outcome{
		Event: meetup.EventResolve,
		Actor: actor.ID,
		From:  before.Status,
		To:    tx.Status,
		Notices: []meetup.Notice{
			{Kind: meetup.NoticeResolved, SenderID: meetup.SystemActor, ReceiverID: tx.BuyerID},
			{Kind: meetup.NoticeResolved, SenderID: meetup.SystemActor, ReceiverID: tx.SellerID},
		},
	}
	return s.finish(ctx, actor, audit.ActionResolve, note, before, tx, out)
}

// transition runs decide against the freshest stored copy of the record and
// reports the persisted result.
func (s *Service) transition(ctx context.Context, op string, actor meetup.Actor, id uuid.UUID, decide func(tx *meetup.Transaction) (*meetup.Outcome, error)) (*meetup.Transaction, error) {
	if actor.ID == "" {
		return nil, meetup.ErrUnauthenticated
	}
	var (
		before *meetup.Transaction
		out    *meetup.Outcome
	)
	tx, err := s.store.Apply(ctx, id, func(tx *meetup.Transaction) error {
		before = tx.Clone()
		o, err := decide(tx)
		if err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		s.recordError(op, err)
		s.logger.Debug().Err(err).
			Str("transactionId", id.String()).
			Str("operation", op).
			Str("actor", actor.ID).
			Msg("transition rejected")
		return nil, err
	}
	return s.finish(ctx, actor, audit.ActionTransition, "", before, tx, out)
}

// advance applies the timer transition due for id, if any. Side effects run
// only when this call performed the write.
func (s *Service) advance(ctx context.Context, id uuid.UUID) (*meetup.Outcome, error) {
	var (
		before *meetup.Transaction
		out    *meetup.Outcome
	)
	tx, err := s.store.Apply(ctx, id, func(tx *meetup.Transaction) error {
		before = tx.Clone()
		out = s.machine.Advance(tx, s.clock.Now())
		if out == nil {
			return errNoChange
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, nil
	}
	_, err = s.finish(ctx, meetup.Actor{ID: meetup.SystemActor}, audit.ActionTransition, "", before, tx, out)
	return out, err
}

// finish runs the post-write side effects: metrics, audit, conversation state
// and counterparty notices. A delivery failure never undoes the write.
func (s *Service) finish(ctx context.Context, actor meetup.Actor, action audit.Action, reason string, before, tx *meetup.Transaction, out *meetup.Outcome) (*meetup.Transaction, error) {
	transitionsTotal.WithLabelValues(string(out.Event), string(out.From), string(out.To)).Inc()

	s.logger.Info().
		Str("transactionId", tx.TransactionID.String()).
		Str("event", string(out.Event)).
		Str("from", string(out.From)).
		Str("to", string(out.To)).
		Str("actor", out.Actor).
		Int64("version", tx.Version).
		Msg("transaction transition applied")

	s.record(ctx, actor, action, string(out.Event), reason, before, tx)

	var errs []error
	for _, n := range out.Notices {
		if err := s.deliver(ctx, tx, n); err != nil {
			errs = append(errs, err)
		}
	}
	if out.MarkConversationDone && s.notifier != nil {
		if err := s.notifier.MarkConversationDone(ctx, tx.ProductID, tx.BuyerID, tx.SellerID); err != nil {
			errs = append(errs, fmt.Errorf("mark conversation done: %w", err))
		}
	}
	if len(errs) > 0 {
		notificationFailuresTotal.Inc()
		err := errors.Join(errs...)
		s.logger.Warn().Err(err).
			Str("transactionId", tx.TransactionID.String()).
			Str("event", string(out.Event)).
			Msg("transaction saved but notification failed")
		return tx, &meetup.NotificationFailedError{Transaction: tx, Err: err}
	}
	return tx, nil
}

func (s *Service) deliver(ctx context.Context, tx *meetup.Transaction, n meetup.Notice) error {
	if s.notifier == nil {
		return nil
	}
	meta := chat.MessageMeta{
		TransactionID: tx.TransactionID,
		Kind:          string(n.Kind),
		ProductID:     tx.ProductID,
		BuyerID:       tx.BuyerID,
		SellerID:      tx.SellerID,
	}
	if err := s.notifier.Notify(ctx, n.SenderID, n.ReceiverID, noticeText(n.Kind, tx), meta); err != nil {
		return fmt.Errorf("notify %s: %w", n.ReceiverID, err)
	}
	return nil
}

func (s *Service) record(ctx context.Context, actor meetup.Actor, action audit.Action, event, reason string, before, after *meetup.Transaction) {
	if s.audit == nil {
		return
	}
	entry := &audit.AuditEntry{
		EntityType: audit.EntityTypeTransaction,
		EntityID:   after.TransactionID.String(),
		Action:     action,
		Event:      event,
		Actor:      actor.ActorString(),
		ActorRoles: actor.Roles,
		NewValues:  after,
		Reason:     reason,
	}
	if before != nil {
		entry.OldValues = before
	}
	s.audit.Log(ctx, entry)
}

func (s *Service) recordError(op string, err error) {
	transitionErrorsTotal.WithLabelValues(op, errorClass(err)).Inc()
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, meetup.ErrValidation):
		return "validation"
	case errors.Is(err, meetup.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, meetup.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, meetup.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, meetup.ErrNotFound):
		return "not_found"
	case errors.Is(err, meetup.ErrConcurrencyConflict):
		return "conflict"
	}
	return "internal"
}

func isModerator(actor meetup.Actor) bool {
	return slices.Contains(actor.Roles, RoleModerator)
}
