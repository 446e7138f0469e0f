package meetup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/campus-market/meetup-hub/internal/domain/audit"
	"github.com/campus-market/meetup-hub/internal/domain/meetup"
)

// ProposeInput carries the caller-supplied proposal. BuyerID is advisory: the
// authenticated actor overrides it unless the actor is the seller.
type ProposeInput struct {
	ProductID string    `json:"productId" validate:"required,max=128"`
	BuyerID   string    `json:"buyerId" validate:"required,max=128"`
	SellerID  string    `json:"sellerId" validate:"required,max=128,nefield=BuyerID"`
	Location  string    `json:"location" validate:"required,max=200"`
	Date      time.Time `json:"date" validate:"required"`
}

// Coordinator is the single entry point for proposing or re-proposing a meetup.
type Coordinator struct {
	svc    *Service
	logger zerolog.Logger
}

// NewCoordinator creates a new meetup coordinator
func NewCoordinator(svc *Service, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		svc:    svc,
		logger: logger.With().Str("service", "meetup-coordinator").Logger(),
	}
}

// ProposeOrUpdateMeetup creates the transaction for the triple or re-proposes
// on the open one, then notifies the counterparty. When only the notification
// fails the persisted transaction is returned together with a
// *meetup.NotificationFailedError.
func (c *Coordinator) ProposeOrUpdateMeetup(ctx context.Context, actor meetup.Actor, in ProposeInput) (*meetup.Transaction, error) {
	if actor.ID == "" {
		return nil, meetup.ErrUnauthenticated
	}
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.SellerID = strings.TrimSpace(in.SellerID)
	in.Location = strings.TrimSpace(in.Location)
	if actor.ID != in.SellerID {
		in.BuyerID = actor.ID
	}
	if err := c.svc.validate.StructCtx(ctx, in); err != nil {
		return nil, validationError(err)
	}

	productID := &in.ProductID
	if c.svc.notifier != nil {
		done, err := c.svc.notifier.IsConversationDone(ctx, productID, in.BuyerID, in.SellerID)
		if err != nil {
			return nil, fmt.Errorf("failed to check conversation state: %w", err)
		}
		if done {
			return nil, meetup.ErrConversationClosed
		}
	}

	existing, err := c.svc.store.FindOpen(ctx, productID, in.BuyerID, in.SellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up open transaction: %w", err)
	}
	if existing == nil {
		tx, err := c.create(ctx, actor, productID, in)
		if !errors.Is(err, meetup.ErrConcurrencyConflict) {
			return tx, err
		}
		// Another session created the record first; re-propose on it instead.
		existing, err = c.svc.store.FindOpen(ctx, productID, in.BuyerID, in.SellerID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up open transaction: %w", err)
		}
		if existing == nil {
			return nil, meetup.ErrConcurrencyConflict
		}
	}
	return c.svc.transition(ctx, "propose", actor, existing.TransactionID, func(tx *meetup.Transaction) (*meetup.Outcome, error) {
		return c.svc.machine.Propose(tx, actor.ID, in.Location, in.Date, c.svc.clock.Now())
	})
}

func (c *Coordinator) create(ctx context.Context, actor meetup.Actor, productID *string, in ProposeInput) (*meetup.Transaction, error) {
	now := c.svc.clock.Now()
	tx := meetup.NewTransaction(productID, in.BuyerID, in.SellerID, now)
	out, err := c.svc.machine.Propose(tx, actor.ID, in.Location, in.Date, now)
	if err != nil {
		c.svc.recordError("propose", err)
		return nil, err
	}
	if err := c.svc.store.insert(ctx, tx); err != nil {
		if !errors.Is(err, meetup.ErrConcurrencyConflict) {
			c.svc.recordError("propose", err)
		}
		return nil, err
	}
	c.logger.Info().
		Str("transactionId", tx.TransactionID.String()).
		Str("productId", in.ProductID).
		Str("buyerId", in.BuyerID).
		Str("sellerId", in.SellerID).
		Msg("transaction created")
	return c.svc.finish(ctx, actor, audit.ActionCreate, "", nil, tx, out)
}

// RetryNotification re-sends the proposal message of a proposed transaction
// from its proposer to the counterparty. Only the proposer may retry, and the
// transaction is never written.
func (c *Coordinator) RetryNotification(ctx context.Context, actor meetup.Actor, id uuid.UUID) (*meetup.Transaction, error) {
	tx, err := c.svc.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if _, ok := tx.RoleOf(actor.ID); !ok {
		return nil, meetup.ErrUnauthorized
	}
	if tx.Status != meetup.StatusProposed {
		return nil, fmt.Errorf("%w: no pending proposal while %s", meetup.ErrInvalidTransition, tx.Status)
	}
	if !tx.IsProposer(actor.ID) {
		return nil, fmt.Errorf("%w: only the proposer can resend the proposal", meetup.ErrInvalidTransition)
	}
	n := meetup.Notice{Kind: meetup.NoticeProposed, SenderID: actor.ID, ReceiverID: tx.Counterparty(actor.ID)}
	if err := c.svc.deliver(ctx, tx, n); err != nil {
		notificationFailuresTotal.Inc()
		return tx, &meetup.NotificationFailedError{Transaction: tx, Err: err}
	}
	return tx, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", meetup.ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "nefield":
			msgs = append(msgs, fe.Field()+" must differ from "+fe.Param())
		case "max":
			msgs = append(msgs, fe.Field()+" must be at most "+fe.Param()+" characters")
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return fmt.Errorf("%w: %s", meetup.ErrValidation, strings.Join(msgs, "; "))
}
