package meetup

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/campus-market/meetup-hub/internal/domain/meetup"
)

const defaultWriteAttempts = 3

// errNoChange tells Apply to return the current record without writing.
var errNoChange = errors.New("no change")

// Store is the transaction store. Every write is a versioned read-modify-write
// that is retried against a fresh read when it loses a race.
type Store struct {
	repo     meetup.Repository
	feed     ChangeFeed
	clock    meetup.Clock
	attempts int
	logger   zerolog.Logger
}

// NewStore creates a new transaction store
func NewStore(repo meetup.Repository, feed ChangeFeed, clock meetup.Clock, logger zerolog.Logger) *Store {
	if clock == nil {
		clock = meetup.SystemClock{}
	}
	return &Store{
		repo:     repo,
		feed:     feed,
		clock:    clock,
		attempts: defaultWriteAttempts,
		logger:   logger.With().Str("service", "transaction-store").Logger(),
	}
}

// CreateInput describes a new transaction. Location and Date are optional but
// must be given together.
type CreateInput struct {
	ProductID  *string
	BuyerID    string
	SellerID   string
	Location   *string
	Date       *time.Time
	ProposedBy *string
}

// Create persists a new transaction. With meetup details it starts proposed.
func (s *Store) Create(ctx context.Context, in CreateInput) (*meetup.Transaction, error) {
	buyerID := strings.TrimSpace(in.BuyerID)
	sellerID := strings.TrimSpace(in.SellerID)
	if buyerID == "" || sellerID == "" {
		return nil, fmt.Errorf("%w: buyer and seller are required", meetup.ErrValidation)
	}
	if buyerID == sellerID {
		return nil, fmt.Errorf("%w: buyer and seller must differ", meetup.ErrValidation)
	}
	if (in.Location == nil) != (in.Date == nil) {
		return nil, fmt.Errorf("%w: meetup location and date must be set together", meetup.ErrValidation)
	}

	now := s.clock.Now()
	tx := meetup.NewTransaction(in.ProductID, buyerID, sellerID, now)
	if in.Location != nil {
		if err := meetup.ValidateProposal(*in.Location, *in.Date, now); err != nil {
			return nil, err
		}
		if in.ProposedBy != nil {
			if _, ok := tx.RoleOf(*in.ProposedBy); !ok {
				return nil, meetup.ErrUnauthorized
			}
			proposer := *in.ProposedBy
			tx.ProposedBy = &proposer
		}
		tx.ApplyMeetupDetails(strings.TrimSpace(*in.Location), *in.Date)
		tx.ProposedAt = &now
		tx.Status = meetup.StatusProposed
	}

	if err := s.insert(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// Get returns the transaction or meetup.ErrNotFound.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*meetup.Transaction, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateMeetupDetails overwrites location and date, resets both confirmation
// flags and restarts the proposal clock.
func (s *Store) UpdateMeetupDetails(ctx context.Context, id uuid.UUID, location string, date time.Time) (*meetup.Transaction, error) {
	return s.Apply(ctx, id, func(tx *meetup.Transaction) error {
		switch tx.Status {
		case meetup.StatusPending, meetup.StatusProposed, meetup.StatusScheduled:
		default:
			return fmt.Errorf("%w: cannot change meetup details while %s", meetup.ErrInvalidTransition, tx.Status)
		}
		now := s.clock.Now()
		if err := meetup.ValidateProposal(location, date, now); err != nil {
			return err
		}
		tx.ApplyMeetupDetails(strings.TrimSpace(location), date)
		tx.ProposedAt = &now
		tx.ProposedBy = nil
		tx.Status = meetup.StatusProposed
		return nil
	})
}

// SetConfirmed sets exactly one confirmation flag. actorID must be the party
// stored for role.
func (s *Store) SetConfirmed(ctx context.Context, id uuid.UUID, role meetup.Role, actorID string, value bool) (*meetup.Transaction, error) {
	return s.Apply(ctx, id, func(tx *meetup.Transaction) error {
		if err := tx.SetConfirmed(role, actorID, value); err != nil {
			return err
		}
		if value && tx.Status != meetup.StatusProposed && tx.Status != meetup.StatusScheduled {
			return fmt.Errorf("%w: nothing to confirm while %s", meetup.ErrInvalidTransition, tx.Status)
		}
		return nil
	})
}

// SetStatus writes a status and its auxiliary fields. Transition legality is
// the caller's responsibility; when from is non-empty the stored status must
// be one of from, checked against the same read that is written back.
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status meetup.Status, fields meetup.StatusFields, from ...meetup.Status) (*meetup.Transaction, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", meetup.ErrValidation, status)
	}
	return s.Apply(ctx, id, func(tx *meetup.Transaction) error {
		if len(from) > 0 && !slices.Contains(from, tx.Status) {
			return fmt.Errorf("%w: status is %s", meetup.ErrInvalidTransition, tx.Status)
		}
		tx.ApplyStatus(status, fields)
		return nil
	})
}

// FindOpen returns the open transaction for the triple, or nil.
func (s *Store) FindOpen(ctx context.Context, productID *string, buyerID, sellerID string) (*meetup.Transaction, error) {
	return s.repo.FindOpen(ctx, productID, buyerID, sellerID)
}

// FindOpenForParticipant returns every open transaction actorID is a party to.
func (s *Store) FindOpenForParticipant(ctx context.Context, actorID string) ([]*meetup.Transaction, error) {
	if actorID == "" {
		return nil, meetup.ErrUnauthenticated
	}
	return s.repo.ListOpenForParticipant(ctx, actorID)
}

// ListOpen pages through all open transactions.
func (s *Store) ListOpen(ctx context.Context, afterID int64, limit int) ([]*meetup.Transaction, error) {
	return s.repo.ListOpen(ctx, afterID, limit)
}

// Apply runs fn against a private copy of the stored record and writes the
// result conditionally on the version it read. On a lost race fn is re-run
// against the fresh record, up to the configured number of attempts.
func (s *Store) Apply(ctx context.Context, id uuid.UUID, fn func(tx *meetup.Transaction) error) (*meetup.Transaction, error) {
	for attempt := 1; ; attempt++ {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		next := current.Clone()
		if err := fn(next); err != nil {
			if errors.Is(err, errNoChange) {
				return current, nil
			}
			return nil, err
		}
		next.UpdatedAt = s.clock.Now()

		err = s.repo.Update(ctx, next)
		if err == nil {
			s.publish(ctx, next)
			return next, nil
		}
		if !errors.Is(err, meetup.ErrConcurrencyConflict) || attempt >= s.attempts {
			return nil, err
		}
		conflictRetriesTotal.Inc()
		s.logger.Debug().
			Str("transactionId", id.String()).
			Int("attempt", attempt).
			Msg("version conflict, retrying against fresh record")
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

func (s *Store) insert(ctx context.Context, tx *meetup.Transaction) error {
	if err := s.repo.Create(ctx, tx); err != nil {
		return err
	}
	s.publish(ctx, tx)
	return nil
}

func (s *Store) publish(ctx context.Context, tx *meetup.Transaction) {
	if s.feed != nil {
		s.feed.Publish(ctx, tx.Clone())
	}
}
