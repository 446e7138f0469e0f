package meetup

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/campus-market/meetup-hub/internal/application/meetup/mocks"
	"github.com/campus-market/meetup-hub/internal/domain/audit"
	"github.com/campus-market/meetup-hub/internal/domain/meetup"
)

func TestConfirm_CounterpartyThenProposer(t *testing.T) {
	h := newHarness(t, meetup.DefaultPolicy())
	h.quietNotifier()
	tx := h.propose(t)

	got, err := h.svc.Confirm(context.Background(), seller, tx.TransactionID)
	require.NoError(t, err)
	assert.True(t, got.SellerConfirmed)
	assert.False(t, got.BuyerConfirmed)
	assert.Equal(t, meetup.StatusProposed, got.Status)

	got, err = h.svc.Confirm(context.Background(), buyer, tx.TransactionID)
	require.NoError(t, err)
	assert.True(t, got.BothConfirmed())
	assert.Equal(t, meetup.StatusScheduled, got.Status)
}

func TestConfirm_ImplicitProposerConfirmation(t *testing.T) {
	policy := meetup.DefaultPolicy()
	policy.ProposerConfirmation = meetup.ConfirmImplicit
	h := newHarness(t, policy)
	h.quietNotifier()
	tx := h.propose(t)

	got, err := h.svc.Confirm(context.Background(), seller, tx.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, meetup.StatusScheduled, got.Status)
	assert.True(t, got.BothConfirmed())
}

func TestConfirm_SelfConfirmLeavesRecordUnchanged(t *testing.T) {
	h := newHarness(t, meetup.DefaultPolicy())
	h.quietNotifier()
	tx := h.propose(t)

	_, err := h.svc.Confirm(context.Background(), buyer, tx.TransactionID)
	assert.ErrorIs(t, err, meetup.ErrInvalidTransition)

	stored, err := h.store.Get(context.Background(), tx.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, tx, stored)
}

func TestConfirm_ConcurrentPartiesBothSucceed(t *testing.T) {
	h := newHarness(t, meetup.DefaultPolicy())
	h.quietNotifier()
	loc, date, product := "Gate 1", meetupDate, "p1"
	tx, err := h.store.Create(context.Background(), CreateInput{
		ProductID: &product,
		BuyerID:   "b1",
		SellerID:  "s1",
		Location:  &loc,
		Date:      &date,
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, actor := range []meetup.Actor{buyer, seller} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = h.svc.Confirm(context.Background(), actor, tx.TransactionID)
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	final, err := h.store.Get(context.Background(), tx.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, meetup.StatusScheduled, final.Status)
	assert.True(t, final.BuyerConfirmed)
	assert.True(t, final.SellerConfirmed)
	assert.Equal(t, int64(3), final.Version)
}

func TestStrangerCannotMutate(t *testing.T) {
	h := newHarness(t, meetup.DefaultPolicy())
	h.quietNotifier()
	tx := h.propose(t)
	ctx := context.Background()

	ops := map[string]func() error{
		"confirm":  func() error { _, err := h.svc.Confirm(ctx, stranger, tx.TransactionID); return err },
		"cancel":   func() error { _, err := h.svc.Cancel(ctx, stranger, tx.TransactionID); return err },
		"complete": func() error { _, err := h.svc.MarkCompleted(ctx, stranger, tx.TransactionID); return err },
		"appeal":   func() error { _, err := h.svc.Appeal(ctx, stranger, tx.TransactionID); return err },
		"withdraw": func() error { _, err := h.svc.Withdraw(ctx, stranger, tx.TransactionID); return err },
		"dispute":  func() error { _, err := h.svc.Dispute(ctx, stranger, tx.TransactionID, "no show"); return err },
		"setConfirmed": func() error {
			_, err := h.store.SetConfirmed(ctx, tx.TransactionID, meetup.RoleBuyer, stranger.ID, true)
			return err
		},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, op(), meetup.ErrUnauthorized)
			stored, err := h.store.Get(ctx, tx.TransactionID)
			require.NoError(t, err)
			assert.Equal(t, tx, stored)
		})
	}

	_, err := h.svc.Get(ctx, stranger, tx.TransactionID)
	assert.ErrorIs(t, err, meetup.ErrUnauthorized)
}

func TestUnauthenticatedActions(t *testing.T) {
	h := newHarness(t, meetup.DefaultPolicy())
	h.quietNotifier()
	tx := h.propose(t)

	_, err := h.svc.Confirm(context.Background(), meetup.Actor{}, tx.TransactionID)
	assert.ErrorIs(t, err, meetup.ErrUnauthenticated)
	_, err = h.svc.ListOpen(context.Background(), meetup.Actor{})
	assert.ErrorIs(t, err, meetup.ErrUnauthenticated)
}

func TestCancelReturnsToPending(t *testing.T) {
	h := newHarness(t, meetup.DefaultPolicy())
	h.quietNotifier()
	tx := h.schedule(t)

	got, err := h.svc.Cancel(context.Background(), seller, tx.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, meetup.StatusPending, got.Status)
	assert.Nil(t, got.MeetupDate)
	assert.Nil(t, got.MeetupLocation)
	assert.False(t, got.BuyerConfirmed)
	assert.False(t, got.SellerConfirmed)
	assert.True(t, got.IsOpen())
}

func TestWithdrawClosesRecord(t *testing.T) {
	h := newHarness(t, meetup.DefaultPolicy())
	h.quietNotifier()
	tx := h.propose(t)

	got, err := h.svc.Withdraw(context.Background(), seller, tx.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, meetup.StatusCancelled, got.Status)
	assert.False(t, got.IsOpen())

	// A closed record no longer blocks a new negotiation for the same triple.
	next := h.propose(t)
	assert.NotEqual(t, tx.TransactionID, next.TransactionID)
}

func TestDisputeAndResolve(t *testing.T) {
	h := newHarness(t, meetup.DefaultPolicy())
	h.quietNotifier()
	tx := h.schedule(t)
	ctx := context.Background()

	_, err := h.svc.Dispute(ctx, buyer, tx.TransactionID, "  ")
	assert.ErrorIs(t, err, meetup.ErrValidation)

	got, err := h.svc.Dispute(ctx, buyer, tx.TransactionID, "item was damaged")
	require.NoError(t, err)
	assert.Equal(t, meetup.StatusDisputed, got.Status)
	assert.True(t, got.IsOpen())

	_, err = h.svc.ResolveDispute(ctx, seller, tx.TransactionID, meetup.StatusCompleted, "")
	assert.ErrorIs(t, err, meetup.ErrUnauthorized)

	moderator := meetup.Actor{ID: "m1", Roles: []string{RoleModerator}}
	_, err = h.svc.ResolveDispute(ctx, moderator, tx.TransactionID, meetup.StatusUnsuccessful, "")
	assert.ErrorIs(t, err, meetup.ErrValidation)

	got, err = h.svc.ResolveDispute(ctx, moderator, tx.TransactionID, meetup.StatusCompleted, "buyer confirmed by phone")
	require.NoError(t, err)
	assert.Equal(t, meetup.StatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
	assert.False(t, got.IsOpen())

	visible, err := h.svc.Get(ctx, moderator, tx.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, got.Version, visible.Version)

	_, err = h.svc.ResolveDispute(ctx, moderator, tx.TransactionID, meetup.StatusCancelled, "")
	assert.ErrorIs(t, err, meetup.ErrInvalidTransition)
}

func TestTransitionsAreAudited(t *testing.T) {
	ctrl := gomock.NewController(t)
	auditLogger := mocks.NewMockAuditLogger(ctrl)
	feed := mocks.NewMockChangeFeed(ctrl)

	h := newHarness(t, meetup.DefaultPolicy())
	h.quietNotifier()
	h.store = NewStore(h.repo, feed, h.clock, zerolog.Nop())
	h.svc = NewService(h.store, meetup.NewMachine(meetup.DefaultPolicy()), h.notifier, auditLogger, h.clock, zerolog.Nop())
	h.coordinator = NewCoordinator(h.svc, zerolog.Nop())

	gomock.InOrder(
		auditLogger.EXPECT().Log(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e *audit.AuditEntry) {
			assert.Equal(t, audit.ActionCreate, e.Action)
			assert.Equal(t, string(meetup.EventPropose), e.Event)
			assert.Equal(t, "user:b1", e.Actor)
			assert.Nil(t, e.OldValues)
		}),
		auditLogger.EXPECT().Log(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e *audit.AuditEntry) {
			assert.Equal(t, audit.ActionTransition, e.Action)
			assert.Equal(t, string(meetup.EventConfirm), e.Event)
			assert.Equal(t, "user:s1", e.Actor)
			assert.NotNil(t, e.OldValues)
		}),
	)
	feed.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(2)

	tx := h.propose(t)
	_, err := h.svc.Confirm(context.Background(), seller, tx.TransactionID)
	require.NoError(t, err)
}

func TestMarkCompletedFinalizesImmediatelyWhenConfigured(t *testing.T) {
	policy := meetup.DefaultPolicy()
	policy.FinalizeOnBothCompleted = true
	h := newHarness(t, policy)
	h.quietNotifier()
	tx := h.reachMeetupDay(t)

	got, err := h.svc.MarkCompleted(context.Background(), buyer, tx.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, meetup.StatusMeetupDayPassed, got.Status)

	got, err = h.svc.MarkCompleted(context.Background(), seller, tx.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, meetup.StatusCompleted, got.Status)
	assert.False(t, got.IsOpen())
}
