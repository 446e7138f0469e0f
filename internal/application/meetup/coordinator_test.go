package meetup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/campus-market/meetup-hub/internal/domain/chat"
	"github.com/campus-market/meetup-hub/internal/domain/meetup"
)

func TestProposeOrUpdateMeetup_CreatesProposedTransaction(t *testing.T) {
	h := newHarness(t, meetup.DefaultPolicy())
	h.notifier.EXPECT().IsConversationDone(gomock.Any(), gomock.Any(), "b1", "s1").Return(false, nil)
	h.notifier.EXPECT().
		Notify(gomock.Any(), "b1", "s1", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, text string, meta chat.MessageMeta) error {
			assert.Equal(t, string(meetup.NoticeProposed), meta.Kind)
			assert.Contains(t, text, "Gate 1")
			return nil
		})

	tx, err := h.coordinator.ProposeOrUpdateMeetup(context.Background(), buyer, proposal())
	require.NoError(t, err)

	got, err := h.svc.Get(context.Background(), buyer, tx.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, meetup.StatusProposed, got.Status)
	require.NotNil(t, got.MeetupLocation)
	assert.Equal(t, "Gate 1", *got.MeetupLocation)
	require.NotNil(t, got.MeetupDate)
	assert.True(t, got.MeetupDate.Equal(meetupDate))
	assert.False(t, got.BuyerConfirmed)
	assert.False(t, got.SellerConfirmed)
	require.NotNil(t, got.ProposedAt)
	assert.True(t, got.ProposedAt.Equal(baseTime))
}

func TestProposeOrUpdateMeetup_SessionOverridesBuyer(t *testing.T) {
	h := newHarness(t, meetup.DefaultPolicy())
	h.quietNotifier()

	in := proposal()
	in.BuyerID = "spoofed"
	tx, err := h.coordinator.ProposeOrUpdateMeetup(context.Background(), buyer, in)
	require.NoError(t, err)
	assert.Equal(t, "b1", tx.BuyerID)
}

func TestProposeOrUpdateMeetup_SellerMayPropose(t *testing.T) {
	h := newHarness(t, meetup.DefaultPolicy())
	h.quietNotifier()

	tx, err := h.coordinator.ProposeOrUpdateMeetup(context.Background(), seller, proposal())
	require.NoError(t, err)
	assert.Equal(t, "b1", tx.BuyerID)
	require.NotNil(t, tx.ProposedBy)
	assert.Equal(t, "s1", *tx.ProposedBy)
}

func TestProposeOrUpdateMeetup_UpdatesOpenRecord(t *testing.T) {
	h := newHarness(t, meetup.DefaultPolicy())
	h.quietNotifier()
	first := h.schedule(t)

	in := proposal()
	in.Location = "Library"
	second, err := h.coordinator.ProposeOrUpdateMeetup(context.Background(), seller, in)
	require.NoError(t, err)

	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.Equal(t, meetup.StatusProposed, second.Status)
	assert.Equal(t, "Library", *second.MeetupLocation)
	assert.False(t, second.BuyerConfirmed)
	assert.False(t, second.SellerConfirmed)

	open, err := h.store.FindOpenForParticipant(context.Background(), "b1")
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestProposeOrUpdateMeetup_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		actor meetup.Actor
		in    func() ProposeInput
		want  error
	}{
		{"no session", meetup.Actor{}, proposal, meetup.ErrUnauthenticated},
		{"missing location", buyer, func() ProposeInput { in := proposal(); in.Location = "  "; return in }, meetup.ErrValidation},
		{"missing product", buyer, func() ProposeInput { in := proposal(); in.ProductID = ""; return in }, meetup.ErrValidation},
		{"seller without buyer", seller, func() ProposeInput { in := proposal(); in.BuyerID = ""; return in }, meetup.ErrValidation},
		{"buying from self", buyer, func() ProposeInput { in := proposal(); in.SellerID = "b1"; return in }, meetup.ErrValidation},
		{"date in the past", buyer, func() ProposeInput { in := proposal(); in.Date = baseTime.AddDate(0, 0, -1); return in }, meetup.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, meetup.DefaultPolicy())
			h.quietNotifier()
			_, err := h.coordinator.ProposeOrUpdateMeetup(context.Background(), tt.actor, tt.in())
			assert.ErrorIs(t, err, tt.want)

			open, _ := h.repo.ListOpen(context.Background(), 0, 0)
			assert.Empty(t, open)
		})
	}
}

func TestProposeOrUpdateMeetup_ConversationDone(t *testing.T) {
	h := newHarness(t, meetup.DefaultPolicy())
	h.notifier.EXPECT().IsConversationDone(gomock.Any(), gomock.Any(), "b1", "s1").Return(true, nil)

	_, err := h.coordinator.ProposeOrUpdateMeetup(context.Background(), buyer, proposal())
	assert.ErrorIs(t, err, meetup.ErrConversationClosed)
	assert.ErrorIs(t, err, meetup.ErrInvalidTransition)
}

func TestProposeOrUpdateMeetup_NotificationFailureKeepsWrite(t *testing.T) {
	h := newHarness(t, meetup.DefaultPolicy())
	h.notifier.EXPECT().IsConversationDone(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)
	h.notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("chat down"))

	tx, err := h.coordinator.ProposeOrUpdateMeetup(context.Background(), buyer, proposal())
	require.Error(t, err)
	assert.ErrorIs(t, err, meetup.ErrNotificationFailed)

	var nf *meetup.NotificationFailedError
	require.ErrorAs(t, err, &nf)
	require.NotNil(t, tx)
	assert.Equal(t, tx.TransactionID, nf.Transaction.TransactionID)

	stored, err := h.store.Get(context.Background(), tx.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, meetup.StatusProposed, stored.Status)

	h.notifier.EXPECT().Notify(gomock.Any(), "b1", "s1", gomock.Any(), gomock.Any()).Return(nil)
	retried, err := h.coordinator.RetryNotification(context.Background(), buyer, tx.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, stored.Version, retried.Version)
}

func TestRetryNotification_Stranger(t *testing.T) {
	h := newHarness(t, meetup.DefaultPolicy())
	h.quietNotifier()
	tx := h.propose(t)

	_, err := h.coordinator.RetryNotification(context.Background(), stranger, tx.TransactionID)
	assert.ErrorIs(t, err, meetup.ErrUnauthorized)
}

func TestRetryNotification_ResendsProposalFromProposer(t *testing.T) {
	h := newHarness(t, meetup.DefaultPolicy())
	h.notifier.EXPECT().IsConversationDone(gomock.Any(), gomock.Any(), "b1", "s1").Return(false, nil)
	h.notifier.EXPECT().Notify(gomock.Any(), "b1", "s1", gomock.Any(), gomock.Any()).Return(nil)
	h.notifier.EXPECT().Notify(gomock.Any(), "s1", "b1", gomock.Any(), gomock.Any()).Return(nil)

	tx := h.propose(t)
	_, err := h.svc.Confirm(context.Background(), seller, tx.TransactionID)
	require.NoError(t, err)

	h.notifier.EXPECT().
		Notify(gomock.Any(), "b1", "s1", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, text string, meta chat.MessageMeta) error {
			assert.Equal(t, string(meetup.NoticeProposed), meta.Kind)
			assert.Contains(t, text, "Please confirm")
			return nil
		})
	_, err = h.coordinator.RetryNotification(context.Background(), buyer, tx.TransactionID)
	require.NoError(t, err)
}

func TestRetryNotification_CounterpartyRejected(t *testing.T) {
	h := newHarness(t, meetup.DefaultPolicy())
	h.notifier.EXPECT().IsConversationDone(gomock.Any(), gomock.Any(), "b1", "s1").Return(false, nil)
	h.notifier.EXPECT().Notify(gomock.Any(), "b1", "s1", gomock.Any(), gomock.Any()).Return(nil)
	h.notifier.EXPECT().Notify(gomock.Any(), "s1", "b1", gomock.Any(), gomock.Any()).Return(nil)

	tx := h.propose(t)
	_, err := h.svc.Confirm(context.Background(), seller, tx.TransactionID)
	require.NoError(t, err)

	// No further Notify is expected: the controller fails the test on one.
	_, err = h.coordinator.RetryNotification(context.Background(), seller, tx.TransactionID)
	assert.ErrorIs(t, err, meetup.ErrInvalidTransition)
}

func TestRetryNotification_NoPendingProposal(t *testing.T) {
	h := newHarness(t, meetup.DefaultPolicy())
	h.quietNotifier()
	tx := h.schedule(t)

	_, err := h.coordinator.RetryNotification(context.Background(), buyer, tx.TransactionID)
	assert.ErrorIs(t, err, meetup.ErrInvalidTransition)
}
