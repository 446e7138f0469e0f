package meetup

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/campus-market/meetup-hub/internal/application/meetup/mocks"
	"github.com/campus-market/meetup-hub/internal/domain/meetup"
	"github.com/campus-market/meetup-hub/internal/infrastructure/memory"
)

var (
	baseTime   = time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC)
	meetupDate = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	buyer    = meetup.Actor{ID: "b1"}
	seller   = meetup.Actor{ID: "s1"}
	stranger = meetup.Actor{ID: "x9"}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	clock       *fakeClock
	repo        *memory.TransactionRepository
	notifier    *mocks.MockNotifier
	store       *Store
	svc         *Service
	coordinator *Coordinator
	monitor     *Monitor
}

func newHarness(t *testing.T, policy meetup.Policy) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	h := &harness{
		clock:    &fakeClock{now: baseTime},
		repo:     memory.NewTransactionRepository(),
		notifier: mocks.NewMockNotifier(ctrl),
	}
	logger := zerolog.Nop()
	h.store = NewStore(h.repo, nil, h.clock, logger)
	h.svc = NewService(h.store, meetup.NewMachine(policy), h.notifier, nil, h.clock, logger)
	h.coordinator = NewCoordinator(h.svc, logger)
	h.monitor = NewMonitor(h.svc, 2, logger)
	return h
}

// quietNotifier accepts every collaborator call.
func (h *harness) quietNotifier() {
	h.notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	h.notifier.EXPECT().IsConversationDone(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil).AnyTimes()
	h.notifier.EXPECT().MarkConversationDone(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

func proposal() ProposeInput {
	return ProposeInput{
		ProductID: "p1",
		BuyerID:   "b1",
		SellerID:  "s1",
		Location:  "Gate 1",
		Date:      meetupDate,
	}
}

func (h *harness) propose(t *testing.T) *meetup.Transaction {
	t.Helper()
	tx, err := h.coordinator.ProposeOrUpdateMeetup(context.Background(), buyer, proposal())
	require.NoError(t, err)
	return tx
}

// schedule drives a fresh proposal by the buyer to scheduled under the
// explicit confirmation policy.
func (h *harness) schedule(t *testing.T) *meetup.Transaction {
	t.Helper()
	tx := h.propose(t)
	_, err := h.svc.Confirm(context.Background(), seller, tx.TransactionID)
	require.NoError(t, err)
	tx, err = h.svc.Confirm(context.Background(), buyer, tx.TransactionID)
	require.NoError(t, err)
	require.Equal(t, meetup.StatusScheduled, tx.Status)
	return tx
}

// reachMeetupDay schedules a meetup and runs the monitor past its date.
func (h *harness) reachMeetupDay(t *testing.T) *meetup.Transaction {
	t.Helper()
	tx := h.schedule(t)
	h.clock.Set(meetupDate.Add(time.Minute))
	n, err := h.monitor.ProcessDue(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	tx, err = h.store.Get(context.Background(), tx.TransactionID)
	require.NoError(t, err)
	require.Equal(t, meetup.StatusMeetupDayPassed, tx.Status)
	return tx
}
