package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-market/meetup-hub/internal/domain/meetup"
)

func newTx(product string) *meetup.Transaction {
	p := product
	return meetup.NewTransaction(&p, "b1", "s1", time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC))
}

func TestTransactionRepository_CreateAssignsVersion(t *testing.T) {
	repo := NewTransactionRepository()
	tx := newTx("p1")

	require.NoError(t, repo.Create(context.Background(), tx))
	assert.Equal(t, int64(1), tx.ID)
	assert.Equal(t, int64(1), tx.Version)

	got, err := repo.GetByID(context.Background(), tx.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, tx.TransactionID, got.TransactionID)
}

func TestTransactionRepository_RejectsSecondOpenRecord(t *testing.T) {
	repo := NewTransactionRepository()
	require.NoError(t, repo.Create(context.Background(), newTx("p1")))

	err := repo.Create(context.Background(), newTx("p1"))
	assert.ErrorIs(t, err, meetup.ErrConcurrencyConflict)

	require.NoError(t, repo.Create(context.Background(), newTx("p2")))
}

func TestTransactionRepository_MissingProductMatchesEmpty(t *testing.T) {
	repo := NewTransactionRepository()
	ctx := context.Background()
	noProduct := meetup.NewTransaction(nil, "b1", "s1", time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Create(ctx, noProduct))

	err := repo.Create(ctx, newTx(""))
	assert.ErrorIs(t, err, meetup.ErrConcurrencyConflict)

	empty := ""
	found, err := repo.FindOpen(ctx, &empty, "b1", "s1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, noProduct.TransactionID, found.TransactionID)
}

func TestTransactionRepository_UpdateChecksVersion(t *testing.T) {
	repo := NewTransactionRepository()
	tx := newTx("p1")
	require.NoError(t, repo.Create(context.Background(), tx))

	first, _ := repo.GetByID(context.Background(), tx.TransactionID)
	second, _ := repo.GetByID(context.Background(), tx.TransactionID)

	first.Status = meetup.StatusCancelled
	require.NoError(t, repo.Update(context.Background(), first))
	assert.Equal(t, int64(2), first.Version)

	second.Status = meetup.StatusProposed
	assert.ErrorIs(t, repo.Update(context.Background(), second), meetup.ErrConcurrencyConflict)

	stored, _ := repo.GetByID(context.Background(), tx.TransactionID)
	assert.Equal(t, meetup.StatusCancelled, stored.Status)
}

func TestTransactionRepository_ReturnsCopies(t *testing.T) {
	repo := NewTransactionRepository()
	tx := newTx("p1")
	require.NoError(t, repo.Create(context.Background(), tx))

	got, _ := repo.GetByID(context.Background(), tx.TransactionID)
	got.Status = meetup.StatusDisputed

	again, _ := repo.GetByID(context.Background(), tx.TransactionID)
	assert.Equal(t, meetup.StatusPending, again.Status)
}

func TestTransactionRepository_NotFound(t *testing.T) {
	repo := NewTransactionRepository()
	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, meetup.ErrNotFound)
	assert.ErrorIs(t, repo.Update(context.Background(), newTx("p1")), meetup.ErrNotFound)
}

func TestTransactionRepository_Listing(t *testing.T) {
	repo := NewTransactionRepository()
	ctx := context.Background()
	a, b, c := newTx("p1"), newTx("p2"), newTx("p3")
	for _, tx := range []*meetup.Transaction{a, b, c} {
		require.NoError(t, repo.Create(ctx, tx))
	}
	closed, _ := repo.GetByID(ctx, b.TransactionID)
	now := time.Now()
	closed.ClosedAt = &now
	require.NoError(t, repo.Update(ctx, closed))

	open, err := repo.ListOpen(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, a.TransactionID, open[0].TransactionID)
	assert.Equal(t, c.TransactionID, open[1].TransactionID)

	page, err := repo.ListOpen(ctx, a.ID, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, c.TransactionID, page[0].TransactionID)

	mine, err := repo.ListOpenForParticipant(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	none, err := repo.ListOpenForParticipant(ctx, "stranger")
	require.NoError(t, err)
	assert.Empty(t, none)

	found, err := repo.FindOpen(ctx, a.ProductID, "b1", "s1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, a.TransactionID, found.TransactionID)

	missing, err := repo.FindOpen(ctx, b.ProductID, "b1", "s1")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
