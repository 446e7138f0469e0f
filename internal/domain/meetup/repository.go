package meetup

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for meetup transactions.
type Repository interface {
	// Create inserts tx with version 1. A second open record for the same
	// product, buyer and seller fails with ErrConcurrencyConflict.
	Create(ctx context.Context, tx *Transaction) error
	// GetByID returns ErrNotFound when the id is unknown.
	GetByID(ctx context.Context, transactionID uuid.UUID) (*Transaction, error)
	// Update writes tx only if the stored version still equals tx.Version and
	// advances tx.Version on success.
	Update(ctx context.Context, tx *Transaction) error
	// FindOpen returns the open record for the triple, or nil.
	FindOpen(ctx context.Context, productID *string, buyerID, sellerID string) (*Transaction, error)
	ListOpenForParticipant(ctx context.Context, actorID string) ([]*Transaction, error)
	// ListOpen pages through open records in id order, starting after afterID.
	ListOpen(ctx context.Context, afterID int64, limit int) ([]*Transaction, error)
}
