package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/campus-market/meetup-hub/internal/domain/meetup"
)

// TransactionRepository is an in-process meetup.Repository with the same
// version and uniqueness rules as the Postgres one.
type TransactionRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[uuid.UUID]*meetup.Transaction
}

// NewTransactionRepository creates an empty repository.
func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{byID: make(map[uuid.UUID]*meetup.Transaction)}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *meetup.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[tx.TransactionID]; ok {
		return fmt.Errorf("%w: transaction %s already exists", meetup.ErrConcurrencyConflict, tx.TransactionID)
	}
	if tx.IsOpen() && r.openFor(tx.ProductID, tx.BuyerID, tx.SellerID, uuid.Nil) != nil {
		return fmt.Errorf("%w: an open transaction already exists", meetup.ErrConcurrencyConflict)
	}
	r.nextID++
	tx.ID = r.nextID
	tx.Version = 1
	r.byID[tx.TransactionID] = tx.Clone()
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, transactionID uuid.UUID) (*meetup.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.byID[transactionID]
	if !ok {
		return nil, meetup.ErrNotFound
	}
	return tx.Clone(), nil
}

func (r *TransactionRepository) Update(ctx context.Context, tx *meetup.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[tx.TransactionID]
	if !ok {
		return meetup.ErrNotFound
	}
	if stored.Version != tx.Version {
		return fmt.Errorf("%w: expected version %d, stored %d", meetup.ErrConcurrencyConflict, tx.Version, stored.Version)
	}
	if tx.IsOpen() && r.openFor(tx.ProductID, tx.BuyerID, tx.SellerID, tx.TransactionID) != nil {
		return fmt.Errorf("%w: an open transaction already exists", meetup.ErrConcurrencyConflict)
	}
	tx.Version++
	r.byID[tx.TransactionID] = tx.Clone()
	return nil
}

func (r *TransactionRepository) FindOpen(ctx context.Context, productID *string, buyerID, sellerID string) (*meetup.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if tx := r.openFor(productID, buyerID, sellerID, uuid.Nil); tx != nil {
		return tx.Clone(), nil
	}
	return nil, nil
}

func (r *TransactionRepository) ListOpenForParticipant(ctx context.Context, actorID string) ([]*meetup.Transaction, error) {
	return r.list(func(tx *meetup.Transaction) bool {
		return tx.IsOpen() && (tx.BuyerID == actorID || tx.SellerID == actorID)
	}, 0), nil
}

func (r *TransactionRepository) ListOpen(ctx context.Context, afterID int64, limit int) ([]*meetup.Transaction, error) {
	return r.list(func(tx *meetup.Transaction) bool {
		return tx.IsOpen() && tx.ID > afterID
	}, limit), nil
}

func (r *TransactionRepository) list(match func(*meetup.Transaction) bool, limit int) []*meetup.Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*meetup.Transaction, 0)
	for _, tx := range r.byID {
		if match(tx) {
			out = append(out, tx.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// openFor must be called with the lock held.
func (r *TransactionRepository) openFor(productID *string, buyerID, sellerID string, except uuid.UUID) *meetup.Transaction {
	for id, tx := range r.byID {
		if id == except || !tx.IsOpen() || tx.BuyerID != buyerID || tx.SellerID != sellerID {
			continue
		}
		if sameProduct(tx.ProductID, productID) {
			return tx
		}
	}
	return nil
}

// sameProduct treats a missing product as the empty id, matching the
// unique index on COALESCE(product_id, '').
func sameProduct(a, b *string) bool {
	return productKey(a) == productKey(b)
}

func productKey(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
