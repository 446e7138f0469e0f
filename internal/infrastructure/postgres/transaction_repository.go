package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-market/meetup-hub/internal/domain/meetup"
)

const transactionColumns = `id, transaction_id, product_id, buyer_id, seller_id, status,
	meetup_location, meetup_date, proposed_by, buyer_confirmed, seller_confirmed, proposed_at,
	meetup_day_reached_at, user_completed_confirmation, other_user_completed_confirmation,
	user_appealed, other_user_appealed, unsuccessful_at, completed_at, dispute_reason, closed_at,
	version, created_at, updated_at`

// TransactionRepository implements meetup.Repository.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *meetup.Transaction) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO transactions
		(transaction_id, product_id, buyer_id, seller_id, status, meetup_location, meetup_date, proposed_by,
		 buyer_confirmed, seller_confirmed, proposed_at, meetup_day_reached_at, user_completed_confirmation,
		 other_user_completed_confirmation, user_appealed, other_user_appealed, unsuccessful_at, completed_at,
		 dispute_reason, closed_at, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,1,$21,$22)
		RETURNING id, version
	`, tx.TransactionID, tx.ProductID, tx.BuyerID, tx.SellerID, tx.Status, tx.MeetupLocation, tx.MeetupDate, tx.ProposedBy,
		tx.BuyerConfirmed, tx.SellerConfirmed, tx.ProposedAt, tx.MeetupDayReachedAt, tx.UserCompletedConfirmation,
		tx.OtherUserCompletedConfirmation, tx.UserAppealed, tx.OtherUserAppealed, tx.UnsuccessfulAt, tx.CompletedAt,
		tx.DisputeReason, tx.ClosedAt, tx.CreatedAt, tx.UpdatedAt)
	if err := row.Scan(&tx.ID, &tx.Version); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: an open transaction already exists", meetup.ErrConcurrencyConflict)
		}
		return err
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, transactionID uuid.UUID) (*meetup.Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE transaction_id=$1`, transactionID)
	tx, err := scanTransaction(row)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, meetup.ErrNotFound
	}
	return tx, nil
}

// Update is a compare-and-swap on the version column.
func (r *TransactionRepository) Update(ctx context.Context, tx *meetup.Transaction) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE transactions
		SET status=$1, meetup_location=$2, meetup_date=$3, proposed_by=$4, buyer_confirmed=$5, seller_confirmed=$6,
			proposed_at=$7, meetup_day_reached_at=$8, user_completed_confirmation=$9,
			other_user_completed_confirmation=$10, user_appealed=$11, other_user_appealed=$12,
			unsuccessful_at=$13, completed_at=$14, dispute_reason=$15, closed_at=$16,
			updated_at=$17, version=version+1
		WHERE transaction_id=$18 AND version=$19
		RETURNING version
	`, tx.Status, tx.MeetupLocation, tx.MeetupDate, tx.ProposedBy, tx.BuyerConfirmed, tx.SellerConfirmed,
		tx.ProposedAt, tx.MeetupDayReachedAt, tx.UserCompletedConfirmation,
		tx.OtherUserCompletedConfirmation, tx.UserAppealed, tx.OtherUserAppealed,
		tx.UnsuccessfulAt, tx.CompletedAt, tx.DisputeReason, tx.ClosedAt,
		tx.UpdatedAt, tx.TransactionID, tx.Version)

	var version int64
	err := row.Scan(&version)
	switch {
	case err == nil:
		tx.Version = version
		return nil
	case isUniqueViolation(err):
		return fmt.Errorf("%w: an open transaction already exists", meetup.ErrConcurrencyConflict)
	case !errors.Is(err, pgx.ErrNoRows):
		return err
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE transaction_id=$1)`, tx.TransactionID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return meetup.ErrNotFound
	}
	return fmt.Errorf("%w: version %d is stale", meetup.ErrConcurrencyConflict, tx.Version)
}

func (r *TransactionRepository) FindOpen(ctx context.Context, productID *string, buyerID, sellerID string) (*meetup.Transaction, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE COALESCE(product_id, '') = COALESCE($1::text, '') AND buyer_id=$2 AND seller_id=$3 AND closed_at IS NULL
		LIMIT 1
	`, productID, buyerID, sellerID)
	return scanTransaction(row)
}

func (r *TransactionRepository) ListOpenForParticipant(ctx context.Context, actorID string) ([]*meetup.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE closed_at IS NULL AND (buyer_id=$1 OR seller_id=$1)
		ORDER BY id
	`, actorID)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

func (r *TransactionRepository) ListOpen(ctx context.Context, afterID int64, limit int) ([]*meetup.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE closed_at IS NULL AND id > $1
		ORDER BY id
		LIMIT NULLIF($2::int, 0)
	`, afterID, limit)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]*meetup.Transaction, error) {
	defer rows.Close()
	txs := make([]*meetup.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanTransaction(row pgx.Row) (*meetup.Transaction, error) {
	var tx meetup.Transaction
	if err := row.Scan(
		&tx.ID, &tx.TransactionID, &tx.ProductID, &tx.BuyerID, &tx.SellerID, &tx.Status,
		&tx.MeetupLocation, &tx.MeetupDate, &tx.ProposedBy, &tx.BuyerConfirmed, &tx.SellerConfirmed, &tx.ProposedAt,
		&tx.MeetupDayReachedAt, &tx.UserCompletedConfirmation, &tx.OtherUserCompletedConfirmation,
		&tx.UserAppealed, &tx.OtherUserAppealed, &tx.UnsuccessfulAt, &tx.CompletedAt, &tx.DisputeReason, &tx.ClosedAt,
		&tx.Version, &tx.CreatedAt, &tx.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}
