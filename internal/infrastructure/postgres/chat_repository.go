package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-market/meetup-hub/internal/domain/chat"
)

const conversationColumns = `id, conversation_id, product_id, buyer_id, seller_id, done, done_at, created_at, updated_at`

// ChatRepository implements chat.Repository.
type ChatRepository struct {
	pool *pgxpool.Pool
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

func (r *ChatRepository) GetOrCreateConversation(ctx context.Context, productID *string, buyerID, sellerID string) (*chat.Conversation, error) {
	c := chat.NewConversation(productID, buyerID, sellerID)
	// A no-op update makes RETURNING yield the existing row on conflict.
	row := r.pool.QueryRow(ctx, `
		INSERT INTO conversations (conversation_id, product_id, buyer_id, seller_id, done, created_at, updated_at)
		VALUES ($1,$2,$3,$4,false,$5,$6)
		ON CONFLICT ((COALESCE(product_id, '')), buyer_id, seller_id)
		DO UPDATE SET buyer_id=EXCLUDED.buyer_id
		RETURNING `+conversationColumns,
		c.ConversationID, c.ProductID, c.BuyerID, c.SellerID, c.CreatedAt, c.UpdatedAt)
	return scanConversation(row)
}

func (r *ChatRepository) FindConversation(ctx context.Context, productID *string, buyerID, sellerID string) (*chat.Conversation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE COALESCE(product_id, '') = COALESCE($1::text, '') AND buyer_id=$2 AND seller_id=$3
	`, productID, buyerID, sellerID)
	return scanConversation(row)
}

func (r *ChatRepository) GetConversation(ctx context.Context, conversationID uuid.UUID) (*chat.Conversation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE conversation_id=$1`, conversationID)
	c, err := scanConversation(row)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, chat.ErrConversationNotFound
	}
	return c, nil
}

func (r *ChatRepository) UpdateConversation(ctx context.Context, c *chat.Conversation) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE conversations SET done=$1, done_at=$2, updated_at=$3 WHERE conversation_id=$4
	`, c.Done, c.DoneAt, c.UpdatedAt, c.ConversationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return chat.ErrConversationNotFound
	}
	return nil
}

func (r *ChatRepository) CreateMessage(ctx context.Context, m *chat.Message) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO messages (message_id, conversation_id, sender_id, receiver_id, body, transaction_id, kind, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`, m.MessageID, m.ConversationID, m.SenderID, m.ReceiverID, m.Body, m.TransactionID, m.Kind, m.CreatedAt).Scan(&m.ID)
}

func (r *ChatRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*chat.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, message_id, conversation_id, sender_id, receiver_id, body, transaction_id, kind, created_at
		FROM messages WHERE conversation_id=$1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := make([]*chat.Message, 0)
	for rows.Next() {
		var m chat.Message
		if err := rows.Scan(&m.ID, &m.MessageID, &m.ConversationID, &m.SenderID, &m.ReceiverID, &m.Body, &m.TransactionID, &m.Kind, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

func scanConversation(row pgx.Row) (*chat.Conversation, error) {
	var c chat.Conversation
	if err := row.Scan(&c.ID, &c.ConversationID, &c.ProductID, &c.BuyerID, &c.SellerID, &c.Done, &c.DoneAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
