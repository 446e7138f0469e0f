package chat

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for conversations and messages.
type Repository interface {
	// GetOrCreateConversation returns the conversation for the triple, creating
	// it on first use.
	GetOrCreateConversation(ctx context.Context, productID *string, buyerID, sellerID string) (*Conversation, error)
	// FindConversation returns nil when no conversation exists for the triple.
	FindConversation(ctx context.Context, productID *string, buyerID, sellerID string) (*Conversation, error)
	GetConversation(ctx context.Context, conversationID uuid.UUID) (*Conversation, error)
	UpdateConversation(ctx context.Context, conversation *Conversation) error

	CreateMessage(ctx context.Context, message *Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*Message, error)
}
