package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("user is not a participant of this conversation")
	ErrEmptyMessage         = errors.New("message body is required")
)

// Conversation is the chat thread between a buyer and a seller about a product.
type Conversation struct {
	ID             int64      `json:"id"`
	ConversationID uuid.UUID  `json:"conversationId"`
	ProductID      *string    `json:"productId,omitempty"`
	BuyerID        string     `json:"buyerId"`
	SellerID       string     `json:"sellerId"`
	Done           bool       `json:"done"`
	DoneAt         *time.Time `json:"doneAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// NewConversation creates an open conversation.
func NewConversation(productID *string, buyerID, sellerID string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ConversationID: uuid.New(),
		ProductID:      productID,
		BuyerID:        buyerID,
		SellerID:       sellerID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// HasParticipant reports whether userID is the buyer or the seller.
func (c *Conversation) HasParticipant(userID string) bool {
	return userID != "" && (userID == c.BuyerID || userID == c.SellerID)
}

// MarkDone closes the conversation to new proposals. It reports false when
// the conversation was already done.
func (c *Conversation) MarkDone(now time.Time) bool {
	if c.Done {
		return false
	}
	c.Done = true
	c.DoneAt = &now
	c.UpdatedAt = now
	return true
}

// Reopen allows new proposals again.
func (c *Conversation) Reopen(now time.Time) {
	c.Done = false
	c.DoneAt = nil
	c.UpdatedAt = now
}

// SystemSender is the sender id of lifecycle messages nobody typed.
const SystemSender = "system"

// MessageMeta links a chat message to the transaction event that produced it.
type MessageMeta struct {
	TransactionID uuid.UUID
	Kind          string
	ProductID     *string
	BuyerID       string
	SellerID      string
}

// Message is a single chat message.
type Message struct {
	ID             int64      `json:"id"`
	MessageID      uuid.UUID  `json:"messageId"`
	ConversationID uuid.UUID  `json:"conversationId"`
	SenderID       string     `json:"senderId"`
	ReceiverID     string     `json:"receiverId"`
	Body           string     `json:"body"`
	TransactionID  *uuid.UUID `json:"transactionId,omitempty"`
	Kind           *string    `json:"kind,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// NewMessage builds a message for a conversation.
func NewMessage(conversationID uuid.UUID, senderID, receiverID, body string) (*Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	return &Message{
		MessageID:      uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Body:           body,
		CreatedAt:      time.Now().UTC(),
	}, nil
}
