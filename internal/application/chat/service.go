package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/campus-market/meetup-hub/internal/domain/audit"
	"github.com/campus-market/meetup-hub/internal/domain/chat"
	"github.com/campus-market/meetup-hub/internal/domain/notification"
)

// AuditLogger records conversation history.
type AuditLogger interface {
	Log(ctx context.Context, entry *audit.AuditEntry)
}

// Service persists conversation messages and pushes them to connected
// participants. It is the messaging collaborator of the meetup lifecycle.
type Service struct {
	repo   chat.Repository
	hub    notification.SSEHub
	audit  AuditLogger
	logger zerolog.Logger
}

// NewService creates a new chat service
func NewService(repo chat.Repository, hub notification.SSEHub, auditLogger AuditLogger, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		hub:    hub,
		audit:  auditLogger,
		logger: logger.With().Str("service", "chat").Logger(),
	}
}

// Notify stores a lifecycle message in the conversation for the transaction's
// parties and pushes it to the receiver.
func (s *Service) Notify(ctx context.Context, senderID, receiverID, text string, meta chat.MessageMeta) error {
	if meta.BuyerID == "" || meta.SellerID == "" {
		return errors.New("message meta must name buyer and seller")
	}
	conv, err := s.repo.GetOrCreateConversation(ctx, meta.ProductID, meta.BuyerID, meta.SellerID)
	if err != nil {
		return fmt.Errorf("failed to resolve conversation: %w", err)
	}
	msg, err := chat.NewMessage(conv.ConversationID, senderID, receiverID, text)
	if err != nil {
		return err
	}
	if meta.TransactionID != uuid.Nil {
		txID := meta.TransactionID
		msg.TransactionID = &txID
	}
	if meta.Kind != "" {
		kind := meta.Kind
		msg.Kind = &kind
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	s.push(notification.EventMessageCreated, msg, receiverID)
	if senderID != chat.SystemSender && senderID != receiverID {
		s.push(notification.EventMessageCreated, msg, senderID)
	}

	s.logger.Debug().
		Str("conversationId", conv.ConversationID.String()).
		Str("messageId", msg.MessageID.String()).
		Str("kind", meta.Kind).
		Msg("message delivered")
	return nil
}

// MarkConversationDone closes the conversation to new proposals. Marking an
// already done conversation is a no-op.
func (s *Service) MarkConversationDone(ctx context.Context, productID *string, buyerID, sellerID string) error {
	conv, err := s.repo.GetOrCreateConversation(ctx, productID, buyerID, sellerID)
	if err != nil {
		return fmt.Errorf("failed to resolve conversation: %w", err)
	}
	if !conv.MarkDone(time.Now().UTC()) {
		return nil
	}
	if err := s.repo.UpdateConversation(ctx, conv); err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	s.push(notification.EventConversationDone, conv, conv.BuyerID, conv.SellerID)
	s.record(ctx, "system", conv, "DONE")
	return nil
}

// IsConversationDone reports whether the conversation for the triple is done.
// A conversation that does not exist yet is open.
func (s *Service) IsConversationDone(ctx context.Context, productID *string, buyerID, sellerID string) (bool, error) {
	conv, err := s.repo.FindConversation(ctx, productID, buyerID, sellerID)
	if err != nil {
		return false, err
	}
	return conv != nil && conv.Done, nil
}

// ReopenConversation lets the parties propose again after an expiry.
func (s *Service) ReopenConversation(ctx context.Context, userID string, conversationID uuid.UUID) (*chat.Conversation, error) {
	conv, err := s.participantConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.Done {
		return conv, nil
	}
	conv.Reopen(time.Now().UTC())
	if err := s.repo.UpdateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}
	s.logger.Info().
		Str("conversationId", conv.ConversationID.String()).
		Str("userId", userID).
		Msg("conversation reopened")
	s.record(ctx, "user:"+userID, conv, "REOPEN")
	return conv, nil
}

// ListMessages returns a page of the conversation, oldest first.
func (s *Service) ListMessages(ctx context.Context, userID string, conversationID uuid.UUID, limit, offset int) ([]*chat.Message, error) {
	if _, err := s.participantConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListMessages(ctx, conversationID, limit, offset)
}

func (s *Service) participantConversation(ctx context.Context, userID string, conversationID uuid.UUID) (*chat.Conversation, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, chat.ErrNotParticipant
	}
	return conv, nil
}

func (s *Service) push(event string, payload any, userIDs ...string) {
	if s.hub == nil {
		return
	}
	msg, err := notification.NewJSONMessage(event, payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event", event).Msg("failed to encode SSE payload")
		return
	}
	for _, id := range userIDs {
		s.hub.BroadcastToUser(id, msg)
	}
}

func (s *Service) record(ctx context.Context, actor string, conv *chat.Conversation, event string) {
	if s.audit == nil {
		return
	}
	action := audit.ActionTransition
	if event == "REOPEN" {
		action = audit.ActionReopen
	}
	s.audit.Log(ctx, &audit.AuditEntry{
		EntityType: audit.EntityTypeConversation,
		EntityID:   conv.ConversationID.String(),
		Action:     action,
		Event:      event,
		Actor:      actor,
		NewValues:  conv,
	})
}
