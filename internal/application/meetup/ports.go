package meetup

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_ports.go -package=mocks . Notifier,ChangeFeed,AuditLogger

import (
	"context"

	"github.com/campus-market/meetup-hub/internal/domain/audit"
	"github.com/campus-market/meetup-hub/internal/domain/chat"
	"github.com/campus-market/meetup-hub/internal/domain/meetup"
)

// Notifier delivers lifecycle messages into the buyer/seller conversation.
type Notifier interface {
	Notify(ctx context.Context, senderID, receiverID, text string, meta chat.MessageMeta) error
	MarkConversationDone(ctx context.Context, productID *string, buyerID, sellerID string) error
	IsConversationDone(ctx context.Context, productID *string, buyerID, sellerID string) (bool, error)
}

// ChangeFeed makes persisted writes visible to other observers.
type ChangeFeed interface {
	Publish(ctx context.Context, tx *meetup.Transaction)
}

// AuditLogger records lifecycle history.
type AuditLogger interface {
	Log(ctx context.Context, entry *audit.AuditEntry)
}
