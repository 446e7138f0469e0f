package sse

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/campus-market/meetup-hub/internal/domain/meetup"
	"github.com/campus-market/meetup-hub/internal/domain/notification"
)

// TransactionFeed pushes every persisted transaction write to both parties'
// open streams.
type TransactionFeed struct {
	hub    notification.SSEHub
	logger zerolog.Logger
}

func NewTransactionFeed(hub notification.SSEHub, logger zerolog.Logger) *TransactionFeed {
	return &TransactionFeed{hub: hub, logger: logger.With().Str("component", "transaction-feed").Logger()}
}

func (f *TransactionFeed) Publish(ctx context.Context, tx *meetup.Transaction) {
	msg, err := notification.NewJSONMessage(notification.EventTransactionUpdated, tx)
	if err != nil {
		f.logger.Error().Err(err).Str("transactionId", tx.TransactionID.String()).Msg("failed to encode transaction event")
		return
	}
	f.hub.BroadcastToUser(tx.BuyerID, msg)
	f.hub.BroadcastToUser(tx.SellerID, msg)
}
