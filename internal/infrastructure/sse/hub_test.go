package sse

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-market/meetup-hub/internal/domain/meetup"
	"github.com/campus-market/meetup-hub/internal/domain/notification"
)

func userClient(id, user string) *notification.SSEClient {
	u := user
	return notification.NewSSEClient(id, &u, nil)
}

func TestHub_BroadcastToUser(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	a := userClient("c1", "b1")
	b := userClient("c2", "s1")
	hub.Register(a)
	hub.Register(b)
	assert.Equal(t, 2, hub.GetClientCount())

	hub.BroadcastToUser("b1", notification.NewSSEMessage("ping", []byte(`{}`)))

	select {
	case msg := <-a.MessageChan:
		assert.Equal(t, "ping", msg.Event)
	default:
		t.Fatal("expected message for b1")
	}
	assert.Empty(t, b.MessageChan)
}

func TestHub_SendToClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := userClient("c1", "b1")
	hub.Register(c)

	assert.ErrorIs(t, hub.SendToClient("missing", notification.NewSSEMessage("x", nil)), notification.ErrClientNotFound)

	for i := 0; i < cap(c.MessageChan); i++ {
		require.NoError(t, hub.SendToClient("c1", notification.NewSSEMessage("x", nil)))
	}
	assert.ErrorIs(t, hub.SendToClient("c1", notification.NewSSEMessage("x", nil)), notification.ErrChannelFull)
}

func TestHub_UnregisterClosesChannel(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := userClient("c1", "b1")
	hub.Register(c)
	hub.Unregister("c1")

	_, open := <-c.MessageChan
	assert.False(t, open)
	assert.Equal(t, 0, hub.GetClientCount())
}

func TestHub_Heartbeat(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	hub.interval = 10 * time.Millisecond
	c := userClient("c1", "b1")
	hub.Register(c)

	hub.Start(context.Background())
	select {
	case msg := <-c.MessageChan:
		assert.Equal(t, eventHeartbeat, msg.Event)
	case <-time.After(time.Second):
		t.Fatal("expected heartbeat")
	}
	hub.Stop()
	assert.Equal(t, 0, hub.GetClientCount())
}

func TestTransactionFeed_PublishesToBothParties(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	b := userClient("c1", "b1")
	s := userClient("c2", "s1")
	other := userClient("c3", "x9")
	for _, c := range []*notification.SSEClient{b, s, other} {
		hub.Register(c)
	}

	tx := meetup.NewTransaction(nil, "b1", "s1", time.Now())
	NewTransactionFeed(hub, zerolog.Nop()).Publish(context.Background(), tx)

	for _, c := range []*notification.SSEClient{b, s} {
		msg := <-c.MessageChan
		assert.Equal(t, notification.EventTransactionUpdated, msg.Event)
		var got meetup.Transaction
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, tx.TransactionID, got.TransactionID)
	}
	assert.Empty(t, other.MessageChan)
}
