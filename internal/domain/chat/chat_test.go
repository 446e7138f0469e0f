package chat

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversation_MarkDone(t *testing.T) {
	product := "p1"
	c := NewConversation(&product, "b1", "s1")
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

	assert.True(t, c.MarkDone(now))
	assert.True(t, c.Done)
	assert.Equal(t, now, *c.DoneAt)

	assert.False(t, c.MarkDone(now.Add(time.Hour)), "already done")
	assert.Equal(t, now, *c.DoneAt)

	c.Reopen(now.Add(2 * time.Hour))
	assert.False(t, c.Done)
	assert.Nil(t, c.DoneAt)
}

func TestConversation_HasParticipant(t *testing.T) {
	c := NewConversation(nil, "b1", "s1")
	assert.True(t, c.HasParticipant("b1"))
	assert.True(t, c.HasParticipant("s1"))
	assert.False(t, c.HasParticipant("x9"))
	assert.False(t, c.HasParticipant(""))
}

func TestNewMessage(t *testing.T) {
	convID := uuid.New()

	msg, err := NewMessage(convID, "b1", "s1", "  see you at Gate 1  ")
	require.NoError(t, err)
	assert.Equal(t, "see you at Gate 1", msg.Body)
	assert.Equal(t, convID, msg.ConversationID)
	assert.NotEqual(t, uuid.Nil, msg.MessageID)

	_, err = NewMessage(convID, "b1", "s1", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}
