package notification

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySender_Send(t *testing.T) {
	sender := NewMemorySender("orders@shophub.com", zerolog.Nop())

	err := sender.Send(context.Background(), "maria@example.com", "Order Confirmed - ORD-1", "body")

	require.NoError(t, err)
	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "maria@example.com", sent[0].To)
	assert.Equal(t, "Order Confirmed - ORD-1", sent[0].Subject)
	assert.Equal(t, "orders@shophub.com", sent[0].From)
	assert.NotEmpty(t, sent[0].MessageID)
	assert.False(t, sent[0].SentAt.IsZero())
}

func TestMemorySender_RejectsEmptyRecipient(t *testing.T) {
	sender := NewMemorySender("", zerolog.Nop())

	err := sender.Send(context.Background(), "", "subject", "body")

	require.Error(t, err)
	assert.Empty(t, sender.Sent())
}

func TestMemorySender_DefaultFrom(t *testing.T) {
	sender := NewMemorySender("", zerolog.Nop())

	require.NoError(t, sender.Send(context.Background(), "a@example.com", "s", "b"))

	assert.Equal(t, "noreply@shophub.com", sender.Sent()[0].From)
}

func TestMemorySender_Clear(t *testing.T) {
	sender := NewMemorySender("", zerolog.Nop())
	require.NoError(t, sender.Send(context.Background(), "a@example.com", "s", "b"))

	sender.Clear()

	assert.Empty(t, sender.Sent())
}
