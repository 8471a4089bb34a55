package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SwapChat/internal/session"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestConversations(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	conv, err := db.CreateConversation(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), conv.UserAID)
	assert.Equal(t, int64(7), conv.UserBID)
	assert.True(t, conv.HasParticipant(7))
	assert.False(t, conv.HasParticipant(9))

	_, err = db.CreateConversation(ctx, 1, 7)
	assert.ErrorIs(t, err, ErrConflict)

	other, err := db.CreateConversation(ctx, 2, 9)
	require.NoError(t, err)

	got, err := db.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)
	assert.Nil(t, got.LastMessageAt)

	_, err = db.GetConversation(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	mine, err := db.ListConversations(ctx, 9)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, other.ID, mine[0].ID)

	all, err := db.ListConversations(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMessages(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	conv, err := db.CreateConversation(ctx, 7, 9)
	require.NoError(t, err)

	first, err := db.CreateMessage(ctx, session.Message{ConversationID: conv.ID, SenderID: 7, Type: session.MessageTypeText, Body: "hi"})
	require.NoError(t, err)
	assert.Positive(t, first.ID)
	assert.Equal(t, 0, first.CreatedOrder)
	assert.False(t, first.CreatedAt.IsZero())

	second, err := db.CreateMessage(ctx, session.Message{ConversationID: conv.ID, SenderID: 9, Type: session.MessageTypeText, Body: "yo"})
	require.NoError(t, err)
	assert.Equal(t, 1, second.CreatedOrder)

	msgs, err := db.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Body)
	assert.Equal(t, "yo", msgs[1].Body)
	assert.Equal(t, 1, msgs[1].CreatedOrder)
	assert.Empty(t, msgs[0].AttachmentURL)

	got, err := db.GetMessage(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.SenderID)
	assert.Equal(t, session.MessageTypeText, got.Type)

	_, err = db.GetMessage(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := db.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.LastMessageAt)

	empty, err := db.ListMessages(ctx, 12345)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCreateMessage_UnknownConversation(t *testing.T) {
	db := openTestDB(t)

	_, err := db.CreateMessage(context.Background(), session.Message{ConversationID: 404, SenderID: 7, Type: session.MessageTypeText, Body: "x"})
	assert.Error(t, err)
}
