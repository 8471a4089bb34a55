package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SwapChat/internal/session"
)

func seeded() *Store {
	s := New(42)
	s.Replace([]session.Message{
		{ID: 1, ConversationID: 42, SenderID: 7, Type: session.MessageTypeText, Body: "hi", CreatedOrder: 0},
		{ID: 2, ConversationID: 42, SenderID: 9, Type: session.MessageTypeText, Body: "yo", CreatedOrder: 1},
	})
	return s
}

func TestAppendProvisional_AppearsAtTail(t *testing.T) {
	bodies := []string{"hello", " padded ", "multi\nline", "ü"}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			s := seeded()
			h, err := s.AppendProvisional(body, 7)
			require.NoError(t, err)

			snap := s.Snapshot()
			require.Len(t, snap, 3)
			tail := snap[len(snap)-1]
			assert.Equal(t, body, tail.Body)
			assert.True(t, tail.Provisional())
			assert.Equal(t, int64(42), tail.ConversationID)
			assert.Equal(t, int64(7), tail.SenderID)
			assert.Equal(t, session.MessageTypeText, tail.Type)
			assert.Equal(t, 2, tail.CreatedOrder)
			assert.NotEmpty(t, h.LocalID())
		})
	}
}

func TestAppendProvisional_RejectsBlankBody(t *testing.T) {
	for _, body := range []string{"", "   ", "\t\n"} {
		s := seeded()
		before := s.Snapshot()

		_, err := s.AppendProvisional(body, 7)
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Equal(t, before, s.Snapshot())
		assert.False(t, s.Pending())
	}
}

func TestAppendProvisional_OnlyOnePending(t *testing.T) {
	s := seeded()
	_, err := s.AppendProvisional("first", 7)
	require.NoError(t, err)

	_, err = s.AppendProvisional("second", 7)
	assert.ErrorIs(t, err, ErrProvisionalPending)
	assert.Equal(t, 3, s.Len())
}

func TestConfirm_ReplacesInPlace(t *testing.T) {
	s := seeded()
	h, err := s.AppendProvisional("new", 7)
	require.NoError(t, err)
	lenBefore := s.Len()

	confirmed := session.Message{ID: 3, ConversationID: 42, SenderID: 7, Type: session.MessageTypeText, Body: "new"}
	require.NoError(t, s.Confirm(h, confirmed))

	snap := s.Snapshot()
	assert.Len(t, snap, lenBefore)
	assert.False(t, s.Pending())
	assert.Equal(t, int64(3), snap[2].ID)
	assert.Equal(t, 2, snap[2].CreatedOrder)
	for _, m := range snap {
		assert.False(t, m.Provisional())
	}
}

func TestConfirm_StaleHandle(t *testing.T) {
	s := seeded()
	h, err := s.AppendProvisional("new", 7)
	require.NoError(t, err)
	confirmed := session.Message{ID: 3, ConversationID: 42, SenderID: 7, Body: "new"}

	require.NoError(t, s.Confirm(h, confirmed))
	assert.ErrorIs(t, s.Confirm(h, confirmed), ErrStaleHandle)

	h2, err := s.AppendProvisional("again", 7)
	require.NoError(t, err)
	s.Rollback(h2)
	assert.ErrorIs(t, s.Confirm(h2, confirmed), ErrStaleHandle)

	assert.ErrorIs(t, s.Confirm(Handle{}, confirmed), ErrStaleHandle)
}

func TestConfirm_AfterReplaceWithoutRestore(t *testing.T) {
	s := seeded()
	h, err := s.AppendProvisional("new", 7)
	require.NoError(t, err)

	s.Replace(nil)
	assert.ErrorIs(t, s.Confirm(h, session.Message{ID: 3}), ErrStaleHandle)
}

func TestConfirm_RecordAlreadyLoaded(t *testing.T) {
	s := seeded()
	h, err := s.AppendProvisional("mine", 7)
	require.NoError(t, err)
	mine := session.Message{ID: 3, ConversationID: 42, SenderID: 7, Type: session.MessageTypeText, Body: "mine", CreatedOrder: 2}

	// restored after a load that already contains the committed message
	s.Replace(append(seeded().Snapshot(), mine))
	s.Restore(h)
	require.Equal(t, 4, s.Len())

	require.NoError(t, s.Confirm(h, mine))
	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, int64(3), snap[2].ID)
	assert.False(t, s.Pending())

	// same outcome when the provisional entry was never restored
	h2, err := s.AppendProvisional("again", 7)
	require.NoError(t, err)
	again := session.Message{ID: 4, ConversationID: 42, SenderID: 7, Type: session.MessageTypeText, Body: "again", CreatedOrder: 3}
	s.Replace(append(s.Snapshot()[:3], again))
	require.NoError(t, s.Confirm(h2, again))
	assert.Equal(t, []int64{1, 2, 3, 4}, ids(s.Snapshot()))
	assert.ErrorIs(t, s.Confirm(h2, again), ErrStaleHandle)
}

func ids(msgs []session.Message) []int64 {
	out := make([]int64, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestRollback_RestoresPreviousSequence(t *testing.T) {
	s := seeded()
	before := s.Snapshot()

	h, err := s.AppendProvisional("oops", 7)
	require.NoError(t, err)
	s.Rollback(h)

	assert.Equal(t, before, s.Snapshot())

	// second rollback is a no-op
	s.Rollback(h)
	assert.Equal(t, before, s.Snapshot())
}

func TestRestore_ReappliesAfterReplace(t *testing.T) {
	s := seeded()
	h, err := s.AppendProvisional("in flight", 7)
	require.NoError(t, err)

	s.Replace([]session.Message{
		{ID: 1, ConversationID: 42, SenderID: 7, Body: "hi", CreatedOrder: 0},
		{ID: 2, ConversationID: 42, SenderID: 9, Body: "yo", CreatedOrder: 1},
		{ID: 5, ConversationID: 42, SenderID: 9, Body: "new from peer", CreatedOrder: 2},
	})
	assert.False(t, s.Pending())

	s.Restore(h)
	snap := s.Snapshot()
	require.Len(t, snap, 4)
	assert.Equal(t, "in flight", snap[3].Body)
	assert.Equal(t, 3, snap[3].CreatedOrder)

	require.NoError(t, s.Confirm(h, session.Message{ID: 6, ConversationID: 42, SenderID: 7, Body: "in flight"}))
	assert.Equal(t, int64(6), s.Snapshot()[3].ID)
}

func TestRestore_IgnoresResolvedHandle(t *testing.T) {
	s := seeded()
	h, err := s.AppendProvisional("gone", 7)
	require.NoError(t, err)
	s.Rollback(h)

	s.Restore(h)
	assert.Equal(t, 2, s.Len())
}

func TestReset_DiscardsEverything(t *testing.T) {
	s := seeded()
	h, err := s.AppendProvisional("pending", 7)
	require.NoError(t, err)

	s.Reset(43)
	assert.Equal(t, int64(43), s.ConversationID())
	assert.Zero(t, s.Len())

	s.Restore(h)
	assert.Zero(t, s.Len())
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := seeded()
	snap := s.Snapshot()
	snap[0].Body = "mutated"

	assert.Equal(t, "hi", s.Snapshot()[0].Body)
}
