package backend

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SwapChat/internal/session"
)

func TestNewMessageCreate(t *testing.T) {
	req := NewMessageCreate(session.Message{ConversationID: 42, SenderID: 7, Body: "hi"})
	raw, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"conversation_id":42,"sender_id":7,"message_type":"TEXT","body":"hi","attachment_url":null}`, string(raw))

	req = NewMessageCreate(session.Message{ConversationID: 42, SenderID: 7, Type: session.MessageTypeImage, Body: "pic", AttachmentURL: "https://cdn/x.png"})
	require.NotNil(t, req.AttachmentURL)
	assert.Equal(t, "https://cdn/x.png", *req.AttachmentURL)
	assert.Equal(t, "IMAGE", req.MessageType)
}

func TestMessageRead_Validate(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr string
	}{
		{"complete", `{"message_id":1,"conversation_id":42,"sender_id":7,"body":"hi"}`, ""},
		{"missing id", `{"conversation_id":42,"sender_id":7,"body":"hi"}`, "missing message_id"},
		{"zero id", `{"message_id":0,"conversation_id":42,"sender_id":7,"body":"hi"}`, "invalid message_id"},
		{"missing body", `{"message_id":1,"conversation_id":42,"sender_id":7}`, "missing body"},
		{"empty object", `{}`, "missing sender_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec MessageRead
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &rec))
			err := rec.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestMessageRead_ToMessage(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := NewMessageRead(session.Message{ID: 5, ConversationID: 42, SenderID: 9, Type: session.MessageTypeText, Body: "yo", CreatedAt: created})
	require.NoError(t, rec.Validate())

	m := rec.ToMessage(3)
	assert.Equal(t, int64(5), m.ID)
	assert.Equal(t, int64(9), m.SenderID)
	assert.Equal(t, "yo", m.Body)
	assert.Equal(t, 3, m.CreatedOrder)
	assert.True(t, created.Equal(m.CreatedAt))

	var bare MessageRead
	require.NoError(t, json.Unmarshal([]byte(`{"message_id":1,"conversation_id":42,"sender_id":7,"body":""}`), &bare))
	assert.Equal(t, session.MessageTypeText, bare.ToMessage(0).Type)
}

func TestErrorResponse_Message(t *testing.T) {
	var plain ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(`{"detail":"Conversation not found"}`), &plain))
	assert.Equal(t, "Conversation not found", plain.Message())

	var structured ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(`{"detail":[{"loc":["body"],"msg":"too short"}]}`), &structured))
	assert.Contains(t, structured.Message(), "too short")

	assert.Empty(t, ErrorResponse{}.Message())
	assert.Equal(t, "boom", NewErrorResponse("boom").Message())
}
