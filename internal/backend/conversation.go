package backend

import (
	"encoding/json"
	"time"
)

// ConversationCreate represents the request body for POST /conversations
type ConversationCreate struct {
	UserAID int64 `json:"user_a_id"`
	UserBID int64 `json:"user_b_id"`
}

// ConversationRead represents a conversation record returned by the service
type ConversationRead struct {
	ConversationID int64      `json:"conversation_id"`
	UserAID        int64      `json:"user_a_id"`
	UserBID        int64      `json:"user_b_id"`
	CreatedAt      time.Time  `json:"created_at"`
	LastMessageAt  *time.Time `json:"last_message_at"`
}

// ErrorResponse represents the error body returned by the service
type ErrorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

// Message returns the detail as text. Structured details are returned verbatim.
func (e ErrorResponse) Message() string {
	if len(e.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Detail, &s); err == nil {
		return s
	}
	return string(e.Detail)
}

// NewErrorResponse builds an error body with a plain text detail
func NewErrorResponse(detail string) ErrorResponse {
	raw, _ := json.Marshal(detail)
	return ErrorResponse{Detail: raw}
}
