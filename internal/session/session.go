package session

import "time"

// MessageType is the kind of content a message carries
type MessageType string

const (
	MessageTypeText   MessageType = "TEXT"
	MessageTypeImage  MessageType = "IMAGE"
	MessageTypeSystem MessageType = "SYSTEM"
)

// Valid reports whether t is one of the types the service accepts
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeSystem:
		return true
	}
	return false
}

// Message represents a single conversation message
type Message struct {
	ID             int64 // zero until the service assigns one
	ConversationID int64
	SenderID       int64
	Type           MessageType
	Body           string
	AttachmentURL  string
	CreatedAt      time.Time
	CreatedOrder   int // position in the server sequence
}

// Provisional reports whether the message was created locally and not yet confirmed
func (m Message) Provisional() bool {
	return m.ID == 0
}

// Session represents the active conversation and the local identity viewing it
type Session struct {
	ConversationID int64
	LocalUserID    int64
}

// IsMine reports whether m was authored by the local user
func (s Session) IsMine(m Message) bool {
	return m.SenderID == s.LocalUserID
}
