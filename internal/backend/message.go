package backend

import (
	"errors"
	"fmt"
	"time"

	"SwapChat/internal/session"
)

// MessageCreate represents the request body for POST /messages
type MessageCreate struct {
	ConversationID int64   `json:"conversation_id"`
	SenderID       int64   `json:"sender_id"`
	MessageType    string  `json:"message_type"`
	Body           string  `json:"body"`
	AttachmentURL  *string `json:"attachment_url"` // null unless an attachment is sent
}

// MessageRead represents a message record returned by the service.
// Required fields are pointers so that missing keys can be told apart from zero values.
type MessageRead struct {
	MessageID      *int64     `json:"message_id"`
	ConversationID *int64     `json:"conversation_id"`
	SenderID       *int64     `json:"sender_id"`
	MessageType    string     `json:"message_type,omitempty"`
	Body           *string    `json:"body"`
	AttachmentURL  *string    `json:"attachment_url"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

// NewMessageCreate builds the wire payload for an outgoing message
func NewMessageCreate(m session.Message) MessageCreate {
	req := MessageCreate{
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		MessageType:    string(m.Type),
		Body:           m.Body,
	}
	if req.MessageType == "" {
		req.MessageType = string(session.MessageTypeText)
	}
	if m.AttachmentURL != "" {
		url := m.AttachmentURL
		req.AttachmentURL = &url
	}
	return req
}

// NewMessageRead builds the wire record for a stored message
func NewMessageRead(m session.Message) MessageRead {
	id, conv, sender, body := m.ID, m.ConversationID, m.SenderID, m.Body
	rec := MessageRead{
		MessageID:      &id,
		ConversationID: &conv,
		SenderID:       &sender,
		MessageType:    string(m.Type),
		Body:           &body,
	}
	if m.AttachmentURL != "" {
		url := m.AttachmentURL
		rec.AttachmentURL = &url
	}
	if !m.CreatedAt.IsZero() {
		created := m.CreatedAt
		rec.CreatedAt = &created
	}
	return rec
}

// Validate checks that the record has the shape of a confirmed message
func (r MessageRead) Validate() error {
	var errs []error
	if r.MessageID == nil {
		errs = append(errs, errors.New("missing message_id"))
	} else if *r.MessageID <= 0 {
		errs = append(errs, fmt.Errorf("invalid message_id %d", *r.MessageID))
	}
	if r.ConversationID == nil {
		errs = append(errs, errors.New("missing conversation_id"))
	}
	if r.SenderID == nil {
		errs = append(errs, errors.New("missing sender_id"))
	}
	if r.Body == nil {
		errs = append(errs, errors.New("missing body"))
	}
	return errors.Join(errs...)
}

// ToMessage converts a validated record into a domain message at the given position
func (r MessageRead) ToMessage(order int) session.Message {
	m := session.Message{
		Type:         session.MessageType(r.MessageType),
		CreatedOrder: order,
	}
	if m.Type == "" {
		m.Type = session.MessageTypeText
	}
	if r.MessageID != nil {
		m.ID = *r.MessageID
	}
	if r.ConversationID != nil {
		m.ConversationID = *r.ConversationID
	}
	if r.SenderID != nil {
		m.SenderID = *r.SenderID
	}
	if r.Body != nil {
		m.Body = *r.Body
	}
	if r.AttachmentURL != nil {
		m.AttachmentURL = *r.AttachmentURL
	}
	if r.CreatedAt != nil {
		m.CreatedAt = *r.CreatedAt
	}
	return m
}
