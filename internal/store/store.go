// Package store holds the ordered message sequence of the active conversation.
//
// The sequence is exactly what the service returned on the last successful load,
// optionally followed by one provisional message that has not been confirmed yet.
// A Store is not safe for concurrent use; the chat controller serializes access.
package store

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"SwapChat/internal/session"
)

var (
	// ErrInvalidInput is returned when an outgoing body is empty after trimming
	ErrInvalidInput = errors.New("message body must not be empty")

	// ErrStaleHandle is returned when a handle no longer refers to the provisional entry
	ErrStaleHandle = errors.New("provisional message already resolved")

	// ErrProvisionalPending is returned when a second provisional entry is appended
	ErrProvisionalPending = errors.New("a provisional message is already pending")
)

type provisional struct {
	localID  string
	msg      session.Message
	resolved bool
}

// Handle identifies one provisional message. The zero Handle refers to nothing.
type Handle struct {
	p *provisional
}

// LocalID returns the client-side identifier of the provisional message
func (h Handle) LocalID() string {
	if h.p == nil {
		return ""
	}
	return h.p.localID
}

// Message returns the provisional message as it was appended
func (h Handle) Message() session.Message {
	if h.p == nil {
		return session.Message{}
	}
	return h.p.msg
}

// Store is the single source of truth for the messages of one conversation
type Store struct {
	conversationID int64
	confirmed      []session.Message
	pending        *provisional
}

// New creates an empty store for the given conversation
func New(conversationID int64) *Store {
	return &Store{conversationID: conversationID}
}

// ConversationID returns the conversation this store currently holds
func (s *Store) ConversationID() int64 {
	return s.conversationID
}

// Reset empties the store and rebinds it to another conversation
func (s *Store) Reset(conversationID int64) {
	s.conversationID = conversationID
	s.confirmed = nil
	s.discardPending()
}

// Replace sets the sequence to exactly messages and drops any provisional entry.
// The handle of a dropped entry stays unresolved so it can be restored.
func (s *Store) Replace(messages []session.Message) {
	s.confirmed = make([]session.Message, len(messages))
	copy(s.confirmed, messages)
	s.pending = nil
}

// AppendProvisional appends an unconfirmed TEXT message at the tail
func (s *Store) AppendProvisional(body string, senderID int64) (Handle, error) {
	if strings.TrimSpace(body) == "" {
		return Handle{}, ErrInvalidInput
	}
	if s.pending != nil {
		return Handle{}, ErrProvisionalPending
	}

	p := &provisional{
		localID: uuid.NewString(),
		msg: session.Message{
			ConversationID: s.conversationID,
			SenderID:       senderID,
			Type:           session.MessageTypeText,
			Body:           body,
			CreatedOrder:   len(s.confirmed),
		},
	}
	s.pending = p
	return Handle{p: p}, nil
}

// Confirm swaps the provisional entry for its server-confirmed counterpart in place.
// If a load already brought the confirmed record in, the provisional entry is dropped.
func (s *Store) Confirm(h Handle, confirmed session.Message) error {
	if h.p == nil || h.p.resolved {
		return ErrStaleHandle
	}
	if s.contains(confirmed.ID) {
		h.p.resolved = true
		if s.pending == h.p {
			s.pending = nil
		}
		return nil
	}
	if s.pending != h.p {
		return ErrStaleHandle
	}

	confirmed.CreatedOrder = len(s.confirmed)
	s.confirmed = append(s.confirmed, confirmed)
	h.p.resolved = true
	s.pending = nil
	return nil
}

// Rollback removes the provisional entry. Resolved handles are ignored.
func (s *Store) Rollback(h Handle) {
	if h.p == nil || h.p.resolved {
		return
	}
	h.p.resolved = true
	if s.pending == h.p {
		s.pending = nil
	}
}

// Restore puts an unresolved provisional entry back at the tail after a Replace
func (s *Store) Restore(h Handle) {
	if h.p == nil || h.p.resolved || s.pending != nil {
		return
	}
	h.p.msg.CreatedOrder = len(s.confirmed)
	s.pending = h.p
}

// Pending reports whether a provisional entry is present
func (s *Store) Pending() bool {
	return s.pending != nil
}

// Len returns the number of messages in the snapshot
func (s *Store) Len() int {
	if s.pending != nil {
		return len(s.confirmed) + 1
	}
	return len(s.confirmed)
}

// Snapshot returns a copy of the current ordered view
func (s *Store) Snapshot() []session.Message {
	out := make([]session.Message, 0, s.Len())
	out = append(out, s.confirmed...)
	if s.pending != nil {
		out = append(out, s.pending.msg)
	}
	return out
}

func (s *Store) contains(id int64) bool {
	if id <= 0 {
		return false
	}
	for _, m := range s.confirmed {
		if m.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) discardPending() {
	if s.pending != nil {
		s.pending.resolved = true
		s.pending = nil
	}
}
