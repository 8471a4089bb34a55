// Package view turns the message sequence into renderable items and hands them
// to a write-only sink. It never reads state back from the sink.
package view

import "SwapChat/internal/session"

// Role tells the sink which side of the conversation an item belongs to
type Role string

const (
	RoleSent     Role = "sent"
	RoleReceived Role = "received"
)

// RenderItem is one message as the sink sees it
type RenderItem struct {
	Text    string
	Role    Role
	Pending bool // not yet confirmed by the service
}

// Project classifies each message against the local identity, preserving order
func Project(sess session.Session, messages []session.Message) []RenderItem {
	items := make([]RenderItem, len(messages))
	for i, m := range messages {
		role := RoleReceived
		if sess.IsMine(m) {
			role = RoleSent
		}
		items[i] = RenderItem{
			Text:    m.Body,
			Role:    role,
			Pending: m.Provisional(),
		}
	}
	return items
}

// Sink is the external render target
type Sink interface {
	// Render replaces whatever the sink shows with items
	Render(items []RenderItem)

	// ScrollToLatest makes the newest item visible
	ScrollToLatest()

	// Notice shows a transient status line such as a loading hint or an error
	Notice(text string)
}

// Binder renders projected messages into a Sink
type Binder struct {
	sink Sink
}

// NewBinder creates a new Binder for sink
func NewBinder(sink Sink) *Binder {
	return &Binder{sink: sink}
}

// Render projects messages and pushes them to the sink, then scrolls to the newest one
func (b *Binder) Render(sess session.Session, messages []session.Message) {
	b.sink.Render(Project(sess, messages))
	b.sink.ScrollToLatest()
}

// Notice forwards a status line to the sink
func (b *Binder) Notice(text string) {
	b.sink.Notice(text)
}
