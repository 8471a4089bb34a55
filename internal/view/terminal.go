package view

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// TerminalSink draws a conversation window into a terminal
type TerminalSink struct {
	mu     sync.Mutex
	out    io.Writer
	width  int
	height int // number of items in the visible window

	items        []RenderItem
	scrollOffset int

	sentStyle     lipgloss.Style
	receivedStyle lipgloss.Style
	pendingStyle  lipgloss.Style
	noticeStyle   lipgloss.Style
	headerStyle   lipgloss.Style
}

// NewTerminalSink creates a sink that writes to out.
// Non-positive sizes fall back to a 72x20 window.
func NewTerminalSink(out io.Writer, width, height int) *TerminalSink {
	if width <= 0 {
		width = 72
	}
	if height <= 0 {
		height = 20
	}

	r := lipgloss.NewRenderer(out)
	bubble := r.NewStyle().Width(width).Padding(0, 1)
	return &TerminalSink{
		out:           out,
		width:         width,
		height:        height,
		sentStyle:     bubble.Align(lipgloss.Right).Foreground(lipgloss.Color("39")),
		receivedStyle: bubble.Align(lipgloss.Left).Foreground(lipgloss.Color("252")),
		pendingStyle:  bubble.Align(lipgloss.Right).Foreground(lipgloss.Color("240")).Italic(true),
		noticeStyle:   r.NewStyle().Foreground(lipgloss.Color("203")).Padding(0, 1),
		headerStyle:   r.NewStyle().Foreground(lipgloss.Color("244")).Padding(0, 1),
	}
}

// Render replaces the items shown by the sink. Nothing is drawn until ScrollToLatest.
func (t *TerminalSink) Render(items []RenderItem) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.items = make([]RenderItem, len(items))
	copy(t.items, items)
	if t.scrollOffset > len(t.items) {
		t.scrollOffset = 0
	}
}

// ScrollToLatest anchors the window at the newest item and draws it
func (t *TerminalSink) ScrollToLatest() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.scrollOffset = 0
	if len(t.items) > t.height {
		t.scrollOffset = len(t.items) - t.height
	}
	t.draw()
}

// Notice writes a status line below the window
func (t *TerminalSink) Notice(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintln(t.out, t.noticeStyle.Render(text))
}

func (t *TerminalSink) draw() {
	var b strings.Builder

	if t.scrollOffset > 0 {
		b.WriteString(t.headerStyle.Render(fmt.Sprintf("… %d earlier messages", t.scrollOffset)))
		b.WriteString("\n")
	}
	if len(t.items) == 0 {
		b.WriteString(t.headerStyle.Render("No messages yet."))
		b.WriteString("\n")
	}

	for _, item := range t.items[t.scrollOffset:] {
		b.WriteString(t.styleFor(item).Render(item.Text))
		b.WriteString("\n")
	}

	io.WriteString(t.out, b.String())
}

func (t *TerminalSink) styleFor(item RenderItem) lipgloss.Style {
	switch {
	case item.Pending:
		return t.pendingStyle
	case item.Role == RoleSent:
		return t.sentStyle
	default:
		return t.receivedStyle
	}
}
