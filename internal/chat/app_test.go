package chat

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SwapChat/internal/session"
)

func runApp(t *testing.T, tr *fakeTransport, initial *session.Session, input string) (string, *fakeSink) {
	t.Helper()
	c, sink := newTestController(t, tr)
	var out bytes.Buffer

	app := NewApp(c, strings.NewReader(input), &out, nil)
	require.NoError(t, app.Run(context.Background(), initial))
	return out.String(), sink
}

func TestApp_LoadSendAndQuit(t *testing.T) {
	tr := newFakeTransport()

	out, sink := runApp(t, tr, nil, "/load 42 7\n  hello there  \n/whoami\n/quit\nnot sent\n")

	assert.Contains(t, out, "Conversation 42 as user 7")
	assert.Contains(t, out, "Goodbye!")

	_, sends := tr.counts()
	require.Equal(t, 1, sends)
	assert.Equal(t, "hello there", tr.sendCalls[0].Body)
	assert.Equal(t, int64(7), tr.sendCalls[0].SenderID)
	assert.Equal(t, "hello there", sink.last()[2].Text)
}

func TestApp_InitialSessionAndSwitch(t *testing.T) {
	tr := newFakeTransport()

	_, sink := runApp(t, tr, &session.Session{ConversationID: 42, LocalUserID: 7}, "/switch 43\n/reload\n")

	assert.Equal(t, []int64{42, 43, 43}, tr.loadCalls)
	assert.Equal(t, "other chat", sink.last()[0].Text)
}

func TestApp_UsageErrors(t *testing.T) {
	tr := newFakeTransport()

	out, sink := runApp(t, tr, nil, "/load 42\n/load abc 7\n/switch -1\n/bogus\n/help\nhello\n")

	assert.Contains(t, out, "usage: /load")
	assert.Contains(t, out, `invalid id "abc"`)
	assert.Contains(t, out, `invalid id "-1"`)
	assert.Contains(t, out, "unknown command: /bogus")
	assert.Contains(t, out, "Available commands:")

	// sending before loading is surfaced by the controller
	assert.Contains(t, sink.notices, ErrNoSession.Error())
	loads, sends := tr.counts()
	assert.Zero(t, loads)
	assert.Zero(t, sends)
}
