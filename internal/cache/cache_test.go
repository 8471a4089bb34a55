package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"SwapChat/internal/session"
)

func TestFingerprint(t *testing.T) {
	sess := session.Session{ConversationID: 42, LocalUserID: 7}
	msgs := []session.Message{{ID: 1, SenderID: 7, Body: "hi"}, {ID: 2, SenderID: 9, Body: "yo"}}

	base := Fingerprint(sess, msgs)
	assert.Equal(t, base, Fingerprint(sess, append([]session.Message(nil), msgs...)))

	// provisional vs confirmed differ by id
	assert.NotEqual(t, base, Fingerprint(sess, []session.Message{msgs[0], {SenderID: 9, Body: "yo"}}))
	// identity changes the classification
	assert.NotEqual(t, base, Fingerprint(session.Session{ConversationID: 42, LocalUserID: 9}, msgs))
	// body boundaries are part of the hash
	assert.NotEqual(t,
		Fingerprint(sess, []session.Message{{Body: "ab"}, {Body: "c"}}),
		Fingerprint(sess, []session.Message{{Body: "a"}, {Body: "bc"}}))
}

func TestRenderCache(t *testing.T) {
	var c RenderCache

	assert.True(t, c.Changed("a"))
	assert.False(t, c.Changed("a"))
	assert.True(t, c.Changed("b"))

	c.Invalidate()
	assert.True(t, c.Changed("b"))
}
