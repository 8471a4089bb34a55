package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"SwapChat/internal/session"
)

// Fingerprint identifies what a render of messages for sess would show.
// Two equal fingerprints produce identical output.
func Fingerprint(sess session.Session, messages []session.Message) string {
	h := sha256.New()
	var buf [8]byte
	writeInt := func(v int64) {
		binary.BigEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}

	writeInt(sess.ConversationID)
	writeInt(sess.LocalUserID)
	for _, msg := range messages {
		writeInt(msg.ID)
		writeInt(msg.SenderID)
		writeInt(int64(len(msg.Body)))
		h.Write([]byte(msg.Body))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// RenderCache remembers the last fingerprint drawn so repeated identical renders can be skipped
type RenderCache struct {
	last string
}

// Changed reports whether fp differs from the last stored fingerprint and stores it
func (c *RenderCache) Changed(fp string) bool {
	if fp == c.last {
		return false
	}
	c.last = fp
	return true
}

// Invalidate forces the next Changed call to report true
func (c *RenderCache) Invalidate() {
	c.last = ""
}
