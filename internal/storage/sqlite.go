// Package storage persists conversations and messages for the reference service.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"SwapChat/internal/session"
)

var (
	// ErrNotFound is returned when a conversation or message does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a conversation between the same two users already exists
	ErrConflict = errors.New("already exists")
)

// Conversation is a two-party conversation. UserAID is always the smaller id.
type Conversation struct {
	ID            int64
	UserAID       int64
	UserBID       int64
	CreatedAt     time.Time
	LastMessageAt *time.Time
}

// HasParticipant reports whether userID takes part in the conversation
func (c Conversation) HasParticipant(userID int64) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// DB wraps the sqlite database
type DB struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the sqlite database at path and applies the schema
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	createConversationsTable := `
	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_a_id INTEGER NOT NULL,
		user_b_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		last_message_at DATETIME,
		UNIQUE(user_a_id, user_b_id)
	);`

	createMessagesTable := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id INTEGER NOT NULL,
		sender_id INTEGER NOT NULL,
		message_type TEXT NOT NULL,
		body TEXT NOT NULL,
		attachment_url TEXT,
		created_at DATETIME NOT NULL,
		FOREIGN KEY(conversation_id) REFERENCES conversations(id)
	);`

	createMessagesIndex := `
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, id);`

	for _, stmt := range []string{createConversationsTable, createMessagesTable, createMessagesIndex} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return &DB{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks the database connection
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// CreateConversation stores a conversation between two users, ordering the pair
func (d *DB) CreateConversation(ctx context.Context, userA, userB int64) (Conversation, error) {
	if userA > userB {
		userA, userB = userB, userA
	}
	created := d.now()

	res, err := d.db.ExecContext(ctx,
		"INSERT INTO conversations (user_a_id, user_b_id, created_at) VALUES (?, ?, ?)",
		userA, userB, created,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return Conversation{}, fmt.Errorf("conversation between %d and %d %w", userA, userB, ErrConflict)
		}
		return Conversation{}, fmt.Errorf("failed to insert conversation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Conversation{}, fmt.Errorf("failed to read conversation id: %w", err)
	}
	return Conversation{ID: id, UserAID: userA, UserBID: userB, CreatedAt: created}, nil
}

// GetConversation loads a conversation by id
func (d *DB) GetConversation(ctx context.Context, id int64) (Conversation, error) {
	row := d.db.QueryRowContext(ctx,
		"SELECT id, user_a_id, user_b_id, created_at, last_message_at FROM conversations WHERE id = ?", id)
	conv, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, fmt.Errorf("conversation %d %w", id, ErrNotFound)
	}
	if err != nil {
		return Conversation{}, fmt.Errorf("failed to load conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns the conversations of userID, or all of them when userID is zero
func (d *DB) ListConversations(ctx context.Context, userID int64) ([]Conversation, error) {
	query := "SELECT id, user_a_id, user_b_id, created_at, last_message_at FROM conversations"
	var args []any
	if userID != 0 {
		query += " WHERE user_a_id = ? OR user_b_id = ?"
		args = append(args, userID, userID)
	}
	query += " ORDER BY id"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	conversations := []Conversation{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

// CreateMessage stores a message and bumps the conversation's last_message_at
func (d *DB) CreateMessage(ctx context.Context, msg session.Message) (session.Message, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return session.Message{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	msg.CreatedAt = d.now()
	var attachment sql.NullString
	if msg.AttachmentURL != "" {
		attachment = sql.NullString{String: msg.AttachmentURL, Valid: true}
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO messages (conversation_id, sender_id, message_type, body, attachment_url, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		msg.ConversationID, msg.SenderID, string(msg.Type), msg.Body, attachment, msg.CreatedAt,
	)
	if err != nil {
		return session.Message{}, fmt.Errorf("failed to insert message: %w", err)
	}
	if msg.ID, err = res.LastInsertId(); err != nil {
		return session.Message{}, fmt.Errorf("failed to read message id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE conversations SET last_message_at = ? WHERE id = ?", msg.CreatedAt, msg.ConversationID,
	); err != nil {
		return session.Message{}, fmt.Errorf("failed to update conversation: %w", err)
	}

	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) - 1 FROM messages WHERE conversation_id = ? AND id <= ?", msg.ConversationID, msg.ID,
	).Scan(&msg.CreatedOrder); err != nil {
		return session.Message{}, fmt.Errorf("failed to compute message position: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return session.Message{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return msg, nil
}

// GetMessage loads a message by id
func (d *DB) GetMessage(ctx context.Context, id int64) (session.Message, error) {
	row := d.db.QueryRowContext(ctx,
		"SELECT id, conversation_id, sender_id, message_type, body, attachment_url, created_at FROM messages WHERE id = ?", id)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Message{}, fmt.Errorf("message %d %w", id, ErrNotFound)
	}
	if err != nil {
		return session.Message{}, fmt.Errorf("failed to load message: %w", err)
	}
	return msg, nil
}

// ListMessages returns the messages of a conversation in insertion order
func (d *DB) ListMessages(ctx context.Context, conversationID int64) ([]session.Message, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT id, conversation_id, sender_id, message_type, body, attachment_url, created_at FROM messages WHERE conversation_id = ? ORDER BY id",
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	messages := []session.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.CreatedOrder = len(messages)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(s scanner) (Conversation, error) {
	var conv Conversation
	var last sql.NullTime
	if err := s.Scan(&conv.ID, &conv.UserAID, &conv.UserBID, &conv.CreatedAt, &last); err != nil {
		return Conversation{}, err
	}
	if last.Valid {
		t := last.Time
		conv.LastMessageAt = &t
	}
	return conv, nil
}

func scanMessage(s scanner) (session.Message, error) {
	var msg session.Message
	var msgType string
	var attachment sql.NullString
	if err := s.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msgType, &msg.Body, &attachment, &msg.CreatedAt); err != nil {
		return session.Message{}, err
	}
	msg.Type = session.MessageType(msgType)
	msg.AttachmentURL = attachment.String
	return msg, nil
}
