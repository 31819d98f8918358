// Package messagestore is the concrete implementation of the "document
// store with update-by-id" the specification assumes for chat/message
// metadata (§4.8). It is deliberately thin: its job is to make the rest of
// the system runnable, not to specify chat semantics.
package messagestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a chat or message lookup finds nothing.
var ErrNotFound = errors.New("messagestore: not found")

// Role distinguishes the user's message from the assistant's reply.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status is the assistant message's lifecycle state, per the spec's
// Message entity (§3).
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Chat is a minimal conversation container: just enough to let a message be
// created against something.
type Chat struct {
	ID        string
	UserID    string
	CreatedAt time.Time
}

// Interrupt is the optional human-in-the-loop metadata recorded on a
// message left in StatusProcessing after an Interrupted driver run.
type Interrupt struct {
	Question string `json:"question"`
	ThreadID string `json:"thread_id"`
}

// Message is the assistant (or user) message record the driver mutates at
// the transitions named in SPEC_FULL.md §4.5.
type Message struct {
	ID               string
	ChatID           string
	Role             Role
	Content          string
	Status           Status
	Interrupt        *Interrupt
	ProcessingTimeMS int64
	Error            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Store is the PostgreSQL-backed chat/message store.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a Store backed by pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateChat inserts a new chat owned by userID.
func (s *Store) CreateChat(ctx context.Context, userID string) (*Chat, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chats (id, user_id, created_at) VALUES ($1, $2, $3)
	`, id, userID, now)
	if err != nil {
		return nil, fmt.Errorf("messagestore: create chat: %w", err)
	}
	return &Chat{ID: id, UserID: userID, CreatedAt: now}, nil
}

// GetChat fetches a chat by id.
func (s *Store) GetChat(ctx context.Context, chatID string) (*Chat, error) {
	var c Chat
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, created_at FROM chats WHERE id = $1
	`, chatID).Scan(&c.ID, &c.UserID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("messagestore: get chat: %w", err)
	}
	return &c, nil
}

// CreateMessagePair inserts a user message (content, StatusCompleted — it
// needs no further processing) and an empty assistant message
// (StatusPending, to be driven to completion by pkg/driver), matching the
// spec's create-message flow (§2, §6).
func (s *Store) CreateMessagePair(ctx context.Context, chatID, content string) (userMsg, assistantMsg *Message, err error) {
	now := time.Now().UTC()

	userMsg = &Message{
		ID: uuid.NewString(), ChatID: chatID, Role: RoleUser,
		Content: content, Status: StatusCompleted, CreatedAt: now, UpdatedAt: now,
	}
	assistantMsg = &Message{
		ID: uuid.NewString(), ChatID: chatID, Role: RoleAssistant,
		Content: "", Status: StatusPending, CreatedAt: now, UpdatedAt: now,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("messagestore: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, m := range []*Message{userMsg, assistantMsg} {
		_, err = tx.Exec(ctx, `
			INSERT INTO messages (id, chat_id, role, content, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, m.ID, m.ChatID, string(m.Role), m.Content, string(m.Status), m.CreatedAt, m.UpdatedAt)
		if err != nil {
			return nil, nil, fmt.Errorf("messagestore: insert message: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("messagestore: commit tx: %w", err)
	}
	return userMsg, assistantMsg, nil
}

// GetMessage fetches a message by id.
func (s *Store) GetMessage(ctx context.Context, messageID string) (*Message, error) {
	var (
		m         Message
		role      string
		status    string
		interrupt []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, chat_id, role, content, status, interrupt, error, processing_time_ms, created_at, updated_at
		FROM messages WHERE id = $1
	`, messageID).Scan(&m.ID, &m.ChatID, &role, &m.Content, &status, &interrupt, &m.Error, &m.ProcessingTimeMS, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("messagestore: get message: %w", err)
	}
	m.Role = Role(role)
	m.Status = Status(status)
	if len(interrupt) > 0 {
		var it Interrupt
		if err := json.Unmarshal(interrupt, &it); err == nil {
			m.Interrupt = &it
		}
	}
	return &m, nil
}

// SetStatus transitions messageID to status without touching content.
func (s *Store) SetStatus(ctx context.Context, messageID string, status Status) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE messages SET status = $2, updated_at = now() WHERE id = $1
	`, messageID, string(status))
	if err != nil {
		return fmt.Errorf("messagestore: set status: %w", err)
	}
	return nil
}

// Complete marks messageID completed with its final content and processing
// time, per the driver's Completed state (§4.5).
func (s *Store) Complete(ctx context.Context, messageID, content string, processingTimeMS int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE messages
		SET status = $2, content = $3, processing_time_ms = $4, updated_at = now()
		WHERE id = $1
	`, messageID, string(StatusCompleted), content, processingTimeMS)
	if err != nil {
		return fmt.Errorf("messagestore: complete: %w", err)
	}
	return nil
}

// Fail marks messageID failed and records errMsg, per the driver's Failed
// state (§4.5).
func (s *Store) Fail(ctx context.Context, messageID, errMsg string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE messages SET status = $2, error = $3, updated_at = now() WHERE id = $1
	`, messageID, string(StatusFailed), errMsg)
	if err != nil {
		return fmt.Errorf("messagestore: fail: %w", err)
	}
	return nil
}

// Interrupted records interrupt metadata on messageID while leaving it in
// StatusProcessing, per the driver's Interrupted state (§4.5).
func (s *Store) Interrupted(ctx context.Context, messageID string, it Interrupt) error {
	payload, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("messagestore: marshal interrupt: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE messages SET interrupt = $2, updated_at = now() WHERE id = $1
	`, messageID, payload)
	if err != nil {
		return fmt.Errorf("messagestore: interrupted: %w", err)
	}
	return nil
}
