package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"seraph/internal/logging"
)

// Session is one chat conversation.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one turn inside a session.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStore persists chat sessions and their messages.
type SessionStore struct {
	db     *sql.DB
	logger logging.Logger
	now    func() time.Time
}

func NewSessionStore(s *Store, logger logging.Logger) *SessionStore {
	return &SessionStore{db: s.db, logger: logging.OrNop(logger), now: time.Now}
}

// SetClock overrides the time source. Test hook.
func (s *SessionStore) SetClock(now func() time.Time) { s.now = now }

// CreateSession starts a new conversation.
func (s *SessionStore) CreateSession(ctx context.Context, title string) (Session, error) {
	if title == "" {
		title = "New Conversation"
	}
	now := s.now().UTC()
	sess := Session{ID: uuid.NewString(), Title: title, CreatedAt: now, UpdatedAt: now}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.Title, now, now)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// AppendMessage adds a turn and bumps the session's updated_at.
func (s *SessionStore) AppendMessage(ctx context.Context, sessionID, role, content string) (Message, error) {
	now := s.now().UTC()
	msg := Message{ID: uuid.NewString(), SessionID: sessionID, Role: role, Content: content, CreatedAt: now}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Message{}, fmt.Errorf("begin message append: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.Role, msg.Content, now); err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`, now, sessionID); err != nil {
		return Message{}, fmt.Errorf("touch session: %w", err)
	}
	return msg, tx.Commit()
}

// RecentSessions returns up to limit sessions updated since the given time,
// newest first. The consolidation job uses a one-hour window.
func (s *SessionStore) RecentSessions(ctx context.Context, since time.Time, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, created_at, updated_at FROM sessions
		WHERE updated_at >= ?
		ORDER BY updated_at DESC LIMIT ?`, since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list recent sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Messages returns the turns of a session in chronological order.
func (s *SessionStore) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, created_at FROM messages
		WHERE session_id = ? ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// HistoryText renders a session transcript as "role: content" lines for
// prompt assembly.
func (s *SessionStore) HistoryText(ctx context.Context, sessionID string) (string, error) {
	msgs, err := s.Messages(ctx, sessionID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, msg := range msgs {
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// MessageCountSince reports how many messages were exchanged at or after t.
// Feeds the evening review.
func (s *SessionStore) MessageCountSince(ctx context.Context, t time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE created_at >= ?`, t.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}
