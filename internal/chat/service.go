// Package chat answers user messages with the soul, current context, and
// relevant memories in the prompt.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"seraph/internal/contextwindow"
	"seraph/internal/llm"
	"seraph/internal/logging"
	"seraph/internal/memory"
	"seraph/internal/observer"
	"seraph/internal/store"
)

// Reply is one assistant answer bound to its session.
type Reply struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

// Service handles conversational turns. Every turn counts as user interaction
// for the state machine.
type Service struct {
	sessions *store.SessionStore
	client   llm.Client
	window   *contextwindow.Window
	soul     *memory.Soul
	memory   *memory.Store
	manager  *observer.Manager
	logger   logging.Logger
}

func NewService(sessions *store.SessionStore, client llm.Client, window *contextwindow.Window,
	soul *memory.Soul, mem *memory.Store, manager *observer.Manager, logger logging.Logger) *Service {
	return &Service{
		sessions: sessions,
		client:   client,
		window:   window,
		soul:     soul,
		memory:   mem,
		manager:  manager,
		logger:   logging.OrNop(logger),
	}
}

// Respond appends the user turn, completes a reply, and persists both. An
// empty sessionID starts a new session titled from the message.
func (s *Service) Respond(ctx context.Context, sessionID, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, fmt.Errorf("empty message")
	}

	s.manager.RecordInteraction()

	if sessionID == "" {
		sess, err := s.sessions.CreateSession(ctx, sessionTitle(text))
		if err != nil {
			return Reply{}, err
		}
		sessionID = sess.ID
	}
	if _, err := s.sessions.AppendMessage(ctx, sessionID, "user", text); err != nil {
		return Reply{}, err
	}

	msgs, err := s.buildMessages(ctx, sessionID, text)
	if err != nil {
		return Reply{}, err
	}

	resp, err := s.client.Complete(ctx, llm.Request{Messages: msgs})
	if err != nil {
		return Reply{}, fmt.Errorf("chat completion: %w", err)
	}
	content := strings.TrimSpace(resp.Content)

	if _, err := s.sessions.AppendMessage(ctx, sessionID, "assistant", content); err != nil {
		s.logger.Warn("persisting assistant turn failed: %v", err)
	}
	return Reply{SessionID: sessionID, Content: content}, nil
}

func (s *Service) buildMessages(ctx context.Context, sessionID, latest string) ([]llm.Message, error) {
	var system strings.Builder
	if s.soul != nil {
		if soulText, err := s.soul.Read(); err == nil {
			system.WriteString(soulText)
			system.WriteString("\n\n")
		} else {
			s.logger.Warn("reading soul failed: %v", err)
		}
	}
	system.WriteString("Current context:\n")
	system.WriteString(s.manager.Get().ToPromptBlock(time.Now()))
	if s.memory != nil {
		if memories := s.memory.SearchFormatted(ctx, latest, 5); memories != "" {
			system.WriteString("\n\n")
			system.WriteString(memories)
		}
	}

	history, err := s.sessions.Messages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, llm.Message{Role: "system", Content: system.String()})
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	if s.window != nil {
		msgs = s.window.Fit(msgs)
	}
	return msgs, nil
}

func sessionTitle(text string) string {
	const max = 40
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
