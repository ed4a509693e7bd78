package store

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestSessionRoundTrip(t *testing.T) {
	s := NewSessionStore(openTestStore(t), nil)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, "planning")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AppendMessage(ctx, sess.ID, "user", "what's on today?"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AppendMessage(ctx, sess.ID, "assistant", "two meetings and a focus block"); err != nil {
		t.Fatal(err)
	}

	msgs, err := s.Messages(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("message order wrong: %s, %s", msgs[0].Role, msgs[1].Role)
	}

	text, err := s.HistoryText(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "user: what's on today?") {
		t.Errorf("transcript missing user line:\n%s", text)
	}
}

func TestRecentSessionsWindow(t *testing.T) {
	s := NewSessionStore(openTestStore(t), nil)
	ctx := context.Background()

	old := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return old })
	if _, err := s.CreateSession(ctx, "stale"); err != nil {
		t.Fatal(err)
	}

	recent := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return recent })
	fresh, err := s.CreateSession(ctx, "fresh")
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.RecentSessions(ctx, recent.Add(-time.Hour), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != fresh.ID {
		t.Fatalf("recent sessions = %+v, want only the fresh one", got)
	}
}

func TestAppendBumpsSessionUpdatedAt(t *testing.T) {
	s := NewSessionStore(openTestStore(t), nil)
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return created })
	sess, err := s.CreateSession(ctx, "long-running")
	if err != nil {
		t.Fatal(err)
	}

	later := created.Add(48 * time.Hour)
	s.SetClock(func() time.Time { return later })
	if _, err := s.AppendMessage(ctx, sess.ID, "user", "still here"); err != nil {
		t.Fatal(err)
	}

	got, err := s.RecentSessions(ctx, later.Add(-time.Hour), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("an appended-to session should be recent again, got %d", len(got))
	}
}

func TestMessageCountSince(t *testing.T) {
	s := NewSessionStore(openTestStore(t), nil)
	ctx := context.Background()

	yesterday := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	today := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	s.SetClock(func() time.Time { return yesterday })
	sess, err := s.CreateSession(ctx, "mixed")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AppendMessage(ctx, sess.ID, "user", "old"); err != nil {
		t.Fatal(err)
	}

	s.SetClock(func() time.Time { return today })
	if _, err := s.AppendMessage(ctx, sess.ID, "user", "new"); err != nil {
		t.Fatal(err)
	}

	dayStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	n, err := s.MessageCountSince(ctx, dayStart)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}
