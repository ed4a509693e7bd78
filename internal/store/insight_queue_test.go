package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"seraph/internal/observer"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestQueueDrainOrdering(t *testing.T) {
	q := NewInsightQueue(openTestStore(t), nil)
	ctx := context.Background()
	now := time.Now().UTC()

	insights := []observer.Insight{
		{Content: "old low", Urgency: 2, CreatedAt: now.Add(-3 * time.Hour)},
		{Content: "new low", Urgency: 2, CreatedAt: now.Add(-time.Minute)},
		{Content: "high", Urgency: 4, CreatedAt: now.Add(-time.Hour)},
	}
	for _, in := range insights {
		if err := q.Enqueue(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	got, err := q.Drain(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("drained %d, want 3", len(got))
	}
	wantOrder := []string{"high", "old low", "new low"}
	for i, want := range wantOrder {
		if got[i].Content != want {
			t.Errorf("position %d = %q, want %q", i, got[i].Content, want)
		}
	}
}

func TestQueueDrainTwiceIsEmpty(t *testing.T) {
	q := NewInsightQueue(openTestStore(t), nil)
	ctx := context.Background()

	if err := q.Enqueue(ctx, observer.Insight{Content: "once", Urgency: 3}); err != nil {
		t.Fatal(err)
	}
	first, err := q.Drain(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 {
		t.Fatalf("first drain = %d items, want 1", len(first))
	}

	second, err := q.Drain(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 0 {
		t.Errorf("second drain = %d items, want 0", len(second))
	}
}

func TestQueueExpiryBoundary(t *testing.T) {
	q := NewInsightQueue(openTestStore(t), nil)
	ctx := context.Background()

	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	q.SetClock(func() time.Time { return base })

	// Exactly 24h old is already expired; one second fresher survives.
	if err := q.Enqueue(ctx, observer.Insight{Content: "expired", Urgency: 3, CreatedAt: base.Add(-expiryWindow)}); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(ctx, observer.Insight{Content: "fresh", Urgency: 3, CreatedAt: base.Add(-expiryWindow + time.Second)}); err != nil {
		t.Fatal(err)
	}

	n, err := q.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}

	got, err := q.Drain(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Content != "fresh" {
		t.Fatalf("drain = %+v, want only the fresh item", got)
	}

	// Expired rows were deleted by the drain, not just filtered.
	var total int
	if err := q.db.QueryRow(`SELECT COUNT(*) FROM queued_insights`).Scan(&total); err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Errorf("rows left after drain = %d, want 0", total)
	}
}

func TestQueuePeekDoesNotConsume(t *testing.T) {
	q := NewInsightQueue(openTestStore(t), nil)
	ctx := context.Background()

	for _, content := range []string{"a", "b", "c"} {
		if err := q.Enqueue(ctx, observer.Insight{Content: content, Urgency: 3}); err != nil {
			t.Fatal(err)
		}
	}

	peeked, err := q.Peek(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(peeked) != 2 {
		t.Fatalf("peek = %d items, want 2", len(peeked))
	}

	n, err := q.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("count after peek = %d, want 3", n)
	}
}

func TestEnqueueAssignsIDAndTimestamp(t *testing.T) {
	q := NewInsightQueue(openTestStore(t), nil)
	ctx := context.Background()

	if err := q.Enqueue(ctx, observer.Insight{Content: "bare", Urgency: 3}); err != nil {
		t.Fatal(err)
	}
	got, err := q.Drain(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("drain = %d items", len(got))
	}
	if got[0].ID == "" {
		t.Error("ID not assigned")
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped")
	}
}
