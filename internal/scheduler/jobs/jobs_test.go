package jobs

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"seraph/internal/broadcast"
	"seraph/internal/calendar"
	"seraph/internal/goals"
	"seraph/internal/llm"
	"seraph/internal/observer"
	"seraph/internal/observer/sources"
	"seraph/internal/strategist"
)

type memQueue struct {
	mu    sync.Mutex
	items []observer.Insight
}

func (q *memQueue) Enqueue(_ context.Context, in observer.Insight) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, in)
	return nil
}

func (q *memQueue) Drain(context.Context) ([]observer.Insight, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items, nil
}

func (q *memQueue) Count(context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items), nil
}

func (q *memQueue) Peek(context.Context, int) ([]observer.Insight, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items, nil
}

type memHub struct {
	mu   sync.Mutex
	msgs []broadcast.Message
}

func (h *memHub) Broadcast(msg broadcast.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
}

func (h *memHub) messages() []broadcast.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]broadcast.Message, len(h.msgs))
	copy(out, h.msgs)
	return out
}

type timeSource struct{}

func (timeSource) Name() string { return "time" }
func (timeSource) Gather(context.Context) (sources.Partial, error) {
	return sources.Partial{Time: &sources.TimeInfo{
		TimeOfDay:      sources.TimeMorning,
		DayOfWeek:      "Tuesday",
		IsWorkingHours: true,
	}}, nil
}

func newHarness() (*observer.Manager, *observer.Coordinator, *memHub) {
	m := observer.NewManager([]sources.Source{timeSource{}},
		observer.ManagerConfig{Location: time.UTC, MorningBriefingHour: 8}, nil)
	hub := &memHub{}
	c := observer.NewCoordinator(m, &memQueue{}, hub, nil)
	m.SetBundleDeliverer(c)
	return m, c, hub
}

type fakeGoals struct {
	dash goals.Dashboard
}

func (f fakeGoals) ListActive(context.Context) ([]goals.Goal, error)         { return nil, nil }
func (f fakeGoals) Dashboard(context.Context) (goals.Dashboard, error)       { return f.dash, nil }
func (f fakeGoals) CompletedToday(context.Context, time.Time) ([]goals.Goal, error) {
	return nil, nil
}

func TestGoalCheckBehind(t *testing.T) {
	_, c, hub := newHarness()
	job := &GoalCheck{
		Goals:       fakeGoals{dash: goals.Dashboard{TotalCount: 10, ActiveCount: 8, CompletedCount: 2}},
		Coordinator: c,
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	msgs := hub.messages()
	if len(msgs) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(msgs))
	}
	if msgs[0].State != "goal_behind" {
		t.Errorf("state = %q, want goal_behind", msgs[0].State)
	}
	if msgs[0].InterventionType != observer.TypeAmbient {
		t.Errorf("type = %q, want ambient", msgs[0].InterventionType)
	}
}

func TestGoalCheckOnTrack(t *testing.T) {
	_, c, hub := newHarness()
	job := &GoalCheck{
		Goals:       fakeGoals{dash: goals.Dashboard{TotalCount: 10, ActiveCount: 5, CompletedCount: 5}},
		Coordinator: c,
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	msgs := hub.messages()
	if len(msgs) != 1 || msgs[0].State != "on_track" {
		t.Fatalf("got %+v, want one on_track signal", msgs)
	}
}

func TestGoalCheckNoGoalsIsSilent(t *testing.T) {
	_, c, hub := newHarness()
	job := &GoalCheck{Goals: fakeGoals{}, Coordinator: c}
	if err := job.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(hub.messages()) != 0 {
		t.Error("no goals should produce no signal")
	}
}

type fakeCalendar struct {
	events []calendar.Event
}

func (f fakeCalendar) Events(context.Context, time.Time, time.Time) ([]calendar.Event, error) {
	return f.events, nil
}

func TestCalendarScanImminentWindow(t *testing.T) {
	_, c, hub := newHarness()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	job := &CalendarScan{
		Calendar: fakeCalendar{events: []calendar.Event{
			{Summary: "already running", Start: now.Add(-5 * time.Minute)},
			{Summary: "soon", Start: now.Add(10 * time.Minute)},
			{Summary: "exactly at window", Start: now.Add(imminentWindow)},
		}},
		Coordinator: c,
		Now:         func() time.Time { return now },
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	msgs := hub.messages()
	if len(msgs) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(msgs))
	}
	msg := msgs[0]
	if msg.InterventionType != observer.TypeAlert || msg.Urgency != 4 {
		t.Errorf("type/urgency = %s/%d, want alert/4", msg.InterventionType, msg.Urgency)
	}
	if !strings.Contains(msg.Content, "soon") {
		t.Errorf("content missing imminent event: %s", msg.Content)
	}
	if strings.Contains(msg.Content, "already running") {
		t.Errorf("in-progress event must not alert: %s", msg.Content)
	}
}

func TestCalendarScanQuietWhenNothingImminent(t *testing.T) {
	_, c, hub := newHarness()
	now := time.Now()
	job := &CalendarScan{
		Calendar:    fakeCalendar{events: nil},
		Coordinator: c,
		Now:         func() time.Time { return now },
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(hub.messages()) != 0 {
		t.Error("empty agenda should produce no alert")
	}
}

func TestStrategistTickDispatchesIntervention(t *testing.T) {
	m, c, hub := newHarness()
	mock := llm.NewMockClient(`{"should_intervene": true, "intervention_type": "nudge", "message": "water break", "urgency": 2, "reasoning": "long streak"}`)

	job := &StrategistTick{
		Manager:     m,
		Strategist:  strategist.New(mock, 3, nil),
		Coordinator: c,
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	msgs := hub.messages()
	if len(msgs) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(msgs))
	}
	if msgs[0].Content != "water break" || msgs[0].InterventionType != "nudge" {
		t.Errorf("unexpected message: %+v", msgs[0])
	}
}

func TestStrategistTickSilentWhenNoIntervention(t *testing.T) {
	m, c, hub := newHarness()
	mock := llm.NewMockClient(`{"should_intervene": false, "reasoning": "all quiet"}`)

	job := &StrategistTick{
		Manager:     m,
		Strategist:  strategist.New(mock, 3, nil),
		Coordinator: c,
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(hub.messages()) != 0 {
		t.Error("no-intervention verdict must not broadcast")
	}
}
