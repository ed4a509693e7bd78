package observer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"seraph/internal/observer/sources"
)

// fakeSource is a scriptable context source.
type fakeSource struct {
	mu      sync.Mutex
	name    string
	partial sources.Partial
	err     error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Gather(context.Context) (sources.Partial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.partial, f.err
}

func (f *fakeSource) set(p sources.Partial, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.partial = p
	f.err = err
}

func morningPartial() sources.Partial {
	return sources.Partial{Time: &sources.TimeInfo{
		TimeOfDay:      sources.TimeMorning,
		DayOfWeek:      "Tuesday",
		IsWorkingHours: true,
	}}
}

type fakeBundler struct {
	calls chan struct{}
}

func (f *fakeBundler) DeliverQueuedBundle(context.Context) (int, error) {
	f.calls <- struct{}{}
	return 1, nil
}

func newTestManager(srcs ...sources.Source) *Manager {
	return NewManager(srcs, ManagerConfig{Location: time.UTC, MorningBriefingHour: 8}, nil)
}

func TestRefreshDataQuality(t *testing.T) {
	timeSrc := &fakeSource{name: "time", partial: morningPartial()}
	calSrc := &fakeSource{name: "calendar", partial: sources.Partial{Calendar: &sources.CalendarInfo{}}}
	m := newTestManager(timeSrc, calSrc)

	got := m.Refresh(context.Background())
	if got.DataQuality != QualityGood {
		t.Errorf("all sources ok: quality %s, want good", got.DataQuality)
	}

	calSrc.set(sources.Partial{}, errors.New("agenda unreadable"))
	got = m.Refresh(context.Background())
	if got.DataQuality != QualityDegraded {
		t.Errorf("one source failed: quality %s, want degraded", got.DataQuality)
	}

	timeSrc.set(sources.Partial{}, errors.New("down"))
	got = m.Refresh(context.Background())
	if got.DataQuality != QualityStale {
		t.Errorf("all sources failed: quality %s, want stale", got.DataQuality)
	}
}

func TestRefreshSourceFailureIsAbsence(t *testing.T) {
	calSrc := &fakeSource{name: "calendar", partial: sources.Partial{
		Calendar: &sources.CalendarInfo{CurrentEvent: "standup"},
	}}
	m := newTestManager(&fakeSource{name: "time", partial: morningPartial()}, calSrc)

	got := m.Refresh(context.Background())
	if got.CurrentEvent != "standup" {
		t.Fatalf("CurrentEvent = %q", got.CurrentEvent)
	}

	calSrc.set(sources.Partial{}, errors.New("boom"))
	got = m.Refresh(context.Background())
	if got.CurrentEvent != "" {
		t.Errorf("failed source should yield absence, got %q", got.CurrentEvent)
	}
}

func TestRefreshPreservesExternallyManagedFields(t *testing.T) {
	m := newTestManager(&fakeSource{name: "time", partial: morningPartial()})
	m.SetInterruptionMode(ModeActive)
	m.ApplySensorPatch(SensorPatch{ActiveWindow: strPtr("Editor")})
	m.RecordInteraction()

	got := m.Refresh(context.Background())
	if got.InterruptionMode != ModeActive {
		t.Errorf("mode lost across refresh: %s", got.InterruptionMode)
	}
	if got.ActiveWindow != "Editor" {
		t.Errorf("sensor field lost across refresh: %q", got.ActiveWindow)
	}
	if got.LastInteraction.IsZero() {
		t.Error("interaction timestamp lost across refresh")
	}
}

func TestBudgetResetOnNewDay(t *testing.T) {
	m := newTestManager(&fakeSource{name: "time", partial: morningPartial()})

	day1 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return day1 })
	m.Refresh(context.Background())
	m.DecrementBudget()
	m.DecrementBudget()
	if got := m.Get().AttentionBudgetRemaining; got != 3 {
		t.Fatalf("budget after spending = %d, want 3", got)
	}

	// Next day, but before the briefing hour: no reset yet.
	day2Early := time.Date(2026, 3, 3, 7, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return day2Early })
	if got := m.Refresh(context.Background()).AttentionBudgetRemaining; got != 3 {
		t.Errorf("budget reset too early: %d", got)
	}

	// Past the briefing hour: reset to the mode default.
	day2 := time.Date(2026, 3, 3, 8, 30, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return day2 })
	if got := m.Refresh(context.Background()).AttentionBudgetRemaining; got != 5 {
		t.Errorf("budget after reset = %d, want 5", got)
	}
}

func TestBudgetResetSameDayCrossingBriefingHour(t *testing.T) {
	m := newTestManager(&fakeSource{name: "time", partial: morningPartial()})

	early := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return early })
	m.Refresh(context.Background())
	m.DecrementBudget()

	later := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return later })
	if got := m.Refresh(context.Background()).AttentionBudgetRemaining; got != 5 {
		t.Errorf("crossing briefing hour same day: budget %d, want 5", got)
	}
}

func TestDecrementBudgetClampsAtZero(t *testing.T) {
	m := newTestManager()
	m.SetInterruptionMode(ModeFocus) // budget 0
	m.DecrementBudget()
	if got := m.Get().AttentionBudgetRemaining; got != 0 {
		t.Errorf("budget went negative: %d", got)
	}
}

func TestSetInterruptionModeResetsBudget(t *testing.T) {
	m := newTestManager()
	m.DecrementBudget()
	m.SetInterruptionMode(ModeBalanced)
	if got := m.Get().AttentionBudgetRemaining; got != 5 {
		t.Errorf("budget after mode set = %d, want 5", got)
	}
	m.SetInterruptionMode(ModeActive)
	if got := m.Get().AttentionBudgetRemaining; got != 15 {
		t.Errorf("budget after switch to active = %d, want 15", got)
	}
}

func TestTransitionTriggersDrain(t *testing.T) {
	calSrc := &fakeSource{name: "calendar", partial: sources.Partial{
		Calendar: &sources.CalendarInfo{CurrentEvent: "standup"},
	}}
	m := newTestManager(&fakeSource{name: "time", partial: morningPartial()}, calSrc)
	bundler := &fakeBundler{calls: make(chan struct{}, 4)}
	m.SetBundleDeliverer(bundler)
	m.RecordInteraction()

	got := m.Refresh(context.Background())
	if got.UserState != StateInMeeting {
		t.Fatalf("state = %s, want in_meeting", got.UserState)
	}

	calSrc.set(sources.Partial{Calendar: &sources.CalendarInfo{}}, nil)
	got = m.Refresh(context.Background())
	if got.UserState != StateTransitioning {
		t.Fatalf("state = %s, want transitioning", got.UserState)
	}

	select {
	case <-bundler.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("blocked->unblocked transition never drained the queue")
	}
}

func TestNoDrainWithoutTransition(t *testing.T) {
	m := newTestManager(&fakeSource{name: "time", partial: morningPartial()})
	bundler := &fakeBundler{calls: make(chan struct{}, 4)}
	m.SetBundleDeliverer(bundler)
	m.RecordInteraction()

	m.Refresh(context.Background())
	m.Refresh(context.Background())

	select {
	case <-bundler.calls:
		t.Fatal("drain spawned without a blocked->unblocked transition")
	case <-time.After(100 * time.Millisecond):
	}
}
