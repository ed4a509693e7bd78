package observer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"seraph/internal/async"
	"seraph/internal/logging"
	"seraph/internal/observer/sources"
)

// BundleDeliverer drains the insight queue into a single bundle message. The
// delivery coordinator implements it; the indirection keeps the manager free
// of delivery concerns.
type BundleDeliverer interface {
	DeliverQueuedBundle(ctx context.Context) (int, error)
}

// ManagerConfig holds the knobs the manager needs at refresh time.
type ManagerConfig struct {
	Location            *time.Location
	MorningBriefingHour int
}

// Manager owns the single CurrentContext for the process. Reads are lock-free
// against the last published snapshot; every mutation happens under one lock
// and republishes a fresh immutable value.
type Manager struct {
	mu        sync.Mutex
	published atomic.Pointer[CurrentContext]

	sources []sources.Source
	machine StateMachine
	cfg     ManagerConfig
	logger  logging.Logger
	now     func() time.Time

	bundler         BundleDeliverer
	transitionEpoch atomic.Uint64
}

// NewManager creates a Manager over the given sources with the startup context.
func NewManager(srcs []sources.Source, cfg ManagerConfig, logger logging.Logger) *Manager {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	m := &Manager{
		sources: srcs,
		cfg:     cfg,
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}
	initial := NewContext()
	m.published.Store(&initial)
	return m
}

// SetBundleDeliverer wires the delivery coordinator in after construction.
func (m *Manager) SetBundleDeliverer(b BundleDeliverer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bundler = b
}

// SetClock overrides the time source. Test hook.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Get returns the current snapshot without blocking on refreshes.
func (m *Manager) Get() CurrentContext {
	return *m.published.Load()
}

// Refresh rebuilds the context from all sources. Refreshes are totally
// ordered: the lock covers the whole source fan-out and the publish.
func (m *Manager) Refresh(ctx context.Context) CurrentContext {
	m.mu.Lock()
	defer m.mu.Unlock()

	old := *m.published.Load()
	now := m.now()

	partials, succeeded := m.gather(ctx)

	next := NewContext()

	// Carry externally-managed fields across the rebuild.
	next.LastInteraction = old.LastInteraction
	next.InterruptionMode = old.InterruptionMode
	next.CaptureMode = old.CaptureMode
	next.AttentionBudgetRemaining = old.AttentionBudgetRemaining
	next.AttentionBudgetLastReset = old.AttentionBudgetLastReset
	next.ActiveWindow = old.ActiveWindow
	next.ScreenContext = old.ScreenContext
	next.LastSensorPost = old.LastSensorPost
	next.PreviousUserState = old.UserState

	for _, p := range partials {
		if p.Time != nil {
			next.TimeOfDay = p.Time.TimeOfDay
			next.DayOfWeek = p.Time.DayOfWeek
			next.IsWorkingHours = p.Time.IsWorkingHours
		}
		if p.Calendar != nil {
			next.UpcomingEvents = p.Calendar.UpcomingEvents
			next.CurrentEvent = p.Calendar.CurrentEvent
		}
		if p.VCS != nil {
			next.RecentActivity = p.VCS.RecentActivity
		}
		if p.Goals != nil {
			next.ActiveGoalsSummary = p.Goals.Summary
		}
	}

	switch {
	case succeeded == len(m.sources):
		next.DataQuality = QualityGood
	case succeeded > 0:
		next.DataQuality = QualityDegraded
	default:
		next.DataQuality = QualityStale
	}

	next.UserState = m.machine.Derive(DeriveInput{
		CurrentEvent:    next.CurrentEvent,
		PreviousState:   next.PreviousUserState,
		TimeOfDay:       next.TimeOfDay,
		IsWorkingHours:  next.IsWorkingHours,
		LastInteraction: next.LastInteraction,
		ActiveWindow:    next.ActiveWindow,
		Now:             now,
	})

	m.maybeResetBudget(&next, now)

	m.publish(next)

	if IsBlocked(next.PreviousUserState) && unblockedStates[next.UserState] {
		epoch := m.transitionEpoch.Add(1)
		m.logger.Info("state transition %s -> %s (epoch %d), scheduling queue drain",
			next.PreviousUserState, next.UserState, epoch)
		m.spawnDrain(epoch)
	}

	return next
}

// gather fans out to every source. Each failure is logged and converted to
// absence; the success count feeds data quality.
func (m *Manager) gather(ctx context.Context) ([]sources.Partial, int) {
	partials := make([]sources.Partial, len(m.sources))
	failed := make([]bool, len(m.sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range m.sources {
		g.Go(func() error {
			p, err := src.Gather(gctx)
			if err != nil {
				m.logger.Warn("context source %s failed: %v", src.Name(), err)
				failed[i] = true
				return nil // one source failing never blocks the others
			}
			partials[i] = p
			return nil
		})
	}
	_ = g.Wait()

	succeeded := 0
	for _, f := range failed {
		if !f {
			succeeded++
		}
	}
	return partials, succeeded
}

// maybeResetBudget applies the daily attention-budget reset. Date comparison
// (not elapsed seconds) keeps the reset immune to clock jumps.
func (m *Manager) maybeResetBudget(c *CurrentContext, now time.Time) {
	reset := func() {
		c.AttentionBudgetRemaining = m.machine.DefaultBudget(c.InterruptionMode)
		c.AttentionBudgetLastReset = now
	}

	if c.AttentionBudgetLastReset.IsZero() {
		reset()
		return
	}

	local := now.In(m.cfg.Location)
	lastLocal := c.AttentionBudgetLastReset.In(m.cfg.Location)

	// DateOnly strings compare lexicographically in chronological order.
	nowDate := local.Format(time.DateOnly)
	lastDate := lastLocal.Format(time.DateOnly)

	switch {
	case nowDate > lastDate && local.Hour() >= m.cfg.MorningBriefingHour:
		reset()
	case nowDate == lastDate &&
		lastLocal.Hour() < m.cfg.MorningBriefingHour &&
		m.cfg.MorningBriefingHour <= local.Hour():
		// Last reset happened before this morning's briefing hour and the
		// briefing hour has since passed today.
		reset()
	}
}

// spawnDrain dispatches the drain-and-bundle task for the given epoch. The
// task re-checks the epoch on entry so rapid flapping delivers at most one
// bundle per transition.
func (m *Manager) spawnDrain(epoch uint64) {
	bundler := m.bundler
	if bundler == nil {
		return
	}
	async.Go(m.logger, "queue-drain", func() {
		if m.transitionEpoch.Load() != epoch {
			m.logger.Debug("drain epoch %d superseded, skipping", epoch)
			return
		}
		n, err := bundler.DeliverQueuedBundle(context.Background())
		if err != nil {
			m.logger.Warn("queued bundle delivery failed: %v", err)
			return
		}
		if n > 0 {
			m.logger.Info("delivered bundle of %d queued insight(s)", n)
		}
	})
}

// RecordInteraction stamps now as the last user-initiated interaction.
func (m *Manager) RecordInteraction() {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := *m.published.Load()
	next.LastInteraction = m.now()
	m.publish(next)
}

// ApplySensorPatch merges a partial sensor update. Both fields nil still
// stamps the heartbeat.
func (m *Manager) ApplySensorPatch(patch SensorPatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := ApplySensorPatch(*m.published.Load(), patch, m.now())
	m.publish(next)
}

// DecrementBudget lowers the attention budget by one, clamped at zero.
func (m *Manager) DecrementBudget() {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := *m.published.Load()
	if next.AttentionBudgetRemaining > 0 {
		next.AttentionBudgetRemaining--
	}
	m.publish(next)
}

// SetInterruptionMode switches modes and resets the budget to the new mode's
// default, even when the mode is unchanged.
func (m *Manager) SetInterruptionMode(mode InterruptionMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := *m.published.Load()
	next.InterruptionMode = mode
	next.AttentionBudgetRemaining = m.machine.DefaultBudget(mode)
	next.AttentionBudgetLastReset = m.now()
	m.publish(next)
}

// SetCaptureMode records the sensor capture policy.
func (m *Manager) SetCaptureMode(mode CaptureMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := *m.published.Load()
	next.CaptureMode = mode
	m.publish(next)
}

// RestoreProfile seeds mode settings from the persisted user profile at startup.
func (m *Manager) RestoreProfile(mode InterruptionMode, capture CaptureMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := *m.published.Load()
	if ValidInterruptionMode(mode) {
		next.InterruptionMode = mode
		next.AttentionBudgetRemaining = m.machine.DefaultBudget(mode)
	}
	if ValidCaptureMode(capture) {
		next.CaptureMode = capture
	}
	m.publish(next)
}

// StateMachine exposes the pure machine for collaborators that share it.
func (m *Manager) StateMachine() StateMachine { return m.machine }

// publish stores a new snapshot. Callers must hold m.mu.
func (m *Manager) publish(next CurrentContext) {
	m.published.Store(&next)
}
