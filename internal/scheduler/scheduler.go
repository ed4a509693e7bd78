// Package scheduler runs the periodic jobs of the proactivity engine on a
// single cron instance in the user's timezone.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"seraph/internal/logging"
)

// Job is one schedulable unit of work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Spec binds a job to its schedule. Schedule accepts standard five-field cron
// expressions and @every intervals. Timeout bounds each run; zero means an
// hour.
type Spec struct {
	Job      Job
	Schedule string
	Timeout  time.Duration
}

// Scheduler owns the cron instance. Overlapping runs of the same job are
// skipped, so a slow LLM call never stacks ticks behind itself.
type Scheduler struct {
	cron     *cron.Cron
	logger   logging.Logger
	mu       sync.Mutex
	entryIDs map[string]cron.EntryID
	baseCtx  context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// New builds a Scheduler in loc. Pass the location from LoadLocation so an
// invalid timezone has already degraded to UTC.
func New(loc *time.Location, logger logging.Logger) *Scheduler {
	logger = logging.OrNop(logger)
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		logger:   logger,
		entryIDs: make(map[string]cron.EntryID),
		baseCtx:  baseCtx,
		cancel:   cancel,
	}
}

// LoadLocation resolves a timezone name, warning and falling back to UTC when
// it does not resolve. An empty name is UTC without a warning.
func LoadLocation(name string, logger logging.Logger) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logging.OrNop(logger).Warn("invalid timezone %q, falling back to UTC: %v", name, err)
		return time.UTC
	}
	return loc
}

// Register adds a job under its schedule. Duplicate names replace nothing and
// error instead.
func (s *Scheduler) Register(spec Spec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := spec.Job.Name()
	if _, exists := s.entryIDs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = time.Hour
	}

	entryID, err := s.cron.AddFunc(spec.Schedule, func() {
		ctx, cancel := context.WithTimeout(s.baseCtx, timeout)
		defer cancel()

		start := time.Now()
		if err := spec.Job.Run(ctx); err != nil {
			s.logger.Warn("job %s failed after %.1fs: %v", name, time.Since(start).Seconds(), err)
			return
		}
		s.logger.Debug("job %s completed in %.1fs", name, time.Since(start).Seconds())
	})
	if err != nil {
		return fmt.Errorf("register job %q (%s): %w", name, spec.Schedule, err)
	}

	s.entryIDs[name] = entryID
	s.logger.Info("registered job %s on schedule %q", name, spec.Schedule)
	return nil
}

// Start begins dispatching. Returns the number of registered jobs.
func (s *Scheduler) Start() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cron.Start()
	s.logger.Info("scheduler started with %d job(s)", len(s.entryIDs))
	return len(s.entryIDs)
}

// Stop halts dispatching and cancels in-flight job contexts without waiting
// for them to finish. Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.cron.Stop()
		s.cancel()
		s.logger.Info("scheduler stopped")
	})
}
