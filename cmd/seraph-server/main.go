// seraph-server runs the proactivity engine: context observer, delivery gate,
// scheduled jobs, and the HTTP/websocket surface.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"seraph/internal/broadcast"
	"seraph/internal/calendar"
	"seraph/internal/chat"
	"seraph/internal/config"
	"seraph/internal/contextwindow"
	"seraph/internal/goals"
	"seraph/internal/llm"
	"seraph/internal/logging"
	"seraph/internal/memory"
	"seraph/internal/observer"
	"seraph/internal/observer/sources"
	"seraph/internal/scheduler"
	"seraph/internal/scheduler/jobs"
	"seraph/internal/server"
	"seraph/internal/store"
	"seraph/internal/strategist"
)

func main() {
	root := &cobra.Command{
		Use:           "seraph-server",
		Short:         "Proactive personal assistant runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewComponentLogger("server")
	loc := scheduler.LoadLocation(cfg.UserTimezone, logger)

	st, err := store.Open(cfg.DatabasePath(), logging.NewComponentLogger("store"))
	if err != nil {
		return err
	}
	defer st.Close()

	queue := store.NewInsightQueue(st, logger)
	screen := store.NewScreenStore(st, logger)
	profiles := store.NewProfileStore(st, logger)
	sessions := store.NewSessionStore(st, logger)
	goalRepo := goals.NewSQLRepository(st.DB())

	var calClient calendar.Client = calendar.Nop{}
	if cfg.CalendarAgendaPath != "" {
		calClient = calendar.NewFileClient(cfg.CalendarAgendaPath)
	}

	srcs := []sources.Source{
		sources.NewTimeSource(loc, cfg.WorkingHoursStart, cfg.WorkingHoursEnd),
		sources.NewCalendarSource(calClient),
		sources.NewGoalSource(goalRepo),
	}
	if cfg.VCSRepoPath != "" {
		srcs = append(srcs, sources.NewVCSSource(cfg.VCSRepoPath))
	}

	manager := observer.NewManager(srcs, observer.ManagerConfig{
		Location:            loc,
		MorningBriefingHour: cfg.MorningBriefingHour,
	}, logging.NewComponentLogger("observer"))

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStartup()

	prof, err := profiles.Load(startupCtx)
	if err != nil {
		return err
	}
	manager.RestoreProfile(prof.InterruptionMode, prof.CaptureMode)

	hub := broadcast.NewHub(logging.NewComponentLogger("broadcast"))
	coordinator := observer.NewCoordinator(manager, queue, hub, logging.NewComponentLogger("delivery"))
	manager.SetBundleDeliverer(coordinator)

	llmLogger := logging.NewLLMLogger("openai")
	baseClient, err := llm.NewOpenAIClient(llm.Config{
		Model:   cfg.LLMModel,
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.AgentChatTimeout(),
	}, llmLogger)
	if err != nil {
		return err
	}
	client, err := llm.NewCachingClient(baseClient, cfg.CacheSize, llmLogger)
	if err != nil {
		return err
	}

	soulPath := cfg.SoulPath
	if soulPath == "" {
		soulPath = filepath.Join(filepath.Dir(cfg.DatabasePath()), "soul.md")
	}
	soul := memory.NewSoul(soulPath, logger)

	memLogger := logging.NewComponentLogger("memory")
	memStore, err := memory.NewStore(memory.StoreConfig{
		PersistPath: cfg.MemoryPath(),
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
	}, memLogger)
	if err != nil {
		// Semantic memory is an enhancement, not a dependency of the core loop.
		logger.Warn("memory store unavailable, continuing without it: %v", err)
		memStore = nil
	}

	window := contextwindow.New(cfg.ContextWindowTokenBudget,
		cfg.ContextWindowKeepFirst, cfg.ContextWindowKeepRecent, logger)
	chatSvc := chat.NewService(sessions, client, window, soul, memStore, manager, logging.NewComponentLogger("chat"))

	manager.Refresh(startupCtx)

	sched := buildScheduler(cfg, loc, manager, coordinator, client, memStore, soul,
		sessions, screen, goalRepo, calClient)

	httpServer := server.New(server.Config{Host: cfg.Host, Port: cfg.Port}, server.Deps{
		Manager:     manager,
		Coordinator: coordinator,
		Queue:       queue,
		Hub:         hub,
		Screen:      screen,
		Profile:     profiles,
		Sessions:    sessions,
		Chat:        chatSvc,
	}, logging.NewComponentLogger("http"))

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.Start() }()

	if cfg.SchedulerEnabled {
		sched.Start()
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	sched.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown: %v", err)
	}
	return nil
}

func buildScheduler(cfg config.RuntimeConfig, loc *time.Location,
	manager *observer.Manager, coordinator *observer.Coordinator,
	client llm.Client, memStore *memory.Store, soul *memory.Soul,
	sessions *store.SessionStore, screen *store.ScreenStore,
	goalRepo goals.Repository, calClient calendar.Client) *scheduler.Scheduler {

	logger := logging.NewComponentLogger("scheduler")
	sched := scheduler.New(loc, logger)

	var mem jobs.MemorySearcher
	if memStore != nil {
		mem = memStore
	}

	register := func(spec scheduler.Spec) {
		if err := sched.Register(spec); err != nil {
			logger.Warn("job registration failed: %v", err)
		}
	}

	strat := newStrategist(cfg, client)
	register(scheduler.Spec{
		Job: &jobs.StrategistTick{
			Manager:     manager,
			Strategist:  strat,
			Coordinator: coordinator,
			Memory:      mem,
			Logger:      logger,
		},
		Schedule: fmt.Sprintf("@every %dm", cfg.StrategistIntervalMin),
		Timeout:  cfg.AgentStrategistTimeout(),
	})

	if memStore != nil {
		consolidator := memory.NewConsolidator(client, memStore, soul, logging.NewComponentLogger("consolidation"))
		register(scheduler.Spec{
			Job:      &jobs.MemoryConsolidation{Sessions: sessions, Consolidator: consolidator, Logger: logger},
			Schedule: fmt.Sprintf("@every %dm", cfg.MemoryConsolidationIntervalMin),
			Timeout:  cfg.ConsolidationTimeout(),
		})
	}

	register(scheduler.Spec{
		Job:      &jobs.GoalCheck{Goals: goalRepo, Coordinator: coordinator},
		Schedule: fmt.Sprintf("@every %dh", cfg.GoalCheckIntervalHours),
	})

	register(scheduler.Spec{
		Job:      &jobs.CalendarScan{Calendar: calClient, Coordinator: coordinator},
		Schedule: fmt.Sprintf("@every %dm", cfg.CalendarScanIntervalMin),
	})

	register(scheduler.Spec{
		Job:      &jobs.DailyBriefing{Manager: manager, Client: client, Memory: mem, Coordinator: coordinator},
		Schedule: fmt.Sprintf("0 %d * * *", cfg.MorningBriefingHour),
		Timeout:  cfg.AgentBriefingTimeout(),
	})

	register(scheduler.Spec{
		Job:      &jobs.EveningReview{Sessions: sessions, Goals: goalRepo, Client: client, Coordinator: coordinator},
		Schedule: fmt.Sprintf("0 %d * * *", cfg.EveningReviewHour),
		Timeout:  cfg.AgentBriefingTimeout(),
	})

	register(scheduler.Spec{
		Job:      &jobs.ActivityDigest{Screen: screen, Coordinator: coordinator, Location: loc},
		Schedule: fmt.Sprintf("0 %d * * *", cfg.ActivityDigestHour),
	})

	register(scheduler.Spec{
		Job:      &jobs.WeeklyActivityReview{Screen: screen, Coordinator: coordinator, Location: loc},
		Schedule: fmt.Sprintf("0 %d * * 0", cfg.WeeklyReviewHour),
	})

	register(scheduler.Spec{
		Job:      &jobs.ScreenCleanup{Screen: screen, RetentionDays: cfg.ScreenObservationRetentionDays},
		Schedule: "0 3 * * *",
	})

	return sched
}

func newStrategist(cfg config.RuntimeConfig, client llm.Client) *strategist.Strategist {
	return strategist.New(client, cfg.ProactivityLevel, logging.NewLLMLogger("strategist"))
}
