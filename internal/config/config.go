package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMBaseURL = "https://api.openai.com/v1"
	DefaultMaxTokens  = 512
	DefaultCacheSize  = 64

	envPrefix      = "SERAPH_"
	configPathVar  = "SERAPH_CONFIG"
	defaultDataDir = "~/.seraph"
)

// RuntimeConfig captures user-configurable settings shared across binaries.
type RuntimeConfig struct {
	// LLM provider
	LLMModel    string  `yaml:"llm_model"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	CacheSize   int     `yaml:"llm_cache_size"`

	// Server
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Storage
	DataDir           string `yaml:"data_dir"`
	SoulPath          string `yaml:"soul_path"`
	VCSRepoPath       string `yaml:"vcs_repo_path"`
	CalendarAgendaPath string `yaml:"calendar_agenda_path"`

	// Observer
	UserTimezone      string `yaml:"user_timezone"`
	WorkingHoursStart int    `yaml:"working_hours_start"`
	WorkingHoursEnd   int    `yaml:"working_hours_end"`
	ProactivityLevel  int    `yaml:"proactivity_level"` // 1-5

	// Scheduler
	SchedulerEnabled               bool `yaml:"scheduler_enabled"`
	MorningBriefingHour            int  `yaml:"morning_briefing_hour"`
	EveningReviewHour              int  `yaml:"evening_review_hour"`
	ActivityDigestHour             int  `yaml:"activity_digest_hour"`
	WeeklyReviewHour               int  `yaml:"weekly_review_hour"`
	MemoryConsolidationIntervalMin int  `yaml:"memory_consolidation_interval_min"`
	GoalCheckIntervalHours         int  `yaml:"goal_check_interval_hours"`
	CalendarScanIntervalMin        int  `yaml:"calendar_scan_interval_min"`
	StrategistIntervalMin          int  `yaml:"strategist_interval_min"`
	ScreenObservationRetentionDays int  `yaml:"screen_observation_retention_days"`

	// Context window
	ContextWindowTokenBudget int `yaml:"context_window_token_budget"`
	ContextWindowKeepFirst   int `yaml:"context_window_keep_first"`
	ContextWindowKeepRecent  int `yaml:"context_window_keep_recent"`

	// Per-job LLM timeouts, in seconds.
	AgentChatTimeoutSec       int `yaml:"agent_chat_timeout"`
	AgentBriefingTimeoutSec   int `yaml:"agent_briefing_timeout"`
	AgentStrategistTimeoutSec int `yaml:"agent_strategist_timeout"`
	ConsolidationTimeoutSec   int `yaml:"consolidation_llm_timeout"`
}

// Defaults mirror the documented runtime defaults.
func Defaults() RuntimeConfig {
	return RuntimeConfig{
		LLMModel:    DefaultLLMModel,
		BaseURL:     DefaultLLMBaseURL,
		MaxTokens:   DefaultMaxTokens,
		Temperature: 0.6,
		CacheSize:   DefaultCacheSize,

		Host: "127.0.0.1",
		Port: 8741,

		DataDir: defaultDataDir,

		UserTimezone:      "UTC",
		WorkingHoursStart: 9,
		WorkingHoursEnd:   17,
		ProactivityLevel:  3,

		SchedulerEnabled:               true,
		MorningBriefingHour:            8,
		EveningReviewHour:              21,
		ActivityDigestHour:             20,
		WeeklyReviewHour:               18,
		MemoryConsolidationIntervalMin: 30,
		GoalCheckIntervalHours:         4,
		CalendarScanIntervalMin:        15,
		StrategistIntervalMin:          15,
		ScreenObservationRetentionDays: 30,

		ContextWindowTokenBudget: 6000,
		ContextWindowKeepFirst:   2,
		ContextWindowKeepRecent:  10,

		AgentChatTimeoutSec:       120,
		AgentBriefingTimeoutSec:   60,
		AgentStrategistTimeoutSec: 60,
		ConsolidationTimeoutSec:   30,
	}
}

// Load builds the runtime config from defaults, then the optional YAML config
// file, then SERAPH_* environment overrides.
func Load() (RuntimeConfig, error) {
	cfg := Defaults()

	if err := applyFile(&cfg); err != nil {
		return RuntimeConfig{}, err
	}
	applyEnv(&cfg)

	cfg.DataDir = expandHome(cfg.DataDir)
	if cfg.SoulPath == "" {
		cfg.SoulPath = filepath.Join(cfg.DataDir, "soul.md")
	} else {
		cfg.SoulPath = expandHome(cfg.SoulPath)
	}

	if cfg.ProactivityLevel < 1 || cfg.ProactivityLevel > 5 {
		cfg.ProactivityLevel = 3
	}

	return cfg, nil
}

// DatabasePath returns the sqlite file location under the data dir.
func (c RuntimeConfig) DatabasePath() string {
	return filepath.Join(c.DataDir, "seraph.db")
}

// MemoryPath returns the vector store location under the data dir.
func (c RuntimeConfig) MemoryPath() string {
	return filepath.Join(c.DataDir, "memory")
}

func (c RuntimeConfig) AgentChatTimeout() time.Duration {
	return time.Duration(c.AgentChatTimeoutSec) * time.Second
}

func (c RuntimeConfig) AgentBriefingTimeout() time.Duration {
	return time.Duration(c.AgentBriefingTimeoutSec) * time.Second
}

func (c RuntimeConfig) AgentStrategistTimeout() time.Duration {
	return time.Duration(c.AgentStrategistTimeoutSec) * time.Second
}

func (c RuntimeConfig) ConsolidationTimeout() time.Duration {
	return time.Duration(c.ConsolidationTimeoutSec) * time.Second
}

func applyFile(cfg *RuntimeConfig) error {
	path := strings.TrimSpace(os.Getenv(configPathVar))
	if path == "" {
		path = filepath.Join(expandHome(defaultDataDir), "config.yaml")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *RuntimeConfig) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}
	setFloat := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				*dst = f
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
			}
		}
	}

	setString("LLM_MODEL", &cfg.LLMModel)
	setString("API_KEY", &cfg.APIKey)
	setString("BASE_URL", &cfg.BaseURL)
	setInt("MAX_TOKENS", &cfg.MaxTokens)
	setFloat("TEMPERATURE", &cfg.Temperature)
	setInt("LLM_CACHE_SIZE", &cfg.CacheSize)

	setString("HOST", &cfg.Host)
	setInt("PORT", &cfg.Port)

	setString("DATA_DIR", &cfg.DataDir)
	setString("SOUL_PATH", &cfg.SoulPath)
	setString("VCS_REPO_PATH", &cfg.VCSRepoPath)
	setString("CALENDAR_AGENDA_PATH", &cfg.CalendarAgendaPath)

	setString("USER_TIMEZONE", &cfg.UserTimezone)
	setInt("WORKING_HOURS_START", &cfg.WorkingHoursStart)
	setInt("WORKING_HOURS_END", &cfg.WorkingHoursEnd)
	setInt("PROACTIVITY_LEVEL", &cfg.ProactivityLevel)

	setBool("SCHEDULER_ENABLED", &cfg.SchedulerEnabled)
	setInt("MORNING_BRIEFING_HOUR", &cfg.MorningBriefingHour)
	setInt("EVENING_REVIEW_HOUR", &cfg.EveningReviewHour)
	setInt("ACTIVITY_DIGEST_HOUR", &cfg.ActivityDigestHour)
	setInt("WEEKLY_REVIEW_HOUR", &cfg.WeeklyReviewHour)
	setInt("MEMORY_CONSOLIDATION_INTERVAL_MIN", &cfg.MemoryConsolidationIntervalMin)
	setInt("GOAL_CHECK_INTERVAL_HOURS", &cfg.GoalCheckIntervalHours)
	setInt("CALENDAR_SCAN_INTERVAL_MIN", &cfg.CalendarScanIntervalMin)
	setInt("STRATEGIST_INTERVAL_MIN", &cfg.StrategistIntervalMin)
	setInt("SCREEN_OBSERVATION_RETENTION_DAYS", &cfg.ScreenObservationRetentionDays)

	setInt("CONTEXT_WINDOW_TOKEN_BUDGET", &cfg.ContextWindowTokenBudget)
	setInt("CONTEXT_WINDOW_KEEP_FIRST", &cfg.ContextWindowKeepFirst)
	setInt("CONTEXT_WINDOW_KEEP_RECENT", &cfg.ContextWindowKeepRecent)

	setInt("AGENT_CHAT_TIMEOUT", &cfg.AgentChatTimeoutSec)
	setInt("AGENT_BRIEFING_TIMEOUT", &cfg.AgentBriefingTimeoutSec)
	setInt("AGENT_STRATEGIST_TIMEOUT", &cfg.AgentStrategistTimeoutSec)
	setInt("CONSOLIDATION_LLM_TIMEOUT", &cfg.ConsolidationTimeoutSec)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
