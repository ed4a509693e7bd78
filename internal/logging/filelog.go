package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const logDirEnvVar = "SERAPH_LOG_DIR"

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Category selects the log file a logger writes to.
type Category string

const (
	CategoryService Category = "service"
	CategoryLLM     Category = "llm"
)

var (
	categoryMu      sync.Mutex
	categoryLoggers = make(map[Category]*fileLogger)
)

// fileLogger writes timestamped lines to a category log file. A nil file
// (e.g. unwritable home directory) degrades to stderr via the stdlib logger.
type fileLogger struct {
	mu        sync.Mutex
	out       *log.Logger
	level     Level
	component string
	category  Category
}

// NewComponentLogger returns the default service logger scoped to a component.
func NewComponentLogger(component string) Logger {
	return NewCategorizedLogger(CategoryService, component)
}

// NewLLMLogger returns a logger that writes to the dedicated LLM log file
// (seraph-llm.log) for prompt/latency diagnostics.
func NewLLMLogger(component string) Logger {
	return NewCategorizedLogger(CategoryLLM, component)
}

// NewCategorizedLogger returns a logger for a specific category and component.
// Loggers for the same category share one underlying file.
func NewCategorizedLogger(category Category, component string) Logger {
	base := getOrCreateCategoryLogger(category)
	return &fileLogger{
		out:       base.out,
		level:     base.level,
		component: component,
		category:  category,
	}
}

func getOrCreateCategoryLogger(category Category) *fileLogger {
	categoryMu.Lock()
	defer categoryMu.Unlock()

	if logger, ok := categoryLoggers[category]; ok {
		return logger
	}
	logger := newFileLogger(category)
	categoryLoggers[category] = logger
	return logger
}

func newFileLogger(category Category) *fileLogger {
	l := &fileLogger{level: LevelDebug, category: category}

	dir, err := resolveLogDirectory()
	if err != nil {
		l.out = log.New(os.Stderr, "", 0)
		return l
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		l.out = log.New(os.Stderr, "", 0)
		return l
	}

	path := filepath.Join(dir, logFileName(category))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		l.out = log.New(os.Stderr, "", 0)
		return l
	}

	l.out = log.New(file, "", 0)
	return l
}

func resolveLogDirectory() (string, error) {
	if override := strings.TrimSpace(os.Getenv(logDirEnvVar)); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".seraph"), nil
}

func logFileName(category Category) string {
	switch category {
	case CategoryLLM:
		return "seraph-llm.log"
	default:
		return "seraph-service.log"
	}
}

func (l *fileLogger) logf(level Level, tag, format string, args ...any) {
	if level < l.level || l.out == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	prefix := fmt.Sprintf("%s [%s]", time.Now().UTC().Format("2006-01-02T15:04:05.000Z"), tag)
	if l.component != "" {
		prefix += " [" + l.component + "]"
	}
	l.out.Printf("%s %s", prefix, fmt.Sprintf(format, args...))
}

func (l *fileLogger) Debug(format string, args ...any) { l.logf(LevelDebug, "DEBUG", format, args...) }
func (l *fileLogger) Info(format string, args ...any)  { l.logf(LevelInfo, "INFO", format, args...) }
func (l *fileLogger) Warn(format string, args ...any)  { l.logf(LevelWarn, "WARN", format, args...) }
func (l *fileLogger) Error(format string, args ...any) { l.logf(LevelError, "ERROR", format, args...) }
