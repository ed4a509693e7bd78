package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"seraph/internal/logging"
)

const defaultSoul = `# Soul

## Identity
A quiet personal assistant that observes, remembers, and speaks up only when
it helps.

## About the User

## Observed Patterns

## Reflections
`

// Soul is the sectioned markdown file that anchors the assistant's identity
// and accumulated understanding of the user. Consolidation rewrites sections;
// the user may edit the file by hand between runs.
type Soul struct {
	mu     sync.Mutex
	path   string
	logger logging.Logger
}

func NewSoul(path string, logger logging.Logger) *Soul {
	return &Soul{path: path, logger: logging.OrNop(logger)}
}

// Read returns the soul text, creating the default file on first use.
func (s *Soul) Read() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *Soul) readLocked() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		if err := s.writeLocked(defaultSoul); err != nil {
			return "", err
		}
		s.logger.Info("created default soul file at %s", s.path)
		return defaultSoul, nil
	}
	if err != nil {
		return "", fmt.Errorf("read soul file: %w", err)
	}
	return string(data), nil
}

// UpdateSection replaces the body of the named "## Section" (or appends the
// section when absent) and writes the file back.
func (s *Soul) UpdateSection(name, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, err := s.readLocked()
	if err != nil {
		return err
	}

	header := "## " + name
	lines := strings.Split(text, "\n")

	start := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == header {
			start = i
			break
		}
	}

	body = strings.TrimSpace(body)
	if start == -1 {
		updated := strings.TrimRight(text, "\n") + "\n\n" + header + "\n" + body + "\n"
		return s.writeLocked(updated)
	}

	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "## ") {
			end = i
			break
		}
	}

	var out []string
	out = append(out, lines[:start+1]...)
	out = append(out, body, "")
	out = append(out, lines[end:]...)
	return s.writeLocked(strings.Join(out, "\n"))
}

func (s *Soul) writeLocked(content string) error {
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create soul directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write soul file: %w", err)
	}
	return nil
}
