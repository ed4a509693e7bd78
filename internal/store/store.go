// Package store is the sqlite persistence layer: the insight queue, the
// screen-observation log, the user profile, chat sessions, and goals.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"seraph/internal/logging"
)

// Store wraps the shared sqlite handle. A single connection with WAL keeps
// the multi-statement transactions serialized without retry loops.
type Store struct {
	db     *sql.DB
	path   string
	logger logging.Logger
}

// Open initializes the sqlite database at path, creating directories and
// running migrations as needed.
func Open(path string, logger logging.Logger) (*Store, error) {
	logger = logging.OrNop(logger)

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logger.Debug("pragma failed (%s): %v", pragma, err)
		}
	}

	s := &Store{db: db, path: path, logger: logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying handle for repositories in other packages.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS queued_insights (
	id                TEXT PRIMARY KEY,
	content           TEXT NOT NULL,
	intervention_type TEXT NOT NULL DEFAULT 'advisory',
	urgency           INTEGER NOT NULL DEFAULT 3,
	reasoning         TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_queued_insights_created ON queued_insights (created_at);

CREATE TABLE IF NOT EXISTS screen_observations (
	id            TEXT PRIMARY KEY,
	timestamp     TIMESTAMP NOT NULL,
	app_name      TEXT NOT NULL,
	window_title  TEXT NOT NULL DEFAULT '',
	activity_type TEXT NOT NULL DEFAULT 'other',
	project       TEXT,
	summary       TEXT,
	details_json  TEXT,
	blocked       INTEGER NOT NULL DEFAULT 0,
	duration_s    INTEGER
);
CREATE INDEX IF NOT EXISTS idx_screen_observations_ts ON screen_observations (timestamp);

CREATE TABLE IF NOT EXISTS user_profiles (
	id                   TEXT PRIMARY KEY,
	name                 TEXT NOT NULL DEFAULT 'Traveler',
	interruption_mode    TEXT NOT NULL DEFAULT 'balanced',
	capture_mode         TEXT NOT NULL DEFAULT 'balanced',
	onboarding_completed INTEGER NOT NULL DEFAULT 0,
	created_at           TIMESTAMP NOT NULL,
	updated_at           TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT 'New Conversation',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions (id),
	role       TEXT NOT NULL,
	content    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages (session_id);

CREATE TABLE IF NOT EXISTS goals (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	domain     TEXT NOT NULL DEFAULT 'productivity',
	status     TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_goals_status ON goals (status);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
