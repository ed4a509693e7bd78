// Package goals exposes the goal repository the proactivity engine reads.
package goals

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Goal is a single tracked goal.
type Goal struct {
	ID        string
	Title     string
	Domain    string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Dashboard aggregates goal progress for the goal-check job.
type Dashboard struct {
	TotalCount     int
	ActiveCount    int
	CompletedCount int
}

// Repository is the read surface the observer and jobs depend on.
type Repository interface {
	ListActive(ctx context.Context) ([]Goal, error)
	Dashboard(ctx context.Context) (Dashboard, error)
	CompletedToday(ctx context.Context, now time.Time) ([]Goal, error)
}

// SQLRepository is the sqlite-backed Repository.
type SQLRepository struct {
	db *sql.DB
}

// NewSQLRepository wraps db, which must have the goals table migrated.
func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) ListActive(ctx context.Context) ([]Goal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, domain, status, created_at, updated_at
		FROM goals WHERE status = 'active'
		ORDER BY domain, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list active goals: %w", err)
	}
	defer rows.Close()
	return scanGoals(rows)
}

func (r *SQLRepository) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0)
		FROM goals`).Scan(&d.TotalCount, &d.ActiveCount, &d.CompletedCount)
	if err != nil {
		return Dashboard{}, fmt.Errorf("goal dashboard: %w", err)
	}
	return d, nil
}

func (r *SQLRepository) CompletedToday(ctx context.Context, now time.Time) ([]Goal, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, domain, status, created_at, updated_at
		FROM goals WHERE status = 'completed' AND updated_at >= ?
		ORDER BY updated_at`, dayStart)
	if err != nil {
		return nil, fmt.Errorf("goals completed today: %w", err)
	}
	defer rows.Close()
	return scanGoals(rows)
}

// Create inserts a new active goal. Used by tests and the onboarding flow.
func (r *SQLRepository) Create(ctx context.Context, title, domain string) (Goal, error) {
	g := Goal{
		ID:        uuid.NewString(),
		Title:     title,
		Domain:    domain,
		Status:    "active",
		CreatedAt: time.Now().UTC(),
	}
	g.UpdatedAt = g.CreatedAt
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO goals (id, title, domain, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.Title, g.Domain, g.Status, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return Goal{}, fmt.Errorf("create goal: %w", err)
	}
	return g, nil
}

// SetStatus moves a goal to the given status, stamping updated_at.
func (r *SQLRepository) SetStatus(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE goals SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set goal status: %w", err)
	}
	return nil
}

func scanGoals(rows *sql.Rows) ([]Goal, error) {
	var out []Goal
	for rows.Next() {
		var g Goal
		if err := rows.Scan(&g.ID, &g.Title, &g.Domain, &g.Status, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
