package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"seraph/internal/logging"
	"seraph/internal/observer"
)

// expiryWindow is how long a queued insight stays eligible for bundling.
// Anything exactly at or past the cutoff is silently discarded on drain.
const expiryWindow = 24 * time.Hour

// InsightQueue is the sqlite-backed implementation of the durable queue the
// delivery gate defers into.
type InsightQueue struct {
	db     *sql.DB
	logger logging.Logger
	now    func() time.Time
}

func NewInsightQueue(s *Store, logger logging.Logger) *InsightQueue {
	return &InsightQueue{
		db:     s.db,
		logger: logging.OrNop(logger),
		now:    time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (q *InsightQueue) SetClock(now func() time.Time) { q.now = now }

// Enqueue persists a deferred insight. A zero CreatedAt is stamped with now.
func (q *InsightQueue) Enqueue(ctx context.Context, in observer.Insight) error {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = q.now()
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO queued_insights (id, content, intervention_type, urgency, reasoning, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		in.ID, in.Content, in.InterventionType, in.Urgency, in.Reasoning, in.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert queued insight: %w", err)
	}
	return nil
}

// Drain returns every fresh insight ordered by urgency desc then age asc, and
// deletes the whole table in the same transaction. Expired rows are deleted
// without being returned. A second drain with no new enqueues yields nothing.
func (q *InsightQueue) Drain(ctx context.Context) ([]observer.Insight, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin drain: %w", err)
	}
	defer tx.Rollback()

	cutoff := q.now().Add(-expiryWindow).UTC()
	rows, err := tx.QueryContext(ctx, `
		SELECT id, content, intervention_type, urgency, reasoning, created_at
		FROM queued_insights
		WHERE created_at > ?
		ORDER BY urgency DESC, created_at ASC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("select queued insights: %w", err)
	}
	items, err := scanInsights(rows)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM queued_insights`); err != nil {
		return nil, fmt.Errorf("clear queue: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit drain: %w", err)
	}

	q.logger.Debug("drained %d fresh insight(s)", len(items))
	return items, nil
}

// Count returns the number of fresh insights without consuming them.
func (q *InsightQueue) Count(ctx context.Context) (int, error) {
	cutoff := q.now().Add(-expiryWindow).UTC()
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM queued_insights WHERE created_at > ?`, cutoff).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count queued insights: %w", err)
	}
	return n, nil
}

// Peek returns up to limit fresh insights in drain order without consuming them.
func (q *InsightQueue) Peek(ctx context.Context, limit int) ([]observer.Insight, error) {
	if limit <= 0 {
		limit = 50
	}
	cutoff := q.now().Add(-expiryWindow).UTC()
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, content, intervention_type, urgency, reasoning, created_at
		FROM queued_insights
		WHERE created_at > ?
		ORDER BY urgency DESC, created_at ASC
		LIMIT ?`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("peek queued insights: %w", err)
	}
	return scanInsights(rows)
}

func scanInsights(rows *sql.Rows) ([]observer.Insight, error) {
	defer rows.Close()
	var items []observer.Insight
	for rows.Next() {
		var in observer.Insight
		if err := rows.Scan(&in.ID, &in.Content, &in.InterventionType, &in.Urgency, &in.Reasoning, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan queued insight: %w", err)
		}
		in.CreatedAt = in.CreatedAt.UTC()
		items = append(items, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queued insights: %w", err)
	}
	return items, nil
}
