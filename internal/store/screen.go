package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"seraph/internal/logging"
)

// Observation is one row of the screen-activity log posted by the sensor.
type Observation struct {
	ID           string
	Timestamp    time.Time
	AppName      string
	WindowTitle  string
	ActivityType string
	Project      string
	Summary      string
	DetailsJSON  string
	Blocked      bool
	DurationSec  *int
}

// FocusStreak is a run of consecutive observations with the same activity.
type FocusStreak struct {
	Activity string `json:"activity"`
	Minutes  int    `json:"minutes"`
}

// ActivitySummary aggregates a window of observations for digests.
type ActivitySummary struct {
	TotalMinutes    int               `json:"total_minutes"`
	ByActivity      map[string]int    `json:"by_activity"`
	ByProject       map[string]int    `json:"by_project"`
	ByApp           map[string]int    `json:"by_app"`
	ContextSwitches int               `json:"context_switches"`
	TopFocusStreaks []FocusStreak     `json:"top_focus_streaks"`
	PerDayMinutes   map[string]int    `json:"per_day_minutes,omitempty"`
}

// ScreenStore persists and summarizes screen observations.
type ScreenStore struct {
	db     *sql.DB
	logger logging.Logger
}

func NewScreenStore(s *Store, logger logging.Logger) *ScreenStore {
	return &ScreenStore{db: s.db, logger: logging.OrNop(logger)}
}

// Insert records a new observation and back-fills the duration of the most
// recent prior row that has none, using the gap between the two timestamps.
// Both writes happen in one transaction so a crash never leaves the previous
// row half-updated.
func (s *ScreenStore) Insert(ctx context.Context, obs Observation) error {
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	ts := obs.Timestamp.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin observation insert: %w", err)
	}
	defer tx.Rollback()

	var prevID string
	var prevTS time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT id, timestamp FROM screen_observations
		WHERE duration_s IS NULL AND timestamp < ?
		ORDER BY timestamp DESC LIMIT 1`, ts).Scan(&prevID, &prevTS)
	switch {
	case err == sql.ErrNoRows:
		// First observation, or the previous one is already closed.
	case err != nil:
		return fmt.Errorf("find open observation: %w", err)
	default:
		gap := int(ts.Sub(prevTS.UTC()).Seconds())
		if gap < 0 {
			gap = 0
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE screen_observations SET duration_s = ? WHERE id = ?`, gap, prevID); err != nil {
			return fmt.Errorf("back-fill observation duration: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO screen_observations
			(id, timestamp, app_name, window_title, activity_type, project, summary, details_json, blocked, duration_s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		obs.ID, ts, obs.AppName, obs.WindowTitle, obs.ActivityType,
		obs.Project, obs.Summary, obs.DetailsJSON, obs.Blocked, obs.DurationSec)
	if err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	return tx.Commit()
}

// DailySummary aggregates the observations of the calendar day containing day,
// interpreted in loc. Blocked rows are excluded.
func (s *ScreenStore) DailySummary(ctx context.Context, day time.Time, loc *time.Location) (*ActivitySummary, error) {
	start := startOfDay(day, loc)
	return s.summarize(ctx, start, start.Add(24*time.Hour), false)
}

// WeeklySummary aggregates the seven calendar days ending with the day
// containing day, with a per-day minute breakdown.
func (s *ScreenStore) WeeklySummary(ctx context.Context, day time.Time, loc *time.Location) (*ActivitySummary, error) {
	end := startOfDay(day, loc).Add(24 * time.Hour)
	return s.summarize(ctx, end.Add(-7*24*time.Hour), end, true)
}

// Cleanup deletes observations older than retentionDays and returns how many
// rows were removed.
func (s *ScreenStore) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM screen_observations WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup observations: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Info("removed %d screen observation(s) older than %d days", n, retentionDays)
	}
	return n, nil
}

// CountSince reports how many observations were recorded at or after t.
func (s *ScreenStore) CountSince(ctx context.Context, t time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM screen_observations WHERE timestamp >= ?`, t.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count observations: %w", err)
	}
	return n, nil
}

func (s *ScreenStore) summarize(ctx context.Context, from, to time.Time, perDay bool) (*ActivitySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, app_name, activity_type, project, duration_s
		FROM screen_observations
		WHERE blocked = 0 AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("select observations: %w", err)
	}
	defer rows.Close()

	sum := &ActivitySummary{
		ByActivity: map[string]int{},
		ByProject:  map[string]int{},
		ByApp:      map[string]int{},
	}
	if perDay {
		sum.PerDayMinutes = map[string]int{}
	}

	var streaks []FocusStreak
	var curActivity string
	var curSeconds int
	flush := func() {
		if curActivity != "" && curSeconds > 0 {
			streaks = append(streaks, FocusStreak{Activity: curActivity, Minutes: curSeconds / 60})
		}
		curSeconds = 0
	}

	for rows.Next() {
		var (
			ts       time.Time
			app      string
			activity string
			project  sql.NullString
			dur      sql.NullInt64
		)
		if err := rows.Scan(&ts, &app, &activity, &project, &dur); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		sum.ContextSwitches++

		seconds := 0
		if dur.Valid {
			seconds = int(dur.Int64)
		}
		minutes := seconds / 60

		sum.TotalMinutes += minutes
		sum.ByActivity[activity] += minutes
		sum.ByApp[app] += minutes
		if project.Valid && project.String != "" {
			sum.ByProject[project.String] += minutes
		}
		if perDay {
			sum.PerDayMinutes[ts.In(from.Location()).Format(time.DateOnly)] += minutes
		}

		if activity != curActivity {
			flush()
			curActivity = activity
		}
		curSeconds += seconds
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	flush()

	sort.Slice(streaks, func(i, j int) bool { return streaks[i].Minutes > streaks[j].Minutes })
	if len(streaks) > 3 {
		streaks = streaks[:3]
	}
	sum.TopFocusStreaks = streaks
	return sum, nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
