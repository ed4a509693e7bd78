package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"seraph/internal/logging"
	"seraph/internal/observer"
)

const profileID = "singleton"

// Profile is the single persisted user profile row. Mode settings survive
// restarts through it.
type Profile struct {
	Name                string
	InterruptionMode    observer.InterruptionMode
	CaptureMode         observer.CaptureMode
	OnboardingCompleted bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ProfileStore reads and writes the singleton profile.
type ProfileStore struct {
	db     *sql.DB
	logger logging.Logger
	now    func() time.Time
}

func NewProfileStore(s *Store, logger logging.Logger) *ProfileStore {
	return &ProfileStore{db: s.db, logger: logging.OrNop(logger), now: time.Now}
}

// Load returns the profile, creating the default row on first run.
func (p *ProfileStore) Load(ctx context.Context) (Profile, error) {
	var prof Profile
	var mode, capture string
	err := p.db.QueryRowContext(ctx, `
		SELECT name, interruption_mode, capture_mode, onboarding_completed, created_at, updated_at
		FROM user_profiles WHERE id = ?`, profileID).
		Scan(&prof.Name, &mode, &capture, &prof.OnboardingCompleted, &prof.CreatedAt, &prof.UpdatedAt)
	if err == sql.ErrNoRows {
		return p.createDefault(ctx)
	}
	if err != nil {
		return Profile{}, fmt.Errorf("load profile: %w", err)
	}
	prof.InterruptionMode = observer.InterruptionMode(mode)
	prof.CaptureMode = observer.CaptureMode(capture)
	return prof, nil
}

func (p *ProfileStore) createDefault(ctx context.Context) (Profile, error) {
	now := p.now().UTC()
	prof := Profile{
		Name:             "Traveler",
		InterruptionMode: observer.ModeBalanced,
		CaptureMode:      observer.CaptureBalanced,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO user_profiles (id, name, interruption_mode, capture_mode, onboarding_completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		profileID, prof.Name, string(prof.InterruptionMode), string(prof.CaptureMode),
		prof.OnboardingCompleted, now, now)
	if err != nil {
		return Profile{}, fmt.Errorf("create default profile: %w", err)
	}
	p.logger.Info("created default user profile")
	return prof, nil
}

// SetInterruptionMode persists a new interruption mode.
func (p *ProfileStore) SetInterruptionMode(ctx context.Context, mode observer.InterruptionMode) error {
	return p.update(ctx, "interruption_mode", string(mode))
}

// SetCaptureMode persists a new capture mode.
func (p *ProfileStore) SetCaptureMode(ctx context.Context, mode observer.CaptureMode) error {
	return p.update(ctx, "capture_mode", string(mode))
}

// CompleteOnboarding marks onboarding as done. Idempotent.
func (p *ProfileStore) CompleteOnboarding(ctx context.Context) error {
	return p.update(ctx, "onboarding_completed", true)
}

func (p *ProfileStore) update(ctx context.Context, column string, value any) error {
	// column comes from a fixed set of callers above, never user input.
	query := fmt.Sprintf(`UPDATE user_profiles SET %s = ?, updated_at = ? WHERE id = ?`, column)
	res, err := p.db.ExecContext(ctx, query, value, p.now().UTC(), profileID)
	if err != nil {
		return fmt.Errorf("update profile %s: %w", column, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := p.createDefault(ctx); err != nil {
			return err
		}
		_, err = p.db.ExecContext(ctx, query, value, p.now().UTC(), profileID)
		if err != nil {
			return fmt.Errorf("update profile %s: %w", column, err)
		}
	}
	return nil
}
