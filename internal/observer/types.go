package observer

import (
	"fmt"
	"strings"
	"time"

	"seraph/internal/observer/sources"
)

// UserState is the coarse availability state derived from context signals.
type UserState string

const (
	StateDeepWork      UserState = "deep_work"
	StateInMeeting     UserState = "in_meeting"
	StateTransitioning UserState = "transitioning"
	StateAvailable     UserState = "available"
	StateAway          UserState = "away"
	StateWindingDown   UserState = "winding_down"
)

// InterruptionMode controls how aggressively proactive messages surface.
type InterruptionMode string

const (
	ModeFocus    InterruptionMode = "focus"
	ModeBalanced InterruptionMode = "balanced"
	ModeActive   InterruptionMode = "active"
)

// ValidInterruptionMode reports whether m names a known mode.
func ValidInterruptionMode(m InterruptionMode) bool {
	switch m {
	case ModeFocus, ModeBalanced, ModeActive:
		return true
	}
	return false
}

// CaptureMode is the sensor-side capture policy. The core only persists it and
// serves it back to the sensor; it never affects the delivery gate.
type CaptureMode string

const (
	CaptureOnSwitch CaptureMode = "on_switch"
	CaptureBalanced CaptureMode = "balanced"
	CaptureDetailed CaptureMode = "detailed"
)

// ValidCaptureMode reports whether m names a known capture mode.
func ValidCaptureMode(m CaptureMode) bool {
	switch m {
	case CaptureOnSwitch, CaptureBalanced, CaptureDetailed:
		return true
	}
	return false
}

// DataQuality summarizes how many context sources succeeded on the last refresh.
type DataQuality string

const (
	QualityGood     DataQuality = "good"
	QualityDegraded DataQuality = "degraded"
	QualityStale    DataQuality = "stale"
)

// DeliveryDecision is the outcome of the delivery gate.
type DeliveryDecision string

const (
	DecisionDeliver DeliveryDecision = "deliver"
	DecisionQueue   DeliveryDecision = "queue"
	DecisionDrop    DeliveryDecision = "drop"
)

// Intervention types understood by the gate. Nudge, advisory and alert come
// from the strategist; ambient and proactive_bundle are synthesized internally.
const (
	TypeNudge    = "nudge"
	TypeAdvisory = "advisory"
	TypeAlert    = "alert"
	TypeAmbient  = "ambient"
	TypeBundle   = "proactive_bundle"
)

// blockedStates are states during which non-urgent, non-scheduled messages queue.
var blockedStates = map[UserState]bool{
	StateDeepWork:  true,
	StateInMeeting: true,
	StateAway:      true,
}

// unblockedStates are the targets of a blocked→unblocked transition.
var unblockedStates = map[UserState]bool{
	StateAvailable:     true,
	StateTransitioning: true,
}

// IsBlocked reports whether s suppresses immediate delivery.
func IsBlocked(s UserState) bool { return blockedStates[s] }

// CurrentContext is the unified snapshot of all context sources. Snapshots are
// immutable once published; the Manager replaces the whole value on mutation.
type CurrentContext struct {
	// Time source
	TimeOfDay      sources.TimeOfDay `json:"time_of_day"`
	DayOfWeek      string            `json:"day_of_week"`
	IsWorkingHours bool              `json:"is_working_hours"`

	// Calendar source
	UpcomingEvents []sources.CalendarEvent `json:"upcoming_events"`
	CurrentEvent   string                  `json:"current_event,omitempty"`

	// VCS source; nil means no repository or no recent activity
	RecentActivity []sources.VCSEntry `json:"recent_vcs_activity,omitempty"`

	// Goal source
	ActiveGoalsSummary string `json:"active_goals_summary"`

	// Interaction tracking
	LastInteraction time.Time `json:"last_interaction,omitzero"`

	// State machine
	UserState         UserState        `json:"user_state"`
	PreviousUserState UserState        `json:"previous_user_state"`
	InterruptionMode  InterruptionMode `json:"interruption_mode"`
	CaptureMode       CaptureMode      `json:"capture_mode"`

	AttentionBudgetRemaining int       `json:"attention_budget_remaining"`
	AttentionBudgetLastReset time.Time `json:"attention_budget_last_reset,omitzero"`

	// Sensor
	ActiveWindow   string    `json:"active_window,omitempty"`
	ScreenContext  string    `json:"screen_context,omitempty"`
	LastSensorPost time.Time `json:"last_sensor_post,omitzero"`

	DataQuality DataQuality `json:"data_quality"`
}

// NewContext returns the startup context with documented defaults.
func NewContext() CurrentContext {
	return CurrentContext{
		TimeOfDay:                sources.TimeUnknown,
		DayOfWeek:                "unknown",
		UserState:                StateAvailable,
		PreviousUserState:        StateAvailable,
		InterruptionMode:         ModeBalanced,
		CaptureMode:              CaptureBalanced,
		AttentionBudgetRemaining: 5,
		DataQuality:              QualityGood,
	}
}

// SensorPatch is a partial update from the external sensor. Nil fields mean
// "do not overwrite"; this keeps the window loop and the OCR loop from
// clobbering each other's last write.
type SensorPatch struct {
	ActiveWindow  *string
	ScreenContext *string
}

// ApplySensorPatch merges patch into prev and stamps the sensor heartbeat.
// Pure so the partial-update contract is directly unit-testable.
func ApplySensorPatch(prev CurrentContext, patch SensorPatch, now time.Time) CurrentContext {
	next := prev
	if patch.ActiveWindow != nil {
		next.ActiveWindow = *patch.ActiveWindow
	}
	if patch.ScreenContext != nil {
		next.ScreenContext = *patch.ScreenContext
	}
	next.LastSensorPost = now
	return next
}

const screenContextPromptLimit = 500

// ToPromptBlock formats the snapshot as a human-readable block for LLM prompts.
func (c CurrentContext) ToPromptBlock(now time.Time) string {
	lines := []string{
		fmt.Sprintf("Time: %s (%s)", c.TimeOfDay, c.DayOfWeek),
		fmt.Sprintf("Working hours: %s", yesNo(c.IsWorkingHours)),
	}

	if c.CurrentEvent != "" {
		lines = append(lines, "Current event: "+c.CurrentEvent)
	}

	if len(c.UpcomingEvents) > 0 {
		eventLines := make([]string, 0, 3)
		for i, e := range c.UpcomingEvents {
			if i >= 3 {
				break
			}
			eventLines = append(eventLines, fmt.Sprintf("  - %s at %s", e.Summary, e.Start.Format(time.RFC3339)))
		}
		lines = append(lines, "Upcoming events:\n"+strings.Join(eventLines, "\n"))
	}

	if len(c.RecentActivity) > 0 {
		lines = append(lines, fmt.Sprintf("Recent VCS activity: %d commits in last hour", len(c.RecentActivity)))
	}

	if c.ActiveGoalsSummary != "" {
		lines = append(lines, "Active goals: "+c.ActiveGoalsSummary)
	}

	if c.ActiveWindow != "" {
		lines = append(lines, "User is in: "+c.ActiveWindow)
	}

	if c.ScreenContext != "" {
		sc := c.ScreenContext
		if len(sc) > screenContextPromptLimit {
			sc = sc[:screenContextPromptLimit] + "..."
		}
		lines = append(lines, "Screen content: "+sc)
	}

	if !c.LastInteraction.IsZero() {
		minutes := int(now.Sub(c.LastInteraction).Minutes())
		lines = append(lines, fmt.Sprintf("Last interaction: %dm ago", minutes))
	}

	lines = append(lines, fmt.Sprintf("User state: %s | Mode: %s | Budget: %d",
		c.UserState, c.InterruptionMode, c.AttentionBudgetRemaining))

	return strings.Join(lines, "\n")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
