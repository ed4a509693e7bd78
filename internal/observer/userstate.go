package observer

import (
	"strings"
	"time"

	"seraph/internal/observer/sources"
)

// awayThreshold is how long without user interaction counts as away. The
// comparison is strict: exactly 30 minutes idle is still not away.
const awayThreshold = 30 * time.Minute

var focusKeywords = []string{"focus", "deep work", "do not disturb"}

// StateMachine derives user state from context signals and gates proactive
// deliveries. All methods are pure; the caller supplies the current instant.
type StateMachine struct{}

// DeriveInput carries the signals state derivation depends on.
type DeriveInput struct {
	CurrentEvent    string
	PreviousState   UserState
	TimeOfDay       sources.TimeOfDay
	IsWorkingHours  bool
	LastInteraction time.Time // zero when the user has never interacted
	ActiveWindow    string
	Now             time.Time
}

// Derive evaluates the state rules top-down and returns the first match.
func (StateMachine) Derive(in DeriveInput) UserState {
	// 1. Calendar focus block dominates everything, including idleness.
	if in.CurrentEvent != "" {
		lower := strings.ToLower(in.CurrentEvent)
		for _, kw := range focusKeywords {
			if strings.Contains(lower, kw) {
				return StateDeepWork
			}
		}
		// 2. Any other current event means a meeting.
		return StateInMeeting
	}

	// 3. Previous state was blocked and the event cleared: transitioning.
	if blockedStates[in.PreviousState] {
		return StateTransitioning
	}

	// 4. Idle past the threshold: away.
	if !in.LastInteraction.IsZero() && in.Now.Sub(in.LastInteraction) > awayThreshold {
		return StateAway
	}

	// 5. Evening or night: winding down.
	if in.TimeOfDay == sources.TimeEvening || in.TimeOfDay == sources.TimeNight {
		return StateWindingDown
	}

	return StateAvailable
}

// GateInput carries the signals the delivery gate depends on.
type GateInput struct {
	UserState        UserState
	InterruptionMode InterruptionMode
	BudgetRemaining  int
	Urgency          int
	InterventionType string
	IsScheduled      bool
}

// ShouldDeliver is the central decision gate for proactive messages.
func (m StateMachine) ShouldDeliver(in GateInput) DeliveryDecision {
	// Urgent messages always go through.
	if in.Urgency >= 5 {
		return DecisionDeliver
	}

	// Scheduled messages (briefing, review, digest) always go through.
	if in.IsScheduled {
		return DecisionDeliver
	}

	if blockedStates[in.UserState] {
		return DecisionQueue
	}

	// Focus mode blocks everything except urgent/scheduled, handled above.
	if in.InterruptionMode == ModeFocus {
		return DecisionQueue
	}

	// Winding down lets alerts through and queues the rest.
	if in.UserState == StateWindingDown {
		if in.InterventionType == TypeAlert {
			return DecisionDeliver
		}
		return DecisionQueue
	}

	if m.ShouldCostBudget(in.InterventionType, in.IsScheduled, in.Urgency) && in.BudgetRemaining <= 0 {
		return DecisionQueue
	}

	return DecisionDeliver
}

// ShouldCostBudget reports whether a delivery consumes attention budget.
// Ambient messages, bundles, scheduled messages and urgent messages are free.
func (StateMachine) ShouldCostBudget(interventionType string, isScheduled bool, urgency int) bool {
	if interventionType == TypeAmbient || interventionType == TypeBundle {
		return false
	}
	if isScheduled {
		return false
	}
	if urgency >= 5 {
		return false
	}
	return true
}

// DefaultBudget returns the attention budget granted on reset for a mode.
func (StateMachine) DefaultBudget(mode InterruptionMode) int {
	switch mode {
	case ModeFocus:
		return 0
	case ModeBalanced:
		return 5
	case ModeActive:
		return 15
	default:
		return 5
	}
}
