// Package sources holds the pure context gatherers. Each source either fills
// its slice of the Partial or reports an error; none panics out of its own
// failures. The Manager invokes them independently and counts successes to
// derive data quality.
package sources

import (
	"context"

	"seraph/internal/calendar"
)

// TimeOfDay is the coarse wall-clock classification.
type TimeOfDay string

const (
	TimeMorning   TimeOfDay = "morning"
	TimeAfternoon TimeOfDay = "afternoon"
	TimeEvening   TimeOfDay = "evening"
	TimeNight     TimeOfDay = "night"
	TimeUnknown   TimeOfDay = "unknown"
)

// CalendarEvent aliases the calendar boundary type so snapshot consumers do
// not import the collaborator package directly.
type CalendarEvent = calendar.Event

// VCSEntry is one recent version-control action parsed from the reflog.
type VCSEntry struct {
	Timestamp int64  `json:"timestamp"` // unix seconds
	Message   string `json:"message"`
}

// TimeInfo is the time source's contribution.
type TimeInfo struct {
	TimeOfDay      TimeOfDay
	DayOfWeek      string
	IsWorkingHours bool
}

// CalendarInfo is the calendar source's contribution.
type CalendarInfo struct {
	UpcomingEvents []CalendarEvent // at most 3, sorted by start
	CurrentEvent   string          // empty when nothing is happening now
}

// VCSInfo is the version-control source's contribution.
type VCSInfo struct {
	RecentActivity []VCSEntry // newest first, at most 3
}

// GoalsInfo is the goal source's contribution.
type GoalsInfo struct {
	Summary string
}

// Partial carries whichever fields a source gathered. Nil fields were not
// produced by the source that returned the Partial.
type Partial struct {
	Time     *TimeInfo
	Calendar *CalendarInfo
	VCS      *VCSInfo
	Goals    *GoalsInfo
}

// Source is a single context gatherer.
type Source interface {
	Name() string
	Gather(ctx context.Context) (Partial, error)
}
