package sources

import (
	"context"
	"time"
)

// TimeSource classifies the current instant in the user's timezone. Pure
// computation, no I/O.
type TimeSource struct {
	Location          *time.Location
	WorkingHoursStart int
	WorkingHoursEnd   int
	Now               func() time.Time // defaults to time.Now
}

func NewTimeSource(loc *time.Location, workStart, workEnd int) *TimeSource {
	return &TimeSource{Location: loc, WorkingHoursStart: workStart, WorkingHoursEnd: workEnd}
}

func (s *TimeSource) Name() string { return "time" }

func (s *TimeSource) Gather(context.Context) (Partial, error) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	if s.Location != nil {
		now = now.In(s.Location)
	}
	hour := now.Hour()

	info := &TimeInfo{
		TimeOfDay: ClassifyHour(hour),
		DayOfWeek: now.Weekday().String(),
	}

	weekday := now.Weekday() != time.Saturday && now.Weekday() != time.Sunday
	info.IsWorkingHours = weekday && s.WorkingHoursStart <= hour && hour < s.WorkingHoursEnd

	return Partial{Time: info}, nil
}

// ClassifyHour maps an hour to its time-of-day band: [5,12) morning,
// [12,17) afternoon, [17,21) evening, else night.
func ClassifyHour(hour int) TimeOfDay {
	switch {
	case hour >= 5 && hour < 12:
		return TimeMorning
	case hour >= 12 && hour < 17:
		return TimeAfternoon
	case hour >= 17 && hour < 21:
		return TimeEvening
	default:
		return TimeNight
	}
}
