package sources

import (
	"context"
	"time"

	"seraph/internal/calendar"
)

const maxUpcomingEvents = 3

// CalendarSource reads the next 24h of events from the calendar collaborator.
// A nil client (no credentials) yields an empty Partial without error.
type CalendarSource struct {
	Client calendar.Client
	Now    func() time.Time
}

func NewCalendarSource(client calendar.Client) *CalendarSource {
	return &CalendarSource{Client: client}
}

func (s *CalendarSource) Name() string { return "calendar" }

func (s *CalendarSource) Gather(ctx context.Context) (Partial, error) {
	info := &CalendarInfo{}
	if s.Client == nil {
		return Partial{Calendar: info}, nil
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	events, err := s.Client.Events(ctx, now, now.Add(24*time.Hour))
	if err != nil {
		return Partial{}, err
	}

	for _, e := range events {
		if len(info.UpcomingEvents) < maxUpcomingEvents {
			info.UpcomingEvents = append(info.UpcomingEvents, e)
		}
		if !e.Start.After(now) && !e.End.Before(now) && info.CurrentEvent == "" {
			info.CurrentEvent = e.Summary
		}
	}

	return Partial{Calendar: info}, nil
}
