package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"seraph/internal/broadcast"
	"seraph/internal/calendar"
	"seraph/internal/observer"
)

// imminentWindow is how far ahead the scan looks for events worth an alert.
const imminentWindow = 15 * time.Minute

// CalendarScan alerts on events starting within the next fifteen minutes.
// Events already underway are not re-announced.
type CalendarScan struct {
	Calendar    calendar.Client
	Coordinator *observer.Coordinator
	Now         func() time.Time
}

func (j *CalendarScan) Name() string { return "calendar_scan" }

func (j *CalendarScan) Run(ctx context.Context) error {
	if j.Calendar == nil {
		return nil
	}
	now := time.Now()
	if j.Now != nil {
		now = j.Now()
	}

	events, err := j.Calendar.Events(ctx, now, now.Add(imminentWindow))
	if err != nil {
		return err
	}

	var imminent []calendar.Event
	for _, e := range events {
		lead := e.Start.Sub(now)
		if lead > 0 && lead <= imminentWindow {
			imminent = append(imminent, e)
		}
	}
	if len(imminent) == 0 {
		return nil
	}

	var b strings.Builder
	if len(imminent) == 1 {
		minutes := int(imminent[0].Start.Sub(now).Minutes())
		fmt.Fprintf(&b, "%q starts in %d minute(s).", imminent[0].Summary, minutes)
	} else {
		fmt.Fprintf(&b, "%d events starting soon:", len(imminent))
		for _, e := range imminent {
			fmt.Fprintf(&b, "\n- %s at %s", e.Summary, e.Start.Format("15:04"))
		}
	}

	j.Coordinator.Dispatch(ctx, broadcast.Message{
		Type:             "proactive",
		Content:          b.String(),
		InterventionType: observer.TypeAlert,
		Urgency:          4,
		Reasoning:        "Calendar event starting within fifteen minutes",
	}, false)
	return nil
}
