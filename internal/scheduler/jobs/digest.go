package jobs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"seraph/internal/broadcast"
	"seraph/internal/observer"
	"seraph/internal/store"
)

// ActivityDigest summarizes today's screen activity. Days with no
// observations produce nothing at all.
type ActivityDigest struct {
	Screen      *store.ScreenStore
	Coordinator *observer.Coordinator
	Location    *time.Location
}

func (j *ActivityDigest) Name() string { return "activity_digest" }

func (j *ActivityDigest) Run(ctx context.Context) error {
	sum, err := j.Screen.DailySummary(ctx, time.Now(), j.Location)
	if err != nil {
		return err
	}
	if sum.ContextSwitches == 0 {
		return nil
	}

	j.Coordinator.Dispatch(ctx, broadcast.Message{
		Type:             "proactive",
		Content:          "Today's activity:\n" + renderSummary(sum),
		InterventionType: observer.TypeAdvisory,
		Urgency:          2,
		Reasoning:        "Scheduled daily activity digest",
	}, true)
	return nil
}

// WeeklyActivityReview is the Sunday wrap-up over the last seven days.
type WeeklyActivityReview struct {
	Screen      *store.ScreenStore
	Coordinator *observer.Coordinator
	Location    *time.Location
}

func (j *WeeklyActivityReview) Name() string { return "weekly_activity_review" }

func (j *WeeklyActivityReview) Run(ctx context.Context) error {
	sum, err := j.Screen.WeeklySummary(ctx, time.Now(), j.Location)
	if err != nil {
		return err
	}
	if sum.ContextSwitches == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("Your week in review:\n")
	b.WriteString(renderSummary(sum))
	if len(sum.PerDayMinutes) > 0 {
		days := make([]string, 0, len(sum.PerDayMinutes))
		for day := range sum.PerDayMinutes {
			days = append(days, day)
		}
		sort.Strings(days)
		b.WriteString("\nBy day:")
		for _, day := range days {
			fmt.Fprintf(&b, "\n- %s: %s", day, formatMinutes(sum.PerDayMinutes[day]))
		}
	}

	j.Coordinator.Dispatch(ctx, broadcast.Message{
		Type:             "proactive",
		Content:          b.String(),
		InterventionType: observer.TypeAdvisory,
		Urgency:          2,
		Reasoning:        "Scheduled weekly activity review",
	}, true)
	return nil
}

// ScreenCleanup prunes observations past the retention window.
type ScreenCleanup struct {
	Screen        *store.ScreenStore
	RetentionDays int
}

func (j *ScreenCleanup) Name() string { return "screen_cleanup" }

func (j *ScreenCleanup) Run(ctx context.Context) error {
	_, err := j.Screen.Cleanup(ctx, j.RetentionDays)
	return err
}

func renderSummary(sum *store.ActivitySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Tracked time: %s across %d window switches",
		formatMinutes(sum.TotalMinutes), sum.ContextSwitches)

	if len(sum.ByActivity) > 0 {
		b.WriteString("\n- Top activities: " + topEntries(sum.ByActivity, 3))
	}
	if len(sum.ByProject) > 0 {
		b.WriteString("\n- Projects: " + topEntries(sum.ByProject, 3))
	}
	if len(sum.TopFocusStreaks) > 0 {
		b.WriteString("\n- Longest focus streaks:")
		for _, streak := range sum.TopFocusStreaks {
			fmt.Fprintf(&b, " %s (%s)", streak.Activity, formatMinutes(streak.Minutes))
		}
	}
	return b.String()
}

func topEntries(m map[string]int, n int) string {
	type kv struct {
		key     string
		minutes int
	}
	entries := make([]kv, 0, len(m))
	for k, v := range m {
		entries = append(entries, kv{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].minutes != entries[j].minutes {
			return entries[i].minutes > entries[j].minutes
		}
		return entries[i].key < entries[j].key
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s (%s)", e.key, formatMinutes(e.minutes))
	}
	return strings.Join(parts, ", ")
}

func formatMinutes(min int) string {
	if min < 60 {
		return fmt.Sprintf("%dm", min)
	}
	return fmt.Sprintf("%dh%02dm", min/60, min%60)
}
