package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"seraph/internal/broadcast"
	"seraph/internal/goals"
	"seraph/internal/llm"
	"seraph/internal/observer"
	"seraph/internal/store"
)

// DailyBriefing composes the morning briefing from the fresh context snapshot
// and long-term memory. Scheduled, so it bypasses the budget.
type DailyBriefing struct {
	Manager     *observer.Manager
	Client      llm.Client
	Memory      MemorySearcher
	Coordinator *observer.Coordinator
}

func (j *DailyBriefing) Name() string { return "daily_briefing" }

func (j *DailyBriefing) Run(ctx context.Context) error {
	snapshot := j.Manager.Refresh(ctx)
	block := snapshot.ToPromptBlock(time.Now())

	memories := ""
	if j.Memory != nil {
		memories = j.Memory.SearchFormatted(ctx, "morning priorities and ongoing work", 5)
	}

	user := "Context:\n" + block
	if memories != "" {
		user += "\n\n" + memories
	}

	resp, err := j.Client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: "Write a warm, concrete morning briefing in at most four sentences. Mention today's calendar and the most relevant goal. No greetings padding, no markdown."},
			{Role: "user", Content: user},
		},
		Temperature: 0.6,
		MaxTokens:   300,
	})
	if err != nil {
		return fmt.Errorf("compose briefing: %w", err)
	}

	j.Coordinator.Dispatch(ctx, broadcast.Message{
		Type:             "proactive",
		Content:          strings.TrimSpace(resp.Content),
		InterventionType: observer.TypeAdvisory,
		Urgency:          3,
		Reasoning:        "Scheduled morning briefing",
	}, true)
	return nil
}

// EveningReview closes the day with a short reflection built from actual
// activity: conversation volume and goals completed today.
type EveningReview struct {
	Sessions    *store.SessionStore
	Goals       goals.Repository
	Client      llm.Client
	Coordinator *observer.Coordinator
}

func (j *EveningReview) Name() string { return "evening_review" }

func (j *EveningReview) Run(ctx context.Context) error {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	msgCount, err := j.Sessions.MessageCountSince(ctx, dayStart)
	if err != nil {
		return err
	}
	completed, err := j.Goals.CompletedToday(ctx, now)
	if err != nil {
		return err
	}

	var facts strings.Builder
	fmt.Fprintf(&facts, "Messages exchanged today: %d\n", msgCount)
	if len(completed) == 0 {
		facts.WriteString("Goals completed today: none\n")
	} else {
		facts.WriteString("Goals completed today:\n")
		for _, g := range completed {
			fmt.Fprintf(&facts, "- %s (%s)\n", g.Title, g.Domain)
		}
	}

	resp, err := j.Client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: "Write a calm two-sentence evening review of the user's day from these facts. Acknowledge what got done; never invent accomplishments."},
			{Role: "user", Content: facts.String()},
		},
		Temperature: 0.6,
		MaxTokens:   200,
	})
	if err != nil {
		return fmt.Errorf("compose evening review: %w", err)
	}

	j.Coordinator.Dispatch(ctx, broadcast.Message{
		Type:             "proactive",
		Content:          strings.TrimSpace(resp.Content),
		InterventionType: observer.TypeAdvisory,
		Urgency:          2,
		Reasoning:        "Scheduled evening review",
	}, true)
	return nil
}
