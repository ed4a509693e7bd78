// Package jobs holds the periodic work units the scheduler runs: the
// strategist tick, scheduled briefings and digests, and maintenance tasks.
package jobs

import (
	"context"
	"time"

	"seraph/internal/broadcast"
	"seraph/internal/logging"
	"seraph/internal/observer"
	"seraph/internal/strategist"
)

// MemorySearcher surfaces relevant long-term memories for a prompt. A nil
// searcher means memory is disabled.
type MemorySearcher interface {
	SearchFormatted(ctx context.Context, query string, k int) string
}

// StrategistTick refreshes context and lets the strategist decide whether to
// intervene. Delivery always goes through the gate.
type StrategistTick struct {
	Manager     *observer.Manager
	Strategist  *strategist.Strategist
	Coordinator *observer.Coordinator
	Memory      MemorySearcher
	Logger      logging.Logger
}

func (j *StrategistTick) Name() string { return "strategist_tick" }

func (j *StrategistTick) Run(ctx context.Context) error {
	snapshot := j.Manager.Refresh(ctx)
	block := snapshot.ToPromptBlock(time.Now())

	memories := ""
	if j.Memory != nil {
		memories = j.Memory.SearchFormatted(ctx, block, 5)
	}

	decision, err := j.Strategist.Evaluate(ctx, block, memories)
	if err != nil {
		return err
	}
	if !decision.ShouldIntervene {
		logging.OrNop(j.Logger).Debug("strategist: no intervention (%s)", decision.Reasoning)
		return nil
	}

	j.Coordinator.Dispatch(ctx, broadcast.Message{
		Type:             "proactive",
		Content:          decision.Message,
		InterventionType: decision.InterventionType,
		Urgency:          decision.Urgency,
		Reasoning:        decision.Reasoning,
	}, false)
	return nil
}
