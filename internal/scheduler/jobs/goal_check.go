package jobs

import (
	"context"
	"fmt"

	"seraph/internal/broadcast"
	"seraph/internal/goals"
	"seraph/internal/observer"
)

// behindThreshold is the completion ratio below which goals count as behind.
const behindThreshold = 0.3

// GoalCheck publishes an ambient goal-progress signal. Ambient messages carry
// state for the client's status surface and never cost attention budget.
type GoalCheck struct {
	Goals       goals.Repository
	Coordinator *observer.Coordinator
}

func (j *GoalCheck) Name() string { return "goal_check" }

func (j *GoalCheck) Run(ctx context.Context) error {
	dash, err := j.Goals.Dashboard(ctx)
	if err != nil {
		return err
	}
	if dash.TotalCount == 0 {
		return nil
	}

	ratio := float64(dash.CompletedCount) / float64(dash.TotalCount)
	state := "on_track"
	if ratio < behindThreshold {
		state = "goal_behind"
	}

	j.Coordinator.Dispatch(ctx, broadcast.Message{
		Type:             "ambient",
		InterventionType: observer.TypeAmbient,
		State:            state,
		Tooltip: fmt.Sprintf("%d of %d goals completed, %d active",
			dash.CompletedCount, dash.TotalCount, dash.ActiveCount),
		Urgency: 1,
	}, false)
	return nil
}
