package observer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"seraph/internal/broadcast"
	"seraph/internal/logging"
)

// Insight is a deferred proactive message held in the queue.
type Insight struct {
	ID               string
	Content          string
	InterventionType string
	Urgency          int
	Reasoning        string
	CreatedAt        time.Time
}

// InsightQueue is the durable hold for messages the gate deferred.
type InsightQueue interface {
	Enqueue(ctx context.Context, in Insight) error
	// Drain returns all non-expired rows in urgency-desc, createdAt-asc order
	// and deletes every row (fresh and expired) in the same transaction.
	Drain(ctx context.Context) ([]Insight, error)
	Count(ctx context.Context) (int, error)
	Peek(ctx context.Context, limit int) ([]Insight, error)
}

// Broadcaster pushes a message to all connected subscribers.
type Broadcaster interface {
	Broadcast(msg broadcast.Message)
}

// Coordinator is the single entry point for all proactive messages. Every job
// and the strategist dispatch through it; nothing else talks to the hub.
type Coordinator struct {
	manager *Manager
	queue   InsightQueue
	hub     Broadcaster
	logger  logging.Logger
	now     func() time.Time
}

func NewCoordinator(manager *Manager, queue InsightQueue, hub Broadcaster, logger logging.Logger) *Coordinator {
	return &Coordinator{
		manager: manager,
		queue:   queue,
		hub:     hub,
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}
}

// Dispatch routes msg through the delivery gate and acts on the decision.
// Enqueue failures surface as a drop: the message is logged and discarded.
func (c *Coordinator) Dispatch(ctx context.Context, msg broadcast.Message, isScheduled bool) DeliveryDecision {
	snapshot := c.manager.Get()
	machine := c.manager.StateMachine()

	interventionType := msg.InterventionType
	if interventionType == "" {
		interventionType = msg.Type
	}

	decision := machine.ShouldDeliver(GateInput{
		UserState:        snapshot.UserState,
		InterruptionMode: snapshot.InterruptionMode,
		BudgetRemaining:  snapshot.AttentionBudgetRemaining,
		Urgency:          msg.Urgency,
		InterventionType: interventionType,
		IsScheduled:      isScheduled,
	})

	switch decision {
	case DecisionDeliver:
		c.hub.Broadcast(msg)
		if machine.ShouldCostBudget(interventionType, isScheduled, msg.Urgency) {
			c.manager.DecrementBudget()
		}
		c.logger.Info("delivered proactive message (type=%s, urgency=%d)", interventionType, msg.Urgency)

	case DecisionQueue:
		err := c.queue.Enqueue(ctx, Insight{
			Content:          msg.Content,
			InterventionType: interventionType,
			Urgency:          msg.Urgency,
			Reasoning:        msg.Reasoning,
			CreatedAt:        c.now(),
		})
		if err != nil {
			c.logger.Warn("enqueue failed, dropping message: %v", err)
			return DecisionDrop
		}
		c.logger.Info("queued proactive message (state=%s, mode=%s)",
			snapshot.UserState, snapshot.InterruptionMode)

	default:
		c.logger.Info("dropped proactive message (type=%s)", interventionType)
	}

	return decision
}

// DeliverQueuedBundle drains the queue and broadcasts a single bundle.
// Invoked by the manager's transition task. The bundle bypasses the gate:
// it never costs budget and is never re-queued.
func (c *Coordinator) DeliverQueuedBundle(ctx context.Context) (int, error) {
	items, err := c.queue.Drain(ctx)
	if err != nil {
		return 0, fmt.Errorf("drain insight queue: %w", err)
	}
	if len(items) == 0 {
		return 0, nil
	}

	c.hub.Broadcast(broadcast.Message{
		Type:             "proactive",
		Content:          bundleContent(items),
		InterventionType: TypeBundle,
		Urgency:          3,
		Reasoning:        fmt.Sprintf("Bundle of %d queued insight(s) delivered on state transition", len(items)),
	})
	return len(items), nil
}

func bundleContent(items []Insight) string {
	plural := "s"
	if len(items) == 1 {
		plural = ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "While you were away (%d update%s):", len(items), plural)
	for _, item := range items {
		b.WriteString("\n- ")
		b.WriteString(item.Content)
	}
	return b.String()
}
