// Package broadcast fans proactive messages out to connected subscribers.
// Deliveries are fire-and-forget; a subscriber whose write fails is dropped.
package broadcast

import (
	"sync"

	"seraph/internal/logging"
)

// Message is the outbound wire shape for proactive and ambient pushes. Seq is
// stamped per connection by the subscriber adapter.
type Message struct {
	Type             string `json:"type"`
	Content          string `json:"content"`
	InterventionType string `json:"intervention_type,omitempty"`
	Urgency          int    `json:"urgency,omitempty"`
	Reasoning        string `json:"reasoning,omitempty"`
	State            string `json:"state,omitempty"`
	Tooltip          string `json:"tooltip,omitempty"`
	Seq              uint64 `json:"seq"`
}

// Subscriber receives broadcast messages. Send must be safe for concurrent
// use by the hub and should stamp its own per-connection sequence number.
type Subscriber interface {
	Send(msg Message) error
}

// Hub maintains the subscriber set behind its own lock. It is the only
// component that touches subscribers.
type Hub struct {
	mu          sync.Mutex
	subscribers map[Subscriber]struct{}
	logger      logging.Logger
}

func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		subscribers: make(map[Subscriber]struct{}),
		logger:      logging.OrNop(logger),
	}
}

// Subscribe registers sub for future broadcasts.
func (h *Hub) Subscribe(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[sub] = struct{}{}
	h.logger.Debug("subscriber registered (%d active)", len(h.subscribers))
}

// Unsubscribe removes sub. Safe to call for an already-removed subscriber.
func (h *Hub) Unsubscribe(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, sub)
	h.logger.Debug("subscriber removed (%d active)", len(h.subscribers))
}

// Count returns the number of active subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Broadcast writes msg to every subscriber, evicting any whose write fails.
func (h *Hub) Broadcast(msg Message) {
	h.mu.Lock()
	subs := make([]Subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	var dead []Subscriber
	for _, sub := range subs {
		if err := sub.Send(msg); err != nil {
			dead = append(dead, sub)
		}
	}

	if len(dead) == 0 {
		return
	}
	h.mu.Lock()
	for _, sub := range dead {
		delete(h.subscribers, sub)
	}
	remaining := len(h.subscribers)
	h.mu.Unlock()
	h.logger.Debug("dropped %d dead subscriber(s) (%d active)", len(dead), remaining)
}
