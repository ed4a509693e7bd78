// Package contextwindow trims chat histories to a token budget while keeping
// the head of the conversation and the most recent turns.
package contextwindow

import (
	"github.com/pkoukk/tiktoken-go"

	"seraph/internal/llm"
	"seraph/internal/logging"
)

const encodingName = "cl100k_base"

// elisionNotice replaces the dropped middle of a long conversation.
var elisionNotice = llm.Message{
	Role:    "system",
	Content: "[Earlier conversation trimmed for length.]",
}

// Window enforces a token budget over message histories.
type Window struct {
	budget     int
	keepFirst  int
	keepRecent int
	encoder    *tiktoken.Tiktoken
	logger     logging.Logger
}

// New builds a Window. A failed encoder init falls back to a byte-length
// estimate rather than erroring; trimming is best-effort.
func New(budget, keepFirst, keepRecent int, logger logging.Logger) *Window {
	logger = logging.OrNop(logger)
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		logger.Warn("tiktoken init failed, using byte estimate: %v", err)
		enc = nil
	}
	return &Window{
		budget:     budget,
		keepFirst:  keepFirst,
		keepRecent: keepRecent,
		encoder:    enc,
		logger:     logger,
	}
}

// CountTokens returns the token count for a single string.
func (w *Window) CountTokens(s string) int {
	if w.encoder == nil {
		return len(s) / 4
	}
	return len(w.encoder.Encode(s, nil, nil))
}

func (w *Window) messagesTokens(msgs []llm.Message) int {
	total := 0
	for _, m := range msgs {
		// Per-message framing overhead is roughly constant.
		total += w.CountTokens(m.Content) + 4
	}
	return total
}

// Fit returns msgs unchanged when under budget; otherwise it keeps the first
// keepFirst and last keepRecent messages, drops the middle, and marks the gap.
func (w *Window) Fit(msgs []llm.Message) []llm.Message {
	if w.budget <= 0 || w.messagesTokens(msgs) <= w.budget {
		return msgs
	}
	if len(msgs) <= w.keepFirst+w.keepRecent {
		return msgs
	}

	head := msgs[:w.keepFirst]
	tail := msgs[len(msgs)-w.keepRecent:]

	out := make([]llm.Message, 0, len(head)+1+len(tail))
	out = append(out, head...)
	out = append(out, elisionNotice)
	out = append(out, tail...)

	w.logger.Debug("trimmed history %d -> %d messages (budget %d tokens)",
		len(msgs), len(out), w.budget)

	// Still over budget: shed the oldest tail turns, never the head.
	for w.messagesTokens(out) > w.budget && len(out) > w.keepFirst+2 {
		out = append(out[:w.keepFirst+1], out[w.keepFirst+2:]...)
	}
	return out
}
