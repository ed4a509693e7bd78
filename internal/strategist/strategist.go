// Package strategist asks the model whether the current moment warrants a
// proactive intervention, and parses its structured verdict.
package strategist

import (
	"context"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"seraph/internal/jsonx"
	"seraph/internal/llm"
	"seraph/internal/logging"
)

// Decision is the strategist's verdict for one tick.
type Decision struct {
	ShouldIntervene  bool   `json:"should_intervene"`
	InterventionType string `json:"intervention_type"`
	Message          string `json:"message"`
	Urgency          int    `json:"urgency"`
	Reasoning        string `json:"reasoning"`
}

// levelGuidance tunes the prompt per configured proactivity level.
var levelGuidance = map[int]string{
	1: "Intervene only for genuinely urgent or time-critical matters.",
	2: "Intervene rarely; the user strongly prefers to be left alone.",
	3: "Intervene when there is clear, concrete value in speaking up.",
	4: "Intervene when you see a reasonable opportunity to help.",
	5: "Intervene freely whenever you might be useful.",
}

const systemPrompt = `You are the proactive strategist of a personal assistant.
You observe the user's current context and decide whether to intervene with a
short, helpful message. Most of the time the right answer is to stay silent.

%s

Respond with JSON only, no prose:
{
  "should_intervene": false,
  "intervention_type": "nudge|advisory|alert",
  "message": "the message to show the user, if intervening",
  "urgency": 1,
  "reasoning": "one sentence on why"
}

Urgency is 1-5; 5 means drop-everything critical. Never invent calendar events
or activity that is not in the context.`

// Strategist evaluates context snapshots against the model.
type Strategist struct {
	client           llm.Client
	proactivityLevel int
	logger           logging.Logger
}

func New(client llm.Client, proactivityLevel int, logger logging.Logger) *Strategist {
	if _, ok := levelGuidance[proactivityLevel]; !ok {
		proactivityLevel = 3
	}
	return &Strategist{
		client:           client,
		proactivityLevel: proactivityLevel,
		logger:           logging.OrNop(logger),
	}
}

// Evaluate asks the model for a verdict on the given context block. The
// memories block may be empty. A completion error is returned as-is; a
// malformed reply degrades to "do not intervene".
func (s *Strategist) Evaluate(ctx context.Context, contextBlock, memories string) (Decision, error) {
	user := "Current context:\n" + contextBlock
	if memories != "" {
		user += "\n\n" + memories
	}

	resp, err := s.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: fmt.Sprintf(systemPrompt, levelGuidance[s.proactivityLevel])},
			{Role: "user", Content: user},
		},
		Temperature: 0.4,
		MaxTokens:   512,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("strategist completion: %w", err)
	}

	d := ParseDecision(resp.Content)
	if d.Reasoning == parseFailureReason {
		s.logger.Warn("strategist returned unparseable output: %s", truncate(resp.Content, 200))
	}
	return d, nil
}

const parseFailureReason = "Parse failure"

// ParseDecision decodes the model's verdict. Code fences are stripped and
// mildly broken JSON is repaired; anything still unparseable yields a safe
// non-intervention.
func ParseDecision(raw string) Decision {
	cleaned := stripFences(raw)

	var d Decision
	if err := jsonx.Unmarshal([]byte(cleaned), &d); err == nil {
		return clamp(d)
	}

	repaired, err := jsonrepair.JSONRepair(cleaned)
	if err == nil {
		if err := jsonx.Unmarshal([]byte(repaired), &d); err == nil {
			return clamp(d)
		}
	}

	return Decision{ShouldIntervene: false, Reasoning: parseFailureReason}
}

func clamp(d Decision) Decision {
	if d.Urgency < 1 {
		d.Urgency = 1
	}
	if d.Urgency > 5 {
		d.Urgency = 5
	}
	switch d.InterventionType {
	case "nudge", "advisory", "alert":
	default:
		d.InterventionType = "advisory"
	}
	return d
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
