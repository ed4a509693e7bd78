package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"seraph/internal/jsonx"
	"seraph/internal/llm"
	"seraph/internal/logging"
)

const consolidationPrompt = `You are the memory consolidation process of a personal assistant.
Read the recent conversation transcript and extract durable knowledge.

Respond with JSON only, no prose, in this exact shape:
{
  "facts": ["stable fact about the user or their world"],
  "patterns": ["recurring behavior or preference"],
  "goals": ["goal or intention the user expressed"],
  "reflections": ["observation about how the assistant could serve better"],
  "soul_updates": {"Section Name": "replacement text for that section"}
}

Use empty arrays/objects for categories with nothing new. Extract only what is
worth remembering for weeks, not conversational details.`

// Extraction is what one consolidation round pulled out of the transcript.
type Extraction struct {
	Facts       []string          `json:"facts"`
	Patterns    []string          `json:"patterns"`
	Goals       []string          `json:"goals"`
	Reflections []string          `json:"reflections"`
	SoulUpdates map[string]string `json:"soul_updates"`
}

func (e Extraction) total() int {
	return len(e.Facts) + len(e.Patterns) + len(e.Goals) + len(e.Reflections)
}

// Consolidator distills conversation transcripts into the memory store and
// the soul file.
type Consolidator struct {
	client llm.Client
	store  *Store
	soul   *Soul
	logger logging.Logger
}

func NewConsolidator(client llm.Client, store *Store, soul *Soul, logger logging.Logger) *Consolidator {
	return &Consolidator{
		client: client,
		store:  store,
		soul:   soul,
		logger: logging.OrNop(logger),
	}
}

// Consolidate runs one extraction over transcript and persists the results.
// Returns how many memories were stored.
func (c *Consolidator) Consolidate(ctx context.Context, transcript string) (int, error) {
	if strings.TrimSpace(transcript) == "" {
		return 0, nil
	}

	resp, err := c.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: consolidationPrompt},
			{Role: "user", Content: transcript},
		},
		Temperature: 0.2,
		MaxTokens:   1024,
	})
	if err != nil {
		return 0, fmt.Errorf("consolidation completion: %w", err)
	}

	ext, err := parseExtraction(resp.Content)
	if err != nil {
		return 0, fmt.Errorf("parse consolidation output: %w", err)
	}

	stored := 0
	remember := func(items []string, category string) {
		for _, item := range items {
			if err := c.store.Remember(ctx, item, category); err != nil {
				c.logger.Warn("storing %s memory failed: %v", category, err)
				continue
			}
			stored++
		}
	}
	remember(ext.Facts, "fact")
	remember(ext.Patterns, "pattern")
	remember(ext.Goals, "goal")
	remember(ext.Reflections, "reflection")

	for section, body := range ext.SoulUpdates {
		if err := c.soul.UpdateSection(section, body); err != nil {
			c.logger.Warn("soul update for %q failed: %v", section, err)
		}
	}

	if ext.total() > 0 || len(ext.SoulUpdates) > 0 {
		c.logger.Info("consolidated %d memories, %d soul update(s)", stored, len(ext.SoulUpdates))
	}
	return stored, nil
}

// parseExtraction tolerates code fences and mildly broken JSON, the two ways
// models mangle structured output.
func parseExtraction(raw string) (Extraction, error) {
	cleaned := stripFences(raw)

	var ext Extraction
	if err := jsonx.Unmarshal([]byte(cleaned), &ext); err == nil {
		return ext, nil
	}

	repaired, err := jsonrepair.JSONRepair(cleaned)
	if err != nil {
		return Extraction{}, fmt.Errorf("repair json: %w", err)
	}
	if err := jsonx.Unmarshal([]byte(repaired), &ext); err != nil {
		return Extraction{}, fmt.Errorf("unmarshal repaired json: %w", err)
	}
	return ext, nil
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
