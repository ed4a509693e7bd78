package jobs

import (
	"context"
	"strings"
	"time"

	"seraph/internal/logging"
	"seraph/internal/memory"
	"seraph/internal/store"
)

// MemoryConsolidation distills recently active conversations into long-term
// memory. Sessions untouched for over an hour are left for the next run that
// sees fresh activity.
type MemoryConsolidation struct {
	Sessions     *store.SessionStore
	Consolidator *memory.Consolidator
	Logger       logging.Logger
}

func (j *MemoryConsolidation) Name() string { return "memory_consolidation" }

func (j *MemoryConsolidation) Run(ctx context.Context) error {
	sessions, err := j.Sessions.RecentSessions(ctx, time.Now().Add(-time.Hour), 10)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return nil
	}

	var b strings.Builder
	for _, sess := range sessions {
		text, err := j.Sessions.HistoryText(ctx, sess.ID)
		if err != nil {
			logging.OrNop(j.Logger).Warn("reading session %s failed: %v", sess.ID, err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		b.WriteString("--- ")
		b.WriteString(sess.Title)
		b.WriteString(" ---\n")
		b.WriteString(text)
		b.WriteString("\n")
	}

	_, err = j.Consolidator.Consolidate(ctx, b.String())
	return err
}
