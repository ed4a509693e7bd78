package observer

import (
	"strings"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestApplySensorPatchPartialMerge(t *testing.T) {
	now := time.Now()
	prev := NewContext()
	prev.ActiveWindow = "Terminal"
	prev.ScreenContext = "compiling"

	// Only the window field set: screen context survives.
	next := ApplySensorPatch(prev, SensorPatch{ActiveWindow: strPtr("Browser")}, now)
	if next.ActiveWindow != "Browser" {
		t.Errorf("ActiveWindow = %q, want Browser", next.ActiveWindow)
	}
	if next.ScreenContext != "compiling" {
		t.Errorf("ScreenContext overwritten: %q", next.ScreenContext)
	}
	if !next.LastSensorPost.Equal(now) {
		t.Error("heartbeat not stamped")
	}

	// Explicit empty string clears, nil does not.
	next = ApplySensorPatch(prev, SensorPatch{ScreenContext: strPtr("")}, now)
	if next.ScreenContext != "" {
		t.Errorf("explicit empty string should clear, got %q", next.ScreenContext)
	}
	if next.ActiveWindow != "Terminal" {
		t.Errorf("ActiveWindow overwritten: %q", next.ActiveWindow)
	}
}

func TestApplySensorPatchHeartbeatOnly(t *testing.T) {
	now := time.Now()
	prev := NewContext()
	prev.ActiveWindow = "Editor"

	next := ApplySensorPatch(prev, SensorPatch{}, now)
	if next.ActiveWindow != "Editor" {
		t.Errorf("empty patch changed window to %q", next.ActiveWindow)
	}
	if !next.LastSensorPost.Equal(now) {
		t.Error("empty patch must still stamp the heartbeat")
	}
}

func TestToPromptBlockTruncatesScreenContext(t *testing.T) {
	c := NewContext()
	c.ScreenContext = strings.Repeat("x", 2000)

	block := c.ToPromptBlock(time.Now())
	for _, line := range strings.Split(block, "\n") {
		if strings.HasPrefix(line, "Screen content: ") {
			content := strings.TrimPrefix(line, "Screen content: ")
			if len(content) > screenContextPromptLimit+3 {
				t.Errorf("screen content not truncated: %d chars", len(content))
			}
			if !strings.HasSuffix(content, "...") {
				t.Error("truncated screen content should end with ellipsis")
			}
			return
		}
	}
	t.Fatal("screen content line missing from prompt block")
}

func TestToPromptBlockOmitsAbsentSignals(t *testing.T) {
	block := NewContext().ToPromptBlock(time.Now())
	for _, forbidden := range []string{"Current event", "Upcoming events", "Screen content", "Last interaction"} {
		if strings.Contains(block, forbidden) {
			t.Errorf("empty context should not mention %q:\n%s", forbidden, block)
		}
	}
	if !strings.Contains(block, "User state: available") {
		t.Errorf("state line missing:\n%s", block)
	}
}

func TestNewContextDefaults(t *testing.T) {
	c := NewContext()
	if c.InterruptionMode != ModeBalanced {
		t.Errorf("mode = %s, want balanced", c.InterruptionMode)
	}
	if c.AttentionBudgetRemaining != 5 {
		t.Errorf("budget = %d, want 5", c.AttentionBudgetRemaining)
	}
	if c.UserState != StateAvailable || c.DataQuality != QualityGood {
		t.Errorf("unexpected defaults: %+v", c)
	}
}
