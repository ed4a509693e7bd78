package strategist

import (
	"context"
	"strings"
	"testing"

	"seraph/internal/llm"
)

func TestParseDecisionPlainJSON(t *testing.T) {
	d := ParseDecision(`{"should_intervene": true, "intervention_type": "nudge", "message": "stretch", "urgency": 2, "reasoning": "long sitting"}`)
	if !d.ShouldIntervene {
		t.Fatal("should_intervene lost")
	}
	if d.InterventionType != "nudge" || d.Message != "stretch" || d.Urgency != 2 {
		t.Errorf("unexpected decision: %+v", d)
	}
}

func TestParseDecisionCodeFences(t *testing.T) {
	raw := "```json\n{\"should_intervene\": true, \"intervention_type\": \"alert\", \"message\": \"m\", \"urgency\": 4, \"reasoning\": \"r\"}\n```"
	d := ParseDecision(raw)
	if !d.ShouldIntervene || d.InterventionType != "alert" {
		t.Errorf("fenced JSON not parsed: %+v", d)
	}
}

func TestParseDecisionRepairsBrokenJSON(t *testing.T) {
	// Trailing comma and unquoted key, the classic model mistakes.
	raw := `{"should_intervene": true, "intervention_type": "advisory", "message": "check calendar", urgency: 3, "reasoning": "meeting soon",}`
	d := ParseDecision(raw)
	if !d.ShouldIntervene {
		t.Errorf("repairable JSON rejected: %+v", d)
	}
}

func TestParseDecisionGarbageIsSafe(t *testing.T) {
	d := ParseDecision("I think you should probably take a break now!")
	if d.ShouldIntervene {
		t.Error("garbage output must not intervene")
	}
	if d.Reasoning != "Parse failure" {
		t.Errorf("reasoning = %q, want Parse failure", d.Reasoning)
	}
}

func TestParseDecisionClampsFields(t *testing.T) {
	d := ParseDecision(`{"should_intervene": true, "intervention_type": "banner", "urgency": 9}`)
	if d.Urgency != 5 {
		t.Errorf("urgency = %d, want clamped to 5", d.Urgency)
	}
	if d.InterventionType != "advisory" {
		t.Errorf("unknown type = %q, want advisory fallback", d.InterventionType)
	}

	d = ParseDecision(`{"should_intervene": true, "intervention_type": "nudge", "urgency": 0}`)
	if d.Urgency != 1 {
		t.Errorf("urgency = %d, want clamped to 1", d.Urgency)
	}
}

func TestEvaluatePassesContextAndMemories(t *testing.T) {
	mock := llm.NewMockClient(`{"should_intervene": false, "reasoning": "nothing to add"}`)
	s := New(mock, 3, nil)

	d, err := s.Evaluate(context.Background(), "User state: available", "Relevant memories:\n- prefers mornings")
	if err != nil {
		t.Fatal(err)
	}
	if d.ShouldIntervene {
		t.Error("mock said no intervention")
	}

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("llm calls = %d, want 1", len(calls))
	}
	user := calls[0].Messages[len(calls[0].Messages)-1].Content
	if !strings.Contains(user, "User state: available") || !strings.Contains(user, "prefers mornings") {
		t.Errorf("prompt missing context or memories:\n%s", user)
	}
}

func TestNewClampsProactivityLevel(t *testing.T) {
	s := New(llm.NewMockClient(), 42, nil)
	if s.proactivityLevel != 3 {
		t.Errorf("level = %d, want default 3", s.proactivityLevel)
	}
}
