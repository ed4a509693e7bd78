package store

import (
	"context"
	"testing"

	"seraph/internal/observer"
)

func TestProfileDefaultCreation(t *testing.T) {
	p := NewProfileStore(openTestStore(t), nil)
	ctx := context.Background()

	prof, err := p.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if prof.InterruptionMode != observer.ModeBalanced {
		t.Errorf("default mode = %s, want balanced", prof.InterruptionMode)
	}
	if prof.CaptureMode != observer.CaptureBalanced {
		t.Errorf("default capture = %s, want balanced", prof.CaptureMode)
	}
	if prof.OnboardingCompleted {
		t.Error("fresh profile should not be onboarded")
	}
}

func TestProfilePersistsModeAcrossLoads(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	p := NewProfileStore(st, nil)
	if _, err := p.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.SetInterruptionMode(ctx, observer.ModeFocus); err != nil {
		t.Fatal(err)
	}
	if err := p.SetCaptureMode(ctx, observer.CaptureDetailed); err != nil {
		t.Fatal(err)
	}

	// Fresh store handle, same database: the restart path.
	prof, err := NewProfileStore(st, nil).Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if prof.InterruptionMode != observer.ModeFocus {
		t.Errorf("mode after reload = %s, want focus", prof.InterruptionMode)
	}
	if prof.CaptureMode != observer.CaptureDetailed {
		t.Errorf("capture after reload = %s, want detailed", prof.CaptureMode)
	}
}

func TestProfileUpdateWithoutPriorLoad(t *testing.T) {
	p := NewProfileStore(openTestStore(t), nil)
	ctx := context.Background()

	// No Load first: the update must create the row itself.
	if err := p.SetInterruptionMode(ctx, observer.ModeActive); err != nil {
		t.Fatal(err)
	}
	prof, err := p.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if prof.InterruptionMode != observer.ModeActive {
		t.Errorf("mode = %s, want active", prof.InterruptionMode)
	}
}

func TestCompleteOnboardingIdempotent(t *testing.T) {
	p := NewProfileStore(openTestStore(t), nil)
	ctx := context.Background()

	if err := p.CompleteOnboarding(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.CompleteOnboarding(ctx); err != nil {
		t.Fatal(err)
	}
	prof, err := p.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !prof.OnboardingCompleted {
		t.Error("onboarding flag not set")
	}
}
