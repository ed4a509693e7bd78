package sources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"seraph/internal/goals"
)

func TestClassifyHour(t *testing.T) {
	cases := map[int]TimeOfDay{
		0:  TimeNight,
		4:  TimeNight,
		5:  TimeMorning,
		11: TimeMorning,
		12: TimeAfternoon,
		16: TimeAfternoon,
		17: TimeEvening,
		20: TimeEvening,
		21: TimeNight,
		23: TimeNight,
	}
	for hour, want := range cases {
		if got := ClassifyHour(hour); got != want {
			t.Errorf("ClassifyHour(%d) = %s, want %s", hour, got, want)
		}
	}
}

func TestTimeSourceWorkingHours(t *testing.T) {
	// Monday 10:00 is working time; Saturday 10:00 and Monday 17:00 are not.
	cases := []struct {
		when time.Time
		want bool
	}{
		{time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), true},  // Monday
		{time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC), false}, // Saturday
		{time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC), false}, // end is exclusive
		{time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), true},   // start is inclusive
	}
	for _, tc := range cases {
		src := NewTimeSource(time.UTC, 9, 17)
		src.Now = func() time.Time { return tc.when }
		p, err := src.Gather(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if p.Time.IsWorkingHours != tc.want {
			t.Errorf("%s: working hours = %v, want %v", tc.when, p.Time.IsWorkingHours, tc.want)
		}
	}
}

func TestSummarizeGoals(t *testing.T) {
	active := []goals.Goal{
		{Title: "Ship parser", Domain: "work"},
		{Title: "Fix CI", Domain: "work"},
		{Title: "Write docs", Domain: "work"},
		{Title: "Refactor store", Domain: "work"},
		{Title: "Run 5k", Domain: "health"},
	}
	got := SummarizeGoals(active)
	want := "work: Ship parser, Fix CI, Write docs (+1 more); health: Run 5k"
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}

	if SummarizeGoals(nil) != "" {
		t.Error("no goals should summarize to empty string")
	}
}

func TestVCSSourceParsesReflog(t *testing.T) {
	dir := t.TempDir()
	logsDir := filepath.Join(dir, ".git", "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	recent := now.Add(-10 * time.Minute).Unix()
	old := now.Add(-2 * time.Hour).Unix()
	content := fmt.Sprintf(
		"aaaa1111 bbbb2222 Dev Eloper <dev@example.com> %d +0000\tcommit: old change\n"+
			"bbbb2222 cccc3333 Dev Eloper <dev@example.com> %d +0000\tcommit: recent change\n",
		old, recent)
	if err := os.WriteFile(filepath.Join(logsDir, "HEAD"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewVCSSource(dir)
	p, err := src.Gather(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(p.VCS.RecentActivity) != 1 {
		t.Fatalf("entries = %d, want 1 (old entry outside window)", len(p.VCS.RecentActivity))
	}
	if !strings.Contains(p.VCS.RecentActivity[0].Message, "recent change") {
		t.Errorf("message = %q", p.VCS.RecentActivity[0].Message)
	}
}

func TestVCSSourceMissingRepoIsAbsence(t *testing.T) {
	src := NewVCSSource(filepath.Join(t.TempDir(), "nowhere"))
	p, err := src.Gather(context.Background())
	if err != nil {
		t.Fatalf("missing reflog should not error: %v", err)
	}
	if p.VCS == nil || len(p.VCS.RecentActivity) != 0 {
		t.Errorf("want empty VCS info, got %+v", p.VCS)
	}
}
