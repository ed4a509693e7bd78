package sources

import (
	"context"
	"fmt"
	"strings"

	"seraph/internal/goals"
)

const maxTitlesPerDomain = 3

// GoalSource summarizes active goals grouped by domain.
type GoalSource struct {
	Repo goals.Repository
}

func NewGoalSource(repo goals.Repository) *GoalSource {
	return &GoalSource{Repo: repo}
}

func (s *GoalSource) Name() string { return "goals" }

func (s *GoalSource) Gather(ctx context.Context) (Partial, error) {
	info := &GoalsInfo{}
	if s.Repo == nil {
		return Partial{Goals: info}, nil
	}

	active, err := s.Repo.ListActive(ctx)
	if err != nil {
		return Partial{}, err
	}
	info.Summary = SummarizeGoals(active)
	return Partial{Goals: info}, nil
}

// SummarizeGoals renders "domainA: t1, t2, t3 (+N more); domainB: ...",
// keeping the first three titles per domain. Domains appear in first-seen
// order so the summary is stable across refreshes.
func SummarizeGoals(active []goals.Goal) string {
	if len(active) == 0 {
		return ""
	}

	var order []string
	byDomain := make(map[string][]string)
	for _, g := range active {
		if _, seen := byDomain[g.Domain]; !seen {
			order = append(order, g.Domain)
		}
		byDomain[g.Domain] = append(byDomain[g.Domain], g.Title)
	}

	parts := make([]string, 0, len(order))
	for _, domain := range order {
		titles := byDomain[domain]
		suffix := ""
		if len(titles) > maxTitlesPerDomain {
			suffix = fmt.Sprintf(" (+%d more)", len(titles)-maxTitlesPerDomain)
			titles = titles[:maxTitlesPerDomain]
		}
		parts = append(parts, fmt.Sprintf("%s: %s%s", domain, strings.Join(titles, ", "), suffix))
	}
	return strings.Join(parts, "; ")
}
