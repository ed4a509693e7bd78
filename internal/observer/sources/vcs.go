package sources

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	vcsActivityWindow = time.Hour
	maxVCSEntries     = 3
)

// Reflog line: <old-sha> <new-sha> <name> <email> <timestamp> <tz> <tab> <message>
var reflogLine = regexp.MustCompile(`^[0-9a-f]+ [0-9a-f]+ .+ <.+> (\d+) [+-]\d{4}\t(.+)$`)

// VCSSource parses the local git reflog from disk. No subprocess is spawned;
// the reflog file is the only thing touched.
type VCSSource struct {
	RepoPath string
	Now      func() time.Time
}

func NewVCSSource(repoPath string) *VCSSource {
	return &VCSSource{RepoPath: repoPath}
}

func (s *VCSSource) Name() string { return "vcs" }

func (s *VCSSource) Gather(context.Context) (Partial, error) {
	if s.RepoPath == "" {
		return Partial{VCS: &VCSInfo{}}, nil
	}

	reflogPath := filepath.Join(s.RepoPath, ".git", "logs", "HEAD")
	data, err := os.ReadFile(reflogPath)
	if err != nil {
		if os.IsNotExist(err) {
			// No repository or no reflog yet: absence, not failure.
			return Partial{VCS: &VCSInfo{}}, nil
		}
		return Partial{}, err
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	cutoff := now.Add(-vcsActivityWindow).Unix()

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	info := &VCSInfo{}

	// Reflog is append-only, so walk backwards and stop at the first entry
	// older than the window.
	for i := len(lines) - 1; i >= 0; i-- {
		match := reflogLine.FindStringSubmatch(lines[i])
		if match == nil {
			continue
		}
		ts, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			continue
		}
		if ts < cutoff {
			break
		}
		info.RecentActivity = append(info.RecentActivity, VCSEntry{Timestamp: ts, Message: match[2]})
		if len(info.RecentActivity) >= maxVCSEntries {
			break
		}
	}

	return Partial{VCS: info}, nil
}
