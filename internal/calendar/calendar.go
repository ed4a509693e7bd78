// Package calendar is the boundary to the user's external calendar. The core
// only consumes the Client interface; the file-backed implementation below
// reads a local JSON agenda exported by whatever sync tool the user runs.
package calendar

import (
	"context"
	"os"
	"sort"
	"time"

	"seraph/internal/jsonx"
)

// Event is a single calendar entry.
type Event struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// Client fetches events overlapping the given window, sorted by start time.
type Client interface {
	Events(ctx context.Context, from, to time.Time) ([]Event, error)
}

// FileClient reads events from a JSON agenda file. A missing file means no
// credentials were configured and yields an empty agenda without error.
type FileClient struct {
	Path string
}

// NewFileClient creates a FileClient for the given agenda path. An empty path
// disables the client.
func NewFileClient(path string) *FileClient {
	return &FileClient{Path: path}
}

func (c *FileClient) Events(_ context.Context, from, to time.Time) ([]Event, error) {
	if c.Path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var all []Event
	if err := jsonx.Unmarshal(data, &all); err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(all))
	for _, e := range all {
		if e.End.Before(from) || e.Start.After(to) {
			continue
		}
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })
	return events, nil
}

// Nop is a Client that always returns an empty agenda.
type Nop struct{}

func (Nop) Events(context.Context, time.Time, time.Time) ([]Event, error) { return nil, nil }
