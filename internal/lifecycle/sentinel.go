package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dhaslem/armada/pkg/models"
)

// Sentinel is the result descriptor an agent writes to its well-known
// per-task location on exit.
type Sentinel struct {
	// Status is the agent's reported outcome.
	Status models.ResultStatus `json:"status"`
	// Summary is the agent's own description of what it did.
	Summary string `json:"summary,omitempty"`
	// Blockers lists what stopped a blocked agent, if it said.
	Blockers []string `json:"blockers,omitempty"`
}

// ReadSentinel parses the sentinel file at path.
func ReadSentinel(path string) (*Sentinel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sentinel %s: %w", path, err)
	}

	var s Sentinel
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse sentinel %s: %w", path, err)
	}
	if s.Status != models.ResultCompleted && s.Status != models.ResultBlocked {
		return nil, fmt.Errorf("sentinel %s has unknown status %q", path, s.Status)
	}
	return &s, nil
}

// WaitForSentinel blocks until the sentinel file exists or the context
// ends. It watches the sentinel directory for create events and falls
// back to fixed-interval polling, which also covers filesystems where
// watches are unreliable. Returns false if the context ended first.
func WaitForSentinel(ctx context.Context, path string, interval time.Duration) (bool, error) {
	if interval <= 0 {
		interval = time.Second
	}

	if _, err := os.Stat(path); err == nil {
		return true, nil
	}

	var watchEvents chan fsnotify.Event
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(path)); err == nil {
			watchEvents = make(chan fsnotify.Event, 1)
			go func() {
				for {
					select {
					case ev, ok := <-watcher.Events:
						if !ok {
							return
						}
						if ev.Name == path && ev.Op.Has(fsnotify.Create|fsnotify.Write) {
							select {
							case watchEvents <- ev:
							default:
							}
						}
					case <-ctx.Done():
						return
					}
				}
			}()
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// The agent may have written the sentinel right before the
			// wait was cut off.
			_, statErr := os.Stat(path)
			return statErr == nil, nil
		case <-watchEvents:
			if _, err := os.Stat(path); err == nil {
				return true, nil
			}
		case <-ticker.C:
			if _, err := os.Stat(path); err == nil {
				return true, nil
			}
		}
	}
}
