// Package speakers loads and validates the speaker registry (speakers.json)
// and watches it for changes so the running process never needs a restart
// to pick up a new or edited speaker entry.
package speakers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// file is the on-disk schema of speakers.json.
type file struct {
	Speakers map[string]Speaker `json:"speakers"`
}

// Speaker mirrors domain.Speaker; duplicated here (rather than imported)
// because the registry's on-disk schema is a presentation concern distinct
// from the domain type used once a speaker is resolved for the graph.
type Speaker struct {
	DisplayName    string   `json:"display_name"`
	Role           string   `json:"role"`
	Organization   string   `json:"organization"`
	Industry       string   `json:"industry"`
	Region         string   `json:"region"`
	DateOfBirth    string   `json:"date_of_birth,omitempty"`
	Bio            string   `json:"bio,omitempty"`
	InfluenceScore *float64 `json:"influence_score,omitempty"`
}

// Registry is a live, hot-reloadable view of speakers.json.
type Registry struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	speakers map[string]Speaker

	watcher   *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
}

// Load reads and validates path, returning a Registry that has not yet
// started watching for changes (call Watch to enable that).
func Load(path string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{path: path, logger: logger}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) reload() error {
	b, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("speakers: read %s: %w", r.path, err)
	}

	var f file
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("speakers: parse %s: %w", r.path, err)
	}

	for key, sp := range f.Speakers {
		if sp.DisplayName == "" || sp.Role == "" || sp.Organization == "" || sp.Industry == "" || sp.Region == "" {
			return fmt.Errorf("speakers: entry %q is missing a required field", key)
		}
	}

	r.mu.Lock()
	r.speakers = f.Speakers
	r.mu.Unlock()
	return nil
}

// Get returns the speaker registered under key.
func (r *Registry) Get(key string) (Speaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sp, ok := r.speakers[key]
	return sp, ok
}

// Watch starts an fsnotify watch on the registry file; edits trigger a
// reload. The watcher goroutine runs until ctx is cancelled or Close is
// called.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("speakers: new watcher: %w", err)
	}
	if err := watcher.Add(r.path); err != nil {
		watcher.Close()
		return fmt.Errorf("speakers: watch %s: %w", r.path, err)
	}

	r.watcher = watcher
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		defer r.closeOnce.Do(func() { watcher.Close() })
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := r.reload(); err != nil {
					r.logger.Warn("speakers: reload failed", "error", err)
					continue
				}
				r.logger.Info("speakers: registry reloaded", "path", r.path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Warn("speakers: watcher error", "error", err)
			}
		}
	}()

	return nil
}

// Close stops the watcher goroutine, if one was started.
func (r *Registry) Close() error {
	if r.watcher == nil {
		return nil
	}
	var err error
	r.closeOnce.Do(func() { err = r.watcher.Close() })
	<-r.done
	return err
}
