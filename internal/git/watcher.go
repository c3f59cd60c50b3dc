package git

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pageforge/internal/eventhub"
	"pageforge/internal/watcher"
)

// EventEmitter receives working-tree change notifications
type EventEmitter interface {
	EmitGitChanged(event eventhub.GitChangedEvent)
}

// Watcher monitors a project's .git directory and broadcasts status
// changes so clients can refresh their checkpoint views
type Watcher struct {
	repo    *Repo
	emitter EventEmitter
	w       *watcher.Watcher
	mu      sync.Mutex
}

// NewWatcher creates a Watcher for the given repo
func NewWatcher(repo *Repo, emitter EventEmitter) *Watcher {
	return &Watcher{
		repo:    repo,
		emitter: emitter,
	}
}

// Start begins watching the project's .git directory with debouncing
func (g *Watcher) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.w != nil {
		return nil // already watching
	}

	gitDir := filepath.Join(g.repo.Path(), ".git")

	w, err := watcher.New(gitDir, 300*time.Millisecond, g.onChange)
	if err != nil {
		return fmt.Errorf("failed to watch git dir: %w", err)
	}

	if err := w.Start(); err != nil {
		w.Close()
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	g.w = w

	// Send the current state right away
	go g.onChange()

	return nil
}

// Close stops the watcher
func (g *Watcher) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.w != nil {
		g.w.Close()
		g.w = nil
	}
}

// onChange gathers the current status and emits it
func (g *Watcher) onChange() {
	if g.emitter == nil {
		return
	}

	event := eventhub.GitChangedEvent{
		Path:   g.repo.Path(),
		Status: make(map[string]string),
	}

	if branch, err := g.repo.CurrentBranch(); err == nil {
		event.Branch = branch
	}

	if output, err := g.repo.RunGitCommand("status", "--porcelain"); err == nil {
		for _, line := range strings.Split(output, "\n") {
			if len(line) < 4 {
				continue
			}
			status := strings.TrimSpace(line[:2])
			path := strings.TrimSpace(line[3:])
			if path != "" {
				event.Status[path] = status
			}
		}
	}

	g.emitter.EmitGitChanged(event)
}
