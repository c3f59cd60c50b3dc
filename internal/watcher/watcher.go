package watcher

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes a git metadata directory and coalesces its churn
// into debounced change notifications. A single git operation rewrites
// several files at once (index, HEAD, refs, logs), and subscribers only
// care that the repository state moved, so every event collapses into
// one callback per quiet period.
type Watcher struct {
	path   string
	quiet  time.Duration
	notify func()

	fs   *fsnotify.Watcher
	done chan struct{}

	mu      sync.Mutex
	timer   *time.Timer
	started bool
	closed  bool
}

// New creates a Watcher over the given .git directory. Branch tips live
// under refs/heads, which fsnotify does not see from the top level, so
// that subdirectory is watched too when it exists.
func New(gitDir string, quiet time.Duration, notify func()) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := fs.Add(gitDir); err != nil {
		fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", gitDir, err)
	}

	heads := filepath.Join(gitDir, "refs", "heads")
	if info, err := os.Stat(heads); err == nil && info.IsDir() {
		if err := fs.Add(heads); err != nil {
			log.Printf("[Watcher] Cannot watch %s: %v", heads, err)
		}
	}

	return &Watcher{
		path:   gitDir,
		quiet:  quiet,
		notify: notify,
		fs:     fs,
		done:   make(chan struct{}),
	}, nil
}

// Start begins delivering notifications
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("watcher is closed")
	}
	if w.started {
		return fmt.Errorf("watcher already started")
	}
	w.started = true

	go w.watch()

	return nil
}

// Close stops watching. No notification fires after Close returns.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.started {
		close(w.done)
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}

	return w.fs.Close()
}

// watch is the event loop
func (w *Watcher) watch() {
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			// Chmod-only events carry no state change; git lock files
			// and object writes arrive as create/write/remove/rename
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.bump()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("[Watcher] Error: %v", err)

		case <-w.done:
			return
		}
	}
}

// bump restarts the quiet-period timer. Bursts of events (a commit
// touching index, HEAD, and a ref) yield a single notification once the
// directory settles.
func (w *Watcher) bump() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.quiet, func() {
		w.mu.Lock()
		closed := w.closed
		w.mu.Unlock()
		if !closed {
			w.notify()
		}
	})
}
