package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

const testQuiet = 50 * time.Millisecond

// setupGitDir lays out the slice of a .git directory the watcher cares
// about: index, HEAD, and a branch tip under refs/heads
func setupGitDir(t *testing.T) string {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "gitwatch-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	gitDir := filepath.Join(tmpDir, ".git")
	if err := os.MkdirAll(filepath.Join(gitDir, "refs", "heads"), 0755); err != nil {
		t.Fatalf("Failed to create refs/heads: %v", err)
	}
	for name, content := range map[string]string{
		"HEAD":            "ref: refs/heads/main\n",
		"index":           "stub",
		"refs/heads/main": "0000000000000000000000000000000000000000\n",
	} {
		if err := os.WriteFile(filepath.Join(gitDir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	return gitDir
}

// counter tallies notifications and lets tests wait for them
type counter struct {
	mu    sync.Mutex
	count int
	ch    chan struct{}
}

func newCounter() *counter {
	return &counter{ch: make(chan struct{}, 64)}
}

func (c *counter) notify() {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()

	select {
	case c.ch <- struct{}{}:
	default:
	}
}

func (c *counter) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func (c *counter) waitForNotification(t *testing.T) {
	t.Helper()
	select {
	case <-c.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for notification")
	}
}

func startWatcher(t *testing.T, gitDir string, c *counter) *Watcher {
	t.Helper()

	w, err := New(gitDir, testQuiet, c.notify)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { w.Close() })

	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	return w
}

func TestNewMissingDir(t *testing.T) {
	_, err := New("/nonexistent/path/.git", testQuiet, func() {})
	if err == nil {
		t.Fatal("New() should return error for a missing directory")
	}
}

func TestIndexRewriteNotifies(t *testing.T) {
	gitDir := setupGitDir(t)
	c := newCounter()
	startWatcher(t, gitDir, c)

	// Staging rewrites the index in place
	if err := os.WriteFile(filepath.Join(gitDir, "index"), []byte("stub2"), 0644); err != nil {
		t.Fatalf("Failed to rewrite index: %v", err)
	}

	c.waitForNotification(t)
}

func TestRefUpdateNotifies(t *testing.T) {
	gitDir := setupGitDir(t)
	c := newCounter()
	startWatcher(t, gitDir, c)

	// A commit moves the branch tip under refs/heads
	ref := filepath.Join(gitDir, "refs", "heads", "main")
	if err := os.WriteFile(ref, []byte("1111111111111111111111111111111111111111\n"), 0644); err != nil {
		t.Fatalf("Failed to update ref: %v", err)
	}

	c.waitForNotification(t)
}

func TestCommitBurstCoalesced(t *testing.T) {
	gitDir := setupGitDir(t)
	c := newCounter()
	startWatcher(t, gitDir, c)

	// One commit touches several files in quick succession
	for _, name := range []string{"index", "HEAD", "COMMIT_EDITMSG", "refs/heads/main"} {
		if err := os.WriteFile(filepath.Join(gitDir, name), []byte("churn"), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	c.waitForNotification(t)

	// Let any stray timers fire before counting
	time.Sleep(3 * testQuiet)
	if got := c.total(); got != 1 {
		t.Errorf("Expected burst to coalesce into 1 notification, got %d", got)
	}
}

func TestSeparatedChangesNotifySeparately(t *testing.T) {
	gitDir := setupGitDir(t)
	c := newCounter()
	startWatcher(t, gitDir, c)

	index := filepath.Join(gitDir, "index")

	if err := os.WriteFile(index, []byte("first"), 0644); err != nil {
		t.Fatal(err)
	}
	c.waitForNotification(t)

	if err := os.WriteFile(index, []byte("second"), 0644); err != nil {
		t.Fatal(err)
	}
	c.waitForNotification(t)

	time.Sleep(3 * testQuiet)
	if got := c.total(); got != 2 {
		t.Errorf("Expected 2 notifications for separated changes, got %d", got)
	}
}

func TestCloseStopsNotifications(t *testing.T) {
	gitDir := setupGitDir(t)
	c := newCounter()
	w := startWatcher(t, gitDir, c)

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(gitDir, "index"), []byte("after close"), 0644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(3 * testQuiet)
	if got := c.total(); got != 0 {
		t.Errorf("Expected no notifications after Close, got %d", got)
	}
}

func TestCloseDuringQuietPeriodSwallowsPending(t *testing.T) {
	gitDir := setupGitDir(t)
	c := newCounter()
	w := startWatcher(t, gitDir, c)

	if err := os.WriteFile(filepath.Join(gitDir, "index"), []byte("pending"), 0644); err != nil {
		t.Fatal(err)
	}

	// Give the write time to reach the event loop, then close before
	// the quiet period elapses; the pending timer must not fire
	time.Sleep(testQuiet / 2)
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	time.Sleep(3 * testQuiet)
	if got := c.total(); got != 0 {
		t.Errorf("Expected pending notification to be swallowed by Close, got %d", got)
	}
}

func TestStartTwiceRejected(t *testing.T) {
	gitDir := setupGitDir(t)
	c := newCounter()
	w := startWatcher(t, gitDir, c)

	if err := w.Start(); err == nil {
		t.Fatal("Second Start() should fail")
	}
}
