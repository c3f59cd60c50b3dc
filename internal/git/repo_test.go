package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// setupTestRepo creates a temporary git repository for testing
func setupTestRepo(t *testing.T) string {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "git-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	for _, args := range [][]string{
		{"init"},
		{"config", "user.name", "Test User"},
		{"config", "user.email", "test@example.com"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = tmpDir
		if err := cmd.Run(); err != nil {
			t.Fatalf("Failed to run git %v: %v", args, err)
		}
	}

	return tmpDir
}

// commitFile creates a file and commits it
func commitFile(t *testing.T, repoPath, filename, content string) {
	t.Helper()

	filePath := filepath.Join(repoPath, filename)
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	cmd := exec.Command("git", "add", filename)
	cmd.Dir = repoPath
	if err := cmd.Run(); err != nil {
		t.Fatalf("Failed to add file: %v", err)
	}

	cmd = exec.Command("git", "commit", "-m", "Add "+filename)
	cmd.Dir = repoPath
	if err := cmd.Run(); err != nil {
		t.Fatalf("Failed to commit file: %v", err)
	}
}

func TestStatusNotARepository(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "not-a-repo-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	status, err := New(tmpDir).Status()
	if err != nil {
		t.Fatalf("Expected no error for missing repo, got %v", err)
	}
	if status.IsRepository {
		t.Error("Expected IsRepository to be false")
	}
}

func TestStatusCleanRepo(t *testing.T) {
	repoPath := setupTestRepo(t)
	commitFile(t, repoPath, "README.md", "# Test")

	status, err := New(repoPath).Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}

	if !status.IsRepository {
		t.Error("Expected IsRepository to be true")
	}
	if !status.IsClean {
		t.Error("Expected clean working tree")
	}
	if status.Branch != "master" && status.Branch != "main" {
		t.Errorf("Expected branch 'master' or 'main', got %q", status.Branch)
	}
}

func TestStatusDirtyRepo(t *testing.T) {
	repoPath := setupTestRepo(t)
	commitFile(t, repoPath, "README.md", "# Test")

	if err := os.WriteFile(filepath.Join(repoPath, "new.txt"), []byte("untracked"), 0644); err != nil {
		t.Fatal(err)
	}

	status, err := New(repoPath).Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.IsClean {
		t.Error("Expected dirty working tree")
	}
}

func TestCommitAll(t *testing.T) {
	repoPath := setupTestRepo(t)
	commitFile(t, repoPath, "README.md", "# Test")
	repo := New(repoPath)

	if err := os.WriteFile(filepath.Join(repoPath, "file.txt"), []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := repo.CommitAll("test commit"); err != nil {
		t.Fatalf("CommitAll failed: %v", err)
	}

	status, err := repo.Status()
	if err != nil {
		t.Fatal(err)
	}
	if !status.IsClean {
		t.Error("Expected clean tree after CommitAll")
	}
}

func TestCommitNothingToCommit(t *testing.T) {
	repoPath := setupTestRepo(t)
	commitFile(t, repoPath, "README.md", "# Test")

	// Committing a clean tree is a no-op, not an error
	if err := New(repoPath).CommitAll("empty"); err != nil {
		t.Errorf("Expected nil for empty commit, got %v", err)
	}
}

func TestHeadRevision(t *testing.T) {
	repoPath := setupTestRepo(t)
	commitFile(t, repoPath, "README.md", "# Test")

	rev, err := New(repoPath).HeadRevision()
	if err != nil {
		t.Fatalf("HeadRevision failed: %v", err)
	}
	if len(rev) != 40 {
		t.Errorf("Expected 40-char hash, got %q", rev)
	}
}

func TestDiffNameStatus(t *testing.T) {
	repoPath := setupTestRepo(t)
	commitFile(t, repoPath, "keep.txt", "keep\n")
	commitFile(t, repoPath, "change.txt", "before\n")
	commitFile(t, repoPath, "remove.txt", "gone\n")
	repo := New(repoPath)

	base, err := repo.HeadRevision()
	if err != nil {
		t.Fatal(err)
	}

	// One modified, one created, one deleted
	if err := os.WriteFile(filepath.Join(repoPath, "change.txt"), []byte("after\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(repoPath, "new.txt"), []byte("fresh\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(repoPath, "remove.txt")); err != nil {
		t.Fatal(err)
	}

	// New files only show in the diff once staged
	if err := repo.StageAll(); err != nil {
		t.Fatal(err)
	}

	changes, err := repo.DiffNameStatus(base)
	if err != nil {
		t.Fatalf("DiffNameStatus failed: %v", err)
	}

	got := make(map[string]string)
	for _, c := range changes {
		got[c.Path] = c.Status
	}

	want := map[string]string{
		"change.txt": "M",
		"new.txt":    "A",
		"remove.txt": "D",
	}
	for path, status := range want {
		if got[path] != status {
			t.Errorf("Expected %s for %s, got %q (all: %v)", status, path, got[path], got)
		}
	}
	if _, ok := got["keep.txt"]; ok {
		t.Error("Did not expect keep.txt in diff")
	}
}

func TestDiffNameStatusNoChanges(t *testing.T) {
	repoPath := setupTestRepo(t)
	commitFile(t, repoPath, "README.md", "# Test")
	repo := New(repoPath)

	base, err := repo.HeadRevision()
	if err != nil {
		t.Fatal(err)
	}

	changes, err := repo.DiffNameStatus(base)
	if err != nil {
		t.Fatalf("DiffNameStatus failed: %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("Expected no changes, got %v", changes)
	}
}

func TestDiffNumstat(t *testing.T) {
	repoPath := setupTestRepo(t)
	commitFile(t, repoPath, "file.txt", "line1\nline2\nline3\n")
	repo := New(repoPath)

	base, err := repo.HeadRevision()
	if err != nil {
		t.Fatal(err)
	}

	// +3/-1: drop one line, add three
	if err := os.WriteFile(filepath.Join(repoPath, "file.txt"),
		[]byte("line1\nline2\nnew1\nnew2\nnew3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	added, removed, err := repo.DiffNumstat(base, "file.txt")
	if err != nil {
		t.Fatalf("DiffNumstat failed: %v", err)
	}
	if added != 3 || removed != 1 {
		t.Errorf("Expected +3/-1, got +%d/-%d", added, removed)
	}
}

func TestDiffNumstatUnchangedPath(t *testing.T) {
	repoPath := setupTestRepo(t)
	commitFile(t, repoPath, "file.txt", "content\n")
	repo := New(repoPath)

	base, err := repo.HeadRevision()
	if err != nil {
		t.Fatal(err)
	}

	added, removed, err := repo.DiffNumstat(base, "file.txt")
	if err != nil {
		t.Fatalf("DiffNumstat failed: %v", err)
	}
	if added != 0 || removed != 0 {
		t.Errorf("Expected 0/0 for unchanged path, got +%d/-%d", added, removed)
	}
}

func TestHardReset(t *testing.T) {
	repoPath := setupTestRepo(t)
	commitFile(t, repoPath, "file.txt", "original\n")
	repo := New(repoPath)

	base, err := repo.HeadRevision()
	if err != nil {
		t.Fatal(err)
	}

	commitFile(t, repoPath, "file.txt", "changed\n")

	if err := repo.HardReset(base); err != nil {
		t.Fatalf("HardReset failed: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(repoPath, "file.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "original\n" {
		t.Errorf("Expected original content after reset, got %q", content)
	}

	head, err := repo.HeadRevision()
	if err != nil {
		t.Fatal(err)
	}
	if head != base {
		t.Errorf("Expected HEAD %s after reset, got %s", base, head)
	}
}

func TestEnsureIgnored(t *testing.T) {
	repoPath := setupTestRepo(t)
	repo := New(repoPath)

	if err := repo.EnsureIgnored(".pageforge/"); err != nil {
		t.Fatalf("EnsureIgnored failed: %v", err)
	}

	// Second call must not duplicate the entry
	if err := repo.EnsureIgnored(".pageforge/"); err != nil {
		t.Fatalf("Second EnsureIgnored failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(repoPath, ".gitignore"))
	if err != nil {
		t.Fatal(err)
	}

	count := strings.Count(string(data), ".pageforge/")
	if count != 1 {
		t.Errorf("Expected exactly 1 ignore entry, got %d in %q", count, data)
	}
}

func TestCurrentBranch(t *testing.T) {
	repoPath := setupTestRepo(t)
	commitFile(t, repoPath, "README.md", "# Test")

	branch, err := New(repoPath).CurrentBranch()
	if err != nil {
		t.Fatalf("CurrentBranch failed: %v", err)
	}
	if branch != "master" && branch != "main" {
		t.Errorf("Expected 'master' or 'main', got %q", branch)
	}
}
