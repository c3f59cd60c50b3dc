package git

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	gogit "github.com/go-git/go-git/v5"
)

// Repo issues version-control operations against a project directory
type Repo struct {
	path string
}

// RepoStatus describes the repository state of the project directory.
// A missing repository is reported, not treated as an error.
type RepoStatus struct {
	IsRepository bool   `json:"is_repository"`
	IsClean      bool   `json:"is_clean"`
	Branch       string `json:"branch"`
}

// NameStatus is one line of a name-status diff
type NameStatus struct {
	Path   string `json:"path"`
	Status string `json:"status"` // "A", "M", "D"
}

// New creates a Repo bound to the given project directory
func New(path string) *Repo {
	return &Repo{path: path}
}

// Path returns the project directory
func (r *Repo) Path() string {
	return r.path
}

// Status returns the current repository status. If the directory is not
// under version control, IsRepository is false and err is nil.
func (r *Repo) Status() (*RepoStatus, error) {
	repo, err := gogit.PlainOpen(r.path)
	if err != nil {
		if err == gogit.ErrRepositoryNotExists {
			return &RepoStatus{IsRepository: false}, nil
		}
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	branch, err := r.CurrentBranch()
	if err != nil {
		branch = "" // Branch might not exist yet (empty repo)
	}

	return &RepoStatus{
		IsRepository: true,
		IsClean:      status.IsClean(),
		Branch:       branch,
	}, nil
}

// CurrentBranch returns the name of the current branch.
// Uses git command instead of go-git because go-git doesn't handle worktrees correctly
func (r *Repo) CurrentBranch() (string, error) {
	output, err := r.RunGitCommand("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}

	if output == "HEAD" {
		return "", fmt.Errorf("HEAD is detached")
	}

	return output, nil
}

// StageAll stages every change in the working tree, including new files
func (r *Repo) StageAll() error {
	_, err := r.RunGitCommand("add", "-A")
	return err
}

// Commit commits the staged changes with the given message.
// An empty index ("nothing to commit") is not an error.
func (r *Repo) Commit(message string) error {
	_, err := r.RunGitCommand("commit", "-m", message)
	if err != nil {
		if strings.Contains(err.Error(), "nothing to commit") ||
			strings.Contains(err.Error(), "nothing added to commit") {
			return nil
		}
		return err
	}
	return nil
}

// CommitAll stages everything and commits it in one step
func (r *Repo) CommitAll(message string) error {
	if err := r.StageAll(); err != nil {
		return err
	}
	return r.Commit(message)
}

// HeadRevision returns the full hash of HEAD
func (r *Repo) HeadRevision() (string, error) {
	return r.RunGitCommand("rev-parse", "HEAD")
}

// DiffNameStatus lists files that differ between the given revision and
// the working tree (staged changes included). Renames and copies are
// reported as modifications of the destination path.
func (r *Repo) DiffNameStatus(from string) ([]NameStatus, error) {
	output, err := r.RunGitCommand("diff", "--name-status", from)
	if err != nil {
		return nil, err
	}

	var changes []NameStatus
	for _, line := range strings.Split(output, "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}

		status := fields[0]
		path := fields[len(fields)-1]

		switch status[0] {
		case 'A':
			changes = append(changes, NameStatus{Path: path, Status: "A"})
		case 'D':
			changes = append(changes, NameStatus{Path: path, Status: "D"})
		case 'M', 'R', 'C', 'T':
			changes = append(changes, NameStatus{Path: path, Status: "M"})
		}
	}

	return changes, nil
}

// DiffNumstat returns the added/removed line counts for a single path
// between the given revision and the working tree. Binary files and
// unchanged paths count as zero.
func (r *Repo) DiffNumstat(from, path string) (int, int, error) {
	output, err := r.RunGitCommand("diff", "--numstat", from, "--", path)
	if err != nil {
		return 0, 0, err
	}

	line := strings.TrimSpace(output)
	if line == "" {
		return 0, 0, nil
	}

	fields := strings.Fields(line)
	if len(fields) < 3 {
		return 0, 0, nil
	}

	// "-" columns mean a binary file
	added, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, nil
	}
	removed, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, nil
	}

	return added, removed, nil
}

// HardReset resets the working tree and index to the given revision
func (r *Repo) HardReset(revision string) error {
	_, err := r.RunGitCommand("reset", "--hard", revision)
	return err
}

// EnsureIgnored appends an entry to the project's .gitignore if it is
// not already listed. Creates the file if needed.
func (r *Repo) EnsureIgnored(entry string) error {
	ignorePath := filepath.Join(r.path, ".gitignore")

	data, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == entry {
			return nil
		}
	}

	f, err := os.OpenFile(ignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	content := entry + "\n"
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		content = "\n" + content
	}

	_, err = f.WriteString(content)
	return err
}

// RunGitCommand executes a git command and returns the output
func (r *Repo) RunGitCommand(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.path

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return "", fmt.Errorf("git command failed: %w, stderr: %s, stdout: %s",
			err, stderr.String(), stdout.String())
	}

	return strings.TrimSpace(stdout.String()), nil
}
