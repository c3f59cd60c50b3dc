// internal/checkpoint/manager.go
package checkpoint

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"pageforge/internal/config"
	"pageforge/internal/git"
)

// GitAdapter is the narrow slice of version-control operations the
// manager needs. *git.Repo satisfies it; tests substitute a fake.
type GitAdapter interface {
	Status() (*git.RepoStatus, error)
	StageAll() error
	Commit(message string) error
	HeadRevision() (string, error)
	DiffNameStatus(from string) ([]git.NameStatus, error)
	DiffNumstat(from, path string) (int, int, error)
	HardReset(revision string) error
	EnsureIgnored(entry string) error
}

// CreateMeta carries the context of the edit batch that triggers a checkpoint
type CreateMeta struct {
	EditSummaries []EditSummary
	PageURL       string
	PageTitle     string
	AgentName     string
}

// Manager orchestrates git and the ledger into checkpoint lifecycle
// operations. It is not safe for concurrent use; every call is expected
// to arrive through the coordinator's command queue.
type Manager struct {
	git   GitAdapter
	store *Store
}

// NewManager creates a checkpoint lifecycle manager
func NewManager(g GitAdapter, store *Store) *Manager {
	return &Manager{
		git:   g,
		store: store,
	}
}

// Initialize prepares the project's state directory and seeds an empty
// ledger if none exists. Safe to call more than once.
func (m *Manager) Initialize() error {
	if err := m.store.EnsureDir(); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	// Keep checkpoint state out of the checkpoints themselves.
	// Failure here is not fatal: the repo may not exist yet.
	if err := m.git.EnsureIgnored(config.StateDirName + "/"); err != nil {
		log.Printf("[Checkpoint] Could not update .gitignore: %v", err)
	}

	if !m.store.Exists() {
		if err := m.store.Save(&History{Checkpoints: []Checkpoint{}}); err != nil {
			return fmt.Errorf("seed ledger: %w", err)
		}
	}

	return nil
}

// CreateCheckpoint records the pre-edit state of the project and appends
// a pending checkpoint to the ledger. If the working tree is dirty, the
// pre-existing changes are committed first so they never bleed into the
// checkpoint's own diff.
func (m *Manager) CreateCheckpoint(meta CreateMeta) (*Checkpoint, error) {
	status, err := m.git.Status()
	if err != nil {
		return nil, fmt.Errorf("git status: %w", err)
	}
	if !status.IsRepository {
		return nil, newError(ErrNotARepository, "project directory is not a git repository")
	}

	if !status.IsClean {
		if err := m.git.StageAll(); err != nil {
			return nil, fmt.Errorf("stage pre-existing changes: %w", err)
		}
		if err := m.git.Commit("pageforge: snapshot pre-existing changes"); err != nil {
			return nil, fmt.Errorf("commit pre-existing changes: %w", err)
		}
	}

	head, err := m.git.HeadRevision()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	cp := Checkpoint{
		ID:            uuid.New().String(),
		CreatedAt:     time.Now(),
		BaseRevision:  head,
		Branch:        status.Branch,
		EditSummaries: meta.EditSummaries,
		PageURL:       meta.PageURL,
		PageTitle:     meta.PageTitle,
		AgentName:     meta.AgentName,
		Status:        StatusPending,
	}

	history := m.store.Load()
	history.Checkpoints = append(history.Checkpoints, cp)
	if err := m.store.Save(history); err != nil {
		return nil, fmt.Errorf("persist ledger: %w", err)
	}

	log.Printf("[Checkpoint] Created %s at %s on %s", cp.ID, shortRev(head), cp.Branch)
	return &cp, nil
}

// FinalizeCheckpoint computes what the agent changed since the
// checkpoint's baseline, commits it, and marks the checkpoint applied
// and current. Returns the per-file change list.
func (m *Manager) FinalizeCheckpoint(id string) ([]FileChange, error) {
	history := m.store.Load()
	idx := findCheckpoint(history, id)
	if idx < 0 {
		return nil, newError(ErrCheckpointNotFound, fmt.Sprintf("checkpoint %s not found", id))
	}

	cp := &history.Checkpoints[idx]
	if cp.Status != StatusPending {
		return nil, newError(ErrInvalidCheckpointState,
			fmt.Sprintf("checkpoint %s is %s, only pending checkpoints can be finalized", id, cp.Status))
	}

	// Stage first so files the agent created show up in the diff
	if err := m.git.StageAll(); err != nil {
		return nil, fmt.Errorf("stage changes: %w", err)
	}

	nameStatus, err := m.git.DiffNameStatus(cp.BaseRevision)
	if err != nil {
		return nil, fmt.Errorf("diff name-status: %w", err)
	}

	var changes []FileChange
	totalLines := 0
	for _, ns := range nameStatus {
		added, removed, err := m.git.DiffNumstat(cp.BaseRevision, ns.Path)
		if err != nil {
			return nil, fmt.Errorf("diff numstat for %s: %w", ns.Path, err)
		}

		changes = append(changes, FileChange{
			CheckpointID: cp.ID,
			FilePath:     ns.Path,
			ChangeType:   changeType(ns.Status),
			LinesAdded:   added,
			LinesRemoved: removed,
		})
		totalLines += added + removed
	}

	if len(changes) > 0 {
		if err := m.git.Commit(commitMessage(cp)); err != nil {
			return nil, fmt.Errorf("commit changes: %w", err)
		}
	}

	cp.Status = StatusApplied
	cp.FilesModified = len(changes)
	cp.LinesChanged = totalLines
	history.CurrentID = cp.ID

	if err := m.store.Save(history); err != nil {
		return nil, fmt.Errorf("persist ledger: %w", err)
	}

	log.Printf("[Checkpoint] Finalized %s: %d files, %d lines", cp.ID, cp.FilesModified, cp.LinesChanged)
	return changes, nil
}

// UndoLastCheckpoint resets the working tree to the current checkpoint's
// baseline, undoing exactly that checkpoint's commits, and moves the
// current pointer back to its predecessor.
func (m *Manager) UndoLastCheckpoint() (*RevertResult, error) {
	history := m.store.Load()
	if history.CurrentID == "" {
		return nil, newError(ErrNoChangesToUndo, "no checkpoint to undo")
	}

	idx := findCheckpoint(history, history.CurrentID)
	if idx < 0 {
		return nil, newError(ErrCheckpointNotFound,
			fmt.Sprintf("current checkpoint %s not found in ledger", history.CurrentID))
	}

	cp := &history.Checkpoints[idx]
	if cp.Status != StatusApplied {
		return nil, newError(ErrInvalidCheckpointState,
			fmt.Sprintf("current checkpoint %s is %s, expected applied", cp.ID, cp.Status))
	}

	files := m.filesSince(cp.BaseRevision)

	if err := m.git.HardReset(cp.BaseRevision); err != nil {
		return nil, fmt.Errorf("hard reset to %s: %w", shortRev(cp.BaseRevision), err)
	}

	cp.Status = StatusReverted
	history.CurrentID = appliedPredecessor(history, idx)

	if err := m.store.Save(history); err != nil {
		return nil, fmt.Errorf("persist ledger: %w", err)
	}

	log.Printf("[Checkpoint] Undid %s, current is now %q", cp.ID, history.CurrentID)
	return &RevertResult{CheckpointID: cp.ID, FilesReverted: files}, nil
}

// RevertToCheckpoint resets the working tree to the state before the
// given checkpoint's changes, discarding it and every later checkpoint
// in one jump. The jump itself is not undoable.
func (m *Manager) RevertToCheckpoint(id string) (*RevertResult, error) {
	history := m.store.Load()
	idx := findCheckpoint(history, id)
	if idx < 0 {
		return nil, newError(ErrCheckpointNotFound, fmt.Sprintf("checkpoint %s not found", id))
	}

	target := &history.Checkpoints[idx]
	files := m.filesSince(target.BaseRevision)

	if err := m.git.HardReset(target.BaseRevision); err != nil {
		return nil, fmt.Errorf("hard reset to %s: %w", shortRev(target.BaseRevision), err)
	}

	for i := idx + 1; i < len(history.Checkpoints); i++ {
		history.Checkpoints[i].Status = StatusReverted
	}
	history.CurrentID = appliedPredecessor(history, idx)

	if err := m.store.Save(history); err != nil {
		return nil, fmt.Errorf("persist ledger: %w", err)
	}

	log.Printf("[Checkpoint] Reverted to baseline of %s, current is now %q", target.ID, history.CurrentID)
	return &RevertResult{CheckpointID: target.ID, FilesReverted: files}, nil
}

// GetHistory returns all checkpoints with the undo flag derived: only
// the current, applied checkpoint can be undone.
func (m *Manager) GetHistory() []HistoryEntry {
	history := m.store.Load()

	entries := make([]HistoryEntry, 0, len(history.Checkpoints))
	for _, cp := range history.Checkpoints {
		entries = append(entries, HistoryEntry{
			Checkpoint: cp,
			CanUndo:    cp.ID == history.CurrentID && cp.Status == StatusApplied,
		})
	}

	return entries
}

// CurrentCheckpointID returns the id of the checkpoint whose changes
// are currently in effect, or "" if none
func (m *Manager) CurrentCheckpointID() string {
	return m.store.Load().CurrentID
}

// ClearHistory wipes the ledger. Git state is untouched; this only
// discards pageforge's bookkeeping and cannot be undone.
func (m *Manager) ClearHistory() error {
	return m.store.Save(&History{Checkpoints: []Checkpoint{}})
}

// filesSince lists paths that differ between a revision and the working
// tree. Best-effort: used only for reporting, so errors yield an empty list.
func (m *Manager) filesSince(revision string) []string {
	if err := m.git.StageAll(); err != nil {
		return nil
	}
	nameStatus, err := m.git.DiffNameStatus(revision)
	if err != nil {
		return nil
	}

	files := make([]string, 0, len(nameStatus))
	for _, ns := range nameStatus {
		files = append(files, ns.Path)
	}
	return files
}

// findCheckpoint returns the index of the checkpoint with the given id, or -1
func findCheckpoint(history *History, id string) int {
	for i := range history.Checkpoints {
		if history.Checkpoints[i].ID == id {
			return i
		}
	}
	return -1
}

// appliedPredecessor returns the id of the nearest applied checkpoint
// before idx, or "" if there is none. The current pointer must always
// name an applied checkpoint.
func appliedPredecessor(history *History, idx int) string {
	for i := idx - 1; i >= 0; i-- {
		if history.Checkpoints[i].Status == StatusApplied {
			return history.Checkpoints[i].ID
		}
	}
	return ""
}

// changeType maps a git name-status code to a change type
func changeType(status string) string {
	switch status {
	case "A":
		return "created"
	case "D":
		return "deleted"
	default:
		return "modified"
	}
}

// commitMessage encodes the originating edit identifiers for traceability
func commitMessage(cp *Checkpoint) string {
	ids := make([]string, 0, len(cp.EditSummaries))
	for _, s := range cp.EditSummaries {
		ids = append(ids, s.Identifier)
	}
	if len(ids) == 0 {
		return fmt.Sprintf("pageforge: checkpoint %s", cp.ID)
	}
	return fmt.Sprintf("pageforge: apply edits to %s (checkpoint %s)", strings.Join(ids, ", "), cp.ID)
}

// shortRev abbreviates a revision hash for logging
func shortRev(rev string) string {
	if len(rev) > 8 {
		return rev[:8]
	}
	return rev
}
