// internal/checkpoint/models.go
package checkpoint

import "time"

// Status is the lifecycle state of a checkpoint
type Status string

const (
	StatusPending  Status = "pending"
	StatusApplied  Status = "applied"
	StatusReverted Status = "reverted"
)

// EditSummary identifies one edit request from the page, without content
type EditSummary struct {
	Identifier string `json:"identifier"`
	Note       string `json:"note,omitempty"`
}

// Checkpoint is a snapshot of one batch of agent-driven edits, anchored
// to the git revision captured before the edits were applied
type Checkpoint struct {
	ID            string        `json:"id"`
	CreatedAt     time.Time     `json:"created_at"`
	BaseRevision  string        `json:"base_revision"`
	Branch        string        `json:"branch"`
	EditSummaries []EditSummary `json:"edit_summaries"`
	PageURL       string        `json:"page_url,omitempty"`
	PageTitle     string        `json:"page_title,omitempty"`
	AgentName     string        `json:"agent_name"`
	Status        Status        `json:"status"`
	FilesModified int           `json:"files_modified"`
	LinesChanged  int           `json:"lines_changed"`
}

// FileChange is one file's contribution to a checkpoint, computed at
// finalize time. Only the aggregate counts are persisted; full diffs
// stay recomputable from git history.
type FileChange struct {
	CheckpointID string `json:"checkpoint_id"`
	FilePath     string `json:"file_path"`
	ChangeType   string `json:"change_type"` // "created", "modified", "deleted"
	LinesAdded   int    `json:"lines_added"`
	LinesRemoved int    `json:"lines_removed"`
}

// History is the persisted checkpoint ledger: a chronological list plus
// the id of the most recent checkpoint whose changes are still in effect
type History struct {
	Checkpoints []Checkpoint `json:"checkpoints"`
	CurrentID   string       `json:"current_checkpoint_id,omitempty"`
}

// HistoryEntry is the read-only projection returned to clients
type HistoryEntry struct {
	Checkpoint
	CanUndo bool `json:"can_undo"`
}

// RevertResult reports the outcome of an undo or revert operation
type RevertResult struct {
	CheckpointID  string   `json:"checkpoint_id"`
	FilesReverted []string `json:"files_reverted"`
}
