// internal/coordinator/command.go
package coordinator

import "pageforge/internal/checkpoint"

// Command types accepted from clients. Unrecognized types are ignored,
// not errored, so older servers tolerate newer clients.
const (
	CmdSelectAgent     = "select_agent"
	CmdSubmitEditBatch = "submit_edit_batch"
	CmdSendFollowup    = "send_followup"
	CmdResetSession    = "reset_session"
	CmdStop            = "stop"
	CmdGetHistory      = "get_history"
	CmdUndo            = "undo"
	CmdRevertTo        = "revert_to"
	CmdClearHistory    = "clear_history"
)

// Command is one inbound message from a client
type Command struct {
	Type string `json:"type"`

	// select_agent
	Agent string `json:"agent,omitempty"`

	// submit_edit_batch
	Edits     []checkpoint.EditSummary `json:"edits,omitempty"`
	PageURL   string                   `json:"page_url,omitempty"`
	PageTitle string                   `json:"page_title,omitempty"`

	// submit_edit_batch, send_followup
	Prompt string `json:"prompt,omitempty"`

	// revert_to
	CheckpointID string `json:"checkpoint_id,omitempty"`
}

// ErrorPayload is the single explanatory message a failed command yields
type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
