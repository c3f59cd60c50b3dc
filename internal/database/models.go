// internal/database/models.go
package database

// AgentRun is one logged agent invocation
type AgentRun struct {
	ID           int64  `json:"id"`
	AgentName    string `json:"agent_name"`
	Prompt       string `json:"prompt"`
	CheckpointID string `json:"checkpoint_id"`
	Status       string `json:"status"` // "running", "completed", "failed", "cancelled"
	CreatedAt    int64  `json:"created_at"`
	CompletedAt  int64  `json:"completed_at,omitempty"`
}
