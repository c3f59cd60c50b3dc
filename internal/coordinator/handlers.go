// internal/coordinator/handlers.go
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"pageforge/internal/agent"
	"pageforge/internal/checkpoint"
)

func (c *Coordinator) handleSelectAgent(conn Conn, cmd Command) {
	if cmd.Agent == "" {
		c.sendTo(conn, "error", ErrorPayload{Message: "agent name is required"})
		return
	}

	c.mu.Lock()
	c.state.AgentName = cmd.Agent
	c.mu.Unlock()

	c.sendTo(conn, "agent_selected", map[string]interface{}{"agent": cmd.Agent})
}

// handleSubmitEditBatch is the core flow: snapshot the pre-edit state,
// let the agent work, then finalize the checkpoint with what changed.
func (c *Coordinator) handleSubmitEditBatch(conn Conn, cmd Command) {
	c.mu.Lock()
	agentName := c.state.AgentName
	c.mu.Unlock()

	cp, err := c.deps.Checkpoints.CreateCheckpoint(checkpoint.CreateMeta{
		EditSummaries: cmd.Edits,
		PageURL:       cmd.PageURL,
		PageTitle:     cmd.PageTitle,
		AgentName:     agentName,
	})
	if err != nil {
		c.sendError(conn, err)
		return
	}

	c.deps.Hub.EmitCheckpointCreated(cp)

	session, err := c.ensureSession()
	if err != nil {
		c.sendError(conn, err)
		return
	}

	var runID int64
	if c.deps.DB != nil {
		runID, err = c.deps.DB.RecordRunStart(agentName, cmd.Prompt, cp.ID)
		if err != nil {
			log.Printf("[Coordinator] Run log unavailable: %v", err)
		}
	}

	runErr := c.runAgent(session, cp.ID, buildPrompt(cmd))

	if transcript := session.Transcript(); len(transcript) > 0 {
		if err := c.deps.Store.SaveTranscript(cp.ID, transcript); err != nil {
			log.Printf("[Coordinator] Failed to archive transcript for %s: %v", cp.ID, err)
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		c.deps.Hub.EmitAgentError(c.ConversationID(), runErr.Error())
	}

	// Finalize even after a stop or agent error: whatever the agent
	// already applied stays captured and undoable.
	changes, err := c.deps.Checkpoints.FinalizeCheckpoint(cp.ID)
	if err != nil {
		c.recordRunEnd(runID, "failed")
		c.sendError(conn, err)
		return
	}

	status := "completed"
	if runErr != nil {
		status = "failed"
		if errors.Is(runErr, context.Canceled) {
			status = "cancelled"
		}
	}
	c.recordRunEnd(runID, status)

	c.sendTo(conn, "edit_batch_complete", map[string]interface{}{
		"checkpoint_id": cp.ID,
		"status":        status,
		"files":         changes,
	})
}

func (c *Coordinator) handleSendFollowup(conn Conn, cmd Command) {
	if cmd.Prompt == "" {
		c.sendTo(conn, "error", ErrorPayload{Message: "prompt is required"})
		return
	}

	session, err := c.ensureSession()
	if err != nil {
		c.sendError(conn, err)
		return
	}

	runErr := c.runAgent(session, "", cmd.Prompt)

	// Drain the follow-up's stream here so it never bleeds into the
	// next edit batch's archive. Follow-ups refine the checkpoint in
	// effect, so the transcript is filed under it.
	if transcript := session.Transcript(); len(transcript) > 0 {
		if id := c.deps.Checkpoints.CurrentCheckpointID(); id != "" {
			c.appendTranscript(id, transcript)
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		c.sendError(conn, runErr)
		return
	}

	c.sendTo(conn, "followup_complete", map[string]interface{}{
		"cancelled": errors.Is(runErr, context.Canceled),
	})
}

// appendTranscript extends a checkpoint's transcript archive
func (c *Coordinator) appendTranscript(checkpointID string, data []byte) {
	existing, err := c.deps.Store.LoadTranscript(checkpointID)
	if err != nil {
		existing = nil
	}
	if err := c.deps.Store.SaveTranscript(checkpointID, append(existing, data...)); err != nil {
		log.Printf("[Coordinator] Failed to archive transcript for %s: %v", checkpointID, err)
	}
}

func (c *Coordinator) handleResetSession(conn Conn) {
	c.mu.Lock()
	c.state.cancelInflight()
	if c.state.session != nil {
		c.state.session.Destroy()
		c.state.session = nil
	}
	c.state.ConversationID = uuid.New().String()
	conversationID := c.state.ConversationID
	c.mu.Unlock()

	log.Printf("[Coordinator] Session reset, new conversation %s", conversationID)
	c.sendTo(conn, "session_reset", map[string]interface{}{"conversation_id": conversationID})
}

// handleStop signals the in-flight agent invocation. Called directly
// from Enqueue, never from the queue worker.
func (c *Coordinator) handleStop(conn Conn) {
	c.mu.Lock()
	cancelled := c.state.cancelInflight()
	c.mu.Unlock()

	c.sendTo(conn, "stop_requested", map[string]interface{}{"cancelled": cancelled})
}

func (c *Coordinator) handleGetHistory(conn Conn) {
	entries := c.deps.Checkpoints.GetHistory()
	c.sendTo(conn, "history", map[string]interface{}{"checkpoints": entries})
}

func (c *Coordinator) handleUndo(conn Conn) {
	result, err := c.deps.Checkpoints.UndoLastCheckpoint()
	if err != nil {
		c.sendError(conn, err)
		return
	}

	c.sendTo(conn, "undo_complete", map[string]interface{}{
		"checkpoint_id":  result.CheckpointID,
		"files_reverted": result.FilesReverted,
	})
}

func (c *Coordinator) handleRevertTo(conn Conn, cmd Command) {
	if cmd.CheckpointID == "" {
		c.sendTo(conn, "error", ErrorPayload{Message: "checkpoint_id is required"})
		return
	}

	result, err := c.deps.Checkpoints.RevertToCheckpoint(cmd.CheckpointID)
	if err != nil {
		c.sendError(conn, err)
		return
	}

	c.sendTo(conn, "revert_complete", map[string]interface{}{
		"files_reverted": result.FilesReverted,
	})
}

func (c *Coordinator) handleClearHistory(conn Conn) {
	if err := c.deps.Checkpoints.ClearHistory(); err != nil {
		c.sendError(conn, err)
		return
	}
	c.sendTo(conn, "history_cleared", map[string]interface{}{})
}

// ensureSession returns the logical session's agent conversation,
// creating it on first use
func (c *Coordinator) ensureSession() (AgentSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.session != nil {
		return c.state.session, nil
	}

	if c.deps.NewSession == nil {
		return nil, fmt.Errorf("no agent session factory configured")
	}

	session, err := c.deps.NewSession(c.cfg.ProjectDir)
	if err != nil {
		return nil, fmt.Errorf("create agent session: %w", err)
	}

	c.state.session = session
	return session, nil
}

// runAgent drives one agent invocation with a cancellation token wired
// into the session state so a stop command can reach it
func (c *Coordinator) runAgent(session AgentSession, checkpointID, prompt string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.mu.Lock()
	c.state.inflightID = checkpointID
	c.state.cancelRun = cancel
	c.mu.Unlock()

	err := session.Send(ctx, prompt, c.streamEvent)

	c.mu.Lock()
	c.state.inflightID = ""
	c.state.cancelRun = nil
	c.mu.Unlock()

	return err
}

// streamEvent forwards agent events to every connected client
func (c *Coordinator) streamEvent(ev agent.Event) {
	conversationID := c.ConversationID()

	switch ev.Type {
	case agent.EventError:
		c.deps.Hub.EmitAgentError(conversationID, ev.Error)
	case agent.EventCompleted:
		c.deps.Hub.EmitAgentComplete(conversationID, true)
	default:
		c.deps.Hub.EmitAgentOutput(conversationID, ev)
	}
}

func (c *Coordinator) recordRunEnd(runID int64, status string) {
	if c.deps.DB == nil || runID == 0 {
		return
	}
	if err := c.deps.DB.RecordRunEnd(runID, status); err != nil {
		log.Printf("[Coordinator] Failed to close run log entry: %v", err)
	}
}

// buildPrompt turns an edit batch into the instruction handed to the agent
func buildPrompt(cmd Command) string {
	if cmd.Prompt != "" {
		return cmd.Prompt
	}

	var b strings.Builder
	b.WriteString("Apply the following edits requested from the page")
	if cmd.PageURL != "" {
		b.WriteString(" " + cmd.PageURL)
	}
	b.WriteString(":\n")
	for _, e := range cmd.Edits {
		b.WriteString("- " + e.Identifier)
		if e.Note != "" {
			b.WriteString(": " + e.Note)
		}
		b.WriteString("\n")
	}
	return b.String()
}
