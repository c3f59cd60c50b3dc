// internal/coordinator/coordinator.go
package coordinator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"pageforge/internal/checkpoint"
	"pageforge/internal/database"
	"pageforge/internal/eventhub"
)

// Config holds coordinator settings
type Config struct {
	ProjectDir      string
	DisconnectGrace time.Duration
	DefaultAgent    string
}

// Deps are the collaborators the coordinator drives
type Deps struct {
	Checkpoints *checkpoint.Manager
	Store       *checkpoint.Store
	Runner      RunnerLifecycle
	NewSession  SessionFactory
	Hub         *eventhub.EventHub
	DB          *database.Database // optional run log
}

type queued struct {
	conn Conn
	cmd  Command
}

// Coordinator owns the process's single logical session and serializes
// every inbound command through one ordered, single-flight queue. A
// command's full handling, including time spent waiting on git or the
// agent, completes before the next queued command begins. That queue is
// the only mutual-exclusion mechanism guarding the ledger.
type Coordinator struct {
	cfg  Config
	deps Deps

	mu    sync.Mutex
	state *SessionState

	queue chan queued
}

// New creates the coordinator and its logical session
func New(cfg Config, deps Deps) *Coordinator {
	if cfg.DefaultAgent == "" {
		cfg.DefaultAgent = "claude"
	}
	if cfg.DisconnectGrace == 0 {
		cfg.DisconnectGrace = 10 * time.Second
	}

	return &Coordinator{
		cfg:  cfg,
		deps: deps,
		state: &SessionState{
			ConversationID: uuid.New().String(),
			AgentName:      cfg.DefaultAgent,
		},
		queue: make(chan queued, 64),
	}
}

// Start launches the command worker and the agent collaborator
func (c *Coordinator) Start(ctx context.Context) error {
	if c.deps.Runner != nil {
		if err := c.deps.Runner.Start(); err != nil {
			return fmt.Errorf("start agent runner: %w", err)
		}
	}

	go c.work(ctx)
	return nil
}

// Stop tears the logical session down and stops the collaborator
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.state.cancelTeardown()
	c.state.cancelInflight()
	if c.state.session != nil {
		c.state.session.Destroy()
		c.state.session = nil
	}
	c.mu.Unlock()

	if c.deps.Runner != nil {
		c.deps.Runner.Stop()
	}
}

// ConversationID returns the durable id of the logical session
func (c *Coordinator) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.ConversationID
}

// Attach rebinds the logical session to a new physical connection,
// cancelling any teardown pending from an earlier disconnect
func (c *Coordinator) Attach(conn Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.cancelTeardown()
	c.state.conn = conn
	log.Printf("[Coordinator] Connection %s attached to conversation %s", conn.ID(), c.state.ConversationID)
}

// Detach records a physical disconnect. If a logical session is live,
// teardown is deferred by the grace delay so a quick reconnect (a page
// reload, say) keeps the conversation.
func (c *Coordinator) Detach(conn Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.conn == nil || c.state.conn.ID() != conn.ID() {
		return // a newer connection already took over
	}
	c.state.conn = nil

	if c.state.session == nil {
		return
	}

	log.Printf("[Coordinator] Connection %s detached, teardown in %v", conn.ID(), c.cfg.DisconnectGrace)
	c.state.cancelTeardown()
	c.state.teardown = time.AfterFunc(c.cfg.DisconnectGrace, c.teardownExpired)
}

// teardownExpired fires when the grace delay passes with no reconnect
func (c *Coordinator) teardownExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.conn != nil {
		return // rebound in the meantime
	}

	log.Printf("[Coordinator] Grace delay elapsed, tearing down conversation %s", c.state.ConversationID)
	c.state.teardown = nil
	c.state.cancelInflight()
	if c.state.session != nil {
		c.state.session.Destroy()
		c.state.session = nil
	}
}

// Enqueue appends a command to the ordered queue. Stop is the one
// exception: it only flips the in-flight cancellation signal, and going
// through the queue would leave it stuck behind the very command it is
// meant to interrupt.
func (c *Coordinator) Enqueue(conn Conn, cmd Command) {
	if cmd.Type == CmdStop {
		c.handleStop(conn)
		return
	}

	select {
	case c.queue <- queued{conn: conn, cmd: cmd}:
	default:
		c.sendTo(conn, "error", ErrorPayload{Message: "command queue full"})
	}
}

// work drains the queue one command at a time
func (c *Coordinator) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case q := <-c.queue:
			c.dispatch(q)
		}
	}
}

// dispatch runs one command to completion. Failures become a single
// typed error message; nothing here may kill the worker.
func (c *Coordinator) dispatch(q queued) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Coordinator] Command %s panicked: %v", q.cmd.Type, r)
			c.sendTo(q.conn, "error", ErrorPayload{
				Message: fmt.Sprintf("internal error handling %s", q.cmd.Type),
			})
		}
	}()

	switch q.cmd.Type {
	case CmdSelectAgent:
		c.handleSelectAgent(q.conn, q.cmd)
	case CmdSubmitEditBatch:
		c.handleSubmitEditBatch(q.conn, q.cmd)
	case CmdSendFollowup:
		c.handleSendFollowup(q.conn, q.cmd)
	case CmdResetSession:
		c.handleResetSession(q.conn)
	case CmdGetHistory:
		c.handleGetHistory(q.conn)
	case CmdUndo:
		c.handleUndo(q.conn)
	case CmdRevertTo:
		c.handleRevertTo(q.conn, q.cmd)
	case CmdClearHistory:
		c.handleClearHistory(q.conn)
	default:
		// Unknown command types are ignored for forward compatibility
		log.Printf("[Coordinator] Ignoring unknown command type %q", q.cmd.Type)
	}
}

// sendTo delivers a reply to the originating connection, if it is still there
func (c *Coordinator) sendTo(conn Conn, msgType string, payload interface{}) {
	if conn == nil {
		return
	}
	if err := conn.SendMessage(msgType, payload); err != nil {
		log.Printf("[Coordinator] Failed to send %s: %v", msgType, err)
	}
}

// sendError reports a failed command as one explanatory message
func (c *Coordinator) sendError(conn Conn, err error) {
	c.sendTo(conn, "error", ErrorPayload{
		Code:    string(checkpoint.CodeOf(err)),
		Message: err.Error(),
	})
}
