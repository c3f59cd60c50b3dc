// internal/coordinator/state.go
package coordinator

import (
	"context"
	"time"

	"pageforge/internal/agent"
)

// Conn is a live physical connection the logical session is bound to
type Conn interface {
	ID() string
	SendMessage(msgType string, payload interface{}) error
}

// AgentSession is one conversation with the agent collaborator
type AgentSession interface {
	Send(ctx context.Context, prompt string, handler agent.EventHandler) error
	Transcript() []byte
	Destroy() error
}

// SessionFactory creates agent sessions on demand
type SessionFactory func(projectDir string) (AgentSession, error)

// RunnerLifecycle is the start/stop surface of the agent collaborator
type RunnerLifecycle interface {
	Start() error
	Stop() error
}

// SessionState is the single logical session per server process. It
// survives physical reconnects: the live connection is rebound on
// attach, and everything else carries over. Owned by the Coordinator;
// never touched outside its lock or its command queue.
type SessionState struct {
	ConversationID string
	AgentName      string

	conn       Conn
	session    AgentSession
	inflightID string // checkpoint being built by the running edit batch
	cancelRun  context.CancelFunc
	teardown   *time.Timer
}

// cancelInflight signals the running agent invocation, if any
func (s *SessionState) cancelInflight() bool {
	if s.cancelRun != nil {
		s.cancelRun()
		s.cancelRun = nil
		return true
	}
	return false
}

// cancelTeardown stops a pending grace-delay teardown, if any
func (s *SessionState) cancelTeardown() {
	if s.teardown != nil {
		s.teardown.Stop()
		s.teardown = nil
	}
}
