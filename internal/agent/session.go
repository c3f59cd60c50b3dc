// internal/agent/session.go
package agent

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventHandler receives typed events as the agent streams them
type EventHandler func(Event)

// Session is one conversation with the agent binary. Each Send runs the
// CLI once in print mode; followups resume the CLI's own session so the
// conversation keeps its context.
type Session struct {
	ID         string
	ProjectDir string

	binary       string
	cliSessionID string

	mu         sync.Mutex
	cmd        *exec.Cmd
	transcript []byte
	destroyed  bool
}

// NewSession creates a session bound to a project directory
func NewSession(binary, projectDir string) *Session {
	return &Session{
		ID:         uuid.New().String(),
		ProjectDir: projectDir,
		binary:     binary,
	}
}

// Send runs the agent with the given prompt and blocks until it
// finishes, streaming typed events to the handler as they arrive.
// Cancelling the context requests a cooperative stop: the agent gets an
// interrupt and a short window to wind down before being killed.
func (s *Session) Send(ctx context.Context, prompt string, handler EventHandler) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return fmt.Errorf("session destroyed")
	}
	if s.cmd != nil {
		s.mu.Unlock()
		return fmt.Errorf("session already has a run in flight")
	}

	args := []string{}
	if s.cliSessionID != "" {
		args = append(args, "--resume", s.cliSessionID)
	}
	args = append(args, "-p", prompt)
	args = append(args, "--output-format", "stream-json")
	args = append(args, "--verbose")
	args = append(args, "--dangerously-skip-permissions")

	cmd := exec.CommandContext(ctx, s.binary, args...)
	cmd.Dir = s.ProjectDir
	cmd.Env = os.Environ()
	cmd.Cancel = func() error {
		// Interrupt first so the agent can stop at a safe point
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = 5 * time.Second

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to start agent: %w", err)
	}

	s.cmd = cmd
	s.mu.Unlock()

	log.Printf("[Agent] Running %s in %s", s.binary, s.ProjectDir)

	scanner := bufio.NewScanner(stdout)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()

		s.mu.Lock()
		s.transcript = append(s.transcript, line...)
		s.transcript = append(s.transcript, '\n')
		if s.cliSessionID == "" {
			if id := sessionIDOf(line); id != "" {
				s.cliSessionID = id
			}
		}
		s.mu.Unlock()

		if handler != nil {
			for _, ev := range ParseEvents(line) {
				handler(ev)
			}
		}
	}

	waitErr := cmd.Wait()

	s.mu.Lock()
	s.cmd = nil
	s.mu.Unlock()

	if ctx.Err() != nil {
		log.Printf("[Agent] Run stopped: %v", ctx.Err())
		return ctx.Err()
	}
	if waitErr != nil {
		return fmt.Errorf("agent exited: %w", waitErr)
	}
	return nil
}

// Transcript returns the raw JSONL output accumulated so far and
// resets the buffer, so each edit batch archives only its own stream
func (s *Session) Transcript() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.transcript
	s.transcript = nil
	return t
}

// Destroy terminates any in-flight run and retires the session
func (s *Session) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.destroyed = true

	if s.cmd != nil && s.cmd.Process != nil {
		if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
			return s.cmd.Process.Kill()
		}
	}

	return nil
}
