// internal/agent/runner.go
package agent

import "log"

// CLIRunner runs the agent as a subprocess per prompt. It implements
// the collaborator lifecycle the coordinator expects.
type CLIRunner struct {
	binary string
}

// NewCLIRunner creates a runner for the given agent binary
func NewCLIRunner(binary string) *CLIRunner {
	return &CLIRunner{binary: binary}
}

// Start is part of the collaborator lifecycle. The CLI needs no warmup.
func (r *CLIRunner) Start() error {
	log.Printf("[Agent] Runner ready (binary: %s)", r.binary)
	return nil
}

// Stop is part of the collaborator lifecycle
func (r *CLIRunner) Stop() error {
	return nil
}

// CreateSession creates a new conversation in the given project
func (r *CLIRunner) CreateSession(projectDir string) (*Session, error) {
	return NewSession(r.binary, projectDir), nil
}
