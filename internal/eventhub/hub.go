package eventhub

// Broadcaster delivers events to every connected client
type Broadcaster interface {
	BroadcastEvent(eventType string, payload interface{})
}

// EventHub is the single fan-out point for server-side events
type EventHub struct {
	broadcaster Broadcaster
}

// New creates a new EventHub
func New() *EventHub {
	return &EventHub{}
}

// SetBroadcaster sets the WebSocket broadcaster
func (h *EventHub) SetBroadcaster(b Broadcaster) {
	h.broadcaster = b
}

// Emit sends an event to all clients
func (h *EventHub) Emit(eventType string, payload interface{}) {
	if h.broadcaster != nil {
		h.broadcaster.BroadcastEvent(eventType, payload)
	}
}

// GitChangedEvent reports a change to the project's working tree
type GitChangedEvent struct {
	Path   string            `json:"path"`
	Branch string            `json:"branch"`
	Status map[string]string `json:"status"` // path -> status
}

func (h *EventHub) EmitGitChanged(event GitChangedEvent) {
	h.Emit("git:changed", event)
}

// EmitCheckpointCreated announces a new pending checkpoint
func (h *EventHub) EmitCheckpointCreated(checkpoint interface{}) {
	h.Emit("checkpoint_created", map[string]interface{}{
		"checkpoint": checkpoint,
	})
}

// Agent output events

func (h *EventHub) EmitAgentOutput(sessionID string, output interface{}) {
	h.Emit("agent-output", map[string]interface{}{
		"session_id": sessionID,
		"output":     output,
	})
}

func (h *EventHub) EmitAgentError(sessionID string, errMsg string) {
	h.Emit("agent-error", map[string]interface{}{
		"session_id": sessionID,
		"error":      errMsg,
	})
}

func (h *EventHub) EmitAgentComplete(sessionID string, success bool) {
	h.Emit("agent-complete", map[string]interface{}{
		"session_id": sessionID,
		"success":    success,
	})
}
