// internal/agent/events.go
package agent

import "encoding/json"

// EventType identifies a typed event in the agent's output stream
type EventType string

const (
	EventProcessingStarted EventType = "processing_started"
	EventTextDelta         EventType = "text_delta"
	EventToolStart         EventType = "tool_start"
	EventToolEnd           EventType = "tool_end"
	EventCompleted         EventType = "completed"
	EventError             EventType = "error"
)

// Event is one typed event from the agent's stream
type Event struct {
	Type  EventType       `json:"type"`
	Text  string          `json:"text,omitempty"`
	Tool  string          `json:"tool,omitempty"`
	Error string          `json:"error,omitempty"`
	Raw   json.RawMessage `json:"raw,omitempty"`
}

// streamMessage mirrors the shape of the Claude CLI's stream-json lines
type streamMessage struct {
	Type      string `json:"type"`
	Subtype   string `json:"subtype"`
	SessionID string `json:"session_id"`
	IsError   bool   `json:"is_error"`
	Result    string `json:"result"`
	Message   struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
			Name string `json:"name"`
		} `json:"content"`
	} `json:"message"`
}

// ParseEvents converts one JSONL line from the CLI into typed events.
// A single assistant message can carry several content blocks, so one
// line may yield several events. Unparseable lines yield none.
func ParseEvents(line []byte) []Event {
	var msg streamMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil
	}

	raw := json.RawMessage(append([]byte(nil), line...))

	switch msg.Type {
	case "system":
		if msg.Subtype == "init" {
			return []Event{{Type: EventProcessingStarted, Raw: raw}}
		}

	case "assistant":
		var events []Event
		for _, block := range msg.Message.Content {
			switch block.Type {
			case "text":
				events = append(events, Event{Type: EventTextDelta, Text: block.Text, Raw: raw})
			case "tool_use":
				events = append(events, Event{Type: EventToolStart, Tool: block.Name, Raw: raw})
			}
		}
		return events

	case "user":
		for _, block := range msg.Message.Content {
			if block.Type == "tool_result" {
				return []Event{{Type: EventToolEnd, Raw: raw}}
			}
		}

	case "result":
		if msg.IsError {
			return []Event{{Type: EventError, Error: msg.Result, Raw: raw}}
		}
		return []Event{{Type: EventCompleted, Text: msg.Result, Raw: raw}}
	}

	return nil
}

// sessionIDOf extracts the CLI's own session id from a stream line, if present
func sessionIDOf(line []byte) string {
	var msg streamMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return ""
	}
	return msg.SessionID
}
