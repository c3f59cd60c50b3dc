// internal/websocket/types.go
package websocket

import "errors"

// Message is the wire envelope in both directions: inbound commands
// and outbound replies/events share one shape.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// ErrClientBufferFull is returned when a client's send buffer is full
var ErrClientBufferFull = errors.New("client send buffer full")
