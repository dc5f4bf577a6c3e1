// Package ws is the WebSocket transport: it upgrades connections, decodes
// client envelopes, dispatches to the chat service and writes server events
// back. No business rules live here.
package ws

import (
	"encoding/json"

	"chat-rooms/domain/event"
)

// Envelope is the wire frame in both directions: a name and a payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client to server payloads.
type JoinPayload struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

type SendPayload struct {
	Content string `json:"content"`
	Room    string `json:"room,omitempty"`
}

type LeavePayload struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

type JoinPrivatePayload struct {
	With string `json:"with"`
}

type SendPrivatePayload struct {
	To      string `json:"to"`
	Content string `json:"content"`
}

// EncodeEvent wraps a server event in the outgoing envelope.
func EncodeEvent(e event.Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: e.EventName(), Data: data})
}
