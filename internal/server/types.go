// Package server defines the JSON packets exchanged between the relay and
// its clients.
package server

import (
	"encoding/json"
	"fmt"
	"time"
)

// Packet type names as they appear in the "type" field.
const (
	TypeConnectionEstablished = "connection_established"
	TypeUserEvent             = "user_event"
	TypeChatMessage           = "chat_message"
	TypeChangeUsername        = "change_username"
	TypeUsernameChanged       = "username_changed"
	TypeUsernameConfirmation  = "username_confirmation"
	TypeUsernameRejected      = "username_rejected"
)

// EventKind is the value of the "event" field of a user_event packet.
type EventKind string

// Membership events.
const (
	EventJoined EventKind = "joined"
	EventLeft   EventKind = "left"
)

// Inbound is the union of the fields a client may send. Only the fields
// relevant to Type are read.
type Inbound struct {
	Type     string `json:"type"`
	Message  string `json:"message,omitempty"`
	Username string `json:"username,omitempty"`
}

// ConnectionEstablished is sent privately to a client after registration.
type ConnectionEstablished struct {
	Type     string `json:"type"`
	ClientID string `json:"client_id"`
	Username string `json:"username"`
}

// UserEvent announces a join or a departure to every member.
type UserEvent struct {
	Type      string    `json:"type"`
	Username  string    `json:"username"`
	Event     EventKind `json:"event"`
	Timestamp float64   `json:"timestamp"`
}

// ChatMessage is the relayed form of a client's chat message.
type ChatMessage struct {
	Type      string  `json:"type"`
	Username  string  `json:"username"`
	Message   string  `json:"message"`
	Timestamp float64 `json:"timestamp"`
}

// UsernameChanged announces a rename to every member.
type UsernameChanged struct {
	Type        string  `json:"type"`
	OldUsername string  `json:"old_username"`
	NewUsername string  `json:"new_username"`
	Timestamp   float64 `json:"timestamp"`
}

// UsernameConfirmation is sent privately to the client that renamed itself.
type UsernameConfirmation struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

// UsernameRejected is sent privately when a requested name fails validation.
type UsernameRejected struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Reason   string `json:"reason"`
}

// DecodeInbound parses one inbound text frame.
func DecodeInbound(frame []byte) (Inbound, error) {
	var in Inbound
	err := json.Unmarshal(frame, &in)
	return in, err
}

// epochSeconds renders t as fractional seconds since the Unix epoch.
func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// encodePacket serializes a freshly built packet.
func encodePacket(packet any) ([]byte, error) {
	payload, err := json.Marshal(packet)
	if err != nil {
		return nil, fmt.Errorf("encode packet: %w", err)
	}
	return payload, nil
}
