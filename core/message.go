package core

import "time"

type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// ChatMessage is one turn element in a conversation session. Immutable once
// created; the slice order in the session is the display order.
type ChatMessage struct {
	ID        string      `json:"id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// WireMessage is the role/content pair sent to the completion endpoint.
type WireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToWire converts a message history to the provider wire format, preserving
// order, role, and content.
func ToWire(messages []ChatMessage) []WireMessage {
	wire := make([]WireMessage, 0, len(messages))
	for _, msg := range messages {
		wire = append(wire, WireMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return wire
}

// FromWire converts wire messages back into session messages. IDs and
// timestamps are not part of the wire format and come back zero.
func FromWire(wire []WireMessage) []ChatMessage {
	messages := make([]ChatMessage, 0, len(wire))
	for _, msg := range wire {
		messages = append(messages, ChatMessage{
			Role:    MessageRole(msg.Role),
			Content: msg.Content,
		})
	}
	return messages
}
