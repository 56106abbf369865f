// Package protocol defines the JSON envelope spoken over the gateway
// WebSocket. Clients send commands, the gateway pushes session and speech
// events.
package protocol

import (
	"encoding/json"
	"time"

	"storychat/core"
)

// MessageType enumerates all gateway message types.
type MessageType string

const (
	// Client -> gateway
	MsgSendMessage    MessageType = "send_message"
	MsgResetSession   MessageType = "reset_session"
	MsgSpeak          MessageType = "speak"
	MsgStopSpeech     MessageType = "stop_speech"
	MsgPauseSpeech    MessageType = "pause_speech"
	MsgResumeSpeech   MessageType = "resume_speech"
	MsgUpdateSettings MessageType = "update_settings"
	MsgClearCache     MessageType = "clear_cache"

	// Gateway -> client
	MsgSessionOpened   MessageType = "session_opened"
	MsgMessageAppended MessageType = "message_appended"
	MsgSessionReset    MessageType = "session_reset"
	MsgSpeechState     MessageType = "speech_state"
	MsgSettings        MessageType = "settings"
	MsgError           MessageType = "error"
	MsgAck             MessageType = "ack"
)

// Envelope is the outer JSON wrapper for all WebSocket messages.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// --- Client -> gateway payloads ---

// SendMessagePayload submits one user turn.
type SendMessagePayload struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	IsAction  bool   `json:"is_action,omitempty"`
}

// ResetSessionPayload clears one session's history.
type ResetSessionPayload struct {
	SessionID string `json:"session_id"`
}

// SpeakPayload requests narration of a text. An empty Backend uses the
// provider from the current settings.
type SpeakPayload struct {
	Text    string         `json:"text"`
	Backend core.BackendID `json:"backend,omitempty"`
}

// ClearCachePayload drops cached audio. Empty Backends clears everything.
type ClearCachePayload struct {
	Backends []core.BackendID `json:"backends,omitempty"`
}

// --- Gateway -> client payloads ---

// SessionOpenedPayload carries the opening beat of a fresh session.
type SessionOpenedPayload struct {
	SessionID   string           `json:"session_id"`
	CharacterID string           `json:"character_id"`
	Opening     core.ChatMessage `json:"opening"`
}

// MessageAppendedPayload carries messages added by one turn, in append order.
type MessageAppendedPayload struct {
	SessionID string             `json:"session_id"`
	Messages  []core.ChatMessage `json:"messages"`
}

// SessionResetPayload announces that the history was cleared.
type SessionResetPayload struct {
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// SpeechStatePayload reports per-backend playback state after a change.
type SpeechStatePayload struct {
	Backend core.BackendID     `json:"backend"`
	State   core.PlaybackState `json:"state"`
}

// ErrorPayload carries a failed command back to the client.
type ErrorPayload struct {
	Command MessageType `json:"command"`
	Message string      `json:"message"`
}

// AckPayload acknowledges a received command.
type AckPayload struct {
	AckedType MessageType `json:"acked_type"`
	OK        bool        `json:"ok"`
	Error     string      `json:"error,omitempty"`
}
