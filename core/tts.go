package core

import "context"

// BackendID selects one of the three speech backends.
type BackendID string

const (
	BackendLocal      BackendID = "local"
	BackendElevenLabs BackendID = "elevenlabs"
	BackendOpenAI     BackendID = "openai"
)

// VoiceParams carries per-utterance voice tuning. Rate and pitch are 0.5-2.0,
// volume 0.0-1.0. VoiceID is required for the cloud backends.
type VoiceParams struct {
	Rate     float64 `json:"rate"`
	Pitch    float64 `json:"pitch"`
	Volume   float64 `json:"volume"`
	VoiceID  string  `json:"voice_id"`
	Language string  `json:"language"`
}

// UtteranceRequest is one request to synthesize and play a block of text.
// Created per speak() call, never reused.
type UtteranceRequest struct {
	Text    string      `json:"text"`
	Backend BackendID   `json:"backend"`
	Voice   VoiceParams `json:"voice"`
}

// PlaybackState is the observable playback status of one backend.
type PlaybackState struct {
	IsSpeaking  bool   `json:"is_speaking"`
	CurrentText string `json:"current_text,omitempty"`
}

// SpeechBackend is the uniform contract each of the three backends implements.
//
// SynthesizeOrFetch performs any network synthesis and returns a playable
// clip; the local backend synthesizes during Play and returns a text-only
// clip. Play starts playback of a previously synthesized clip and returns a
// channel that is closed when playback finishes, is stopped, or fails. Stop,
// Pause, and Resume are safe to call in any state.
type SpeechBackend interface {
	ID() BackendID
	SynthesizeOrFetch(ctx context.Context, text string, voice VoiceParams) (*AudioClip, error)
	Play(ctx context.Context, clip *AudioClip, voice VoiceParams) (<-chan struct{}, error)
	Stop() error
	Pause() error
	Resume() error
	IsPlaying() bool
	CurrentText() string
}
