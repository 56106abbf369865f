package core

import "fmt"

// AuthError signals an invalid or missing credential. Fatal to the turn; the
// user has to fix the key before retrying.
type AuthError struct {
	Provider string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: invalid API key: %s", e.Provider, e.Message)
}

// RateLimitError signals provider throttling. Transient; callers advise the
// user to wait, no automatic retry is attempted.
type RateLimitError struct {
	Provider string
	Message  string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limit reached: %s", e.Provider, e.Message)
}

// UpstreamError carries a server-side provider failure. The provider's own
// message is passed through verbatim.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: upstream error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// NetworkError signals a connectivity-level failure (offline, DNS, timeout)
// where no HTTP status was received.
type NetworkError struct {
	Provider string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Provider, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SynthesisError is a speech-synthesis failure on one backend. Never fatal to
// the conversation; the utterance is simply skipped.
type SynthesisError struct {
	Backend    BackendID
	StatusCode int
	Message    string
}

func (e *SynthesisError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: synthesis failed (status %d): %s", e.Backend, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: synthesis failed: %s", e.Backend, e.Message)
}

// PlaybackError is an audio-playback failure on one backend. Like
// SynthesisError it is non-fatal to the conversation.
type PlaybackError struct {
	Backend BackendID
	Message string
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("%s: playback failed: %s", e.Backend, e.Message)
}

// ConfigError reports a misconfigured backend (e.g. a provider voice ID left
// empty). Raised synchronously before any network call.
type ConfigError struct {
	Backend BackendID
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: configuration error: %s", e.Backend, e.Message)
}
