package core

import "context"

// AudioPlayer renders synthesized clips on the device. The cloud backends
// share one player; the local backend speaks through its engine directly.
//
// Configure prepares the output device and must be idempotent — backends call
// it before every playback. Play returns a channel closed when the clip
// finishes, is stopped, or fails.
type AudioPlayer interface {
	Configure() error
	Play(ctx context.Context, clip *AudioClip, volume float64) (<-chan struct{}, error)
	Stop() error
	Pause() error
	Resume() error
}
