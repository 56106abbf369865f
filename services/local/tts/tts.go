// Package local speaks through an on-device speech engine binary (espeak-ng
// by default). Synthesis and playback happen in one step inside the engine
// process, so SynthesizeOrFetch returns a text-only clip and no audio bytes
// ever exist to cache. No network is involved.
package local

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"syscall"

	"storychat/core"
)

// LocalTTSConfig holds configuration for the local speech engine.
type LocalTTSConfig struct {
	// Binary is the speech engine executable. Defaults to espeak-ng.
	Binary string `json:"binary"`
	// DefaultLanguage is used when an utterance carries no language.
	DefaultLanguage string `json:"default_language"`
}

// LocalTTS drives the engine process directly. Pause and resume suspend the
// process with SIGSTOP/SIGCONT; stop kills it.
type LocalTTS struct {
	config LocalTTSConfig
	logger *core.Logger

	mu          sync.Mutex
	binaryPath  string
	cmd         *exec.Cmd
	playing     bool
	currentText string
}

// NewLocalTTS creates a local backend with the provided config.
func NewLocalTTS(config LocalTTSConfig, logger *core.Logger) *LocalTTS {
	if config.Binary == "" {
		config.Binary = "espeak-ng"
	}
	if config.DefaultLanguage == "" {
		config.DefaultLanguage = "de"
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &LocalTTS{
		config: config,
		logger: logger.With(map[string]interface{}{"backend": string(core.BackendLocal)}),
	}
}

func (l *LocalTTS) ID() core.BackendID { return core.BackendLocal }

// SynthesizeOrFetch is a no-op for the local engine; it streams synthesis
// directly during Play. The returned clip carries only the text.
func (l *LocalTTS) SynthesizeOrFetch(_ context.Context, text string, _ core.VoiceParams) (*core.AudioClip, error) {
	return &core.AudioClip{Text: text, Format: core.AudioFormatNone}, nil
}

// Play starts the engine process for the clip's text. The returned channel is
// closed when the engine exits, whether it finished, failed, or was stopped.
func (l *LocalTTS) Play(ctx context.Context, clip *core.AudioClip, voice core.VoiceParams) (<-chan struct{}, error) {
	if clip == nil || clip.Text == "" {
		return nil, &core.PlaybackError{Backend: core.BackendLocal, Message: "clip has no text"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.configureLocked(); err != nil {
		return nil, err
	}
	l.stopLocked()

	cmd := exec.CommandContext(ctx, l.binaryPath, l.engineArgs(clip.Text, voice)...)
	if err := cmd.Start(); err != nil {
		return nil, &core.PlaybackError{Backend: core.BackendLocal, Message: fmt.Sprintf("start %s: %v", l.config.Binary, err)}
	}

	done := make(chan struct{})
	l.cmd = cmd
	l.playing = true
	l.currentText = clip.Text

	go func() {
		err := cmd.Wait()
		l.mu.Lock()
		if l.cmd == cmd {
			l.cmd = nil
			l.playing = false
			l.currentText = ""
		}
		l.mu.Unlock()
		if err != nil {
			l.logger.With(map[string]interface{}{"error": err}).Debug("speech engine exited with error")
		}
		close(done)
	}()

	return done, nil
}

// configureLocked resolves the engine binary once. Idempotent, called before
// every playback.
func (l *LocalTTS) configureLocked() error {
	if l.binaryPath != "" {
		return nil
	}
	path, err := exec.LookPath(l.config.Binary)
	if err != nil {
		return &core.PlaybackError{
			Backend: core.BackendLocal,
			Message: fmt.Sprintf("speech engine %q not found: %v", l.config.Binary, err),
		}
	}
	l.binaryPath = path
	return nil
}

// engineArgs maps voice params onto espeak-ng flags: rate to words per minute
// around the 175 wpm default, pitch to the 0-99 scale, volume to amplitude.
func (l *LocalTTS) engineArgs(text string, voice core.VoiceParams) []string {
	args := []string{}

	lang := voice.Language
	if lang == "" {
		lang = l.config.DefaultLanguage
	}
	if voice.VoiceID != "" {
		args = append(args, "-v", voice.VoiceID)
	} else {
		args = append(args, "-v", lang)
	}

	if voice.Rate > 0 {
		args = append(args, "-s", strconv.Itoa(int(voice.Rate*175)))
	}
	if voice.Pitch > 0 {
		pitch := int(voice.Pitch * 50)
		if pitch > 99 {
			pitch = 99
		}
		args = append(args, "-p", strconv.Itoa(pitch))
	}
	if voice.Volume > 0 {
		amp := int(voice.Volume * 200)
		if amp > 200 {
			amp = 200
		}
		args = append(args, "-a", strconv.Itoa(amp))
	}

	return append(args, text)
}

// Stop kills the engine process, if any. Safe to call when idle.
func (l *LocalTTS) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
	return nil
}

func (l *LocalTTS) stopLocked() {
	if l.cmd != nil && l.cmd.Process != nil {
		_ = l.cmd.Process.Kill()
	}
	l.cmd = nil
	l.playing = false
	l.currentText = ""
}

// Pause suspends the engine process.
func (l *LocalTTS) Pause() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cmd == nil || l.cmd.Process == nil {
		return nil
	}
	return l.cmd.Process.Signal(syscall.SIGSTOP)
}

// Resume continues a suspended engine process.
func (l *LocalTTS) Resume() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cmd == nil || l.cmd.Process == nil {
		return nil
	}
	return l.cmd.Process.Signal(syscall.SIGCONT)
}

func (l *LocalTTS) IsPlaying() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.playing
}

func (l *LocalTTS) CurrentText() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentText
}
