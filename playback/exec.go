// Package playback renders audio clips through an external player process.
// Synthesized audio arrives as whole clips (MP3 from the cloud backends, PCM
// after transcoding), so piping them to a player binary keeps the process
// free of audio-device bindings.
package playback

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"syscall"

	"storychat/core"
	"storychat/utils/audio"
)

// ExecPlayerConfig configures the external player command.
type ExecPlayerConfig struct {
	// Binary is the player executable. Defaults to ffplay.
	Binary string `json:"binary"`
	// ExtraArgs are appended before the input argument.
	ExtraArgs []string `json:"extra_args,omitempty"`
}

// ExecPlayer pipes clips to a player process on stdin. Pause and resume map
// to SIGSTOP/SIGCONT on the child process.
type ExecPlayer struct {
	config ExecPlayerConfig
	logger *core.Logger

	mu         sync.Mutex
	binaryPath string
	cmd        *exec.Cmd
	done       chan struct{}
}

func NewExecPlayer(config ExecPlayerConfig, logger *core.Logger) *ExecPlayer {
	if config.Binary == "" {
		config.Binary = "ffplay"
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &ExecPlayer{
		config: config,
		logger: logger.With(map[string]interface{}{"component": "player"}),
	}
}

// Configure resolves the player binary. Safe to call before every playback.
func (p *ExecPlayer) Configure() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.binaryPath != "" {
		return nil
	}
	path, err := exec.LookPath(p.config.Binary)
	if err != nil {
		return fmt.Errorf("playback: player binary %q not found: %w", p.config.Binary, err)
	}
	p.binaryPath = path
	return nil
}

// Play starts the player process for one clip. Any clip already playing is
// stopped first. The returned channel closes when the process exits.
func (p *ExecPlayer) Play(ctx context.Context, clip *core.AudioClip, volume float64) (<-chan struct{}, error) {
	if clip == nil || len(clip.Data) == 0 {
		return nil, fmt.Errorf("playback: clip has no audio data")
	}
	if err := p.Configure(); err != nil {
		return nil, err
	}

	input, err := playerInput(clip)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()

	args := []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}
	if volume > 0 && volume <= 1.0 {
		args = append(args, "-volume", strconv.Itoa(int(volume*100)))
	}
	args = append(args, p.config.ExtraArgs...)
	args = append(args, "-")

	cmd := exec.CommandContext(ctx, p.binaryPath, args...)
	cmd.Stdin = bytes.NewReader(input)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("playback: start %s: %w", p.config.Binary, err)
	}

	done := make(chan struct{})
	p.cmd = cmd
	p.done = done

	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		if p.cmd == cmd {
			p.cmd = nil
			p.done = nil
		}
		p.mu.Unlock()
		if err != nil {
			p.logger.With(map[string]interface{}{"error": err}).Debug("player process exited with error")
		}
		close(done)
	}()

	return done, nil
}

// Stop kills the current player process, if any.
func (p *ExecPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

func (p *ExecPlayer) stopLocked() {
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	p.cmd = nil
	p.done = nil
}

// Pause suspends the player process.
func (p *ExecPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Signal(syscall.SIGSTOP)
}

// Resume continues a suspended player process.
func (p *ExecPlayer) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Signal(syscall.SIGCONT)
}

// playerInput converts a clip into bytes the player can read from stdin.
// Raw PCM and µ-law are wrapped into WAV; MP3 passes through.
func playerInput(clip *core.AudioClip) ([]byte, error) {
	switch clip.Format {
	case core.AudioFormatMP3:
		return clip.Data, nil
	case core.AudioFormatPCM:
		return audio.PCMBytesToWavBytes(clip.Data, 1, clip.SampleRate)
	case core.AudioFormatULAW:
		pcm := audio.ULawBytesToPCM(clip.Data)
		rate := clip.SampleRate
		if rate == 0 {
			rate = 8000
		}
		return audio.PCMBytesToWavBytes(pcm, 1, rate)
	default:
		return nil, fmt.Errorf("playback: unsupported clip format %q", clip.Format)
	}
}
