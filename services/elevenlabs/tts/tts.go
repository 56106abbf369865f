package elevenlabs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"storychat/core"

	"github.com/bytedance/sonic"
)

// ElevenLabsTTSConfig holds configuration for the ElevenLabs TTS backend.
type ElevenLabsTTSConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	ModelID string `json:"model_id"`

	// Voice settings
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`

	Timeout time.Duration `json:"-"`
}

// Validate reports configuration problems before any request is made.
func (c ElevenLabsTTSConfig) Validate() error {
	if c.APIKey == "" {
		return &core.ConfigError{Backend: core.BackendElevenLabs, Message: "API key is required"}
	}
	return nil
}

type synthRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// ElevenLabsTTS synthesizes speech through the ElevenLabs HTTP API and plays
// the resulting MP3 clips through the shared audio player.
type ElevenLabsTTS struct {
	config     ElevenLabsTTSConfig
	httpClient *http.Client
	player     core.AudioPlayer
	logger     *core.Logger

	mu          sync.RWMutex
	playing     bool
	currentText string
}

// NewElevenLabsTTS creates an ElevenLabs backend with the provided config.
func NewElevenLabsTTS(config ElevenLabsTTSConfig, player core.AudioPlayer, logger *core.Logger) *ElevenLabsTTS {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.elevenlabs.io/v1/text-to-speech"
	}
	if config.ModelID == "" {
		config.ModelID = "eleven_multilingual_v2"
	}
	if config.Stability == 0 {
		config.Stability = 0.5
	}
	if config.SimilarityBoost == 0 {
		config.SimilarityBoost = 0.75
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = core.GetLogger()
	}

	return &ElevenLabsTTS{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		player:     player,
		logger:     logger.With(map[string]interface{}{"backend": string(core.BackendElevenLabs)}),
	}
}

func (e *ElevenLabsTTS) ID() core.BackendID { return core.BackendElevenLabs }

// SynthesizeOrFetch requests MP3 audio for the text. The voice ID is required
// and checked before any network call.
func (e *ElevenLabsTTS) SynthesizeOrFetch(ctx context.Context, text string, voice core.VoiceParams) (*core.AudioClip, error) {
	if voice.VoiceID == "" {
		return nil, &core.ConfigError{Backend: core.BackendElevenLabs, Message: "voice ID is required"}
	}
	if err := e.config.Validate(); err != nil {
		return nil, err
	}

	body, err := sonic.Marshal(synthRequest{
		Text:    text,
		ModelID: e.config.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       e.config.Stability,
			SimilarityBoost: e.config.SimilarityBoost,
		},
	})
	if err != nil {
		return nil, &core.SynthesisError{Backend: core.BackendElevenLabs, Message: fmt.Sprintf("marshal request: %v", err)}
	}

	data, err := e.fetchWithRetry(ctx, e.config.BaseURL+"/"+voice.VoiceID, body)
	if err != nil {
		return nil, err
	}

	return &core.AudioClip{Text: text, Data: data, Format: core.AudioFormatMP3}, nil
}

// fetchWithRetry retries transport-level failures with a short linear backoff.
// HTTP error statuses are terminal.
func (e *ElevenLabsTTS) fetchWithRetry(ctx context.Context, url string, body []byte) ([]byte, error) {
	const maxRetries = 3
	const baseDelay = 500 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay * time.Duration(attempt)
			e.logger.Infof("retrying synthesis (attempt %d/%d) in %v after error: %v",
				attempt+1, maxRetries, delay, lastErr)
			select {
			case <-ctx.Done():
				return nil, &core.SynthesisError{Backend: core.BackendElevenLabs, Message: ctx.Err().Error()}
			case <-time.After(delay):
			}
		}

		data, retryable, err := e.fetchOnce(ctx, url, body)
		if err == nil {
			return data, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}

	return nil, &core.SynthesisError{
		Backend: core.BackendElevenLabs,
		Message: fmt.Sprintf("request failed after %d attempts: %v", maxRetries, lastErr),
	}
}

func (e *ElevenLabsTTS) fetchOnce(ctx context.Context, url string, body []byte) (data []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, false, &core.SynthesisError{Backend: core.BackendElevenLabs, Message: err.Error()}
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.config.APIKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, true, &core.SynthesisError{Backend: core.BackendElevenLabs, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, false, &core.SynthesisError{
			Backend:    core.BackendElevenLabs,
			StatusCode: resp.StatusCode,
			Message:    string(msg),
		}
	}

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, &core.SynthesisError{Backend: core.BackendElevenLabs, Message: err.Error()}
	}
	return data, false, nil
}

// Play renders a previously synthesized clip through the shared player.
func (e *ElevenLabsTTS) Play(ctx context.Context, clip *core.AudioClip, voice core.VoiceParams) (<-chan struct{}, error) {
	if err := e.player.Configure(); err != nil {
		return nil, &core.PlaybackError{Backend: core.BackendElevenLabs, Message: err.Error()}
	}

	done, err := e.player.Play(ctx, clip, voice.Volume)
	if err != nil {
		return nil, &core.PlaybackError{Backend: core.BackendElevenLabs, Message: err.Error()}
	}

	e.mu.Lock()
	e.playing = true
	e.currentText = clip.Text
	e.mu.Unlock()

	go func() {
		<-done
		e.mu.Lock()
		if e.currentText == clip.Text {
			e.playing = false
			e.currentText = ""
		}
		e.mu.Unlock()
	}()

	return done, nil
}

// Stop halts playback. Safe to call when nothing is playing.
func (e *ElevenLabsTTS) Stop() error {
	e.mu.Lock()
	e.playing = false
	e.currentText = ""
	e.mu.Unlock()
	return e.player.Stop()
}

func (e *ElevenLabsTTS) Pause() error {
	return e.player.Pause()
}

func (e *ElevenLabsTTS) Resume() error {
	return e.player.Resume()
}

func (e *ElevenLabsTTS) IsPlaying() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.playing
}

func (e *ElevenLabsTTS) CurrentText() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.currentText
}
