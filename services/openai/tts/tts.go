package tts

import (
	"context"
	"errors"
	"io"
	"sync"

	"storychat/core"

	"github.com/sashabaranov/go-openai"
)

// OpenAITTSConfig holds configuration for the OpenAI speech backend.
type OpenAITTSConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

// OpenAITTS synthesizes speech through the OpenAI audio/speech endpoint and
// plays the resulting MP3 clips through the shared audio player.
type OpenAITTS struct {
	client *openai.Client
	config OpenAITTSConfig
	player core.AudioPlayer
	logger *core.Logger

	mu          sync.RWMutex
	playing     bool
	currentText string
}

// NewOpenAITTS creates an OpenAI speech backend with the provided config.
func NewOpenAITTS(config OpenAITTSConfig, player core.AudioPlayer, logger *core.Logger) *OpenAITTS {
	if config.Model == "" {
		config.Model = string(openai.TTSModel1)
	}
	if logger == nil {
		logger = core.GetLogger()
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAITTS{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		player: player,
		logger: logger.With(map[string]interface{}{"backend": string(core.BackendOpenAI)}),
	}
}

func (o *OpenAITTS) ID() core.BackendID { return core.BackendOpenAI }

// SynthesizeOrFetch requests MP3 audio for the text. The voice ID is required
// and checked before any network call. The utterance rate maps onto the
// endpoint's speed parameter (0.25-4.0).
func (o *OpenAITTS) SynthesizeOrFetch(ctx context.Context, text string, voice core.VoiceParams) (*core.AudioClip, error) {
	if voice.VoiceID == "" {
		return nil, &core.ConfigError{Backend: core.BackendOpenAI, Message: "voice ID is required"}
	}
	if o.config.APIKey == "" {
		return nil, &core.ConfigError{Backend: core.BackendOpenAI, Message: "API key is required"}
	}

	speed := voice.Rate
	if speed < 0.25 {
		speed = 0.25
	}
	if speed > 4.0 {
		speed = 4.0
	}

	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.SpeechModel(o.config.Model),
		Input: text,
		Voice: openai.SpeechVoice(voice.VoiceID),
		Speed: speed,
	})
	if err != nil {
		return nil, o.mapError(err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, &core.SynthesisError{Backend: core.BackendOpenAI, Message: err.Error()}
	}

	return &core.AudioClip{Text: text, Data: data, Format: core.AudioFormatMP3}, nil
}

func (o *OpenAITTS) mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &core.SynthesisError{
			Backend:    core.BackendOpenAI,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &core.SynthesisError{
			Backend:    core.BackendOpenAI,
			StatusCode: reqErr.HTTPStatusCode,
			Message:    reqErr.Error(),
		}
	}
	return &core.SynthesisError{Backend: core.BackendOpenAI, Message: err.Error()}
}

// Play renders a previously synthesized clip through the shared player.
func (o *OpenAITTS) Play(ctx context.Context, clip *core.AudioClip, voice core.VoiceParams) (<-chan struct{}, error) {
	if err := o.player.Configure(); err != nil {
		return nil, &core.PlaybackError{Backend: core.BackendOpenAI, Message: err.Error()}
	}

	done, err := o.player.Play(ctx, clip, voice.Volume)
	if err != nil {
		return nil, &core.PlaybackError{Backend: core.BackendOpenAI, Message: err.Error()}
	}

	o.mu.Lock()
	o.playing = true
	o.currentText = clip.Text
	o.mu.Unlock()

	go func() {
		<-done
		o.mu.Lock()
		if o.currentText == clip.Text {
			o.playing = false
			o.currentText = ""
		}
		o.mu.Unlock()
	}()

	return done, nil
}

// Stop halts playback. Safe to call when nothing is playing.
func (o *OpenAITTS) Stop() error {
	o.mu.Lock()
	o.playing = false
	o.currentText = ""
	o.mu.Unlock()
	return o.player.Stop()
}

func (o *OpenAITTS) Pause() error {
	return o.player.Pause()
}

func (o *OpenAITTS) Resume() error {
	return o.player.Resume()
}

func (o *OpenAITTS) IsPlaying() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.playing
}

func (o *OpenAITTS) CurrentText() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.currentText
}
