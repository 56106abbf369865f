package factories

import (
	"fmt"
	"os"

	"storychat/cache"
	"storychat/core"
	ttshandler "storychat/handlers/tts"
	"storychat/playback"
	"storychat/services/elevenlabs/tts"
	localtts "storychat/services/local/tts"
	"storychat/services/openai/llm"
	openaitts "storychat/services/openai/tts"
)

// APIKeys holds the credentials for the cloud providers. Keys are injected
// from the environment, never stored in the settings file.
type APIKeys struct {
	OpenAI     string
	ElevenLabs string
}

// APIKeysFromEnv reads OPENAI_API_KEY and ELEVENLABS_API_KEY.
func APIKeysFromEnv() APIKeys {
	return APIKeys{
		OpenAI:     os.Getenv("OPENAI_API_KEY"),
		ElevenLabs: os.Getenv("ELEVENLABS_API_KEY"),
	}
}

// StackConfig bundles everything needed to assemble the speech stack.
type StackConfig struct {
	Keys APIKeys
	// Player configures the external audio player used by the cloud
	// backends. Zero value uses ffplay.
	Player playback.ExecPlayerConfig
	// Local configures the on-device speech engine. Zero value uses
	// espeak-ng with German voices.
	Local localtts.LocalTTSConfig
	// ElevenLabs overrides the ElevenLabs defaults. The API key from Keys
	// is injected when the config carries none.
	ElevenLabs elevenlabs.ElevenLabsTTSConfig
	// OpenAITTS overrides the OpenAI speech defaults. Same key injection.
	OpenAITTS openaitts.OpenAITTSConfig
	// ChatModel overrides the narrative model. Zero value uses the
	// transport default.
	ChatModel string
}

// BuildDispatcher assembles the speech dispatcher. The local engine is always
// available; each cloud backend is included only when its API key is set, so
// the stack degrades to on-device speech without credentials.
func BuildDispatcher(config StackConfig, logger *core.Logger) (*ttshandler.Dispatcher, error) {
	backends := []core.SpeechBackend{
		localtts.NewLocalTTS(config.Local, logger),
	}

	if config.ElevenLabs.APIKey == "" {
		config.ElevenLabs.APIKey = config.Keys.ElevenLabs
	}
	if config.ElevenLabs.APIKey != "" {
		if err := config.ElevenLabs.Validate(); err != nil {
			return nil, fmt.Errorf("dispatcher: %w", err)
		}
		player := playback.NewExecPlayer(config.Player, logger)
		backends = append(backends, elevenlabs.NewElevenLabsTTS(config.ElevenLabs, player, logger))
	}

	if config.OpenAITTS.APIKey == "" {
		config.OpenAITTS.APIKey = config.Keys.OpenAI
	}
	if config.OpenAITTS.APIKey != "" {
		player := playback.NewExecPlayer(config.Player, logger)
		backends = append(backends, openaitts.NewOpenAITTS(config.OpenAITTS, player, logger))
	}

	return ttshandler.NewDispatcher(backends, cache.New(), logger), nil
}

// BuildChatTransport constructs the narrative AI transport.
func BuildChatTransport(config StackConfig, logger *core.Logger) (*llm.OpenAIChatTransport, error) {
	if config.Keys.OpenAI == "" {
		return nil, fmt.Errorf("chat transport: OPENAI_API_KEY is not set")
	}
	return llm.NewOpenAIChatTransport(llm.Config{
		APIKey: config.Keys.OpenAI,
		Model:  config.ChatModel,
	}, logger), nil
}
