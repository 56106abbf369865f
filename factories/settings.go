package factories

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"

	"storychat/core"
)

// TTSSettings controls speech output across all backends. Rate and pitch are
// multipliers in 0.5..2.0, volume is 0.0..1.0.
type TTSSettings struct {
	Enabled           bool           `json:"enabled"`
	Autoplay          bool           `json:"autoplay"`
	Provider          core.BackendID `json:"provider"`
	Rate              float64        `json:"rate"`
	Pitch             float64        `json:"pitch"`
	Volume            float64        `json:"volume"`
	Language          string         `json:"language"`
	ElevenLabsVoiceID string         `json:"elevenlabs_voice_id"`
	OpenAIVoiceID     string         `json:"openai_voice_id"`
	LocalVoice        string         `json:"local_voice,omitempty"`
}

// VoiceParams resolves the settings into the voice parameters for the
// configured provider.
func (s TTSSettings) VoiceParams() core.VoiceParams {
	params := core.VoiceParams{
		Rate:     s.Rate,
		Pitch:    s.Pitch,
		Volume:   s.Volume,
		Language: s.Language,
	}
	switch s.Provider {
	case core.BackendElevenLabs:
		params.VoiceID = s.ElevenLabsVoiceID
	case core.BackendOpenAI:
		params.VoiceID = s.OpenAIVoiceID
	case core.BackendLocal:
		params.VoiceID = s.LocalVoice
	}
	return params
}

// StorySettings controls narrative generation.
type StorySettings struct {
	// MaxTokens caps the length of narrative replies, 100..800.
	MaxTokens int `json:"max_tokens"`
}

// AppSettings is the top-level settings document persisted to disk.
type AppSettings struct {
	TTS   TTSSettings   `json:"tts"`
	Story StorySettings `json:"story"`
}

// DefaultAppSettings returns the settings used until the user changes them.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		TTS: TTSSettings{
			Enabled:           true,
			Autoplay:          true,
			Provider:          core.BackendLocal,
			Rate:              1.0,
			Pitch:             1.0,
			Volume:            0.8,
			Language:          "de-DE",
			ElevenLabsVoiceID: DefaultElevenLabsVoiceID,
			OpenAIVoiceID:     DefaultOpenAIVoiceID,
		},
		Story: StorySettings{MaxTokens: 300},
	}
}

// Clamped returns a copy with every field forced into its valid range and
// empty selections replaced by defaults.
func (s AppSettings) Clamped() AppSettings {
	s.TTS.Rate = clampFloat(s.TTS.Rate, 0.5, 2.0)
	s.TTS.Pitch = clampFloat(s.TTS.Pitch, 0.5, 2.0)
	s.TTS.Volume = clampFloat(s.TTS.Volume, 0.0, 1.0)
	if s.TTS.Provider == "" {
		s.TTS.Provider = core.BackendLocal
	}
	if s.TTS.Language == "" {
		s.TTS.Language = "de-DE"
	}
	if s.TTS.ElevenLabsVoiceID == "" {
		s.TTS.ElevenLabsVoiceID = DefaultElevenLabsVoiceID
	}
	if s.TTS.OpenAIVoiceID == "" {
		s.TTS.OpenAIVoiceID = DefaultOpenAIVoiceID
	}
	if s.Story.MaxTokens < 100 {
		s.Story.MaxTokens = 100
	}
	if s.Story.MaxTokens > 800 {
		s.Story.MaxTokens = 800
	}
	return s
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SettingsStore is a file-backed settings document. Reads and writes are
// serialized; every update is clamped and persisted before it becomes
// visible to readers.
type SettingsStore struct {
	path string

	mu       sync.RWMutex
	settings AppSettings
}

// NewSettingsStore loads the settings file at path, falling back to defaults
// when the file does not exist. A corrupt file is an error, not a silent
// reset.
func NewSettingsStore(path string) (*SettingsStore, error) {
	store := &SettingsStore{
		path:     path,
		settings: DefaultAppSettings(),
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("settings: read %q: %w", path, err)
	}
	var loaded AppSettings
	if err := sonic.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("settings: parse %q: %w", path, err)
	}
	store.settings = loaded.Clamped()
	return store, nil
}

// Get returns a copy of the current settings.
func (s *SettingsStore) Get() AppSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update applies fn to a copy of the settings, clamps the result, persists
// it, and makes it visible. On persist failure the in-memory settings are
// unchanged.
func (s *SettingsStore) Update(fn func(*AppSettings)) (AppSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.settings
	fn(&next)
	next = next.Clamped()
	if err := s.persist(next); err != nil {
		return s.settings, err
	}
	s.settings = next
	return next, nil
}

// Replace swaps in a whole settings document, clamped and persisted.
func (s *SettingsStore) Replace(next AppSettings) (AppSettings, error) {
	return s.Update(func(cur *AppSettings) { *cur = next })
}

// StoryMaxTokens returns the current reply budget. Satisfies the
// orchestrator's token budget source.
func (s *SettingsStore) StoryMaxTokens() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Story.MaxTokens
}

// persist writes to a temp file in the same directory and renames it into
// place so a crash never leaves a half-written settings file.
func (s *SettingsStore) persist(settings AppSettings) error {
	data, err := sonic.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("settings: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("settings: write %q: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("settings: close %q: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("settings: rename to %q: %w", s.path, err)
	}
	return nil
}
