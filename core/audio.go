package core

import "time"

// AudioFormat identifies the encoding of an AudioClip payload.
type AudioFormat string

const (
	AudioFormatMP3  AudioFormat = "mp3"
	AudioFormatPCM  AudioFormat = "pcm"  // 16-bit LE mono
	AudioFormatULAW AudioFormat = "ulaw" // G.711 µ-law 8 kHz
	// AudioFormatNone marks a clip without payload; the local backend
	// streams synthesis directly instead of returning bytes.
	AudioFormatNone AudioFormat = ""
)

// AudioClip is one synthesized utterance. Data is nil for local-backend clips.
type AudioClip struct {
	Text       string
	Data       []byte
	Format     AudioFormat
	SampleRate int
}

// duration heuristics for text without an authoritative audio length
const (
	spokenCharsPerSecond = 15.0
	minSpokenDuration    = 1 * time.Second
	maxSpokenDuration    = 30 * time.Second
)

// EstimateSpokenDuration guesses how long a clip takes to play. PCM payloads
// are measured exactly; everything else falls back to a character-count
// heuristic, since the local engine gives no completion signal with a known
// length. The estimate is clamped, not guaranteed.
func (c *AudioClip) EstimateSpokenDuration() time.Duration {
	if c == nil {
		return 0
	}
	if c.Format == AudioFormatPCM && c.SampleRate > 0 && len(c.Data) > 0 {
		samples := len(c.Data) / 2 // 16-bit mono
		return time.Duration(float64(samples) / float64(c.SampleRate) * float64(time.Second))
	}
	return EstimateSpeechDuration(c.Text)
}

// EstimateSpeechDuration applies the character-count heuristic to raw text.
func EstimateSpeechDuration(text string) time.Duration {
	if text == "" {
		return 0
	}
	d := time.Duration(float64(len([]rune(text))) / spokenCharsPerSecond * float64(time.Second))
	if d < minSpokenDuration {
		return minSpokenDuration
	}
	if d > maxSpokenDuration {
		return maxSpokenDuration
	}
	return d
}
