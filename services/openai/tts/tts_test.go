package tts_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"

	"storychat/core"
	openaitts "storychat/services/openai/tts"
)

type fakePlayer struct {
	done chan struct{}
}

func (f *fakePlayer) Configure() error { return nil }

func (f *fakePlayer) Play(_ context.Context, _ *core.AudioClip, _ float64) (<-chan struct{}, error) {
	f.done = make(chan struct{})
	return f.done, nil
}

func (f *fakePlayer) Stop() error {
	if f.done != nil {
		select {
		case <-f.done:
		default:
			close(f.done)
		}
	}
	return nil
}

func (f *fakePlayer) Pause() error  { return nil }
func (f *fakePlayer) Resume() error { return nil }

func newBackend(t *testing.T, handler http.HandlerFunc) *openaitts.OpenAITTS {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return openaitts.NewOpenAITTS(openaitts.OpenAITTSConfig{
		APIKey:  "sk-test",
		BaseURL: server.URL,
	}, &fakePlayer{}, core.NewDiscardLogger())
}

func TestSynthesizeOrFetchReturnsMP3Clip(t *testing.T) {
	t.Parallel()

	var got struct {
		Model string  `json:"model"`
		Input string  `json:"input"`
		Voice string  `json:"voice"`
		Speed float64 `json:"speed"`
	}
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, sonic.ConfigDefault.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte("mp3-bytes"))
	})

	clip, err := backend.SynthesizeOrFetch(context.Background(), "Hallo Welt", core.VoiceParams{
		VoiceID: "nova",
		Rate:    1.2,
	})
	require.NoError(t, err)
	require.Equal(t, core.AudioFormatMP3, clip.Format)
	require.Equal(t, []byte("mp3-bytes"), clip.Data)
	require.Equal(t, "Hallo Welt", got.Input)
	require.Equal(t, "nova", got.Voice)
	require.InDelta(t, 1.2, got.Speed, 0.001)
}

func TestSynthesizeOrFetchClampsSpeed(t *testing.T) {
	t.Parallel()

	var gotSpeed float64
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Speed float64 `json:"speed"`
		}
		require.NoError(t, sonic.ConfigDefault.NewDecoder(r.Body).Decode(&body))
		gotSpeed = body.Speed
		_, _ = w.Write([]byte("mp3"))
	})

	_, err := backend.SynthesizeOrFetch(context.Background(), "Hallo", core.VoiceParams{VoiceID: "nova", Rate: 0.1})
	require.NoError(t, err)
	require.InDelta(t, 0.25, gotSpeed, 0.001)
}

func TestSynthesizeOrFetchRequiresVoiceAndKey(t *testing.T) {
	t.Parallel()

	var hits int32
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	})

	_, err := backend.SynthesizeOrFetch(context.Background(), "Hallo", core.VoiceParams{})
	var configErr *core.ConfigError
	require.ErrorAs(t, err, &configErr)

	keyless := openaitts.NewOpenAITTS(openaitts.OpenAITTSConfig{}, &fakePlayer{}, core.NewDiscardLogger())
	_, err = keyless.SynthesizeOrFetch(context.Background(), "Hallo", core.VoiceParams{VoiceID: "nova"})
	require.ErrorAs(t, err, &configErr)

	require.Zero(t, atomic.LoadInt32(&hits))
}

func TestSynthesizeOrFetchMapsAPIErrors(t *testing.T) {
	t.Parallel()

	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "slow down", "type": "rate_limit_error"}}`))
	})

	_, err := backend.SynthesizeOrFetch(context.Background(), "Hallo", core.VoiceParams{VoiceID: "nova"})
	var synthErr *core.SynthesisError
	require.ErrorAs(t, err, &synthErr)
	require.Equal(t, http.StatusTooManyRequests, synthErr.StatusCode)
}

func TestPlayTracksState(t *testing.T) {
	t.Parallel()

	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {})
	clip := &core.AudioClip{Text: "Hallo Welt", Data: []byte("mp3"), Format: core.AudioFormatMP3}

	_, err := backend.Play(context.Background(), clip, core.VoiceParams{Volume: 0.8})
	require.NoError(t, err)
	require.True(t, backend.IsPlaying())
	require.Equal(t, "Hallo Welt", backend.CurrentText())

	require.NoError(t, backend.Stop())
	require.False(t, backend.IsPlaying())
}
