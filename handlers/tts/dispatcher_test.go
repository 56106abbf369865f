package tts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"storychat/cache"
	"storychat/core"
)

// fakeBackend is a scriptable SpeechBackend. Play returns a channel the test
// (or Stop) closes to end playback.
type fakeBackend struct {
	id        core.BackendID
	cacheable bool

	mu          sync.Mutex
	synthCalls  int
	playCalls   int
	stopCalls   int
	pauseCalls  int
	resumeCalls int
	playing     bool
	current     string
	done        chan struct{}
	synthErr    error
	playErr     error
	nilClip     bool
}

func newFakeBackend(id core.BackendID, cacheable bool) *fakeBackend {
	return &fakeBackend{id: id, cacheable: cacheable}
}

func (f *fakeBackend) ID() core.BackendID { return f.id }

func (f *fakeBackend) SynthesizeOrFetch(_ context.Context, text string, _ core.VoiceParams) (*core.AudioClip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synthCalls++
	if f.synthErr != nil {
		return nil, f.synthErr
	}
	if f.nilClip {
		return nil, nil
	}
	clip := &core.AudioClip{Text: text, Format: core.AudioFormatMP3}
	if f.cacheable {
		clip.Data = []byte(text)
	}
	return clip, nil
}

func (f *fakeBackend) Play(_ context.Context, clip *core.AudioClip, _ core.VoiceParams) (<-chan struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playCalls++
	if f.playErr != nil {
		return nil, f.playErr
	}
	f.playing = true
	f.current = clip.Text
	f.done = make(chan struct{})
	return f.done, nil
}

func (f *fakeBackend) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	if f.playing {
		f.playing = false
		f.current = ""
		close(f.done)
	}
	return nil
}

func (f *fakeBackend) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauseCalls++
	return nil
}

func (f *fakeBackend) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumeCalls++
	return nil
}

func (f *fakeBackend) IsPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *fakeBackend) CurrentText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeBackend) counts() (synth, play, stop int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.synthCalls, f.playCalls, f.stopCalls
}

func cloudVoice() core.VoiceParams {
	return core.VoiceParams{Rate: 1.0, Pitch: 1.0, Volume: 0.8, VoiceID: "voice-1"}
}

func newTestDispatcher(backends ...core.SpeechBackend) *Dispatcher {
	return NewDispatcher(backends, cache.New(), core.NewDiscardLogger())
}

func TestSpeakEmptyTextIsNoOp(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(core.BackendElevenLabs, true)
	d := newTestDispatcher(backend)

	done, err := d.Speak(context.Background(), core.UtteranceRequest{
		Text:    "   \n\t  ",
		Backend: core.BackendElevenLabs,
		Voice:   cloudVoice(),
	})
	require.NoError(t, err)

	select {
	case <-done:
	default:
		t.Fatal("no-op speak should return an already closed channel")
	}

	synth, play, _ := backend.counts()
	require.Zero(t, synth)
	require.Zero(t, play)
}

func TestSpeakUnknownBackend(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(newFakeBackend(core.BackendLocal, false))

	_, err := d.Speak(context.Background(), core.UtteranceRequest{
		Text:    "Hallo",
		Backend: core.BackendID("azure"),
	})
	var configErr *core.ConfigError
	require.ErrorAs(t, err, &configErr)
}

func TestSpeakCloudBackendRequiresVoiceID(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(core.BackendOpenAI, true)
	d := newTestDispatcher(backend)

	_, err := d.Speak(context.Background(), core.UtteranceRequest{
		Text:    "Hallo",
		Backend: core.BackendOpenAI,
	})
	var configErr *core.ConfigError
	require.ErrorAs(t, err, &configErr)
	require.Equal(t, core.BackendOpenAI, configErr.Backend)

	synth, _, _ := backend.counts()
	require.Zero(t, synth, "configuration errors must be raised before synthesis")
}

func TestSpeakLocalBackendNeedsNoVoiceID(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(core.BackendLocal, false)
	d := newTestDispatcher(backend)

	done, err := d.Speak(context.Background(), core.UtteranceRequest{
		Text:    "Hallo Welt",
		Backend: core.BackendLocal,
	})
	require.NoError(t, err)
	require.NotNil(t, done)
	require.True(t, backend.IsPlaying())
	require.Equal(t, "Hallo Welt", backend.CurrentText())
}

func TestSpeakCachesCloudAudio(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(core.BackendElevenLabs, true)
	d := newTestDispatcher(backend)
	req := core.UtteranceRequest{Text: "Wasser-Atem", Backend: core.BackendElevenLabs, Voice: cloudVoice()}

	_, err := d.Speak(context.Background(), req)
	require.NoError(t, err)
	_, err = d.Speak(context.Background(), req)
	require.NoError(t, err)

	synth, play, _ := backend.counts()
	require.Equal(t, 1, synth, "second utterance must come from the cache")
	require.Equal(t, 2, play)
}

func TestSpeakSkipsCacheForClipsWithoutAudio(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(core.BackendLocal, false)
	d := newTestDispatcher(backend)
	req := core.UtteranceRequest{Text: "Wasser-Atem", Backend: core.BackendLocal}

	_, err := d.Speak(context.Background(), req)
	require.NoError(t, err)
	_, err = d.Speak(context.Background(), req)
	require.NoError(t, err)

	synth, _, _ := backend.counts()
	require.Equal(t, 2, synth, "text-only clips are synthesized every time")
}

func TestSpeakStopsOtherBackendFirst(t *testing.T) {
	t.Parallel()

	local := newFakeBackend(core.BackendLocal, false)
	eleven := newFakeBackend(core.BackendElevenLabs, true)
	d := newTestDispatcher(local, eleven)

	firstDone, err := d.Speak(context.Background(), core.UtteranceRequest{
		Text:    "Erster Satz",
		Backend: core.BackendLocal,
	})
	require.NoError(t, err)
	require.True(t, local.IsPlaying())

	_, err = d.Speak(context.Background(), core.UtteranceRequest{
		Text:    "Zweiter Satz",
		Backend: core.BackendElevenLabs,
		Voice:   cloudVoice(),
	})
	require.NoError(t, err)

	select {
	case <-firstDone:
	case <-time.After(time.Second):
		t.Fatal("first utterance must be stopped before the second starts")
	}
	require.False(t, local.IsPlaying())
	require.True(t, eleven.IsPlaying())
}

func TestSpeakNilClipIsSynthesisError(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(core.BackendOpenAI, true)
	backend.nilClip = true
	d := newTestDispatcher(backend)

	_, err := d.Speak(context.Background(), core.UtteranceRequest{
		Text:    "Hallo",
		Backend: core.BackendOpenAI,
		Voice:   cloudVoice(),
	})
	var synthErr *core.SynthesisError
	require.ErrorAs(t, err, &synthErr)
}

func TestSpeakPropagatesSynthesisFailure(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(core.BackendElevenLabs, true)
	backend.synthErr = &core.SynthesisError{Backend: core.BackendElevenLabs, StatusCode: 500, Message: "boom"}
	d := newTestDispatcher(backend)

	_, err := d.Speak(context.Background(), core.UtteranceRequest{
		Text:    "Hallo",
		Backend: core.BackendElevenLabs,
		Voice:   cloudVoice(),
	})
	var synthErr *core.SynthesisError
	require.ErrorAs(t, err, &synthErr)
	require.Equal(t, 500, synthErr.StatusCode)

	_, play, _ := backend.counts()
	require.Zero(t, play, "nothing plays when synthesis fails")
}

func TestStopFansOutToAllBackends(t *testing.T) {
	t.Parallel()

	local := newFakeBackend(core.BackendLocal, false)
	eleven := newFakeBackend(core.BackendElevenLabs, true)
	d := newTestDispatcher(local, eleven)

	// Safe when idle.
	d.Stop()
	_, _, localStops := local.counts()
	_, _, elevenStops := eleven.counts()
	require.Equal(t, 1, localStops)
	require.Equal(t, 1, elevenStops)

	done, err := d.Speak(context.Background(), core.UtteranceRequest{Text: "Hallo", Backend: core.BackendLocal})
	require.NoError(t, err)

	d.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop must end the active utterance")
	}
	require.False(t, local.IsPlaying())
}

func TestPauseResumeOnlyTouchActiveBackend(t *testing.T) {
	t.Parallel()

	local := newFakeBackend(core.BackendLocal, false)
	eleven := newFakeBackend(core.BackendElevenLabs, true)
	d := newTestDispatcher(local, eleven)

	// Nothing active: both are silent no-ops.
	require.NoError(t, d.Pause(core.BackendLocal))
	require.NoError(t, d.Resume(core.BackendLocal))
	require.Zero(t, local.pauseCalls)
	require.Zero(t, local.resumeCalls)

	_, err := d.Speak(context.Background(), core.UtteranceRequest{Text: "Hallo", Backend: core.BackendLocal})
	require.NoError(t, err)

	require.NoError(t, d.Pause(core.BackendElevenLabs))
	require.Zero(t, eleven.pauseCalls, "pause addresses only the active backend")

	require.NoError(t, d.Pause(core.BackendLocal))
	require.NoError(t, d.Resume(core.BackendLocal))
	require.Equal(t, 1, local.pauseCalls)
	require.Equal(t, 1, local.resumeCalls)
}

func TestStatus(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(core.BackendLocal, false)
	d := newTestDispatcher(backend)

	state, err := d.Status(core.BackendLocal)
	require.NoError(t, err)
	require.False(t, state.IsSpeaking)

	_, err = d.Speak(context.Background(), core.UtteranceRequest{Text: "Hallo Welt", Backend: core.BackendLocal})
	require.NoError(t, err)

	state, err = d.Status(core.BackendLocal)
	require.NoError(t, err)
	require.True(t, state.IsSpeaking)
	require.Equal(t, "Hallo Welt", state.CurrentText)

	_, err = d.Status(core.BackendID("azure"))
	var configErr *core.ConfigError
	require.ErrorAs(t, err, &configErr)
}

func TestClearCache(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(core.BackendElevenLabs, true)
	d := newTestDispatcher(backend)

	_, err := d.Speak(context.Background(), core.UtteranceRequest{
		Text:    "Hallo",
		Backend: core.BackendElevenLabs,
		Voice:   cloudVoice(),
	})
	require.NoError(t, err)

	require.Equal(t, 0, d.ClearCache(core.BackendOpenAI))
	require.Equal(t, 1, d.ClearCache(core.BackendElevenLabs))

	_, err = d.Speak(context.Background(), core.UtteranceRequest{
		Text:    "Hallo",
		Backend: core.BackendElevenLabs,
		Voice:   cloudVoice(),
	})
	require.NoError(t, err)
	synth, _, _ := backend.counts()
	require.Equal(t, 2, synth, "cleared entries are synthesized again")
}

func TestBackendsListsConfiguredIDs(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(
		newFakeBackend(core.BackendLocal, false),
		newFakeBackend(core.BackendOpenAI, true),
	)

	ids := d.Backends()
	require.ElementsMatch(t, []core.BackendID{core.BackendLocal, core.BackendOpenAI}, ids)
}
