// Package tts coordinates the three speech backends behind one speak/stop/
// pause/resume surface. The dispatcher owns all cross-backend playback state;
// backends only know about themselves.
package tts

import (
	"context"
	"strings"
	"sync"

	"storychat/cache"
	"storychat/core"
	"storychat/utils/text"
)

// Dispatcher serializes utterances across backends. Invariant: at most one
// backend is audible at any time, regardless of which backend is configured —
// every speak stops whatever is active anywhere before starting.
type Dispatcher struct {
	backends   map[core.BackendID]core.SpeechBackend
	audioCache *cache.AudioCache
	normalizer text.INormalizer
	logger     *core.Logger

	mu         sync.Mutex
	active     core.BackendID
	activeDone <-chan struct{}
}

// NewDispatcher creates a dispatcher over the given backends. The cache is
// shared across cloud backends; the local backend produces no cacheable bytes.
func NewDispatcher(backends []core.SpeechBackend, audioCache *cache.AudioCache, logger *core.Logger) *Dispatcher {
	if audioCache == nil {
		audioCache = cache.New()
	}
	if logger == nil {
		logger = core.GetLogger()
	}

	byID := make(map[core.BackendID]core.SpeechBackend, len(backends))
	for _, b := range backends {
		byID[b.ID()] = b
	}

	return &Dispatcher{
		backends:   byID,
		audioCache: audioCache,
		normalizer: text.NewNormalizer(),
		logger:     logger.With(map[string]interface{}{"component": "tts-dispatcher"}),
	}
}

// Speak synthesizes and plays one utterance. Empty text (after normalization)
// is a silent no-op. Cloud backends require a voice ID; its absence is a
// configuration error raised before any synthesis call. The returned channel
// closes when playback ends; for no-op calls it is already closed.
func (d *Dispatcher) Speak(ctx context.Context, req core.UtteranceRequest) (<-chan struct{}, error) {
	spoken := d.normalizer.Normalize(req.Text)
	if strings.TrimSpace(spoken) == "" {
		return closedChan(), nil
	}

	backend, ok := d.backends[req.Backend]
	if !ok {
		return nil, &core.ConfigError{Backend: req.Backend, Message: "unknown backend"}
	}
	if req.Backend != core.BackendLocal && req.Voice.VoiceID == "" {
		return nil, &core.ConfigError{Backend: req.Backend, Message: "voice ID is required"}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Cross-backend mutual exclusion: stop everything, then wait for the
	// previous utterance to actually release before starting the new one.
	prevDone := d.activeDone
	d.stopAllLocked()
	if prevDone != nil {
		<-prevDone
	}
	d.active = ""
	d.activeDone = nil

	clip, err := d.lookupOrSynthesize(ctx, backend, spoken, req.Voice)
	if err != nil {
		return nil, err
	}

	done, err := backend.Play(ctx, clip, req.Voice)
	if err != nil {
		return nil, err
	}

	d.active = req.Backend
	d.activeDone = done

	go func() {
		<-done
		d.mu.Lock()
		if d.active == req.Backend && d.activeDone == done {
			d.active = ""
			d.activeDone = nil
		}
		d.mu.Unlock()
	}()

	return done, nil
}

// lookupOrSynthesize consults the cache before hitting the backend. Clips
// without audio bytes (local streaming synthesis) are never stored.
func (d *Dispatcher) lookupOrSynthesize(
	ctx context.Context,
	backend core.SpeechBackend,
	spoken string,
	voice core.VoiceParams,
) (*core.AudioClip, error) {
	if clip := d.audioCache.Get(spoken, voice.VoiceID, backend.ID()); clip != nil {
		d.logger.Debug("cache hit", "backend", string(backend.ID()), "chars", len(spoken))
		return clip, nil
	}

	clip, err := backend.SynthesizeOrFetch(ctx, spoken, voice)
	if err != nil {
		return nil, err
	}
	if clip == nil {
		return nil, &core.SynthesisError{Backend: backend.ID(), Message: "backend returned no clip"}
	}
	if len(clip.Data) > 0 {
		d.audioCache.Put(spoken, voice.VoiceID, backend.ID(), clip)
	}
	return clip, nil
}

// Stop halts playback on every backend unconditionally. The fan-out is safe
// when nothing is active.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopAllLocked()
	d.active = ""
	d.activeDone = nil
}

func (d *Dispatcher) stopAllLocked() {
	for id, backend := range d.backends {
		if err := backend.Stop(); err != nil {
			d.logger.Warn("backend stop failed", "backend", string(id), "error", err)
		}
	}
}

// Pause suspends playback on the given backend. No-op when that backend is
// not the active one.
func (d *Dispatcher) Pause(id core.BackendID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active != id {
		return nil
	}
	backend, ok := d.backends[id]
	if !ok {
		return &core.ConfigError{Backend: id, Message: "unknown backend"}
	}
	return backend.Pause()
}

// Resume continues playback on the given backend. No-op when that backend is
// not the active one.
func (d *Dispatcher) Resume(id core.BackendID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active != id {
		return nil
	}
	backend, ok := d.backends[id]
	if !ok {
		return &core.ConfigError{Backend: id, Message: "unknown backend"}
	}
	return backend.Resume()
}

// Status reports the playback state of one backend. Pure read.
func (d *Dispatcher) Status(id core.BackendID) (core.PlaybackState, error) {
	backend, ok := d.backends[id]
	if !ok {
		return core.PlaybackState{}, &core.ConfigError{Backend: id, Message: "unknown backend"}
	}
	return core.PlaybackState{
		IsSpeaking:  backend.IsPlaying(),
		CurrentText: backend.CurrentText(),
	}, nil
}

// ClearCache drops cached audio, optionally filtered by backend, and returns
// the number of entries removed.
func (d *Dispatcher) ClearCache(backends ...core.BackendID) int {
	return d.audioCache.Clear(backends...)
}

// Backends lists the configured backend IDs.
func (d *Dispatcher) Backends() []core.BackendID {
	ids := make([]core.BackendID, 0, len(d.backends))
	for id := range d.backends {
		ids = append(ids, id)
	}
	return ids
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
