// Package cache holds synthesized audio keyed by content, so repeated
// narration of the same text skips the synthesis call.
package cache

import (
	"fmt"
	"hash/fnv"
	"sync"

	"storychat/core"
)

// Key addresses one cached clip. Hash covers (text, voiceID); two texts
// colliding on the same FNV hash is accepted, the hash is not cryptographic.
type Key struct {
	Backend core.BackendID
	Hash    uint64
}

// KeyFor derives the cache key for an utterance.
func KeyFor(text, voiceID string, backend core.BackendID) Key {
	h := fnv.New64a()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(voiceID))
	return Key{Backend: backend, Hash: h.Sum64()}
}

func (k Key) String() string {
	return fmt.Sprintf("%s_%016x", k.Backend, k.Hash)
}

// AudioCache is an in-memory content-addressable store of synthesized audio.
// Entries are never mutated and never expire; the only eviction is an
// explicit Clear. Unbounded growth is accepted behavior.
type AudioCache struct {
	mu      sync.RWMutex
	entries map[Key]*core.AudioClip
}

func New() *AudioCache {
	return &AudioCache{
		entries: make(map[Key]*core.AudioClip),
	}
}

// Get returns the cached clip for (text, voiceID, backend), or nil on miss.
func (c *AudioCache) Get(text, voiceID string, backend core.BackendID) *core.AudioClip {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[KeyFor(text, voiceID, backend)]
}

// Put stores a clip. Overwriting an existing entry is an idempotent no-op
// from the caller's point of view.
func (c *AudioCache) Put(text, voiceID string, backend core.BackendID, clip *core.AudioClip) {
	if clip == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[KeyFor(text, voiceID, backend)] = clip
}

// Len reports the number of cached entries.
func (c *AudioCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes entries for the given backends and returns the count removed.
// With no filter it empties the whole cache.
func (c *AudioCache) Clear(backends ...core.BackendID) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(backends) == 0 {
		removed := len(c.entries)
		c.entries = make(map[Key]*core.AudioClip)
		return removed
	}

	removed := 0
	for key := range c.entries {
		for _, b := range backends {
			if key.Backend == b {
				delete(c.entries, key)
				removed++
				break
			}
		}
	}
	return removed
}
