package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/readalong/readalong/pkg/provider/phonemes"
	"github.com/readalong/readalong/pkg/provider/storygen"
	"github.com/readalong/readalong/pkg/provider/stt"
	"github.com/readalong/readalong/pkg/provider/tts"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	tts      map[string]func(ProviderEntry) (tts.Provider, error)
	stt      map[string]func(ProviderEntry) (stt.Provider, error)
	phonemes map[string]func(ProviderEntry) (phonemes.Provider, error)
	storygen map[string]func(ProviderEntry) (storygen.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		tts:      make(map[string]func(ProviderEntry) (tts.Provider, error)),
		stt:      make(map[string]func(ProviderEntry) (stt.Provider, error)),
		phonemes: make(map[string]func(ProviderEntry) (phonemes.Provider, error)),
		storygen: make(map[string]func(ProviderEntry) (storygen.Provider, error)),
	}
}

// RegisterTTS registers a TTS provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterTTS(name string, factory func(ProviderEntry) (tts.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// RegisterSTT registers an STT provider factory under name.
func (r *Registry) RegisterSTT(name string, factory func(ProviderEntry) (stt.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterPhonemes registers a phonemes provider factory under name.
func (r *Registry) RegisterPhonemes(name string, factory func(ProviderEntry) (phonemes.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phonemes[name] = factory
}

// RegisterStoryGen registers a story generation provider factory under name.
func (r *Registry) RegisterStoryGen(name string, factory func(ProviderEntry) (storygen.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storygen[name] = factory
}

// CreateTTS instantiates a TTS provider using the factory registered under
// entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Provider, error) {
	r.mu.RLock()
	factory, ok := r.tts[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateSTT instantiates an STT provider using the factory registered under entry.Name.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Provider, error) {
	r.mu.RLock()
	factory, ok := r.stt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreatePhonemes instantiates a phonemes provider using the factory registered under entry.Name.
func (r *Registry) CreatePhonemes(entry ProviderEntry) (phonemes.Provider, error) {
	r.mu.RLock()
	factory, ok := r.phonemes[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: phonemes/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateStoryGen instantiates a story generator using the factory registered under entry.Name.
func (r *Registry) CreateStoryGen(entry ProviderEntry) (storygen.Provider, error) {
	r.mu.RLock()
	factory, ok := r.storygen[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: storygen/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
