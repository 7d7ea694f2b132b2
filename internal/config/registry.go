package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/airwavefm/aidj/pkg/provider/embeddings"
	"github.com/airwavefm/aidj/pkg/provider/fetcher"
	"github.com/airwavefm/aidj/pkg/provider/llm"
	"github.com/airwavefm/aidj/pkg/provider/metadata"
	"github.com/airwavefm/aidj/pkg/provider/tts"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// capability. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	llm        map[string]func(ProviderEntry) (llm.Provider, error)
	tts        map[string]func(ProviderEntry) (tts.Provider, error)
	metadata   map[string]func(ProviderEntry) (metadata.Provider, error)
	fetcher    map[string]func(ProviderEntry) (fetcher.Provider, error)
	embeddings map[string]func(ProviderEntry) (embeddings.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		llm:        make(map[string]func(ProviderEntry) (llm.Provider, error)),
		tts:        make(map[string]func(ProviderEntry) (tts.Provider, error)),
		metadata:   make(map[string]func(ProviderEntry) (metadata.Provider, error)),
		fetcher:    make(map[string]func(ProviderEntry) (fetcher.Provider, error)),
		embeddings: make(map[string]func(ProviderEntry) (embeddings.Provider, error)),
	}
}

// RegisterLLM registers an LLM provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterLLM(name string, factory func(ProviderEntry) (llm.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[name] = factory
}

// RegisterTTS registers a TTS provider factory under name.
func (r *Registry) RegisterTTS(name string, factory func(ProviderEntry) (tts.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// RegisterMetadata registers a metadata provider factory under name.
func (r *Registry) RegisterMetadata(name string, factory func(ProviderEntry) (metadata.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metadata[name] = factory
}

// RegisterFetcher registers a track-fetcher provider factory under name.
func (r *Registry) RegisterFetcher(name string, factory func(ProviderEntry) (fetcher.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetcher[name] = factory
}

// RegisterEmbeddings registers an embeddings provider factory under name.
func (r *Registry) RegisterEmbeddings(name string, factory func(ProviderEntry) (embeddings.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embeddings[name] = factory
}

// CreateLLM instantiates an LLM provider using the factory registered under entry.Name.
// Returns [ErrProviderNotRegistered] if no factory has been registered for that name.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	r.mu.RLock()
	factory, ok := r.llm[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: llm/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTTS instantiates a TTS provider using the factory registered under entry.Name.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Provider, error) {
	r.mu.RLock()
	factory, ok := r.tts[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateMetadata instantiates a metadata provider using the factory registered under entry.Name.
func (r *Registry) CreateMetadata(entry ProviderEntry) (metadata.Provider, error) {
	r.mu.RLock()
	factory, ok := r.metadata[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: metadata/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateFetcher instantiates a track-fetcher provider using the factory registered under entry.Name.
func (r *Registry) CreateFetcher(entry ProviderEntry) (fetcher.Provider, error) {
	r.mu.RLock()
	factory, ok := r.fetcher[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: fetcher/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateEmbeddings instantiates an embeddings provider using the factory registered under entry.Name.
func (r *Registry) CreateEmbeddings(entry ProviderEntry) (embeddings.Provider, error) {
	r.mu.RLock()
	factory, ok := r.embeddings[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: embeddings/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
