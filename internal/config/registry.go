package config

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cliniscribe/cliniscribe/internal/cache"
	"github.com/cliniscribe/cliniscribe/pkg/llm"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions. It decouples
// config parsing from provider packages: the owning application registers the
// factories it links, the registry instantiates them from config entries.
// Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	llm    map[string]func(ProviderEntry) (llm.Provider, error)
	caches map[CacheBackend]func(context.Context, ResultCacheConfig) (cache.Cache, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		llm:    make(map[string]func(ProviderEntry) (llm.Provider, error)),
		caches: make(map[CacheBackend]func(context.Context, ResultCacheConfig) (cache.Cache, error)),
	}
}

// RegisterLLM registers an LLM provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterLLM(name string, factory func(ProviderEntry) (llm.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[name] = factory
}

// RegisterCache registers a result-cache factory under backend.
func (r *Registry) RegisterCache(backend CacheBackend, factory func(context.Context, ResultCacheConfig) (cache.Cache, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caches[backend] = factory
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

// CreateCache instantiates the configured result cache. An empty backend
// defaults to [CacheMemory]; [CacheNone] yields a nil cache without
// consulting any factory.
func (r *Registry) CreateCache(ctx context.Context, cfg ResultCacheConfig) (cache.Cache, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = CacheMemory
	}
	if backend == CacheNone {
		return nil, nil
	}

	r.mu.RLock()
	factory, ok := r.caches[backend]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: cache/%q", ErrProviderNotRegistered, backend)
	}
	return factory(ctx, cfg)
}
