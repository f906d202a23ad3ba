package backend

import (
	"slices"
	"sync"
)

// BackendFactory creates a new backend instance.
type BackendFactory func(opts Options) Backend

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]BackendFactory)
	// Priority order for backend selection (first available wins).
	// Native > Software (Software is the fallback).
	backendPriority = []string{BackendNative, BackendSoftware}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory BackendFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
	Logger().Debug("backend registered", "name", name)
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the sorted names of registered backends.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Get returns a backend instance by name.
// Returns nil if the backend is not registered.
func Get(name string, opts Options) Backend {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()

	if !ok {
		return nil
	}
	return factory(opts)
}

// Default returns the best available backend based on priority.
// Priority order: native > software
// Returns nil if no backends are registered.
func Default(opts Options) Backend {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range backendPriority {
		if factory, ok := backends[name]; ok {
			if b := factory(opts); b != nil {
				return b
			}
		}
	}

	// Fallback: first available in name order
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if b := backends[name](opts); b != nil {
			return b
		}
	}

	return nil
}

// MustDefault returns the default backend or panics.
func MustDefault(opts Options) Backend {
	b := Default(opts)
	if b == nil {
		panic("backend: no backend available")
	}
	return b
}

// InitDefault initializes the best backend that opens successfully, trying
// them in priority order. A GPU backend that fails to open (no adapter, no
// driver) falls through to the next one.
func InitDefault(opts Options) (Backend, error) {
	registryMu.RLock()
	var candidates []BackendFactory
	var names []string
	for _, name := range backendPriority {
		if factory, ok := backends[name]; ok {
			candidates = append(candidates, factory)
			names = append(names, name)
		}
	}
	registryMu.RUnlock()

	var lastErr error
	for i, factory := range candidates {
		b := factory(opts)
		if b == nil {
			continue
		}
		if err := b.Init(); err != nil {
			Logger().Warn("backend init failed, trying next", "name", names[i], "err", err)
			lastErr = err
			continue
		}
		Logger().Info("backend selected", "name", b.Name())
		return b, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrBackendNotAvailable
}

// Open initializes the named backend.
func Open(name string, opts Options) (Backend, error) {
	b := Get(name, opts)
	if b == nil {
		return nil, ErrBackendNotAvailable
	}
	if err := b.Init(); err != nil {
		return nil, err
	}
	Logger().Info("backend opened", "name", name)
	return b, nil
}
