package software

import (
	"sync"

	"github.com/gogpu/gorgon/backend"
	"github.com/gogpu/gorgon/gpucore"
)

// Backend is the software backend. It implements backend.Backend and never
// fails to initialize.
//
// Backend is safe for concurrent use from multiple goroutines.
type Backend struct {
	mu     sync.RWMutex
	opts   backend.Options
	device *Device
}

// NewBackend creates a software backend. It must be initialized with Init
// before use.
func NewBackend(opts backend.Options) *Backend {
	return &Backend{opts: opts}
}

// Name returns the backend identifier.
func (b *Backend) Name() string {
	return backend.BackendSoftware
}

// Init creates the in-memory device. Calling Init twice is a no-op.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device != nil {
		return nil
	}
	b.device = New(WithFeatureLevel(b.opts.FeatureLevel), WithLabel(b.opts.Label))
	backend.Logger().Info("software: backend initialized", "featureLevel", b.device.FeatureLevel())
	return nil
}

// Close releases the device.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device == nil {
		return
	}
	b.device.Close()
	b.device = nil
}

// Device returns the device context, or nil before Init.
func (b *Backend) Device() gpucore.DeviceContext {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.device == nil {
		return nil
	}
	return b.device
}

// SoftwareDevice returns the concrete device for recorder access, or nil
// before Init.
func (b *Backend) SoftwareDevice() *Device {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.device
}

// init registers the software backend on package import.
//
//	import _ "github.com/gogpu/gorgon/backend/software"
func init() {
	backend.Register(backend.BackendSoftware, func(opts backend.Options) backend.Backend {
		return NewBackend(opts)
	})
}
