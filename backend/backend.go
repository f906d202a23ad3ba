package backend

import (
	"errors"

	"github.com/gogpu/gorgon/gpucore"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")
)

// Backend name constants.
const (
	// BackendSoftware is the name of the in-memory software backend.
	BackendSoftware = "software"
	// BackendNative is the name of the Pure Go GPU backend (gogpu/wgpu HAL).
	BackendNative = "native"
)

// Options configure a backend before Init.
type Options struct {
	// FeatureLevel is the capability tier the backend reports. Zero selects
	// the backend default.
	FeatureLevel gpucore.FeatureLevel

	// Label is used in native debug names and log records.
	Label string
}

// Backend is a source of native device contexts.
// It abstracts the device implementation, allowing gorgon to run on the
// GPU through gogpu/wgpu or entirely in memory.
//
// Backends must be registered via Register() and are selected via
// Get() or Default().
type Backend interface {
	// Name returns the backend identifier (e.g., "software", "native").
	Name() string

	// Init opens the device. It must be called before Device.
	Init() error

	// Close releases the device and all native objects created through it.
	// The backend should not be used after Close is called.
	Close()

	// Device returns the device context, or nil before Init.
	Device() gpucore.DeviceContext
}
