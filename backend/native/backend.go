// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package native

import (
	"fmt"
	"sync"

	"github.com/gogpu/gorgon/backend"
	"github.com/gogpu/gorgon/gpucore"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan" // registers the Vulkan HAL backend
)

func init() {
	backend.Register(backend.BackendNative, func(opts backend.Options) backend.Backend {
		return NewBackend(opts)
	})
}

// Backend opens a standalone Vulkan device through the HAL.
//
// Thread Safety: Backend is safe for concurrent use.
type Backend struct {
	mu      sync.RWMutex
	opts    backend.Options
	device  *Device
	adapter string
}

// NewBackend creates an uninitialized native backend.
func NewBackend(opts backend.Options) *Backend {
	return &Backend{opts: opts}
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return backend.BackendNative }

// Init opens the first discrete or integrated GPU, falling back to the first
// adapter. Calling Init again has no effect.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device != nil {
		return nil
	}
	dev, adapter, err := openVulkan(b.opts)
	if err != nil {
		return err
	}
	b.device = dev
	b.adapter = adapter
	backend.Logger().Info("native: backend initialized", "adapter", adapter, "featureLevel", dev.FeatureLevel())
	return nil
}

// Close releases the device and the HAL instance.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device != nil {
		b.device.Close()
		b.device = nil
	}
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

// NativeDevice returns the concrete device, or nil before Init.
func (b *Backend) NativeDevice() *Device {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.device
}

// AdapterName returns the name of the opened adapter.
func (b *Backend) AdapterName() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.adapter
}

func deviceOptions(opts backend.Options, extra ...Option) []Option {
	return append([]Option{WithFeatureLevel(opts.FeatureLevel), WithLabel(opts.Label)}, extra...)
}

func openVulkan(opts backend.Options) (*Device, string, error) {
	api, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, "", fmt.Errorf("%w: vulkan backend not available", backend.ErrBackendNotAvailable)
	}
	instance, err := api.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, "", fmt.Errorf("native: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, "", ErrNoGPU
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, "", fmt.Errorf("native: open device: %w", err)
	}
	release := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	dev, err := New(openDev.Device, openDev.Queue, deviceOptions(opts, withRelease(release))...)
	if err != nil {
		release()
		return nil, "", err
	}
	return dev, selected.Info.Name, nil
}

// FromProvider wraps the HAL device shared by a gpucontext provider, such
// as a gogpu application. The provider keeps ownership of the device.
func FromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	if provider == nil {
		return nil, fmt.Errorf("%w: nil provider", ErrNoProvider)
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoProvider)
	}
	return New(device, queue, opts...)
}
