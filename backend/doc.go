// Package backend provides a pluggable device backend abstraction.
//
// A backend opens a native device and exposes it as a
// [gpucore.DeviceContext], which gorgon.NewGraphicsContext drives. Two
// backends ship with gorgon:
//
//   - "software": in-memory buffers and a call recorder, always available
//   - "native": GPU device through gogpu/wgpu HAL (Vulkan)
//
// # Backend Registration
//
// Backends are registered via init() functions in their packages and
// selected at runtime:
//
//	import (
//		_ "github.com/gogpu/gorgon/backend/native"
//		_ "github.com/gogpu/gorgon/backend/software"
//	)
//
// # Backend Selection
//
// Use InitDefault to open the best backend that works on this machine, or
// Open to request one by name:
//
//	b, err := backend.InitDefault(backend.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
//	gc, err := gorgon.NewGraphicsContext(b.Device())
//
// InitDefault tries native first and falls back to software when no GPU
// adapter can be opened.
package backend
