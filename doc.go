// Package gorgon provides the GPU buffer, view and binding-state layer of a
// Direct3D-11-style renderer.
//
// # Overview
//
// gorgon sits between rendering code and a native device context
// ([gpucore.DeviceContext]). It owns buffer lifecycles, hides whether a
// transfer is a direct update, a map/unmap or a staging round-trip, caches
// shader-resource and unordered-access views per buffer, and keeps a shadow
// copy of the per-stage binding slots so that redundant native calls are
// skipped and illegal double bindings are caught.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/gorgon"
//	    "github.com/gogpu/gorgon/backend/software"
//	)
//
//	gc, err := gorgon.NewGraphicsContext(software.New())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gc.Close()
//
//	vb, err := gorgon.NewVertexBuffer(gc, 1024, gorgon.UsageDynamic)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = gorgon.SetData(vb, vertices, 0, len(vertices), 0, gorgon.CopyModeDiscard)
//
// # Buffers
//
// Buffers come in a closed set of kinds: vertex, index, constant,
// structured, raw and generic. Each kind validates its own descriptor and
// knows how to produce a staging copy for CPU read-back. Data moves through
// the generic functions [SetData], [GetData] and [ReadAll], or the byte-level
// [Buffer.SetBytes] and [Buffer.GetBytes]. [Buffer.CopyTo] copies between
// buffers of the same context, clipping partial copies to both extents.
//
// # Binding State
//
// Every [GraphicsContext] owns one [ShaderStageState] per shader stage. Each
// holds [BindingList] values for constant buffers, samplers and resource
// views. A resource occupies at most one slot within a list. Slot counts
// follow the device feature level, so on low feature levels some lists are
// empty and every operation on them is a no-op.
//
// # Draw Calls
//
// [DrawCallBuilder] accumulates state into a working copy and [DrawCallBuilder.Build]
// deep-copies it into an immutable [DrawCall], which [GraphicsContext.Submit]
// applies to the device.
//
// # Thread Safety
//
// A GraphicsContext and everything created from it belongs to one goroutine.
// There is no internal locking.
//
// # Logging
//
// gorgon is silent by default. Call [SetLogger] to receive lifecycle and
// transfer-path diagnostics through log/slog.
package gorgon
