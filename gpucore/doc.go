// Package gpucore defines the native device-context boundary used by gorgon.
//
// The core buffer, view and binding layer never talks to a graphics API
// directly. Instead it drives a [DeviceContext], an opaque, handle-based
// interface modelled on an immediate device context: buffers are created
// from [BufferDesc] values, updated in place or through Map/Unmap, copied
// with whole-resource or region copies, and bound to fixed slots of each
// shader stage.
//
// # Architecture
//
//	               +------------------+
//	               |      gorgon      |
//	               | (buffers, views, |
//	               |  binding state)  |
//	               +--------+---------+
//	                        |
//	               gpucore.DeviceContext
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	|    software     |          |     native      |
//	| (CPU emulation) |          |  (hal.Device)   |
//	+-----------------+          +--------+--------+
//	                                      |
//	                             +--------v--------+
//	                             |   gogpu/wgpu    |
//	                             +-----------------+
//
// # Resource Management
//
// Native resources are identified by opaque IDs ([BufferID], [ViewID],
// [SamplerID], [PipelineStateID]). Implementations keep the mapping between
// IDs and backend objects. [InvalidID] is never handed out and stands for
// "nothing bound" in binding calls.
//
// # Feature Levels
//
// [FeatureLevel] describes the capability tier of the device. Slot counts per
// shader stage depend on it; see [FeatureLevel.Limits].
package gpucore
