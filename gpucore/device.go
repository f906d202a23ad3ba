package gpucore

import (
	"image"

	"github.com/gogpu/gputypes"
)

// DeviceContext is the native immediate device context driven by gorgon.
//
// All methods are called from the goroutine that owns the graphics context.
// Implementations that may be shared across contexts must do their own
// locking.
type DeviceContext interface {
	// FeatureLevel reports the capability tier of the device.
	FeatureLevel() FeatureLevel

	// Buffer lifecycle

	// CreateBuffer allocates a native buffer. InitialData, if set, must not
	// exceed Size.
	CreateBuffer(desc *BufferDesc) (BufferID, error)

	// DestroyBuffer releases a native buffer. Unknown IDs are ignored.
	DestroyBuffer(id BufferID)

	// UpdateSubresource writes data at byte offset into a GPU-only buffer.
	UpdateSubresource(id BufferID, offset uint64, data []byte) error

	// Map exposes the buffer memory to the CPU. The returned slice is only
	// valid until Unmap.
	Map(id BufferID, mode MapMode) ([]byte, error)

	// Unmap ends a Map.
	Unmap(id BufferID)

	// CopyResource copies the whole of src into dst. Sizes must match.
	CopyResource(dst, src BufferID) error

	// CopySubresourceRegion copies size bytes from src at srcOffset into dst
	// at dstOffset.
	CopySubresourceRegion(dst BufferID, dstOffset uint64, src BufferID, srcOffset, size uint64, flags CopyFlags) error

	// Views and samplers

	CreateView(desc *ViewDesc) (ViewID, error)
	DestroyView(id ViewID)
	CreateSampler(desc *SamplerDesc) (SamplerID, error)
	DestroySampler(id SamplerID)

	// Per-stage binding. A slice element equal to InvalidID unbinds its slot.

	SetConstantBuffers(stage ShaderStage, start int, buffers []BufferID)
	SetSamplers(stage ShaderStage, start int, samplers []SamplerID)
	SetShaderResources(stage ShaderStage, start int, views []ViewID)

	// Input assembler and output merger

	SetVertexBuffers(start int, bindings []VertexBufferBinding)
	SetIndexBuffer(id BufferID, format gputypes.IndexFormat, offset uint32)
	SetPipelineState(id PipelineStateID)
	SetPrimitiveTopology(topology gputypes.PrimitiveTopology)
	SetRenderTargets(views []ViewID)
	SetViewports(viewports []Viewport)
	SetScissorRects(rects []image.Rectangle)

	// Draws

	Draw(vertexCount, startVertex uint32) error
	DrawIndexed(indexCount, startIndex uint32, baseVertex int32) error
	DrawInstanced(vertexCountPerInstance, instanceCount, startVertex, startInstance uint32) error
	DrawIndexedInstanced(indexCountPerInstance, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) error

	// Close releases every native object owned by the context.
	Close()
}
