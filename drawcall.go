package gorgon

import (
	"fmt"
	"image"
	"slices"

	"github.com/gogpu/gorgon/gpucore"
	"github.com/gogpu/gputypes"
)

// Viewport maps normalized device coordinates to render-target pixels.
type Viewport = gpucore.Viewport

// DrawKind selects the native draw command of a DrawCall.
type DrawKind uint8

// Draw kinds.
const (
	DrawVertex DrawKind = iota
	DrawIndexed
	DrawInstanced
	DrawIndexedInstanced
)

// String returns the string representation of DrawKind.
func (k DrawKind) String() string {
	switch k {
	case DrawVertex:
		return "Vertex"
	case DrawIndexed:
		return "Indexed"
	case DrawInstanced:
		return "Instanced"
	case DrawIndexedInstanced:
		return "IndexedInstanced"
	default:
		return fmt.Sprintf("DrawKind(%d)", int(k))
	}
}

// Indexed reports whether the kind reads an index buffer.
func (k DrawKind) Indexed() bool { return k == DrawIndexed || k == DrawIndexedInstanced }

// Instanced reports whether the kind draws instances.
func (k DrawKind) Instanced() bool { return k == DrawInstanced || k == DrawIndexedInstanced }

// Slot counts of the draw-call state outside the shader stages.
const (
	MaxVertexBufferSlots = 32
	MaxRenderTargets     = 8
	MaxViewports         = 16
)

// VertexBufferBinding attaches a vertex buffer to an input slot.
type VertexBufferBinding struct {
	Buffer *Buffer
	Stride int
	Offset int
}

// stageBindings holds the per-slot resources of one shader stage.
type stageBindings struct {
	constantBuffers []*Buffer
	samplers        []*SamplerState
	resourceViews   []*ShaderResourceView
}

func (s stageBindings) clone() stageBindings {
	return stageBindings{
		constantBuffers: slices.Clone(s.constantBuffers),
		samplers:        slices.Clone(s.samplers),
		resourceViews:   slices.Clone(s.resourceViews),
	}
}

// drawState is the full state of a draw call. The builder mutates one; a
// DrawCall holds a private deep copy.
type drawState struct {
	kind          DrawKind
	vertexStart   int
	vertexCount   int
	indexStart    int
	indexCount    int
	baseVertex    int
	instanceStart int
	instanceCount int

	vertexBuffers []VertexBufferBinding
	indexBuffer   *Buffer
	stages        [gpucore.StageCount]stageBindings
	renderTargets []*RenderTargetView
	viewports     []Viewport
	scissorRects  []image.Rectangle
	pipeline      *PipelineState
	topology      gputypes.PrimitiveTopology
}

func (s *drawState) clone() drawState {
	out := *s
	out.vertexBuffers = slices.Clone(s.vertexBuffers)
	for i := range s.stages {
		out.stages[i] = s.stages[i].clone()
	}
	out.renderTargets = slices.Clone(s.renderTargets)
	out.viewports = slices.Clone(s.viewports)
	out.scissorRects = slices.Clone(s.scissorRects)
	return out
}

// DrawCall is an immutable snapshot of the state and ranges of one draw.
// Create it with DrawCallBuilder and issue it with GraphicsContext.Submit.
// Accessors return copies.
type DrawCall struct {
	state drawState
}

// Kind returns the draw kind.
func (d *DrawCall) Kind() DrawKind { return d.state.kind }

// VertexStart returns the first vertex of non-indexed draws.
func (d *DrawCall) VertexStart() int { return d.state.vertexStart }

// VertexCount returns the vertex count (per instance) of non-indexed draws.
func (d *DrawCall) VertexCount() int { return d.state.vertexCount }

// IndexStart returns the first index of indexed draws.
func (d *DrawCall) IndexStart() int { return d.state.indexStart }

// IndexCountPerInstance returns the index count (per instance) of indexed
// draws.
func (d *DrawCall) IndexCountPerInstance() int { return d.state.indexCount }

// BaseVertex returns the value added to each index.
func (d *DrawCall) BaseVertex() int { return d.state.baseVertex }

// InstanceStart returns the first instance of instanced draws.
func (d *DrawCall) InstanceStart() int { return d.state.instanceStart }

// InstanceCount returns the instance count of instanced draws.
func (d *DrawCall) InstanceCount() int { return d.state.instanceCount }

// VertexBuffers returns the vertex buffer bindings by slot.
func (d *DrawCall) VertexBuffers() []VertexBufferBinding { return slices.Clone(d.state.vertexBuffers) }

// IndexBuffer returns the index buffer, or nil.
func (d *DrawCall) IndexBuffer() *Buffer { return d.state.indexBuffer }

// ConstantBuffers returns the constant buffers of stage by slot.
func (d *DrawCall) ConstantBuffers(stage ShaderStage) []*Buffer {
	if int(stage) >= gpucore.StageCount {
		return nil
	}
	return slices.Clone(d.state.stages[stage].constantBuffers)
}

// Samplers returns the samplers of stage by slot.
func (d *DrawCall) Samplers(stage ShaderStage) []*SamplerState {
	if int(stage) >= gpucore.StageCount {
		return nil
	}
	return slices.Clone(d.state.stages[stage].samplers)
}

// ShaderResources returns the shader-resource views of stage by slot.
func (d *DrawCall) ShaderResources(stage ShaderStage) []*ShaderResourceView {
	if int(stage) >= gpucore.StageCount {
		return nil
	}
	return slices.Clone(d.state.stages[stage].resourceViews)
}

// RenderTargets returns the render targets by slot.
func (d *DrawCall) RenderTargets() []*RenderTargetView { return slices.Clone(d.state.renderTargets) }

// Viewports returns the viewports by slot.
func (d *DrawCall) Viewports() []Viewport { return slices.Clone(d.state.viewports) }

// ScissorRects returns the scissor rectangles by slot.
func (d *DrawCall) ScissorRects() []image.Rectangle { return slices.Clone(d.state.scissorRects) }

// PipelineState returns the pipeline state, or nil.
func (d *DrawCall) PipelineState() *PipelineState { return d.state.pipeline }

// Topology returns the primitive topology.
func (d *DrawCall) Topology() gputypes.PrimitiveTopology { return d.state.topology }
