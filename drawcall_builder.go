package gorgon

import (
	"fmt"
	"image"

	"github.com/gogpu/gorgon/gpucore"
	"github.com/gogpu/gputypes"
)

// DrawCallBuilder accumulates draw state in a working copy and emits
// immutable DrawCall snapshots. All setters return the builder for chaining.
//
// The first invalid argument is remembered and returned by Build; later
// setters are ignored until ResetTo or Clear.
//
//	call, err := gorgon.NewDrawCallBuilder(gorgon.DrawIndexed).
//	    VertexBuffer(0, gorgon.VertexBufferBinding{Buffer: vb, Stride: 16}).
//	    IndexBuffer(ib).
//	    IndexRange(0, 6).
//	    ConstantBuffer(gorgon.StageVertex, 0, cb).
//	    PipelineState(pso).
//	    Build()
type DrawCallBuilder struct {
	work drawState
	err  error
}

// NewDrawCallBuilder returns a builder for draws of kind.
func NewDrawCallBuilder(kind DrawKind) *DrawCallBuilder {
	b := &DrawCallBuilder{}
	b.work = emptyDrawState(kind)
	return b
}

func emptyDrawState(kind DrawKind) drawState {
	return drawState{
		kind:          kind,
		instanceCount: 1,
		topology:      gputypes.PrimitiveTopologyTriangleList,
	}
}

// Err returns the first recorded error.
func (b *DrawCallBuilder) Err() error { return b.err }

// fail records err if none is recorded yet.
func (b *DrawCallBuilder) fail(format string, args ...any) *DrawCallBuilder {
	if b.err == nil {
		b.err = fmt.Errorf(format, args...)
	}
	return b
}

func (b *DrawCallBuilder) checkRange(what string, start, count int) bool {
	if start < 0 || count < 1 {
		b.fail("%w: %s range start %d count %d", ErrOutOfRange, what, start, count)
		return false
	}
	return true
}

func (b *DrawCallBuilder) checkSlot(what string, slot, limit int) bool {
	if slot < 0 || slot >= limit {
		b.fail("%w: %s slot %d of %d", ErrOutOfRange, what, slot, limit)
		return false
	}
	return true
}

func (b *DrawCallBuilder) checkStage(stage ShaderStage) bool {
	if int(stage) >= gpucore.StageCount {
		b.fail("%w: shader stage %d", ErrInvalidArgument, stage)
		return false
	}
	return true
}

// setSlot stores item at slot, growing s with zero values as needed.
func setSlot[T any](s []T, slot int, item T) []T {
	for len(s) <= slot {
		var zero T
		s = append(s, zero)
	}
	s[slot] = item
	return s
}

// Kind sets the draw kind.
func (b *DrawCallBuilder) Kind(kind DrawKind) *DrawCallBuilder {
	if b.err != nil {
		return b
	}
	if kind > DrawIndexedInstanced {
		return b.fail("%w: draw kind %d", ErrInvalidArgument, kind)
	}
	b.work.kind = kind
	return b
}

// VertexRange sets the first vertex and vertex count of non-indexed draws.
func (b *DrawCallBuilder) VertexRange(start, count int) *DrawCallBuilder {
	if b.err != nil || !b.checkRange("vertex", start, count) {
		return b
	}
	b.work.vertexStart, b.work.vertexCount = start, count
	return b
}

// IndexRange sets the first index and index count of indexed draws. It
// fails if start < 0 or count < 1.
func (b *DrawCallBuilder) IndexRange(start, count int) *DrawCallBuilder {
	if b.err != nil || !b.checkRange("index", start, count) {
		return b
	}
	b.work.indexStart, b.work.indexCount = start, count
	return b
}

// BaseVertex sets the value added to each index before reading a vertex.
func (b *DrawCallBuilder) BaseVertex(v int) *DrawCallBuilder {
	if b.err != nil {
		return b
	}
	b.work.baseVertex = v
	return b
}

// InstanceRange sets the first instance and instance count. It fails if
// start < 0 or count < 1.
func (b *DrawCallBuilder) InstanceRange(start, count int) *DrawCallBuilder {
	if b.err != nil || !b.checkRange("instance", start, count) {
		return b
	}
	b.work.instanceStart, b.work.instanceCount = start, count
	return b
}

// VertexBuffer binds a vertex buffer to an input slot.
func (b *DrawCallBuilder) VertexBuffer(slot int, binding VertexBufferBinding) *DrawCallBuilder {
	if b.err != nil || !b.checkSlot("vertex buffer", slot, MaxVertexBufferSlots) {
		return b
	}
	if buf := binding.Buffer; buf != nil && !buf.info.Binding.Has(BindVertex) {
		return b.fail("%w: %q is not a vertex buffer", ErrInvalidBinding, buf.info.Name)
	}
	if binding.Stride < 0 || binding.Offset < 0 {
		return b.fail("%w: vertex binding stride %d offset %d", ErrOutOfRange, binding.Stride, binding.Offset)
	}
	b.work.vertexBuffers = setSlot(b.work.vertexBuffers, slot, binding)
	return b
}

// IndexBuffer sets the index buffer. nil clears it.
func (b *DrawCallBuilder) IndexBuffer(buf *Buffer) *DrawCallBuilder {
	if b.err != nil {
		return b
	}
	if buf != nil && !buf.info.Binding.Has(BindIndex) {
		return b.fail("%w: %q is not an index buffer", ErrInvalidBinding, buf.info.Name)
	}
	b.work.indexBuffer = buf
	return b
}

// ConstantBuffer binds a constant buffer to a slot of stage.
func (b *DrawCallBuilder) ConstantBuffer(stage ShaderStage, slot int, buf *Buffer) *DrawCallBuilder {
	if b.err != nil || !b.checkStage(stage) || !b.checkSlot("constant buffer", slot, gpucore.MaxConstantBufferSlots) {
		return b
	}
	if buf != nil && !buf.info.Binding.Has(BindConstant) {
		return b.fail("%w: %q is not a constant buffer", ErrInvalidBinding, buf.info.Name)
	}
	st := &b.work.stages[stage]
	st.constantBuffers = setSlot(st.constantBuffers, slot, buf)
	return b
}

// Sampler binds a sampler state to a slot of stage.
func (b *DrawCallBuilder) Sampler(stage ShaderStage, slot int, s *SamplerState) *DrawCallBuilder {
	if b.err != nil || !b.checkStage(stage) || !b.checkSlot("sampler", slot, gpucore.MaxSamplerSlots) {
		return b
	}
	st := &b.work.stages[stage]
	st.samplers = setSlot(st.samplers, slot, s)
	return b
}

// ShaderResource binds a shader-resource view to a slot of stage.
func (b *DrawCallBuilder) ShaderResource(stage ShaderStage, slot int, v *ShaderResourceView) *DrawCallBuilder {
	if b.err != nil || !b.checkStage(stage) || !b.checkSlot("resource view", slot, gpucore.MaxResourceViewSlots) {
		return b
	}
	st := &b.work.stages[stage]
	st.resourceViews = setSlot(st.resourceViews, slot, v)
	return b
}

// RenderTarget binds a render-target view to an output slot.
func (b *DrawCallBuilder) RenderTarget(slot int, rtv *RenderTargetView) *DrawCallBuilder {
	if b.err != nil || !b.checkSlot("render target", slot, MaxRenderTargets) {
		return b
	}
	b.work.renderTargets = setSlot(b.work.renderTargets, slot, rtv)
	return b
}

// Viewport sets a viewport.
func (b *DrawCallBuilder) Viewport(slot int, vp Viewport) *DrawCallBuilder {
	if b.err != nil || !b.checkSlot("viewport", slot, MaxViewports) {
		return b
	}
	if err := vp.Validate(); err != nil {
		return b.fail("%w: %w", ErrInvalidArgument, err)
	}
	b.work.viewports = setSlot(b.work.viewports, slot, vp)
	return b
}

// ScissorRect sets a scissor rectangle.
func (b *DrawCallBuilder) ScissorRect(slot int, r image.Rectangle) *DrawCallBuilder {
	if b.err != nil || !b.checkSlot("scissor rect", slot, MaxViewports) {
		return b
	}
	if r.Dx() < 0 || r.Dy() < 0 {
		return b.fail("%w: scissor rect %v", ErrInvalidArgument, r)
	}
	b.work.scissorRects = setSlot(b.work.scissorRects, slot, r.Canon())
	return b
}

// PipelineState sets the pipeline state object.
func (b *DrawCallBuilder) PipelineState(p *PipelineState) *DrawCallBuilder {
	if b.err != nil {
		return b
	}
	b.work.pipeline = p
	return b
}

// Topology sets the primitive topology. The default is a triangle list.
func (b *DrawCallBuilder) Topology(t gputypes.PrimitiveTopology) *DrawCallBuilder {
	if b.err != nil {
		return b
	}
	b.work.topology = t
	return b
}

// Build returns a new DrawCall holding a deep copy of the working state.
// Later changes to the builder do not affect the result.
func (b *DrawCallBuilder) Build() (*DrawCall, error) {
	if b.err != nil {
		return nil, b.err
	}
	w := &b.work
	if w.kind.Indexed() {
		if w.indexCount < 1 {
			return nil, fmt.Errorf("%w: %s draw without index range", ErrIncompleteDrawCall, w.kind)
		}
	} else if w.vertexCount < 1 {
		return nil, fmt.Errorf("%w: %s draw without vertex range", ErrIncompleteDrawCall, w.kind)
	}
	return &DrawCall{state: w.clone()}, nil
}

// ResetTo loads a copy of call into the working state and clears any
// recorded error. A nil call behaves like Clear.
func (b *DrawCallBuilder) ResetTo(call *DrawCall) *DrawCallBuilder {
	if call == nil {
		return b.Clear()
	}
	b.work = call.state.clone()
	b.err = nil
	return b
}

// Clear empties the working state, keeping the draw kind, and clears any
// recorded error.
func (b *DrawCallBuilder) Clear() *DrawCallBuilder {
	b.work = emptyDrawState(b.work.kind)
	b.err = nil
	return b
}
