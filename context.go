package gorgon

import (
	"fmt"

	"github.com/gogpu/gorgon/gpucore"
	"github.com/gogpu/gorgon/internal/cache"
)

// GraphicsContext owns the resources and binding state created over one
// native device context.
//
// A GraphicsContext is not safe for concurrent use. All resources created
// from it share that restriction.
type GraphicsContext struct {
	device gpucore.DeviceContext
	opts   contextOptions

	stages    [gpucore.StageCount]*ShaderStageState
	resources *cache.Cache[uint64, GraphicsResource]
	samplers  *cache.Cache[SamplerDesc, *SamplerState]

	serial uint64
	closed bool
}

// NewGraphicsContext creates a graphics context over device. The device
// remains owned by the caller; Close does not close it.
func NewGraphicsContext(device gpucore.DeviceContext, opts ...ContextOption) (*GraphicsContext, error) {
	if device == nil {
		return nil, fmt.Errorf("%w: nil device context", ErrInvalidArgument)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &GraphicsContext{
		device:    device,
		opts:      o,
		resources: cache.New[uint64, GraphicsResource](),
		samplers:  cache.New[SamplerDesc, *SamplerState](),
	}
	for _, stage := range gpucore.Stages() {
		c.stages[stage] = newShaderStageState(c, stage)
	}
	Logger().Info("gorgon: graphics context created", "label", o.label,
		"featureLevel", device.FeatureLevel(), "validation", o.validate)
	return c, nil
}

// Device returns the native device context.
func (c *GraphicsContext) Device() gpucore.DeviceContext { return c.device }

// FeatureLevel returns the feature level of the device.
func (c *GraphicsContext) FeatureLevel() gpucore.FeatureLevel { return c.device.FeatureLevel() }

// Label returns the context label.
func (c *GraphicsContext) Label() string { return c.opts.label }

// Validating reports whether debug validation is enabled.
func (c *GraphicsContext) Validating() bool { return c.opts.validate }

// Stage returns the binding state of stage, or nil for an unknown stage.
func (c *GraphicsContext) Stage(stage ShaderStage) *ShaderStageState {
	if int(stage) >= gpucore.StageCount {
		return nil
	}
	return c.stages[stage]
}

// VertexShader returns the binding state of the vertex stage.
func (c *GraphicsContext) VertexShader() *ShaderStageState { return c.stages[StageVertex] }

// PixelShader returns the binding state of the pixel stage.
func (c *GraphicsContext) PixelShader() *ShaderStageState { return c.stages[StagePixel] }

// ComputeShader returns the binding state of the compute stage.
func (c *GraphicsContext) ComputeShader() *ShaderStageState { return c.stages[StageCompute] }

// ResourceCount returns the number of live resources.
func (c *GraphicsContext) ResourceCount() int { return c.resources.Len() }

// ReSeat re-applies every binding of item in every stage, after the native
// object behind item has been replaced. It reports whether item was bound.
func (c *GraphicsContext) ReSeat(item GraphicsResource) bool {
	found := false
	for _, s := range c.stages {
		if s.ReSeat(item) {
			found = true
		}
	}
	return found
}

// Unbind clears item from every slot of every stage and returns the number
// of slots cleared. Call it before disposing a resource whose lifetime ends
// while it may still be bound.
func (c *GraphicsContext) Unbind(item GraphicsResource) int {
	return c.unbindAll(item)
}

func (c *GraphicsContext) unbindAll(item any) int {
	n := 0
	for _, s := range c.stages {
		n += s.Unbind(item)
	}
	return n
}

func (c *GraphicsContext) checkOpen() error {
	if c == nil {
		return fmt.Errorf("%w: nil graphics context", ErrInvalidArgument)
	}
	if c.closed {
		return ErrContextClosed
	}
	return nil
}

// checkOwned verifies r is live and belongs to c.
func (c *GraphicsContext) checkOwned(r *resource, op string) error {
	if err := r.checkLive(op); err != nil {
		return err
	}
	if r.ctx != c {
		return fmt.Errorf("%w: %q", ErrContextMismatch, r.name)
	}
	return nil
}

func (c *GraphicsContext) track(r *resource, owner GraphicsResource) {
	c.serial++
	r.serial = c.serial
	c.resources.Set(r.serial, owner)
}

func (c *GraphicsContext) untrack(r *resource) {
	c.resources.Delete(r.serial)
}

// Submit applies the state of call to the device and issues its draw.
//
// Submit requires a pipeline state, an index buffer for indexed kinds and a
// buffer in every vertex-buffer slot up to the highest one used. Stage
// bindings replace the current stage slots; slots the call does not use are
// cleared.
func (c *GraphicsContext) Submit(call *DrawCall) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if call == nil {
		return fmt.Errorf("%w: nil draw call", ErrInvalidArgument)
	}
	s := &call.state
	if err := c.checkDrawResources(s); err != nil {
		return err
	}

	dev := c.device
	dev.SetPipelineState(s.pipeline.handle)
	dev.SetPrimitiveTopology(s.topology)

	if len(s.vertexBuffers) > 0 {
		bindings := make([]gpucore.VertexBufferBinding, len(s.vertexBuffers))
		for i, vb := range s.vertexBuffers {
			bindings[i] = gpucore.VertexBufferBinding{
				Buffer: vb.Buffer.handle,
				Stride: uint32(vb.Stride),
				Offset: uint32(vb.Offset),
			}
		}
		dev.SetVertexBuffers(0, bindings)
	}
	if s.kind.Indexed() {
		dev.SetIndexBuffer(s.indexBuffer.handle, s.indexBuffer.info.IndexFormat, 0)
	}

	for i, st := range c.stages {
		sb := s.stages[i]
		if err := st.ConstantBuffers.assign(sb.constantBuffers); err != nil {
			return err
		}
		if err := st.Samplers.assign(sb.samplers); err != nil {
			return err
		}
		if err := st.ResourceViews.assign(sb.resourceViews); err != nil {
			return err
		}
	}

	if len(s.renderTargets) > 0 {
		ids := make([]gpucore.ViewID, len(s.renderTargets))
		for i, rt := range s.renderTargets {
			if rt != nil {
				ids[i] = rt.handle
			}
		}
		dev.SetRenderTargets(ids)
	}
	if len(s.viewports) > 0 {
		dev.SetViewports(s.viewports)
	}
	if len(s.scissorRects) > 0 {
		dev.SetScissorRects(s.scissorRects)
	}

	var err error
	switch s.kind {
	case DrawVertex:
		err = dev.Draw(uint32(s.vertexCount), uint32(s.vertexStart))
	case DrawIndexed:
		err = dev.DrawIndexed(uint32(s.indexCount), uint32(s.indexStart), int32(s.baseVertex))
	case DrawInstanced:
		err = dev.DrawInstanced(uint32(s.vertexCount), uint32(s.instanceCount), uint32(s.vertexStart), uint32(s.instanceStart))
	case DrawIndexedInstanced:
		err = dev.DrawIndexedInstanced(uint32(s.indexCount), uint32(s.instanceCount), uint32(s.indexStart),
			int32(s.baseVertex), uint32(s.instanceStart))
	default:
		err = fmt.Errorf("%w: draw kind %d", ErrInvalidArgument, s.kind)
	}
	if err != nil {
		return fmt.Errorf("gorgon: submit %s draw: %w", s.kind, err)
	}
	return nil
}

// checkDrawResources confirms the resources a draw needs are present, live
// and owned by c. Submit makes no device call until it passes.
func (c *GraphicsContext) checkDrawResources(s *drawState) error {
	if s.pipeline == nil {
		return fmt.Errorf("%w: no pipeline state", ErrIncompleteDrawCall)
	}
	if s.kind.Indexed() {
		if s.indexBuffer == nil {
			return fmt.Errorf("%w: %s draw without index buffer", ErrIncompleteDrawCall, s.kind)
		}
		if err := c.checkOwned(&s.indexBuffer.resource, "Submit"); err != nil {
			return err
		}
	}
	for i, vb := range s.vertexBuffers {
		if vb.Buffer == nil {
			return fmt.Errorf("%w: vertex buffer slot %d is empty", ErrIncompleteDrawCall, i)
		}
		if err := c.checkOwned(&vb.Buffer.resource, "Submit"); err != nil {
			return err
		}
	}
	for i, st := range c.stages {
		sb := &s.stages[i]
		if err := st.ConstantBuffers.checkAssign(sb.constantBuffers); err != nil {
			return err
		}
		if err := st.Samplers.checkAssign(sb.samplers); err != nil {
			return err
		}
		if err := st.ResourceViews.checkAssign(sb.resourceViews); err != nil {
			return err
		}
	}
	return nil
}

// Close disposes every live resource and marks the context closed. The
// device is not closed. Calling Close again has no effect.
func (c *GraphicsContext) Close() {
	if c.closed {
		return
	}
	for _, r := range c.resources.Drain() {
		r.Dispose()
	}
	c.closed = true
	Logger().Info("gorgon: graphics context closed", "label", c.opts.label)
}

// IsClosed reports whether Close has been called.
func (c *GraphicsContext) IsClosed() bool { return c.closed }
