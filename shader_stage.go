package gorgon

import (
	"fmt"

	"github.com/gogpu/gorgon/gpucore"
)

// ShaderStage identifies one programmable stage of the pipeline.
type ShaderStage = gpucore.ShaderStage

// Shader stages.
const (
	StageVertex   = gpucore.StageVertex
	StagePixel    = gpucore.StagePixel
	StageGeometry = gpucore.StageGeometry
	StageHull     = gpucore.StageHull
	StageDomain   = gpucore.StageDomain
	StageCompute  = gpucore.StageCompute
)

// ShaderStageState holds the binding slots of one shader stage. It is owned
// by a GraphicsContext for the context's lifetime and mutated in place.
type ShaderStageState struct {
	stage ShaderStage

	// ConstantBuffers accepts only buffers created with the constant binding.
	ConstantBuffers *BindingList[*Buffer]

	// Samplers holds sampler states.
	Samplers *BindingList[*SamplerState]

	// ResourceViews holds shader-resource views.
	ResourceViews *BindingList[*ShaderResourceView]
}

// newShaderStageState sizes the lists from the feature-level limits of stage
// and wires them to the device.
func newShaderStageState(c *GraphicsContext, stage ShaderStage) *ShaderStageState {
	limits := c.device.FeatureLevel().Limits(stage)
	dev := c.device
	validate := c.opts.validate

	s := &ShaderStageState{stage: stage}
	s.ConstantBuffers = newBindingList(stage, "constant buffer", limits.ConstantBuffers, validate,
		func(start int, items []*Buffer) {
			ids := make([]gpucore.BufferID, len(items))
			for i, b := range items {
				if b != nil {
					ids[i] = b.handle
				}
			}
			dev.SetConstantBuffers(stage, start, ids)
		},
		func(b *Buffer) error {
			if err := c.checkOwned(&b.resource, "bind"); err != nil {
				return err
			}
			if !b.info.Binding.Has(BindConstant) {
				return fmt.Errorf("%w: %q is not a constant buffer", ErrInvalidBinding, b.info.Name)
			}
			return nil
		})
	s.Samplers = newBindingList(stage, "sampler", limits.Samplers, validate,
		func(start int, items []*SamplerState) {
			ids := make([]gpucore.SamplerID, len(items))
			for i, smp := range items {
				if smp != nil {
					ids[i] = smp.handle
				}
			}
			dev.SetSamplers(stage, start, ids)
		},
		func(smp *SamplerState) error {
			return c.checkOwned(&smp.resource, "bind")
		})
	s.ResourceViews = newBindingList(stage, "resource view", limits.ResourceViews, validate,
		func(start int, items []*ShaderResourceView) {
			ids := make([]gpucore.ViewID, len(items))
			for i, v := range items {
				if v != nil {
					ids[i] = v.handle
				}
			}
			dev.SetShaderResources(stage, start, ids)
		},
		func(v *ShaderResourceView) error {
			return c.checkOwned(&v.resource, "bind")
		})
	return s
}

// Stage returns the shader stage.
func (s *ShaderStageState) Stage() ShaderStage { return s.stage }

// Unbind clears every slot of every list holding item and returns the
// number of slots cleared.
func (s *ShaderStageState) Unbind(item any) int {
	switch v := item.(type) {
	case *Buffer:
		return s.ConstantBuffers.Unbind(v)
	case *SamplerState:
		return s.Samplers.Unbind(v)
	case *ShaderResourceView:
		return s.ResourceViews.Unbind(v)
	default:
		return 0
	}
}

// ReSeat re-applies every binding of item in this stage. It reports whether
// item was bound.
func (s *ShaderStageState) ReSeat(item any) bool {
	switch v := item.(type) {
	case *Buffer:
		return s.ConstantBuffers.ReSeat(v)
	case *SamplerState:
		return s.Samplers.ReSeat(v)
	case *ShaderResourceView:
		return s.ResourceViews.ReSeat(v)
	default:
		return false
	}
}

// Clear unbinds every slot of the stage.
func (s *ShaderStageState) Clear() {
	s.ConstantBuffers.Clear()
	s.Samplers.Clear()
	s.ResourceViews.Clear()
}
