package gorgon

import (
	"fmt"

	"github.com/gogpu/gorgon/gpucore"
)

// SamplerDesc describes a sampler state. Equal descriptions share one
// SamplerState per context.
type SamplerDesc = gpucore.SamplerDesc

// DefaultSamplerDesc returns a trilinear, clamp-to-edge sampler description.
func DefaultSamplerDesc() SamplerDesc { return gpucore.DefaultSamplerDesc() }

// SamplerState is an immutable sampler bound through ShaderStageState.Samplers.
type SamplerState struct {
	resource

	desc   SamplerDesc
	handle gpucore.SamplerID
}

// Desc returns the sampler description.
func (s *SamplerState) Desc() SamplerDesc { return s.desc }

// Native returns the native sampler handle.
func (s *SamplerState) Native() gpucore.SamplerID { return s.handle }

// Dispose releases the native sampler and unbinds it from every stage. A
// later request for the same description creates a new sampler.
func (s *SamplerState) Dispose() {
	if s.disposed {
		return
	}
	s.ctx.samplers.Delete(s.desc)
	s.ctx.unbindAll(s)
	s.ctx.device.DestroySampler(s.handle)
	s.disposed = true
	s.ctx.untrack(&s.resource)
}

// Sampler returns the sampler state for desc, creating it on first use.
func (c *GraphicsContext) Sampler(desc SamplerDesc) (*SamplerState, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return c.samplers.GetOrCreate(desc, func() (*SamplerState, error) {
		handle, err := c.device.CreateSampler(&desc)
		if err != nil {
			return nil, fmt.Errorf("gorgon: create sampler: %w", err)
		}
		s := &SamplerState{
			resource: resource{ctx: c, name: fmt.Sprintf("%s.sampler#%d", c.opts.label, c.serial+1), usage: UsageImmutable},
			desc:     desc,
			handle:   handle,
		}
		c.track(&s.resource, s)
		Logger().Debug("gorgon: sampler created", "sampler", s.name)
		return s, nil
	})
}
