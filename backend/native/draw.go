// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package native

import (
	"fmt"

	"github.com/gogpu/gorgon/backend"
	"github.com/gogpu/gorgon/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Draw issues a non-indexed draw.
func (d *Device) Draw(vertexCount, startVertex uint32) error {
	return d.draw("draw", false, func(rp hal.RenderPassEncoder) {
		rp.Draw(vertexCount, 1, startVertex, 0)
	})
}

// DrawIndexed issues an indexed draw.
func (d *Device) DrawIndexed(indexCount, startIndex uint32, baseVertex int32) error {
	return d.draw("draw_indexed", true, func(rp hal.RenderPassEncoder) {
		rp.DrawIndexed(indexCount, 1, startIndex, baseVertex, 0)
	})
}

// DrawInstanced issues an instanced draw.
func (d *Device) DrawInstanced(vertexCountPerInstance, instanceCount, startVertex, startInstance uint32) error {
	return d.draw("draw_instanced", false, func(rp hal.RenderPassEncoder) {
		rp.Draw(vertexCountPerInstance, instanceCount, startVertex, startInstance)
	})
}

// DrawIndexedInstanced issues an indexed instanced draw.
func (d *Device) DrawIndexedInstanced(indexCountPerInstance, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) error {
	return d.draw("draw_indexed_instanced", true, func(rp hal.RenderPassEncoder) {
		rp.DrawIndexed(indexCountPerInstance, instanceCount, startIndex, baseVertex, startInstance)
	})
}

// draw validates the bound state, builds bind group 0 and encodes one render
// pass that loads and stores the bound targets around issue.
func (d *Device) draw(label string, indexed bool, issue func(rp hal.RenderPassEncoder)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return gpucore.ErrDeviceClosed
	}
	p, ok := d.pipelines[d.state.pipeline]
	if !ok {
		return gpucore.ErrNoPipeline
	}
	if p.desc.Topology != 0 && p.desc.Topology != d.state.topology {
		backend.Logger().Warn("native: topology differs from pipeline",
			"pipeline", p.desc.Label, "bound", d.state.topology, "pipelineTopology", p.desc.Topology)
	}
	attachments, err := d.colorAttachments(gputypes.LoadOpLoad, gputypes.Color{})
	if err != nil {
		return err
	}
	var ib *buffer
	if indexed {
		if ib, ok = d.buffers[d.state.indexBuffer]; !ok {
			return gpucore.ErrNoIndexBuffer
		}
	}
	vbs := make([]*buffer, len(d.state.vertexBuffers))
	for i, vb := range d.state.vertexBuffers {
		if vb.Buffer == gpucore.InvalidID {
			continue
		}
		b, ok := d.buffers[vb.Buffer]
		if !ok {
			return fmt.Errorf("%w: vertex buffer %d in slot %d", gpucore.ErrUnknownResource, vb.Buffer, i)
		}
		vbs[i] = b
	}

	group, err := d.bindGroup(p)
	if err != nil {
		return err
	}
	if group != nil {
		defer d.device.DestroyBindGroup(group)
	}

	return d.submit(label, func(enc hal.CommandEncoder) {
		rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
			Label:            d.label(label),
			ColorAttachments: attachments,
		})
		rp.SetPipeline(p.desc.Pipeline)
		if group != nil {
			rp.SetBindGroup(0, group, nil)
		}
		for i, b := range vbs {
			if b != nil {
				rp.SetVertexBuffer(uint32(i), b.hal, uint64(d.state.vertexBuffers[i].Offset))
			}
		}
		if ib != nil {
			rp.SetIndexBuffer(ib.hal, d.state.indexFormat, uint64(d.state.indexOffset))
		}
		if len(d.state.viewports) > 0 {
			v := d.state.viewports[0]
			rp.SetViewport(v.X, v.Y, v.Width, v.Height, v.MinDepth, v.MaxDepth)
		}
		if len(d.state.scissorRects) > 0 {
			r := d.state.scissorRects[0].Canon()
			rp.SetScissorRect(uint32(max(r.Min.X, 0)), uint32(max(r.Min.Y, 0)), uint32(r.Dx()), uint32(r.Dy()))
		}
		issue(rp)
		rp.End()
	})
}

// colorAttachments resolves the bound render targets. Empty slots are
// skipped; at least one target must be bound.
func (d *Device) colorAttachments(load gputypes.LoadOp, clearColor gputypes.Color) ([]hal.RenderPassColorAttachment, error) {
	var out []hal.RenderPassColorAttachment
	for _, id := range d.state.renderTargets {
		if id == gpucore.InvalidID {
			continue
		}
		rt, ok := d.targets[id]
		if !ok {
			return nil, fmt.Errorf("%w: view %d is not a render target", ErrNoRenderTarget, id)
		}
		out = append(out, hal.RenderPassColorAttachment{
			View:       rt.view,
			LoadOp:     load,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: clearColor,
		})
	}
	if len(out) == 0 {
		return nil, ErrNoRenderTarget
	}
	return out, nil
}

// bindGroup builds bind group 0 of p from the current stage slots. It
// returns nil when the pipeline has no bindings.
func (d *Device) bindGroup(p *pipeline) (hal.BindGroup, error) {
	if len(p.desc.Bindings) == 0 {
		return nil, nil //nolint:nilnil // a pipeline without bindings has no group
	}
	entries := make([]gputypes.BindGroupEntry, 0, len(p.desc.Bindings))
	for _, pb := range p.desc.Bindings {
		slots := &d.stages[pb.Stage]
		var (
			b      *buffer
			offset uint64
			size   uint64
		)
		switch pb.Kind {
		case SlotConstantBuffer:
			if id := slots.constantBuffers[pb.Slot]; id != gpucore.InvalidID {
				b = d.buffers[id]
			}
			if b != nil {
				size = b.size
			}
		case SlotResourceView:
			if v, ok := d.views[slots.resourceViews[pb.Slot]]; ok {
				b = d.buffers[v.Buffer]
				offset, size = v.ByteOffset, v.ByteSize
			}
		}
		if b == nil {
			return nil, fmt.Errorf("%w: pipeline %q binding %d reads %s %s slot %d",
				ErrUnboundSlot, p.desc.Label, pb.Binding, pb.Stage, pb.Kind, pb.Slot)
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  pb.Binding,
			Resource: gputypes.BufferBinding{Buffer: b.hal.NativeHandle(), Offset: offset, Size: size},
		})
	}
	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   d.label(p.desc.Label + "_bind"),
		Layout:  p.desc.Layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create bind group for %q: %w", p.desc.Label, err)
	}
	return group, nil
}

// ClearRenderTargets clears every bound render target to c.
func (d *Device) ClearRenderTargets(c gputypes.Color) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return gpucore.ErrDeviceClosed
	}
	attachments, err := d.colorAttachments(gputypes.LoadOpClear, c)
	if err != nil {
		return err
	}
	return d.submit("clear", func(enc hal.CommandEncoder) {
		rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
			Label:            d.label("clear"),
			ColorAttachments: attachments,
		})
		rp.End()
	})
}
