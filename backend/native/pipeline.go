// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package native

import (
	"fmt"

	"github.com/gogpu/gorgon/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// SlotKind selects the slot list a pipeline binding reads from.
type SlotKind uint8

// Slot kinds.
const (
	SlotConstantBuffer SlotKind = iota + 1
	SlotResourceView
)

// String returns the string representation of SlotKind.
func (k SlotKind) String() string {
	switch k {
	case SlotConstantBuffer:
		return "ConstantBuffer"
	case SlotResourceView:
		return "ResourceView"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// PipelineBinding maps one entry of bind group 0 to a stage slot.
type PipelineBinding struct {
	Binding uint32
	Stage   gpucore.ShaderStage
	Kind    SlotKind
	Slot    int
}

// PipelineDesc registers a HAL render pipeline with the device.
//
// The device does not own Pipeline or Layout; destroy them after the
// pipeline state is destroyed.
type PipelineDesc struct {
	Label    string
	Pipeline hal.RenderPipeline

	// Topology is the topology Pipeline was created with. Zero skips the
	// draw-time check.
	Topology gputypes.PrimitiveTopology

	// Layout is the layout of bind group 0. A group is built from Bindings
	// for every draw.
	Layout   hal.BindGroupLayout
	Bindings []PipelineBinding
}

type pipeline struct {
	desc PipelineDesc
}

// CreatePipelineState registers a render pipeline and returns its ID.
func (d *Device) CreatePipelineState(desc *PipelineDesc) (gpucore.PipelineStateID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}
	if desc == nil || desc.Pipeline == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: pipeline state without a pipeline", gpucore.ErrInvalidDescriptor)
	}
	if len(desc.Bindings) > 0 && desc.Layout == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: pipeline %q has bindings but no layout", gpucore.ErrInvalidDescriptor, desc.Label)
	}
	for _, b := range desc.Bindings {
		if err := d.checkPipelineBinding(b); err != nil {
			return gpucore.InvalidID, fmt.Errorf("pipeline %q: %w", desc.Label, err)
		}
	}

	p := &pipeline{desc: *desc}
	p.desc.Bindings = append([]PipelineBinding(nil), desc.Bindings...)
	id := gpucore.PipelineStateID(d.newID())
	d.pipelines[id] = p
	d.stats.Pipelines++
	return id, nil
}

func (d *Device) checkPipelineBinding(b PipelineBinding) error {
	if int(b.Stage) >= gpucore.StageCount {
		return fmt.Errorf("%w: binding %d names stage %s", gpucore.ErrInvalidDescriptor, b.Binding, b.Stage)
	}
	lim := d.opts.level.Limits(b.Stage)
	var n int
	switch b.Kind {
	case SlotConstantBuffer:
		n = lim.ConstantBuffers
	case SlotResourceView:
		n = lim.ResourceViews
	default:
		return fmt.Errorf("%w: binding %d has slot kind %s", gpucore.ErrInvalidDescriptor, b.Binding, b.Kind)
	}
	if b.Slot < 0 || b.Slot >= n {
		return fmt.Errorf("%w: binding %d slot %d outside %s %s slots [0, %d)",
			gpucore.ErrInvalidDescriptor, b.Binding, b.Slot, b.Stage, b.Kind, n)
	}
	return nil
}

// DestroyPipelineState forgets a pipeline state. Unknown IDs are ignored.
func (d *Device) DestroyPipelineState(id gpucore.PipelineStateID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.pipelines[id]; !ok {
		return
	}
	delete(d.pipelines, id)
	d.stats.Pipelines--
}

type renderTarget struct {
	label   string
	texture hal.Texture // nil when the view is borrowed
	view    hal.TextureView
	width   uint32
	height  uint32
}

func (rt *renderTarget) destroy(device hal.Device) {
	if rt.texture == nil {
		return
	}
	device.DestroyTextureView(rt.view)
	device.DestroyTexture(rt.texture)
}

// CreateRenderTarget creates a width x height color texture that draws can
// render into and that can be copied out.
func (d *Device) CreateRenderTarget(label string, width, height uint32, format gputypes.TextureFormat) (gpucore.ViewID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}
	if width == 0 || height == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: render target %dx%d", gpucore.ErrInvalidDescriptor, width, height)
	}
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         d.label(label),
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create render target %q: %w", label, err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: d.label(label + "_view")})
	if err != nil {
		d.device.DestroyTexture(tex)
		return gpucore.InvalidID, fmt.Errorf("native: create render target view %q: %w", label, err)
	}
	return d.addTarget(&renderTarget{label: label, texture: tex, view: view, width: width, height: height}), nil
}

// RegisterRenderTarget makes a borrowed texture view, such as a surface
// view, available as a render target. The caller keeps ownership.
func (d *Device) RegisterRenderTarget(label string, view hal.TextureView, width, height uint32) (gpucore.ViewID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}
	if view == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: nil render target view", gpucore.ErrInvalidDescriptor)
	}
	return d.addTarget(&renderTarget{label: label, view: view, width: width, height: height}), nil
}

func (d *Device) addTarget(rt *renderTarget) gpucore.ViewID {
	id := gpucore.ViewID(d.newID())
	d.targets[id] = rt
	d.stats.RenderTargets++
	return id
}

// DestroyRenderTarget releases a render target. Unknown IDs are ignored.
func (d *Device) DestroyRenderTarget(id gpucore.ViewID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rt, ok := d.targets[id]
	if !ok {
		return
	}
	delete(d.targets, id)
	rt.destroy(d.device)
	d.stats.RenderTargets--
}
