// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package native

import (
	"errors"
	"image"
	"testing"

	"github.com/gogpu/gorgon/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

const testShader = `
struct Params { scale: vec4<f32> }
@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read> offsets: array<vec4<f32>>;

@vertex
fn vs_main(@location(0) pos: vec2<f32>, @builtin(instance_index) i: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(pos, 0.0, 1.0) * params.scale + offsets[i];
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

// testPipeline creates a HAL render pipeline reading a vertex-stage
// constant buffer at binding 0 and a vertex-stage resource view at binding 1.
func testPipeline(t *testing.T, d *Device) *PipelineDesc {
	t.Helper()
	device, _ := d.HAL()

	shader, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "test_shader",
		Source: hal.ShaderSource{WGSL: testShader},
	})
	if err != nil {
		t.Fatalf("CreateShaderModule: %v", err)
	}
	layout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "test_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageVertex, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageVertex, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
		},
	})
	if err != nil {
		t.Fatalf("CreateBindGroupLayout: %v", err)
	}
	pipeLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "test_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{layout},
	})
	if err != nil {
		t.Fatalf("CreatePipelineLayout: %v", err)
	}
	pipe, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "test_pipeline",
		Layout: pipeLayout,
		Vertex: hal.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
			Buffers: []gputypes.VertexBufferLayout{{
				ArrayStride: 8,
				StepMode:    gputypes.VertexStepModeVertex,
				Attributes: []gputypes.VertexAttribute{
					{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
				},
			}},
		},
		Fragment: &hal.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{Format: gputypes.TextureFormatRGBA8Unorm, WriteMask: gputypes.ColorWriteMaskAll},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		t.Fatalf("CreateRenderPipeline: %v", err)
	}
	t.Cleanup(func() {
		device.DestroyRenderPipeline(pipe)
		device.DestroyPipelineLayout(pipeLayout)
		device.DestroyBindGroupLayout(layout)
		device.DestroyShaderModule(shader)
	})

	return &PipelineDesc{
		Label:    "test",
		Pipeline: pipe,
		Topology: gputypes.PrimitiveTopologyTriangleList,
		Layout:   layout,
		Bindings: []PipelineBinding{
			{Binding: 0, Stage: gpucore.StageVertex, Kind: SlotConstantBuffer, Slot: 0},
			{Binding: 1, Stage: gpucore.StageVertex, Kind: SlotResourceView, Slot: 2},
		},
	}
}

// drawScene binds everything testPipeline needs.
type drawScene struct {
	pipeline gpucore.PipelineStateID
	target   gpucore.ViewID
	vb, ib   gpucore.BufferID
	cb       gpucore.BufferID
	view     gpucore.ViewID
}

func newDrawScene(t *testing.T, d *Device) drawScene {
	t.Helper()
	var s drawScene
	var err error
	if s.pipeline, err = d.CreatePipelineState(testPipeline(t, d)); err != nil {
		t.Fatal(err)
	}
	if s.target, err = d.CreateRenderTarget("rt", 32, 32, gputypes.TextureFormatRGBA8Unorm); err != nil {
		t.Fatal(err)
	}
	s.vb = mustBuffer(t, d, 24, vertices, nil)
	s.ib = mustBuffer(t, d, 6, indices, []byte{0, 0, 1, 0, 2, 0})
	s.cb = mustBuffer(t, d, 16, uniform, nil)
	sb := mustBuffer(t, d, 64, storage, nil)
	if s.view, err = d.CreateView(&gpucore.ViewDesc{Kind: gpucore.ViewShaderResource, Buffer: sb, ByteSize: 64}); err != nil {
		t.Fatal(err)
	}

	d.SetPipelineState(s.pipeline)
	d.SetPrimitiveTopology(gputypes.PrimitiveTopologyTriangleList)
	d.SetRenderTargets([]gpucore.ViewID{s.target})
	d.SetVertexBuffers(0, []gpucore.VertexBufferBinding{{Buffer: s.vb, Stride: 8}})
	d.SetIndexBuffer(s.ib, gputypes.IndexFormatUint16, 0)
	d.SetConstantBuffers(gpucore.StageVertex, 0, []gpucore.BufferID{s.cb})
	d.SetShaderResources(gpucore.StageVertex, 2, []gpucore.ViewID{s.view})
	d.SetViewports([]gpucore.Viewport{gpucore.NewViewport(32, 32)})
	d.SetScissorRects([]image.Rectangle{image.Rect(0, 0, 16, 16)})
	return s
}

func TestDraws(t *testing.T) {
	d := newTestDevice(t)
	newDrawScene(t, d)

	draws := []struct {
		name string
		run  func() error
	}{
		{"Draw", func() error { return d.Draw(3, 0) }},
		{"DrawIndexed", func() error { return d.DrawIndexed(3, 0, 0) }},
		{"DrawInstanced", func() error { return d.DrawInstanced(3, 4, 0, 0) }},
		{"DrawIndexedInstanced", func() error { return d.DrawIndexedInstanced(3, 4, 0, 0, 1) }},
	}
	for i, tt := range draws {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); err != nil {
				t.Fatalf("%s: %v", tt.name, err)
			}
			if got := d.Stats().Submissions; got != i+1 {
				t.Errorf("Submissions = %d, want %d", got, i+1)
			}
		})
	}
}

func TestDrawValidation(t *testing.T) {
	tests := []struct {
		name  string
		setup func(d *Device, s drawScene)
		draw  func(d *Device) error
		want  error
	}{
		{"no pipeline", func(d *Device, _ drawScene) { d.SetPipelineState(gpucore.InvalidID) },
			func(d *Device) error { return d.Draw(3, 0) }, gpucore.ErrNoPipeline},
		{"no render target", func(d *Device, _ drawScene) { d.SetRenderTargets(nil) },
			func(d *Device) error { return d.Draw(3, 0) }, ErrNoRenderTarget},
		{"buffer view as render target", func(d *Device, s drawScene) { d.SetRenderTargets([]gpucore.ViewID{s.view}) },
			func(d *Device) error { return d.Draw(3, 0) }, ErrNoRenderTarget},
		{"no index buffer", func(d *Device, _ drawScene) { d.SetIndexBuffer(gpucore.InvalidID, gputypes.IndexFormatUint16, 0) },
			func(d *Device) error { return d.DrawIndexed(3, 0, 0) }, gpucore.ErrNoIndexBuffer},
		{"empty constant buffer slot", func(d *Device, _ drawScene) {
			d.SetConstantBuffers(gpucore.StageVertex, 0, []gpucore.BufferID{gpucore.InvalidID})
		}, func(d *Device) error { return d.Draw(3, 0) }, ErrUnboundSlot},
		{"destroyed view", func(d *Device, s drawScene) { d.DestroyView(s.view) },
			func(d *Device) error { return d.Draw(3, 0) }, ErrUnboundSlot},
		{"destroyed vertex buffer", func(d *Device, s drawScene) { d.DestroyBuffer(s.vb) },
			func(d *Device) error { return d.Draw(3, 0) }, gpucore.ErrUnknownResource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDevice(t)
			s := newDrawScene(t, d)
			tt.setup(d, s)
			if err := tt.draw(d); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if got := d.Stats().Submissions; got != 0 {
				t.Errorf("failed draw submitted %d command buffers", got)
			}
		})
	}
}

func TestCreatePipelineStateValidation(t *testing.T) {
	d := newTestDevice(t)
	good := testPipeline(t, d)

	tests := []struct {
		name   string
		mutate func(p *PipelineDesc)
	}{
		{"no pipeline", func(p *PipelineDesc) { p.Pipeline = nil }},
		{"bindings without layout", func(p *PipelineDesc) { p.Layout = nil }},
		{"slot out of range", func(p *PipelineDesc) { p.Bindings[0].Slot = gpucore.MaxConstantBufferSlots }},
		{"unknown kind", func(p *PipelineDesc) { p.Bindings[1].Kind = 0 }},
		{"unknown stage", func(p *PipelineDesc) { p.Bindings[0].Stage = gpucore.ShaderStage(gpucore.StageCount) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := *good
			desc.Bindings = append([]PipelineBinding(nil), good.Bindings...)
			tt.mutate(&desc)
			if _, err := d.CreatePipelineState(&desc); !errors.Is(err, gpucore.ErrInvalidDescriptor) {
				t.Errorf("error = %v, want ErrInvalidDescriptor", err)
			}
		})
	}

	id, err := d.CreatePipelineState(good)
	if err != nil {
		t.Fatal(err)
	}
	good.Bindings[0].Slot = 99 // the device keeps its own copy
	d.SetPipelineState(id)
	if d.pipelines[id].desc.Bindings[0].Slot != 0 {
		t.Error("CreatePipelineState aliased the caller's bindings")
	}
	d.DestroyPipelineState(id)
	d.DestroyPipelineState(id)
	if d.Stats().Pipelines != 0 {
		t.Errorf("Pipelines = %d after destroy", d.Stats().Pipelines)
	}
}

func TestLowFeatureLevelRejectsVertexViews(t *testing.T) {
	d := newTestDevice(t, WithFeatureLevel(gpucore.FeatureLevel9_3))
	desc := testPipeline(t, d)
	if _, err := d.CreatePipelineState(desc); !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Errorf("vertex resource view at 9_3 error = %v, want ErrInvalidDescriptor", err)
	}
}

func TestRenderTargets(t *testing.T) {
	d := newTestDevice(t)
	if _, err := d.CreateRenderTarget("zero", 0, 8, gputypes.TextureFormatRGBA8Unorm); !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Errorf("zero-size target error = %v", err)
	}
	if _, err := d.RegisterRenderTarget("nil", nil, 8, 8); !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Errorf("nil view error = %v", err)
	}

	owned, err := d.CreateRenderTarget("owned", 8, 8, gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatal(err)
	}
	device, _ := d.HAL()
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "surface",
		Size:          hal.Extent3D{Width: 8, Height: 8, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		t.Fatal(err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "surface_view"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		device.DestroyTextureView(view)
		device.DestroyTexture(tex)
	})
	borrowed, err := d.RegisterRenderTarget("surface", view, 8, 8)
	if err != nil {
		t.Fatal(err)
	}

	d.SetRenderTargets([]gpucore.ViewID{owned, gpucore.InvalidID, borrowed})
	if err := d.ClearRenderTargets(gputypes.Color{R: 0.2, G: 0.3, B: 0.4, A: 1}); err != nil {
		t.Fatalf("ClearRenderTargets: %v", err)
	}
	if got := d.Stats().RenderTargets; got != 2 {
		t.Errorf("RenderTargets = %d, want 2", got)
	}
	d.DestroyRenderTarget(borrowed)
	d.DestroyRenderTarget(owned)
	d.DestroyRenderTarget(owned)
	if got := d.Stats().RenderTargets; got != 0 {
		t.Errorf("RenderTargets = %d after destroy", got)
	}
	if err := d.ClearRenderTargets(gputypes.Color{}); !errors.Is(err, ErrNoRenderTarget) {
		t.Errorf("clear of destroyed targets error = %v, want ErrNoRenderTarget", err)
	}
}

func TestSlotKindString(t *testing.T) {
	if SlotConstantBuffer.String() != "ConstantBuffer" || SlotResourceView.String() != "ResourceView" {
		t.Error("SlotKind strings")
	}
	if got := SlotKind(7).String(); got != "Unknown(7)" {
		t.Errorf("String() = %q", got)
	}
}
