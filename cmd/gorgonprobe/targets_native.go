// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package main

import (
	"fmt"

	"github.com/gogpu/gorgon"
	"github.com/gogpu/gorgon/backend"
	"github.com/gogpu/gorgon/backend/native"
	"github.com/gogpu/gorgon/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

const triangleShader = `
@vertex
fn vs_main(@location(0) pos: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(pos, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(0.2, 0.6, 1.0, 1.0);
}
`

func init() {
	drawTargets[backend.BackendNative] = nativeTargets
}

// nativeTargets compiles a pass-through triangle pipeline and creates a
// 64x64 render target on the native device.
func nativeTargets(dev gpucore.DeviceContext) (*gorgon.PipelineState, *gorgon.RenderTargetView, func(), error) {
	nd, ok := dev.(*native.Device)
	if !ok {
		return nil, nil, nil, fmt.Errorf("device is %T, not a native device", dev)
	}
	device, _ := nd.HAL()

	var cleanup []func()
	release := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}
	fail := func(err error) (*gorgon.PipelineState, *gorgon.RenderTargetView, func(), error) {
		release()
		return nil, nil, nil, err
	}

	shader, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "probe_triangle_shader",
		Source: hal.ShaderSource{WGSL: triangleShader},
	})
	if err != nil {
		return fail(fmt.Errorf("compile triangle shader: %w", err))
	}
	cleanup = append(cleanup, func() { device.DestroyShaderModule(shader) })

	layout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{Label: "probe_triangle_layout"})
	if err != nil {
		return fail(fmt.Errorf("create triangle pipeline layout: %w", err))
	}
	cleanup = append(cleanup, func() { device.DestroyPipelineLayout(layout) })

	pipe, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "probe_triangle",
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
			Buffers: []gputypes.VertexBufferLayout{{
				ArrayStride: 12,
				StepMode:    gputypes.VertexStepModeVertex,
				Attributes: []gputypes.VertexAttribute{
					{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
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
		return fail(fmt.Errorf("create triangle pipeline: %w", err))
	}
	cleanup = append(cleanup, func() { device.DestroyRenderPipeline(pipe) })

	pipelineID, err := nd.CreatePipelineState(&native.PipelineDesc{
		Label:    "probe_triangle",
		Pipeline: pipe,
		Topology: gputypes.PrimitiveTopologyTriangleList,
	})
	if err != nil {
		return fail(err)
	}
	cleanup = append(cleanup, func() { nd.DestroyPipelineState(pipelineID) })

	targetID, err := nd.CreateRenderTarget("probe_target", 64, 64, gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		return fail(err)
	}
	cleanup = append(cleanup, func() { nd.DestroyRenderTarget(targetID) })

	return gorgon.NewPipelineState(pipelineID, "probe_triangle"),
		gorgon.NewRenderTargetView(targetID, "probe_target"),
		release, nil
}
