// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"

	"github.com/gogpu/gorgon"
	"github.com/gogpu/gorgon/backend"
	"github.com/gogpu/gorgon/backend/software"
	"github.com/gogpu/gorgon/gpucore"
)

// targetsFunc creates the backend-specific pipeline and render target a
// triangle draw needs. release frees them.
type targetsFunc func(dev gpucore.DeviceContext) (pipeline *gorgon.PipelineState, target *gorgon.RenderTargetView, release func(), err error)

// drawTargets maps backend names to their target factories. Backends
// without an entry skip the draw check.
var drawTargets = map[string]targetsFunc{
	backend.BackendSoftware: softwareTargets,
}

func softwareTargets(dev gpucore.DeviceContext) (*gorgon.PipelineState, *gorgon.RenderTargetView, func(), error) {
	sw, ok := dev.(*software.Device)
	if !ok {
		return nil, nil, nil, fmt.Errorf("device is %T, not a software device", dev)
	}
	pipeline := gorgon.NewPipelineState(sw.CreatePipelineState("probe_triangle"), "probe_triangle")
	target := gorgon.NewRenderTargetView(sw.CreateRenderTarget("probe_target"), "probe_target")
	return pipeline, target, func() {}, nil
}
