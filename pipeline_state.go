package gorgon

import "github.com/gogpu/gorgon/gpucore"

// PipelineState wraps a native pipeline state object created outside this
// package, e.g. by a backend from compiled shaders.
type PipelineState struct {
	handle gpucore.PipelineStateID
	label  string
}

// NewPipelineState wraps a native pipeline handle.
func NewPipelineState(handle gpucore.PipelineStateID, label string) *PipelineState {
	return &PipelineState{handle: handle, label: label}
}

// Native returns the native pipeline handle.
func (p *PipelineState) Native() gpucore.PipelineStateID { return p.handle }

// Label returns the debug label.
func (p *PipelineState) Label() string { return p.label }

// RenderTargetView wraps a native render-target view created outside this
// package. Textures are not managed here.
type RenderTargetView struct {
	handle gpucore.ViewID
	label  string
}

// NewRenderTargetView wraps a native render-target handle.
func NewRenderTargetView(handle gpucore.ViewID, label string) *RenderTargetView {
	return &RenderTargetView{handle: handle, label: label}
}

// Native returns the native view handle.
func (r *RenderTargetView) Native() gpucore.ViewID { return r.handle }

// Label returns the debug label.
func (r *RenderTargetView) Label() string { return r.label }
