package software

import (
	"fmt"
	"slices"

	"github.com/gogpu/gorgon/gpucore"
)

// Op names a recorded device call.
type Op string

// Recorded operations.
const (
	OpCreateBuffer          Op = "CreateBuffer"
	OpDestroyBuffer         Op = "DestroyBuffer"
	OpUpdateSubresource     Op = "UpdateSubresource"
	OpMap                   Op = "Map"
	OpUnmap                 Op = "Unmap"
	OpCopyResource          Op = "CopyResource"
	OpCopySubresourceRegion Op = "CopySubresourceRegion"
	OpCreateView            Op = "CreateView"
	OpDestroyView           Op = "DestroyView"
	OpCreateSampler         Op = "CreateSampler"
	OpDestroySampler        Op = "DestroySampler"
	OpSetConstantBuffers    Op = "SetConstantBuffers"
	OpSetSamplers           Op = "SetSamplers"
	OpSetShaderResources    Op = "SetShaderResources"
	OpSetVertexBuffers      Op = "SetVertexBuffers"
	OpSetIndexBuffer        Op = "SetIndexBuffer"
	OpSetPipelineState      Op = "SetPipelineState"
	OpSetPrimitiveTopology  Op = "SetPrimitiveTopology"
	OpSetRenderTargets      Op = "SetRenderTargets"
	OpSetViewports          Op = "SetViewports"
	OpSetScissorRects       Op = "SetScissorRects"
	OpDraw                  Op = "Draw"
	OpDrawIndexed           Op = "DrawIndexed"
	OpDrawInstanced         Op = "DrawInstanced"
	OpDrawIndexedInstanced  Op = "DrawIndexedInstanced"
)

// Call is one recorded device call.
type Call struct {
	Op Op

	// Stage is set for per-stage binding calls.
	Stage gpucore.ShaderStage

	// Start is the first slot of binding calls.
	Start int

	// IDs holds the handles passed to the call, in argument order. Zero
	// entries unbind their slot.
	IDs []uint64

	// Args holds the numeric arguments (offsets, sizes, counts).
	Args []int64
}

// String returns a compact description for test failure messages.
func (c Call) String() string {
	switch {
	case len(c.IDs) > 0 && len(c.Args) > 0:
		return fmt.Sprintf("%s(%s, %d, %v, %v)", c.Op, c.Stage, c.Start, c.IDs, c.Args)
	case len(c.IDs) > 0:
		return fmt.Sprintf("%s(%s, %d, %v)", c.Op, c.Stage, c.Start, c.IDs)
	default:
		return fmt.Sprintf("%s(%v)", c.Op, c.Args)
	}
}

// ids converts typed handles to the recorder's uint64 form.
func ids[T ~uint64](in []T) []uint64 {
	out := make([]uint64, len(in))
	for i, v := range in {
		out[i] = uint64(v)
	}
	return out
}

func (d *Device) record(c Call) {
	if !d.opts.record {
		return
	}
	d.calls = append(d.calls, c)
}

// Calls returns a copy of every recorded call.
func (d *Device) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.calls)
}

// CallsOf returns the recorded calls of the given operations.
func (d *Device) CallsOf(ops ...Op) []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Call
	for _, c := range d.calls {
		if slices.Contains(ops, c.Op) {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls clears the recorder.
func (d *Device) ResetCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = d.calls[:0]
}
