package gpucore

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Resource IDs
//
// These opaque IDs represent native resources. Each device context
// maintains a mapping between IDs and actual backend resources.

// BufferID is an opaque handle to a native buffer.
type BufferID uint64

// ViewID is an opaque handle to a native shader-resource, unordered-access
// or render-target view.
type ViewID uint64

// SamplerID is an opaque handle to a native sampler state.
type SamplerID uint64

// PipelineStateID is an opaque handle to a native pipeline state object.
type PipelineStateID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// ShaderStage identifies one programmable stage of the pipeline.
type ShaderStage uint8

// Shader stages.
const (
	StageVertex ShaderStage = iota
	StagePixel
	StageGeometry
	StageHull
	StageDomain
	StageCompute

	// StageCount is the number of shader stages.
	StageCount = int(StageCompute) + 1
)

// Stages returns all shader stages in pipeline order.
func Stages() []ShaderStage {
	return []ShaderStage{StageVertex, StagePixel, StageGeometry, StageHull, StageDomain, StageCompute}
}

// String returns the string representation of ShaderStage.
func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "Vertex"
	case StagePixel:
		return "Pixel"
	case StageGeometry:
		return "Geometry"
	case StageHull:
		return "Hull"
	case StageDomain:
		return "Domain"
	case StageCompute:
		return "Compute"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// MapMode selects how a buffer is mapped into CPU memory.
type MapMode uint8

// Map modes.
const (
	// MapRead maps the buffer for reading.
	MapRead MapMode = iota + 1
	// MapWrite maps the buffer for writing, preserving prior contents.
	MapWrite
	// MapWriteDiscard invalidates prior contents and maps fresh memory.
	MapWriteDiscard
	// MapWriteNoOverwrite maps for writing; the caller promises not to touch
	// regions the GPU may still be reading.
	MapWriteNoOverwrite
)

// String returns the string representation of MapMode.
func (m MapMode) String() string {
	switch m {
	case MapRead:
		return "Read"
	case MapWrite:
		return "Write"
	case MapWriteDiscard:
		return "WriteDiscard"
	case MapWriteNoOverwrite:
		return "WriteNoOverwrite"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// IsWrite reports whether the mode maps for writing.
func (m MapMode) IsWrite() bool {
	return m == MapWrite || m == MapWriteDiscard || m == MapWriteNoOverwrite
}

// CopyFlags qualify a region copy.
type CopyFlags uint8

// Copy flags.
const (
	CopyFlagsNone CopyFlags = iota
	// CopyFlagsDiscard lets the driver drop the destination's prior contents.
	CopyFlagsDiscard
	// CopyFlagsNoOverwrite promises the destination region is not in use.
	CopyFlagsNoOverwrite
)

// BufferDesc describes a native buffer to create.
type BufferDesc struct {
	// Label is an optional debug name.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage is the set of native usage flags. MapRead/MapWrite select CPU
	// access, the remaining flags select pipeline bindings.
	Usage gputypes.BufferUsage

	// StructureStride is the element stride for structured buffers, else 0.
	StructureStride uint32

	// InitialData, if non-nil, is copied into the buffer at creation.
	InitialData []byte
}

// ViewKind selects the kind of view created by CreateView.
type ViewKind uint8

// View kinds.
const (
	ViewShaderResource ViewKind = iota + 1
	ViewUnorderedAccess
)

// String returns the string representation of ViewKind.
func (k ViewKind) String() string {
	switch k {
	case ViewShaderResource:
		return "ShaderResource"
	case ViewUnorderedAccess:
		return "UnorderedAccess"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// ViewFlags qualify a buffer view.
type ViewFlags uint8

// View flags.
const (
	// ViewFlagRaw interprets the buffer as 32-bit words (byte address view).
	ViewFlagRaw ViewFlags = 1 << iota
	// ViewFlagAppend enables append/consume on structured UAVs.
	ViewFlagAppend
	// ViewFlagCounter enables the hidden counter on structured UAVs.
	ViewFlagCounter
)

// ViewDesc describes a native view over a buffer range.
type ViewDesc struct {
	Label  string
	Kind   ViewKind
	Buffer BufferID

	// Format is the element format; TextureFormatUndefined for structured
	// and raw views.
	Format gputypes.TextureFormat

	// ByteOffset and ByteSize delimit the viewed range.
	ByteOffset uint64
	ByteSize   uint64

	// FirstElement and ElementCount repeat the range in elements.
	FirstElement uint32
	ElementCount uint32

	Flags ViewFlags
}

// SamplerDesc describes a sampler state. It is comparable and can be used as
// a map key.
type SamplerDesc struct {
	MinFilter     gputypes.FilterMode
	MagFilter     gputypes.FilterMode
	MipmapFilter  gputypes.FilterMode
	AddressModeU  gputypes.AddressMode
	AddressModeV  gputypes.AddressMode
	AddressModeW  gputypes.AddressMode
	Compare       gputypes.CompareFunction
	MaxAnisotropy uint16
	LodMinClamp   float32
	LodMaxClamp   float32
}

// DefaultSamplerDesc returns a trilinear, clamp-to-edge sampler description.
func DefaultSamplerDesc() SamplerDesc {
	return SamplerDesc{
		MinFilter:     gputypes.FilterModeLinear,
		MagFilter:     gputypes.FilterModeLinear,
		MipmapFilter:  gputypes.FilterModeLinear,
		AddressModeU:  gputypes.AddressModeClampToEdge,
		AddressModeV:  gputypes.AddressModeClampToEdge,
		AddressModeW:  gputypes.AddressModeClampToEdge,
		MaxAnisotropy: 1,
		LodMinClamp:   0,
		LodMaxClamp:   32,
	}
}

// VertexBufferBinding binds a buffer to an input-assembler slot.
type VertexBufferBinding struct {
	Buffer BufferID
	Stride uint32
	Offset uint32
}
