package gorgon

import (
	"fmt"
	"strings"

	"github.com/gogpu/gorgon/gpucore"
	"github.com/gogpu/gputypes"
)

// Usage is the residency and access policy of a resource.
type Usage uint8

// Usages.
const (
	// UsageDefault is GPU read/write with optional CPU read-back.
	UsageDefault Usage = iota
	// UsageImmutable is written once at creation and never again.
	UsageImmutable
	// UsageDynamic is written frequently by the CPU through mapping.
	UsageDynamic
	// UsageStaging is a CPU-visible transfer buffer that cannot be bound.
	UsageStaging
)

// String returns the string representation of Usage.
func (u Usage) String() string {
	switch u {
	case UsageDefault:
		return "Default"
	case UsageImmutable:
		return "Immutable"
	case UsageDynamic:
		return "Dynamic"
	case UsageStaging:
		return "Staging"
	default:
		return fmt.Sprintf("Usage(%d)", int(u))
	}
}

// CopyMode tells a CPU-to-GPU write how to treat existing contents.
type CopyMode uint8

// Copy modes.
const (
	// CopyModeDiscard invalidates prior contents. It is the default.
	CopyModeDiscard CopyMode = iota
	// CopyModeNoOverwrite asserts the GPU is not reading the target region.
	CopyModeNoOverwrite
)

// String returns the string representation of CopyMode.
func (m CopyMode) String() string {
	switch m {
	case CopyModeDiscard:
		return "Discard"
	case CopyModeNoOverwrite:
		return "NoOverwrite"
	default:
		return fmt.Sprintf("CopyMode(%d)", int(m))
	}
}

func (m CopyMode) mapMode() gpucore.MapMode {
	if m == CopyModeNoOverwrite {
		return gpucore.MapWriteNoOverwrite
	}
	return gpucore.MapWriteDiscard
}

func (m CopyMode) copyFlags() gpucore.CopyFlags {
	if m == CopyModeNoOverwrite {
		return gpucore.CopyFlagsNoOverwrite
	}
	return gpucore.CopyFlagsDiscard
}

// Binding is a set of pipeline binding flags for a buffer.
type Binding uint16

// Binding flags.
const (
	BindVertex Binding = 1 << iota
	BindIndex
	BindConstant
	BindStreamOut
	BindShaderResource
	BindUnorderedAccess
	// BindRaw allows byte-address views. Requires shader-resource or
	// unordered-access binding.
	BindRaw
	// BindStructured marks a structured buffer. Requires shader-resource or
	// unordered-access binding.
	BindStructured

	// BindNone is the empty set.
	BindNone Binding = 0
)

// gpuBindings are the flags that attach a buffer to the pipeline.
const gpuBindings = BindVertex | BindIndex | BindConstant | BindStreamOut | BindShaderResource | BindUnorderedAccess

// Has reports whether all flags in f are set.
func (b Binding) Has(f Binding) bool {
	return b&f == f
}

// Any reports whether any flag in f is set.
func (b Binding) Any(f Binding) bool {
	return b&f != 0
}

var bindingNames = [...]string{"Vertex", "Index", "Constant", "StreamOut", "ShaderResource", "UnorderedAccess", "Raw", "Structured"}

// String returns the flags joined with "|", or "None".
func (b Binding) String() string {
	if b == BindNone {
		return "None"
	}
	var parts []string
	for i, name := range bindingNames {
		if b&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// ValidateBufferBindings checks a usage/binding/CPU-read combination before a
// buffer is constructed. Resource factories outside this package call it to
// reject invalid descriptors early.
func ValidateBufferBindings(usage Usage, binding Binding, cpuRead bool) error {
	if usage > UsageStaging {
		return fmt.Errorf("%w: unknown usage %d", ErrInvalidArgument, usage)
	}
	if usage == UsageStaging && binding.Any(gpuBindings) {
		return fmt.Errorf("%w: staging buffers cannot have GPU bindings (%s)", ErrInvalidBinding, binding)
	}
	if binding.Has(BindConstant) && binding != BindConstant {
		return fmt.Errorf("%w: constant binding cannot be combined (%s)", ErrInvalidBinding, binding)
	}
	if binding.Any(BindUnorderedAccess|BindStreamOut) && usage != UsageDefault {
		return fmt.Errorf("%w: %s requires default usage, got %s", ErrInvalidBinding, binding&(BindUnorderedAccess|BindStreamOut), usage)
	}
	if binding.Any(BindRaw|BindStructured) {
		if binding.Has(BindRaw | BindStructured) {
			return fmt.Errorf("%w: raw and structured are exclusive", ErrInvalidBinding)
		}
		if !binding.Any(BindShaderResource | BindUnorderedAccess) {
			return fmt.Errorf("%w: %s requires shader-resource or unordered-access binding", ErrInvalidBinding, binding&(BindRaw|BindStructured))
		}
	}
	if cpuRead && usage != UsageStaging {
		if usage != UsageDefault || !binding.Any(BindShaderResource | BindUnorderedAccess) {
			return fmt.Errorf("%w: CPU read requires staging, or default usage with shader-resource or unordered-access binding", ErrInvalidBinding)
		}
	}
	return nil
}

// nativeUsage translates usage and binding into native buffer usage flags.
func nativeUsage(usage Usage, binding Binding, cpuRead bool) gputypes.BufferUsage {
	var u gputypes.BufferUsage
	if binding.Has(BindVertex) {
		u |= gputypes.BufferUsageVertex
	}
	if binding.Has(BindIndex) {
		u |= gputypes.BufferUsageIndex
	}
	if binding.Has(BindConstant) {
		u |= gputypes.BufferUsageUniform
	}
	if binding.Any(BindShaderResource | BindUnorderedAccess | BindStreamOut | BindRaw | BindStructured) {
		u |= gputypes.BufferUsageStorage
	}

	switch usage {
	case UsageImmutable:
		u |= gputypes.BufferUsageCopySrc
	case UsageDefault:
		u |= gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
		if cpuRead {
			u |= gputypes.BufferUsageMapRead
		}
	case UsageDynamic:
		u |= gputypes.BufferUsageMapWrite | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	case UsageStaging:
		u |= gputypes.BufferUsageMapRead | gputypes.BufferUsageMapWrite | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	}
	return u
}
