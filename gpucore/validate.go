package gpucore

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"
)

// CheckMapMode reports whether a buffer created with usage may be mapped
// with mode. Read mappings need BufferUsageMapRead, write mappings need
// BufferUsageMapWrite.
func CheckMapMode(usage gputypes.BufferUsage, mode MapMode) error {
	switch {
	case mode == MapRead:
		if usage&gputypes.BufferUsageMapRead == 0 {
			return fmt.Errorf("%w: %s", ErrMapNotAllowed, mode)
		}
	case mode.IsWrite():
		if usage&gputypes.BufferUsageMapWrite == 0 {
			return fmt.Errorf("%w: %s", ErrMapNotAllowed, mode)
		}
	default:
		return fmt.Errorf("%w: map mode %d", ErrInvalidDescriptor, mode)
	}
	return nil
}

// CheckUpdate reports whether a buffer created with usage accepts
// UpdateSubresource: it must be a copy destination and not CPU-mappable
// for writing.
func CheckUpdate(usage gputypes.BufferUsage) error {
	if usage&gputypes.BufferUsageCopyDst == 0 || usage&gputypes.BufferUsageMapWrite != 0 {
		return fmt.Errorf("%w: update needs a GPU-only copy destination", ErrUsageNotAllowed)
	}
	return nil
}

// CheckCopyUsage reports whether src may be copied into dst.
func CheckCopyUsage(dst, src gputypes.BufferUsage) error {
	if dst&gputypes.BufferUsageCopyDst == 0 {
		return fmt.Errorf("%w: destination is not a copy destination", ErrUsageNotAllowed)
	}
	if src&gputypes.BufferUsageCopySrc == 0 {
		return fmt.Errorf("%w: source is not a copy source", ErrUsageNotAllowed)
	}
	return nil
}

// CheckCopyRegion reports whether [srcOffset, srcOffset+size) fits a source
// of srcSize bytes and [dstOffset, dstOffset+size) fits a destination of
// dstSize bytes.
func CheckCopyRegion(dstSize, dstOffset, srcSize, srcOffset, size uint64) error {
	if srcOffset > srcSize || size > srcSize-srcOffset ||
		dstOffset > dstSize || size > dstSize-dstOffset {
		return fmt.Errorf("%w: %d bytes from [%d of %d] to [%d of %d]",
			ErrCopyOutOfBounds, size, srcOffset, srcSize, dstOffset, dstSize)
	}
	return nil
}

// CheckViewDesc validates a view descriptor against the size of the viewed
// buffer.
func CheckViewDesc(desc *ViewDesc, bufferSize uint64) error {
	if desc == nil {
		return fmt.Errorf("%w: nil view descriptor", ErrInvalidDescriptor)
	}
	if desc.Kind != ViewShaderResource && desc.Kind != ViewUnorderedAccess {
		return fmt.Errorf("%w: view kind %d", ErrInvalidDescriptor, desc.Kind)
	}
	if desc.ByteSize == 0 || desc.ByteOffset > bufferSize || desc.ByteSize > bufferSize-desc.ByteOffset {
		return fmt.Errorf("%w: view [%d, +%d) of %d-byte buffer", ErrInvalidDescriptor, desc.ByteOffset, desc.ByteSize, bufferSize)
	}
	return nil
}

// MaxSamplerAnisotropy is the highest MaxAnisotropy a sampler accepts.
const MaxSamplerAnisotropy = 16

// Validate reports an error for a NaN or inverted LOD clamp range and for
// anisotropy above MaxSamplerAnisotropy.
func (d *SamplerDesc) Validate() error {
	if math32.IsNaN(d.LodMinClamp) || math32.IsNaN(d.LodMaxClamp) || d.LodMinClamp > d.LodMaxClamp {
		return fmt.Errorf("%w: sampler LOD clamp [%g, %g]", ErrInvalidDescriptor, d.LodMinClamp, d.LodMaxClamp)
	}
	if d.MaxAnisotropy > MaxSamplerAnisotropy {
		return fmt.Errorf("%w: sampler anisotropy %d exceeds %d", ErrInvalidDescriptor, d.MaxAnisotropy, MaxSamplerAnisotropy)
	}
	return nil
}
