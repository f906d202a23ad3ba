package gorgon

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// BufferKind identifies the concrete kind of a buffer.
type BufferKind uint8

// Buffer kinds.
const (
	KindGeneric BufferKind = iota
	KindVertex
	KindIndex
	KindConstant
	KindStructured
	KindRaw
)

// String returns the string representation of BufferKind.
func (k BufferKind) String() string {
	switch k {
	case KindGeneric:
		return "generic"
	case KindVertex:
		return "vertex"
	case KindIndex:
		return "index"
	case KindConstant:
		return "constant"
	case KindStructured:
		return "structured"
	case KindRaw:
		return "raw"
	default:
		return fmt.Sprintf("BufferKind(%d)", int(k))
	}
}

// Constant buffer size rules.
const (
	constantAlignment  = 16
	maxConstantBufSize = 65536
)

// bufferKind is the closed set of buffer variants. Each kind validates its
// own descriptor and produces its own staging copy.
type bufferKind interface {
	id() BufferKind
	validate(info *BufferInfo) error
	stagingCopy(b *Buffer) (*Buffer, error)
}

// staging reports whether info describes a staging copy, which carries kind
// metadata but no pipeline binding.
func staging(info *BufferInfo) bool {
	return info.Usage == UsageStaging
}

// requireBinding checks that a non-staging buffer carries the kind's flag.
func requireBinding(info *BufferInfo, kind BufferKind, flag Binding) error {
	if staging(info) || info.Binding.Has(flag) {
		return nil
	}
	return fmt.Errorf("%w: %s buffer %q needs %s binding, has %s", ErrInvalidBinding, kind, info.Name, flag, info.Binding)
}

type genericKind struct{}

func (genericKind) id() BufferKind { return KindGeneric }

func (genericKind) validate(info *BufferInfo) error {
	if info.Binding.Has(BindStructured) {
		return fmt.Errorf("%w: structured buffers need a stride, use NewStructuredBuffer", ErrInvalidArgument)
	}
	return nil
}

func (k genericKind) stagingCopy(b *Buffer) (*Buffer, error) {
	return b.ctx.newStaging(k, b, nil)
}

type vertexKind struct{}

func (vertexKind) id() BufferKind { return KindVertex }

func (vertexKind) validate(info *BufferInfo) error {
	return requireBinding(info, KindVertex, BindVertex)
}

func (k vertexKind) stagingCopy(b *Buffer) (*Buffer, error) {
	return b.ctx.newStaging(k, b, nil)
}

type indexKind struct{}

func (indexKind) id() BufferKind { return KindIndex }

func (indexKind) validate(info *BufferInfo) error {
	if err := requireBinding(info, KindIndex, BindIndex); err != nil {
		return err
	}
	size := indexSize(info.IndexFormat)
	if size == 0 {
		return fmt.Errorf("%w: index format %v", ErrInvalidArgument, info.IndexFormat)
	}
	if info.SizeInBytes%size != 0 {
		return fmt.Errorf("%w: index buffer size %d is not a multiple of %d", ErrInvalidArgument, info.SizeInBytes, size)
	}
	return nil
}

func (k indexKind) stagingCopy(b *Buffer) (*Buffer, error) {
	return b.ctx.newStaging(k, b, func(info *BufferInfo) {
		info.IndexFormat = b.info.IndexFormat
	})
}

// indexSize returns the byte size of one index, or 0 for unknown formats.
func indexSize(f gputypes.IndexFormat) int {
	switch f {
	case gputypes.IndexFormatUint16:
		return 2
	case gputypes.IndexFormatUint32:
		return 4
	default:
		return 0
	}
}

type constantKind struct{}

func (constantKind) id() BufferKind { return KindConstant }

func (constantKind) validate(info *BufferInfo) error {
	if err := requireBinding(info, KindConstant, BindConstant); err != nil {
		return err
	}
	if info.SizeInBytes%constantAlignment != 0 || info.SizeInBytes > maxConstantBufSize {
		return fmt.Errorf("%w: constant buffer size %d must be a multiple of %d and at most %d",
			ErrInvalidArgument, info.SizeInBytes, constantAlignment, maxConstantBufSize)
	}
	return nil
}

func (k constantKind) stagingCopy(b *Buffer) (*Buffer, error) {
	return b.ctx.newStaging(k, b, nil)
}

type structuredKind struct{}

func (structuredKind) id() BufferKind { return KindStructured }

func (structuredKind) validate(info *BufferInfo) error {
	if err := requireBinding(info, KindStructured, BindStructured); err != nil {
		return err
	}
	if info.StructureSize <= 0 || info.StructureSize > MaxStructureSize {
		return fmt.Errorf("%w: structure size %d must be in (0, %d]", ErrInvalidArgument, info.StructureSize, MaxStructureSize)
	}
	if info.SizeInBytes%info.StructureSize != 0 {
		return fmt.Errorf("%w: structured buffer size %d is not a multiple of stride %d",
			ErrInvalidArgument, info.SizeInBytes, info.StructureSize)
	}
	return nil
}

func (k structuredKind) stagingCopy(b *Buffer) (*Buffer, error) {
	return b.ctx.newStaging(k, b, func(info *BufferInfo) {
		info.StructureSize = b.info.StructureSize
	})
}

type rawKind struct{}

func (rawKind) id() BufferKind { return KindRaw }

func (rawKind) validate(info *BufferInfo) error {
	if err := requireBinding(info, KindRaw, BindRaw); err != nil {
		return err
	}
	if info.SizeInBytes%rawElementSize != 0 {
		return fmt.Errorf("%w: raw buffer size %d is not a multiple of %d", ErrInvalidArgument, info.SizeInBytes, rawElementSize)
	}
	return nil
}

func (k rawKind) stagingCopy(b *Buffer) (*Buffer, error) {
	return b.ctx.newStaging(k, b, nil)
}
