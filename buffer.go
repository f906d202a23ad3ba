package gorgon

import (
	"fmt"

	"github.com/gogpu/gorgon/gpucore"
	"github.com/gogpu/gorgon/internal/cache"
	"github.com/gogpu/gputypes"
)

// MaxStructureSize is the largest structured-buffer element stride in bytes.
const MaxStructureSize = 2048

// BufferInfo describes a buffer. It is immutable after creation.
type BufferInfo struct {
	// Name is the debug name.
	Name string

	// SizeInBytes is the buffer size.
	SizeInBytes int

	// Usage is the residency and access policy.
	Usage Usage

	// Binding is the set of pipeline binding flags.
	Binding Binding

	// StructureSize is the element stride of structured buffers, else 0.
	StructureSize int

	// IndexFormat is the element format of index buffers.
	IndexFormat gputypes.IndexFormat

	// AllowCPURead records whether CPU read access was requested.
	AllowCPURead bool
}

// Buffer is a GPU buffer owned by a GraphicsContext.
//
// Lifecycle:
//  1. Create with one of the New*Buffer factories
//  2. Transfer data with SetData, GetData and CopyTo
//  3. Acquire views with the Get*View methods (cached per buffer)
//  4. Call Dispose when the buffer is no longer needed
//
// Dispose releases the native buffer, every cached view and every binding
// slot that still references the buffer.
type Buffer struct {
	resource

	handle gpucore.BufferID
	info   BufferInfo
	kind   bufferKind

	srvs *cache.Cache[ViewKey, *ShaderResourceView]
	uavs *cache.Cache[ViewKey, *UnorderedAccessView]
}

// Info returns the buffer description.
func (b *Buffer) Info() BufferInfo { return b.info }

// SizeInBytes returns the buffer size.
func (b *Buffer) SizeInBytes() int { return b.info.SizeInBytes }

// Binding returns the pipeline binding flags.
func (b *Buffer) Binding() Binding { return b.info.Binding }

// StructureSize returns the element stride of structured buffers, else 0.
func (b *Buffer) StructureSize() int { return b.info.StructureSize }

// IndexFormat returns the element format of index buffers.
func (b *Buffer) IndexFormat() gputypes.IndexFormat { return b.info.IndexFormat }

// Kind returns the buffer kind.
func (b *Buffer) Kind() BufferKind { return b.kind.id() }

// Native returns the native buffer handle.
func (b *Buffer) Native() gpucore.BufferID { return b.handle }

// IsCPUReadable reports whether the buffer can be mapped for reading
// directly: staging buffers always, default buffers bound as shader
// resource or unordered access when CPU read was requested.
func (b *Buffer) IsCPUReadable() bool {
	switch b.info.Usage {
	case UsageStaging:
		return true
	case UsageDefault:
		return b.info.AllowCPURead && b.info.Binding.Any(BindShaderResource|BindUnorderedAccess)
	default:
		return false
	}
}

// String returns a short description for logs.
func (b *Buffer) String() string {
	return fmt.Sprintf("%s buffer %q (%d bytes, %s, %s)", b.kind.id(), b.info.Name, b.info.SizeInBytes, b.info.Usage, b.info.Binding)
}

// Dispose releases the native buffer and every cached view, and clears every
// binding slot that references the buffer. Calling Dispose again has no
// effect.
func (b *Buffer) Dispose() {
	if b.disposed {
		return
	}
	for _, v := range b.srvs.Drain() {
		v.release(v)
	}
	for _, v := range b.uavs.Drain() {
		v.release(v)
	}
	if n := b.ctx.unbindAll(b); n > 0 {
		Logger().Warn("gorgon: disposing bound buffer", "buffer", b.info.Name, "slots", n)
	}
	b.ctx.device.DestroyBuffer(b.handle)
	b.disposed = true
	b.ctx.untrack(&b.resource)
	Logger().Debug("gorgon: buffer disposed", "buffer", b.info.Name)
}

// newBuffer validates info against usage rules and the kind, creates the
// native buffer and registers it with the context.
func (c *GraphicsContext) newBuffer(kind bufferKind, info BufferInfo, initial []byte) (*Buffer, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if info.SizeInBytes <= 0 {
		return nil, fmt.Errorf("%w: buffer size %d", ErrOutOfRange, info.SizeInBytes)
	}
	if err := ValidateBufferBindings(info.Usage, info.Binding, info.AllowCPURead); err != nil {
		return nil, err
	}
	if err := kind.validate(&info); err != nil {
		return nil, err
	}
	if info.Usage == UsageImmutable && len(initial) == 0 {
		return nil, fmt.Errorf("%w: immutable buffer %q requires initial data", ErrInvalidArgument, info.Name)
	}
	if len(initial) > info.SizeInBytes {
		return nil, fmt.Errorf("%w: initial data %d bytes exceeds buffer size %d", ErrOutOfRange, len(initial), info.SizeInBytes)
	}
	if info.Name == "" {
		info.Name = fmt.Sprintf("%s.%s#%d", c.opts.label, kind.id(), c.serial+1)
	}

	handle, err := c.device.CreateBuffer(&gpucore.BufferDesc{
		Label:           info.Name,
		Size:            uint64(info.SizeInBytes),
		Usage:           nativeUsage(info.Usage, info.Binding, info.AllowCPURead),
		StructureStride: uint32(info.StructureSize),
		InitialData:     initial,
	})
	if err != nil {
		return nil, fmt.Errorf("gorgon: create buffer %q: %w", info.Name, err)
	}

	b := &Buffer{
		resource: resource{ctx: c, name: info.Name, usage: info.Usage},
		handle:   handle,
		info:     info,
		kind:     kind,
		srvs:     cache.New[ViewKey, *ShaderResourceView](),
		uavs:     cache.New[ViewKey, *UnorderedAccessView](),
	}
	c.track(&b.resource, b)
	Logger().Debug("gorgon: buffer created", "buffer", info.Name, "kind", kind.id(),
		"size", info.SizeInBytes, "usage", info.Usage, "binding", info.Binding)
	return b, nil
}

func collectBufferOptions(opts []BufferOption) bufferOptions {
	var o bufferOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewBuffer creates a generic buffer with explicit binding flags.
func NewBuffer(ctx *GraphicsContext, size int, usage Usage, binding Binding, opts ...BufferOption) (*Buffer, error) {
	o := collectBufferOptions(opts)
	return ctx.newBuffer(genericKind{}, BufferInfo{
		Name:         o.name,
		SizeInBytes:  size,
		Usage:        usage,
		Binding:      binding | o.binding,
		AllowCPURead: o.cpuRead,
	}, o.initial)
}

// NewStagingBuffer creates a CPU-visible transfer buffer of size bytes.
func NewStagingBuffer(ctx *GraphicsContext, size int, opts ...BufferOption) (*Buffer, error) {
	return NewBuffer(ctx, size, UsageStaging, BindNone, opts...)
}

// NewVertexBuffer creates a vertex buffer of size bytes.
func NewVertexBuffer(ctx *GraphicsContext, size int, usage Usage, opts ...BufferOption) (*Buffer, error) {
	o := collectBufferOptions(opts)
	return ctx.newBuffer(vertexKind{}, BufferInfo{
		Name:         o.name,
		SizeInBytes:  size,
		Usage:        usage,
		Binding:      BindVertex | o.binding,
		AllowCPURead: o.cpuRead,
	}, o.initial)
}

// NewIndexBuffer creates an index buffer holding count indices of format.
func NewIndexBuffer(ctx *GraphicsContext, count int, format gputypes.IndexFormat, usage Usage, opts ...BufferOption) (*Buffer, error) {
	if indexSize(format) == 0 {
		return nil, fmt.Errorf("%w: index format %v", ErrInvalidArgument, format)
	}
	o := collectBufferOptions(opts)
	return ctx.newBuffer(indexKind{}, BufferInfo{
		Name:         o.name,
		SizeInBytes:  count * indexSize(format),
		Usage:        usage,
		Binding:      BindIndex | o.binding,
		IndexFormat:  format,
		AllowCPURead: o.cpuRead,
	}, o.initial)
}

// NewConstantBuffer creates a constant buffer of size bytes. The size must be
// a multiple of 16 and at most 65536.
func NewConstantBuffer(ctx *GraphicsContext, size int, usage Usage, opts ...BufferOption) (*Buffer, error) {
	o := collectBufferOptions(opts)
	return ctx.newBuffer(constantKind{}, BufferInfo{
		Name:        o.name,
		SizeInBytes: size,
		Usage:       usage,
		Binding:     BindConstant | o.binding,
	}, o.initial)
}

// NewStructuredBuffer creates a structured buffer of count elements of
// stride bytes. It is bound as a shader resource unless WithBinding selects
// unordered access.
func NewStructuredBuffer(ctx *GraphicsContext, count, stride int, usage Usage, opts ...BufferOption) (*Buffer, error) {
	o := collectBufferOptions(opts)
	binding := BindStructured | o.binding
	if !binding.Any(BindShaderResource | BindUnorderedAccess) {
		binding |= BindShaderResource
	}
	return ctx.newBuffer(structuredKind{}, BufferInfo{
		Name:          o.name,
		SizeInBytes:   count * stride,
		Usage:         usage,
		Binding:       binding,
		StructureSize: stride,
		AllowCPURead:  o.cpuRead,
	}, o.initial)
}

// NewRawBuffer creates a byte-address buffer of size bytes. It is bound as a
// shader resource unless WithBinding selects unordered access.
func NewRawBuffer(ctx *GraphicsContext, size int, usage Usage, opts ...BufferOption) (*Buffer, error) {
	o := collectBufferOptions(opts)
	binding := BindRaw | o.binding
	if !binding.Any(BindShaderResource | BindUnorderedAccess) {
		binding |= BindShaderResource
	}
	return ctx.newBuffer(rawKind{}, BufferInfo{
		Name:         o.name,
		SizeInBytes:  size,
		Usage:        usage,
		Binding:      binding,
		AllowCPURead: o.cpuRead,
	}, o.initial)
}

// GetStagingInternal returns a new staging buffer with the same size and
// kind metadata as b, for CPU read-back. The caller owns the result and must
// dispose it. A staging buffer is read by mapping it and has no staging copy
// of its own; asking for one fails with ErrUnsupported.
func (b *Buffer) GetStagingInternal() (*Buffer, error) {
	if err := b.checkLive("GetStagingInternal"); err != nil {
		return nil, err
	}
	if staging(&b.info) {
		return nil, fmt.Errorf("%w: %q is already a staging buffer", ErrUnsupported, b.info.Name)
	}
	return b.kind.stagingCopy(b)
}

// newStaging creates the staging counterpart of src with info adjusted by
// the caller's kind.
func (c *GraphicsContext) newStaging(kind bufferKind, src *Buffer, adjust func(*BufferInfo)) (*Buffer, error) {
	info := BufferInfo{
		Name:        src.info.Name + ".staging",
		SizeInBytes: src.info.SizeInBytes,
		Usage:       UsageStaging,
		Binding:     BindNone,
	}
	if adjust != nil {
		adjust(&info)
	}
	return c.newBuffer(kind, info, nil)
}
