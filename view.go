package gorgon

import (
	"fmt"

	"github.com/gogpu/gorgon/gpucore"
	"github.com/gogpu/gorgon/internal/cache"
	"github.com/gogpu/gputypes"
)

// rawElementSize is the element size of byte-address views.
const rawElementSize = 4

// ViewFlags qualify a buffer view.
type ViewFlags = gpucore.ViewFlags

// View flags.
const (
	ViewRaw     = gpucore.ViewFlagRaw
	ViewAppend  = gpucore.ViewFlagAppend
	ViewCounter = gpucore.ViewFlagCounter
)

// ViewKey identifies a view of a buffer. Equal keys on the same buffer
// always yield the same view.
type ViewKey struct {
	Format       gputypes.TextureFormat
	FirstElement int
	ElementCount int
	Flags        ViewFlags
}

// formatSize returns the element size of typed buffer view formats, or 0.
func formatSize(f gputypes.TextureFormat) int {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatR32Float, gputypes.TextureFormatR32Uint, gputypes.TextureFormatR32Sint:
		return 4
	case gputypes.TextureFormatRG32Float, gputypes.TextureFormatRGBA16Float:
		return 8
	case gputypes.TextureFormatRGBA32Float, gputypes.TextureFormatRGBA32Uint:
		return 16
	default:
		return 0
	}
}

// bufferView is the state shared by shader-resource and unordered-access
// views.
type bufferView struct {
	resource

	buffer      *Buffer
	key         ViewKey
	elementSize int
	handle      gpucore.ViewID
}

// Buffer returns the viewed buffer.
func (v *bufferView) Buffer() *Buffer { return v.buffer }

// Key returns the cache key of the view.
func (v *bufferView) Key() ViewKey { return v.key }

// Format returns the element format. Structured and raw views report
// TextureFormatUndefined.
func (v *bufferView) Format() gputypes.TextureFormat { return v.key.Format }

// FirstElement returns the first viewed element.
func (v *bufferView) FirstElement() int { return v.key.FirstElement }

// ElementCount returns the number of viewed elements.
func (v *bufferView) ElementCount() int { return v.key.ElementCount }

// ElementSize returns the byte size of one element.
func (v *bufferView) ElementSize() int { return v.elementSize }

// Native returns the native view handle.
func (v *bufferView) Native() gpucore.ViewID { return v.handle }

// release unbinds owner from every stage and destroys the native view. The
// caller has already removed it from the buffer cache.
func (v *bufferView) release(owner any) {
	if v.disposed {
		return
	}
	v.ctx.unbindAll(owner)
	v.ctx.device.DestroyView(v.handle)
	v.disposed = true
	v.ctx.untrack(&v.resource)
	Logger().Debug("gorgon: view disposed", "view", v.name)
}

// ShaderResourceView is a read-only shader view over a buffer range.
type ShaderResourceView struct {
	bufferView
}

// Dispose removes the view from its buffer's cache, unbinds it from every
// stage and releases the native view.
func (v *ShaderResourceView) Dispose() {
	if v.disposed {
		return
	}
	forget(v.buffer.srvs, v)
	v.release(v)
}

// UnorderedAccessView is a read/write shader view over a buffer range.
type UnorderedAccessView struct {
	bufferView
}

// Dispose removes the view from its buffer's cache and releases the native
// view.
func (v *UnorderedAccessView) Dispose() {
	if v.disposed {
		return
	}
	forget(v.buffer.uavs, v)
	v.release(v)
}

// forget removes every key under which v is cached, including keys added
// with RegisterView.
func forget[V comparable](c *cache.Cache[ViewKey, V], v V) {
	var keys []ViewKey
	c.Range(func(k ViewKey, cached V) bool {
		if cached == v {
			keys = append(keys, k)
		}
		return true
	})
	for _, k := range keys {
		c.Delete(k)
	}
}

// resolveView validates a view request against the buffer and returns the
// normalized key and element size. count <= 0 selects the rest of the buffer.
func (b *Buffer) resolveView(kind gpucore.ViewKind, format gputypes.TextureFormat, first, count int, flags ViewFlags) (ViewKey, int, error) {
	need := BindShaderResource
	if kind == gpucore.ViewUnorderedAccess {
		need = BindUnorderedAccess
	}
	if !b.info.Binding.Has(need) {
		return ViewKey{}, 0, fmt.Errorf("%w: %s view of %q needs %s binding", ErrInvalidBinding, kind, b.info.Name, need)
	}

	var elemSize int
	switch {
	case flags&ViewRaw != 0:
		if !b.info.Binding.Has(BindRaw) {
			return ViewKey{}, 0, fmt.Errorf("%w: raw view of %q needs raw binding", ErrInvalidBinding, b.info.Name)
		}
		if flags&(ViewAppend|ViewCounter) != 0 {
			return ViewKey{}, 0, fmt.Errorf("%w: append/counter flags on raw view", ErrInvalidArgument)
		}
		elemSize = rawElementSize
		format = gputypes.TextureFormatUndefined
	case format == gputypes.TextureFormatUndefined:
		if !b.info.Binding.Has(BindStructured) {
			return ViewKey{}, 0, fmt.Errorf("%w: structured view of %q needs structured binding", ErrInvalidBinding, b.info.Name)
		}
		if flags&(ViewAppend|ViewCounter) != 0 && kind != gpucore.ViewUnorderedAccess {
			return ViewKey{}, 0, fmt.Errorf("%w: append/counter flags need an unordered-access view", ErrInvalidArgument)
		}
		elemSize = b.info.StructureSize
	default:
		if b.info.Binding.Has(BindStructured) {
			return ViewKey{}, 0, fmt.Errorf("%w: typed view of structured buffer %q", ErrInvalidBinding, b.info.Name)
		}
		if flags != 0 {
			return ViewKey{}, 0, fmt.Errorf("%w: flags %d on typed view", ErrInvalidArgument, flags)
		}
		elemSize = formatSize(format)
		if elemSize == 0 {
			return ViewKey{}, 0, fmt.Errorf("%w: unsupported view format %v", ErrInvalidArgument, format)
		}
	}

	total := b.info.SizeInBytes / elemSize
	if count <= 0 {
		count = total - first
	}
	if first < 0 || count <= 0 || first+count > total {
		return ViewKey{}, 0, fmt.Errorf("%w: view [%d, +%d) of %d elements", ErrOutOfRange, first, count, total)
	}
	return ViewKey{Format: format, FirstElement: first, ElementCount: count, Flags: flags}, elemSize, nil
}

// createView creates the native view described by key.
func (b *Buffer) createView(kind gpucore.ViewKind, key ViewKey, elemSize int) (bufferView, error) {
	name := fmt.Sprintf("%s.%s[%d:%d]", b.info.Name, kind, key.FirstElement, key.FirstElement+key.ElementCount)
	handle, err := b.ctx.device.CreateView(&gpucore.ViewDesc{
		Label:        name,
		Kind:         kind,
		Buffer:       b.handle,
		Format:       key.Format,
		ByteOffset:   uint64(key.FirstElement * elemSize),
		ByteSize:     uint64(key.ElementCount * elemSize),
		FirstElement: uint32(key.FirstElement),
		ElementCount: uint32(key.ElementCount),
		Flags:        key.Flags,
	})
	if err != nil {
		return bufferView{}, fmt.Errorf("gorgon: create %s view of %q: %w", kind, b.info.Name, err)
	}
	Logger().Debug("gorgon: view created", "view", name, "format", key.Format)
	return bufferView{
		resource:    resource{ctx: b.ctx, name: name, usage: b.info.Usage},
		buffer:      b,
		key:         key,
		elementSize: elemSize,
		handle:      handle,
	}, nil
}

func (b *Buffer) shaderResourceView(format gputypes.TextureFormat, first, count int, flags ViewFlags) (*ShaderResourceView, error) {
	if err := b.checkLive("GetShaderResourceView"); err != nil {
		return nil, err
	}
	key, elemSize, err := b.resolveView(gpucore.ViewShaderResource, format, first, count, flags)
	if err != nil {
		return nil, err
	}
	return b.srvs.GetOrCreate(key, func() (*ShaderResourceView, error) {
		bv, err := b.createView(gpucore.ViewShaderResource, key, elemSize)
		if err != nil {
			return nil, err
		}
		v := &ShaderResourceView{bufferView: bv}
		b.ctx.track(&v.resource, v)
		return v, nil
	})
}

func (b *Buffer) unorderedAccessView(format gputypes.TextureFormat, first, count int, flags ViewFlags) (*UnorderedAccessView, error) {
	if err := b.checkLive("GetUnorderedAccessView"); err != nil {
		return nil, err
	}
	key, elemSize, err := b.resolveView(gpucore.ViewUnorderedAccess, format, first, count, flags)
	if err != nil {
		return nil, err
	}
	return b.uavs.GetOrCreate(key, func() (*UnorderedAccessView, error) {
		bv, err := b.createView(gpucore.ViewUnorderedAccess, key, elemSize)
		if err != nil {
			return nil, err
		}
		v := &UnorderedAccessView{bufferView: bv}
		b.ctx.track(&v.resource, v)
		return v, nil
	})
}

// GetShaderResourceView returns the typed shader-resource view of count
// elements of format starting at first. count <= 0 views the rest of the
// buffer. Identical requests return the same view.
func (b *Buffer) GetShaderResourceView(format gputypes.TextureFormat, first, count int) (*ShaderResourceView, error) {
	if format == gputypes.TextureFormatUndefined {
		return nil, fmt.Errorf("%w: typed view needs a format", ErrInvalidArgument)
	}
	return b.shaderResourceView(format, first, count, 0)
}

// GetStructuredView returns the shader-resource view of a structured buffer.
func (b *Buffer) GetStructuredView(first, count int) (*ShaderResourceView, error) {
	return b.shaderResourceView(gputypes.TextureFormatUndefined, first, count, 0)
}

// GetRawView returns the byte-address shader-resource view of a raw buffer.
// first and count are in 32-bit words.
func (b *Buffer) GetRawView(first, count int) (*ShaderResourceView, error) {
	return b.shaderResourceView(gputypes.TextureFormatUndefined, first, count, ViewRaw)
}

// GetUnorderedAccessView returns the typed unordered-access view.
func (b *Buffer) GetUnorderedAccessView(format gputypes.TextureFormat, first, count int) (*UnorderedAccessView, error) {
	if format == gputypes.TextureFormatUndefined {
		return nil, fmt.Errorf("%w: typed view needs a format", ErrInvalidArgument)
	}
	return b.unorderedAccessView(format, first, count, 0)
}

// GetStructuredUAV returns the unordered-access view of a structured buffer.
// flags may include ViewAppend or ViewCounter.
func (b *Buffer) GetStructuredUAV(first, count int, flags ViewFlags) (*UnorderedAccessView, error) {
	return b.unorderedAccessView(gputypes.TextureFormatUndefined, first, count, flags&(ViewAppend|ViewCounter))
}

// GetRawUAV returns the byte-address unordered-access view of a raw buffer.
func (b *Buffer) GetRawUAV(first, count int) (*UnorderedAccessView, error) {
	return b.unorderedAccessView(gputypes.TextureFormatUndefined, first, count, ViewRaw)
}

// CachedView returns the cached shader-resource view for key, if any.
func (b *Buffer) CachedView(key ViewKey) (*ShaderResourceView, bool) {
	return b.srvs.Get(key)
}

// RegisterView stores view under key. Registering the same view again is a
// no-op; registering a different view under a used key fails with
// ErrDuplicateView.
func (b *Buffer) RegisterView(key ViewKey, view *ShaderResourceView) error {
	if view == nil {
		return fmt.Errorf("%w: nil view", ErrInvalidArgument)
	}
	if err := b.checkRegister(&view.bufferView); err != nil {
		return err
	}
	if existing, ok := b.srvs.Get(key); ok {
		if existing != view {
			return fmt.Errorf("%w: %+v on %q", ErrDuplicateView, key, b.info.Name)
		}
		return nil
	}
	b.srvs.Set(key, view)
	return nil
}

// CachedUAV returns the cached unordered-access view for key, if any.
func (b *Buffer) CachedUAV(key ViewKey) (*UnorderedAccessView, bool) {
	return b.uavs.Get(key)
}

// RegisterUAV stores view under key with the same rules as RegisterView.
func (b *Buffer) RegisterUAV(key ViewKey, view *UnorderedAccessView) error {
	if view == nil {
		return fmt.Errorf("%w: nil view", ErrInvalidArgument)
	}
	if err := b.checkRegister(&view.bufferView); err != nil {
		return err
	}
	if existing, ok := b.uavs.Get(key); ok {
		if existing != view {
			return fmt.Errorf("%w: %+v on %q", ErrDuplicateView, key, b.info.Name)
		}
		return nil
	}
	b.uavs.Set(key, view)
	return nil
}

// checkRegister validates a view handed to RegisterView or RegisterUAV.
func (b *Buffer) checkRegister(bv *bufferView) error {
	if err := b.checkLive("RegisterView"); err != nil {
		return err
	}
	if bv.disposed {
		return fmt.Errorf("%w: view %q", ErrDisposed, bv.name)
	}
	if bv.buffer != b {
		return fmt.Errorf("%w: view %q belongs to another buffer", ErrInvalidArgument, bv.name)
	}
	return nil
}
