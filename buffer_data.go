package gorgon

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/gorgon/gpucore"
)

// AsBytes reinterprets a slice of plain values as bytes without copying.
// T must not contain pointers.
func AsBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*sizeOf[T]()) //nolint:gosec // plain-data reinterpretation
}

// sizeOf returns the byte size of T.
func sizeOf[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// checkSpan reports whether [index, index+count) lies within [0, extent).
func checkSpan(what string, index, count, extent int) error {
	if index < 0 || count < 0 || index > extent || count > extent-index {
		return fmt.Errorf("%w: %s range [%d, %d+%d) exceeds extent %d", ErrOutOfRange, what, index, index, count, extent)
	}
	return nil
}

// SetData writes count elements of source, starting at sourceIndex, into b
// at element destIndex.
//
// Default buffers are updated directly. Dynamic buffers are mapped with the
// given copy mode and staging buffers with a plain write mapping. A count of
// zero is a no-op. Immutable buffers always fail with ErrImmutable.
func SetData[T any](b *Buffer, source []T, sourceIndex, count, destIndex int, mode CopyMode) error {
	if err := b.checkWritable("SetData"); err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	size := sizeOf[T]()
	if size == 0 {
		return fmt.Errorf("%w: zero-sized element type", ErrInvalidArgument)
	}
	if err := checkSpan("source", sourceIndex, count, len(source)); err != nil {
		return err
	}
	if err := checkSpan("destination", destIndex*size, count*size, b.info.SizeInBytes); err != nil {
		return err
	}
	return b.writeBytes(AsBytes(source[sourceIndex:sourceIndex+count]), destIndex*size, mode)
}

// SetBytes writes src into b at destOffset.
func (b *Buffer) SetBytes(src []byte, destOffset int, mode CopyMode) error {
	return SetData(b, src, 0, len(src), destOffset, mode)
}

// GetData reads count elements from b, starting at element sourceIndex, into
// dest at destIndex.
//
// CPU-readable buffers are mapped for reading directly. Other buffers are
// copied into a transient staging buffer first, which is disposed before
// GetData returns.
func GetData[T any](b *Buffer, dest []T, sourceIndex, count, destIndex int) error {
	if err := b.checkLive("GetData"); err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	size := sizeOf[T]()
	if size == 0 {
		return fmt.Errorf("%w: zero-sized element type", ErrInvalidArgument)
	}
	if err := checkSpan("destination", destIndex, count, len(dest)); err != nil {
		return err
	}
	if err := checkSpan("source", sourceIndex*size, count*size, b.info.SizeInBytes); err != nil {
		return err
	}
	return b.readBytes(AsBytes(dest[destIndex:destIndex+count]), sourceIndex*size)
}

// GetBytes reads len(dst) bytes from b at srcOffset.
func (b *Buffer) GetBytes(dst []byte, srcOffset int) error {
	return GetData(b, dst, srcOffset, len(dst), 0)
}

// ReadAll returns the whole contents of b as elements of T. Trailing bytes
// that do not fill a whole element are not returned.
func ReadAll[T any](b *Buffer) ([]T, error) {
	size := sizeOf[T]()
	if size == 0 {
		return nil, fmt.Errorf("%w: zero-sized element type", ErrInvalidArgument)
	}
	out := make([]T, b.info.SizeInBytes/size)
	if err := GetData(b, out, 0, len(out), 0); err != nil {
		return nil, err
	}
	return out, nil
}

// checkWritable rejects disposed and immutable buffers.
func (b *Buffer) checkWritable(op string) error {
	if err := b.checkLive(op); err != nil {
		return err
	}
	if b.info.Usage == UsageImmutable {
		return fmt.Errorf("%w: %s on %q", ErrImmutable, op, b.info.Name)
	}
	return nil
}

// writeBytes moves data into the buffer at offset along the path selected
// by the buffer usage.
func (b *Buffer) writeBytes(data []byte, offset int, mode CopyMode) error {
	dev := b.ctx.device
	switch b.info.Usage {
	case UsageDefault:
		Logger().Debug("gorgon: direct update", "buffer", b.info.Name, "offset", offset, "bytes", len(data))
		if err := dev.UpdateSubresource(b.handle, uint64(offset), data); err != nil {
			return fmt.Errorf("gorgon: update %q: %w", b.info.Name, err)
		}
		return nil
	case UsageDynamic:
		return b.mapWrite(mode.mapMode(), data, offset)
	case UsageStaging:
		return b.mapWrite(gpucore.MapWrite, data, offset)
	default:
		return fmt.Errorf("%w: write to %s buffer %q", ErrImmutable, b.info.Usage, b.info.Name)
	}
}

func (b *Buffer) mapWrite(mode gpucore.MapMode, data []byte, offset int) error {
	Logger().Debug("gorgon: mapped write", "buffer", b.info.Name, "mode", mode, "offset", offset, "bytes", len(data))
	mem, err := b.ctx.device.Map(b.handle, mode)
	if err != nil {
		return fmt.Errorf("gorgon: map %q for %s: %w", b.info.Name, mode, err)
	}
	defer b.ctx.device.Unmap(b.handle)
	if offset+len(data) > len(mem) {
		return fmt.Errorf("%w: mapped region of %q is %d bytes", ErrOutOfRange, b.info.Name, len(mem))
	}
	copy(mem[offset:], data)
	return nil
}

// readBytes fills dst from the buffer at offset, going through a staging
// copy when the buffer cannot be mapped for reading.
func (b *Buffer) readBytes(dst []byte, offset int) error {
	if b.IsCPUReadable() {
		return b.mapRead(dst, offset)
	}

	st, err := b.kind.stagingCopy(b)
	if err != nil {
		return err
	}
	defer st.Dispose()

	Logger().Debug("gorgon: staging read", "buffer", b.info.Name, "staging", st.info.Name)
	if err := b.ctx.device.CopyResource(st.handle, b.handle); err != nil {
		return fmt.Errorf("gorgon: copy %q to staging: %w", b.info.Name, err)
	}
	return st.mapRead(dst, offset)
}

func (b *Buffer) mapRead(dst []byte, offset int) error {
	mem, err := b.ctx.device.Map(b.handle, gpucore.MapRead)
	if err != nil {
		return fmt.Errorf("gorgon: map %q for read: %w", b.info.Name, err)
	}
	defer b.ctx.device.Unmap(b.handle)
	if offset+len(dst) > len(mem) {
		return fmt.Errorf("%w: mapped region of %q is %d bytes", ErrOutOfRange, b.info.Name, len(mem))
	}
	copy(dst, mem[offset:])
	return nil
}

// CopyTo copies byteCount bytes from b at sourceOffset into dest at
// destOffset. A byteCount of zero copies the rest of b.
//
// When both offsets are zero and byteCount matches both buffer sizes the
// whole resource is copied. Otherwise the length is clipped to
// min(byteCount, b.Size-sourceOffset, dest.Size-destOffset) and a region
// copy is issued; a clipped length of zero is a no-op.
//
// b may be its own destination when the source and destination ranges do not
// overlap.
func (b *Buffer) CopyTo(dest *Buffer, sourceOffset, byteCount, destOffset int, mode CopyMode) error {
	if err := b.checkLive("CopyTo"); err != nil {
		return err
	}
	if dest == nil {
		return fmt.Errorf("%w: nil destination", ErrInvalidArgument)
	}
	if err := dest.checkWritable("CopyTo"); err != nil {
		return err
	}
	if err := b.checkSameContext(&dest.resource); err != nil {
		return err
	}
	if sourceOffset < 0 || byteCount < 0 || destOffset < 0 {
		return fmt.Errorf("%w: CopyTo(%d, %d, %d)", ErrOutOfRange, sourceOffset, byteCount, destOffset)
	}

	srcSize, dstSize := b.info.SizeInBytes, dest.info.SizeInBytes
	if byteCount == 0 {
		byteCount = srcSize - sourceOffset
	}
	dev := b.ctx.device

	if dest == b {
		n := min(byteCount, srcSize-sourceOffset, dstSize-destOffset)
		if n > 0 && sourceOffset < destOffset+n && destOffset < sourceOffset+n {
			return fmt.Errorf("%w: %q copy [%d, %d) overlaps [%d, %d)", ErrInvalidArgument, b.info.Name,
				sourceOffset, sourceOffset+n, destOffset, destOffset+n)
		}
	}
	if sourceOffset == 0 && destOffset == 0 && byteCount == srcSize && srcSize == dstSize {
		Logger().Debug("gorgon: whole copy", "src", b.info.Name, "dst", dest.info.Name, "bytes", srcSize)
		if err := dev.CopyResource(dest.handle, b.handle); err != nil {
			return fmt.Errorf("gorgon: copy %q to %q: %w", b.info.Name, dest.info.Name, err)
		}
		return nil
	}

	n := min(byteCount, srcSize-sourceOffset, dstSize-destOffset)
	if n <= 0 {
		Logger().Debug("gorgon: empty copy", "src", b.info.Name, "dst", dest.info.Name)
		return nil
	}
	if n < byteCount {
		Logger().Warn("gorgon: copy clipped", "src", b.info.Name, "dst", dest.info.Name,
			"requested", byteCount, "copied", n)
	}
	err := dev.CopySubresourceRegion(dest.handle, uint64(destOffset), b.handle, uint64(sourceOffset), uint64(n), mode.copyFlags())
	if err != nil {
		return fmt.Errorf("gorgon: copy %q to %q: %w", b.info.Name, dest.info.Name, err)
	}
	return nil
}
