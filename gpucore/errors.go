package gpucore

import "errors"

// Errors reported by device contexts.
var (
	// ErrUnknownResource is returned when an ID does not name a live object.
	ErrUnknownResource = errors.New("gpucore: unknown resource")

	// ErrInvalidDescriptor is returned for malformed descriptors.
	ErrInvalidDescriptor = errors.New("gpucore: invalid descriptor")

	// ErrNotMapped is returned when unmapping a buffer that is not mapped.
	ErrNotMapped = errors.New("gpucore: buffer not mapped")

	// ErrAlreadyMapped is returned when mapping a buffer twice.
	ErrAlreadyMapped = errors.New("gpucore: buffer already mapped")

	// ErrMapNotAllowed is returned when the buffer usage does not permit the
	// requested map mode.
	ErrMapNotAllowed = errors.New("gpucore: map mode not allowed for buffer usage")

	// ErrUsageNotAllowed is returned when the buffer usage does not permit an
	// update or copy.
	ErrUsageNotAllowed = errors.New("gpucore: operation not allowed for buffer usage")

	// ErrNoPipeline is returned by draws issued without a pipeline state.
	ErrNoPipeline = errors.New("gpucore: no pipeline state bound")

	// ErrNoIndexBuffer is returned by indexed draws without an index buffer.
	ErrNoIndexBuffer = errors.New("gpucore: no index buffer bound")

	// ErrCopyOutOfBounds is returned when a copy exceeds a buffer.
	ErrCopyOutOfBounds = errors.New("gpucore: copy out of bounds")

	// ErrDeviceClosed is returned by operations on a closed context.
	ErrDeviceClosed = errors.New("gpucore: device context closed")

	// ErrInvalidViewport is returned by Viewport.Validate.
	ErrInvalidViewport = errors.New("gpucore: invalid viewport")
)
