package gorgon

import "errors"

// Errors returned by buffer, view and binding operations. Callers test them
// with errors.Is; returned errors wrap them with call-specific detail.
var (
	// ErrDisposed is returned by operations on a disposed resource.
	ErrDisposed = errors.New("gorgon: resource disposed")

	// ErrImmutable is returned when writing to an immutable buffer.
	ErrImmutable = errors.New("gorgon: buffer is immutable")

	// ErrOutOfRange is returned for negative or overflowing indices, counts,
	// offsets and slots.
	ErrOutOfRange = errors.New("gorgon: argument out of range")

	// ErrInvalidBinding is returned for illegal usage/binding combinations.
	ErrInvalidBinding = errors.New("gorgon: invalid buffer binding")

	// ErrInvalidArgument is returned for malformed descriptors and arguments.
	ErrInvalidArgument = errors.New("gorgon: invalid argument")

	// ErrUnsupported is returned for operations a buffer kind does not offer.
	ErrUnsupported = errors.New("gorgon: operation not supported")

	// ErrAlreadyBound is returned when an item is bound to a second slot of
	// the same binding list.
	ErrAlreadyBound = errors.New("gorgon: item already bound to another slot")

	// ErrDuplicateView is returned when registering a different view under a
	// key that is already cached.
	ErrDuplicateView = errors.New("gorgon: view already registered for key")

	// ErrContextMismatch is returned when resources of two graphics contexts
	// are mixed.
	ErrContextMismatch = errors.New("gorgon: resource belongs to another context")

	// ErrIncompleteDrawCall is returned by Submit when a draw call lacks a
	// required resource.
	ErrIncompleteDrawCall = errors.New("gorgon: incomplete draw call")

	// ErrContextClosed is returned by operations on a closed graphics context.
	ErrContextClosed = errors.New("gorgon: graphics context closed")
)
