package gorgon

import "fmt"

// GraphicsResource is implemented by every object a GraphicsContext owns:
// buffers, views and sampler states.
type GraphicsResource interface {
	// Name returns the debug name.
	Name() string
	// Usage returns the residency and access policy.
	Usage() Usage
	// Context returns the owning graphics context.
	Context() *GraphicsContext
	// IsDisposed reports whether Dispose has been called.
	IsDisposed() bool
	// Dispose releases the native object. Calling it again has no effect.
	Dispose()
}

// resource is the state shared by all graphics resources.
type resource struct {
	ctx      *GraphicsContext
	name     string
	usage    Usage
	serial   uint64
	disposed bool
}

// Name returns the debug name.
func (r *resource) Name() string { return r.name }

// Usage returns the residency and access policy.
func (r *resource) Usage() Usage { return r.usage }

// Context returns the owning graphics context.
func (r *resource) Context() *GraphicsContext { return r.ctx }

// IsDisposed reports whether the resource has been disposed.
func (r *resource) IsDisposed() bool { return r.disposed }

// checkLive returns ErrDisposed for disposed resources.
func (r *resource) checkLive(op string) error {
	if r.disposed {
		return fmt.Errorf("%w: %s on %q", ErrDisposed, op, r.name)
	}
	return nil
}

// checkSameContext returns ErrContextMismatch if other belongs to another
// context.
func (r *resource) checkSameContext(other *resource) error {
	if r.ctx != other.ctx {
		return fmt.Errorf("%w: %q and %q", ErrContextMismatch, r.name, other.name)
	}
	return nil
}
