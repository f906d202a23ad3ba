package gorgon

// ContextOption configures a GraphicsContext during creation.
//
// Example:
//
//	// Validating context (the default)
//	gc, err := gorgon.NewGraphicsContext(dev)
//
//	// Release-style context without slot and submission checks
//	gc, err := gorgon.NewGraphicsContext(dev, gorgon.WithValidation(false))
type ContextOption func(*contextOptions)

// contextOptions holds optional configuration for GraphicsContext creation.
type contextOptions struct {
	validate bool
	label    string
}

// defaultOptions returns the default context options.
func defaultOptions() contextOptions {
	return contextOptions{
		validate: true,
		label:    "gorgon",
	}
}

// WithValidation enables or disables debug validation.
//
// With validation enabled, binding an item to a second slot of a list fails
// with ErrAlreadyBound. With it disabled the double binding is tolerated and
// the caller is trusted. Range checks on data transfers are always performed.
func WithValidation(enabled bool) ContextOption {
	return func(o *contextOptions) {
		o.validate = enabled
	}
}

// WithLabel sets the label used in log records and native debug names.
func WithLabel(label string) ContextOption {
	return func(o *contextOptions) {
		if label != "" {
			o.label = label
		}
	}
}

// BufferOption configures buffer creation.
type BufferOption func(*bufferOptions)

type bufferOptions struct {
	name    string
	initial []byte
	binding Binding
	cpuRead bool
}

// WithName sets the debug name of the buffer.
func WithName(name string) BufferOption {
	return func(o *bufferOptions) {
		o.name = name
	}
}

// WithInitialData sets the bytes the buffer is created with. Immutable
// buffers require it. Use [AsBytes] to pass typed slices.
func WithInitialData(data []byte) BufferOption {
	return func(o *bufferOptions) {
		o.initial = data
	}
}

// WithBinding adds binding flags on top of those implied by the buffer kind,
// e.g. BindStreamOut on a vertex buffer or BindUnorderedAccess on a
// structured buffer.
func WithBinding(b Binding) BufferOption {
	return func(o *bufferOptions) {
		o.binding |= b
	}
}

// WithCPURead requests CPU read access. It is only valid for staging
// buffers and for default-usage buffers bound as shader resource or
// unordered access.
func WithCPURead() BufferOption {
	return func(o *bufferOptions) {
		o.cpuRead = true
	}
}
