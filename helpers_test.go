package gorgon

import (
	"testing"

	"github.com/gogpu/gorgon/backend/software"
	"github.com/gogpu/gorgon/gpucore"
)

// newTestContext returns a validating context over a fresh software device.
// Both are closed when the test ends.
func newTestContext(t *testing.T, opts ...ContextOption) (*GraphicsContext, *software.Device) {
	t.Helper()
	return newTestContextAt(t, gpucore.FeatureLevel11_0, opts...)
}

func newTestContextAt(t *testing.T, level gpucore.FeatureLevel, opts ...ContextOption) (*GraphicsContext, *software.Device) {
	t.Helper()
	dev := software.New(software.WithFeatureLevel(level))
	gc, err := NewGraphicsContext(dev, opts...)
	if err != nil {
		t.Fatalf("NewGraphicsContext: %v", err)
	}
	t.Cleanup(func() {
		gc.Close()
		dev.Close()
	})
	return gc, dev
}

func mustStaging(t *testing.T, gc *GraphicsContext, size int) *Buffer {
	t.Helper()
	b, err := NewStagingBuffer(gc, size)
	if err != nil {
		t.Fatalf("NewStagingBuffer(%d): %v", size, err)
	}
	return b
}

func mustConstant(t *testing.T, gc *GraphicsContext, name string) *Buffer {
	t.Helper()
	b, err := NewConstantBuffer(gc, 64, UsageDefault, WithName(name))
	if err != nil {
		t.Fatalf("NewConstantBuffer(%s): %v", name, err)
	}
	return b
}

func mustStructured(t *testing.T, gc *GraphicsContext, count, stride int, opts ...BufferOption) *Buffer {
	t.Helper()
	b, err := NewStructuredBuffer(gc, count, stride, UsageDefault, opts...)
	if err != nil {
		t.Fatalf("NewStructuredBuffer(%d, %d): %v", count, stride, err)
	}
	return b
}

// bufferIDs converts buffers to the recorder's uint64 handle form.
func bufferIDs(bufs ...*Buffer) []uint64 {
	out := make([]uint64, len(bufs))
	for i, b := range bufs {
		if b != nil {
			out[i] = uint64(b.Native())
		}
	}
	return out
}
