package gorgon

import (
	"errors"
	"testing"

	"github.com/gogpu/gorgon/backend/software"
	"github.com/gogpu/gputypes"
)

func TestViewCacheIdempotent(t *testing.T) {
	gc, dev := newTestContext(t)
	sb := mustStructured(t, gc, 16, 8)
	dev.ResetCalls()

	v1, err := sb.GetStructuredView(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := sb.GetStructuredView(0, 16)
	if err != nil {
		t.Fatal(err)
	}
	if v1 != v2 {
		t.Error("equal requests returned different views")
	}
	if n := len(dev.CallsOf(software.OpCreateView)); n != 1 {
		t.Errorf("created %d native views, want 1", n)
	}

	v3, err := sb.GetStructuredView(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if v3 == v1 {
		t.Error("different ranges share a view")
	}
	if v3.FirstElement() != 4 || v3.ElementCount() != 4 || v3.ElementSize() != 8 {
		t.Errorf("view range = [%d, +%d) of %d-byte elements", v3.FirstElement(), v3.ElementCount(), v3.ElementSize())
	}
	if v3.Buffer() != sb {
		t.Error("Buffer() is not the viewed buffer")
	}

	cached, ok := sb.CachedView(v3.Key())
	if !ok || cached != v3 {
		t.Errorf("CachedView(%+v) = %v, %v", v3.Key(), cached, ok)
	}
}

func TestViewRequests(t *testing.T) {
	gc, _ := newTestContext(t)
	vb, _ := NewVertexBuffer(gc, 64, UsageDefault)
	sb := mustStructured(t, gc, 4, 16)
	rb, _ := NewRawBuffer(gc, 64, UsageDefault)
	typed, _ := NewBuffer(gc, 64, UsageDefault, BindShaderResource)

	tests := []struct {
		name    string
		get     func() (*ShaderResourceView, error)
		count   int
		wantErr error
	}{
		{"typed whole", func() (*ShaderResourceView, error) {
			return typed.GetShaderResourceView(gputypes.TextureFormatRGBA32Float, 0, 0)
		}, 4, nil},
		{"typed r32", func() (*ShaderResourceView, error) {
			return typed.GetShaderResourceView(gputypes.TextureFormatR32Uint, 2, 6)
		}, 6, nil},
		{"raw words", func() (*ShaderResourceView, error) {
			return rb.GetRawView(0, 0)
		}, 16, nil},
		{"typed without format", func() (*ShaderResourceView, error) {
			return typed.GetShaderResourceView(gputypes.TextureFormatUndefined, 0, 0)
		}, 0, ErrInvalidArgument},
		{"unsupported format", func() (*ShaderResourceView, error) {
			return typed.GetShaderResourceView(gputypes.TextureFormatDepth24PlusStencil8, 0, 0)
		}, 0, ErrInvalidArgument},
		{"vertex buffer", func() (*ShaderResourceView, error) {
			return vb.GetShaderResourceView(gputypes.TextureFormatR32Float, 0, 0)
		}, 0, ErrInvalidBinding},
		{"typed view of structured", func() (*ShaderResourceView, error) {
			return sb.GetShaderResourceView(gputypes.TextureFormatR32Float, 0, 0)
		}, 0, ErrInvalidBinding},
		{"raw view of structured", func() (*ShaderResourceView, error) {
			return sb.GetRawView(0, 0)
		}, 0, ErrInvalidBinding},
		{"structured view of typed", func() (*ShaderResourceView, error) {
			return typed.GetStructuredView(0, 0)
		}, 0, ErrInvalidBinding},
		{"past the end", func() (*ShaderResourceView, error) {
			return sb.GetStructuredView(2, 3)
		}, 0, ErrOutOfRange},
		{"negative first", func() (*ShaderResourceView, error) {
			return sb.GetStructuredView(-1, 1)
		}, 0, ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.get()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && v.ElementCount() != tt.count {
				t.Errorf("ElementCount() = %d, want %d", v.ElementCount(), tt.count)
			}
		})
	}
}

func TestUnorderedAccessViews(t *testing.T) {
	gc, _ := newTestContext(t)
	sb := mustStructured(t, gc, 8, 16, WithBinding(BindUnorderedAccess))

	u1, err := sb.GetStructuredUAV(0, 0, ViewCounter)
	if err != nil {
		t.Fatal(err)
	}
	u2, err := sb.GetStructuredUAV(0, 0, ViewCounter)
	if err != nil {
		t.Fatal(err)
	}
	if u1 != u2 {
		t.Error("equal UAV requests returned different views")
	}
	plain, err := sb.GetStructuredUAV(0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if plain == u1 {
		t.Error("UAVs with different flags share a view")
	}
	if _, err := sb.GetStructuredView(0, 0); !errors.Is(err, ErrInvalidBinding) {
		t.Errorf("SRV of UAV-only buffer error = %v, want ErrInvalidBinding", err)
	}

	cached, ok := sb.CachedUAV(u1.Key())
	if !ok || cached != u1 {
		t.Error("CachedUAV did not return the cached view")
	}

	rb, err := NewRawBuffer(gc, 64, UsageDefault, WithBinding(BindUnorderedAccess|BindShaderResource))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rb.GetRawUAV(0, 0); err != nil {
		t.Errorf("GetRawUAV: %v", err)
	}
	if _, err := rb.GetUnorderedAccessView(gputypes.TextureFormatR32Uint, 0, 8); err != nil {
		t.Errorf("GetUnorderedAccessView: %v", err)
	}
}

func TestRegisterView(t *testing.T) {
	gc, _ := newTestContext(t)
	a := mustStructured(t, gc, 8, 4)
	b := mustStructured(t, gc, 8, 4)

	va, err := a.GetStructuredView(0, 4)
	if err != nil {
		t.Fatal(err)
	}
	vb, err := b.GetStructuredView(0, 4)
	if err != nil {
		t.Fatal(err)
	}
	other, err := a.GetStructuredView(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	alias := ViewKey{FirstElement: 0, ElementCount: 4, Flags: ViewAppend}

	if err := a.RegisterView(va.Key(), va); err != nil {
		t.Errorf("re-registering the cached view: %v", err)
	}
	if err := a.RegisterView(va.Key(), other); !errors.Is(err, ErrDuplicateView) {
		t.Errorf("different view under used key error = %v, want ErrDuplicateView", err)
	}
	if err := a.RegisterView(alias, vb); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("view of another buffer error = %v, want ErrInvalidArgument", err)
	}
	if err := a.RegisterView(alias, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil view error = %v, want ErrInvalidArgument", err)
	}

	if err := a.RegisterView(alias, va); err != nil {
		t.Fatalf("RegisterView(alias): %v", err)
	}
	if got, ok := a.CachedView(alias); !ok || got != va {
		t.Error("aliased key does not return the registered view")
	}

	other.Dispose()
	if err := a.RegisterView(ViewKey{ElementCount: 1}, other); !errors.Is(err, ErrDisposed) {
		t.Errorf("disposed view error = %v, want ErrDisposed", err)
	}

	va.Dispose()
	if _, ok := a.CachedView(alias); ok {
		t.Error("aliased key survived Dispose")
	}
}

func TestViewDispose(t *testing.T) {
	gc, dev := newTestContext(t)
	sb := mustStructured(t, gc, 8, 4)
	v, err := sb.GetStructuredView(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := gc.PixelShader().ResourceViews.Set(5, v); err != nil {
		t.Fatal(err)
	}

	v.Dispose()
	if !v.IsDisposed() {
		t.Error("IsDisposed() = false")
	}
	if _, ok := sb.CachedView(v.Key()); ok {
		t.Error("disposed view still cached")
	}
	if got := dev.ShaderResources(StagePixel)[5]; got != 0 {
		t.Errorf("native slot 5 = %d after view Dispose", got)
	}

	v2, err := sb.GetStructuredView(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v2 == v {
		t.Error("disposed view returned again")
	}

	sb.Dispose()
	if !v2.IsDisposed() {
		t.Error("buffer Dispose left its view alive")
	}
	if got := dev.Stats().Views; got != 0 {
		t.Errorf("%d native views alive after buffer Dispose", got)
	}
	if _, err := sb.GetStructuredView(0, 0); !errors.Is(err, ErrDisposed) {
		t.Errorf("view of disposed buffer error = %v, want ErrDisposed", err)
	}
}
