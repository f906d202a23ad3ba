package software

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/gorgon/backend"
	"github.com/gogpu/gorgon/gpucore"
	"github.com/gogpu/gputypes"
)

const (
	defaultUsage = gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst | gputypes.BufferUsageStorage
	stagingUsage = gputypes.BufferUsageMapRead | gputypes.BufferUsageMapWrite |
		gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	dynamicUsage = gputypes.BufferUsageMapWrite | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
)

func mustBuffer(t *testing.T, d *Device, size uint64, usage gputypes.BufferUsage, data []byte) gpucore.BufferID {
	t.Helper()
	id, err := d.CreateBuffer(&gpucore.BufferDesc{Label: t.Name(), Size: size, Usage: usage, InitialData: data})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	return id
}

func TestCreateBuffer(t *testing.T) {
	tests := []struct {
		name    string
		desc    *gpucore.BufferDesc
		wantErr error
	}{
		{"nil", nil, gpucore.ErrInvalidDescriptor},
		{"zero size", &gpucore.BufferDesc{Usage: defaultUsage}, gpucore.ErrInvalidDescriptor},
		{"data too long", &gpucore.BufferDesc{Size: 2, Usage: defaultUsage, InitialData: []byte{1, 2, 3}}, gpucore.ErrInvalidDescriptor},
		{"ok", &gpucore.BufferDesc{Size: 4, Usage: defaultUsage, InitialData: []byte{1, 2}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New()
			id, err := d.CreateBuffer(tt.desc)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateBuffer() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if id != gpucore.InvalidID {
					t.Errorf("CreateBuffer() id = %d on error, want 0", id)
				}
				return
			}
			got, ok := d.BufferData(id)
			if !ok {
				t.Fatal("BufferData: buffer missing")
			}
			if want := []byte{1, 2, 0, 0}; !bytes.Equal(got, want) {
				t.Errorf("contents = %v, want %v", got, want)
			}
		})
	}
}

func TestUpdateSubresource(t *testing.T) {
	d := New()
	id := mustBuffer(t, d, 8, defaultUsage, nil)

	if err := d.UpdateSubresource(id, 2, []byte{7, 8, 9}); err != nil {
		t.Fatalf("UpdateSubresource: %v", err)
	}
	got, _ := d.BufferData(id)
	if want := []byte{0, 0, 7, 8, 9, 0, 0, 0}; !bytes.Equal(got, want) {
		t.Errorf("contents = %v, want %v", got, want)
	}

	if err := d.UpdateSubresource(id, 6, []byte{1, 2, 3}); !errors.Is(err, gpucore.ErrCopyOutOfBounds) {
		t.Errorf("overflowing update error = %v, want ErrCopyOutOfBounds", err)
	}

	dyn := mustBuffer(t, d, 8, dynamicUsage, nil)
	if err := d.UpdateSubresource(dyn, 0, []byte{1}); !errors.Is(err, gpucore.ErrUsageNotAllowed) {
		t.Errorf("update of mappable buffer error = %v, want ErrUsageNotAllowed", err)
	}
}

func TestMapUnmap(t *testing.T) {
	d := New()
	id := mustBuffer(t, d, 4, stagingUsage, []byte{1, 2, 3, 4})

	mem, err := d.Map(id, gpucore.MapRead)
	if err != nil {
		t.Fatalf("Map(read): %v", err)
	}
	if !bytes.Equal(mem, []byte{1, 2, 3, 4}) {
		t.Errorf("mapped = %v", mem)
	}
	if _, err := d.Map(id, gpucore.MapRead); !errors.Is(err, gpucore.ErrAlreadyMapped) {
		t.Errorf("second Map error = %v, want ErrAlreadyMapped", err)
	}
	if !d.IsMapped(id) {
		t.Error("IsMapped = false while mapped")
	}
	d.Unmap(id)
	if d.IsMapped(id) {
		t.Error("IsMapped = true after Unmap")
	}

	mem, err = d.Map(id, gpucore.MapWrite)
	if err != nil {
		t.Fatalf("Map(write): %v", err)
	}
	copy(mem, []byte{9, 9})
	d.Unmap(id)
	got, _ := d.BufferData(id)
	if want := []byte{9, 9, 3, 4}; !bytes.Equal(got, want) {
		t.Errorf("contents = %v, want %v", got, want)
	}

	// Unmapping twice is logged, not fatal.
	d.Unmap(id)
}

func TestMapModeRules(t *testing.T) {
	tests := []struct {
		name  string
		usage gputypes.BufferUsage
		mode  gpucore.MapMode
		ok    bool
	}{
		{"default read", defaultUsage, gpucore.MapRead, false},
		{"default write", defaultUsage, gpucore.MapWriteDiscard, false},
		{"dynamic discard", dynamicUsage, gpucore.MapWriteDiscard, true},
		{"dynamic read", dynamicUsage, gpucore.MapRead, false},
		{"staging read", stagingUsage, gpucore.MapRead, true},
		{"staging write", stagingUsage, gpucore.MapWrite, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New()
			id := mustBuffer(t, d, 4, tt.usage, nil)
			_, err := d.Map(id, tt.mode)
			if (err == nil) != tt.ok {
				t.Fatalf("Map(%s) error = %v, want ok=%v", tt.mode, err, tt.ok)
			}
			if err != nil && !errors.Is(err, gpucore.ErrMapNotAllowed) {
				t.Errorf("Map(%s) error = %v, want ErrMapNotAllowed", tt.mode, err)
			}
		})
	}
}

func TestCopy(t *testing.T) {
	d := New()
	src := mustBuffer(t, d, 8, defaultUsage, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	dst := mustBuffer(t, d, 8, stagingUsage, nil)

	if err := d.CopySubresourceRegion(dst, 4, src, 0, 4, gpucore.CopyFlagsNone); err != nil {
		t.Fatalf("CopySubresourceRegion: %v", err)
	}
	got, _ := d.BufferData(dst)
	if want := []byte{0, 0, 0, 0, 1, 2, 3, 4}; !bytes.Equal(got, want) {
		t.Errorf("after region copy = %v, want %v", got, want)
	}

	if err := d.CopySubresourceRegion(dst, 6, src, 0, 4, gpucore.CopyFlagsNone); !errors.Is(err, gpucore.ErrCopyOutOfBounds) {
		t.Errorf("overflowing copy error = %v, want ErrCopyOutOfBounds", err)
	}

	if err := d.CopyResource(dst, src); err != nil {
		t.Fatalf("CopyResource: %v", err)
	}
	got, _ = d.BufferData(dst)
	if want := []byte{1, 2, 3, 4, 5, 6, 7, 8}; !bytes.Equal(got, want) {
		t.Errorf("after full copy = %v, want %v", got, want)
	}

	small := mustBuffer(t, d, 4, stagingUsage, nil)
	if err := d.CopyResource(small, src); !errors.Is(err, gpucore.ErrCopyOutOfBounds) {
		t.Errorf("size-mismatched CopyResource error = %v, want ErrCopyOutOfBounds", err)
	}

	immutable := mustBuffer(t, d, 8, gputypes.BufferUsageCopySrc, nil)
	if err := d.CopyResource(immutable, src); !errors.Is(err, gpucore.ErrUsageNotAllowed) {
		t.Errorf("copy into immutable error = %v, want ErrUsageNotAllowed", err)
	}

	if _, err := d.Map(dst, gpucore.MapRead); err != nil {
		t.Fatal(err)
	}
	if err := d.CopyResource(dst, src); !errors.Is(err, gpucore.ErrAlreadyMapped) {
		t.Errorf("copy into mapped buffer error = %v, want ErrAlreadyMapped", err)
	}

	if got := d.Stats().Copies; got != 2 {
		t.Errorf("Stats().Copies = %d, want 2", got)
	}
}

func TestCreateView(t *testing.T) {
	d := New()
	buf := mustBuffer(t, d, 64, defaultUsage, nil)
	plain := mustBuffer(t, d, 64, gputypes.BufferUsageCopyDst, nil)

	tests := []struct {
		name    string
		desc    *gpucore.ViewDesc
		wantErr error
	}{
		{"nil", nil, gpucore.ErrInvalidDescriptor},
		{"unknown buffer", &gpucore.ViewDesc{Kind: gpucore.ViewShaderResource, Buffer: 999, ByteSize: 4}, gpucore.ErrUnknownResource},
		{"bad kind", &gpucore.ViewDesc{Buffer: buf, ByteSize: 4}, gpucore.ErrInvalidDescriptor},
		{"out of range", &gpucore.ViewDesc{Kind: gpucore.ViewShaderResource, Buffer: buf, ByteOffset: 60, ByteSize: 8}, gpucore.ErrInvalidDescriptor},
		{"not storage", &gpucore.ViewDesc{Kind: gpucore.ViewShaderResource, Buffer: plain, ByteSize: 4}, gpucore.ErrUsageNotAllowed},
		{"srv", &gpucore.ViewDesc{Kind: gpucore.ViewShaderResource, Buffer: buf, ByteSize: 64}, nil},
		{"uav", &gpucore.ViewDesc{Kind: gpucore.ViewUnorderedAccess, Buffer: buf, ByteOffset: 16, ByteSize: 16}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := d.CreateView(tt.desc)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateView() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && id == gpucore.InvalidID {
				t.Error("CreateView() returned the invalid ID")
			}
		})
	}
}

func TestStageSlotsFollowFeatureLevel(t *testing.T) {
	tests := []struct {
		level gpucore.FeatureLevel
		stage gpucore.ShaderStage
		cb    int
		views int
	}{
		{gpucore.FeatureLevel11_0, gpucore.StagePixel, 14, 128},
		{gpucore.FeatureLevel11_0, gpucore.StageHull, 14, 128},
		{gpucore.FeatureLevel10_1, gpucore.StageHull, 0, 0},
		{gpucore.FeatureLevel10_0, gpucore.StageCompute, 14, 128},
		{gpucore.FeatureLevel9_3, gpucore.StageVertex, 14, 0},
		{gpucore.FeatureLevel9_3, gpucore.StageGeometry, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.level.String()+"/"+tt.stage.String(), func(t *testing.T) {
			d := New(WithFeatureLevel(tt.level))
			if got := len(d.ConstantBuffers(tt.stage)); got != tt.cb {
				t.Errorf("constant buffer slots = %d, want %d", got, tt.cb)
			}
			if got := len(d.ShaderResources(tt.stage)); got != tt.views {
				t.Errorf("resource view slots = %d, want %d", got, tt.views)
			}
		})
	}
}

func TestBindingRecorded(t *testing.T) {
	d := New()
	a := mustBuffer(t, d, 16, gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst, nil)
	b := mustBuffer(t, d, 16, gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst, nil)
	d.ResetCalls()

	d.SetConstantBuffers(gpucore.StagePixel, 3, []gpucore.BufferID{a, b})
	d.SetConstantBuffers(gpucore.StagePixel, 4, []gpucore.BufferID{gpucore.InvalidID})

	slots := d.ConstantBuffers(gpucore.StagePixel)
	if slots[3] != a || slots[4] != gpucore.InvalidID {
		t.Errorf("slots[3:5] = %v, want [%d 0]", slots[3:5], a)
	}

	calls := d.CallsOf(OpSetConstantBuffers)
	if len(calls) != 2 {
		t.Fatalf("recorded %d calls, want 2: %v", len(calls), calls)
	}
	if c := calls[0]; c.Stage != gpucore.StagePixel || c.Start != 3 || !slices.Equal(c.IDs, []uint64{uint64(a), uint64(b)}) {
		t.Errorf("first call = %v", c)
	}

	// Writes past the last slot are dropped.
	d.SetConstantBuffers(gpucore.StagePixel, gpucore.MaxConstantBufferSlots-1, []gpucore.BufferID{a, b})
	if got := d.ConstantBuffers(gpucore.StagePixel)[gpucore.MaxConstantBufferSlots-1]; got != a {
		t.Errorf("last slot = %d, want %d", got, a)
	}
}

func TestWithoutRecording(t *testing.T) {
	d := New(WithoutRecording())
	mustBuffer(t, d, 4, defaultUsage, nil)
	d.SetPrimitiveTopology(gputypes.PrimitiveTopologyLineList)
	if n := len(d.Calls()); n != 0 {
		t.Errorf("recorded %d calls with recording disabled", n)
	}
	if d.State().Topology != gputypes.PrimitiveTopologyLineList {
		t.Error("state not updated with recording disabled")
	}
}

func TestDrawValidation(t *testing.T) {
	d := New()
	if err := d.Draw(3, 0); !errors.Is(err, gpucore.ErrNoPipeline) {
		t.Errorf("Draw without pipeline error = %v, want ErrNoPipeline", err)
	}

	d.SetPipelineState(d.CreatePipelineState("triangle"))
	if err := d.Draw(3, 0); err != nil {
		t.Errorf("Draw: %v", err)
	}
	if err := d.DrawIndexed(3, 0, 0); !errors.Is(err, gpucore.ErrNoIndexBuffer) {
		t.Errorf("DrawIndexed without index buffer error = %v, want ErrNoIndexBuffer", err)
	}

	ib := mustBuffer(t, d, 6, gputypes.BufferUsageIndex|gputypes.BufferUsageCopySrc, nil)
	d.SetIndexBuffer(ib, gputypes.IndexFormatUint16, 0)
	if err := d.DrawIndexedInstanced(3, 2, 0, 0, 0); err != nil {
		t.Errorf("DrawIndexedInstanced: %v", err)
	}
	if err := d.DrawInstanced(3, 2, 0, 0); err != nil {
		t.Errorf("DrawInstanced: %v", err)
	}
	if got := d.Stats().Draws; got != 3 {
		t.Errorf("Stats().Draws = %d, want 3", got)
	}

	calls := d.CallsOf(OpDrawIndexedInstanced)
	if len(calls) != 1 || !slices.Equal(calls[0].Args, []int64{3, 2, 0, 0, 0}) {
		t.Errorf("DrawIndexedInstanced recorded as %v", calls)
	}
}

func TestStateSnapshot(t *testing.T) {
	d := New()
	rt := d.CreateRenderTarget("backbuffer")
	d.SetRenderTargets([]gpucore.ViewID{rt})
	d.SetViewports([]gpucore.Viewport{gpucore.NewViewport(640, 480)})
	d.SetVertexBuffers(1, []gpucore.VertexBufferBinding{{Buffer: 5, Stride: 12}})

	s := d.State()
	if !slices.Equal(s.RenderTargets, []gpucore.ViewID{rt}) {
		t.Errorf("RenderTargets = %v", s.RenderTargets)
	}
	if len(s.Viewports) != 1 || s.Viewports[0].Width != 640 {
		t.Errorf("Viewports = %v", s.Viewports)
	}
	if len(s.VertexBuffers) != 2 || s.VertexBuffers[1].Buffer != 5 {
		t.Errorf("VertexBuffers = %v", s.VertexBuffers)
	}

	s.RenderTargets[0] = 0
	if d.State().RenderTargets[0] != rt {
		t.Error("State() aliases device memory")
	}
}

func TestClose(t *testing.T) {
	d := New()
	id := mustBuffer(t, d, 4, defaultUsage, nil)
	d.Close()
	d.Close()

	if _, err := d.CreateBuffer(&gpucore.BufferDesc{Size: 4}); !errors.Is(err, gpucore.ErrDeviceClosed) {
		t.Errorf("CreateBuffer after Close error = %v, want ErrDeviceClosed", err)
	}
	if err := d.UpdateSubresource(id, 0, []byte{1}); !errors.Is(err, gpucore.ErrDeviceClosed) {
		t.Errorf("UpdateSubresource after Close error = %v, want ErrDeviceClosed", err)
	}
	if got := d.Stats().Buffers; got != 0 {
		t.Errorf("Stats().Buffers = %d after Close, want 0", got)
	}
}

func TestBackendRegistered(t *testing.T) {
	if !backend.IsRegistered(backend.BackendSoftware) {
		t.Fatal("software backend not registered")
	}
	b, err := backend.Open(backend.BackendSoftware, backend.Options{FeatureLevel: gpucore.FeatureLevel10_0})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()

	dev := b.Device()
	if dev == nil {
		t.Fatal("Device() = nil after Init")
	}
	if got := dev.FeatureLevel(); got != gpucore.FeatureLevel10_0 {
		t.Errorf("FeatureLevel() = %s, want 10_0", got)
	}
}

func TestBackendLifecycle(t *testing.T) {
	b := NewBackend(backend.Options{})
	if b.Device() != nil {
		t.Error("Device() before Init should be nil")
	}
	if err := b.Init(); err != nil {
		t.Fatal(err)
	}
	sd := b.SoftwareDevice()
	if err := b.Init(); err != nil {
		t.Fatal(err)
	}
	if b.SoftwareDevice() != sd {
		t.Error("second Init replaced the device")
	}
	if sd.FeatureLevel() != gpucore.FeatureLevel11_0 {
		t.Errorf("default feature level = %s, want 11_0", sd.FeatureLevel())
	}
	b.Close()
	if b.Device() != nil {
		t.Error("Device() after Close should be nil")
	}
}
