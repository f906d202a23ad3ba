// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

// Package native implements gpucore.DeviceContext on a gogpu/wgpu HAL device.
//
// Every buffer keeps a CPU shadow of its contents. Updates, unmaps and
// unaligned copies are mirrored into the shadow and uploaded through the
// queue; aligned copies run on the GPU. Draws are encoded into one render
// pass per call and submitted with a fence.
package native

import (
	"fmt"
	"image"
	"slices"
	"sync"
	"time"

	"github.com/gogpu/gorgon/backend"
	"github.com/gogpu/gorgon/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// copyAlignment is the offset and size granularity of queue writes and
// buffer-to-buffer copies.
const copyAlignment = 4

// defaultTimeout bounds the wait for each submission.
const defaultTimeout = 5 * time.Second

// Option configures a native Device.
type Option func(*options)

type options struct {
	level   gpucore.FeatureLevel
	label   string
	timeout time.Duration
	release func()
}

// WithFeatureLevel sets the reported feature level. The default is 11_0.
func WithFeatureLevel(level gpucore.FeatureLevel) Option {
	return func(o *options) {
		if level != 0 {
			o.level = level
		}
	}
}

// WithLabel sets the prefix of native debug labels.
func WithLabel(label string) Option {
	return func(o *options) {
		if label != "" {
			o.label = label
		}
	}
}

// WithTimeout bounds the wait for each GPU submission.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// withRelease hands ownership of the HAL device to the Device: release runs
// once from Close.
func withRelease(release func()) Option {
	return func(o *options) {
		o.release = release
	}
}

type buffer struct {
	label  string
	hal    hal.Buffer
	usage  gputypes.BufferUsage
	size   uint64
	shadow []byte // padded to copyAlignment
	mapped bool
	mode   gpucore.MapMode
}

// data returns the visible part of the shadow.
func (b *buffer) data() []byte { return b.shadow[:b.size:b.size] }

type sampler struct {
	desc gpucore.SamplerDesc
	hal  hal.Sampler
}

type stageSlots struct {
	constantBuffers []gpucore.BufferID
	samplers        []gpucore.SamplerID
	resourceViews   []gpucore.ViewID
}

type drawState struct {
	pipeline      gpucore.PipelineStateID
	topology      gputypes.PrimitiveTopology
	vertexBuffers []gpucore.VertexBufferBinding
	indexBuffer   gpucore.BufferID
	indexFormat   gputypes.IndexFormat
	indexOffset   uint32
	renderTargets []gpucore.ViewID
	viewports     []gpucore.Viewport
	scissorRects  []image.Rectangle
}

// Stats counts live native objects and queue traffic.
type Stats struct {
	Buffers       int
	Views         int
	Samplers      int
	Pipelines     int
	RenderTargets int
	BytesUploaded uint64
	GPUCopies     int
	Submissions   int
}

// Device is a gpucore.DeviceContext backed by a HAL device and queue.
//
// Device is safe for concurrent use.
type Device struct {
	mu     sync.Mutex
	opts   options
	device hal.Device
	queue  hal.Queue

	nextID    uint64
	buffers   map[gpucore.BufferID]*buffer
	views     map[gpucore.ViewID]gpucore.ViewDesc
	samplers  map[gpucore.SamplerID]*sampler
	pipelines map[gpucore.PipelineStateID]*pipeline
	targets   map[gpucore.ViewID]*renderTarget

	stages [gpucore.StageCount]stageSlots
	state  drawState
	stats  Stats
	closed bool
}

// New wraps a HAL device and queue. The caller keeps ownership of both;
// Close releases only the objects created through the Device.
func New(device hal.Device, queue hal.Queue, opts ...Option) (*Device, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("native: nil HAL device or queue")
	}
	o := options{level: gpucore.FeatureLevel11_0, label: "native", timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	d := &Device{
		opts:      o,
		device:    device,
		queue:     queue,
		buffers:   make(map[gpucore.BufferID]*buffer),
		views:     make(map[gpucore.ViewID]gpucore.ViewDesc),
		samplers:  make(map[gpucore.SamplerID]*sampler),
		pipelines: make(map[gpucore.PipelineStateID]*pipeline),
		targets:   make(map[gpucore.ViewID]*renderTarget),
		state:     drawState{topology: gputypes.PrimitiveTopologyTriangleList},
	}
	for _, stage := range gpucore.Stages() {
		lim := o.level.Limits(stage)
		d.stages[stage] = stageSlots{
			constantBuffers: make([]gpucore.BufferID, lim.ConstantBuffers),
			samplers:        make([]gpucore.SamplerID, lim.Samplers),
			resourceViews:   make([]gpucore.ViewID, lim.ResourceViews),
		}
	}
	backend.Logger().Debug("native: device created", "label", o.label, "featureLevel", o.level)
	return d, nil
}

func (d *Device) newID() uint64 {
	d.nextID++
	return d.nextID
}

func (d *Device) label(name string) string {
	if name == "" {
		return d.opts.label
	}
	return d.opts.label + ":" + name
}

func alignUp(n uint64) uint64 {
	return (n + copyAlignment - 1) &^ (copyAlignment - 1)
}

func aligned(vals ...uint64) bool {
	for _, v := range vals {
		if v%copyAlignment != 0 {
			return false
		}
	}
	return true
}

// FeatureLevel reports the configured feature level.
func (d *Device) FeatureLevel() gpucore.FeatureLevel { return d.opts.level }

// HAL returns the wrapped HAL device and queue.
func (d *Device) HAL() (hal.Device, hal.Queue) { return d.device, d.queue }

func (d *Device) lookup(id gpucore.BufferID) (*buffer, error) {
	if d.closed {
		return nil, gpucore.ErrDeviceClosed
	}
	b, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: buffer %d", gpucore.ErrUnknownResource, id)
	}
	return b, nil
}

// CreateBuffer allocates a HAL buffer padded to the copy alignment and
// uploads the initial data.
func (d *Device) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}
	if desc == nil || desc.Size == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: buffer size must be positive", gpucore.ErrInvalidDescriptor)
	}
	if uint64(len(desc.InitialData)) > desc.Size {
		return gpucore.InvalidID, fmt.Errorf("%w: %d bytes of initial data for %d-byte buffer",
			gpucore.ErrInvalidDescriptor, len(desc.InitialData), desc.Size)
	}

	padded := alignUp(desc.Size)
	// Uploads go through the queue, so every HAL buffer is a copy destination.
	hb, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: d.label(desc.Label),
		Size:  padded,
		Usage: desc.Usage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create buffer %q: %w", desc.Label, err)
	}

	b := &buffer{
		label:  desc.Label,
		hal:    hb,
		usage:  desc.Usage,
		size:   desc.Size,
		shadow: make([]byte, padded),
	}
	if len(desc.InitialData) > 0 {
		copy(b.shadow, desc.InitialData)
		d.flush(b, 0, uint64(len(desc.InitialData)))
	}

	id := gpucore.BufferID(d.newID())
	d.buffers[id] = b
	d.stats.Buffers++
	return id, nil
}

// flush uploads the shadow bytes covering [offset, offset+n), widened to the
// copy alignment.
func (d *Device) flush(b *buffer, offset, n uint64) {
	if n == 0 {
		return
	}
	lo := offset &^ (copyAlignment - 1)
	hi := alignUp(offset + n)
	d.queue.WriteBuffer(b.hal, lo, b.shadow[lo:hi])
	d.stats.BytesUploaded += hi - lo
}

// DestroyBuffer releases a buffer. Unknown IDs are ignored.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[id]
	if !ok {
		return
	}
	delete(d.buffers, id)
	d.device.DestroyBuffer(b.hal)
	d.stats.Buffers--
}

// UpdateSubresource writes data into a GPU-only buffer.
func (d *Device) UpdateSubresource(id gpucore.BufferID, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, err := d.lookup(id)
	if err != nil {
		return err
	}
	if err := gpucore.CheckUpdate(b.usage); err != nil {
		return fmt.Errorf("native: update %q: %w", b.label, err)
	}
	n := uint64(len(data))
	if err := gpucore.CheckCopyRegion(b.size, offset, n, 0, n); err != nil {
		return err
	}
	copy(b.shadow[offset:], data)
	d.flush(b, offset, n)
	return nil
}

// Map returns the shadow of the buffer. Write mappings are uploaded on
// Unmap. Unordered-access views are never bound to a stage, so the GPU
// does not write buffers and the shadow is always current.
func (d *Device) Map(id gpucore.BufferID, mode gpucore.MapMode) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, err := d.lookup(id)
	if err != nil {
		return nil, err
	}
	if b.mapped {
		return nil, fmt.Errorf("%w: %q", gpucore.ErrAlreadyMapped, b.label)
	}
	if err := gpucore.CheckMapMode(b.usage, mode); err != nil {
		return nil, fmt.Errorf("native: map %q: %w", b.label, err)
	}
	b.mapped = true
	b.mode = mode
	return b.data(), nil
}

// Unmap ends a mapping and uploads the shadow after a write mapping.
func (d *Device) Unmap(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[id]
	if !ok || !b.mapped {
		backend.Logger().Warn("native: unmap of unmapped buffer", "id", id)
		return
	}
	if b.mode.IsWrite() {
		d.flush(b, 0, b.size)
	}
	b.mapped = false
}

// Readback reads the GPU copy of a CPU-readable buffer through the queue.
// It is a diagnostic: Map already serves the same bytes from the shadow.
func (d *Device) Readback(id gpucore.BufferID) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, err := d.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := gpucore.CheckMapMode(b.usage, gpucore.MapRead); err != nil {
		return nil, fmt.Errorf("native: readback %q: %w", b.label, err)
	}
	out := make([]byte, len(b.shadow))
	if err := d.queue.ReadBuffer(b.hal, 0, out); err != nil {
		return nil, fmt.Errorf("native: readback %q: %w", b.label, err)
	}
	return out[:b.size], nil
}

// CopyResource copies the whole of src into dst.
func (d *Device) CopyResource(dst, src gpucore.BufferID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	db, sb, err := d.copyPair(dst, src)
	if err != nil {
		return err
	}
	if db.size != sb.size {
		return fmt.Errorf("%w: CopyResource sizes %d and %d differ", gpucore.ErrCopyOutOfBounds, db.size, sb.size)
	}
	return d.copyRegion(db, 0, sb, 0, sb.size)
}

// CopySubresourceRegion copies a byte range between buffers. Flags are
// hints the HAL does not take.
func (d *Device) CopySubresourceRegion(dst gpucore.BufferID, dstOffset uint64, src gpucore.BufferID, srcOffset, size uint64, _ gpucore.CopyFlags) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	db, sb, err := d.copyPair(dst, src)
	if err != nil {
		return err
	}
	if err := gpucore.CheckCopyRegion(db.size, dstOffset, sb.size, srcOffset, size); err != nil {
		return err
	}
	return d.copyRegion(db, dstOffset, sb, srcOffset, size)
}

func (d *Device) copyPair(dst, src gpucore.BufferID) (*buffer, *buffer, error) {
	db, err := d.lookup(dst)
	if err != nil {
		return nil, nil, err
	}
	sb, err := d.lookup(src)
	if err != nil {
		return nil, nil, err
	}
	if db.mapped || sb.mapped {
		return nil, nil, fmt.Errorf("%w: copy involving mapped buffer", gpucore.ErrAlreadyMapped)
	}
	if err := gpucore.CheckCopyUsage(db.usage, sb.usage); err != nil {
		return nil, nil, fmt.Errorf("native: copy %q to %q: %w", sb.label, db.label, err)
	}
	return db, sb, nil
}

// copyRegion mirrors the copy into the destination shadow, then runs it on
// the GPU when the range is aligned or uploads the widened range otherwise.
func (d *Device) copyRegion(db *buffer, dstOffset uint64, sb *buffer, srcOffset, size uint64) error {
	if size == 0 {
		return nil
	}
	copy(db.shadow[dstOffset:dstOffset+size], sb.shadow[srcOffset:srcOffset+size])
	if db == sb || !aligned(dstOffset, srcOffset, size) {
		d.flush(db, dstOffset, size)
		return nil
	}
	return d.submit("copy", func(enc hal.CommandEncoder) {
		enc.CopyBufferToBuffer(sb.hal, db.hal, []hal.BufferCopy{
			{SrcOffset: srcOffset, DstOffset: dstOffset, Size: size},
		})
		d.stats.GPUCopies++
	})
}

// submit records one command buffer with encode, submits it and waits for
// the fence.
func (d *Device) submit(label string, encode func(enc hal.CommandEncoder)) error {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: d.label(label)})
	if err != nil {
		return fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(d.label(label)); err != nil {
		return fmt.Errorf("native: begin encoding: %w", err)
	}
	encode(encoder)
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("native: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("native: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("native: submit: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, d.opts.timeout)
	if err != nil {
		return fmt.Errorf("native: wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w after %s", ErrGPUTimeout, d.opts.timeout)
	}
	d.stats.Submissions++
	return nil
}

// CreateView records a buffer range for bind-group construction. The HAL
// binds buffer ranges directly, so no native object is created.
func (d *Device) CreateView(desc *gpucore.ViewDesc) (gpucore.ViewID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: nil view descriptor", gpucore.ErrInvalidDescriptor)
	}
	b, err := d.lookup(desc.Buffer)
	if err != nil {
		return gpucore.InvalidID, err
	}
	if err := gpucore.CheckViewDesc(desc, b.size); err != nil {
		return gpucore.InvalidID, err
	}
	if b.usage&gputypes.BufferUsageStorage == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: %s view of non-storage buffer %q", gpucore.ErrUsageNotAllowed, desc.Kind, b.label)
	}
	id := gpucore.ViewID(d.newID())
	d.views[id] = *desc
	d.stats.Views++
	return id, nil
}

// DestroyView forgets a view. Unknown IDs are ignored.
func (d *Device) DestroyView(id gpucore.ViewID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.views[id]; !ok {
		return
	}
	delete(d.views, id)
	d.stats.Views--
}

// CreateSampler creates a HAL sampler. Comparison, anisotropy and LOD
// clamps are kept in the descriptor but not forwarded.
func (d *Device) CreateSampler(desc *gpucore.SamplerDesc) (gpucore.SamplerID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: nil sampler descriptor", gpucore.ErrInvalidDescriptor)
	}
	if err := desc.Validate(); err != nil {
		return gpucore.InvalidID, err
	}
	hs, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        d.label("sampler"),
		AddressModeU: desc.AddressModeU,
		AddressModeV: desc.AddressModeV,
		AddressModeW: desc.AddressModeW,
		MagFilter:    desc.MagFilter,
		MinFilter:    desc.MinFilter,
		MipmapFilter: desc.MipmapFilter,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create sampler: %w", err)
	}
	id := gpucore.SamplerID(d.newID())
	d.samplers[id] = &sampler{desc: *desc, hal: hs}
	d.stats.Samplers++
	return id, nil
}

// DestroySampler releases a sampler. Unknown IDs are ignored.
func (d *Device) DestroySampler(id gpucore.SamplerID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.samplers[id]
	if !ok {
		return
	}
	delete(d.samplers, id)
	d.device.DestroySampler(s.hal)
	d.stats.Samplers--
}

// setSlots copies items into slots from start, dropping what does not fit.
func setSlots[T any](slots []T, start int, items []T) {
	if start < 0 || start >= len(slots) {
		return
	}
	copy(slots[start:], items)
}

// SetConstantBuffers binds constant buffers of stage.
func (d *Device) SetConstantBuffers(stage gpucore.ShaderStage, start int, buffers []gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	setSlots(d.stages[stage].constantBuffers, start, buffers)
}

// SetSamplers binds samplers of stage.
func (d *Device) SetSamplers(stage gpucore.ShaderStage, start int, samplers []gpucore.SamplerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	setSlots(d.stages[stage].samplers, start, samplers)
}

// SetShaderResources binds resource views of stage.
func (d *Device) SetShaderResources(stage gpucore.ShaderStage, start int, views []gpucore.ViewID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	setSlots(d.stages[stage].resourceViews, start, views)
}

// SetVertexBuffers binds vertex buffers from slot start.
func (d *Device) SetVertexBuffers(start int, bindings []gpucore.VertexBufferBinding) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if start < 0 {
		return
	}
	if need := start + len(bindings); need > len(d.state.vertexBuffers) {
		d.state.vertexBuffers = append(d.state.vertexBuffers, make([]gpucore.VertexBufferBinding, need-len(d.state.vertexBuffers))...)
	}
	copy(d.state.vertexBuffers[start:], bindings)
}

// SetIndexBuffer binds the index buffer.
func (d *Device) SetIndexBuffer(id gpucore.BufferID, format gputypes.IndexFormat, offset uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.indexBuffer, d.state.indexFormat, d.state.indexOffset = id, format, offset
}

// SetPipelineState selects the pipeline used by the next draw.
func (d *Device) SetPipelineState(id gpucore.PipelineStateID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.pipeline = id
}

// SetPrimitiveTopology records the topology. HAL pipelines fix their
// topology at creation; a mismatch is reported at draw time.
func (d *Device) SetPrimitiveTopology(topology gputypes.PrimitiveTopology) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.topology = topology
}

// SetRenderTargets binds color targets.
func (d *Device) SetRenderTargets(views []gpucore.ViewID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.renderTargets = slices.Clone(views)
}

// SetViewports sets the viewports. The HAL takes one viewport per pass;
// only the first is applied.
func (d *Device) SetViewports(viewports []gpucore.Viewport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.viewports = slices.Clone(viewports)
}

// SetScissorRects sets the scissor rectangles; only the first is applied.
func (d *Device) SetScissorRects(rects []image.Rectangle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.scissorRects = slices.Clone(rects)
}

// Close releases every HAL object created through the device, and the HAL
// device itself when the Device owns it. Calling Close again has no effect.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	for _, b := range d.buffers {
		d.device.DestroyBuffer(b.hal)
	}
	for _, s := range d.samplers {
		d.device.DestroySampler(s.hal)
	}
	for _, rt := range d.targets {
		rt.destroy(d.device)
	}
	clear(d.buffers)
	clear(d.views)
	clear(d.samplers)
	clear(d.pipelines)
	clear(d.targets)
	d.stats = Stats{}
	d.closed = true
	if d.opts.release != nil {
		d.opts.release()
	}
	backend.Logger().Debug("native: device closed", "label", d.opts.label)
}

// Stats returns object counts and traffic totals.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// BufferData returns a copy of the shadow of a buffer.
func (d *Device) BufferData(id gpucore.BufferID) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[id]
	if !ok {
		return nil, false
	}
	return slices.Clone(b.data()), true
}
