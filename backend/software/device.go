package software

import (
	"fmt"
	"image"
	"slices"
	"sync"

	"github.com/gogpu/gorgon/backend"
	"github.com/gogpu/gorgon/gpucore"
	"github.com/gogpu/gputypes"
)

// Option configures a software Device.
type Option func(*options)

type options struct {
	level  gpucore.FeatureLevel
	record bool
	label  string
}

// WithFeatureLevel sets the reported feature level. The default is 11_0.
func WithFeatureLevel(level gpucore.FeatureLevel) Option {
	return func(o *options) {
		if level != 0 {
			o.level = level
		}
	}
}

// WithoutRecording disables the call recorder, for long-running probes.
func WithoutRecording() Option {
	return func(o *options) {
		o.record = false
	}
}

// WithLabel sets the label used in log records.
func WithLabel(label string) Option {
	return func(o *options) {
		if label != "" {
			o.label = label
		}
	}
}

type buffer struct {
	label  string
	usage  gputypes.BufferUsage
	stride uint32
	data   []byte
	mapped bool
	mode   gpucore.MapMode
}

type view struct {
	desc gpucore.ViewDesc
}

// stageSlots is the native binding state of one shader stage.
type stageSlots struct {
	constantBuffers []gpucore.BufferID
	samplers        []gpucore.SamplerID
	resourceViews   []gpucore.ViewID
}

// State is a snapshot of the input-assembler and output-merger state.
type State struct {
	Pipeline      gpucore.PipelineStateID
	Topology      gputypes.PrimitiveTopology
	VertexBuffers []gpucore.VertexBufferBinding
	IndexBuffer   gpucore.BufferID
	IndexFormat   gputypes.IndexFormat
	IndexOffset   uint32
	RenderTargets []gpucore.ViewID
	Viewports     []gpucore.Viewport
	ScissorRects  []image.Rectangle
}

// Stats counts device activity since creation.
type Stats struct {
	Buffers      int
	Views        int
	Samplers     int
	BytesWritten uint64
	BytesRead    uint64
	Copies       int
	Draws        int
}

// Device is an in-memory gpucore.DeviceContext.
//
// Device is safe for concurrent use; every call takes the device lock.
// Slices returned by Map alias the buffer until Unmap.
type Device struct {
	mu   sync.Mutex
	opts options

	nextID    uint64
	buffers   map[gpucore.BufferID]*buffer
	views     map[gpucore.ViewID]*view
	samplers  map[gpucore.SamplerID]gpucore.SamplerDesc
	pipelines map[gpucore.PipelineStateID]string
	targets   map[gpucore.ViewID]string

	stages [gpucore.StageCount]stageSlots
	state  State

	calls  []Call
	stats  Stats
	closed bool
}

var _ gpucore.DeviceContext = (*Device)(nil)

// New creates a software device.
func New(opts ...Option) *Device {
	o := options{level: gpucore.FeatureLevel11_0, record: true, label: "software"}
	for _, opt := range opts {
		opt(&o)
	}
	d := &Device{
		opts:      o,
		buffers:   make(map[gpucore.BufferID]*buffer),
		views:     make(map[gpucore.ViewID]*view),
		samplers:  make(map[gpucore.SamplerID]gpucore.SamplerDesc),
		pipelines: make(map[gpucore.PipelineStateID]string),
		targets:   make(map[gpucore.ViewID]string),
		state:     State{Topology: gputypes.PrimitiveTopologyTriangleList},
	}
	for _, stage := range gpucore.Stages() {
		lim := o.level.Limits(stage)
		d.stages[stage] = stageSlots{
			constantBuffers: make([]gpucore.BufferID, lim.ConstantBuffers),
			samplers:        make([]gpucore.SamplerID, lim.Samplers),
			resourceViews:   make([]gpucore.ViewID, lim.ResourceViews),
		}
	}
	backend.Logger().Debug("software: device created", "label", o.label, "featureLevel", o.level)
	return d
}

func (d *Device) newID() uint64 {
	d.nextID++
	return d.nextID
}

// FeatureLevel reports the configured feature level.
func (d *Device) FeatureLevel() gpucore.FeatureLevel { return d.opts.level }

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

// CreateBuffer allocates a zeroed byte slice and copies the initial data.
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

	b := &buffer{
		label:  desc.Label,
		usage:  desc.Usage,
		stride: desc.StructureStride,
		data:   make([]byte, desc.Size),
	}
	copy(b.data, desc.InitialData)

	id := gpucore.BufferID(d.newID())
	d.buffers[id] = b
	d.stats.Buffers++
	d.stats.BytesWritten += uint64(len(desc.InitialData))
	d.record(Call{Op: OpCreateBuffer, IDs: []uint64{uint64(id)}, Args: []int64{int64(desc.Size)}})
	return id, nil
}

// DestroyBuffer releases a buffer. Unknown IDs are ignored.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.buffers[id]; !ok {
		return
	}
	delete(d.buffers, id)
	d.stats.Buffers--
	d.record(Call{Op: OpDestroyBuffer, IDs: []uint64{uint64(id)}})
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
		return fmt.Errorf("software: update %q: %w", b.label, err)
	}
	if err := gpucore.CheckCopyRegion(uint64(len(b.data)), offset, uint64(len(data)), 0, uint64(len(data))); err != nil {
		return err
	}
	copy(b.data[offset:], data)
	d.stats.BytesWritten += uint64(len(data))
	d.record(Call{Op: OpUpdateSubresource, IDs: []uint64{uint64(id)}, Args: []int64{int64(offset), int64(len(data))}})
	return nil
}

// Map returns the buffer memory. Discard mappings keep the previous
// contents; callers must not rely on them.
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
		return nil, fmt.Errorf("software: map %q: %w", b.label, err)
	}
	b.mapped = true
	b.mode = mode
	d.record(Call{Op: OpMap, IDs: []uint64{uint64(id)}, Args: []int64{int64(mode)}})
	return b.data, nil
}

// Unmap ends a mapping.
func (d *Device) Unmap(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[id]
	if !ok || !b.mapped {
		backend.Logger().Warn("software: unmap of unmapped buffer", "id", id)
		return
	}
	if b.mode.IsWrite() {
		d.stats.BytesWritten += uint64(len(b.data))
	} else {
		d.stats.BytesRead += uint64(len(b.data))
	}
	b.mapped = false
	d.record(Call{Op: OpUnmap, IDs: []uint64{uint64(id)}})
}

// CopyResource copies the whole of src into dst.
func (d *Device) CopyResource(dst, src gpucore.BufferID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	db, sb, err := d.copyPair(dst, src)
	if err != nil {
		return err
	}
	if len(db.data) != len(sb.data) {
		return fmt.Errorf("%w: CopyResource sizes %d and %d differ", gpucore.ErrCopyOutOfBounds, len(db.data), len(sb.data))
	}
	copy(db.data, sb.data)
	d.stats.Copies++
	d.record(Call{Op: OpCopyResource, IDs: []uint64{uint64(dst), uint64(src)}})
	return nil
}

// CopySubresourceRegion copies a byte range between buffers.
func (d *Device) CopySubresourceRegion(dst gpucore.BufferID, dstOffset uint64, src gpucore.BufferID, srcOffset, size uint64, flags gpucore.CopyFlags) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	db, sb, err := d.copyPair(dst, src)
	if err != nil {
		return err
	}
	if err := gpucore.CheckCopyRegion(uint64(len(db.data)), dstOffset, uint64(len(sb.data)), srcOffset, size); err != nil {
		return err
	}
	copy(db.data[dstOffset:dstOffset+size], sb.data[srcOffset:srcOffset+size])
	d.stats.Copies++
	d.record(Call{
		Op:   OpCopySubresourceRegion,
		IDs:  []uint64{uint64(dst), uint64(src)},
		Args: []int64{int64(dstOffset), int64(srcOffset), int64(size), int64(flags)},
	})
	return nil
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
		return nil, nil, fmt.Errorf("software: copy %q to %q: %w", sb.label, db.label, err)
	}
	return db, sb, nil
}

// CreateView records a buffer view.
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
	if err := gpucore.CheckViewDesc(desc, uint64(len(b.data))); err != nil {
		return gpucore.InvalidID, err
	}
	if b.usage&gputypes.BufferUsageStorage == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: %s view of non-storage buffer %q", gpucore.ErrUsageNotAllowed, desc.Kind, b.label)
	}

	id := gpucore.ViewID(d.newID())
	d.views[id] = &view{desc: *desc}
	d.stats.Views++
	d.record(Call{Op: OpCreateView, IDs: []uint64{uint64(id), uint64(desc.Buffer)},
		Args: []int64{int64(desc.Kind), int64(desc.ByteOffset), int64(desc.ByteSize)}})
	return id, nil
}

// DestroyView releases a view.
func (d *Device) DestroyView(id gpucore.ViewID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.views[id]; !ok {
		return
	}
	delete(d.views, id)
	d.stats.Views--
	d.record(Call{Op: OpDestroyView, IDs: []uint64{uint64(id)}})
}

// CreateSampler records a sampler.
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
	id := gpucore.SamplerID(d.newID())
	d.samplers[id] = *desc
	d.stats.Samplers++
	d.record(Call{Op: OpCreateSampler, IDs: []uint64{uint64(id)}})
	return id, nil
}

// DestroySampler releases a sampler.
func (d *Device) DestroySampler(id gpucore.SamplerID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.samplers[id]; !ok {
		return
	}
	delete(d.samplers, id)
	d.stats.Samplers--
	d.record(Call{Op: OpDestroySampler, IDs: []uint64{uint64(id)}})
}

// setSlots copies items into slots at start, dropping what falls beyond the
// stage limit as a driver would.
func setSlots[T any](slots []T, start int, items []T) {
	if start < 0 || start >= len(slots) {
		return
	}
	copy(slots[start:], items)
}

// SetConstantBuffers binds constant buffers to stage slots.
func (d *Device) SetConstantBuffers(stage gpucore.ShaderStage, start int, buffers []gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	setSlots(d.stages[stage].constantBuffers, start, buffers)
	d.record(Call{Op: OpSetConstantBuffers, Stage: stage, Start: start, IDs: ids(buffers)})
}

// SetSamplers binds samplers to stage slots.
func (d *Device) SetSamplers(stage gpucore.ShaderStage, start int, samplers []gpucore.SamplerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	setSlots(d.stages[stage].samplers, start, samplers)
	d.record(Call{Op: OpSetSamplers, Stage: stage, Start: start, IDs: ids(samplers)})
}

// SetShaderResources binds resource views to stage slots.
func (d *Device) SetShaderResources(stage gpucore.ShaderStage, start int, views []gpucore.ViewID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	setSlots(d.stages[stage].resourceViews, start, views)
	d.record(Call{Op: OpSetShaderResources, Stage: stage, Start: start, IDs: ids(views)})
}

// SetVertexBuffers binds vertex buffers to input slots.
func (d *Device) SetVertexBuffers(start int, bindings []gpucore.VertexBufferBinding) {
	d.mu.Lock()
	defer d.mu.Unlock()

	vb := d.state.VertexBuffers
	for len(vb) < start+len(bindings) {
		vb = append(vb, gpucore.VertexBufferBinding{})
	}
	copy(vb[start:], bindings)
	d.state.VertexBuffers = vb

	c := Call{Op: OpSetVertexBuffers, Start: start}
	for _, b := range bindings {
		c.IDs = append(c.IDs, uint64(b.Buffer))
		c.Args = append(c.Args, int64(b.Stride), int64(b.Offset))
	}
	d.record(c)
}

// SetIndexBuffer binds the index buffer.
func (d *Device) SetIndexBuffer(id gpucore.BufferID, format gputypes.IndexFormat, offset uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.IndexBuffer, d.state.IndexFormat, d.state.IndexOffset = id, format, offset
	d.record(Call{Op: OpSetIndexBuffer, IDs: []uint64{uint64(id)}, Args: []int64{int64(format), int64(offset)}})
}

// SetPipelineState binds a pipeline state.
func (d *Device) SetPipelineState(id gpucore.PipelineStateID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Pipeline = id
	d.record(Call{Op: OpSetPipelineState, IDs: []uint64{uint64(id)}})
}

// SetPrimitiveTopology sets the primitive topology.
func (d *Device) SetPrimitiveTopology(topology gputypes.PrimitiveTopology) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Topology = topology
	d.record(Call{Op: OpSetPrimitiveTopology, Args: []int64{int64(topology)}})
}

// SetRenderTargets binds render-target views.
func (d *Device) SetRenderTargets(views []gpucore.ViewID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.RenderTargets = slices.Clone(views)
	d.record(Call{Op: OpSetRenderTargets, IDs: ids(views)})
}

// SetViewports sets the viewports.
func (d *Device) SetViewports(viewports []gpucore.Viewport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Viewports = slices.Clone(viewports)
	d.record(Call{Op: OpSetViewports, Args: []int64{int64(len(viewports))}})
}

// SetScissorRects sets the scissor rectangles.
func (d *Device) SetScissorRects(rects []image.Rectangle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.ScissorRects = slices.Clone(rects)
	d.record(Call{Op: OpSetScissorRects, Args: []int64{int64(len(rects))}})
}

// checkDraw verifies the state an issued draw needs.
func (d *Device) checkDraw(indexed bool) error {
	if d.closed {
		return gpucore.ErrDeviceClosed
	}
	if _, ok := d.pipelines[d.state.Pipeline]; !ok {
		return gpucore.ErrNoPipeline
	}
	if indexed {
		if _, ok := d.buffers[d.state.IndexBuffer]; !ok {
			return gpucore.ErrNoIndexBuffer
		}
	}
	return nil
}

func (d *Device) draw(op Op, indexed bool, args ...int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkDraw(indexed); err != nil {
		return err
	}
	d.stats.Draws++
	d.record(Call{Op: op, Args: args})
	return nil
}

// Draw records a non-indexed draw.
func (d *Device) Draw(vertexCount, startVertex uint32) error {
	return d.draw(OpDraw, false, int64(vertexCount), int64(startVertex))
}

// DrawIndexed records an indexed draw.
func (d *Device) DrawIndexed(indexCount, startIndex uint32, baseVertex int32) error {
	return d.draw(OpDrawIndexed, true, int64(indexCount), int64(startIndex), int64(baseVertex))
}

// DrawInstanced records an instanced draw.
func (d *Device) DrawInstanced(vertexCountPerInstance, instanceCount, startVertex, startInstance uint32) error {
	return d.draw(OpDrawInstanced, false,
		int64(vertexCountPerInstance), int64(instanceCount), int64(startVertex), int64(startInstance))
}

// DrawIndexedInstanced records an indexed, instanced draw.
func (d *Device) DrawIndexedInstanced(indexCountPerInstance, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) error {
	return d.draw(OpDrawIndexedInstanced, true,
		int64(indexCountPerInstance), int64(instanceCount), int64(startIndex), int64(baseVertex), int64(startInstance))
}

// Close releases every object. Later calls fail with gpucore.ErrDeviceClosed.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	if n := len(d.buffers); n > 0 {
		backend.Logger().Debug("software: releasing live buffers on close", "count", n)
	}
	clear(d.buffers)
	clear(d.views)
	clear(d.samplers)
	clear(d.pipelines)
	clear(d.targets)
	d.stats.Buffers, d.stats.Views, d.stats.Samplers = 0, 0, 0
	d.closed = true
}

// CreatePipelineState registers a pipeline state object. The software device
// runs no shaders; the handle only satisfies draw validation.
func (d *Device) CreatePipelineState(label string) gpucore.PipelineStateID {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpucore.PipelineStateID(d.newID())
	d.pipelines[id] = label
	return id
}

// CreateRenderTarget registers a render-target view.
func (d *Device) CreateRenderTarget(label string) gpucore.ViewID {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpucore.ViewID(d.newID())
	d.targets[id] = label
	return id
}

// BufferData returns a copy of the contents of a buffer.
func (d *Device) BufferData(id gpucore.BufferID) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return nil, false
	}
	return slices.Clone(b.data), true
}

// IsMapped reports whether a buffer is currently mapped.
func (d *Device) IsMapped(id gpucore.BufferID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	return ok && b.mapped
}

// ConstantBuffers returns the native constant-buffer slots of stage.
func (d *Device) ConstantBuffers(stage gpucore.ShaderStage) []gpucore.BufferID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.stages[stage].constantBuffers)
}

// Samplers returns the native sampler slots of stage.
func (d *Device) Samplers(stage gpucore.ShaderStage) []gpucore.SamplerID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.stages[stage].samplers)
}

// ShaderResources returns the native resource-view slots of stage.
func (d *Device) ShaderResources(stage gpucore.ShaderStage) []gpucore.ViewID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.stages[stage].resourceViews)
}

// State returns a snapshot of the pipeline state outside the shader stages.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.state
	s.VertexBuffers = slices.Clone(s.VertexBuffers)
	s.RenderTargets = slices.Clone(s.RenderTargets)
	s.Viewports = slices.Clone(s.Viewports)
	s.ScissorRects = slices.Clone(s.ScissorRects)
	return s
}

// Stats returns the activity counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}
