// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/gorgon"
	"github.com/gogpu/gorgon/gpucore"
	"github.com/gogpu/gputypes"
)

var errMismatch = errors.New("data mismatch")

type check struct {
	name      string
	needsDraw bool
	run       func(p *probe, iter int) error
}

var checks = []check{
	{name: "roundtrip", run: (*probe).roundTrip},
	{name: "copy", run: (*probe).copyClipped},
	{name: "views", run: (*probe).viewCache},
	{name: "bindings", run: (*probe).bindings},
	{name: "draw", needsDraw: true, run: (*probe).draw},
}

// probe holds the context under test and the objects shared by iterations.
type probe struct {
	gc       *gorgon.GraphicsContext
	pipeline *gorgon.PipelineState
	target   *gorgon.RenderTargetView
	vertices *gorgon.Buffer
	release  func()
	draws    int
}

var triangle = []float32{
	0, 0.5, 0,
	0.5, -0.5, 0,
	-0.5, -0.5, 0,
}

func newProbe(gc *gorgon.GraphicsContext, backendName string) (*probe, error) {
	p := &probe{gc: gc, release: func() {}}
	targets, ok := drawTargets[backendName]
	if !ok {
		return p, nil
	}
	var err error
	if p.pipeline, p.target, p.release, err = targets(gc.Device()); err != nil {
		return nil, fmt.Errorf("draw targets for %s: %w", backendName, err)
	}
	p.vertices, err = gorgon.NewVertexBuffer(gc, len(triangle)*4, gorgon.UsageImmutable,
		gorgon.WithName("probe_triangle"), gorgon.WithInitialData(gorgon.AsBytes(triangle)))
	if err != nil {
		p.release()
		return nil, err
	}
	return p, nil
}

func (p *probe) canDraw() bool { return p.target != nil }

func (p *probe) close() {
	if p.vertices != nil {
		p.vertices.Dispose()
	}
	p.release()
}

// roundTrip writes a structured buffer and reads it back through a staging
// copy.
func (p *probe) roundTrip(iter int) error {
	want := make([]float32, 64)
	for i := range want {
		want[i] = float32(iter*len(want)+i) * 0.5
	}
	buf, err := gorgon.NewStructuredBuffer(p.gc, 16, 16, gorgon.UsageDefault, gorgon.WithName("probe_roundtrip"))
	if err != nil {
		return err
	}
	defer buf.Dispose()

	if err := gorgon.SetData(buf, want, 0, len(want), 0, gorgon.CopyModeDiscard); err != nil {
		return err
	}
	got, err := gorgon.ReadAll[float32](buf)
	if err != nil {
		return err
	}
	if !slices.Equal(got, want) {
		return fmt.Errorf("%w: read %v, want %v", errMismatch, got[:4], want[:4])
	}
	return nil
}

// copyClipped copies a region of a raw buffer into a staging buffer, then
// copies the tail with a length that must be clipped.
func (p *probe) copyClipped(iter int) error {
	src := make([]byte, 64)
	for i := range src {
		src[i] = byte(iter + i)
	}
	raw, err := gorgon.NewRawBuffer(p.gc, len(src), gorgon.UsageDefault,
		gorgon.WithName("probe_copy_src"), gorgon.WithInitialData(src))
	if err != nil {
		return err
	}
	defer raw.Dispose()
	staging, err := gorgon.NewStagingBuffer(p.gc, 32, gorgon.WithName("probe_copy_dst"))
	if err != nil {
		return err
	}
	defer staging.Dispose()

	if err := raw.CopyTo(staging, 16, 32, 0, gorgon.CopyModeDiscard); err != nil {
		return err
	}
	// The rest of raw past 48 is 16 bytes; it lands at [8, 24).
	if err := raw.CopyTo(staging, 48, 0, 8, gorgon.CopyModeDiscard); err != nil {
		return err
	}
	got := make([]byte, 32)
	if err := staging.GetBytes(got, 0); err != nil {
		return err
	}
	want := slices.Concat(src[16:24], src[48:64], src[40:48])
	if !bytes.Equal(got, want) {
		return fmt.Errorf("%w: staging holds % x, want % x", errMismatch, got, want)
	}
	return nil
}

// viewCache checks that equal view keys share one view and that a key
// cannot be re-registered to another view.
func (p *probe) viewCache(int) error {
	buf, err := gorgon.NewStructuredBuffer(p.gc, 8, 16, gorgon.UsageDefault, gorgon.WithName("probe_views"))
	if err != nil {
		return err
	}
	defer buf.Dispose()

	whole, err := buf.GetStructuredView(0, 0)
	if err != nil {
		return err
	}
	again, err := buf.GetStructuredView(0, 0)
	if err != nil {
		return err
	}
	if whole != again {
		return errors.New("equal keys returned different views")
	}
	head, err := buf.GetStructuredView(0, 4)
	if err != nil {
		return err
	}
	tail, err := buf.GetStructuredView(4, 4)
	if err != nil {
		return err
	}
	if head == whole || head == tail {
		return errors.New("distinct ranges share a view")
	}
	if err := buf.RegisterView(head.Key(), tail); !errors.Is(err, gorgon.ErrDuplicateView) {
		return fmt.Errorf("re-registering a key: got %v, want ErrDuplicateView", err)
	}
	return nil
}

// bindings exercises slot exclusivity, the range-bind skip and re-seating on
// the pixel stage constant buffers.
func (p *probe) bindings(int) error {
	list := p.gc.PixelShader().ConstantBuffers
	a, err := gorgon.NewConstantBuffer(p.gc, 64, gorgon.UsageDefault, gorgon.WithName("probe_cb_a"))
	if err != nil {
		return err
	}
	defer a.Dispose()
	b, err := gorgon.NewConstantBuffer(p.gc, 64, gorgon.UsageDefault, gorgon.WithName("probe_cb_b"))
	if err != nil {
		return err
	}
	defer b.Dispose()
	defer list.Clear()

	if err := list.Set(0, a); err != nil {
		return err
	}
	if p.gc.Validating() {
		if err := list.Set(1, a); !errors.Is(err, gorgon.ErrAlreadyBound) {
			return fmt.Errorf("double bind: got %v, want ErrAlreadyBound", err)
		}
	}
	if err := list.SetRange(1, []*gorgon.Buffer{a, b}); err != nil {
		return err
	}
	if list.Get(1) != nil || list.Get(2) != b {
		return errors.New("range bind did not skip the item bound at slot 0")
	}
	if !list.ReSeat(a) {
		return errors.New("bound buffer not re-seated")
	}
	if n := p.gc.Unbind(a); n != 1 {
		return fmt.Errorf("unbind cleared %d slots, want 1", n)
	}
	return nil
}

// draw builds a triangle draw and submits it.
func (p *probe) draw(iter int) error {
	kind := gorgon.DrawVertex
	if iter%2 == 1 {
		kind = gorgon.DrawInstanced
	}
	b := gorgon.NewDrawCallBuilder(kind).
		VertexRange(0, 3).
		VertexBuffer(0, gorgon.VertexBufferBinding{Buffer: p.vertices, Stride: 12}).
		PipelineState(p.pipeline).
		Topology(gputypes.PrimitiveTopologyTriangleList).
		RenderTarget(0, p.target).
		Viewport(0, gpucore.NewViewport(64, 64))
	if kind.Instanced() {
		b.InstanceRange(0, 2)
	}
	call, err := b.Build()
	if err != nil {
		return err
	}
	if err := p.gc.Submit(call); err != nil {
		return err
	}
	p.draws++
	return nil
}
