// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

var (
	colorWrite = framegraph.NewScope(framegraph.StageColorOutput, framegraph.LayoutColorTarget, framegraph.AccessColorWrite)
	copySrc    = framegraph.NewScope(framegraph.StageCopy, framegraph.LayoutCopySrc, framegraph.AccessCopyRead)
	copyDst    = framegraph.NewScope(framegraph.StageCopy, framegraph.LayoutCopyDst, framegraph.AccessCopyWrite)
	storageR   = framegraph.NewScope(framegraph.StageComputeShader, framegraph.LayoutGeneral, framegraph.AccessShaderRead)
	storageW   = framegraph.NewScope(framegraph.StageComputeShader, framegraph.LayoutGeneral, framegraph.AccessShaderWrite)
)

const doubleShader = `
@group(0) @binding(0) var<storage, read> src: array<u32>;
@group(0) @binding(1) var<storage, read_write> dst: array<u32>;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    let i = id.x;
    if (i >= 64u) {
        return;
    }
    dst[i] = src[i] * 2u;
}
`

// createNoopDevice creates a noop device and queue for testing.
// Returns the device, queue, and a cleanup function.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// record computes g and records it into a fresh noop encoder.
func record(t *testing.T, device hal.Device, g *framegraph.Graph) error {
	t.Helper()
	if err := g.Compute(); err != nil {
		t.Fatalf("Compute() = %v", err)
	}
	enc, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "test"})
	if err != nil {
		t.Fatalf("CreateCommandEncoder failed: %v", err)
	}
	if err := enc.BeginEncoding("test"); err != nil {
		t.Fatalf("BeginEncoding failed: %v", err)
	}
	if err := g.Record(&framegraph.RenderContext{Device: device, Encoder: enc}); err != nil {
		enc.DiscardEncoding()
		return err
	}
	cb, err := enc.EndEncoding()
	if err != nil {
		t.Fatalf("EndEncoding failed: %v", err)
	}
	device.FreeCommandBuffer(cb)
	return nil
}

func newTexture(t *testing.T, device hal.Device, w, h uint32) hal.Texture {
	t.Helper()
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "test_texture",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	t.Cleanup(func() { device.DestroyTexture(tex) })
	return tex
}

func newBuffer(t *testing.T, device hal.Device, size uint64, usage gputypes.BufferUsage) hal.Buffer {
	t.Helper()
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{Label: "test_buffer", Size: size, Usage: usage})
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}
	t.Cleanup(func() { device.DestroyBuffer(buf) })
	return buf
}

// fakeResource stands in for a HAL texture or buffer with a distinct
// identity, e.g. the next swapchain image.
type fakeResource struct{ id uintptr }

func (r *fakeResource) Destroy()                            {}
func (r *fakeResource) NativeHandle() uintptr               { return r.id }
func (r *fakeResource) CurrentUsage() gputypes.TextureUsage { return 0 }
func (r *fakeResource) AddPendingRef()                      {}
func (r *fakeResource) DecPendingRef()                      {}

func TestClearCachesViews(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	first := &fakeResource{id: 1}
	g := framegraph.New()
	res := g.ImportTexture("color", first, framegraph.SubresourceRange{})
	c := &Clear{Color: gputypes.Color{R: 1, A: 1}}
	c.Output = g.AddPass("clear", c.Record).AddOut(colorWrite, res)

	for i := 0; i < 2; i++ {
		if err := record(t, device, g); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	if len(c.views.views) != 1 {
		t.Errorf("cached views = %d, want 1", len(c.views.views))
	}

	g.SetTexture(res, &fakeResource{id: 2})
	if err := record(t, device, g); err != nil {
		t.Fatalf("record after swap: %v", err)
	}
	if len(c.views.views) != 2 {
		t.Errorf("cached views after swap = %d, want 2", len(c.views.views))
	}

	c.Destroy(device)
	if len(c.views.views) != 0 {
		t.Errorf("views after Destroy = %d, want 0", len(c.views.views))
	}
}

// viewDevice records the descriptors of created texture views.
type viewDevice struct {
	hal.Device
	descs []hal.TextureViewDescriptor
}

func (d *viewDevice) CreateTextureView(tex hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error) {
	d.descs = append(d.descs, *desc)
	return d.Device.CreateTextureView(tex, desc)
}

func TestClearViewsFollowSubresourceRange(t *testing.T) {
	noopDevice, _, cleanup := createNoopDevice(t)
	defer cleanup()
	device := &viewDevice{Device: noopDevice}

	tex := &fakeResource{id: 1}
	g := framegraph.New()
	mip0 := g.ImportTexture("mip0", tex, framegraph.SubresourceRange{BaseMipLevel: 0, MipLevelCount: 1})
	mip1 := g.ImportTexture("mip1", tex, framegraph.SubresourceRange{BaseMipLevel: 1, MipLevelCount: 1})
	c0 := &Clear{}
	c0.Output = g.AddPass("clear0", c0.Record).AddOut(colorWrite, mip0)
	c1 := &Clear{}
	c1.Output = g.AddPass("clear1", c1.Record).AddOut(colorWrite, mip1)

	if err := record(t, device, g); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(device.descs) != 2 {
		t.Fatalf("views created = %d, want 2", len(device.descs))
	}
	for _, d := range device.descs {
		if d.MipLevelCount != 1 || d.BaseMipLevel > 1 {
			t.Errorf("view mips = %d+%d, want a single level", d.BaseMipLevel, d.MipLevelCount)
		}
	}
	if device.descs[0].BaseMipLevel == device.descs[1].BaseMipLevel {
		t.Error("both clears used the same mip level")
	}
	c0.Destroy(device)
	c1.Destroy(device)
}

func TestClearSkipsVirtualTarget(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	g := framegraph.New()
	c := &Clear{}
	c.Output = g.AddPass("clear", c.Record).AddOut(colorWrite, g.ImportTexture("v", nil, framegraph.SubresourceRange{}))
	if err := record(t, device, g); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(c.views.views) != 0 {
		t.Error("virtual target created a view")
	}
}

func TestComputeCreatesPipelineOnce(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	usage := gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	g := framegraph.New()
	src := g.ImportBuffer("src", newBuffer(t, device, 256, usage), 256)
	dst := g.ImportBuffer("dst", newBuffer(t, device, 256, usage), 256)

	upload := g.AddPass("upload", nil).AddOut(storageW, src)
	c := &Compute{Source: doubleShader, Workgroups: [3]uint32{1}}
	p := g.AddPass("double", c.Record)
	p.AddIn(upload, storageR)
	out := p.AddOut(storageW, dst)
	c.Bindings = []Binding{{Target: upload, ReadOnly: true}, {Target: out}}

	if err := record(t, device, g); err != nil {
		t.Fatalf("record: %v", err)
	}
	pipeline, bg := c.pipeline, c.bindGroup
	if pipeline == nil || bg == nil {
		t.Fatal("pipeline or bind group not created")
	}
	if err := record(t, device, g); err != nil {
		t.Fatalf("second record: %v", err)
	}
	if c.pipeline != pipeline || c.bindGroup != bg {
		t.Error("pipeline objects were recreated for an unchanged graph")
	}

	swapped := &fakeResource{id: 42}
	g.SetBuffer(dst, swapped)
	if err := record(t, device, g); err != nil {
		t.Fatalf("record after swap: %v", err)
	}
	if c.pipeline != pipeline {
		t.Error("buffer swap recreated the pipeline")
	}
	if len(c.bound) != 2 || c.bound[1] != hal.Buffer(swapped) {
		t.Error("bind group not rebuilt for the swapped buffer")
	}

	c.Destroy(device)
	if c.pipeline != nil || c.module != nil || c.bindGroup != nil {
		t.Error("Destroy left pipeline objects behind")
	}
}

func TestComputeRejectsTextureBinding(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	g := framegraph.New()
	c := &Compute{Source: doubleShader}
	out := g.AddPass("bad", c.Record).AddOut(storageW, g.ImportTexture("tex", newTexture(t, device, 4, 4), framegraph.SubresourceRange{}))
	c.Bindings = []Binding{{Target: out}}

	err := record(t, device, g)
	if err == nil || !strings.Contains(err.Error(), "want buffer") {
		t.Errorf("record = %v, want texture binding error", err)
	}
}

func TestComputeInvalidShader(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	g := framegraph.New()
	c := &Compute{Source: "fn main( {"}
	out := g.AddPass("broken", c.Record).AddOut(storageW, g.ImportBuffer("b", newBuffer(t, device, 64, gputypes.BufferUsageStorage), 64))
	c.Bindings = []Binding{{Target: out}}

	if err := record(t, device, g); err == nil {
		t.Error("record with invalid WGSL succeeded")
	}
	if c.pipeline != nil {
		t.Error("pipeline created from invalid WGSL")
	}
}

func TestComputeSkipsVirtualBuffers(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	g := framegraph.New()
	c := &Compute{Source: "not even parsed"}
	out := g.AddPass("virtual", c.Record).AddOut(storageW, g.ImportBuffer("v", nil, 0))
	c.Bindings = []Binding{{Target: out}}

	if err := record(t, device, g); err != nil {
		t.Errorf("record = %v, want nil for virtual buffers", err)
	}
}

func TestRowPitch(t *testing.T) {
	tests := []struct {
		width uint32
		want  uint32
	}{
		{1, 256},
		{64, 256},
		{65, 512},
		{100, 512},
		{128, 512},
	}
	for _, tt := range tests {
		if got := RowPitch(tt.width); got != tt.want {
			t.Errorf("RowPitch(%d) = %d, want %d", tt.width, got, tt.want)
		}
	}
}

func TestReadbackRecord(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	r := &Readback{Width: 8, Height: 4}
	g := framegraph.New()
	color := g.ImportTexture("color", newTexture(t, device, 8, 4), framegraph.SubresourceRange{})
	staging := g.ImportBuffer("staging", newBuffer(t, device, r.BufferSize(),
		gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst), r.BufferSize())

	drawn := g.AddPass("draw", nil).AddOut(colorWrite, color)
	p := g.AddPass("readback", r.Record)
	p.AddIn(drawn, copySrc)
	r.Source = drawn
	r.Dest = p.AddOut(copyDst, staging)

	if err := record(t, device, g); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := r.BufferSize(); got != 256*4 {
		t.Errorf("BufferSize() = %d, want %d", got, 256*4)
	}
}

// copyEncoder records texture-to-buffer copies and ignores barriers.
type copyEncoder struct {
	hal.CommandEncoder
	copies []hal.BufferTextureCopy
}

func (e *copyEncoder) TransitionTextures([]hal.TextureBarrier) {}
func (e *copyEncoder) TransitionBuffers([]hal.BufferBarrier)   {}

func (e *copyEncoder) CopyTextureToBuffer(_ hal.Texture, _ hal.Buffer, regions []hal.BufferTextureCopy) {
	e.copies = append(e.copies, regions...)
}

func TestReadbackCopiesSourceMipLevel(t *testing.T) {
	r := &Readback{Width: 4, Height: 2}
	g := framegraph.New()
	bloom := g.ImportTexture("bloom_mip2", &fakeResource{id: 1},
		framegraph.SubresourceRange{BaseMipLevel: 2, MipLevelCount: 1, BaseArrayLayer: 1, ArrayLayerCount: 1})
	staging := g.ImportBuffer("staging", &fakeResource{id: 2}, r.BufferSize())

	drawn := g.AddPass("down", nil).AddOut(colorWrite, bloom)
	p := g.AddPass("readback", r.Record)
	p.AddIn(drawn, copySrc)
	r.Source = drawn
	r.Dest = p.AddOut(copyDst, staging)

	if err := g.Compute(); err != nil {
		t.Fatalf("Compute() = %v", err)
	}
	enc := &copyEncoder{}
	if err := g.Record(&framegraph.RenderContext{Encoder: enc}); err != nil {
		t.Fatalf("Record() = %v", err)
	}
	if len(enc.copies) != 1 {
		t.Fatalf("copies = %d, want 1", len(enc.copies))
	}
	base := enc.copies[0].TextureBase
	if base.MipLevel != 2 || base.Origin.Z != 1 {
		t.Errorf("copy from mip %d layer %d, want mip 2 layer 1", base.MipLevel, base.Origin.Z)
	}
}

func TestReadbackReadStripsPadding(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	r := &Readback{Width: 2, Height: 3}
	staging := newBuffer(t, device, r.BufferSize(), gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst)
	pattern := make([]byte, r.BufferSize())
	for i := range pattern {
		pattern[i] = byte(i % 256)
	}
	if err := queue.WriteBuffer(staging, 0, pattern); err != nil {
		t.Fatalf("WriteBuffer failed: %v", err)
	}

	got, err := r.Read(device, staging)
	if err != nil {
		t.Fatalf("Read() = %v", err)
	}
	if len(got) != 2*3*4 {
		t.Fatalf("len = %d, want 24", len(got))
	}
	// Every row starts at a 256-byte boundary, so each row reads 0..7.
	row := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	for y := 0; y < 3; y++ {
		if !bytes.Equal(got[y*8:(y+1)*8], row) {
			t.Errorf("row %d = %v, want %v", y, got[y*8:(y+1)*8], row)
		}
	}
}

func TestReadbackReadRejectsUnmappableBuffer(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	r := &Readback{Width: 2, Height: 3}
	if _, err := r.Read(device, &fakeResource{id: 1}); !errors.Is(err, hal.ErrInvalidMapRange) {
		t.Errorf("Read() = %v, want ErrInvalidMapRange", err)
	}
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry()
	if got := strings.Join(reg.Kinds(), ","); got != "clear,compute,none,readback" {
		t.Errorf("Kinds() = %s", got)
	}

	tests := []struct {
		name    string
		kind    string
		cfg     Config
		wantErr bool
		check   func(Recorder) bool
	}{
		{"clear", "clear", Config{Name: "c", Outputs: []framegraph.TargetID{3}},
			false, func(r Recorder) bool { return r.(*Clear).Output == 3 }},
		{"clear rewrite", "clear", Config{Name: "c", Rewrites: []framegraph.TargetID{5}},
			false, func(r Recorder) bool { return r.(*Clear).Output == 5 }},
		{"clear without output", "clear", Config{Name: "c"}, true, nil},
		{"compute", "compute", Config{
			Name: "k", Shader: doubleShader,
			Inputs: []framegraph.TargetID{1}, Outputs: []framegraph.TargetID{2}, Rewrites: []framegraph.TargetID{4},
		}, false, func(r Recorder) bool {
			b := r.(*Compute).Bindings
			return len(b) == 3 && b[0].ReadOnly && !b[1].ReadOnly && b[2].Target == 4
		}},
		{"compute without shader", "compute", Config{Name: "k"}, true, nil},
		{"readback", "readback", Config{
			Name: "r", Inputs: []framegraph.TargetID{0}, Outputs: []framegraph.TargetID{1}, Width: 8, Height: 8,
		}, false, func(r Recorder) bool { return r.(*Readback).Width == 8 }},
		{"readback without output", "readback", Config{Name: "r", Inputs: []framegraph.TargetID{0}}, true, nil},
		{"none", "none", Config{Name: "n"}, false, func(r Recorder) bool { return r == nil }},
		{"unknown", "raytrace", Config{Name: "x"}, true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := reg.Build(tt.kind, tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Build() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && !tt.check(r) {
				t.Errorf("Build() = %#v, unexpected recorder", r)
			}
		})
	}
}
