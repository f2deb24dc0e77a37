// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/passes"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

const extent = 64

var (
	colorWrite  = framegraph.NewScope(framegraph.StageColorOutput, framegraph.LayoutColorTarget, framegraph.AccessColorWrite)
	fragRead    = framegraph.NewScope(framegraph.StageFragmentShader, framegraph.LayoutShaderRead, framegraph.AccessShaderRead)
	computeRead = framegraph.NewScope(framegraph.StageComputeShader, framegraph.LayoutShaderRead, framegraph.AccessShaderRead)
	storageRW   = framegraph.NewScope(framegraph.StageComputeShader, framegraph.LayoutStorage,
		framegraph.AccessShaderRead|framegraph.AccessShaderWrite)
	depthWrite = framegraph.NewScope(framegraph.StageDepthStencil, framegraph.LayoutDepthTarget,
		framegraph.AccessDepthRead|framegraph.AccessDepthWrite)
	depthRead = framegraph.NewScope(framegraph.StageFragmentShader, framegraph.LayoutDepthRead, framegraph.AccessShaderRead)
	copySrc   = framegraph.NewScope(framegraph.StageCopy, framegraph.LayoutCopySrc, framegraph.AccessCopyRead)
	copyDst   = framegraph.NewScope(framegraph.StageCopy, framegraph.LayoutGeneral, framegraph.AccessCopyWrite)
)

// deferred is the built-in demo graph: a G-buffer, a lighting pass, a bloom
// mip chain blurred down and then rewritten in place on the way up, a
// tonemap into a flex target and a readback of the result.
type deferred struct {
	graph     *framegraph.Graph
	device    hal.Device
	textures  []hal.Texture
	buffers   []hal.Buffer
	recorders []passes.Recorder
}

func buildDeferred(device hal.Device, mips int, opts ...framegraph.Option) (*deferred, error) {
	if mips < 1 {
		return nil, fmt.Errorf("bloom chain needs at least one mip, got %d", mips)
	}
	d := &deferred{graph: framegraph.New(opts...), device: device}
	g := d.graph

	albedo, err := d.texture("albedo", gputypes.TextureFormatRGBA8Unorm, 1)
	if err != nil {
		return nil, err
	}
	normal, err := d.texture("normal", gputypes.TextureFormatRGBA8Unorm, 1)
	if err != nil {
		return nil, err
	}
	depth, err := d.texture("depth", gputypes.TextureFormatDepth24PlusStencil8, 1)
	if err != nil {
		return nil, err
	}
	hdr, err := d.texture("hdr", gputypes.TextureFormatRGBA8Unorm, 1)
	if err != nil {
		return nil, err
	}
	bloom, err := d.texture("bloom", gputypes.TextureFormatRGBA8Unorm, mips)
	if err != nil {
		return nil, err
	}
	final, err := d.texture("final", gputypes.TextureFormatBGRA8Unorm, 1)
	if err != nil {
		return nil, err
	}

	readback := &passes.Readback{Width: extent, Height: extent}
	staging, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "staging",
		Size:  readback.BufferSize(),
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		d.destroy()
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	d.buffers = append(d.buffers, staging)

	gbuf := g.AddPass("gbuffer", nil)
	ta := gbuf.AddOut(colorWrite, g.ImportTexture("albedo", albedo, framegraph.SubresourceRange{}))
	tn := gbuf.AddOut(colorWrite, g.ImportTexture("normal", normal, framegraph.SubresourceRange{}))
	td := gbuf.AddOut(depthWrite, g.ImportTexture("depth", depth, framegraph.SubresourceRange{}))

	lightClear := &passes.Clear{Color: gputypes.Color{R: 0.02, G: 0.02, B: 0.05, A: 1}}
	d.recorders = append(d.recorders, lightClear)
	light := g.AddPass("lighting", lightClear.Record)
	light.AddIn(ta, fragRead)
	light.AddIn(tn, fragRead)
	light.AddIn(td, depthRead)
	th := light.AddOut(colorWrite, g.ImportTexture("hdr", hdr, framegraph.SubresourceRange{}))
	lightClear.Output = th

	// Each mip level is its own resource.
	levels := make([]framegraph.TargetID, mips)
	prev := th
	for i := 0; i < mips; i++ {
		rng := framegraph.SubresourceRange{BaseMipLevel: uint32(i), MipLevelCount: 1} //nolint:gosec // small
		res := g.ImportTexture(fmt.Sprintf("bloom_mip%d", i), bloom, rng)
		down := g.AddPass(fmt.Sprintf("bloom_down%d", i), nil)
		down.AddIn(prev, computeRead)
		levels[i] = down.AddOut(storageRW, res)
		prev = levels[i]
	}
	for i := mips - 2; i >= 0; i-- {
		up := g.AddPass(fmt.Sprintf("bloom_up%d", i), nil)
		up.AddIn(levels[i+1], computeRead)
		levels[i] = up.AddInOut(levels[i], storageRW)
	}

	tone := g.AddPass("tonemap", nil)
	tone.AddIn(th, fragRead)
	tone.AddIn(levels[0], fragRead)
	tf := tone.AddOut(framegraph.Flex, g.ImportTexture("final", final, framegraph.SubresourceRange{}))

	d.recorders = append(d.recorders, readback)
	rb := g.AddPass("readback", readback.Record)
	rb.AddIn(tf, copySrc)
	readback.Source = tf
	readback.Dest = rb.AddOut(copyDst, g.ImportBuffer("staging", staging, readback.BufferSize()))

	return d, nil
}

func (d *deferred) texture(label string, format gputypes.TextureFormat, mips int) (hal.Texture, error) {
	usage := gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopySrc
	if format != gputypes.TextureFormatDepth24PlusStencil8 {
		usage |= gputypes.TextureUsageStorageBinding
	}
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: extent, Height: extent, DepthOrArrayLayers: 1},
		MipLevelCount: uint32(mips), //nolint:gosec // small
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		d.destroy()
		return nil, fmt.Errorf("create texture %s: %w", label, err)
	}
	d.textures = append(d.textures, tex)
	return tex, nil
}

func (d *deferred) destroy() {
	for _, r := range d.recorders {
		r.Destroy(d.device)
	}
	for _, tex := range d.textures {
		d.device.DestroyTexture(tex)
	}
	for _, buf := range d.buffers {
		d.device.DestroyBuffer(buf)
	}
	d.recorders, d.textures, d.buffers = nil, nil, nil
}
