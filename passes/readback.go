// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/wgpu/hal"
)

// copyPitchAlignment is the required row pitch alignment of
// texture-to-buffer copies.
const copyPitchAlignment = 256

// RowPitch returns the padded bytes per row of a 4-byte-per-pixel copy.
func RowPitch(width uint32) uint32 {
	return (width*4 + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
}

// Readback copies the first mip level and layer of the source range of a
// 4-byte-per-pixel texture into a staging buffer. Width and Height are the
// extent of that level.
// Source must be read in a copy_src scope and Dest written in copy_dst.
type Readback struct {
	Source framegraph.TargetID
	Dest   framegraph.TargetID
	Width  uint32
	Height uint32
}

// BufferSize returns the staging buffer size Dest needs.
func (r *Readback) BufferSize() uint64 {
	return uint64(RowPitch(r.Width)) * uint64(r.Height)
}

// Record implements framegraph.RecordFunc.
func (r *Readback) Record(rc *framegraph.RenderContext) error {
	tex := rc.Texture(r.Source)
	buf := rc.Buffer(r.Dest)
	if tex == nil || buf == nil {
		return nil
	}
	if r.Width == 0 || r.Height == 0 {
		return fmt.Errorf("readback %s: empty extent", rc.Pass().Name())
	}
	rng := rc.Range(r.Source)
	rc.Encoder.CopyTextureToBuffer(tex, buf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: RowPitch(r.Width), RowsPerImage: r.Height},
		TextureBase: hal.ImageCopyTexture{
			Texture:  tex,
			MipLevel: rng.BaseMipLevel,
			Origin:   hal.Origin3D{Z: rng.BaseArrayLayer},
		},
		Size:         hal.Extent3D{Width: r.Width, Height: r.Height, DepthOrArrayLayers: 1},
	}})
	return nil
}

// Read maps the staging buffer after the frame completed and strips the
// row padding, returning Width*Height*4 tightly packed bytes. buf must have
// been created with BufferUsageMapRead.
func (r *Readback) Read(device hal.Device, buf hal.Buffer) ([]byte, error) {
	size := r.BufferSize()
	m, err := device.MapBuffer(buf, 0, size)
	if err != nil {
		return nil, fmt.Errorf("readback: map staging buffer: %w", err)
	}
	padded := make([]byte, size)
	copy(padded, unsafe.Slice((*byte)(m.Ptr), size))
	if err := device.UnmapBuffer(buf); err != nil {
		return nil, fmt.Errorf("readback: unmap staging buffer: %w", err)
	}
	pitch := int(RowPitch(r.Width))
	row := int(r.Width) * 4
	if pitch == row {
		return padded, nil
	}
	tight := make([]byte, row*int(r.Height))
	for y := 0; y < int(r.Height); y++ {
		copy(tight[y*row:(y+1)*row], padded[y*pitch:y*pitch+row])
	}
	return tight, nil
}

// Destroy is a no-op; the staging buffer belongs to the graph's owner.
func (r *Readback) Destroy(hal.Device) {}
