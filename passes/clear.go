// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Clear clears a color target with a render pass that only loads and stores.
type Clear struct {
	Output framegraph.TargetID
	Color  gputypes.Color

	views viewCache
}

// Record implements framegraph.RecordFunc.
func (c *Clear) Record(rc *framegraph.RenderContext) error {
	tex := rc.Texture(c.Output)
	if tex == nil {
		return nil
	}
	view, err := c.views.get(rc.Device, tex, rc.Range(c.Output))
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}

	rp := rc.Encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: rc.Pass().Name(),
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: c.Color,
		}},
	})
	rp.End()
	return nil
}

// Destroy releases the cached texture views.
func (c *Clear) Destroy(device hal.Device) {
	c.views.destroy(device)
}

// viewKey identifies a view by texture and subresource range.
type viewKey struct {
	tex hal.Texture
	rng framegraph.SubresourceRange
}

// viewCache keeps one view per texture and range. Textures swapped in with
// Graph.SetTexture get their own view on first use.
type viewCache struct {
	views map[viewKey]hal.TextureView
}

func (vc *viewCache) get(device hal.Device, tex hal.Texture, rng framegraph.SubresourceRange) (hal.TextureView, error) {
	key := viewKey{tex: tex, rng: rng}
	if v, ok := vc.views[key]; ok {
		return v, nil
	}
	if device == nil {
		return nil, fmt.Errorf("no device to create texture view")
	}
	v, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           "framegraph_view",
		BaseMipLevel:    rng.BaseMipLevel,
		MipLevelCount:   rng.MipLevelCount,
		BaseArrayLayer:  rng.BaseArrayLayer,
		ArrayLayerCount: rng.ArrayLayerCount,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture view: %w", err)
	}
	if vc.views == nil {
		vc.views = make(map[viewKey]hal.TextureView)
	}
	vc.views[key] = v
	return v, nil
}

func (vc *viewCache) destroy(device hal.Device) {
	for key, v := range vc.views {
		device.DestroyTextureView(v)
		delete(vc.views, key)
	}
}
