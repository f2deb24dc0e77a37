// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import "github.com/gogpu/gputypes"

// TextureUsage maps s to the WebGPU texture usage the HAL transitions
// between. LayoutGeneral derives the usage from the access mask.
func (s Scope) TextureUsage() gputypes.TextureUsage {
	if s.flex {
		return 0
	}
	switch s.Layout {
	case LayoutShaderRead:
		return gputypes.TextureUsageTextureBinding
	case LayoutColorTarget, LayoutDepthTarget, LayoutDepthRead, LayoutPresent:
		return gputypes.TextureUsageRenderAttachment
	case LayoutStorage:
		return gputypes.TextureUsageStorageBinding
	case LayoutCopySrc:
		return gputypes.TextureUsageCopySrc
	case LayoutCopyDst:
		return gputypes.TextureUsageCopyDst
	case LayoutGeneral:
		var u gputypes.TextureUsage
		if s.Access&(AccessShaderRead|AccessUniformRead) != 0 {
			u |= gputypes.TextureUsageTextureBinding
		}
		if s.Access&AccessShaderWrite != 0 {
			u |= gputypes.TextureUsageStorageBinding
		}
		if s.Access&(AccessColorRead|AccessColorWrite|AccessDepthRead|AccessDepthWrite) != 0 {
			u |= gputypes.TextureUsageRenderAttachment
		}
		if s.Access&AccessCopyRead != 0 {
			u |= gputypes.TextureUsageCopySrc
		}
		if s.Access&AccessCopyWrite != 0 {
			u |= gputypes.TextureUsageCopyDst
		}
		return u
	}
	return 0
}

// BufferUsage maps s to WebGPU buffer usage flags. Buffers have no layout,
// so only the access mask matters.
func (s Scope) BufferUsage() gputypes.BufferUsage {
	if s.flex {
		return 0
	}
	var u gputypes.BufferUsage
	if s.Access&AccessVertexRead != 0 {
		u |= gputypes.BufferUsageVertex
	}
	if s.Access&AccessIndexRead != 0 {
		u |= gputypes.BufferUsageIndex
	}
	if s.Access&AccessIndirectRead != 0 {
		u |= gputypes.BufferUsageIndirect
	}
	if s.Access&AccessUniformRead != 0 {
		u |= gputypes.BufferUsageUniform
	}
	if s.Access&(AccessShaderRead|AccessShaderWrite) != 0 {
		u |= gputypes.BufferUsageStorage
	}
	if s.Access&AccessCopyRead != 0 {
		u |= gputypes.BufferUsageCopySrc
	}
	if s.Access&AccessCopyWrite != 0 {
		u |= gputypes.BufferUsageCopyDst
	}
	return u
}
