// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package passes provides ready-made RecordFuncs for framegraph passes:
// clearing a color target, dispatching a WGSL compute shader over storage
// buffers and reading a texture back to the host.
//
// Each pass lazily creates the GPU objects it needs on the device found in
// the RenderContext and keeps them until Destroy. Targets backed by virtual
// resources are skipped, so the same graph can be scheduled with or without
// real allocations.
//
// The Registry maps pass kinds to factories so that declarative pipelines
// can instantiate passes by name.
package passes
