// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package framegraph schedules the GPU passes of a frame and plans the
// barriers between them.
//
// # Overview
//
// A frame is described as passes that read and produce versions of shared
// GPU resources. Each version is a Target with exactly one producer and any
// number of consumers. Every usage carries a Scope: the stages that touch
// the resource, the layout it must be in and the access performed.
//
// Compute turns the declared graph into an execution order plus a list of
// barriers per pass. Record replays that order into a wgpu/hal command
// encoder, emitting each pass's barriers as one batch before calling the
// pass.
//
// # Quick Start
//
//	g := framegraph.New(framegraph.WithLabel("main"))
//	hdr := g.ImportTexture("hdr", hdrTex, framegraph.SubresourceRange{})
//
//	geo := g.AddPass("geometry", recordGeometry)
//	color := geo.AddOut(framegraph.NewScope(
//	    framegraph.StageColorOutput, framegraph.LayoutColorTarget, framegraph.AccessColorWrite), hdr)
//
//	post := g.AddPass("post", recordPost)
//	post.AddIn(color, framegraph.NewScope(
//	    framegraph.StageFragmentShader, framegraph.LayoutShaderRead, framegraph.AccessShaderRead))
//
//	if !g.Check() {
//	    return errors.New("invalid frame graph")
//	}
//	if err := g.Compute(); err != nil {
//	    return err
//	}
//	err := g.Record(&framegraph.RenderContext{Device: device, Encoder: encoder})
//
// # Scheduling
//
// Compute sweeps the pending passes in registration order until a sweep
// schedules nothing. A pass is ready when all of its inputs have been
// produced; a pass that rewrites a target in place (AddInOut) additionally
// waits for every other reader of that target. A graph that stops making
// progress yields a *StuckError.
//
// Barriers are batched: when a target first needs a new scope, the scope
// is widened with the requirements of every pending sibling reader in the
// same layout, so one barrier serves all of them. Flex scopes are resolved
// lazily, either to the scope the readers need or, when both ends are
// flex, to SharedScope.
//
// # Validation
//
// Check (or Validate) detects cycles and passes that read two versions of
// one resource. It is independent of Compute and intended to run once per
// topology.
//
// # Thread Safety
//
// Graph is NOT safe for concurrent use. Build, compute and record it from a
// single goroutine.
package framegraph
