// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"testing"

	"github.com/gogpu/framegraph/frame"
)

func TestBuildDeferred(t *testing.T) {
	device, queue, cleanup, err := openNoopDevice()
	if err != nil {
		t.Fatalf("openNoopDevice() = %v", err)
	}
	defer cleanup()

	for _, mips := range []int{1, 2, 4} {
		d, err := buildDeferred(device, mips)
		if err != nil {
			t.Fatalf("buildDeferred(%d) = %v", mips, err)
		}
		driver := frame.NewDriver(device, queue, d.graph)
		if err := driver.Validate(); err != nil {
			t.Fatalf("mips=%d: Validate() = %v", mips, err)
		}
		if err := driver.RenderFrame(); err != nil {
			t.Fatalf("mips=%d: RenderFrame() = %v", mips, err)
		}

		// gbuffer, lighting, mips down passes, mips-1 up passes, tonemap, readback
		want := 2 + mips + (mips - 1) + 2
		if got := len(d.graph.Order()); got != want {
			t.Errorf("mips=%d: scheduled %d passes, want %d", mips, got, want)
		}
		d.destroy()
	}
}

func TestBuildDeferredRejectsEmptyChain(t *testing.T) {
	device, _, cleanup, err := openNoopDevice()
	if err != nil {
		t.Fatalf("openNoopDevice() = %v", err)
	}
	defer cleanup()

	if _, err := buildDeferred(device, 0); err == nil {
		t.Error("buildDeferred(0) succeeded")
	}
}
