// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestWriteDOTRequiresCompute(t *testing.T) {
	g := New()
	g.AddPass("p", nil)
	var buf bytes.Buffer
	if err := g.WriteDOT(&buf); !errors.Is(err, ErrNotComputed) {
		t.Errorf("WriteDOT() = %v, want ErrNotComputed", err)
	}
}

func TestWriteDOT(t *testing.T) {
	g := New(WithLabel("deferred"))
	r := virtual(g, "hdr")
	v0 := g.AddPass("light", nil).AddOut(colorWrite, r)
	g.AddPass("reflect", nil).AddIn(v0, fragRead)
	g.AddPass("tonemap", nil).AddInOut(v0, storageRW)

	if err := g.Compute(); err != nil {
		t.Fatalf("Compute() = %v", err)
	}
	var buf bytes.Buffer
	if err := g.WriteDOT(&buf); err != nil {
		t.Fatalf("WriteDOT() = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		`digraph "deferred" {`,
		`p0 [label="0: light"];`,
		`p1 [label="1: reflect\n1 barrier(s)", style=bold];`,
		`p0 -> p1 [label="hdr#0\nshader_read"];`,
		`p0 -> p2 [label="hdr#0\nstorage"];`,
		`p1 -> p2 [style=dashed];`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("DOT output missing %q\n%s", want, out)
		}
	}
	if !strings.HasSuffix(out, "}\n") {
		t.Errorf("DOT output not terminated:\n%s", out)
	}
}

func TestDotQuote(t *testing.T) {
	if got, want := dotQuote(`say "hi"\nthere`), `"say \"hi\"\nthere"`; got != want {
		t.Errorf("dotQuote() = %s, want %s", got, want)
	}
}
