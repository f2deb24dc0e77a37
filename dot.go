// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteDOT writes the last computed schedule as a Graphviz digraph. Pass
// nodes carry their position in the order and their barrier count; edges
// are labelled with the target name and the scope it is read with.
func (g *Graph) WriteDOT(w io.Writer) error {
	if !g.computed() {
		return ErrNotComputed
	}
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "digraph %q {\n", g.label)
	fmt.Fprintln(bw, "\trankdir=LR;")
	fmt.Fprintln(bw, "\tnode [shape=box, fontname=\"monospace\"];")

	for i, step := range g.sched.order {
		p := g.passes[step.Pass]
		label := fmt.Sprintf("%d: %s", i, p.name)
		attrs := ""
		if n := len(step.Barriers); n > 0 {
			label += fmt.Sprintf("\\n%d barrier(s)", n)
			attrs = ", style=bold"
		}
		fmt.Fprintf(bw, "\tp%d [label=%s%s];\n", p.id, dotQuote(label), attrs)
	}

	for _, step := range g.sched.order {
		for _, u := range step.Uses {
			t := g.targets[u.Target]
			fmt.Fprintf(bw, "\tp%d -> p%d [label=%s];\n",
				t.producer.pass, step.Pass,
				dotQuote(g.TargetName(u.Target)+"\\n"+u.Scope.Layout.String()))
		}
	}
	// In-place rewrites wait for every reader of the old version.
	for _, t := range g.targets {
		end, ok := t.End()
		if !ok {
			continue
		}
		for _, c := range t.consumers {
			if c.pass == end {
				continue
			}
			fmt.Fprintf(bw, "\tp%d -> p%d [style=dashed];\n", c.pass, end)
		}
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

// dotQuote quotes s for DOT, keeping "\n" escapes as line breaks.
func dotQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
