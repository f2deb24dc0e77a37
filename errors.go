// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStuck is returned by Compute when a sweep schedules nothing while
	// passes are still pending. It always means a cycle or an input whose
	// producer can never run.
	ErrStuck = errors.New("framegraph: scheduling is stuck")

	// ErrCycle is reported by Validate when producer/consumer edges loop.
	ErrCycle = errors.New("framegraph: cycle detected")

	// ErrVersionCollision is reported by Validate when one pass reads two
	// different versions of the same resource.
	ErrVersionCollision = errors.New("framegraph: pass reads two versions of one resource")

	// ErrNotComputed is returned by Record before a successful Compute.
	ErrNotComputed = errors.New("framegraph: graph has no computed schedule")

	// ErrLayoutMismatch is returned by Widen for scopes in different layouts.
	ErrLayoutMismatch = errors.New("framegraph: layout mismatch")

	// ErrNilEncoder is returned by Record when the context has no encoder.
	ErrNilEncoder = errors.New("framegraph: render context has no command encoder")
)

// StuckError lists the passes left pending by a stuck Compute.
type StuckError struct {
	Pending []string
}

func (e *StuckError) Error() string {
	return fmt.Sprintf("%s: %d pending pass(es): %s",
		ErrStuck.Error(), len(e.Pending), strings.Join(e.Pending, ", "))
}

func (e *StuckError) Unwrap() error { return ErrStuck }

// GraphError describes a structural problem found by Validate.
type GraphError struct {
	// Kind is ErrCycle or ErrVersionCollision.
	Kind error

	// Pass names the offending pass.
	Pass string

	// Path is the cycle witness for ErrCycle, or the two colliding target
	// names for ErrVersionCollision.
	Path []string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s at pass %q", e.Kind.Error(), e.Pass)
	if len(e.Path) > 0 {
		msg += ": " + strings.Join(e.Path, " -> ")
	}
	return msg
}

func (e *GraphError) Unwrap() error { return e.Kind }
