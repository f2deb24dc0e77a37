// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package frame drives a framegraph.Graph on a HAL device: one command
// encoder and one submission per frame, waited on before the next.
package frame

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"
)

// ErrTimeout is returned when the frame's submission does not complete in time.
var ErrTimeout = errors.New("frame: GPU wait timed out")

// Driver records and submits a graph once per frame.
//
// Driver is safe for concurrent use; frames are serialized.
type Driver struct {
	mu sync.Mutex

	device hal.Device
	queue  hal.Queue
	graph  *framegraph.Graph

	label   string
	timeout time.Duration
	acquire AcquireFunc

	frame uint64
}

// NewDriver creates a driver for g on the given device and queue.
func NewDriver(device hal.Device, queue hal.Queue, g *framegraph.Graph, opts ...Option) *Driver {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Driver{
		device:  device,
		queue:   queue,
		graph:   g,
		label:   o.label,
		timeout: o.timeout,
		acquire: o.acquire,
	}
}

// NewDriverFromProvider creates a driver on the device shared by a host
// application. The provider must also implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue.
func NewDriverFromProvider(provider gpucontext.DeviceProvider, g *framegraph.Graph, opts ...Option) (*Driver, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("frame: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("frame: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("frame: provider HalQueue is not hal.Queue")
	}
	return NewDriver(device, queue, g, opts...), nil
}

// Graph returns the driven graph.
func (d *Driver) Graph() *framegraph.Graph { return d.graph }

// Frame returns the number of frames submitted so far.
func (d *Driver) Frame() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frame
}

// Validate checks the graph for cycles and version collisions. Call it once
// after building the graph; RenderFrame does not validate.
func (d *Driver) Validate() error {
	return d.graph.Validate()
}

// RenderFrame schedules the graph, records it into a fresh command encoder,
// submits the result and waits for the GPU to finish. On failure before
// submission the encoder is discarded.
func (d *Driver) RenderFrame() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	log := framegraph.Logger()
	start := time.Now()

	if d.acquire != nil {
		if err := d.acquire(d.graph, d.frame); err != nil {
			return fmt.Errorf("frame: acquire: %w", err)
		}
	}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: d.label + "_encoder",
	})
	if err != nil {
		return fmt.Errorf("frame: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(d.label); err != nil {
		return fmt.Errorf("frame: begin encoding: %w", err)
	}

	if err := d.graph.Compute(); err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("frame: compute: %w", err)
	}
	rc := &framegraph.RenderContext{
		Device:  d.device,
		Encoder: encoder,
		Frame:   d.frame,
	}
	if err := d.graph.Record(rc); err != nil {
		encoder.DiscardEncoding()
		return err
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("frame: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	idx, err := d.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("frame: submit: %w", err)
	}
	if !d.waitSubmission(idx) {
		return ErrTimeout
	}

	log.Debug("frame: submitted",
		"graph", d.graph.Label(),
		"frame", d.frame,
		"submission", idx,
		"elapsed", time.Since(start))
	d.frame++
	return nil
}

// Poll intervals for waitSubmission.
const (
	minPollInterval = 50 * time.Microsecond
	maxPollInterval = 2 * time.Millisecond
)

// waitSubmission polls the queue until submission idx has completed or the
// driver timeout elapses.
func (d *Driver) waitSubmission(idx uint64) bool {
	deadline := time.Now().Add(d.timeout)
	interval := minPollInterval
	for d.queue.PollCompleted() < idx {
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(interval)
		interval = min(interval*2, maxPollInterval)
	}
	return true
}
