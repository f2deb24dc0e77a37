// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command fgdemo schedules a frame graph on the noop HAL backend, renders a
// few frames and prints the computed order with its barriers.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/frame"
	"github.com/gogpu/framegraph/pipeline"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zclconf/go-cty/cty"
)

func main() {
	var (
		file    = flag.String("pipeline", "", "HCL pipeline file (default: built-in deferred graph)")
		frames  = flag.Int("frames", 3, "number of frames to render")
		dot     = flag.String("dot", "", "write the schedule as Graphviz to this file")
		bloom   = flag.Bool("bloom", true, "value of var.bloom for pipeline files")
		mips    = flag.Int("mips", 4, "bloom mip chain length of the built-in graph")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		framegraph.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	device, queue, cleanup, err := openNoopDevice()
	if err != nil {
		log.Fatalf("open device: %v", err)
	}
	defer cleanup()

	reg := prometheus.NewRegistry()
	metrics := framegraph.NewMetrics(reg)
	graphOpts := []framegraph.Option{framegraph.WithMetrics(metrics), framegraph.WithValidation(true)}

	var (
		g       *framegraph.Graph
		release func()
	)
	if *file != "" {
		p, err := pipeline.LoadFile(*file,
			pipeline.WithDevice(device),
			pipeline.WithVariables(map[string]cty.Value{"bloom": cty.BoolVal(*bloom)}),
			pipeline.WithGraphOptions(append(graphOpts, framegraph.WithLabel(*file))...))
		if err != nil {
			log.Fatalf("load pipeline: %v", err)
		}
		g, release = p.Graph, p.Destroy
	} else {
		d, err := buildDeferred(device, *mips, append(graphOpts, framegraph.WithLabel("deferred"))...)
		if err != nil {
			log.Fatalf("build graph: %v", err)
		}
		g, release = d.graph, d.destroy
	}
	defer release()

	driver := frame.NewDriver(device, queue, g, frame.WithLabel("fgdemo"))
	if err := driver.Validate(); err != nil {
		log.Fatalf("invalid graph: %v", err)
	}
	for i := 0; i < *frames; i++ {
		if err := driver.RenderFrame(); err != nil {
			log.Fatalf("frame %d: %v", i, err)
		}
	}

	printSchedule(g)

	if *dot != "" {
		if err := writeDOT(g, *dot); err != nil {
			log.Fatalf("write dot: %v", err)
		}
		log.Printf("schedule written to %s", *dot)
	}

	families, err := reg.Gather()
	if err != nil {
		log.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				fmt.Printf("%s %g\n", mf.GetName(), m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				fmt.Printf("%s %g\n", mf.GetName(), m.GetGauge().GetValue())
			}
		}
	}
	log.Printf("rendered %d frame(s) of %q", driver.Frame(), g.Label())
}

func openNoopDevice() (hal.Device, hal.Queue, func(), error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, nil, fmt.Errorf("no adapters found")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, nil, fmt.Errorf("open adapter: %w", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup, nil
}

func printSchedule(g *framegraph.Graph) {
	for i, step := range g.Order() {
		fmt.Printf("%2d %-14s barriers=%d\n", i, g.Pass(step.Pass).Name(), len(step.Barriers))
		for _, b := range step.Barriers {
			fmt.Printf("     %-10s %s -> %s\n", g.TargetName(b.Target), b.Src, b.Dst)
		}
	}
}

func writeDOT(g *framegraph.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := g.WriteDOT(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
