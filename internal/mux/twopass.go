package mux

import (
	"fmt"

	"github.com/Azunyan1111/mkvclusterd/internal/cluster"
	"github.com/Azunyan1111/mkvclusterd/internal/ebml"
	"github.com/Azunyan1111/mkvclusterd/internal/packet"
	"github.com/Azunyan1111/mkvclusterd/internal/sink"
	"github.com/Azunyan1111/mkvclusterd/internal/track"
)

// BuildReaders constructs the set of Reader values driving one pass
// against engine. Callers supply this once and RunSplit invokes it twice
// (pass 1 against a NullSink-backed planning engine, pass 2 against the
// real output), since each pass needs its own packetizer/reader instances
// reading the input from the beginning.
type BuildReaders func(e *cluster.Engine) ([]Reader, error)

// RunSplit drives the full two-pass split workflow described in spec §5
// and §4.1's split-planner interaction: a Pass == 1 engine writing to a
// NullSink collects SplitPoint candidates, ChooseSplits reduces them, and
// a Pass == 2 engine is driven across however many real files those
// choices require, rolling over via cluster.Engine.EnableSplitting.
//
// firstPath is the first output file's path; subsequent files are named by
// calling nextPath(fileIndex) for fileIndex = 1, 2, .... Passing a cfg with
// SplitAfter <= 0 disables splitting: ChooseSplits returns no points and
// the whole pass-2 run lands in firstPath.
func RunSplit(cfg cluster.Config, tracks *track.Registry, build BuildReaders, firstPath string, nextPath func(fileIndex int) string) error {
	planCfg := cfg
	planCfg.Pass = 1
	planEngine := cluster.NewEngine(tracks, planCfg)
	planEngine.SetOutput(sink.NewNullSink())
	if err := planEngine.WriteSegmentHeaders(); err != nil {
		return fmt.Errorf("mux: pass 1: write headers: %w", err)
	}

	packet.ResetIDs()
	readers, err := build(planEngine)
	if err != nil {
		return fmt.Errorf("mux: pass 1: build readers: %w", err)
	}
	d1 := NewDriver()
	for _, r := range readers {
		d1.AddReader(r)
	}
	if err := d1.Run(); err != nil {
		return fmt.Errorf("mux: pass 1: %w", err)
	}
	if err := planEngine.Finalize(); err != nil {
		return fmt.Errorf("mux: pass 1: finalize: %w", err)
	}

	splits := planEngine.Planner().ChooseSplits()

	runCfg := cfg
	runCfg.Pass = 2
	runEngine := cluster.NewEngine(tracks, runCfg)

	first, err := sink.NewFileSink(firstPath)
	if err != nil {
		return fmt.Errorf("mux: pass 2: open %s: %w", firstPath, err)
	}
	current := first
	runEngine.SetOutput(first)
	if len(splits) > 0 {
		runEngine.EnableSplitting(splits, func(fileIndex int) (ebml.Sink, error) {
			path := nextPath(fileIndex)
			fs, err := sink.NewFileSink(path)
			if err != nil {
				return nil, fmt.Errorf("mux: pass 2: open %s: %w", path, err)
			}
			current = fs
			return fs, nil
		})
	}
	if err := runEngine.WriteSegmentHeaders(); err != nil {
		return fmt.Errorf("mux: pass 2: write headers: %w", err)
	}

	packet.ResetIDs()
	readers2, err := build(runEngine)
	if err != nil {
		return fmt.Errorf("mux: pass 2: build readers: %w", err)
	}
	d2 := NewDriver()
	for _, r := range readers2 {
		d2.AddReader(r)
	}
	if err := d2.Run(); err != nil {
		return fmt.Errorf("mux: pass 2: %w", err)
	}
	if err := runEngine.Finalize(); err != nil {
		return fmt.Errorf("mux: pass 2: finalize: %w", err)
	}
	if err := current.Close(); err != nil {
		return fmt.Errorf("mux: pass 2: close final output file: %w", err)
	}
	return nil
}
