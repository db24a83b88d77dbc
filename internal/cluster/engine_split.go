package cluster

import (
	"fmt"

	"github.com/Azunyan1111/mkvclusterd/internal/ebml"
)

// closer is satisfied by sinks that own an underlying resource (a
// sink.FileSink) that must be flushed and released when a split rolls over
// to the next file. NullSink and other position-only sinks don't implement
// it, which is fine: EnableSplitting is only ever used on a Pass == 2
// engine writing real output.
type closer interface {
	Close() error
}

// splitSchedule holds the chosen split points for a pass-2 run and the
// callback used to obtain the next file's sink.
type splitSchedule struct {
	points    []SplitPoint
	openNext  func(fileIndex int) (ebml.Sink, error)
	next      int
	fileIndex int
}

// EnableSplitting arms the engine to roll over to a new output file each
// time AddPacket assigns the packet id recorded in points[i].PacketID (that
// packet becomes the first one of the new file), calling openNext(i+1) to
// obtain the next file's sink. Only meaningful on
// a Pass == 2 engine; points are normally obtained from a Pass == 1 run's
// Planner().ChooseSplits(). The packet id counter must be reset
// (packet.ResetIDs) before both the pass-1 run that produced points and
// this pass-2 run, so the two passes assign identical ids to identical
// input.
func (e *Engine) EnableSplitting(points []SplitPoint, openNext func(fileIndex int) (ebml.Sink, error)) {
	e.split = &splitSchedule{points: points, openNext: openNext}
}

// checkSplit rolls the engine over to the next output file if the id just
// assigned to p is the next scheduled split point. Called by AddPacket
// immediately after id assignment, before p is appended to any cluster.
func (e *Engine) checkSplit(p uint64) error {
	if e.split == nil || e.split.next >= len(e.split.points) {
		return nil
	}
	if p != e.split.points[e.split.next].PacketID {
		return nil
	}
	return e.rollSplit()
}

func (e *Engine) rollSplit() error {
	if e.cur != nil && len(e.cur.packets) > 0 {
		if err := e.renderCurrent(); err != nil {
			return fmt.Errorf("cluster: split: render final cluster: %w", err)
		}
	}
	if e.cfg.WriteCues {
		if _, err := ebml.WriteCues(e.sink, e.cues); err != nil {
			return fmt.Errorf("cluster: split: write cues: %w", err)
		}
	}
	e.cues = nil

	if c, ok := e.sink.(closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("cluster: split: close previous file: %w", err)
		}
	}

	next, err := e.split.openNext(e.split.fileIndex + 1)
	if err != nil {
		return fmt.Errorf("cluster: split: open next file: %w", err)
	}
	e.split.fileIndex++
	e.split.next++

	e.SetOutput(next)
	if err := e.WriteSegmentHeaders(); err != nil {
		return fmt.Errorf("cluster: split: write headers for next file: %w", err)
	}
	if e.cfg.NoLinking {
		e.ResetTimecodeOrigin()
	}
	if e.cur == nil || e.cur.rendered {
		e.openCluster()
	}
	return nil
}
