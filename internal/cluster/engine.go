package cluster

import (
	"fmt"

	"github.com/Azunyan1111/mkvclusterd/internal/diag"
	"github.com/Azunyan1111/mkvclusterd/internal/ebml"
	"github.com/Azunyan1111/mkvclusterd/internal/packet"
	"github.com/Azunyan1111/mkvclusterd/internal/track"
)

// Engine is the Cluster Engine: it owns the rolling window of in-flight
// clusters, the cue index, and the split planner, and is the sole writer
// against the installed Byte Sink.
type Engine struct {
	cfg    Config
	tracks *track.Registry
	sink   ebml.Sink

	cur      *chCluster
	clusters []*chCluster // rolling window, oldest first; includes cur as last entry
	index    refIndex

	cues []ebml.CueEntry

	firstTimecode   int64
	haveFirst       bool
	timecodeOffset  int64
	haveOffset      bool

	segmentBodyStart int64 // sink position right after EBML header + Segment header + Info + Tracks
	headerOverhead   int64

	planner       *SplitPlanner
	lastPacketID  map[uint64]uint64 // track id -> most recent packet id, for split snapshots
	split         *splitSchedule

	finalized bool
}

// Planner exposes the split planner, non-nil only for a Pass == 1 engine.
func (e *Engine) Planner() *SplitPlanner { return e.planner }

// ResetTimecodeOrigin clears the recorded first-timecode/timecode-offset so
// the next rendered cluster re-anchors timestamps at zero. Called by
// rollSplit right after opening a new file when the NoLinking option is
// set.
func (e *Engine) ResetTimecodeOrigin() {
	e.haveFirst = false
	e.haveOffset = false
}

// NewEngine constructs an Engine against the given track registry and
// configuration. Call SetOutput before the first AddPacket.
func NewEngine(tracks *track.Registry, cfg Config) *Engine {
	e := &Engine{
		cfg:          cfg,
		tracks:       tracks,
		index:        make(refIndex),
		lastPacketID: make(map[uint64]uint64),
	}
	if cfg.Pass == 1 {
		e.planner = NewSplitPlanner(cfg, tracks)
	}
	return e
}

// SetOutput installs or replaces the byte sink, used directly by the
// splitter when it closes one file and opens the next.
func (e *Engine) SetOutput(sink ebml.Sink) {
	e.sink = sink
}

// WriteSegmentHeaders writes the EBML header, Segment header, Info and
// Tracks elements and records the body start offset the split planner's
// file-offset predictions are relative to. Call once per output file,
// after SetOutput.
func (e *Engine) WriteSegmentHeaders() error {
	if _, err := ebml.WriteEBMLHeader(e.sink, "matroska", 4); err != nil {
		return err
	}
	if _, err := ebml.WriteSegmentHeader(e.sink); err != nil {
		return err
	}
	e.segmentBodyStart = e.sink.Position()
	if _, err := ebml.WriteInfo(e.sink, ebml.SegmentInfo{
		TimecodeScale: e.cfg.TimecodeScale,
		MuxingApp:     e.cfg.MuxingApp,
		WritingApp:    e.cfg.WritingApp,
	}); err != nil {
		return err
	}
	if _, err := ebml.WriteTracks(e.sink, e.tracks.Entries()); err != nil {
		return err
	}
	e.headerOverhead = e.sink.Position() - e.segmentBodyStart
	return nil
}

func (e *Engine) openCluster() {
	c := newChCluster()
	e.cur = c
	e.clusters = append(e.clusters, c)
}

// AddPacket appends p to the current cluster, assigning its id and
// triggering zero or more render() invocations as boundary criteria are
// crossed. Matches spec §4.1 "Cluster formation".
func (e *Engine) AddPacket(p *packet.Packet) error {
	p.ID = packet.NextID()
	if err := e.checkSplit(p.ID); err != nil {
		return err
	}

	if e.cur == nil {
		e.openCluster()
	}

	if e.cur.hasBase && e.cur.delta(p.Timecode) > e.cfg.MaxMsPerCluster*1_000_000 {
		if err := e.renderCurrent(); err != nil {
			return err
		}
	}

	if !e.cur.hasBase {
		e.cur.hasBase = true
		e.cur.baseTimecode = p.Timecode
	}

	e.cur.packets = append(e.cur.packets, p)
	e.cur.contentSize += int64(len(p.Payload))
	if end := p.Timecode + p.Duration; end > e.cur.maxTimecode {
		e.cur.maxTimecode = end
	}
	e.index.put(p)
	e.lastPacketID[p.TrackID] = p.ID

	if e.shouldClose(e.cur) {
		if err := e.renderCurrent(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) shouldClose(c *chCluster) bool {
	if len(c.packets) >= e.cfg.MaxBlocksPerCluster {
		return true
	}
	if c.contentSize >= e.cfg.MaxBytesPerCluster {
		return true
	}
	if c.hasBase && c.maxTimecode-c.baseTimecode > e.cfg.MaxMsPerCluster*1_000_000 {
		return true
	}
	return false
}

// Finalize flushes any remaining cluster, writes the cue index (if
// configured) and leaves the engine ready for process exit. Matches the
// spec's "After finalize(), no packet payload is held in memory" invariant.
func (e *Engine) Finalize() error {
	if e.finalized {
		return nil
	}
	if e.cur != nil && len(e.cur.packets) > 0 {
		if err := e.renderCurrent(); err != nil {
			return err
		}
	}
	if e.cfg.WriteCues && e.cfg.Pass == 2 {
		if _, err := ebml.WriteCues(e.sink, e.cues); err != nil {
			return fmt.Errorf("cluster: finalize cues: %w", err)
		}
	}
	for _, c := range e.clusters {
		for _, p := range c.packets {
			p.FreePayload()
		}
	}
	diag.Log("finalize: %d cues, %d retained clusters\n", len(e.cues), len(e.clusters))
	e.finalized = true
	return nil
}

// PendingCueCount reports how many cue entries are queued for the current,
// not-yet-rendered cluster. The split planner does not read it; its
// "cues_size_at_point" value comes from CueTableSize.
func (e *Engine) PendingCueCount() int {
	if e.cur == nil {
		return 0
	}
	return len(e.cur.pendingCues)
}

// CueTableSize reports the current encoded size in bytes of the whole cue
// table, used by the split planner as the "current cue table encoded size"
// the spec names. Approximated at a fixed per-entry width rather than
// re-deriving WriteCues's exact encoding, which is exactly the "estimate,
// treat as an upper bound" the open question in SPEC_FULL.md resolves.
func (e *Engine) CueTableSize() int64 {
	const approxBytesPerCue = 24
	return int64(len(e.cues)) * approxBytesPerCue
}
