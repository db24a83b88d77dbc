package cluster

import (
	"github.com/Azunyan1111/mkvclusterd/internal/diag"
	"github.com/Azunyan1111/mkvclusterd/internal/ebml"
	"github.com/Azunyan1111/mkvclusterd/internal/packet"
	"github.com/Azunyan1111/mkvclusterd/internal/track"
)

// renderCurrent runs the render pipeline over e.cur, writes it (unless
// this is a pass-1 planning run, where the caller already pointed the sink
// at a size-counting NullSink), then frees payloads and runs the sweep.
func (e *Engine) renderCurrent() error {
	c := e.cur
	if len(c.packets) == 0 {
		return nil
	}

	if err := e.renderPipeline(c); err != nil {
		return err
	}

	c.position = e.sink.Position() - e.segmentBodyStart

	if e.planner != nil {
		e.recordSplitCandidates(c)
	}

	n, err := c.kax.Render(e.sink)
	if err != nil {
		return err
	}
	diag.LogPeriodic("cluster.render", 0, "rendered cluster base=%dns packets=%d bytes=%d\n", c.baseTimecode, len(c.packets), n)

	for _, pc := range c.pendingCues {
		e.cues = append(e.cues, ebml.CueEntry{
			TimecodeTicks:   uint64(pc.timecodeNs) / e.cfg.TimecodeScale,
			Track:           pc.trackID,
			ClusterPosition: uint64(c.position),
		})
	}
	c.pendingCues = nil

	for _, p := range c.packets {
		p.FreePayload()
	}
	c.rendered = true

	e.sweep()
	return nil
}

// renderPipeline builds c.kax's BlockGroups from c.packets without writing
// anything yet, resolving references and recording cue candidates. Split
// into its own step from the actual byte render so pass-1 planning can run
// the whole decision logic against a NullSink.
func (e *Engine) renderPipeline(c *chCluster) error {
	type laceDurations struct {
		group *ebml.BlockGroup
		track uint64
		ns    []int64
	}
	var laced []*laceDurations
	findLace := func(bg *ebml.BlockGroup) *laceDurations {
		for _, l := range laced {
			if l.group == bg {
				return l
			}
		}
		return nil
	}

	for _, p := range c.packets {
		if !e.haveFirst {
			e.firstTimecode = p.Timecode
			e.haveFirst = true
		}
		if !e.haveOffset {
			e.timecodeOffset = p.Timecode
			e.haveOffset = true
		}

		td, ok := e.tracks.Get(p.TrackID)
		if !ok {
			return &UnresolvedReferenceError{TrackID: p.TrackID, ReferencingTC: p.Timecode, RequestedTC: p.Timecode}
		}

		relTicks := (p.Timecode - e.timecodeOffset) / int64(e.cfg.TimecodeScale)
		c.kax.SetTimecode(uint64((c.baseTimecode - e.timecodeOffset) / int64(e.cfg.TimecodeScale)))

		var refs []*ebml.BlockGroup
		switch {
		case p.Bref.Kind == packet.RefNone:
			// key frame, no references
		case p.Fref.Kind == packet.RefNone:
			q, err := e.resolveRef(td, p, p.Bref)
			if err != nil {
				return err
			}
			refs = append(refs, q.RenderedGroup)
		default:
			qb, err := e.resolveRef(td, p, p.Bref)
			if err != nil {
				return err
			}
			qf, err := e.resolveRef(td, p, p.Fref)
			if err != nil {
				return err
			}
			refs = append(refs, qb.RenderedGroup, qf.RenderedGroup)
		}

		bg := c.kax.AddFrame(td.Entry, relTicks, p.Payload, refs...)
		p.RenderedGroup = bg
		if p.RefPrio > 0 {
			bg.SetReferencePriority(p.RefPrio)
		}

		l := findLace(bg)
		if l == nil {
			l = &laceDurations{group: bg, track: p.TrackID}
			laced = append(laced, l)
		}
		l.ns = append(l.ns, p.Duration)

		isKey := p.Bref.Kind == packet.RefNone
		if isKey {
			td.AdvanceMinLiveRef(p.Timecode)
		}
		if isKey || (p.Bref.Kind != packet.RefNone && p.Fref.Kind == packet.RefNone) {
			td.RecordKeyOrP(p.Timecode)
		}

		if (td.CuePolicy == track.CueIFrames && isKey) || td.CuePolicy == track.CueAll {
			c.pendingCues = append(c.pendingCues, pendingCue{timecodeNs: p.Timecode, trackID: p.TrackID})
		}
	}

	for _, l := range laced {
		td, _ := e.tracks.Get(l.track)
		applyLaceDurations(l.group, l.ns, td.DefaultDuration, int64(e.cfg.TimecodeScale))
	}

	return nil
}

func (e *Engine) resolveRef(td *track.Descriptor, p *packet.Packet, ref packet.Ref) (*packet.Packet, error) {
	var tc int64
	switch ref.Kind {
	case packet.RefAuto:
		if !td.HasAutoRef() {
			return nil, &ProtocolViolationError{Reason: "P frame before any I frame (no auto reference available)"}
		}
		tc = td.LastKeyOrPTimecode
	case packet.RefAbsolute:
		tc = ref.TimecodeNs
	default:
		return nil, &UnresolvedReferenceError{TrackID: p.TrackID, ReferencingTC: p.Timecode}
	}

	q, ok := e.index.lookup(p.TrackID, tc)
	if !ok || q.RenderedGroup == nil {
		ids := make([]uint64, 0)
		if e.cur != nil {
			for _, cp := range e.cur.packets {
				ids = append(ids, cp.ID)
			}
		}
		return nil, &UnresolvedReferenceError{
			TrackID:          p.TrackID,
			ReferencingTC:    p.Timecode,
			RequestedTC:      tc,
			ClusterPacketIDs: ids,
		}
	}
	return q, nil
}

func applyLaceDurations(bg *ebml.BlockGroup, actualNs []int64, defaultDurationNs int64, scale int64) {
	var total int64
	anyDiffer := false
	for _, ns := range actualNs {
		total += ns
		if ns != defaultDurationNs {
			anyDiffer = true
		}
	}
	if !anyDiffer {
		return
	}
	if len(actualNs) > 1 {
		for i, ns := range actualNs {
			if ns != defaultDurationNs {
				bg.SetLaceDuration(i, uint64(ns/scale))
			}
		}
	}
	if total != defaultDurationNs*int64(len(actualNs)) {
		bg.SetBlockDuration(uint64(total / scale))
	}
}

// recordSplitCandidates scans c's packets for key frames on the
// split-governing track and records one SplitPoint candidate per hit,
// snapshotting each track's most recent packet id so pass 2 can resume
// cleanly at the chosen boundary.
func (e *Engine) recordSplitCandidates(c *chCluster) {
	governing := e.tracks.SplitGoverningTrack()
	if governing == nil {
		return
	}
	for _, p := range c.packets {
		if p.TrackID != governing.Number || p.Bref.Kind != packet.RefNone {
			continue
		}
		snapshot := make(map[uint64]uint64, len(e.lastPacketID))
		for k, v := range e.lastPacketID {
			snapshot[k] = v
		}
		e.planner.RecordCandidate(SplitPoint{
			TimecodeNs:            p.Timecode,
			FileOffset:            c.position,
			CuesSizeAtPoint:       e.CueTableSize(),
			PacketID:              p.ID,
			PerTrackLastPacketIDs: snapshot,
		})
	}
}
