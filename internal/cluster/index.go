package cluster

import "github.com/Azunyan1111/mkvclusterd/internal/packet"

// refKey is the small per-track index key used to resolve bref/fref in
// O(1) instead of the O(N·M) linear scan the original cluster_helper used;
// per Design Notes §9.
type refKey struct {
	trackID  uint64
	timecode int64
}

type refIndex map[refKey]*packet.Packet

func (idx refIndex) put(p *packet.Packet) { idx[refKey{p.TrackID, p.Timecode}] = p }

func (idx refIndex) lookup(trackID uint64, timecodeNs int64) (*packet.Packet, bool) {
	p, ok := idx[refKey{trackID, timecodeNs}]
	return p, ok
}

func (idx refIndex) remove(p *packet.Packet) { delete(idx, refKey{p.TrackID, p.Timecode}) }
