// Package packet defines the unit of work handed from a packetizer to the
// cluster engine: one timestamped, owned chunk of encoded media plus the
// reference metadata the engine needs to resolve prediction dependencies.
package packet

import (
	"sync/atomic"

	"github.com/Azunyan1111/mkvclusterd/internal/ebml"
)

// RefKind distinguishes the three ways a packet can name its backward
// reference: no dependency, "let the engine pick the track's last
// key-or-P frame", or an explicit absolute timecode.
type RefKind int

const (
	RefNone RefKind = iota
	RefAuto
	RefAbsolute
)

// Ref is a backward or forward reference, either absent, auto-resolved by
// the engine, or pinned to an absolute timecode in nanoseconds.
type Ref struct {
	Kind        RefKind
	TimecodeNs  int64
}

// NoRef is the zero-value "no reference" sentinel.
var NoRef = Ref{Kind: RefNone}

// AutoRef resolves, at render time, to the track's last rendered key-or-P frame.
var AutoRef = Ref{Kind: RefAuto}

// AbsoluteRef pins a reference to an explicit timecode.
func AbsoluteRef(ns int64) Ref { return Ref{Kind: RefAbsolute, TimecodeNs: ns} }

var nextID uint64

// NextID returns the next strictly increasing packet id. Shared across all
// tracks, matching the spec's "Packet.id is strictly increasing in arrival
// order across all tracks" invariant.
func NextID() uint64 { return atomic.AddUint64(&nextID, 1) - 1 }

// ResetIDs rewinds the global id counter, giving independent engine
// instances (such as the two passes of mux.RunSplit) a deterministic
// starting id.
func ResetIDs() { atomic.StoreUint64(&nextID, 0) }

// Packet is one unit of encoded media ready for the cluster engine.
type Packet struct {
	ID       uint64
	TrackID  uint64
	Payload  []byte
	Timecode int64 // ns
	Duration int64 // ns
	Bref     Ref
	Fref     Ref
	RefPrio  uint8

	// RenderedGroup is set by the cluster engine once this packet's
	// containing cluster has been written; nil until then. A later packet
	// resolving a reference to this one requires RenderedGroup != nil,
	// matching the spec's "Q.rendered_group != null" precondition.
	RenderedGroup *ebml.BlockGroup

	// Superseded is set true by the sweep once the packet can no longer be
	// referenced by future packets on its track.
	Superseded bool
}

// New constructs a Packet without an id; the cluster engine assigns one in
// AddPacket, matching the spec's "Assign packet.id, append to current
// cluster" step rather than having the packetizer pick it.
func New(trackID uint64, payload []byte, timecodeNs, durationNs int64, bref, fref Ref) *Packet {
	return &Packet{
		TrackID:  trackID,
		Payload:  payload,
		Timecode: timecodeNs,
		Duration: durationNs,
		Bref:     bref,
		Fref:     fref,
	}
}

// FreePayload drops the owned payload once the engine no longer needs it,
// matching the "payload freed, metadata kept until pruning" lifetime rule.
func (p *Packet) FreePayload() { p.Payload = nil }
