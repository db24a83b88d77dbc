// Package track holds the per-track descriptors the cluster engine and
// packetizers consult: codec identity, default frame duration, and the
// cue-creation policy that governs how densely the seek index is built.
package track

import "github.com/Azunyan1111/mkvclusterd/internal/ebml"

// CuePolicy controls when the cluster engine appends a cue entry for a
// packet rendered on this track.
type CuePolicy int

const (
	// CueIFrames indexes only key frames (bref == none). The default for
	// video tracks.
	CueIFrames CuePolicy = iota
	// CueAll indexes every rendered packet.
	CueAll
	// CueNone never indexes this track.
	CueNone
)

// Kind is the track's media type.
type Kind int

const (
	KindVideo Kind = iota
	KindAudio
	KindSubtitle
)

// Descriptor is the Track Registry's entry for one track: everything the
// cluster engine and EBML writer need to know about it that doesn't change
// packet-to-packet.
type Descriptor struct {
	Number          uint64
	CodecID         string
	Kind            Kind
	DefaultDuration int64 // ns
	CuePolicy       CuePolicy

	// MinLiveRefTimecode is the sweep's "this track will never reference
	// anything before here again" watermark, advanced every time a key
	// frame on this track is rendered.
	MinLiveRefTimecode int64

	// LastKeyOrPTimecode is consulted to resolve packet.AutoRef backward
	// references for P-frames that don't carry an explicit one.
	LastKeyOrPTimecode int64
	hasLastKeyOrP      bool

	// Entry is the EBML-layer handle carrying this track's header fields;
	// built once and reused by every BlockGroup on this track.
	Entry *ebml.TrackEntry
}

// NewDescriptor builds a Descriptor and its backing ebml.TrackEntry.
func NewDescriptor(number uint64, codecID string, kind Kind, defaultDurationNs int64, policy CuePolicy) *Descriptor {
	etype := ebml.TrackTypeVideo
	switch kind {
	case KindAudio:
		etype = ebml.TrackTypeAudio
	case KindSubtitle:
		etype = ebml.TrackTypeSubtitle
	}
	return &Descriptor{
		Number:          number,
		CodecID:         codecID,
		Kind:            kind,
		DefaultDuration: defaultDurationNs,
		CuePolicy:       policy,
		Entry: &ebml.TrackEntry{
			Number:          number,
			UID:             number,
			Type:            etype,
			CodecID:         codecID,
			DefaultDuration: uint64(defaultDurationNs),
		},
	}
}

// RecordKeyOrP updates the track's auto-reference watermark after a key or
// P frame has been assigned an id, so a later P/B frame with bref == auto
// resolves against it.
func (d *Descriptor) RecordKeyOrP(timecodeNs int64) {
	d.LastKeyOrPTimecode = timecodeNs
	d.hasLastKeyOrP = true
}

// HasAutoRef reports whether a prior key-or-P frame exists to resolve an
// AutoRef against.
func (d *Descriptor) HasAutoRef() bool { return d.hasLastKeyOrP }

// AdvanceMinLiveRef raises the watermark below which packets on this track
// are considered superseded, called whenever a key frame is rendered.
func (d *Descriptor) AdvanceMinLiveRef(timecodeNs int64) {
	if timecodeNs > d.MinLiveRefTimecode {
		d.MinLiveRefTimecode = timecodeNs
	}
}

// Registry is the Track Registry: an ordered collection of Descriptors
// looked up by track number.
type Registry struct {
	byNumber map[uint64]*Descriptor
	order    []*Descriptor
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{byNumber: make(map[uint64]*Descriptor)}
}

// Add registers d, keyed by its track number.
func (r *Registry) Add(d *Descriptor) {
	r.byNumber[d.Number] = d
	r.order = append(r.order, d)
}

// Get looks up a track by number.
func (r *Registry) Get(number uint64) (*Descriptor, bool) {
	d, ok := r.byNumber[number]
	return d, ok
}

// All returns every registered track in registration order.
func (r *Registry) All() []*Descriptor { return r.order }

// Entries returns the backing ebml.TrackEntry for every track, in
// registration order, ready for ebml.WriteTracks.
func (r *Registry) Entries() []*ebml.TrackEntry {
	out := make([]*ebml.TrackEntry, len(r.order))
	for i, d := range r.order {
		out[i] = d.Entry
	}
	return out
}

// SplitGoverningTrack returns the track that governs split-point decisions:
// the first video track if one exists, else the first track at all.
func (r *Registry) SplitGoverningTrack() *Descriptor {
	for _, d := range r.order {
		if d.Kind == KindVideo {
			return d
		}
	}
	if len(r.order) > 0 {
		return r.order[0]
	}
	return nil
}
