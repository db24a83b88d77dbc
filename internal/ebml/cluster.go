package ebml

import "fmt"

// Cluster is the in-memory accumulation of one Matroska Cluster element.
// Packets are appended to it via AddFrame until the cluster engine decides
// to close it; only then is it rendered, as one definite-size master
// element, in a single Render call. Building the whole thing in memory
// before any bytes reach the sink is what lets the cluster engine read back
// an exact ElementSize() for split-point accounting.
type Cluster struct {
	timecode    uint64 // ticks, absolute
	timecodeSet bool
	groups      []*BlockGroup
}

// NewCluster starts a new, empty cluster. Its absolute timecode is set
// explicitly via SetTimecode; AddFrame does not set it, since the cluster
// engine only knows the boundary timecode once the first packet assigned to
// it arrives.
func NewCluster() *Cluster {
	return &Cluster{}
}

// SetTimecode pins the cluster's absolute timecode. A no-op once already set.
func (c *Cluster) SetTimecode(ticks uint64) {
	if !c.timecodeSet {
		c.timecode = ticks
		c.timecodeSet = true
	}
}

// Timecode returns the cluster's absolute timecode in ticks.
func (c *Cluster) Timecode() uint64 { return c.timecode }

// BlockGroup is one Matroska BlockGroup: a Block (possibly lacing several
// frames that share reference structure) plus its reference/duration
// metadata. This is the handle type add_frame hands back to the cluster
// engine so it can later call SetReferencePriority/SetBlockDuration/etc. on
// the group a given packet landed in.
type BlockGroup struct {
	track       *TrackEntry
	refs        []*BlockGroup
	frames      []laceFrame
	refPriority uint8
	duration    *uint64 // ticks, explicit override
	rendered    bool
}

type laceFrame struct {
	timecodeOffset int64 // ticks, absolute from the segment's timecode origin; made cluster-relative at render time
	payload        []byte
	durationTicks  uint64 // 0 means "use track default"
}

// AddFrame appends one frame to the cluster. If refs matches the reference
// set of the most recently added group for the same track, the frame is
// laced into that existing group instead of starting a new one — mirroring
// the "EBML Writer coalesces them into lace slices" behavior the cluster
// engine's block-group-transition logic expects.
func (c *Cluster) AddFrame(track *TrackEntry, timecodeOffsetTicks int64, payload []byte, refs ...*BlockGroup) *BlockGroup {
	if last := c.lastGroupFor(track); last != nil && sameRefs(last.refs, refs) && !last.rendered {
		last.frames = append(last.frames, laceFrame{timecodeOffset: timecodeOffsetTicks, payload: payload})
		return last
	}
	bg := &BlockGroup{
		track:  track,
		refs:   append([]*BlockGroup(nil), refs...),
		frames: []laceFrame{{timecodeOffset: timecodeOffsetTicks, payload: payload}},
	}
	c.groups = append(c.groups, bg)
	return bg
}

func (c *Cluster) lastGroupFor(track *TrackEntry) *BlockGroup {
	for i := len(c.groups) - 1; i >= 0; i-- {
		if c.groups[i].track == track {
			return c.groups[i]
		}
	}
	return nil
}

func sameRefs(a, b []*BlockGroup) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// SetReferencePriority is the get_child<ReferencePriority>(block_group)
// setter: higher values mark a frame as more important to retain, mirroring
// libmatroska's KaxReferencePriority.
func (bg *BlockGroup) SetReferencePriority(p uint8) { bg.refPriority = p }

// SetBlockDuration pins an explicit BlockDuration in ticks, overriding the
// track's DefaultDuration for this group.
func (bg *BlockGroup) SetBlockDuration(ticks uint64) { bg.duration = &ticks }

// SetLaceDuration overrides the duration of one individual laced frame
// within the group, emitted as a Slices/TimeSlice child at render time when
// it differs from the group's own duration.
func (bg *BlockGroup) SetLaceDuration(frameIndex int, ticks uint64) {
	if frameIndex >= 0 && frameIndex < len(bg.frames) {
		bg.frames[frameIndex].durationTicks = ticks
	}
}

// FrameCount reports how many frames have been laced into bg so far.
func (bg *BlockGroup) FrameCount() int { return len(bg.frames) }

// Refs exposes the block groups bg carries backward/forward references to,
// used by the cluster engine's sweep to find which still-buffered clusters
// a live packet keeps alive.
func (bg *BlockGroup) Refs() []*BlockGroup { return bg.refs }

func (bg *BlockGroup) blockPayload(clusterTimecode uint64) []byte {
	var out []byte
	out = append(out, EncodeVarInt(bg.track.Number)...)
	rel := bg.frames[0].timecodeOffset - int64(clusterTimecode)
	out = append(out, byte(rel>>8), byte(rel))

	if len(bg.frames) == 1 {
		out = append(out, 0x00) // flags: no lacing
		out = append(out, bg.frames[0].payload...)
		return out
	}

	// Xiph lacing: flags bit pattern 0b00000010, frame-count-1 byte, then
	// for every frame but the last a run of 0xFF bytes terminated by the
	// remainder, then the raw frame payloads back to back.
	out = append(out, 0x02)
	out = append(out, byte(len(bg.frames)-1))
	for i := 0; i < len(bg.frames)-1; i++ {
		sz := len(bg.frames[i].payload)
		for sz >= 255 {
			out = append(out, 0xFF)
			sz -= 255
		}
		out = append(out, byte(sz))
	}
	for _, f := range bg.frames {
		out = append(out, f.payload...)
	}
	return out
}

func (bg *BlockGroup) element(clusterTimecode uint64) *Element {
	e := NewMaster(IDBlockGroup).AddChild(NewLeaf(IDBlock, bg.blockPayload(clusterTimecode)))

	for _, ref := range bg.refs {
		delta := int64(ref.frames[0].timecodeOffset) - int64(bg.frames[0].timecodeOffset)
		e.AddChild(NewSInt(IDReferenceBlock, delta))
	}
	if len(bg.refs) == 0 {
		// Keyframe: ReferencePriority still recorded when the cluster
		// engine explicitly raised it above the default.
		if bg.refPriority > 0 {
			e.AddChild(NewUInt(IDReferencePrio, uint64(bg.refPriority)))
		}
	} else if bg.refPriority > 0 {
		e.AddChild(NewUInt(IDReferencePrio, uint64(bg.refPriority)))
	}
	if bg.duration != nil {
		e.AddChild(NewUInt(IDBlockDuration, *bg.duration))
	}

	var sliceChildren []*Element
	for i, f := range bg.frames {
		if f.durationTicks == 0 {
			continue
		}
		sliceChildren = append(sliceChildren, NewMaster(IDTimeSlice).
			AddChild(NewUInt(IDSliceLaceNumber, uint64(i))).
			AddChild(NewUInt(IDSliceDuration, f.durationTicks)))
	}
	if len(sliceChildren) > 0 {
		slices := NewMaster(IDSlices)
		for _, s := range sliceChildren {
			slices.AddChild(s)
		}
		e.AddChild(slices)
	}
	return e
}

// ElementSize reports the cluster's total encoded size without writing
// anything. The split planner does not call it; its byte offsets come from
// the sink position.
func (c *Cluster) ElementSize() int64 {
	root := c.build()
	return root.ElementSize()
}

func (c *Cluster) build() *Element {
	root := NewMaster(IDCluster).AddChild(NewUInt(IDTimecode, c.timecode))
	for _, bg := range c.groups {
		root.AddChild(bg.element(c.timecode))
	}
	return root
}

// Render writes the whole cluster — Timecode plus every BlockGroup — to
// sink as a single definite-size master element and marks every contained
// group rendered (no further lacing is possible once written).
func (c *Cluster) Render(sink Sink) (int64, error) {
	root := c.build()
	n, err := root.Render(sink)
	if err != nil {
		return n, fmt.Errorf("ebml: render cluster at timecode %d: %w", c.timecode, err)
	}
	for _, bg := range c.groups {
		bg.rendered = true
	}
	return n, nil
}

// Groups exposes the cluster's block groups in render order, used by the
// cluster engine's sweep to find which cluster owns a rendered group.
func (c *Cluster) Groups() []*BlockGroup { return c.groups }

// Track reports the track a block group belongs to.
func (bg *BlockGroup) Track() *TrackEntry { return bg.track }

// IsKeyframe reports whether this group carries no backward/forward
// references, i.e. it is independently decodable.
func (bg *BlockGroup) IsKeyframe() bool { return len(bg.refs) == 0 }
