package ebml

import "testing"

// TestBlockTimecodeRelativeToClusterBase is a regression test for storing
// block timecodes relative to the segment-wide timecode origin instead of
// the owning cluster's own base timecode (spec invariant 3: "block
// timecodes inside are stored as offsets from [the cluster] base").
// A second cluster whose absolute base sits well past the first one must
// still encode small, cluster-relative offsets for its own frames.
func TestBlockTimecodeRelativeToClusterBase(t *testing.T) {
	track := &TrackEntry{Number: 1}

	c1 := NewCluster()
	c1.SetTimecode(0)
	bg1 := c1.AddFrame(track, 0, []byte{0x01})
	if got := int16(bg1.blockPayload(uint64(c1.Timecode()))[1])<<8 | int16(bg1.blockPayload(uint64(c1.Timecode()))[2]); got != 0 {
		t.Errorf("cluster 1 frame at its own base: relative timecode = %d, want 0", got)
	}

	// A second cluster starting 5000 ticks later (segment-absolute), with
	// a frame 40 ticks into it: the stored value must be 40, not 5040.
	c2 := NewCluster()
	c2.SetTimecode(5000)
	bg2 := c2.AddFrame(track, 5040, []byte{0x02})
	payload := bg2.blockPayload(uint64(c2.Timecode()))
	rel := int16(payload[1])<<8 | int16(payload[2])
	if rel != 40 {
		t.Errorf("cluster 2 frame: relative timecode = %d, want 40 (5040 - cluster base 5000)", rel)
	}
}

// TestReferenceBlockDeltaCrossesClusters checks that a ReferenceBlock delta
// between two frames in different clusters is computed from their absolute
// (segment-relative) timecodes, independent of either cluster's own base —
// distinguishing it from the per-block timecode, which must be
// cluster-relative.
func TestReferenceBlockDeltaCrossesClusters(t *testing.T) {
	track := &TrackEntry{Number: 1}

	c1 := NewCluster()
	c1.SetTimecode(0)
	key := c1.AddFrame(track, 0, []byte{0x01})

	c2 := NewCluster()
	c2.SetTimecode(5000)
	pframe := c2.AddFrame(track, 5040, []byte{0x02}, key)

	e := pframe.element(c2.Timecode())
	found := false
	for _, child := range e.children {
		if child.id == IDReferenceBlock {
			found = true
			// delta = key's absolute timecode (0) - pframe's absolute
			// timecode (5040) = -5040, decoded back from two's complement.
			want := EncodeSInt(-5040)
			if string(child.data) != string(want) {
				t.Errorf("ReferenceBlock payload = %x, want %x", child.data, want)
			}
		}
	}
	if !found {
		t.Fatalf("expected a ReferenceBlock child on the P frame's element")
	}
}

func TestEncodeVarIntWidths(t *testing.T) {
	cases := []struct {
		n    uint64
		want int
	}{
		{0, 1},
		{100, 1},
		{200, 2},
		{1 << 20, 3},
		{1 << 27, 4},
	}
	for _, c := range cases {
		if got := len(EncodeVarInt(c.n)); got != c.want {
			t.Errorf("EncodeVarInt(%d): width = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestElementSizeMatchesRenderedLength(t *testing.T) {
	e := NewMaster(IDCluster).
		AddChild(NewUInt(IDTimecode, 123)).
		AddChild(NewLeaf(IDBlockGroup, []byte{0xAA, 0xBB, 0xCC}))

	sink := &countingSink{}
	n, err := e.Render(sink)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if n != e.ElementSize() {
		t.Errorf("Render wrote %d bytes, ElementSize() reports %d", n, e.ElementSize())
	}
}

type countingSink struct{ pos int64 }

func (s *countingSink) Position() int64 { return s.pos }
func (s *countingSink) WriteBytes(p []byte) (int, error) {
	s.pos += int64(len(p))
	return len(p), nil
}
