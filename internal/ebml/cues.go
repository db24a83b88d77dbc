package ebml

import "fmt"

// CueEntry is one row of the seek index: at TimecodeTicks, decoding Track
// can begin cleanly starting at ClusterPosition bytes into the Segment.
type CueEntry struct {
	TimecodeTicks   uint64
	Track           uint64
	ClusterPosition uint64 // byte offset from the first byte after the Segment's size descriptor
}

// WriteCues renders the Segment's Cues element. Cues are only ever
// appended once, at finalize time, after every cluster's final byte
// position is known — there is no SeekHead pointing at them, since patching
// one in would require seeking backward, which the byte sink never does.
func WriteCues(sink Sink, entries []CueEntry) (int64, error) {
	root := NewMaster(IDCues)
	for _, c := range entries {
		point := NewMaster(IDCuePoint).
			AddChild(NewUInt(IDCueTime, c.TimecodeTicks)).
			AddChild(NewMaster(IDCueTrackPositions).
				AddChild(NewUInt(IDCueTrack, c.Track)).
				AddChild(NewUInt(IDCueClusterPosition, c.ClusterPosition)))
		root.AddChild(point)
	}
	n, err := root.Render(sink)
	if err != nil {
		return n, fmt.Errorf("ebml: write Cues: %w", err)
	}
	return n, nil
}
