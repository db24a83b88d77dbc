package ebml

import "fmt"

// TrackEntry carries the header metadata for one muxed track, enough for
// WriteTracks to render a TrackEntry element and for Cluster/BlockGroup to
// reference it when writing Block content.
type TrackEntry struct {
	Number          uint64
	UID             uint64
	Type            int // TrackTypeVideo / TrackTypeAudio / TrackTypeSubtitle
	CodecID         string
	CodecPrivate    []byte
	DefaultDuration uint64 // ns

	// Video-only.
	PixelWidth, PixelHeight   uint64
	DisplayWidth, DisplayHeight uint64

	// Audio-only.
	SamplingFrequency float64
	Channels          uint64
}

func (t *TrackEntry) element() *Element {
	e := NewMaster(IDTrackEntry).
		AddChild(NewUInt(IDTrackNumber, t.Number)).
		AddChild(NewUInt(IDTrackUID, t.UID)).
		AddChild(NewUInt(IDTrackType, uint64(t.Type))).
		AddChild(NewUInt(IDFlagLacing, 1)).
		AddChild(NewString(IDCodecID, t.CodecID))
	if t.DefaultDuration > 0 {
		e.AddChild(NewUInt(IDDefaultDuration, t.DefaultDuration))
	}
	if len(t.CodecPrivate) > 0 {
		e.AddChild(NewLeaf(IDCodecPrivate, t.CodecPrivate))
	}
	switch t.Type {
	case TrackTypeVideo:
		video := NewMaster(IDVideo).
			AddChild(NewUInt(IDPixelWidth, t.PixelWidth)).
			AddChild(NewUInt(IDPixelHeight, t.PixelHeight))
		if t.DisplayWidth > 0 {
			video.AddChild(NewUInt(IDDisplayWidth, t.DisplayWidth))
		}
		if t.DisplayHeight > 0 {
			video.AddChild(NewUInt(IDDisplayHeight, t.DisplayHeight))
		}
		e.AddChild(video)
	case TrackTypeAudio:
		audio := NewMaster(IDAudio).
			AddChild(NewFloat(IDSamplingFreq, t.SamplingFrequency)).
			AddChild(NewUInt(IDChannels, t.Channels))
		e.AddChild(audio)
	}
	return e
}

// WriteEBMLHeader writes the fixed EBML header declaring this as a Matroska
// document, matching webm_muxer.go's writeEBMLHeader.
func WriteEBMLHeader(sink Sink, docType string, docTypeVersion uint64) (int64, error) {
	root := NewMaster(IDEBML).
		AddChild(NewUInt(0x4286, 1)).            // EBMLVersion
		AddChild(NewUInt(0x42F7, 1)).            // EBMLReadVersion
		AddChild(NewUInt(0x42F2, 4)).            // EBMLMaxIDLength
		AddChild(NewUInt(0x42F3, 8)).            // EBMLMaxSizeLength
		AddChild(NewString(0x4282, docType)).    // DocType
		AddChild(NewUInt(0x4287, docTypeVersion)).
		AddChild(NewUInt(0x4285, docTypeVersion)) // DocTypeReadVersion
	n, err := root.Render(sink)
	if err != nil {
		return n, fmt.Errorf("ebml: write EBML header: %w", err)
	}
	return n, nil
}

// WriteSegmentHeader opens the (size-unknown) Segment element that contains
// everything else in the file.
func WriteSegmentHeader(sink Sink) (int64, error) {
	return RenderUnknownSize(sink, IDSegment)
}

// SegmentInfo holds the fields of the Matroska Info element.
type SegmentInfo struct {
	TimecodeScale uint64 // ns per timecode tick, typically 1_000_000
	MuxingApp     string
	WritingApp    string
	DurationTicks float64 // in TimecodeScale units, 0 if unknown at write time
}

// WriteInfo writes the Segment's Info element.
func WriteInfo(sink Sink, info SegmentInfo) (int64, error) {
	e := NewMaster(IDInfo).
		AddChild(NewUInt(IDTimecodeScale, info.TimecodeScale)).
		AddChild(NewString(IDMuxingApp, info.MuxingApp)).
		AddChild(NewString(IDWritingApp, info.WritingApp))
	if info.DurationTicks > 0 {
		e.AddChild(NewFloat(IDDuration, info.DurationTicks))
	}
	n, err := e.Render(sink)
	if err != nil {
		return n, fmt.Errorf("ebml: write Info: %w", err)
	}
	return n, nil
}

// WriteTracks writes the Segment's Tracks element listing every track.
func WriteTracks(sink Sink, tracks []*TrackEntry) (int64, error) {
	e := NewMaster(IDTracks)
	for _, t := range tracks {
		e.AddChild(t.element())
	}
	n, err := e.Render(sink)
	if err != nil {
		return n, fmt.Errorf("ebml: write Tracks: %w", err)
	}
	return n, nil
}
