// Package ebml is the EBML/Matroska serialization primitive the cluster
// engine renders through. Spec treats this layer as an external collaborator
// ("assumed available"); this package is our concrete stand-in for it,
// generalized from the ad hoc element writers the teacher duplicated in
// internal/webm_muxer.go and internal/mkvwriter/encoded_mkv_writer.go into
// one reusable encoder.
package ebml

// ID is a Matroska/EBML element identifier, encoded as it appears on the
// wire (with the leading length-marker bits of its VINT still set).
type ID uint32

// Element IDs used by this muxer. Values match the public Matroska element
// specification (https://www.matroska.org/technical/specs/index.html).
const (
	IDEBML     ID = 0x1A45DFA3
	IDSegment  ID = 0x18538067
	IDSeekHead ID = 0x114D9B74

	IDInfo          ID = 0x1549A966
	IDTimecodeScale ID = 0x2AD7B1
	IDDuration      ID = 0x4489
	IDMuxingApp     ID = 0x4D80
	IDWritingApp    ID = 0x5741

	IDTracks           ID = 0x1654AE6B
	IDTrackEntry       ID = 0xAE
	IDTrackNumber      ID = 0xD7
	IDTrackUID         ID = 0x73C5
	IDTrackType        ID = 0x83
	IDFlagLacing       ID = 0x9C
	IDDefaultDuration  ID = 0x23E383
	IDCodecID          ID = 0x86
	IDCodecPrivate     ID = 0x63A2
	IDVideo            ID = 0xE0
	IDPixelWidth       ID = 0xB0
	IDPixelHeight      ID = 0xBA
	IDDisplayWidth     ID = 0x54B0
	IDDisplayHeight    ID = 0x54BA
	IDAudio            ID = 0xE1
	IDSamplingFreq     ID = 0xB5
	IDChannels         ID = 0x9F

	IDCluster         ID = 0x1F43B675
	IDTimecode        ID = 0xE7
	IDPrevSize        ID = 0xAB
	IDSimpleBlock     ID = 0xA3
	IDBlockGroup      ID = 0xA0
	IDBlock           ID = 0xA1
	IDBlockDuration   ID = 0x9B
	IDReferenceBlock  ID = 0xFB
	IDReferencePrio   ID = 0xFA
	IDSlices          ID = 0x8E
	IDTimeSlice       ID = 0xE8
	IDSliceLaceNumber ID = 0xCC
	// IDSliceDuration is an internal mkvmerge-era identifier for recording a
	// laced frame's exact duration; it carries no standardized meaning to
	// mainstream players, only to a reader built against this muxer's own
	// writer, same as mkvmerge's own KaxSliceDuration.
	IDSliceDuration ID = 0x4794

	IDCues               ID = 0x1C53BB6B
	IDCuePoint           ID = 0xBB
	IDCueTime            ID = 0xB3
	IDCueTrackPositions  ID = 0xB7
	IDCueTrack           ID = 0xF7
	IDCueClusterPosition ID = 0xF1

	// Track types.
	TrackTypeVideo    = 0x01
	TrackTypeAudio    = 0x02
	TrackTypeSubtitle = 0x11
)
