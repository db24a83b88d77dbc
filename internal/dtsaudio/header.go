// Package dtsaudio implements the DTS audio packetizer: sync-word framing
// of a raw DTS elementary stream and sample-accurate packet timestamping.
// Grounded on mkvtoolnix's src/output/p_dts.cpp (dts_packetizer_c); the
// header bit layout itself (common/dts.h/.cpp in the original project)
// wasn't included in the retrieved source excerpt, so the field tables
// here follow the public DTS Coherent Acoustics core-frame header layout
// rather than being a line-for-line port.
package dtsaudio

import "fmt"

// syncWord is the standard 14/16-bit DTS core sync pattern.
var syncWord = [4]byte{0x7F, 0xFE, 0x80, 0x01}

// Header describes one DTS core frame, enough to packetize and set track
// headers: frame size in bytes, sampling frequency, channel count and
// sample count per frame.
type Header struct {
	FrameByteSize  int
	SamplingFreq   int
	Channels       int
	SamplesPerCore int // PCM samples per channel per core frame
}

var sfreqTable = [16]int{
	0, 8000, 16000, 32000, 64000, 128000, 11025, 22050,
	44100, 88200, 176400, 12000, 24000, 48000, 96000, 192000,
}

// amodeChannels approximates mkvtoolnix's AMODE -> channel-count table for
// the common layouts; surround configurations beyond index 9 fall back to
// amode+1, which is not exact for every exotic layout DTS defines but is
// never wrong by more than one channel for the layouts mkvmerge actually
// classifies as "has LFE" vs not.
var amodeChannels = [10]int{1, 2, 2, 2, 2, 3, 3, 4, 4, 5}

func channelsForAmode(amode int) int {
	if amode < len(amodeChannels) {
		return amodeChannels[amode]
	}
	return amode + 1
}

// FindSyncWord returns the offset of the first occurrence of the DTS sync
// pattern in buf, or -1 if none is found.
func FindSyncWord(buf []byte) int {
	for i := 0; i+4 <= len(buf); i++ {
		if buf[i] == syncWord[0] && buf[i+1] == syncWord[1] && buf[i+2] == syncWord[2] && buf[i+3] == syncWord[3] {
			return i
		}
	}
	return -1
}

// bitReader reads a big-endian bitstream MSB-first, matching DTS's packed
// header layout.
type bitReader struct {
	buf    []byte
	bitPos int
}

func (r *bitReader) read(n int) (uint32, bool) {
	var v uint32
	for i := 0; i < n; i++ {
		byteIdx := r.bitPos / 8
		if byteIdx >= len(r.buf) {
			return 0, false
		}
		bit := (r.buf[byteIdx] >> (7 - uint(r.bitPos%8))) & 1
		v = (v << 1) | uint32(bit)
		r.bitPos++
	}
	return v, true
}

// FindHeader parses a DTS core header starting exactly at buf[0] (which
// must already be sync-aligned) and returns the decoded Header plus true,
// or false if buf doesn't hold a complete, valid header.
func FindHeader(buf []byte) (Header, bool) {
	if len(buf) < 9 { // sync word plus the 38 header bits parsed below
		return Header{}, false
	}
	r := &bitReader{buf: buf}
	r.bitPos = 32 // skip sync word

	if _, ok := r.read(1); !ok { // FTYPE
		return Header{}, false
	}
	if _, ok := r.read(5); !ok { // SHORT (deficit sample count)
		return Header{}, false
	}
	if _, ok := r.read(1); !ok { // CPF (CRC present)
		return Header{}, false
	}
	nblksRaw, ok := r.read(7)
	if !ok {
		return Header{}, false
	}
	fsizeRaw, ok := r.read(14)
	if !ok {
		return Header{}, false
	}
	amodeRaw, ok := r.read(6)
	if !ok {
		return Header{}, false
	}
	sfreqRaw, ok := r.read(4)
	if !ok {
		return Header{}, false
	}

	frameByteSize := int(fsizeRaw) + 1
	if frameByteSize < 96 {
		return Header{}, false
	}
	sfreq := sfreqTable[sfreqRaw&0x0F]
	if sfreq == 0 {
		return Header{}, false
	}
	nblks := int(nblksRaw) + 1
	samplesPerCore := nblks * 32

	return Header{
		FrameByteSize:  frameByteSize,
		SamplingFreq:   sfreq,
		Channels:       channelsForAmode(int(amodeRaw)),
		SamplesPerCore: samplesPerCore,
	}, true
}

// PacketLengthNs returns the header's frame duration in nanoseconds.
func (h Header) PacketLengthNs() int64 {
	if h.SamplingFreq == 0 {
		return 0
	}
	return int64(h.SamplesPerCore) * 1_000_000_000 / int64(h.SamplingFreq)
}

func (h Header) String() string {
	return fmt.Sprintf("dts header: %d Hz, %d ch, %d bytes/frame", h.SamplingFreq, h.Channels, h.FrameByteSize)
}
