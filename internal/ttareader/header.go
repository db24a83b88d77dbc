// Package ttareader implements a demultiplexer for the TTA lossless audio
// format: file header/seek-table parsing and fixed-interval frame
// emission. Grounded on mkvtoolnix's src/input/r_tta.cpp (tta_reader_c).
package ttareader

import (
	"encoding/binary"
	"fmt"
	"io"
)

// frameTime is the fixed nominal duration, in seconds, TTA's reference
// encoder uses for every seek-table entry but the last. mkvmerge's
// tta_packetizer_c (not present in the retrieved source excerpt) names
// this constant TTA_FRAME_TIME; this value is the format's fixed
// 1.04489795918367s block interval, reproduced here rather than rederived
// since it's intrinsic to the TTA bitstream, not a mkvmerge design choice.
var frameTime = 1.04489795918367

// Header is the fixed 22-byte TTA1 file header (minus the 4-byte magic
// already consumed by probing).
type Header struct {
	Channels      uint16
	BitsPerSample uint16
	SampleRate    uint32
	DataLength    uint32
}

// skipID3v2Tag reports the byte length of a leading ID3v2 tag at the
// current read position of r, or 0 if none is present. Mirrors
// skip_id3v2_tag: "ID3" magic, two version bytes, one flags byte, then a
// 4-byte synchsafe (7 bits per byte) size field.
func skipID3v2Tag(r io.Reader) (int, error) {
	var hdr [10]byte
	n, err := io.ReadFull(r, hdr[:])
	if err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return 0, fmt.Errorf("ttareader: short read probing for id3v2 tag (%d bytes)", n)
		}
		return 0, fmt.Errorf("ttareader: read id3v2 header: %w", err)
	}
	if hdr[0] != 'I' || hdr[1] != 'D' || hdr[2] != '3' {
		return -10, nil // caller rewinds; not an id3v2 tag
	}
	size := int(hdr[6]&0x7F)<<21 | int(hdr[7]&0x7F)<<14 | int(hdr[8]&0x7F)<<7 | int(hdr[9]&0x7F)
	return 10 + size, nil
}

// ProbeFile reports whether peek, the leading bytes of a file, begins
// (after an optional leading ID3v2 tag) with the "TTA1" magic. It only
// inspects the slice; a tag longer than peek makes it report false.
func ProbeFile(peek []byte) bool {
	off, err := skipID3v2Tag(sliceReader{peek})
	if err != nil || off < 0 {
		off = 0
	}
	if off+4 > len(peek) {
		return false
	}
	return string(peek[off:off+4]) == "TTA1"
}

// SkipMagic positions r just past the "TTA1" magic (skipping a leading
// ID3v2 tag first, if present) and reports how many bytes were skipped
// ahead of the magic, so a caller computing ParseHeader's totalSize from a
// file's total size can subtract them out.
func SkipMagic(r io.ReadSeeker) (int64, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("ttareader: seek to start: %w", err)
	}
	var hdr [10]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, fmt.Errorf("ttareader: read header: %w", err)
	}
	var tagLen int64
	if hdr[0] == 'I' && hdr[1] == 'D' && hdr[2] == '3' {
		size := int64(hdr[6]&0x7F)<<21 | int64(hdr[7]&0x7F)<<14 | int64(hdr[8]&0x7F)<<7 | int64(hdr[9]&0x7F)
		tagLen = 10 + size
		if _, err := r.Seek(tagLen, io.SeekStart); err != nil {
			return 0, fmt.Errorf("ttareader: seek past id3v2 tag: %w", err)
		}
	} else if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("ttareader: rewind: %w", err)
	}
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return 0, fmt.Errorf("ttareader: read TTA1 magic: %w", err)
	}
	if string(magic[:]) != "TTA1" {
		return 0, fmt.Errorf("ttareader: missing TTA1 magic")
	}
	return tagLen, nil
}

type sliceReader struct{ b []byte }

func (s sliceReader) Read(p []byte) (int, error) {
	n := copy(p, s.b)
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// ParseHeader reads the magic-less fixed header and the variable-length
// seek table (one uint32-LE frame byte length per table entry, terminated
// once the running byte sum reaches the stream's total data size) from r,
// then consumes the seek table's trailing CRC32 so r is left at the first
// byte of audio data.
func ParseHeader(r io.Reader, totalSize int64) (Header, []uint32, error) {
	var raw [18]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return Header{}, nil, fmt.Errorf("ttareader: read header: %w", err)
	}
	h := Header{
		Channels:      binary.LittleEndian.Uint16(raw[2:4]),
		BitsPerSample: binary.LittleEndian.Uint16(raw[4:6]),
		SampleRate:    binary.LittleEndian.Uint32(raw[6:10]),
		DataLength:    binary.LittleEndian.Uint32(raw[10:14]),
	}

	seekSum := int64(22 + 4) // 22-byte header (magic consumed by caller) + the seek table's CRC32
	var seekPoints []uint32
	var u32 [4]byte
	for seekSum < totalSize {
		if _, err := io.ReadFull(r, u32[:]); err != nil {
			return Header{}, nil, fmt.Errorf("ttareader: read seek table entry: %w", err)
		}
		sp := binary.LittleEndian.Uint32(u32[:])
		seekPoints = append(seekPoints, sp)
		seekSum += int64(sp) + 4
	}
	if _, err := io.ReadFull(r, u32[:]); err != nil {
		return Header{}, nil, fmt.Errorf("ttareader: read seek table crc: %w", err)
	}
	return h, seekPoints, nil
}
