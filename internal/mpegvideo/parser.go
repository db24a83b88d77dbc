// Package mpegvideo implements the MPEG-1/2 video packetizer: byte-stream
// frame-boundary discovery, I/P/B classification, B-frame reordering into
// decode order, and frame-rate extraction from in-band sequence headers
// (aspect ratio is not parsed). Grounded on mkvtoolnix's src/output/p_video.cpp
// (video_packetizer_c / mpeg_12_video_packetizer_c) and
// src/input/r_mpeg.cpp for stream probing.
package mpegvideo

// ParserState mirrors the states the spec names for the internal frame
// discovery parser.
type ParserState int

const (
	StateNeedData ParserState = iota
	StateFrameReady
	StateEndOfStream
	StateError
)

const (
	startCodePicture  = 0x00
	startCodeSequence = 0xB3
	startCodeExt      = 0xB5
	startCodeGOP      = 0xB8
)

// PictureType is the MPEG picture_coding_type field.
type PictureType byte

const (
	PictureI PictureType = 1
	PictureP PictureType = 2
	PictureB PictureType = 3
)

// Frame is one parsed access unit: its payload and the picture type found
// in its picture header. Timecode/duration are filled in by the
// Packetizer, not the parser, which only knows byte boundaries.
type Frame struct {
	Payload []byte
	Type    PictureType
}

// Parser scans an MPEG-1/2 elementary byte stream for start-code-delimited
// access units. It buffers input across WriteData calls and reports ready
// frames as soon as the following start code confirms where the current
// one ends, matching the spec's "internal parser ... push up to
// min(free_space, buf_remaining) bytes; drain all available frames"
// pull model.
type Parser struct {
	buf           []byte
	lastFrameRate float64
	state         ParserState
	maxBuffer     int
}

// NewParser creates a parser with a generous internal buffer cap; the real
// mkvmerge parser bounds this to avoid unbounded growth on garbage input.
func NewParser() *Parser {
	return &Parser{maxBuffer: 8 * 1024 * 1024, state: StateNeedData}
}

// GetState reports the parser's current state.
func (p *Parser) GetState() ParserState { return p.state }

// GetFreeBufferSpace reports how many bytes remain under the parser's
// buffer cap. WriteData does not enforce the cap; callers size their
// writes by this value.
func (p *Parser) GetFreeBufferSpace() int {
	free := p.maxBuffer - len(p.buf)
	if free < 0 {
		return 0
	}
	return free
}

// WriteData appends data to the parser's internal buffer.
func (p *Parser) WriteData(data []byte) {
	p.buf = append(p.buf, data...)
	if p.state == StateEndOfStream || p.state == StateError {
		p.state = StateNeedData
	}
}

// FrameRate returns the frame rate extracted from the most recently seen
// sequence header, or 0 if none has been seen yet.
func (p *Parser) FrameRate() float64 { return p.lastFrameRate }

// ReadFrame returns the next complete frame, or nil if more data is
// needed. It scans for a start code, classifies the access unit type from
// the immediately following picture header, and (for sequence headers)
// updates FrameRate as a side effect, matching
// extract_mpeg1_2_fps being invoked opportunistically during parsing.
func (p *Parser) ReadFrame() *Frame {
	start := findStartCode(p.buf, 0)
	if start < 0 {
		if len(p.buf) > 4 {
			p.buf = p.buf[len(p.buf)-4:]
		}
		p.state = StateNeedData
		return nil
	}

	next := findStartCode(p.buf, start+4)
	if next < 0 {
		p.state = StateNeedData
		return nil
	}

	code := p.buf[start+3]
	if code == startCodeSequence {
		if fps, ok := extractMPEG12FPS(p.buf[start:next]); ok {
			p.lastFrameRate = fps
		}
	}

	frameStart, frameType, ok := findNextPicture(p.buf, start, next)
	if !ok {
		p.buf = p.buf[next:]
		p.state = StateNeedData
		return nil
	}

	payload := append([]byte(nil), p.buf[frameStart:next]...)
	p.buf = p.buf[next:]
	p.state = StateFrameReady
	return &Frame{Payload: payload, Type: frameType}
}

// findNextPicture scans the region [from, to) for a picture_start_code and
// returns its offset and decoded type.
func findNextPicture(buf []byte, from, to int) (int, PictureType, bool) {
	for i := from; i+5 < to; i++ {
		if buf[i] == 0 && buf[i+1] == 0 && buf[i+2] == 1 && buf[i+3] == startCodePicture {
			codingType := (buf[i+5] >> 3) & 0x07
			return i, PictureType(codingType), true
		}
	}
	return from, PictureI, false
}

func findStartCode(buf []byte, from int) int {
	for i := from; i+3 < len(buf); i++ {
		if buf[i] == 0 && buf[i+1] == 0 && buf[i+2] == 1 {
			return i
		}
	}
	return -1
}

var frameRateTable = [16]float64{
	0, 23.976, 24, 25, 29.97, 30, 50, 59.94, 60,
}

// extractMPEG12FPS reads the 4-bit frame_rate_code out of a sequence
// header payload, per the MPEG-1/2 sequence_header() syntax.
func extractMPEG12FPS(seqHeader []byte) (float64, bool) {
	if len(seqHeader) < 8 {
		return 0, false
	}
	code := seqHeader[7] & 0x0F
	if int(code) >= len(frameRateTable) || frameRateTable[code] == 0 {
		return 0, false
	}
	return frameRateTable[code], true
}
