package mpegvideo

import (
	"fmt"
	"math"

	"github.com/Azunyan1111/mkvclusterd/internal/diag"
	"github.com/Azunyan1111/mkvclusterd/internal/packet"
)

// slot is a decoded frame waiting for its turn to be handed to the
// cluster engine: the spec's bref_slot / fref_slot / queued B-frame
// entries. bref/fref are resolved at the point the spec's original code
// resolves them — at arrival for I/P frames, at flush time for B frames.
type slot struct {
	payload  []byte
	kind     PictureType
	timecode int64
	duration int64
	bref     packet.Ref
	fref     packet.Ref
	emitted  bool
}

// Packetizer is the MPEG-1/2 video packetizer. It owns a Parser for byte-
// stream frame discovery and the bref_slot/fref_slot/queued_bs state
// machine for B-frame reordering, grounded on
// video_packetizer_c::process/flush_frames.
type Packetizer struct {
	TrackID uint64
	Emit    func(*packet.Packet) error

	parser *Parser
	fps    float64

	framesOutput  int64
	durationShift int64

	brefSlot *slot
	frefSlot *slot
	queuedBs []*slot

	lastTimecode int64
	haveTimecode bool
}

// LastTimecode reports the timecode of the most recently emitted packet,
// used by the mux driver's NextTimecode reader-selection heuristic.
func (p *Packetizer) LastTimecode() (int64, bool) { return p.lastTimecode, p.haveTimecode }

// NewPacketizer constructs a packetizer for trackID. fps may be 0, in
// which case it is taken from the stream's first sequence header once
// seen; until then frames are timestamped assuming 25fps, matching the
// "if fps was not supplied, extract it from the sequence header" rule with
// a practical fallback before extraction completes.
func NewPacketizer(trackID uint64, fps float64, emit func(*packet.Packet) error) *Packetizer {
	return &Packetizer{
		TrackID: trackID,
		Emit:    emit,
		parser:  NewParser(),
		fps:     fps,
	}
}

func (p *Packetizer) effectiveFPS() float64 {
	if p.fps > 0 {
		return p.fps
	}
	if r := p.parser.FrameRate(); r > 0 {
		return r
	}
	return 25.0
}

// Process feeds buf into the parser and drains every frame it yields,
// following the spec's "while parser has free space and unread input,
// push up to min(free_space, remaining) bytes; drain all available
// frames; repeat until input is exhausted" loop.
func (p *Packetizer) Process(buf []byte) error {
	for len(buf) > 0 {
		free := p.parser.GetFreeBufferSpace()
		n := len(buf)
		if free < n {
			n = free
		}
		if n > 0 {
			p.parser.WriteData(buf[:n])
			buf = buf[n:]
		}
		for p.parser.GetState() == StateFrameReady || hasPendingFrame(p.parser) {
			f := p.parser.ReadFrame()
			if f == nil {
				break
			}
			if p.fps == 0 && p.parser.FrameRate() > 0 {
				diag.Log("mpegvideo: extracted frame rate %.3f from sequence header\n", p.parser.FrameRate())
			}
			if err := p.handleFrame(f); err != nil {
				return err
			}
		}
		if n == 0 {
			break
		}
	}
	return nil
}

func hasPendingFrame(p *Parser) bool { return len(p.buf) > 4 }

func (p *Packetizer) handleFrame(f *Frame) error {
	if f.Type == PictureI || (f.Type != PictureB && p.frefSlot != nil) {
		if err := p.flush(f.Type); err != nil {
			return err
		}
	}

	fps := p.effectiveFPS()
	nominal := int64(math.Round(1e9 / fps))
	timecode := int64(math.Round(1e9*float64(p.framesOutput)/fps)) + p.durationShift
	duration := nominal
	p.framesOutput++

	switch f.Type {
	case PictureI:
		s := &slot{payload: f.Payload, kind: f.Type, timecode: timecode, duration: duration, bref: packet.NoRef, fref: packet.NoRef}
		if p.brefSlot == nil {
			p.brefSlot = s
			return p.emitSlot(s)
		}
		p.frefSlot = s
		return nil

	case PictureP:
		if p.brefSlot == nil {
			return &ProtocolError{Reason: "found a P frame but no I frame"}
		}
		s := &slot{payload: f.Payload, kind: f.Type, timecode: timecode, duration: duration,
			bref: packet.AbsoluteRef(p.brefSlot.timecode), fref: packet.NoRef}
		p.frefSlot = s
		return nil

	default: // PictureB
		p.queuedBs = append(p.queuedBs, &slot{payload: f.Payload, kind: f.Type, timecode: timecode, duration: duration})
		return nil
	}
}

// flush implements video_packetizer_c::flush_frames: emits the pending
// frefSlot (shifting its timecode so the queued B frames occupy the
// intervening display slots), then every queued B frame referencing both
// the old anchor and the newly emitted one, then promotes frefSlot into
// brefSlot.
func (p *Packetizer) flush(nextType PictureType) error {
	if p.brefSlot == nil {
		if len(p.queuedBs) > 0 {
			diag.Log("mpegvideo: dropping %d orphan B frame(s), no I frame seen yet\n", len(p.queuedBs))
			p.queuedBs = nil
		}
		return nil
	}

	if p.frefSlot == nil {
		if len(p.queuedBs) > 0 {
			diag.Log("mpegvideo: dropping %d B frame(s), only one reference frame available\n", len(p.queuedBs))
			p.queuedBs = nil
		}
		return nil
	}

	fps := p.effectiveFPS()
	p.frefSlot.timecode += int64(float64(len(p.queuedBs)) * 1e9 / fps)
	if err := p.emitSlot(p.frefSlot); err != nil {
		return err
	}

	oldBref := p.brefSlot.timecode
	newFref := p.frefSlot.timecode
	for _, b := range p.queuedBs {
		b.bref = packet.AbsoluteRef(oldBref)
		b.fref = packet.AbsoluteRef(newFref)
		if err := p.emitSlot(b); err != nil {
			return err
		}
	}
	p.queuedBs = nil

	p.brefSlot = p.frefSlot
	p.frefSlot = nil

	if nextType == PictureI && p.brefSlot.kind == PictureP {
		p.brefSlot = nil
	}
	return nil
}

// Flush drains everything still buffered at end of stream.
func (p *Packetizer) Flush() error {
	if err := p.flush(0); err != nil {
		return err
	}
	if p.brefSlot != nil && !p.brefSlot.emitted {
		if err := p.emitSlot(p.brefSlot); err != nil {
			return err
		}
	}
	p.brefSlot = nil
	return nil
}

func (p *Packetizer) emitSlot(s *slot) error {
	if s.emitted {
		return nil
	}
	s.emitted = true
	p.lastTimecode = s.timecode
	p.haveTimecode = true
	pkt := packet.New(p.TrackID, s.payload, s.timecode, s.duration, s.bref, s.fref)
	return p.Emit(pkt)
}

// ProtocolError marks a malformed-stream condition that is fatal in native
// mode (a P frame arriving with no preceding I frame).
type ProtocolError struct{ Reason string }

func (e *ProtocolError) Error() string { return fmt.Sprintf("mpegvideo: %s", e.Reason) }
