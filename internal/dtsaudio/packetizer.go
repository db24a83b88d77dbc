package dtsaudio

import (
	"fmt"

	"github.com/Azunyan1111/mkvclusterd/internal/packet"
)

// timestampCalculator assigns sample-accurate timecodes: each call advances
// by exactly samples/sampleRate seconds of accumulated sample count,
// avoiding drift from repeatedly rounding a per-frame duration. Grounded on
// dts_packetizer_c::m_timestamp_calculator (timestamp_calculator_c).
type timestampCalculator struct {
	sampleRate    int64
	samplesSoFar  int64
}

func newTimestampCalculator(sampleRate int64) *timestampCalculator {
	return &timestampCalculator{sampleRate: sampleRate}
}

func (t *timestampCalculator) next(samples int) int64 {
	tc := t.samplesSoFar * 1_000_000_000 / t.sampleRate
	t.samplesSoFar += int64(samples)
	return tc
}

// Packetizer is the DTS audio packetizer: a sync-word/header pull-buffer
// feeding sample-accurate timestamped packets to the cluster engine.
// Grounded on dts_packetizer_c::process/queue_available_packets/
// process_available_packets/flush_impl.
type Packetizer struct {
	TrackID uint64
	Emit    func(*packet.Packet) error

	buf         []byte
	calc        *timestampCalculator
	haveFirst   bool
	firstHeader Header

	lastTimecode int64
	haveTimecode bool
}

// NewPacketizer builds a packetizer for trackID. The sampling frequency is
// not known until the first valid header is parsed; packets are withheld
// until then, matching "process_available_packets returns early while
// m_first_header.core_sampling_frequency is zero".
func NewPacketizer(trackID uint64, emit func(*packet.Packet) error) *Packetizer {
	return &Packetizer{TrackID: trackID, Emit: emit}
}

// FirstHeader reports the header observed on the first successfully
// parsed frame, used by the caller to set the track's codec private data
// (sampling frequency, channel count) once available.
func (p *Packetizer) FirstHeader() (Header, bool) { return p.firstHeader, p.haveFirst }

func (p *Packetizer) LastTimecode() (int64, bool) { return p.lastTimecode, p.haveTimecode }

// Process appends raw DTS bytes to the internal buffer and emits every
// complete frame it can now extract.
func (p *Packetizer) Process(data []byte) error {
	p.buf = append(p.buf, data...)
	return p.drain(false)
}

// Flush drains whatever remains buffered at end of stream.
func (p *Packetizer) Flush() error {
	return p.drain(true)
}

func (p *Packetizer) drain(flushing bool) error {
	for {
		frame, hdr, ok := p.nextFrame()
		if !ok {
			return nil
		}
		if !p.haveFirst {
			p.firstHeader = hdr
			p.haveFirst = true
			p.calc = newTimestampCalculator(int64(hdr.SamplingFreq))
		}
		tc := p.calc.next(hdr.SamplesPerCore)
		dur := hdr.PacketLengthNs()
		p.lastTimecode = tc
		p.haveTimecode = true
		pkt := packet.New(p.TrackID, frame, tc, dur, packet.NoRef, packet.NoRef)
		if err := p.Emit(pkt); err != nil {
			return fmt.Errorf("dtsaudio: emit: %w", err)
		}
		_ = flushing
	}
}

// nextFrame extracts the next complete DTS frame from the buffer, or
// reports ok == false if none is available yet. Mirrors
// dts_packetizer_c::get_dts_packet: find sync word, drop leading garbage,
// parse the header, and require the full frame to already be buffered.
func (p *Packetizer) nextFrame() ([]byte, Header, bool) {
	if len(p.buf) == 0 {
		return nil, Header{}, false
	}

	pos := FindSyncWord(p.buf)
	if pos < 0 {
		if len(p.buf) > 4 {
			p.buf = p.buf[len(p.buf)-4:]
		}
		return nil, Header{}, false
	}
	if pos > 0 {
		p.buf = p.buf[pos:]
	}

	hdr, ok := FindHeader(p.buf)
	if !ok || hdr.FrameByteSize > len(p.buf) {
		return nil, Header{}, false
	}

	frame := append([]byte(nil), p.buf[:hdr.FrameByteSize]...)
	p.buf = p.buf[hdr.FrameByteSize:]
	return frame, hdr, true
}
