package ttareader

import (
	"fmt"
	"io"
	"math"

	"github.com/Azunyan1111/mkvclusterd/internal/packet"
)

// Reader demultiplexes a TTA stream into fixed-interval audio packets,
// matching tta_reader_c::read: pull the next seek-table-sized chunk of
// compressed bytes, hand it to the track as one packet, and use the
// per-frame nominal duration for every packet but the last, whose
// duration is derived from the declared total sample count instead.
type Reader struct {
	TrackID uint64
	Emit    func(*packet.Packet) error

	src        io.Reader
	header     Header
	seekPoints []uint32
	pos        int

	framesEmitted int64
	lastTimecode  int64
	haveTimecode  bool
}

// NewReader builds a Reader over src, which must be positioned at the
// first byte of compressed audio data (immediately after the seek table).
func NewReader(trackID uint64, src io.Reader, header Header, seekPoints []uint32, emit func(*packet.Packet) error) *Reader {
	return &Reader{TrackID: trackID, Emit: emit, src: src, header: header, seekPoints: seekPoints}
}

func (r *Reader) Identify() string { return "tta" }

func (r *Reader) NextTimecode() (int64, bool) { return r.lastTimecode, r.haveTimecode }

// ReadOne pulls exactly one seek-table chunk and emits it as a packet.
func (r *Reader) ReadOne() (bool, error) {
	if r.pos >= len(r.seekPoints) {
		return false, nil
	}
	n := int(r.seekPoints[r.pos])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.src, buf); err != nil {
		return false, fmt.Errorf("ttareader: read frame %d: %w", r.pos, err)
	}
	r.pos++

	duration := int64(frameTime * 1e9)
	isLast := r.pos >= len(r.seekPoints)
	if isLast {
		samplesLeft := float64(r.header.DataLength) - float64(len(r.seekPoints)-1)*frameTime*float64(r.header.SampleRate)
		duration = int64(math.Round(samplesLeft * 1e9 / float64(r.header.SampleRate)))
	}

	tc := r.framesEmitted * int64(frameTime*1e9)
	r.framesEmitted++
	r.lastTimecode = tc
	r.haveTimecode = true

	pkt := packet.New(r.TrackID, buf, tc, duration, packet.NoRef, packet.NoRef)
	if err := r.Emit(pkt); err != nil {
		return false, fmt.Errorf("ttareader: emit: %w", err)
	}
	return !isLast, nil
}
