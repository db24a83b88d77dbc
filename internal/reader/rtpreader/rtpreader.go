// Package rtpreader implements the live WHEP/WebRTC ingestion Reader: the
// "other collaborator" demultiplexer the spec names as out-of-core-scope
// for the cluster engine itself, wired here as one concrete mux.Reader
// among several. Grounded on the teacher's rtp_processor.go
// (DefaultRTPProcessor) for depacketization and webrtc.go/stream_manager.go
// for the track pull shape.
package rtpreader

import (
	"fmt"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	"github.com/Azunyan1111/mkvclusterd/internal/packet"
)

// Track is the subset of *webrtc.TrackRemote this package depends on,
// narrowed to a small interface so tests can supply a fake remote track
// without standing up a real PeerConnection.
type Track interface {
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
	Codec() webrtc.RTPCodecParameters
}

// Depacketizer turns one RTP packet's payload into zero or more complete
// access units, mirroring DefaultRTPProcessor.ProcessRTPPacket's per-codec
// NAL/partition reassembly. Each returned frame is reported with whether it
// is a keyframe, since that decides Bref for the emitted Packet.
type Depacketizer interface {
	// Push processes one RTP packet and returns any access units it
	// completes, each tagged with IsKeyFrame.
	Push(p *rtp.Packet) ([]Frame, error)
}

// Frame is one depacketized access unit.
type Frame struct {
	Payload    []byte
	IsKeyFrame bool
}

// Reader adapts a live RTP track into the mux.Reader capability set: each
// ReadOne call performs exactly one blocking track.ReadRTP and feeds the
// result through the codec-specific Depacketizer, emitting zero or more
// Packets.
type Reader struct {
	TrackID    uint64
	Emit       func(*packet.Packet) error
	ClockRate  uint32 // RTP timestamp clock rate, e.g. 90000 for video, 48000 for opus

	track Track
	depkt Depacketizer
	name  string

	haveBase     bool
	baseRTPStamp uint32
	lastTimecode int64
	haveTimecode bool
	lastKeyTC    int64
	haveKeyTC    bool
}

// NewReader builds a reader pulling from track, depacketizing with depkt,
// and converting RTP timestamps at clockRate Hz into nanoseconds relative
// to the first packet seen.
func NewReader(name string, trackID uint64, track Track, depkt Depacketizer, clockRate uint32, emit func(*packet.Packet) error) *Reader {
	return &Reader{TrackID: trackID, Emit: emit, ClockRate: clockRate, track: track, depkt: depkt, name: name}
}

func (r *Reader) Identify() string { return r.name }

func (r *Reader) NextTimecode() (int64, bool) { return r.lastTimecode, r.haveTimecode }

// ReadOne blocks for exactly one RTP packet and processes it.
func (r *Reader) ReadOne() (bool, error) {
	pkt, _, err := r.track.ReadRTP()
	if err != nil {
		return false, nil // track closed/EOS: treat as exhausted, not fatal
	}

	if !r.haveBase {
		r.haveBase = true
		r.baseRTPStamp = pkt.Timestamp
	}

	frames, err := r.depkt.Push(pkt)
	if err != nil {
		return false, fmt.Errorf("rtpreader: %s: depacketize: %w", r.name, err)
	}

	for _, f := range frames {
		tc := rtpTimecodeNs(pkt.Timestamp, r.baseRTPStamp, r.ClockRate)
		ref := packet.NoRef
		if !f.IsKeyFrame {
			if r.haveKeyTC {
				ref = packet.AbsoluteRef(r.lastKeyTC)
			} else {
				ref = packet.AutoRef
			}
		} else {
			r.lastKeyTC = tc
			r.haveKeyTC = true
		}

		r.lastTimecode = tc
		r.haveTimecode = true

		p := packet.New(r.TrackID, f.Payload, tc, 0, ref, packet.NoRef)
		if err := r.Emit(p); err != nil {
			return false, fmt.Errorf("rtpreader: %s: emit: %w", r.name, err)
		}
	}
	return true, nil
}

// rtpTimecodeNs converts an RTP timestamp to nanoseconds relative to base,
// handling the 32-bit wraparound the way a long-running capture eventually
// must.
func rtpTimecodeNs(ts, base, clockRate uint32) int64 {
	delta := int64(int32(ts - base))
	return delta * 1_000_000_000 / int64(clockRate)
}
