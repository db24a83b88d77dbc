package rtpreader

import (
	"errors"
	"testing"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	"github.com/Azunyan1111/mkvclusterd/internal/packet"
)

// fakeTrack is a scripted Track: it returns one queued RTP packet per
// ReadRTP call, then a fixed error once exhausted, standing in for a real
// *webrtc.TrackRemote.
type fakeTrack struct {
	packets []*rtp.Packet
	pos     int
}

func (f *fakeTrack) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	if f.pos >= len(f.packets) {
		return nil, nil, errors.New("eos")
	}
	p := f.packets[f.pos]
	f.pos++
	return p, nil, nil
}

func (f *fakeTrack) Codec() webrtc.RTPCodecParameters { return webrtc.RTPCodecParameters{} }

// TestReaderConvertsRTPTimestampsToNanoseconds covers the RTP-clock-rate to
// nanosecond conversion relative to the first packet's timestamp, using the
// Opus depacketizer (one frame per packet) to isolate the timestamp math
// from reassembly.
func TestReaderConvertsRTPTimestampsToNanoseconds(t *testing.T) {
	track := &fakeTrack{packets: []*rtp.Packet{
		{Header: rtp.Header{Timestamp: 1000}, Payload: []byte{0x01}},
		{Header: rtp.Header{Timestamp: 1000 + 48000}, Payload: []byte{0x02}}, // +1s at 48kHz
	}}

	var emitted []*packet.Packet
	r := NewReader("audio", 2, track, OpusDepacketizer{}, 48000, func(p *packet.Packet) error {
		emitted = append(emitted, p)
		return nil
	})

	for i := 0; i < 2; i++ {
		more, err := r.ReadOne()
		if err != nil {
			t.Fatalf("ReadOne: %v", err)
		}
		if !more {
			t.Fatalf("ReadOne: reported exhausted too early at call %d", i)
		}
	}

	if len(emitted) != 2 {
		t.Fatalf("got %d emitted packets, want 2", len(emitted))
	}
	if emitted[0].Timecode != 0 {
		t.Errorf("first packet timecode = %d, want 0", emitted[0].Timecode)
	}
	if emitted[1].Timecode != 1_000_000_000 {
		t.Errorf("second packet timecode = %d, want 1e9 (1 second later)", emitted[1].Timecode)
	}
	if emitted[0].TrackID != 2 {
		t.Errorf("TrackID = %d, want 2", emitted[0].TrackID)
	}

	more, err := r.ReadOne()
	if err != nil {
		t.Fatalf("ReadOne on exhausted track: %v", err)
	}
	if more {
		t.Errorf("ReadOne: expected false once the track is exhausted")
	}
}

// TestReaderAutoRefBeforeFirstKeyframe covers an inter frame arriving before
// any keyframe: the H.264 depacketizer reports it as a keyframe, so the
// Reader emits it with no backward reference instead of falling back to
// AutoRef.
func TestReaderAutoRefBeforeFirstKeyframe(t *testing.T) {
	track := &fakeTrack{packets: []*rtp.Packet{
		{Header: rtp.Header{Timestamp: 0, Marker: true}, Payload: []byte{0x61, 0xAA}}, // NAL type 1, non-IDR
	}}

	var emitted []*packet.Packet
	r := NewReader("video", 1, track, &H264Depacketizer{}, 90000, func(p *packet.Packet) error {
		emitted = append(emitted, p)
		return nil
	})
	if _, err := r.ReadOne(); err != nil {
		t.Fatalf("ReadOne: %v", err)
	}
	if len(emitted) != 1 {
		t.Fatalf("got %d emitted packets, want 1", len(emitted))
	}
	// The depacketizer's own seenKeyFrame flag has never seen a real
	// keyframe, so takeFrame reports this first frame as a keyframe
	// regardless of its NAL type, matching "first frame always key".
	if emitted[0].Bref.Kind != packet.RefNone {
		t.Errorf("Bref = %+v, want none for the stream's first (forced-key) frame", emitted[0].Bref)
	}
}
