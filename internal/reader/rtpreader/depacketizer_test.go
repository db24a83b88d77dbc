package rtpreader

import (
	"testing"

	"github.com/pion/rtp"
)

func rtpPkt(timestamp uint32, marker bool, payload []byte) *rtp.Packet {
	return &rtp.Packet{
		Header:  rtp.Header{Timestamp: timestamp, Marker: marker},
		Payload: payload,
	}
}

// TestH264DepacketizerSingleNAL covers the simplest case: one NAL per
// packet, frame flushed on the marker bit.
func TestH264DepacketizerSingleNAL(t *testing.T) {
	d := &H264Depacketizer{}
	frames, err := d.Push(rtpPkt(1000, true, []byte{0x65, 0xAA, 0xBB})) // NAL type 5 (IDR)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if !frames[0].IsKeyFrame {
		t.Errorf("expected first frame to be a keyframe")
	}
	want := []byte{0x00, 0x00, 0x00, 0x01, 0x65, 0xAA, 0xBB}
	if string(frames[0].Payload) != string(want) {
		t.Errorf("payload = %x, want %x", frames[0].Payload, want)
	}
}

// TestH264DepacketizerFUA covers FU-A fragmentation reassembly across
// multiple packets sharing one RTP timestamp.
func TestH264DepacketizerFUA(t *testing.T) {
	d := &H264Depacketizer{}
	nalHeader := byte(0x65) // F=0 NRI=3 type=5 (IDR), reconstructed from FU indicator/header
	fuIndicator := (nalHeader & 0xE0) | 28
	fuType := nalHeader & 0x1F
	start := []byte{fuIndicator, 0x80 | fuType, 0x11, 0x22} // S=1
	mid := []byte{fuIndicator, fuType, 0x33, 0x44}          // S=0 E=0
	end := []byte{fuIndicator, 0x40 | fuType, 0x55}         // E=1

	if _, err := d.Push(rtpPkt(2000, false, start)); err != nil {
		t.Fatalf("Push start: %v", err)
	}
	if _, err := d.Push(rtpPkt(2000, false, mid)); err != nil {
		t.Fatalf("Push mid: %v", err)
	}
	frames, err := d.Push(rtpPkt(2000, true, end))
	if err != nil {
		t.Fatalf("Push end: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	want := []byte{0x00, 0x00, 0x00, 0x01, 0x65, 0x11, 0x22, 0x33, 0x44, 0x55}
	if string(frames[0].Payload) != string(want) {
		t.Errorf("reassembled FU-A payload = %x, want %x", frames[0].Payload, want)
	}
}

// TestH264DepacketizerFlushesOnTimestampChange covers the "new RTP
// timestamp with pending data flushes the previous frame" rule, since not
// every H.264 sender reliably sets the marker bit.
func TestH264DepacketizerFlushesOnTimestampChange(t *testing.T) {
	d := &H264Depacketizer{}
	if _, err := d.Push(rtpPkt(1000, false, []byte{0x65, 0xAA})); err != nil {
		t.Fatalf("Push: %v", err)
	}
	frames, err := d.Push(rtpPkt(2000, false, []byte{0x61, 0xBB}))
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d flushed frames on timestamp change, want 1", len(frames))
	}
}

func TestH264DepacketizerUnsupportedNALType(t *testing.T) {
	d := &H264Depacketizer{}
	if _, err := d.Push(rtpPkt(1000, true, []byte{0x1F})); err == nil { // type 31, unsupported
		t.Fatalf("Push: expected an error for an unsupported NAL type")
	}
}

// TestVP8DepacketizerDropsUntilKeyframe covers the "discard data until the
// stream's first keyframe" rule.
func TestVP8DepacketizerDropsUntilKeyframe(t *testing.T) {
	d := &VP8Depacketizer{}
	interFrame := []byte{0x10, 0x01, 0x02, 0x03} // S bit set, P bit (data[0]&1) = 1 -> inter frame
	frames, err := d.Push(rtpPkt(1000, true, interFrame))
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("expected inter frame before first keyframe to be dropped, got %d frames", len(frames))
	}

	keyFrame := []byte{0x10, 0x00, 0x02, 0x03} // P bit = 0 -> keyframe
	frames, err = d.Push(rtpPkt(2000, true, keyFrame))
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if len(frames) != 1 || !frames[0].IsKeyFrame {
		t.Fatalf("expected one keyframe to be emitted, got %+v", frames)
	}
}

func TestOpusDepacketizerPassesThroughEveryPacket(t *testing.T) {
	d := OpusDepacketizer{}
	frames, err := d.Push(rtpPkt(1000, false, []byte{0xAA, 0xBB}))
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if len(frames) != 1 || !frames[0].IsKeyFrame {
		t.Fatalf("got %+v, want one keyframe-tagged frame", frames)
	}
	if string(frames[0].Payload) != "\xAA\xBB" {
		t.Errorf("payload = %x, want aabb", frames[0].Payload)
	}
}
