package rawencode

import (
	"testing"

	"github.com/Azunyan1111/mkvclusterd/internal/packet"
)

// TestNewVP8PacketizerWiring covers the pure-Go wiring NewVP8Packetizer
// does before any frame reaches the native libvpx encoder: TrackID and the
// fixed frame duration are carried through untouched. VP8Encoder.Encode
// itself needs a real libvpx build behind it and is exercised by the
// teacher's own cgo-backed integration path, not a unit test here.
func TestNewVP8PacketizerWiring(t *testing.T) {
	enc := &VP8Encoder{width: 640, height: 480}
	p := NewVP8Packetizer(7, enc, 33_333_333, func(*packet.Packet) error { return nil })

	if p.TrackID != 7 {
		t.Errorf("TrackID = %d, want 7", p.TrackID)
	}
	if p.frameDur != 33_333_333 {
		t.Errorf("frameDur = %d, want 33333333", p.frameDur)
	}
	if tc, ok := p.NextTimecode(); ok || tc != 0 {
		t.Errorf("NextTimecode before any frame = (%d, %v), want (0, false)", tc, ok)
	}
}
