package dtsaudio

import (
	"testing"

	"github.com/Azunyan1111/mkvclusterd/internal/packet"
)

// makeFrame builds one complete, syntactically valid DTS core frame of
// exactly frameSize bytes: sync word, a packed header matching the given
// field values, and zero-padding out to frameSize.
func makeFrame(frameSize int, nblksRaw, fsizeRaw, amodeRaw, sfreqRaw uint32) []byte {
	w := &bitWriter{}
	w.write(1, 1)        // FTYPE
	w.write(0, 5)        // SHORT
	w.write(0, 1)        // CPF
	w.write(nblksRaw, 7) // NBLKS
	w.write(fsizeRaw, 14)
	w.write(amodeRaw, 6)
	w.write(sfreqRaw, 4)

	buf := append(append([]byte(nil), syncWord[:]...), w.bytes()...)
	for len(buf) < frameSize {
		buf = append(buf, 0x00)
	}
	return buf[:frameSize]
}

// TestPacketizerEmitsSampleAccurateTimestamps feeds two identical DTS
// frames (256 samples/core at 44100Hz) back to back and checks the
// packetizer assigns strictly increasing, sample-accurate timecodes
// derived from the accumulated sample count rather than a rounded
// per-frame duration.
func TestPacketizerEmitsSampleAccurateTimestamps(t *testing.T) {
	const frameSize = 96 // fsizeRaw = frameSize-1 = 95
	frame := makeFrame(frameSize, 7, 95, 0, 8)
	// nblks = 8 -> 256 samples/core; sfreqTable[8] = 44100Hz; amode 0 -> 1 channel.

	var emitted []*packet.Packet
	p := NewPacketizer(1, func(pk *packet.Packet) error {
		emitted = append(emitted, pk)
		return nil
	})

	if err := p.Process(append(append([]byte(nil), frame...), frame...)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := p.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if len(emitted) != 2 {
		t.Fatalf("got %d emitted packets, want 2", len(emitted))
	}
	if emitted[0].Timecode != 0 {
		t.Errorf("first packet timecode = %d, want 0", emitted[0].Timecode)
	}
	wantSecond := int64(256) * 1_000_000_000 / 44100
	if emitted[1].Timecode != wantSecond {
		t.Errorf("second packet timecode = %d, want %d", emitted[1].Timecode, wantSecond)
	}
	hdr, ok := p.FirstHeader()
	if !ok {
		t.Fatalf("FirstHeader: expected a header to be recorded")
	}
	if hdr.SamplingFreq != 44100 || hdr.Channels != 1 {
		t.Errorf("FirstHeader = %+v, want 44100Hz/1ch", hdr)
	}
}

func TestPacketizerDropsGarbageBeforeSyncWord(t *testing.T) {
	const frameSize = 96
	frame := makeFrame(frameSize, 7, 95, 0, 8)
	withGarbage := append([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x00}, frame...)

	var emitted []*packet.Packet
	p := NewPacketizer(1, func(pk *packet.Packet) error {
		emitted = append(emitted, pk)
		return nil
	})
	if err := p.Process(withGarbage); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := p.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(emitted) != 1 {
		t.Fatalf("got %d emitted packets, want 1 after skipping leading garbage", len(emitted))
	}
}
