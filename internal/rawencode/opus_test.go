package rawencode

import (
	"testing"

	"github.com/Azunyan1111/mkvclusterd/internal/packet"
)

// TestNewOpusEncoderRejectsUnsupportedSampleRate and the channel-count test
// below cover the validation performed before any native encoder is
// constructed; they exercise rawencode without requiring a libopus build
// to be present, unlike Process, which needs a real encoder handle.
func TestNewOpusEncoderRejectsUnsupportedSampleRate(t *testing.T) {
	if _, err := NewOpusEncoder(44100, 2); err == nil {
		t.Fatalf("NewOpusEncoder(44100, 2): expected an error, opus-go only supports 48000Hz")
	}
}

func TestNewOpusEncoderRejectsUnsupportedChannelCount(t *testing.T) {
	if _, err := NewOpusEncoder(48000, 3); err == nil {
		t.Fatalf("NewOpusEncoder(48000, 3): expected an error, only mono/stereo are supported")
	}
}

// TestOpusPacketizerBuffersPartialFrames covers the PCM-buffering
// accounting in Process for a chunk shorter than one 10ms frame, without
// needing a real encoder handle (which Process only reaches once a full
// frame has accumulated).
func TestOpusPacketizerBuffersPartialFrames(t *testing.T) {
	enc := &OpusEncoder{sampleRate: 48000, channels: 1, frameSize: 480}
	var emitted []*packet.Packet
	p := NewOpusPacketizer(1, enc, func(pk *packet.Packet) error {
		emitted = append(emitted, pk)
		return nil
	})

	bytesPerFrame := enc.frameSize * enc.channels * 2
	short := make([]byte, bytesPerFrame-2)
	if err := p.Process(short); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(emitted) != 0 {
		t.Errorf("got %d emitted packets for a sub-frame PCM chunk, want 0", len(emitted))
	}
	if len(p.pcmBuffer) != len(short) {
		t.Errorf("buffered %d bytes, want all %d bytes retained pending a full frame", len(p.pcmBuffer), len(short))
	}
}
