package rawencode

import (
	"fmt"

	opus "github.com/qrtc/opus-go"

	"github.com/Azunyan1111/mkvclusterd/internal/diag"
	"github.com/Azunyan1111/mkvclusterd/internal/packet"
)

// OpusEncoder wraps qrtc/opus-go's encoder, matching the teacher's
// NewOpusEncoder constraints (48kHz, mono or stereo S16LE input).
type OpusEncoder struct {
	enc        *opus.OpusEncoder
	sampleRate int
	channels   int
	frameSize  int // samples per channel per 10ms frame
}

// NewOpusEncoder builds a 10ms-frame Opus encoder.
func NewOpusEncoder(sampleRate, channels int) (*OpusEncoder, error) {
	if sampleRate != 48000 {
		return nil, fmt.Errorf("rawencode: only 48000Hz is supported, got %d", sampleRate)
	}
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("rawencode: only 1 or 2 channels are supported, got %d", channels)
	}
	enc, err := opus.CreateOpusEncoder(&opus.OpusEncoderConfig{
		SampleRate:  sampleRate,
		MaxChannels: channels,
		Application: opus.AppAudio,
	})
	if err != nil {
		return nil, fmt.Errorf("rawencode: create opus encoder: %w", err)
	}
	frameSize := sampleRate * 10 / 1000
	diag.Log("rawencode: opus encoder ready %dHz %dch frame=%d samples\n", sampleRate, channels, frameSize)
	return &OpusEncoder{enc: enc, sampleRate: sampleRate, channels: channels, frameSize: frameSize}, nil
}

// Close releases the encoder's native resources.
func (e *OpusEncoder) Close() {
	if e.enc != nil {
		e.enc.Close()
		e.enc = nil
	}
}

// OpusPacketizer buffers raw S16LE PCM and emits 10ms Opus frames at
// sample-accurate timecodes, the audio half of the raw-capture ingestion
// path. Grounded on the teacher's OpusEncoder.Encode cluster-anchor
// bookkeeping, simplified: since this packetizer owns its own sample
// clock (it isn't re-anchored by an external cluster boundary the way the
// teacher's live-capture writer is), timestamps are derived directly from
// a running sample count instead of a cluster-time anchor.
type OpusPacketizer struct {
	TrackID uint64
	Emit    func(*packet.Packet) error

	enc          *OpusEncoder
	pcmBuffer    []byte
	samplesSoFar int64

	lastTimecode int64
	haveTimecode bool
}

// NewOpusPacketizer wraps enc.
func NewOpusPacketizer(trackID uint64, enc *OpusEncoder, emit func(*packet.Packet) error) *OpusPacketizer {
	return &OpusPacketizer{TrackID: trackID, Emit: emit, enc: enc}
}

func (p *OpusPacketizer) NextTimecode() (int64, bool) { return p.lastTimecode, p.haveTimecode }

// Process appends raw S16LE PCM and emits every complete 10ms frame it can
// now extract.
func (p *OpusPacketizer) Process(pcm []byte) error {
	p.pcmBuffer = append(p.pcmBuffer, pcm...)

	bytesPerFrame := p.enc.frameSize * p.enc.channels * 2
	for len(p.pcmBuffer) >= bytesPerFrame {
		frame := p.pcmBuffer[:bytesPerFrame]
		p.pcmBuffer = p.pcmBuffer[bytesPerFrame:]

		tc := p.samplesSoFar * 1_000_000_000 / int64(p.enc.sampleRate)
		dur := int64(p.enc.frameSize) * 1_000_000_000 / int64(p.enc.sampleRate)
		p.samplesSoFar += int64(p.enc.frameSize)

		outBuf := make([]byte, 1500)
		n, err := p.enc.enc.Encode(frame, outBuf)
		if err != nil {
			diag.Log("rawencode: opus encode error: %v\n", err)
			continue
		}
		if n == 0 {
			continue
		}
		p.lastTimecode = tc
		p.haveTimecode = true
		pkt := packet.New(p.TrackID, append([]byte(nil), outBuf[:n]...), tc, dur, packet.NoRef, packet.NoRef)
		if err := p.Emit(pkt); err != nil {
			return fmt.Errorf("rawencode: emit: %w", err)
		}
	}
	return nil
}
