package rtpreader

import (
	"fmt"

	"github.com/pion/rtp"
)

// H264Depacketizer reassembles H.264 NAL units (single NAL, STAP-A
// aggregation, FU-A fragmentation) into Annex-B access units, flushing the
// buffered frame on a timestamp change or the RTP marker bit. Grounded on
// DefaultRTPProcessor.processH264Packet.
type H264Depacketizer struct {
	nalBuffer    []byte
	frameBuffer  []byte
	lastStamp    uint32
	haveLastTS   bool
	seenKeyFrame bool
}

func (d *H264Depacketizer) Push(p *rtp.Packet) ([]Frame, error) {
	payload := p.Payload
	if len(payload) < 1 {
		return nil, nil
	}

	var flushed []Frame
	if d.haveLastTS && d.lastStamp != p.Timestamp && len(d.frameBuffer) > 0 {
		flushed = append(flushed, d.takeFrame())
	}
	d.lastStamp = p.Timestamp
	d.haveLastTS = true

	nalType := payload[0] & 0x1F
	switch {
	case nalType >= 1 && nalType <= 23:
		d.appendNAL(payload)

	case nalType == 24: // STAP-A
		offset := 1
		for offset < len(payload)-2 {
			size := int(payload[offset])<<8 | int(payload[offset+1])
			offset += 2
			if offset+size > len(payload) {
				break
			}
			d.appendNAL(payload[offset : offset+size])
			offset += size
		}

	case nalType == 28: // FU-A
		if len(payload) < 2 {
			return flushed, nil
		}
		fuHeader := payload[1]
		isStart := fuHeader&0x80 != 0
		isEnd := fuHeader&0x40 != 0
		if isStart {
			d.nalBuffer = append([]byte{0x00, 0x00, 0x00, 0x01}, (payload[0]&0xE0)|(fuHeader&0x1F))
		}
		if len(payload) > 2 {
			d.nalBuffer = append(d.nalBuffer, payload[2:]...)
		}
		if isEnd && len(d.nalBuffer) > 0 {
			d.frameBuffer = append(d.frameBuffer, d.nalBuffer...)
			d.nalBuffer = nil
		}

	default:
		return flushed, fmt.Errorf("rtpreader: unsupported H264 NAL type %d", nalType)
	}

	if p.Marker && len(d.frameBuffer) > 0 {
		flushed = append(flushed, d.takeFrame())
	}
	return flushed, nil
}

func (d *H264Depacketizer) appendNAL(nal []byte) {
	d.frameBuffer = append(d.frameBuffer, 0x00, 0x00, 0x00, 0x01)
	d.frameBuffer = append(d.frameBuffer, nal...)
}

func (d *H264Depacketizer) takeFrame() Frame {
	payload := d.frameBuffer
	d.frameBuffer = nil
	isKey := !d.seenKeyFrame || containsIDR(payload)
	if isKey {
		d.seenKeyFrame = true
	}
	return Frame{Payload: payload, IsKeyFrame: isKey}
}

func containsIDR(annexB []byte) bool {
	for i := 0; i+4 < len(annexB); i++ {
		if annexB[i] == 0 && annexB[i+1] == 0 && annexB[i+2] == 0 && annexB[i+3] == 1 {
			if annexB[i+4]&0x1F == 5 {
				return true
			}
		}
	}
	return false
}

// VP8Depacketizer reassembles VP8 partitions using the payload descriptor's
// S (start-of-partition) bit, discarding data until the first keyframe is
// seen. Grounded on DefaultRTPProcessor.processVP8Packet.
type VP8Depacketizer struct {
	current      []byte
	seenKeyFrame bool
}

func (d *VP8Depacketizer) Push(p *rtp.Packet) ([]Frame, error) {
	payload := p.Payload
	if len(payload) < 1 {
		return nil, nil
	}

	headerSize := 1
	if payload[0]&0x80 != 0 {
		headerSize++
		if len(payload) < headerSize {
			return nil, nil
		}
	}
	isStart := payload[0]&0x10 != 0
	if len(payload) <= headerSize {
		return nil, nil
	}
	data := payload[headerSize:]

	isKeyFrame := d.seenKeyFrame
	if isStart && len(data) >= 3 {
		isKeyFrame = data[0]&0x01 == 0
		if !d.seenKeyFrame && !isKeyFrame {
			return nil, nil // drop until the stream's first keyframe
		}
		d.seenKeyFrame = d.seenKeyFrame || isKeyFrame
	}

	if isStart {
		d.current = nil
	}
	d.current = append(d.current, data...)

	if p.Marker && len(d.current) > 0 {
		frame := d.current
		d.current = nil
		return []Frame{{Payload: frame, IsKeyFrame: isKeyFrame}}, nil
	}
	return nil, nil
}

// OpusDepacketizer passes each RTP payload through as one access unit: the
// Opus codec carries one frame per packet, matching
// DefaultRTPProcessor.ProcessRTPPacket's "opus: return payload as-is"
// branch. All Opus frames are treated as independent (IsKeyFrame true),
// matching the codec having no inter-frame prediction chain the muxer
// needs to track.
type OpusDepacketizer struct{}

func (OpusDepacketizer) Push(p *rtp.Packet) ([]Frame, error) {
	if len(p.Payload) == 0 {
		return nil, nil
	}
	return []Frame{{Payload: append([]byte(nil), p.Payload...), IsKeyFrame: true}}, nil
}
