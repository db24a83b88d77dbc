package cluster

import (
	"bytes"
	"testing"

	"github.com/remko/go-mkvparse"

	"github.com/Azunyan1111/mkvclusterd/internal/packet"
	"github.com/Azunyan1111/mkvclusterd/internal/track"
)

// memSink is an ebml.Sink backed by an in-memory buffer, used so tests can
// parse the rendered bytes back without touching the filesystem.
type memSink struct {
	buf bytes.Buffer
	pos int64
}

func (s *memSink) Position() int64 { return s.pos }

func (s *memSink) WriteBytes(p []byte) (int, error) {
	n, err := s.buf.Write(p)
	s.pos += int64(n)
	return n, err
}

// recorder collects (track, timecode, payload) tuples from every Block it
// sees, the Testable Property §8 round-trip this package's tests verify:
// what the engine renders is recoverable by an independent parser.
type recorder struct {
	mkvparse.DefaultHandler
	timecodes []int64
	curTC     int64
	blocks    []recordedBlock
}

type recordedBlock struct {
	trackNumber uint64
	timecode    int64
	payload     []byte
}

func (r *recorder) HandleInteger(id mkvparse.ElementID, value int64, info mkvparse.ElementInfo) error {
	if id == mkvparse.TimecodeElement {
		r.curTC = value
	}
	return nil
}

func (r *recorder) HandleBinary(id mkvparse.ElementID, value []byte, info mkvparse.ElementInfo) error {
	if id != mkvparse.BlockElement && id != mkvparse.SimpleBlockElement {
		return nil
	}
	if len(value) < 4 {
		return nil
	}
	trackNum, n := readVint(value)
	timecodeRel := int16(value[n])<<8 | int16(value[n+1])
	payload := append([]byte(nil), value[n+3:]...)
	r.blocks = append(r.blocks, recordedBlock{
		trackNumber: trackNum,
		timecode:    r.curTC + int64(timecodeRel),
		payload:     payload,
	})
	return nil
}

// readVint decodes a Matroska-style variable-length track number prefix
// from a Block/SimpleBlock's leading bytes, returning the value and the
// number of bytes it occupied.
func readVint(b []byte) (uint64, int) {
	if len(b) == 0 {
		return 0, 0
	}
	first := b[0]
	length := 1
	mask := byte(0x80)
	for mask != 0 && first&mask == 0 {
		length++
		mask >>= 1
	}
	value := uint64(first) &^ uint64(mask)
	for i := 1; i < length && i < len(b); i++ {
		value = value<<8 | uint64(b[i])
	}
	return value, length
}

func TestRoundTripSingleCluster(t *testing.T) {
	tracks := track.NewRegistry()
	tracks.Add(track.NewDescriptor(1, "V_MPEG1", track.KindVideo, 40_000_000, track.CueIFrames))

	cfg := DefaultConfig()
	e := NewEngine(tracks, cfg)
	sink := &memSink{}
	e.SetOutput(sink)
	if err := e.WriteSegmentHeaders(); err != nil {
		t.Fatalf("WriteSegmentHeaders: %v", err)
	}

	frames := []struct {
		tc  int64
		dur int64
	}{
		{0, 40_000_000},
		{40_000_000, 40_000_000},
		{80_000_000, 40_000_000},
	}
	for _, f := range frames {
		p := packet.New(1, []byte{0xAB, 0xCD, 0xEF}, f.tc, f.dur, packet.NoRef, packet.NoRef)
		if err := e.AddPacket(p); err != nil {
			t.Fatalf("AddPacket(%d): %v", f.tc, err)
		}
	}
	if err := e.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	rec := &recorder{}
	if err := mkvparse.ParseSections(bytes.NewReader(sink.buf.Bytes()), rec, []mkvparse.ElementID{
		mkvparse.SegmentElement,
	}); err != nil {
		t.Fatalf("parse rendered output: %v", err)
	}

	if len(rec.blocks) != len(frames) {
		t.Fatalf("got %d blocks, want %d", len(rec.blocks), len(frames))
	}
	for i, f := range frames {
		b := rec.blocks[i]
		if b.trackNumber != 1 {
			t.Errorf("block %d: track number = %d, want 1", i, b.trackNumber)
		}
		if b.timecode != f.tc/int64(cfg.TimecodeScale) {
			t.Errorf("block %d: timecode = %d, want %d", i, b.timecode, f.tc/int64(cfg.TimecodeScale))
		}
		if !bytes.Equal(b.payload, []byte{0xAB, 0xCD, 0xEF}) {
			t.Errorf("block %d: payload = %x, want abcdef", i, b.payload)
		}
	}
}
