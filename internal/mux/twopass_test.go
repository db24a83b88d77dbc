package mux

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Azunyan1111/mkvclusterd/internal/cluster"
	"github.com/Azunyan1111/mkvclusterd/internal/packet"
	"github.com/Azunyan1111/mkvclusterd/internal/track"
)

// fixedReader feeds a fixed slice of packets into whatever engine it was
// built against, one per ReadOne call, standing in for a real
// packetizer-backed Reader in these driver-level tests.
type fixedReader struct {
	name    string
	engine  *cluster.Engine
	packets []*packet.Packet
	pos     int
}

func (r *fixedReader) Identify() string { return r.name }

func (r *fixedReader) NextTimecode() (int64, bool) {
	if r.pos >= len(r.packets) {
		return 0, false
	}
	return r.packets[r.pos].Timecode, true
}

func (r *fixedReader) ReadOne() (bool, error) {
	if r.pos >= len(r.packets) {
		return false, nil
	}
	if err := r.engine.AddPacket(r.packets[r.pos]); err != nil {
		return false, err
	}
	r.pos++
	return r.pos < len(r.packets), nil
}

func frame(trackID uint64, tcMs int64, bref packet.Ref) *packet.Packet {
	return packet.New(trackID, []byte{0x01, 0x02, 0x03}, tcMs*int64(1_000_000), 40_000_000, bref, packet.NoRef)
}

// TestRunSplitTwoPassSmoke drives RunSplit end to end against a real
// one-track registry and real files on disk, covering spec §5's two-pass
// workflow: a pass-1 NullSink planning run followed by a pass-2 run that
// actually writes output.
func TestRunSplitTwoPassSmoke(t *testing.T) {
	dir := t.TempDir()

	tracks := track.NewRegistry()
	tracks.Add(track.NewDescriptor(1, "V_MPEG2", track.KindVideo, 40_000_000, track.CueIFrames))

	build := func(e *cluster.Engine) ([]Reader, error) {
		packets := []*packet.Packet{
			frame(1, 0, packet.NoRef),
			frame(1, 40, packet.AbsoluteRef(0)),
			frame(1, 80, packet.AbsoluteRef(40_000_000)),
		}
		return []Reader{&fixedReader{name: "video", engine: e, packets: packets}}, nil
	}

	firstPath := filepath.Join(dir, "out.mkv")
	err := RunSplit(cluster.DefaultConfig(), tracks, build, firstPath, func(i int) string {
		return filepath.Join(dir, "out-part.mkv")
	})
	if err != nil {
		t.Fatalf("RunSplit: %v", err)
	}

	info, err := os.Stat(firstPath)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Size() == 0 {
		t.Errorf("output file is empty")
	}
}

// TestRunSplitRollsToSecondFile covers the splitting path: a tight
// SplitAfter byte budget forces RunSplit to open a second output file via
// nextPath.
func TestRunSplitRollsToSecondFile(t *testing.T) {
	dir := t.TempDir()

	tracks := track.NewRegistry()
	tracks.Add(track.NewDescriptor(1, "V_MPEG2", track.KindVideo, 40_000_000, track.CueIFrames))

	cfg := cluster.DefaultConfig()
	cfg.SplitByTime = false
	cfg.SplitAfter = 200 // bytes, tight enough to force at least one roll

	build := func(e *cluster.Engine) ([]Reader, error) {
		var packets []*packet.Packet
		for i := int64(0); i < 20; i++ {
			bref := packet.NoRef
			if i > 0 {
				bref = packet.AbsoluteRef(0)
			}
			packets = append(packets, frame(1, i*40, bref))
		}
		return []Reader{&fixedReader{name: "video", engine: e, packets: packets}}, nil
	}

	firstPath := filepath.Join(dir, "roll.mkv")
	var nextCalls []string
	err := RunSplit(cfg, tracks, build, firstPath, func(i int) string {
		p := filepath.Join(dir, "roll-part.mkv")
		nextCalls = append(nextCalls, p)
		return p
	})
	if err != nil {
		t.Fatalf("RunSplit: %v", err)
	}
	if len(nextCalls) == 0 {
		t.Errorf("expected at least one split roll with a %d-byte budget, got none", cfg.SplitAfter)
	}
}
