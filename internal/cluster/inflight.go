package cluster

import (
	"github.com/Azunyan1111/mkvclusterd/internal/ebml"
	"github.com/Azunyan1111/mkvclusterd/internal/packet"
)

// pendingCue is a cue entry whose cluster byte position isn't known yet
// because the cluster it belongs to hasn't been rendered (or, in pass 1,
// is only predicted).
type pendingCue struct {
	timecodeNs int64
	trackID    uint64
}

// chCluster is one in-flight (or already-rendered-but-still-retained)
// cluster: the spec's ChCluster.
type chCluster struct {
	kax     *ebml.Cluster
	packets []*packet.Packet

	hasBase      bool
	baseTimecode int64 // ns
	maxTimecode  int64 // ns, latest (timecode+duration) seen

	contentSize int64
	rendered    bool
	isReferenced bool

	// position is the byte offset, from the first byte of the Segment's
	// content, at which this cluster's element begins. Set once rendered
	// (pass 2) or predicted (pass 1).
	position int64

	pendingCues []pendingCue
}

func newChCluster() *chCluster {
	return &chCluster{kax: ebml.NewCluster()}
}

// delta reports how far timecodeNs sits past this cluster's base; only
// meaningful once hasBase is true.
func (c *chCluster) delta(timecodeNs int64) int64 {
	return timecodeNs - c.baseTimecode
}
