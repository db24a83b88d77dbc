package cluster

import "github.com/Azunyan1111/mkvclusterd/internal/track"

// SplitPoint is a candidate (pass 1) or chosen (after ChooseSplits) place
// to close the current output file and open the next one.
type SplitPoint struct {
	TimecodeNs            int64
	FileOffset            int64
	CuesSizeAtPoint       int64
	PacketID              uint64
	PerTrackLastPacketIDs map[uint64]uint64
}

// SplitPlanner records pass-1 candidates at video key frames (or any key
// frame when there's no video track) and, once the whole input has been
// scanned, greedily reduces them to the points pass 2 actually honors.
// Grounded on cluster_helper_c::decide_whether_to_create_new_file and
// find_next_splitpoint.
type SplitPlanner struct {
	cfg        Config
	tracks     *track.Registry
	candidates []SplitPoint
}

// NewSplitPlanner creates a planner for a pass-1 run.
func NewSplitPlanner(cfg Config, tracks *track.Registry) *SplitPlanner {
	return &SplitPlanner{cfg: cfg, tracks: tracks}
}

// RecordCandidate appends a pass-1 split candidate. Called by the engine
// once per key frame rendered on the split-governing track.
func (p *SplitPlanner) RecordCandidate(sp SplitPoint) {
	p.candidates = append(p.candidates, sp)
}

// Candidates exposes every recorded candidate, for the "pass 1 and pass 2
// produce an identical sequence of SplitPoint candidates" testable
// property.
func (p *SplitPlanner) Candidates() []SplitPoint { return p.candidates }

// ChooseSplits reduces the recorded candidates to the points pass 2
// actually honors: starting from the last chosen point, advance through
// candidates while the next one would still stay under the split budget;
// emit the last one still under the limit. When no candidate after the
// last chosen point fits (the very next one already exceeds the budget),
// emit it anyway to guarantee forward progress.
func (p *SplitPlanner) ChooseSplits() []SplitPoint {
	if p.cfg.SplitAfter <= 0 || len(p.candidates) == 0 {
		return nil
	}

	var chosen []SplitPoint
	var last SplitPoint
	haveLast := false
	i := 0

	for i < len(p.candidates) {
		if p.cfg.SplitMaxNumFiles > 0 && len(chosen) >= p.cfg.SplitMaxNumFiles-1 {
			break
		}
		lastUnder := -1
		j := i
		for j < len(p.candidates) {
			if p.overBudget(p.candidates[j], last, haveLast) {
				break
			}
			lastUnder = j
			j++
		}
		if lastUnder == -1 {
			lastUnder = i
		}

		chosen = append(chosen, p.candidates[lastUnder])
		last = p.candidates[lastUnder]
		haveLast = true
		i = lastUnder + 1
	}
	return chosen
}

func (p *SplitPlanner) overBudget(cand, last SplitPoint, haveLast bool) bool {
	if p.cfg.SplitByTime {
		base := int64(0)
		if haveLast {
			base = last.TimecodeNs
		}
		return cand.TimecodeNs-base > p.cfg.SplitAfter
	}
	base := int64(0)
	if haveLast {
		base = last.FileOffset
	}
	return (cand.FileOffset+cand.CuesSizeAtPoint-base)+headerOverheadEstimate > p.cfg.SplitAfter
}

// headerOverheadEstimate approximates the fixed per-file header cost
// (EBML header + Segment header + Info + Tracks) the byte-budget split
// check folds in. The planner always uses this constant; the size the
// engine measures in WriteSegmentHeaders is not passed to it. It only
// matters for planning math, not for bytes on disk.
const headerOverheadEstimate = 256
