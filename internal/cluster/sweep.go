package cluster

import (
	"github.com/Azunyan1111/mkvclusterd/internal/diag"
	"github.com/Azunyan1111/mkvclusterd/internal/ebml"
	"github.com/Azunyan1111/mkvclusterd/internal/packet"
)

// sweep implements the memory-reclamation pass run after every render:
// mark packets superseded once their track's min-live-reference watermark
// has passed them, propagate "is_referenced" to the clusters that still
// hold a live packet, then drop every rendered-and-unreferenced cluster.
func (e *Engine) sweep() {
	for _, c := range e.clusters {
		for _, p := range c.packets {
			if td, ok := e.tracks.Get(p.TrackID); ok {
				p.Superseded = p.Timecode < td.MinLiveRefTimecode
			}
		}
	}

	for _, c := range e.clusters {
		c.isReferenced = false
	}
	for _, c := range e.clusters {
		for _, p := range c.packets {
			if p.Superseded {
				continue
			}
			c.isReferenced = true
			if p.Bref.Kind == packet.RefNone || p.RenderedGroup == nil {
				continue
			}
			for _, ref := range p.RenderedGroup.Refs() {
				if refc := e.clusterOf(ref); refc != nil {
					refc.isReferenced = true
				}
			}
		}
	}

	kept := e.clusters[:0]
	dropped := 0
	for _, c := range e.clusters {
		if c.rendered && !c.isReferenced {
			for _, p := range c.packets {
				e.index.remove(p)
			}
			dropped++
			continue
		}
		kept = append(kept, c)
	}
	e.clusters = kept

	if dropped > 0 {
		diag.LogPeriodic("cluster.sweep", 0, "sweep released %d cluster(s), %d retained\n", dropped, len(e.clusters))
	}

	if len(e.clusters) == 0 {
		e.openCluster()
	} else {
		e.cur = e.clusters[len(e.clusters)-1]
		if e.cur.rendered {
			e.openCluster()
		}
	}
}

// clusterOf finds the chCluster whose kax cluster owns the given rendered
// BlockGroup, used to propagate is_referenced to a referenced packet's
// containing cluster.
func (e *Engine) clusterOf(bg *ebml.BlockGroup) *chCluster {
	for _, c := range e.clusters {
		for _, g := range c.kax.Groups() {
			if g == bg {
				return c
			}
		}
	}
	return nil
}
