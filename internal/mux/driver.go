// Package mux implements the output driver: the single-thread cooperative
// pull loop that interleaves packetizers by timecode and feeds the cluster
// engine, plus the two-pass split workflow built on top of it. Grounded on
// spec §5 and the teacher's StreamManager for the overall
// owns-its-dependencies, explicit-error-return shape, though the real
// concurrency StreamManager uses (goroutines, channels, timeouts) has no
// place here: the spec requires a single thread with no background I/O.
package mux

import "fmt"

// Reader is the capability set spec §5's "polymorphism across
// packetizers/readers" collapses to: something the driver can ask to pull
// one more unit of input and hand to its packetizer. A reader owns its
// packetizer and whatever parsing state sits behind it; it reports
// progress through NextTimecode so the driver can pick the reader whose
// next packet would have the smallest timecode, without the driver needing
// to know the reader's concrete type.
type Reader interface {
	// ReadOne pulls and processes one chunk of input, invoking the
	// packetizer (and, through it, the cluster engine) zero or more
	// times. It reports false once the reader's input is exhausted.
	ReadOne() (bool, error)

	// NextTimecode estimates the timecode of the next packet this reader
	// would emit, used only to choose which reader to call ReadOne on
	// next; ok is false if the reader has nothing buffered to estimate
	// from yet, in which case the driver treats it as eligible to run
	// immediately.
	NextTimecode() (tc int64, ok bool)

	// Identify names the reader for diagnostics.
	Identify() string
}

// Driver runs the cooperative pull loop described in spec §5: repeatedly
// select the reader whose next packet has the smallest timecode and call
// ReadOne on it, until every reader is exhausted.
type Driver struct {
	readers []Reader
}

// NewDriver builds an empty driver; add readers with AddReader before Run.
func NewDriver() *Driver { return &Driver{} }

// AddReader registers r as one of the tracks the driver interleaves.
func (d *Driver) AddReader(r Reader) { d.readers = append(d.readers, r) }

// Run drives every registered reader to exhaustion, always picking the one
// whose NextTimecode is smallest (readers with no estimate yet run first).
// It does not finalize the cluster engine; callers own that, since a
// single engine may be shared across multiple Driver runs in the two-pass
// split workflow.
func (d *Driver) Run() error {
	active := append([]Reader{}, d.readers...)
	for len(active) > 0 {
		idx := pickNext(active)
		more, err := active[idx].ReadOne()
		if err != nil {
			return fmt.Errorf("mux: reader %q: %w", active[idx].Identify(), err)
		}
		if !more {
			active = append(active[:idx], active[idx+1:]...)
		}
	}
	return nil
}

func pickNext(active []Reader) int {
	best := 0
	bestTC, bestOK := active[0].NextTimecode()
	for i := 1; i < len(active); i++ {
		tc, ok := active[i].NextTimecode()
		if !bestOK {
			continue
		}
		if !ok || tc < bestTC {
			best, bestTC, bestOK = i, tc, ok
		}
	}
	return best
}
