// Package cluster implements the Cluster Engine: the component that
// buffers packets into time/size-bounded Matroska clusters, resolves
// back/forward references, maintains the cue index, and drives the
// two-pass split planner. Grounded on mkvtoolnix's src/cluster_helper.cpp,
// reshaped around Go's explicit error returns and a single-owner MuxContext
// instead of process-wide globals (kax_cluster, kax_cues, TIMECODE_SCALE).
package cluster

// Config holds the tunables the spec names as independently adjustable
// configuration constants (spec §6).
type Config struct {
	// MaxMsPerCluster bounds (last_packet_timecode - cluster_base) in
	// milliseconds. Typical default: 5000.
	MaxMsPerCluster int64
	// MaxBlocksPerCluster bounds the block-group count per cluster.
	// Typical default: 64.
	MaxBlocksPerCluster int
	// MaxBytesPerCluster bounds summed payload bytes per cluster.
	MaxBytesPerCluster int64

	// TimecodeScale is nanoseconds per on-disk timecode tick.
	TimecodeScale uint64

	// WriteCues controls whether the cue index is rendered at finalize.
	WriteCues bool

	// Pass is 1 (plan splits only, no output bytes) or 2 (write output).
	Pass int

	// SplitByTime selects whether SplitAfter is nanoseconds (true) or bytes
	// (false).
	SplitByTime bool
	// SplitAfter is the split budget, in the unit SplitByTime selects.
	// Zero or negative disables splitting (treated as +Inf).
	SplitAfter int64
	// SplitMaxNumFiles caps the number of output files; 0 means unbounded.
	SplitMaxNumFiles int
	// NoLinking resets timecode_offset/first_timecode at each split so the
	// next file's timestamps start at zero instead of continuing.
	NoLinking bool

	MuxingApp, WritingApp string
}

// DefaultMaxBytesPerCluster is the default content_size ceiling
// (1,500,000 bytes) that DefaultConfig puts in MaxBytesPerCluster; the
// engine only checks MaxBytesPerCluster, so a configured value replaces it.
const DefaultMaxBytesPerCluster = 1_500_000

// DefaultConfig returns a Config with the spec's stated typical defaults.
func DefaultConfig() Config {
	return Config{
		MaxMsPerCluster:     5000,
		MaxBlocksPerCluster: 64,
		MaxBytesPerCluster:  DefaultMaxBytesPerCluster,
		TimecodeScale:       1_000_000,
		WriteCues:           true,
		Pass:                2,
		MuxingApp:           "mkvclusterd",
		WritingApp:          "mkvclusterd",
	}
}
