package internal

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// Flag variables for cmd/mkvmux, populated by pflag in init(), matching
// the teacher's package-level var block plus StringVarP/BoolVarP wiring.
var (
	VideoInput string
	AudioInput string
	OutputPath string

	ClusterMaxMs     int64
	ClusterMaxBlocks int
	ClusterMaxBytes  int64

	SplitAfterBytes int64
	SplitAfterMs    int64
	SplitMaxFiles   int
	NoLinking       bool
	NoCues          bool

	DebugMode bool
)

func init() {
	pflag.StringVarP(&VideoInput, "video", "V", "", "Path to an MPEG-1/2 elementary video stream")
	pflag.StringVarP(&AudioInput, "audio", "A", "", "Path to a DTS elementary audio stream")
	pflag.StringVarP(&OutputPath, "output", "o", "", "Output Matroska file path (required)")

	pflag.Int64Var(&ClusterMaxMs, "cluster-max-ms", 5000, "Maximum cluster timecode span in milliseconds")
	pflag.IntVar(&ClusterMaxBlocks, "cluster-max-blocks", 64, "Maximum block groups per cluster")
	pflag.Int64Var(&ClusterMaxBytes, "cluster-max-bytes", 1_500_000, "Maximum payload bytes per cluster")

	pflag.Int64Var(&SplitAfterBytes, "split-size", 0, "Split output after this many bytes (0 disables)")
	pflag.Int64Var(&SplitAfterMs, "split-time", 0, "Split output after this many milliseconds (0 disables; takes precedence over --split-size)")
	pflag.IntVar(&SplitMaxFiles, "split-max-files", 0, "Maximum number of output files (0 means unbounded)")
	pflag.BoolVar(&NoLinking, "no-linking", false, "Restart timecodes at zero in each split output file")
	pflag.BoolVar(&NoCues, "no-cues", false, "Don't write a cue index")

	pflag.BoolVarP(&DebugMode, "debug", "d", false, "Enable debug logging")
}

// ValidateFlags checks the parsed flag combination for obvious
// contradictions before run() commits to any of them, following the
// teacher's ValidateOutputFormat shape (a pflag.Parse()-adjacent
// validator returning a plain error).
func ValidateFlags() error {
	if OutputPath == "" {
		return fmt.Errorf("--output is required")
	}
	if VideoInput == "" && AudioInput == "" {
		return fmt.Errorf("at least one of --video or --audio is required")
	}
	return nil
}

// SetupUsage installs pflag's usage text, matching the teacher's
// SetupUsage shape.
func SetupUsage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "mkvmux - mux elementary media streams into a Matroska file\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  %s [flags]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  %s --video in.m2v --output out.mkv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --video in.m2v --audio in.dts --split-size 1000000000 --output out.mkv\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Flags:\n")
		pflag.PrintDefaults()
	}
}
