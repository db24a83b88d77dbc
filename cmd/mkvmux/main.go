// Command mkvmux muxes MPEG-1/2 elementary video and DTS elementary audio
// streams into a Matroska file, driving the cluster engine and two-pass
// split workflow described in internal/cluster and internal/mux. Grounded
// on the teacher's main.go / cmd/root.go shape: parse flags, validate,
// run(), fatal on error.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/Azunyan1111/mkvclusterd/internal"
	"github.com/Azunyan1111/mkvclusterd/internal/cluster"
	"github.com/Azunyan1111/mkvclusterd/internal/diag"
	"github.com/Azunyan1111/mkvclusterd/internal/dtsaudio"
	"github.com/Azunyan1111/mkvclusterd/internal/mpegvideo"
	"github.com/Azunyan1111/mkvclusterd/internal/mux"
	"github.com/Azunyan1111/mkvclusterd/internal/packet"
	"github.com/Azunyan1111/mkvclusterd/internal/track"
	"github.com/Azunyan1111/mkvclusterd/internal/ttareader"
)

func main() {
	internal.SetupUsage()
	pflag.Parse()

	if err := internal.ValidateFlags(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		pflag.Usage()
		os.Exit(2)
	}
	diag.Enabled = internal.DebugMode

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	tracks := track.NewRegistry()
	var videoTrackNum, audioTrackNum uint64
	var videoFile, audioFile *os.File
	var err error

	next := uint64(1)
	if internal.VideoInput != "" {
		videoFile, err = os.Open(internal.VideoInput)
		if err != nil {
			return fmt.Errorf("mkvmux: open video input: %w", err)
		}
		defer videoFile.Close()
		videoTrackNum = next
		next++
		tracks.Add(track.NewDescriptor(videoTrackNum, "V_MPEG1", track.KindVideo, 0, track.CueIFrames))
	}
	var audioIsTTA bool
	if internal.AudioInput != "" {
		audioFile, err = os.Open(internal.AudioInput)
		if err != nil {
			return fmt.Errorf("mkvmux: open audio input: %w", err)
		}
		defer audioFile.Close()

		var peek [64]byte
		n, _ := io.ReadFull(audioFile, peek[:])
		audioIsTTA = ttareader.ProbeFile(peek[:n])
		if _, err := audioFile.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("mkvmux: rewind audio input: %w", err)
		}

		audioTrackNum = next
		next++
		codecID := "A_DTS"
		if audioIsTTA {
			codecID = "A_TTA1"
		}
		tracks.Add(track.NewDescriptor(audioTrackNum, codecID, track.KindAudio, 0, track.CueNone))
	}

	cfg := cluster.DefaultConfig()
	cfg.MaxMsPerCluster = internal.ClusterMaxMs
	cfg.MaxBlocksPerCluster = internal.ClusterMaxBlocks
	cfg.MaxBytesPerCluster = internal.ClusterMaxBytes
	cfg.WriteCues = !internal.NoCues
	cfg.NoLinking = internal.NoLinking
	cfg.SplitMaxNumFiles = internal.SplitMaxFiles

	switch {
	case internal.SplitAfterMs > 0:
		cfg.SplitByTime = true
		cfg.SplitAfter = internal.SplitAfterMs * 1_000_000
	case internal.SplitAfterBytes > 0:
		cfg.SplitByTime = false
		cfg.SplitAfter = internal.SplitAfterBytes
	}

	build := func(e *cluster.Engine) ([]mux.Reader, error) {
		var readers []mux.Reader

		if videoFile != nil {
			if _, err := videoFile.Seek(0, io.SeekStart); err != nil {
				return nil, fmt.Errorf("mkvmux: rewind video input: %w", err)
			}
			pkt := mpegvideo.NewPacketizer(videoTrackNum, 0, func(p *packet.Packet) error {
				return e.AddPacket(p)
			})
			readers = append(readers, mpegvideo.NewElementaryStreamReader(internal.VideoInput, videoFile, pkt))
		}

		if audioFile != nil {
			if _, err := audioFile.Seek(0, io.SeekStart); err != nil {
				return nil, fmt.Errorf("mkvmux: rewind audio input: %w", err)
			}
			if audioIsTTA {
				tagLen, err := ttareader.SkipMagic(audioFile)
				if err != nil {
					return nil, fmt.Errorf("mkvmux: tta magic: %w", err)
				}
				stat, err := audioFile.Stat()
				if err != nil {
					return nil, fmt.Errorf("mkvmux: stat audio input: %w", err)
				}
				header, seekPoints, err := ttareader.ParseHeader(audioFile, stat.Size()-tagLen)
				if err != nil {
					return nil, fmt.Errorf("mkvmux: tta header: %w", err)
				}
				readers = append(readers, ttareader.NewReader(audioTrackNum, audioFile, header, seekPoints, func(p *packet.Packet) error {
					return e.AddPacket(p)
				}))
			} else {
				pkt := dtsaudio.NewPacketizer(audioTrackNum, func(p *packet.Packet) error {
					return e.AddPacket(p)
				})
				readers = append(readers, dtsaudio.NewStreamReader(internal.AudioInput, audioFile, pkt))
			}
		}

		return readers, nil
	}

	outDir := filepath.Dir(internal.OutputPath)
	base := filepath.Base(internal.OutputPath)
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]
	nextPath := func(fileIndex int) string {
		return filepath.Join(outDir, fmt.Sprintf("%s-%03d%s", stem, fileIndex+1, ext))
	}

	return mux.RunSplit(cfg, tracks, build, internal.OutputPath, nextPath)
}
