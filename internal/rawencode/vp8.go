// Package rawencode implements the raw-capture encode path: encoding raw
// I420 video and S16LE PCM audio into VP8/Opus elementary frames before
// they reach a packetizer. mkvmerge itself never encodes, but the teacher
// does (it records live decoded WebRTC media), so this path is the
// supplemented feature that keeps github.com/Azunyan1111/libvpx-go and
// github.com/qrtc/opus-go meaningfully wired instead of dropped. Grounded
// on the teacher's vp8_encoder.go and opus_encoder.go, trimmed to the
// I420-only ingestion path a raw-capture source actually needs (the
// teacher's RGBA conversion existed to match a browser-side capture format
// this repository's raw-capture source doesn't produce).
package rawencode

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/Azunyan1111/libvpx-go/vpx"

	"github.com/Azunyan1111/mkvclusterd/internal/diag"
	"github.com/Azunyan1111/mkvclusterd/internal/packet"
)

// VP8Encoder wraps a libvpx VP8 encoder context configured for realtime,
// single-pass CBR encoding, matching the teacher's NewVP8Encoder config.
type VP8Encoder struct {
	ctx    *vpx.CodecCtx
	img    *vpx.Image
	width  int
	height int
	pts    int64
}

// NewVP8Encoder allocates and configures a VP8 encoder for width x height
// I420 frames.
func NewVP8Encoder(width, height int) (*VP8Encoder, error) {
	ctx := vpx.NewCodecCtx()
	if ctx == nil {
		return nil, fmt.Errorf("rawencode: failed to create vp8 codec context")
	}

	iface := vpx.EncoderIfaceVP8()
	if iface == nil {
		vpx.CodecDestroy(ctx)
		return nil, fmt.Errorf("rawencode: failed to get vp8 encoder interface")
	}

	cfg := &vpx.CodecEncCfg{}
	if err := vpx.Error(vpx.CodecEncConfigDefault(iface, cfg, 0)); err != nil {
		vpx.CodecDestroy(ctx)
		return nil, fmt.Errorf("rawencode: default vp8 config: %w", err)
	}
	cfg.Deref()

	cfg.GW = uint32(width)
	cfg.GH = uint32(height)
	cfg.GTimebase = vpx.Rational{Num: 1, Den: 30}
	cfg.RcTargetBitrate = 1000
	cfg.GPass = vpx.RcOnePass
	cfg.RcEndUsage = vpx.Cbr
	cfg.KfMode = vpx.KfAuto
	cfg.KfMaxDist = 30
	numThreads := runtime.NumCPU()
	if numThreads > 4 {
		numThreads = 4
	}
	if numThreads < 1 {
		numThreads = 1
	}
	cfg.GThreads = uint32(numThreads)
	cfg.GLagInFrames = 0
	cfg.RcMinQuantizer = 4
	cfg.RcMaxQuantizer = 48
	cfg.GProfile = 0

	if err := vpx.Error(vpx.CodecEncInitVer(ctx, iface, cfg, 0, vpx.EncoderABIVersion)); err != nil {
		vpx.CodecDestroy(ctx)
		return nil, fmt.Errorf("rawencode: init vp8 encoder: %w", err)
	}

	img := vpx.ImageAlloc(nil, vpx.ImageFormatI420, uint32(width), uint32(height), 1)
	if img == nil {
		vpx.CodecDestroy(ctx)
		return nil, fmt.Errorf("rawencode: allocate vp8 image")
	}
	img.Deref()

	diag.Log("rawencode: vp8 encoder ready %dx%d, %d threads\n", width, height, numThreads)
	return &VP8Encoder{ctx: ctx, img: img, width: width, height: height}, nil
}

// Encode submits one I420 frame and returns the encoded bitstream (nil if
// libvpx buffered it with no output yet) and whether it is a keyframe.
func (e *VP8Encoder) Encode(i420 []byte) ([]byte, bool, error) {
	w, h := int(e.img.DW), int(e.img.DH)
	expected := w*h + 2*(w/2)*(h/2)
	if len(i420) != expected {
		return nil, false, fmt.Errorf("rawencode: invalid I420 size: expected %d, got %d", expected, len(i420))
	}
	e.copyI420(i420)

	if err := vpx.Error(vpx.CodecEncode(e.ctx, e.img, vpx.CodecPts(e.pts), 1, 0, vpx.DlRealtime)); err != nil {
		return nil, false, fmt.Errorf("rawencode: vp8 encode: %w (%s)", err, vpx.CodecErrorDetail(e.ctx))
	}
	e.pts++

	var iter vpx.CodecIter
	pkt := vpx.CodecGetCxData(e.ctx, &iter)
	if pkt == nil {
		return nil, false, nil
	}
	pkt.Deref()
	if pkt.Kind != vpx.CodecCxFramePkt {
		return nil, false, nil
	}
	return pkt.GetFrameData(), pkt.IsKeyframe(), nil
}

func (e *VP8Encoder) copyI420(src []byte) {
	h, w := int(e.img.DH), int(e.img.DW)
	yStride, uStride, vStride := int(e.img.Stride[vpx.PlaneY]), int(e.img.Stride[vpx.PlaneU]), int(e.img.Stride[vpx.PlaneV])

	yPlane := (*(*[1 << 30]byte)(unsafe.Pointer(e.img.Planes[vpx.PlaneY])))[: yStride*h : yStride*h]
	uPlane := (*(*[1 << 30]byte)(unsafe.Pointer(e.img.Planes[vpx.PlaneU])))[: uStride*h/2 : uStride*h/2]
	vPlane := (*(*[1 << 30]byte)(unsafe.Pointer(e.img.Planes[vpx.PlaneV])))[: vStride*h/2 : vStride*h/2]

	ySize := w * h
	uvSize := (w / 2) * (h / 2)
	srcY, srcU, srcV := src[:ySize], src[ySize:ySize+uvSize], src[ySize+uvSize:ySize+2*uvSize]

	for row := 0; row < h; row++ {
		copy(yPlane[row*yStride:row*yStride+w], srcY[row*w:(row+1)*w])
	}
	uvH, uvW := h/2, w/2
	for row := 0; row < uvH; row++ {
		copy(uPlane[row*uStride:row*uStride+uvW], srcU[row*uvW:(row+1)*uvW])
		copy(vPlane[row*vStride:row*vStride+uvW], srcV[row*uvW:(row+1)*uvW])
	}
}

// Close releases the encoder's native resources.
func (e *VP8Encoder) Close() {
	if e.img != nil {
		vpx.ImageFree(e.img)
		e.img = nil
	}
	if e.ctx != nil {
		vpx.CodecDestroy(e.ctx)
		e.ctx = nil
	}
}

// VP8Packetizer pairs a VP8Encoder with the cluster engine hookup: it
// turns timestamped raw I420 frames into emitted Packets, the VP8 half of
// the raw-capture ingestion path.
type VP8Packetizer struct {
	TrackID uint64
	Emit    func(*packet.Packet) error

	enc          *VP8Encoder
	frameDur     int64
	lastKeyTC    int64
	haveKeyTC    bool
	lastTimecode int64
	haveTimecode bool
}

// NewVP8Packetizer wraps enc, assuming frameDurationNs nanoseconds between
// frames (the raw capture's fixed frame interval).
func NewVP8Packetizer(trackID uint64, enc *VP8Encoder, frameDurationNs int64, emit func(*packet.Packet) error) *VP8Packetizer {
	return &VP8Packetizer{TrackID: trackID, Emit: emit, enc: enc, frameDur: frameDurationNs}
}

func (p *VP8Packetizer) NextTimecode() (int64, bool) { return p.lastTimecode, p.haveTimecode }

// Process encodes one I420 frame at timecodeNs and emits a Packet if
// libvpx produced bitstream output for it.
func (p *VP8Packetizer) Process(i420 []byte, timecodeNs int64) error {
	data, isKey, err := p.enc.Encode(i420)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	ref := packet.NoRef
	if isKey {
		p.lastKeyTC = timecodeNs
		p.haveKeyTC = true
	} else if p.haveKeyTC {
		ref = packet.AbsoluteRef(p.lastKeyTC)
	} else {
		ref = packet.AutoRef
	}
	p.lastTimecode = timecodeNs
	p.haveTimecode = true

	pkt := packet.New(p.TrackID, append([]byte(nil), data...), timecodeNs, p.frameDur, ref, packet.NoRef)
	return p.Emit(pkt)
}
