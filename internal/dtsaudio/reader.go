package dtsaudio

import (
	"fmt"
	"io"
)

// StreamReader adapts an io.Reader of raw DTS bytes to the mux.Reader
// capability set, the same shape as mpegvideo.ElementaryStreamReader.
type StreamReader struct {
	name string
	src  io.Reader
	pkt  *Packetizer
	buf  []byte
	eof  bool
}

func NewStreamReader(name string, src io.Reader, pkt *Packetizer) *StreamReader {
	return &StreamReader{name: name, src: src, pkt: pkt, buf: make([]byte, 32*1024)}
}

func (r *StreamReader) Identify() string { return r.name }

func (r *StreamReader) NextTimecode() (int64, bool) { return r.pkt.LastTimecode() }

func (r *StreamReader) ReadOne() (bool, error) {
	if r.eof {
		return false, nil
	}
	n, err := r.src.Read(r.buf)
	if n > 0 {
		if perr := r.pkt.Process(r.buf[:n]); perr != nil {
			return false, fmt.Errorf("dtsaudio: %s: %w", r.name, perr)
		}
	}
	if err == io.EOF {
		r.eof = true
		if ferr := r.pkt.Flush(); ferr != nil {
			return false, fmt.Errorf("dtsaudio: %s: flush: %w", r.name, ferr)
		}
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dtsaudio: %s: read: %w", r.name, err)
	}
	return true, nil
}
