// Package sink implements the append-only Byte Sink the cluster engine
// renders onto: a position-tracking writer that never seeks, backed by a
// buffered file the way the teacher's WebMMuxer wraps its output in a
// bufio.Writer.
package sink

import (
	"bufio"
	"fmt"
	"os"
)

// FileSink is a ByteSink backed by an *os.File, buffered through bufio the
// same way internal/webm_muxer.go wraps its writer.
type FileSink struct {
	f        *os.File
	buf      *bufio.Writer
	position int64
}

// NewFileSink creates path (truncating any existing file) and returns a
// FileSink ready to receive bytes from position 0.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sink: create %s: %w", path, err)
	}
	return &FileSink{f: f, buf: bufio.NewWriterSize(f, 64*1024)}, nil
}

// Position reports the number of bytes written so far.
func (s *FileSink) Position() int64 { return s.position }

// WriteBytes appends p, advancing Position by len(p).
func (s *FileSink) WriteBytes(p []byte) (int, error) {
	n, err := s.buf.Write(p)
	s.position += int64(n)
	if err != nil {
		return n, fmt.Errorf("sink: write: %w", err)
	}
	return n, nil
}

// Flush pushes any buffered bytes to the underlying file.
func (s *FileSink) Flush() error {
	if err := s.buf.Flush(); err != nil {
		return fmt.Errorf("sink: flush: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (s *FileSink) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("sink: close: %w", err)
	}
	return nil
}

// NullSink discards everything written to it while still tracking a
// position, used for pass-1 split planning where render() "produces no
// output bytes" per spec but byte offsets still have to be predicted.
type NullSink struct {
	position int64
}

// NewNullSink returns a NullSink starting at position 0.
func NewNullSink() *NullSink { return &NullSink{} }

// Position reports the number of bytes that would have been written.
func (s *NullSink) Position() int64 { return s.position }

// WriteBytes pretends to write p, advancing Position without storing
// anything.
func (s *NullSink) WriteBytes(p []byte) (int, error) {
	s.position += int64(len(p))
	return len(p), nil
}
