package mux

import "testing"

// stubReader is a scripted Reader: it reports a fixed sequence of
// (timecode, ok) estimates and records every call Run makes against it.
type stubReader struct {
	name      string
	estimates []struct {
		tc int64
		ok bool
	}
	calls int
}

func (s *stubReader) Identify() string { return s.name }

func (s *stubReader) NextTimecode() (int64, bool) {
	if s.calls >= len(s.estimates) {
		return 0, false
	}
	e := s.estimates[s.calls]
	return e.tc, e.ok
}

func (s *stubReader) ReadOne() (bool, error) {
	s.calls++
	return s.calls < len(s.estimates), nil
}

func withEstimates(name string, tcs ...int64) *stubReader {
	r := &stubReader{name: name}
	for _, tc := range tcs {
		r.estimates = append(r.estimates, struct {
			tc int64
			ok bool
		}{tc, true})
	}
	return r
}

// TestDriverPicksSmallestTimecode covers spec §5: the driver always calls
// ReadOne on whichever reader's next packet has the smallest timecode.
func TestDriverPicksSmallestTimecode(t *testing.T) {
	var order []string
	video := withEstimates("video", 0, 40, 80, 1000)
	audio := withEstimates("audio", 20, 60, 900)

	trackOrder := func(r *stubReader) *orderTrackingReader {
		return &orderTrackingReader{stubReader: r, order: &order}
	}
	d := NewDriver()
	d.AddReader(trackOrder(video))
	d.AddReader(trackOrder(audio))

	if err := d.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"video", "audio", "video", "audio", "video", "audio", "video"}
	if len(order) != len(want) {
		t.Fatalf("call order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("call order = %v, want %v", order, want)
		}
	}
}

type orderTrackingReader struct {
	*stubReader
	order *[]string
}

func (r *orderTrackingReader) ReadOne() (bool, error) {
	*r.order = append(*r.order, r.name)
	return r.stubReader.ReadOne()
}

// TestDriverPrefersReaderWithNoEstimate covers the "readers with no
// estimate yet run first" rule: a reader that can't yet predict its next
// timecode must not be starved behind one that can.
func TestDriverPrefersReaderWithNoEstimate(t *testing.T) {
	cold := &stubReader{name: "cold", estimates: []struct {
		tc int64
		ok bool
	}{{0, false}, {0, true}}}
	warm := withEstimates("warm", 5)

	active := []Reader{cold, warm}
	idx := pickNext(active)
	if active[idx].Identify() != "cold" {
		t.Errorf("pickNext chose %q, want %q (no-estimate reader runs first)", active[idx].Identify(), "cold")
	}
}

func TestDriverRunPropagatesReaderError(t *testing.T) {
	r := &erroringReader{}
	d := NewDriver()
	d.AddReader(r)
	if err := d.Run(); err == nil {
		t.Fatalf("Run: expected an error from the failing reader")
	}
}

type erroringReader struct{}

func (erroringReader) Identify() string            { return "erroring" }
func (erroringReader) NextTimecode() (int64, bool) { return 0, false }
func (erroringReader) ReadOne() (bool, error)       { return false, errBoom }

var errBoom = errFixed("boom")

type errFixed string

func (e errFixed) Error() string { return string(e) }
