package ebml

import "fmt"

// Sink is the append-only byte destination this package renders onto. It is
// satisfied by internal/sink.FileSink; never seeks, as required by spec §2
// and §6 ("the core never seeks").
type Sink interface {
	Position() int64
	WriteBytes(p []byte) (int, error)
}

// Element is a definite-size EBML master or leaf node, built up in memory
// before any of it is written to a Sink. Building the whole tree first is
// what lets ElementSize/UpdateSize report exact byte offsets ahead of
// render time.
type Element struct {
	id       ID
	data     []byte
	children []*Element
	size     int64
	sizeOK   bool
}

// NewMaster creates an empty master element ready to receive children.
func NewMaster(id ID) *Element {
	return &Element{id: id, size: -1}
}

// NewLeaf creates a leaf element wrapping pre-encoded payload bytes.
func NewLeaf(id ID, data []byte) *Element {
	return &Element{id: id, data: data, size: -1}
}

// NewUInt creates a leaf element holding an unsigned integer value.
func NewUInt(id ID, v uint64) *Element { return NewLeaf(id, EncodeUInt(v)) }

// NewSInt creates a leaf element holding a signed integer value.
func NewSInt(id ID, v int64) *Element { return NewLeaf(id, EncodeSInt(v)) }

// NewFloat creates a leaf element holding a double-precision float value.
func NewFloat(id ID, v float64) *Element { return NewLeaf(id, EncodeFloat64(v)) }

// NewString creates a leaf element holding an ASCII/UTF-8 string value.
func NewString(id ID, v string) *Element { return NewLeaf(id, []byte(v)) }

// AddChild appends c as a child of e and returns e, to allow chaining while
// building a tree (e.g. NewMaster(...).AddChild(a).AddChild(b)).
func (e *Element) AddChild(c *Element) *Element {
	e.children = append(e.children, c)
	e.sizeOK = false
	return e
}

// payloadSize returns the size of this element's content, excluding its own
// ID and size-descriptor bytes.
func (e *Element) payloadSize() int64 {
	if e.children == nil {
		return int64(len(e.data))
	}
	var total int64
	for _, c := range e.children {
		total += c.ElementSize()
	}
	return total
}

// ElementSize returns the total encoded size of e (ID + size descriptor +
// payload), computing and caching it if stale, before anything is written.
func (e *Element) ElementSize() int64 {
	if e.sizeOK {
		return e.size
	}
	payload := e.payloadSize()
	idLen := int64(len(EncodeID(e.id)))
	sizeLen := int64(len(EncodeVarInt(uint64(payload))))
	e.size = idLen + sizeLen + payload
	e.sizeOK = true
	return e.size
}

// UpdateSize invalidates the cached size so the next ElementSize call
// recomputes it; callers use this after mutating a child in place instead
// of rebuilding the tree.
func (e *Element) UpdateSize() { e.sizeOK = false }

// Render serializes e and all descendants to sink and returns the number of
// bytes written.
func (e *Element) Render(sink Sink) (int64, error) {
	payload := e.payloadSize()
	header := append(EncodeID(e.id), EncodeVarInt(uint64(payload))...)
	n, err := sink.WriteBytes(header)
	if err != nil {
		return int64(n), fmt.Errorf("ebml: write header for %#x: %w", uint32(e.id), err)
	}
	written := int64(n)
	if e.children == nil {
		n, err = sink.WriteBytes(e.data)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("ebml: write payload for %#x: %w", uint32(e.id), err)
		}
		return written, nil
	}
	for _, c := range e.children {
		cn, err := c.Render(sink)
		written += cn
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// RenderUnknownSize writes id's header with the EBML "unknown size" marker
// and returns the bytes written; used only for the Segment element, which
// is opened once and never closed with a patched-in size.
func RenderUnknownSize(sink Sink, id ID) (int64, error) {
	header := append(EncodeID(id), unknownSizeMarker...)
	n, err := sink.WriteBytes(header)
	if err != nil {
		return int64(n), fmt.Errorf("ebml: write unknown-size header for %#x: %w", uint32(id), err)
	}
	return int64(n), nil
}
