package ebml

import "math"

// EncodeID returns the wire bytes for an element ID. Matroska element IDs
// already carry their own length marker in the leading byte, so this is a
// plain big-endian encode at the ID's natural width, same as the teacher's
// writeEBMLID in webm_muxer.go.
func EncodeID(id ID) []byte {
	switch {
	case id&0xFF000000 != 0:
		return []byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
	case id&0xFF0000 != 0:
		return []byte{byte(id >> 16), byte(id >> 8), byte(id)}
	case id&0xFF00 != 0:
		return []byte{byte(id >> 8), byte(id)}
	default:
		return []byte{byte(id)}
	}
}

// EncodeVarInt encodes n as a minimal-width EBML VINT (size descriptor),
// the same scheme the teacher hand-rolled as writeVarInt.
func EncodeVarInt(n uint64) []byte {
	switch {
	case n < 1<<7-1:
		return []byte{0x80 | byte(n)}
	case n < 1<<14-1:
		return []byte{0x40 | byte(n>>8), byte(n)}
	case n < 1<<21-1:
		return []byte{0x20 | byte(n>>16), byte(n >> 8), byte(n)}
	case n < 1<<28-1:
		return []byte{0x10 | byte(n>>24), byte(n >> 16), byte(n >> 8), byte(n)}
	case n < 1<<35-1:
		return []byte{0x08 | byte(n>>32), byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	case n < 1<<42-1:
		return []byte{0x04 | byte(n>>40), byte(n >> 32), byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	case n < 1<<49-1:
		return []byte{0x02 | byte(n>>48), byte(n >> 40), byte(n >> 32), byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	default:
		return []byte{0x01, byte(n >> 48), byte(n >> 40), byte(n >> 32), byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	}
}

// unknownSizeMarker is the 8-byte all-ones VINT used for the Segment
// element, which is never closed with a known size because the byte sink is
// append-only and never seeks back to patch one in.
var unknownSizeMarker = []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// EncodeUInt encodes an unsigned integer in the minimal number of bytes,
// matching the teacher's encodeUInt.
func EncodeUInt(n uint64) []byte {
	if n == 0 {
		return []byte{0}
	}
	var buf [8]byte
	i := 8
	for n > 0 {
		i--
		buf[i] = byte(n)
		n >>= 8
	}
	return buf[i:]
}

// EncodeSInt encodes a signed integer (used for ReferenceBlock deltas) in
// the minimal two's-complement width that preserves its sign.
func EncodeSInt(n int64) []byte {
	if n >= 0 {
		b := EncodeUInt(uint64(n))
		if b[0]&0x80 != 0 {
			return append([]byte{0}, b...)
		}
		return b
	}
	u := uint64(n)
	for width := 1; width <= 8; width++ {
		shift := uint(64 - width*8)
		trunc := int64(u<<shift) >> shift
		if trunc == n {
			buf := make([]byte, width)
			for i := width - 1; i >= 0; i-- {
				buf[i] = byte(u)
				u >>= 8
			}
			return buf
		}
	}
	buf := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		buf[i] = byte(u)
		u >>= 8
	}
	return buf
}

// EncodeFloat64 encodes a float as a full 8-byte IEEE754 double, matching
// the teacher's encodeFloat.
func EncodeFloat64(f float64) []byte {
	bits := math.Float64bits(f)
	return []byte{
		byte(bits >> 56), byte(bits >> 48), byte(bits >> 40), byte(bits >> 32),
		byte(bits >> 24), byte(bits >> 16), byte(bits >> 8), byte(bits),
	}
}
