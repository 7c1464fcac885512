// Package frame implements the length-prefixed framing used on streamed
// audio responses: each unit is a 4-byte little-endian length N followed by
// N payload bytes, and a unit with N = 0 marks a clean end of stream.
package frame

import "encoding/binary"

// HeaderSize is the size of the length prefix.
const HeaderSize = 4

// Encode returns payload wrapped in a length prefix. An empty payload yields
// the end-of-stream marker.
func Encode(payload []byte) []byte {
	out := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint32(out, uint32(len(payload)))
	copy(out[HeaderSize:], payload)
	return out
}

// End returns the end-of-stream marker.
func End() []byte {
	return make([]byte, HeaderSize)
}
