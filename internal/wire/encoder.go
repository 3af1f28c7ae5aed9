// Package wire implements the small binary codec used to serialize CRDT
// updates, state vectors and sync protocol messages. It mirrors the shape
// of the Encoder/Decoder traits used by the original sync protocol: a
// forward-only byte buffer with unsigned-varint framing for lengths and
// tags, and explicit helpers for the handful of primitives the protocol
// needs (no reflection, no generic marshaling).
package wire

import "encoding/binary"

// Encoder appends framed values to an in-memory byte buffer.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an Encoder with a pre-sized backing buffer.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 64)}
}

// Bytes returns the encoded buffer. The returned slice aliases the
// encoder's internal storage and must not be mutated by the caller.
func (e *Encoder) Bytes() []byte { return e.buf }

// WriteUvarint appends v as an unsigned LEB128 varint.
func (e *Encoder) WriteUvarint(v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	e.buf = append(e.buf, tmp[:n]...)
}

// WriteByte appends a single byte.
func (e *Encoder) WriteByte(b byte) {
	e.buf = append(e.buf, b)
}

// WriteBuf appends a length-prefixed byte slice.
func (e *Encoder) WriteBuf(b []byte) {
	e.WriteUvarint(uint64(len(b)))
	e.buf = append(e.buf, b...)
}

// WriteString appends a length-prefixed UTF-8 string.
func (e *Encoder) WriteString(s string) {
	e.WriteBuf([]byte(s))
}

// WriteUint32 appends v as big-endian fixed-width bytes, used for op-id
// clocks in the CRDT update encoding.
func (e *Encoder) WriteUint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}

// WriteUint64 appends v as big-endian fixed-width bytes.
func (e *Encoder) WriteUint64(v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}
