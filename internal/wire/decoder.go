package wire

import (
	"encoding/binary"
	"errors"
)

// ErrEndOfBuffer is returned once every byte of the underlying buffer has
// been consumed, mirroring the original decoder's end-of-stream signal
// that MessageReader uses to stop iterating.
var ErrEndOfBuffer = errors.New("wire: end of buffer")

// Decoder reads framed values from an in-memory byte buffer in the same
// order an Encoder wrote them.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder wraps buf for sequential reads. buf is not copied.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Len returns the number of unread bytes remaining.
func (d *Decoder) Len() int { return len(d.buf) - d.pos }

// ReadUvarint reads an unsigned LEB128 varint.
func (d *Decoder) ReadUvarint() (uint64, error) {
	if d.pos >= len(d.buf) {
		return 0, ErrEndOfBuffer
	}
	v, n := binary.Uvarint(d.buf[d.pos:])
	if n <= 0 {
		return 0, ErrEndOfBuffer
	}
	d.pos += n
	return v, nil
}

// ReadByte reads a single byte.
func (d *Decoder) ReadByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, ErrEndOfBuffer
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// ReadBuf reads a length-prefixed byte slice. The returned slice aliases
// the decoder's backing buffer.
func (d *Decoder) ReadBuf() ([]byte, error) {
	n, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if uint64(d.pos)+n > uint64(len(d.buf)) {
		return nil, ErrEndOfBuffer
	}
	b := d.buf[d.pos : d.pos+int(n)]
	d.pos += int(n)
	return b, nil
}

// ReadString reads a length-prefixed UTF-8 string.
func (d *Decoder) ReadString() (string, error) {
	b, err := d.ReadBuf()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadUint32 reads a big-endian fixed-width uint32.
func (d *Decoder) ReadUint32() (uint32, error) {
	if d.pos+4 > len(d.buf) {
		return 0, ErrEndOfBuffer
	}
	v := binary.BigEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v, nil
}

// ReadUint64 reads a big-endian fixed-width uint64.
func (d *Decoder) ReadUint64() (uint64, error) {
	if d.pos+8 > len(d.buf) {
		return 0, ErrEndOfBuffer
	}
	v := binary.BigEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return v, nil
}
