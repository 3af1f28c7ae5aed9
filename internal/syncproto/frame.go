package syncproto

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// DefaultMaxFrameSize bounds a single decoded frame, the "configured
// cap" of spec §4.5.4's bounded-buffer reader.
const DefaultMaxFrameSize = 16 << 20 // 16 MiB

// WriteFrame writes msg's encoded bytes to w as a single
// varint-length-prefixed frame (spec §6.4: "integer fields
// varint-encoded").
func WriteFrame(w io.Writer, msg Message) error {
	body := Encode(msg)
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(body)))
	if _, err := w.Write(lenBuf[:n]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// ReadFrame reads one varint-length-prefixed frame from r and decodes
// it. A frame whose declared length exceeds maxSize aborts with
// ErrDecoding rather than allocating or reading further, per spec
// §4.5.4.
func ReadFrame(r *bufio.Reader, maxSize int) (Message, error) {
	size, err := binary.ReadUvarint(r)
	if err != nil {
		return Message{}, err
	}
	if size > uint64(maxSize) {
		return Message{}, fmt.Errorf("%w: frame of %d bytes exceeds cap of %d", ErrDecoding, size, maxSize)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Message{}, err
	}
	return Decode(buf)
}
