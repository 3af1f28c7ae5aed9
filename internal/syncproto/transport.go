package syncproto

import (
	"bufio"
	"context"
	"net"
	"time"
)

// ConnTransport adapts a net.Conn into a Transport using the
// varint-length-prefixed framing of WriteFrame/ReadFrame (spec
// §4.5.4's bounded-buffer reader). ctx cancellation is honored by
// pushing a deadline derived from the context onto conn before each
// Send/Recv, since net.Conn itself has no context-aware API.
type ConnTransport struct {
	conn    net.Conn
	reader  *bufio.Reader
	maxSize int
}

// NewConnTransport wraps conn, bounding decoded frames to maxSize bytes
// (pass 0 to use DefaultMaxFrameSize).
func NewConnTransport(conn net.Conn, maxSize int) *ConnTransport {
	return NewConnTransportWithReader(conn, bufio.NewReader(conn), maxSize)
}

// NewConnTransportWithReader wraps conn like NewConnTransport, but reads
// through reader instead of a freshly constructed bufio.Reader — for a
// caller that has already consumed a preamble (e.g. an out-of-band
// object id line) off conn through reader and must not lose its
// buffered lookahead.
func NewConnTransportWithReader(conn net.Conn, reader *bufio.Reader, maxSize int) *ConnTransport {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}
	return &ConnTransport{conn: conn, reader: reader, maxSize: maxSize}
}

func (t *ConnTransport) applyDeadline(ctx context.Context) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetDeadline(deadline)
		return
	}
	_ = t.conn.SetDeadline(time.Time{})
}

// Send writes one frame to the connection.
func (t *ConnTransport) Send(ctx context.Context, msg Message) error {
	t.applyDeadline(ctx)
	return WriteFrame(t.conn, msg)
}

// Recv reads one frame from the connection.
func (t *ConnTransport) Recv(ctx context.Context) (Message, error) {
	t.applyDeadline(ctx)
	return ReadFrame(t.reader, t.maxSize)
}

// Close closes the underlying connection.
func (t *ConnTransport) Close() error {
	return t.conn.Close()
}
