package syncproto

import (
	"bufio"
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldkeep/collabd/internal/crdt"
)

func TestMessageEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Message{
		SyncStep1Message([]byte{1, 2, 3}),
		SyncStep2Message([]byte{4, 5}),
		SyncUpdateMessage([]byte{6}),
		AwarenessMessage([]byte("cursor")),
		AwarenessQueryMessage(),
		AuthMessage(AuthGranted, ""),
		AuthMessage(AuthDenied, "workspace suspended"),
	}
	for _, m := range cases {
		out, err := Decode(Encode(m))
		require.NoError(t, err)
		assert.Equal(t, m, out)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	msg := SyncUpdateMessage([]byte("hello update"))
	require.NoError(t, WriteFrame(&buf, msg))

	out, err := ReadFrame(bufio.NewReader(&buf), DefaultMaxFrameSize)
	require.NoError(t, err)
	assert.Equal(t, msg, out)
}

func TestReadFrameRejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, SyncUpdateMessage(make([]byte, 100))))

	_, err := ReadFrame(bufio.NewReader(&buf), 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecoding)
}

func TestStateVectorRoundTrip(t *testing.T) {
	sv := crdt.StateVector{1: 5, 2: 9}
	out, err := DecodeStateVector(EncodeStateVector(sv))
	require.NoError(t, err)
	assert.Equal(t, sv, out)
}

// chanTransport is an in-memory Transport pairing two sessions for
// tests, standing in for a real network connection.
type chanTransport struct {
	send chan Message
	recv chan Message
}

func newPipe() (a, b *chanTransport) {
	ab := make(chan Message, 16)
	ba := make(chan Message, 16)
	return &chanTransport{send: ab, recv: ba}, &chanTransport{send: ba, recv: ab}
}

func (t *chanTransport) Send(ctx context.Context, msg Message) error {
	select {
	case t.send <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *chanTransport) Recv(ctx context.Context) (Message, error) {
	select {
	case m := <-t.recv:
		return m, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// TestSyncHandshakeEcho replicates scenario S4: two sessions sharing the
// same empty document topology; A writes {"x": 1}; B must receive a
// SyncStep2/Update carrying the change, end up with an equal document,
// and tag the resulting change is_local_change=false while A's own
// change stream tags its own write is_local_change=true.
func TestSyncHandshakeEcho(t *testing.T) {
	docA := crdt.NewDoc(1, "doc-1")
	docB := crdt.NewDoc(2, "doc-1")
	originA := crdt.ClientOrigin(1, "device-a")
	originB := crdt.ClientOrigin(2, "device-b")

	transportA, transportB := newPipe()
	sessionA := NewSession(RoleClient, originB, docA, transportA, nil)
	sessionB := NewSession(RoleServer, originA, docB, transportB, nil)
	defer sessionA.Close()
	defer sessionB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	type localEvent struct {
		isLocal bool
	}
	aEvents := make(chan localEvent, 4)
	bEvents := make(chan localEvent, 4)
	docA.Observe(func(events []crdt.Event) {
		for _, ev := range events {
			aEvents <- localEvent{isLocal: ev.Origin.Equal(originA)}
		}
	})
	docB.Observe(func(events []crdt.Event) {
		for _, ev := range events {
			bEvents <- localEvent{isLocal: ev.Origin.Equal(originB)}
		}
	})

	require.NoError(t, sessionA.Handshake(ctx))
	require.NoError(t, sessionB.Handshake(ctx))

	go sessionA.Serve(ctx)
	go sessionB.Serve(ctx)

	require.NoError(t, docA.TransactWith(originA, func(tx *crdt.WriteTxn) error {
		return tx.SetMapKey("root", "x", crdt.IntValue(1))
	}))

	select {
	case ev := <-aEvents:
		assert.True(t, ev.isLocal)
	case <-ctx.Done():
		t.Fatal("timed out waiting for A's local change event")
	}

	select {
	case ev := <-bEvents:
		assert.False(t, ev.isLocal)
	case <-ctx.Done():
		t.Fatal("timed out waiting for B's remote change event")
	}

	mapA, err := docA.GetMap("root")
	require.NoError(t, err)
	mapB, err := docB.GetMap("root")
	require.NoError(t, err)
	assert.Equal(t, mapA.Get("x").Interface(), mapB.Get("x").Interface())
}

func TestAuthDeniedAbortsServe(t *testing.T) {
	docA := crdt.NewDoc(1, "doc-1")
	transportA, transportB := newPipe()
	sessionA := NewSession(RoleClient, crdt.EmptyOrigin, docA, transportA, nil)
	defer sessionA.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go func() {
		_ = transportB.Send(ctx, AuthMessage(AuthDenied, "no such workspace"))
	}()

	err := sessionA.Serve(ctx)
	require.Error(t, err)
	var denied *PermissionDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "no such workspace", denied.Reason)
}
