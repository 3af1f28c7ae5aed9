package syncproto

import (
	"context"
	"fmt"
	"sync"

	"github.com/foldkeep/collabd/internal/crdt"
	"github.com/foldkeep/collabd/internal/syncproto/awareness"
	"github.com/foldkeep/collabd/pkg/log"
)

// Role labels a Session as the initiating client or the accepting
// server side of the handshake (spec §4.5.2: "Sessions are labeled
// client or server").
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// Transport is the network half a Session drives: framing, transport
// security and retry are the transport's concern, not the Session's.
type Transport interface {
	Send(ctx context.Context, msg Message) error
	Recv(ctx context.Context) (Message, error)
}

// Session runs one side of the sync handshake of spec §4.5.2 against
// doc, tagging every applied transaction with origin (spec §4.5.3:
// "Every write transaction carries the peer's CollabOrigin"). Session
// itself never closes transport; callers own its lifecycle.
type Session struct {
	role      Role
	origin    crdt.Origin
	doc       *crdt.Doc
	transport Transport
	awareness *awareness.State

	sentMu sync.Mutex
	sentSV crdt.StateVector
	unwatch func()
}

// NewSession constructs a Session for one peer connection and begins
// watching doc for locally-originated commits to forward as Sync(Update)
// messages (spec §4.5.3's ongoing propagation, once the initial
// handshake completes). aw may be nil, in which case awareness messages
// are decoded but not retained. Call Close to stop watching.
func NewSession(role Role, origin crdt.Origin, doc *crdt.Doc, transport Transport, aw *awareness.State) *Session {
	s := &Session{role: role, origin: origin, doc: doc, transport: transport, awareness: aw, sentSV: crdt.StateVector{}}
	s.unwatch = doc.Observe(s.onLocalEvents)
	return s
}

// Close stops watching doc for local changes. It does not touch the
// transport.
func (s *Session) Close() {
	if s.unwatch != nil {
		s.unwatch()
	}
}

// onLocalEvents forwards a committed transaction as Sync(Update(diff))
// whenever it did not originate from this session's own peer (avoiding
// an echo loop: applying the peer's own update back to them would be a
// no-op diff, but skipping it outright keeps traffic down).
func (s *Session) onLocalEvents(events []crdt.Event) {
	if len(events) == 0 {
		return
	}
	if events[0].Origin.Equal(s.origin) {
		return
	}
	s.sentMu.Lock()
	diff, err := s.doc.EncodeDiffV1(s.sentSV)
	if err != nil {
		s.sentMu.Unlock()
		return
	}
	s.sentSV = s.doc.StateVector()
	s.sentMu.Unlock()
	if len(diff) == 0 {
		return
	}
	_ = s.transport.Send(context.Background(), SyncUpdateMessage(diff))
}

// Handshake performs spec §4.5.2 step 1: send Sync(SyncStep1(local sv))
// and Awareness(local awareness update). Callers run Handshake once
// before entering Serve's receive loop.
func (s *Session) Handshake(ctx context.Context) error {
	if err := s.transport.Send(ctx, SyncStep1Message(EncodeStateVector(s.doc.StateVector()))); err != nil {
		return err
	}
	update := []byte{}
	if s.awareness != nil {
		update = s.awareness.EncodeUpdate()
	}
	return s.transport.Send(ctx, AwarenessMessage(update))
}

// Serve runs the session's receive loop until ctx is cancelled, the
// transport errors, or a peer Auth(denied) or unrecoverable decoding
// failure occurs. It does not recover panics; the wire decoder reports
// truncated input as an error rather than panicking. Serve returns the
// first error from the transport or from handling a message as it is:
// transport errors and awareness decoding errors are not wrapped in a
// SyncError.
func (s *Session) Serve(ctx context.Context) error {
	for {
		msg, err := s.transport.Recv(ctx)
		if err != nil {
			return err
		}
		if err := s.handle(ctx, msg); err != nil {
			var denied *PermissionDeniedError
			if asPermissionDenied(err, &denied) {
				return denied
			}
			log.WithOrigin(originKindString(s.origin)).Error().Err(err).Msg("sync session: handling message failed")
			return err
		}
	}
}

func (s *Session) handle(ctx context.Context, msg Message) error {
	switch msg.Tag {
	case TagSync:
		return s.handleSync(ctx, msg)
	case TagAwareness:
		if s.awareness != nil {
			return s.awareness.ApplyUpdate(msg.Awareness)
		}
		return nil
	case TagAwarenessQuery:
		update := []byte{}
		if s.awareness != nil {
			update = s.awareness.EncodeUpdate()
		}
		return s.transport.Send(ctx, AwarenessMessage(update))
	case TagAuth:
		if msg.AuthStatus == AuthDenied {
			return &PermissionDeniedError{Reason: msg.AuthReason}
		}
		return nil
	default:
		return fmt.Errorf("%w: tag %d", ErrUnsupportedTag, msg.Tag)
	}
}

func (s *Session) handleSync(ctx context.Context, msg Message) error {
	switch msg.SyncTag {
	case SyncStep1:
		sv, err := DecodeStateVector(msg.Payload)
		if err != nil {
			return err
		}
		diff, err := s.doc.EncodeDiffV1(sv)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTransaction, err)
		}
		if err := s.transport.Send(ctx, SyncStep2Message(diff)); err != nil {
			return err
		}
		if s.role == RoleServer {
			return s.transport.Send(ctx, SyncStep1Message(EncodeStateVector(s.doc.StateVector())))
		}
		return nil
	case SyncStep2, SyncUpdate:
		if err := s.doc.ApplyUpdate(s.origin, msg.Payload); err != nil {
			return fmt.Errorf("%w: %v", ErrTransaction, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: sync tag %d", ErrUnsupportedTag, msg.SyncTag)
	}
}

func asPermissionDenied(err error, target **PermissionDeniedError) bool {
	if pd, ok := err.(*PermissionDeniedError); ok {
		*target = pd
		return true
	}
	return false
}

func originKindString(o crdt.Origin) string {
	switch o.Kind {
	case crdt.OriginServer:
		return "server"
	case crdt.OriginClient:
		return "client"
	default:
		return "empty"
	}
}
