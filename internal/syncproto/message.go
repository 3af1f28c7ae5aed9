// Package syncproto implements the sync protocol core of spec.md §4.5:
// the message taxonomy, the client/server handshake state machine, and
// origin propagation that lets row/field/view change streams tell echo
// apart from genuine remote input.
package syncproto

import (
	"fmt"

	"github.com/foldkeep/collabd/internal/wire"
)

// Tag identifies the outer kind of a Message, per spec §4.5.1.
type Tag byte

const (
	TagSync           Tag = 0
	TagAwareness      Tag = 1
	TagAuth           Tag = 2
	TagAwarenessQuery Tag = 3
)

// SyncTag identifies the nested kind of a TagSync Message.
type SyncTag byte

const (
	SyncStep1 SyncTag = 0
	SyncStep2 SyncTag = 1
	SyncUpdate SyncTag = 2
)

// AuthStatus is the status field of a TagAuth Message.
type AuthStatus byte

const (
	AuthDenied  AuthStatus = 0
	AuthGranted AuthStatus = 1
)

// Message is one frame of the sync protocol. Only the fields relevant to
// Tag (and, for TagSync, SyncTag) are populated; the rest are zero.
type Message struct {
	Tag Tag

	// TagSync fields.
	SyncTag SyncTag
	Payload []byte // state vector bytes (SyncStep1) or update bytes (SyncStep2/SyncUpdate)

	// TagAwareness fields.
	Awareness []byte

	// TagAuth fields.
	AuthStatus AuthStatus
	AuthReason string

	// Custom (Tag > TagAwarenessQuery) fields.
	CustomTag  byte
	CustomData []byte
}

// SyncStep1Message builds a Sync(SyncStep1(sv)) message.
func SyncStep1Message(sv []byte) Message {
	return Message{Tag: TagSync, SyncTag: SyncStep1, Payload: sv}
}

// SyncStep2Message builds a Sync(SyncStep2(diff)) message.
func SyncStep2Message(diff []byte) Message {
	return Message{Tag: TagSync, SyncTag: SyncStep2, Payload: diff}
}

// SyncUpdateMessage builds a Sync(Update(update)) message.
func SyncUpdateMessage(update []byte) Message {
	return Message{Tag: TagSync, SyncTag: SyncUpdate, Payload: update}
}

// AwarenessMessage builds an Awareness(update) message.
func AwarenessMessage(update []byte) Message {
	return Message{Tag: TagAwareness, Awareness: update}
}

// AwarenessQueryMessage builds an (empty) AwarenessQuery message.
func AwarenessQueryMessage() Message {
	return Message{Tag: TagAwarenessQuery}
}

// AuthMessage builds an Auth(status, reason) message.
func AuthMessage(status AuthStatus, reason string) Message {
	return Message{Tag: TagAuth, AuthStatus: status, AuthReason: reason}
}

// Encode serializes m to its wire representation: a 1-byte tag followed
// by the tag-specific payload, varint-framed throughout via
// internal/wire.
func Encode(m Message) []byte {
	e := wire.NewEncoder()
	e.WriteByte(byte(m.Tag))
	switch m.Tag {
	case TagSync:
		e.WriteByte(byte(m.SyncTag))
		e.WriteBuf(m.Payload)
	case TagAwareness:
		e.WriteBuf(m.Awareness)
	case TagAuth:
		e.WriteByte(byte(m.AuthStatus))
		e.WriteString(m.AuthReason)
	case TagAwarenessQuery:
		// empty payload
	default:
		e.WriteBuf(m.CustomData)
	}
	return e.Bytes()
}

// Decode parses a Message from its wire representation.
func Decode(data []byte) (Message, error) {
	d := wire.NewDecoder(data)
	tagByte, err := d.ReadByte()
	if err != nil {
		return Message{}, fmt.Errorf("%w: reading tag: %v", ErrDecoding, err)
	}
	tag := Tag(tagByte)
	switch tag {
	case TagSync:
		st, err := d.ReadByte()
		if err != nil {
			return Message{}, fmt.Errorf("%w: reading sync tag: %v", ErrDecoding, err)
		}
		payload, err := d.ReadBuf()
		if err != nil {
			return Message{}, fmt.Errorf("%w: reading sync payload: %v", ErrDecoding, err)
		}
		return Message{Tag: TagSync, SyncTag: SyncTag(st), Payload: payload}, nil
	case TagAwareness:
		payload, err := d.ReadBuf()
		if err != nil {
			return Message{}, fmt.Errorf("%w: reading awareness payload: %v", ErrDecoding, err)
		}
		return Message{Tag: TagAwareness, Awareness: payload}, nil
	case TagAuth:
		status, err := d.ReadByte()
		if err != nil {
			return Message{}, fmt.Errorf("%w: reading auth status: %v", ErrDecoding, err)
		}
		reason, err := d.ReadString()
		if err != nil {
			return Message{}, fmt.Errorf("%w: reading auth reason: %v", ErrDecoding, err)
		}
		return Message{Tag: TagAuth, AuthStatus: AuthStatus(status), AuthReason: reason}, nil
	case TagAwarenessQuery:
		return Message{Tag: TagAwarenessQuery}, nil
	default:
		payload, err := d.ReadBuf()
		if err != nil {
			return Message{}, fmt.Errorf("%w: reading custom payload: %v", ErrDecoding, err)
		}
		return Message{Tag: tag, CustomTag: tagByte, CustomData: payload}, nil
	}
}
