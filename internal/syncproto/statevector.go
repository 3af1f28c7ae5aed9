package syncproto

import (
	"fmt"

	"github.com/foldkeep/collabd/internal/crdt"
	"github.com/foldkeep/collabd/internal/wire"
)

// EncodeStateVector serializes sv as a count-prefixed list of
// (clientID, clock) varint pairs, the "state vector bytes" payload of a
// SyncStep1 message.
func EncodeStateVector(sv crdt.StateVector) []byte {
	e := wire.NewEncoder()
	e.WriteUvarint(uint64(len(sv)))
	for client, clock := range sv {
		e.WriteUvarint(client)
		e.WriteUvarint(uint64(clock))
	}
	return e.Bytes()
}

// DecodeStateVector parses the payload written by EncodeStateVector.
func DecodeStateVector(data []byte) (crdt.StateVector, error) {
	d := wire.NewDecoder(data)
	count, err := d.ReadUvarint()
	if err != nil {
		return nil, fmt.Errorf("%w: reading state vector count: %v", ErrDecoding, err)
	}
	sv := make(crdt.StateVector, count)
	for i := uint64(0); i < count; i++ {
		client, err := d.ReadUvarint()
		if err != nil {
			return nil, fmt.Errorf("%w: reading state vector client: %v", ErrDecoding, err)
		}
		clock, err := d.ReadUvarint()
		if err != nil {
			return nil, fmt.Errorf("%w: reading state vector clock: %v", ErrDecoding, err)
		}
		sv[client] = uint32(clock)
	}
	return sv, nil
}
