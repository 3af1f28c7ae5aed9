package crdt

import (
	"encoding/json"
	"math"

	"github.com/foldkeep/collabd/internal/wire"
)

// StateVector maps a client ID to the highest clock value observed from
// it. It is exchanged during the sync handshake (SyncStep1) so each peer
// can compute the minimal update the other is missing.
type StateVector map[uint64]uint32

// Get returns the recorded clock for client, or 0 if nothing has been
// observed from it yet.
func (sv StateVector) Get(client uint64) uint32 { return sv[client] }

const (
	opKindMapSet byte = iota
	opKindMapDelete
	opKindArrayInsert
	opKindArrayDelete
	opKindTextInsert
	opKindTextDelete
)

func encodeValue(e *wire.Encoder, v Value) error {
	e.WriteByte(byte(v.Kind))
	switch v.Kind {
	case KindNull:
	case KindString:
		e.WriteString(v.Str)
	case KindInt64:
		e.WriteUint64(uint64(v.Int))
	case KindBool:
		if v.Bool {
			e.WriteByte(1)
		} else {
			e.WriteByte(0)
		}
	case KindFloat64:
		e.WriteUint64(math.Float64bits(v.Float))
	case KindAny:
		b, err := json.Marshal(v.Any)
		if err != nil {
			return err
		}
		e.WriteBuf(b)
	default:
		return ErrInvalidUpdate
	}
	return nil
}

func decodeValue(d *wire.Decoder) (Value, error) {
	k, err := d.ReadByte()
	if err != nil {
		return Value{}, err
	}
	switch ValueKind(k) {
	case KindNull:
		return NullValue(), nil
	case KindString:
		s, err := d.ReadString()
		if err != nil {
			return Value{}, err
		}
		return StringValue(s), nil
	case KindInt64:
		v, err := d.ReadUint64()
		if err != nil {
			return Value{}, err
		}
		return IntValue(int64(v)), nil
	case KindBool:
		b, err := d.ReadByte()
		if err != nil {
			return Value{}, err
		}
		return BoolValue(b != 0), nil
	case KindFloat64:
		v, err := d.ReadUint64()
		if err != nil {
			return Value{}, err
		}
		return FloatValue(math.Float64frombits(v)), nil
	case KindAny:
		b, err := d.ReadBuf()
		if err != nil {
			return Value{}, err
		}
		var val any
		if len(b) > 0 {
			if err := json.Unmarshal(b, &val); err != nil {
				return Value{}, err
			}
		}
		return AnyValue(val), nil
	default:
		return Value{}, ErrInvalidUpdate
	}
}

func encodeOp(e *wire.Encoder, op LoggedOp) error {
	e.WriteString(op.Root)
	e.WriteByte(byte(op.RootKind))
	e.WriteUint64(op.ID.Client)
	e.WriteUint32(op.ID.Clock)

	switch op.RootKind {
	case RootMap:
		if op.Set {
			e.WriteByte(opKindMapSet)
		} else {
			e.WriteByte(opKindMapDelete)
		}
		e.WriteString(op.MapKey)
		if op.Set {
			if err := encodeValue(e, op.Value); err != nil {
				return err
			}
		}
	case RootArray, RootText:
		deleteOp := opKindArrayDelete
		insertOp := opKindArrayInsert
		if op.RootKind == RootText {
			deleteOp = opKindTextDelete
			insertOp = opKindTextInsert
		}
		if op.Set {
			e.WriteByte(insertOp)
			if op.HasOrigin {
				e.WriteByte(1)
				e.WriteUint64(op.OriginID.Client)
				e.WriteUint32(op.OriginID.Clock)
			} else {
				e.WriteByte(0)
			}
			if err := encodeValue(e, op.Value); err != nil {
				return err
			}
		} else {
			e.WriteByte(deleteOp)
		}
	}
	return nil
}

func decodeOp(d *wire.Decoder) (LoggedOp, error) {
	var op LoggedOp
	root, err := d.ReadString()
	if err != nil {
		return op, err
	}
	rk, err := d.ReadByte()
	if err != nil {
		return op, err
	}
	client, err := d.ReadUint64()
	if err != nil {
		return op, err
	}
	clock, err := d.ReadUint32()
	if err != nil {
		return op, err
	}
	opByte, err := d.ReadByte()
	if err != nil {
		return op, err
	}

	op.Root = root
	op.RootKind = RootKind(rk)
	op.ID = OpID{Client: client, Clock: clock}

	switch opByte {
	case opKindMapSet, opKindMapDelete:
		key, err := d.ReadString()
		if err != nil {
			return op, err
		}
		op.MapKey = key
		op.Set = opByte == opKindMapSet
		if op.Set {
			v, err := decodeValue(d)
			if err != nil {
				return op, err
			}
			op.Value = v
		}
	case opKindArrayInsert, opKindTextInsert:
		hasOrigin, err := d.ReadByte()
		if err != nil {
			return op, err
		}
		op.HasOrigin = hasOrigin != 0
		if op.HasOrigin {
			c, err := d.ReadUint64()
			if err != nil {
				return op, err
			}
			clk, err := d.ReadUint32()
			if err != nil {
				return op, err
			}
			op.OriginID = OpID{Client: c, Clock: clk}
		}
		v, err := decodeValue(d)
		if err != nil {
			return op, err
		}
		op.Value = v
		op.Set = true
	case opKindArrayDelete, opKindTextDelete:
		op.Set = false
		op.Deleted = true
	default:
		return op, ErrInvalidUpdate
	}
	return op, nil
}

// EncodeStateV1 serializes the document's complete op log.
func (d *Doc) EncodeStateV1() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := wire.NewEncoder()
	e.WriteUvarint(uint64(len(d.log)))
	for _, op := range d.log {
		if err := encodeOp(e, op); err != nil {
			return nil, err
		}
	}
	return e.Bytes(), nil
}

// EncodeStateV2 is an alias of EncodeStateV1 for this engine: unlike the
// original implementation's v1/v2 split, there is no separate compressed
// wire representation here, only a version tag kept for protocol
// compatibility with peers that request v2 explicitly.
func (d *Doc) EncodeStateV2() ([]byte, error) { return d.EncodeStateV1() }

// EncodeDiffV1 serializes only the ops whose OpID is not yet reflected in
// sv, i.e. the minimal update a peer holding sv needs to catch up.
func (d *Doc) EncodeDiffV1(sv StateVector) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var pending []LoggedOp
	for _, op := range d.log {
		if op.ID.Clock > sv.Get(op.ID.Client) {
			pending = append(pending, op)
		}
	}
	e := wire.NewEncoder()
	e.WriteUvarint(uint64(len(pending)))
	for _, op := range pending {
		if err := encodeOp(e, op); err != nil {
			return nil, err
		}
	}
	return e.Bytes(), nil
}

// EncodeDiffV2 is an alias of EncodeDiffV1; see EncodeStateV2.
func (d *Doc) EncodeDiffV2(sv StateVector) ([]byte, error) { return d.EncodeDiffV1(sv) }

// ApplyUpdate decodes and applies an update produced by EncodeStateV1,
// EncodeStateV2, EncodeDiffV1 or EncodeDiffV2 against this document.
// Ops already reflected in the document (by OpID) are skipped, so
// applying the same update twice is safe.
func (d *Doc) ApplyUpdate(origin Origin, update []byte) error {
	dec := wire.NewDecoder(update)
	count, err := dec.ReadUvarint()
	if err != nil {
		return err
	}

	d.mu.Lock()
	var events []Event
	for i := uint64(0); i < count; i++ {
		op, err := decodeOp(dec)
		if err != nil {
			d.mu.Unlock()
			return err
		}
		r, err := d.getOrCreateRoot(op.Root, op.RootKind)
		if err != nil {
			d.mu.Unlock()
			return err
		}

		applied := false
		switch op.RootKind {
		case RootMap:
			if op.Set {
				applied = r.m.applySet(op.MapKey, op.ID, op.Value)
			} else {
				applied = r.m.applyDelete(op.MapKey, op.ID)
			}
		case RootArray:
			if op.Set {
				applied = r.a.ApplyInsert(op.ID, op.OriginID, op.HasOrigin, op.Value)
			} else {
				applied = r.a.ApplyDelete(op.ID)
			}
		case RootText:
			if op.Set {
				applied = r.t.arr.ApplyInsert(op.ID, op.OriginID, op.HasOrigin, op.Value)
			} else {
				applied = r.t.arr.ApplyDelete(op.ID)
			}
		}

		d.observeClock(op.ID)
		if applied {
			d.log = append(d.log, op)
			events = append(events, Event{Root: op.Root, Origin: origin})
		}
	}
	d.mu.Unlock()

	if len(events) > 0 {
		d.dispatch(events, origin)
	}
	return nil
}
