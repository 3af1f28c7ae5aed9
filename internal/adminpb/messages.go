// Package adminpb defines the wire messages and gRPC service descriptor
// for collabd's administrative surface (spec.md §6.6's CLI/environment
// boundary extended with an operational RPC surface): doc metadata
// lookup, active session listing, and on-demand compaction.
//
// Messages are hand-framed with google.golang.org/protobuf's wire-level
// protowire helpers rather than full protoc-gen-go codegen, the same
// choice internal/persistence/envelope already made for its
// AFPB-prefixed envelope: a fixed, small message set doesn't need a
// generator, and protowire still gives genuine protobuf wire
// compatibility.
package adminpb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// GetDocMetaRequest requests metadata for one persisted object.
type GetDocMetaRequest struct {
	ObjectID string
}

// GetDocMetaResponse reports a persisted object's update-log size.
type GetDocMetaResponse struct {
	ObjectID    string
	UpdateCount int32
}

// ListActiveSessionsRequest takes no parameters.
type ListActiveSessionsRequest struct{}

// SessionInfo describes one active sync session.
type SessionInfo struct {
	ClientID    uint64
	DeviceID    string
	ObjectID    string
	Role        string
	ConnectedAt int64 // unix seconds
}

// ListActiveSessionsResponse lists every session the daemon is currently
// serving.
type ListActiveSessionsResponse struct {
	Sessions []SessionInfo
}

// TriggerCompactionRequest asks the daemon to flush one object's update
// log into a single full-state row (internal/persistence.Store.FlushDoc).
type TriggerCompactionRequest struct {
	ObjectID string
}

// TriggerCompactionResponse reports how many update rows were collapsed.
type TriggerCompactionResponse struct {
	UpdatesCollapsed int32
}

func (m *GetDocMetaRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.ObjectID)
	return b, nil
}

func (m *GetDocMetaRequest) Unmarshal(data []byte) error {
	return walkFields(data, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if num == 1 {
			m.ObjectID = string(v)
		}
		return nil
	})
}

func (m *GetDocMetaResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.ObjectID)
	b = appendVarint(b, 2, uint64(m.UpdateCount))
	return b, nil
}

func (m *GetDocMetaResponse) Unmarshal(data []byte) error {
	return walkTypedFields(data, func(num protowire.Number, typ protowire.Type, body []byte) ([]byte, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(body)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.ObjectID = string(v)
			return body[n:], nil
		case 2:
			v, n := protowire.ConsumeVarint(body)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.UpdateCount = int32(v)
			return body[n:], nil
		default:
			n := protowire.ConsumeFieldValue(num, typ, body)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			return body[n:], nil
		}
	})
}

func (m *ListActiveSessionsRequest) Marshal() ([]byte, error)   { return nil, nil }
func (m *ListActiveSessionsRequest) Unmarshal(data []byte) error { return nil }

func (m *ListActiveSessionsResponse) Marshal() ([]byte, error) {
	var b []byte
	for _, s := range m.Sessions {
		var sb []byte
		sb = appendVarint(sb, 1, s.ClientID)
		sb = appendString(sb, 2, s.DeviceID)
		sb = appendString(sb, 3, s.ObjectID)
		sb = appendString(sb, 4, s.Role)
		sb = appendVarint(sb, 5, uint64(s.ConnectedAt))
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, sb)
	}
	return b, nil
}

func (m *ListActiveSessionsResponse) Unmarshal(data []byte) error {
	return walkTypedFields(data, func(num protowire.Number, typ protowire.Type, body []byte) ([]byte, error) {
		if num != 1 {
			n := protowire.ConsumeFieldValue(num, typ, body)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			return body[n:], nil
		}
		v, n := protowire.ConsumeBytes(body)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		var s SessionInfo
		if err := walkTypedFields(v, func(num protowire.Number, typ protowire.Type, sbody []byte) ([]byte, error) {
			switch num {
			case 1:
				cv, cn := protowire.ConsumeVarint(sbody)
				if cn < 0 {
					return nil, protowire.ParseError(cn)
				}
				s.ClientID = cv
				return sbody[cn:], nil
			case 2:
				cv, cn := protowire.ConsumeBytes(sbody)
				if cn < 0 {
					return nil, protowire.ParseError(cn)
				}
				s.DeviceID = string(cv)
				return sbody[cn:], nil
			case 3:
				cv, cn := protowire.ConsumeBytes(sbody)
				if cn < 0 {
					return nil, protowire.ParseError(cn)
				}
				s.ObjectID = string(cv)
				return sbody[cn:], nil
			case 4:
				cv, cn := protowire.ConsumeBytes(sbody)
				if cn < 0 {
					return nil, protowire.ParseError(cn)
				}
				s.Role = string(cv)
				return sbody[cn:], nil
			case 5:
				cv, cn := protowire.ConsumeVarint(sbody)
				if cn < 0 {
					return nil, protowire.ParseError(cn)
				}
				s.ConnectedAt = int64(cv)
				return sbody[cn:], nil
			default:
				cn := protowire.ConsumeFieldValue(num, typ, sbody)
				if cn < 0 {
					return nil, protowire.ParseError(cn)
				}
				return sbody[cn:], nil
			}
		}); err != nil {
			return nil, err
		}
		m.Sessions = append(m.Sessions, s)
		return body[n:], nil
	})
}

func (m *TriggerCompactionRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.ObjectID)
	return b, nil
}

func (m *TriggerCompactionRequest) Unmarshal(data []byte) error {
	return walkTypedFields(data, func(num protowire.Number, typ protowire.Type, body []byte) ([]byte, error) {
		if num != 1 {
			n := protowire.ConsumeFieldValue(num, typ, body)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			return body[n:], nil
		}
		v, n := protowire.ConsumeBytes(body)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		m.ObjectID = string(v)
		return body[n:], nil
	})
}

func (m *TriggerCompactionResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendVarint(b, 1, uint64(m.UpdatesCollapsed))
	return b, nil
}

func (m *TriggerCompactionResponse) Unmarshal(data []byte) error {
	return walkTypedFields(data, func(num protowire.Number, typ protowire.Type, body []byte) ([]byte, error) {
		if num != 1 {
			n := protowire.ConsumeFieldValue(num, typ, body)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			return body[n:], nil
		}
		v, n := protowire.ConsumeVarint(body)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		m.UpdatesCollapsed = int32(v)
		return body[n:], nil
	})
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, []byte(s))
}

// walkFields is the simple case: every top-level field is a length-
// delimited bytes/string value, handed to fn as raw bytes.
func walkFields(data []byte, fn func(num protowire.Number, typ protowire.Type, v []byte) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("adminpb: %w", protowire.ParseError(n))
		}
		data = data[n:]
		v, m := protowire.ConsumeBytes(data)
		if m < 0 {
			return fmt.Errorf("adminpb: %w", protowire.ParseError(m))
		}
		if err := fn(num, typ, v); err != nil {
			return err
		}
		data = data[m:]
	}
	return nil
}

// walkTypedFields hands each field's tag plus the remaining buffer
// (starting at the field's value) to fn, which consumes exactly its own
// field and returns what's left. Used when a message mixes varint and
// bytes fields.
func walkTypedFields(data []byte, fn func(num protowire.Number, typ protowire.Type, body []byte) ([]byte, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("adminpb: %w", protowire.ParseError(n))
		}
		data = data[n:]
		rest, err := fn(num, typ, data)
		if err != nil {
			return fmt.Errorf("adminpb: %w", err)
		}
		data = rest
	}
	return nil
}
